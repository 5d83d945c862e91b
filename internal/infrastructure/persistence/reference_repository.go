package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orderhub/backend/internal/domain/matching"
	"github.com/orderhub/backend/internal/domain/shared"
)

// GormReferenceRepository implements ReferenceRepository using GORM
type GormReferenceRepository struct {
	db *gorm.DB
}

// NewGormReferenceRepository creates a new GormReferenceRepository
func NewGormReferenceRepository(db *gorm.DB) *GormReferenceRepository {
	return &GormReferenceRepository{db: db}
}

var _ matching.ReferenceRepository = (*GormReferenceRepository)(nil)

// Upsert inserts the entry or refreshes the stored size category for
// the brand and normalized key
func (r *GormReferenceRepository) Upsert(ctx context.Context, entry *matching.ReferenceEntry) (*matching.ReferenceEntry, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "brand"}, {Name: "normalized_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"device_name":   entry.DeviceName,
			"size_category": entry.SizeCategory,
			"updated_at":    time.Now(),
		}),
	}).Create(entry).Error
	if err != nil {
		return nil, err
	}

	var saved matching.ReferenceEntry
	if err := r.db.WithContext(ctx).
		Where("brand = ? AND normalized_key = ?", entry.Brand, entry.NormalizedKey).
		First(&saved).Error; err != nil {
		return nil, err
	}
	return &saved, nil
}

// FindByKey finds an entry by brand and normalized key
func (r *GormReferenceRepository) FindByKey(ctx context.Context, brand, normalizedKey string) (*matching.ReferenceEntry, error) {
	var entry matching.ReferenceEntry
	if err := r.db.WithContext(ctx).
		Where("brand = ? AND normalized_key = ?", brand, normalizedKey).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// FindByDeviceFragment finds an entry whose device name contains the
// fragment, case-insensitively. Most specific (longest) names win.
func (r *GormReferenceRepository) FindByDeviceFragment(ctx context.Context, brand, fragment string) (*matching.ReferenceEntry, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, shared.ErrNotFound
	}

	var entry matching.ReferenceEntry
	if err := r.db.WithContext(ctx).
		Where("brand = ? AND LOWER(device_name) LIKE ?", brand, "%"+strings.ToLower(fragment)+"%").
		Order("LENGTH(device_name) DESC").
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// List returns entries, optionally filtered by brand
func (r *GormReferenceRepository) List(ctx context.Context, brand string) ([]*matching.ReferenceEntry, error) {
	query := r.db.WithContext(ctx).Order("brand, device_name")
	if brand != "" {
		query = query.Where("brand = ?", brand)
	}

	var entries []*matching.ReferenceEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Delete removes an entry
func (r *GormReferenceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&matching.ReferenceEntry{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GormDesignRepository implements DesignRepository using GORM
type GormDesignRepository struct {
	db *gorm.DB
}

// NewGormDesignRepository creates a new GormDesignRepository
func NewGormDesignRepository(db *gorm.DB) *GormDesignRepository {
	return &GormDesignRepository{db: db}
}

var _ matching.DesignRepository = (*GormDesignRepository)(nil)

// Upsert inserts the entry or refreshes the product type for the design number
func (r *GormDesignRepository) Upsert(ctx context.Context, entry *matching.DesignEntry) (*matching.DesignEntry, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "design_no"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"product_type": entry.ProductType,
			"updated_at":   time.Now(),
		}),
	}).Create(entry).Error
	if err != nil {
		return nil, err
	}

	var saved matching.DesignEntry
	if err := r.db.WithContext(ctx).
		Where("design_no = ?", entry.DesignNo).
		First(&saved).Error; err != nil {
		return nil, err
	}
	return &saved, nil
}

// FindByDesignNo finds an entry by its design number
func (r *GormDesignRepository) FindByDesignNo(ctx context.Context, designNo string) (*matching.DesignEntry, error) {
	var entry matching.DesignEntry
	if err := r.db.WithContext(ctx).
		Where("design_no = ?", designNo).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// List returns every design entry
func (r *GormDesignRepository) List(ctx context.Context) ([]*matching.DesignEntry, error) {
	var entries []*matching.DesignEntry
	if err := r.db.WithContext(ctx).Order("design_no").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Delete removes a design entry
func (r *GormDesignRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&matching.DesignEntry{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
