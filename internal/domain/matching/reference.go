package matching

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/orderhub/backend/internal/domain/shared"
)

// ReferenceEntry is one row of the device reference master: a canonical
// brand and device name with the size category sold for it. NormalizedKey
// is the space-stripped lower-cased device name used for exact lookup.
type ReferenceEntry struct {
	shared.BaseEntity
	Brand         string `gorm:"type:varchar(64);not null;uniqueIndex:idx_reference_entries_brand_key"`
	DeviceName    string `gorm:"type:varchar(128);not null"`
	NormalizedKey string `gorm:"type:varchar(128);not null;uniqueIndex:idx_reference_entries_brand_key"`
	SizeCategory  string `gorm:"type:varchar(32)"`
}

// TableName returns the table name for ReferenceEntry
func (ReferenceEntry) TableName() string {
	return "reference_entries"
}

// NewReferenceEntry creates a reference entry, deriving the normalized key
func NewReferenceEntry(brand, deviceName, sizeCategory string) (*ReferenceEntry, error) {
	brand = strings.TrimSpace(brand)
	deviceName = strings.TrimSpace(deviceName)
	if brand == "" || deviceName == "" {
		return nil, shared.ErrInvalidInput
	}
	return &ReferenceEntry{
		BaseEntity:    shared.NewBaseEntity(),
		Brand:         brand,
		DeviceName:    deviceName,
		NormalizedKey: NewNormalizer().Key(deviceName),
		SizeCategory:  strings.TrimSpace(sizeCategory),
	}, nil
}

// ReferenceRepository defines persistence for the device reference master
type ReferenceRepository interface {
	Upsert(ctx context.Context, entry *ReferenceEntry) (*ReferenceEntry, error)
	FindByKey(ctx context.Context, brand, normalizedKey string) (*ReferenceEntry, error)
	FindByDeviceFragment(ctx context.Context, brand, fragment string) (*ReferenceEntry, error)
	List(ctx context.Context, brand string) ([]*ReferenceEntry, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Mirror is an optional remote copy of the reference master. A mirror
// that cannot answer fails closed: callers treat any error as not-found.
type Mirror interface {
	FetchSize(ctx context.Context, brand, deviceName string) (string, error)
}

// ReferenceLookup resolves a device's size category against the local
// reference master, retrying progressively looser key variants before
// consulting the optional mirror.
type ReferenceLookup struct {
	entries    ReferenceRepository
	mirror     Mirror
	normalizer *Normalizer
}

// NewReferenceLookup creates a lookup over the given repository. mirror
// may be nil.
func NewReferenceLookup(entries ReferenceRepository, mirror Mirror) *ReferenceLookup {
	return &ReferenceLookup{
		entries:    entries,
		mirror:     mirror,
		normalizer: NewNormalizer(),
	}
}

// SizeFor returns the size category recorded for a brand and device.
// Lookup order: exact normalized key, then device-name fragment, then the
// device name with its leading brand token dropped, then the mirror.
// Missing data is ErrNotFound, never a failure; mirror errors degrade to
// ErrNotFound as well.
func (l *ReferenceLookup) SizeFor(ctx context.Context, brand, deviceName string) (string, error) {
	if brand == "" || deviceName == "" {
		return "", shared.ErrNotFound
	}

	if entry, err := l.entries.FindByKey(ctx, brand, l.normalizer.Key(deviceName)); err == nil {
		if entry.SizeCategory != "" {
			return entry.SizeCategory, nil
		}
	} else if !errors.Is(err, shared.ErrNotFound) {
		return "", err
	}

	if entry, err := l.entries.FindByDeviceFragment(ctx, brand, deviceName); err == nil {
		if entry.SizeCategory != "" {
			return entry.SizeCategory, nil
		}
	} else if !errors.Is(err, shared.ErrNotFound) {
		return "", err
	}

	if parts := strings.Fields(deviceName); len(parts) > 1 {
		withoutBrand := strings.Join(parts[1:], " ")
		if entry, err := l.entries.FindByDeviceFragment(ctx, brand, withoutBrand); err == nil {
			if entry.SizeCategory != "" {
				return entry.SizeCategory, nil
			}
		} else if !errors.Is(err, shared.ErrNotFound) {
			return "", err
		}
	}

	if l.mirror != nil {
		size, err := l.mirror.FetchSize(ctx, brand, deviceName)
		if err == nil && size != "" {
			return size, nil
		}
	}

	return "", shared.ErrNotFound
}

// DesignEntry maps a design identifier found in product names to the
// product type it belongs to.
type DesignEntry struct {
	shared.BaseEntity
	DesignNo    string `gorm:"type:varchar(64);not null;uniqueIndex"`
	ProductType string `gorm:"type:varchar(128);not null"`
}

// TableName returns the table name for DesignEntry
func (DesignEntry) TableName() string {
	return "design_entries"
}

// NewDesignEntry creates a design master entry
func NewDesignEntry(designNo, productType string) (*DesignEntry, error) {
	designNo = strings.TrimSpace(designNo)
	productType = strings.TrimSpace(productType)
	if designNo == "" || productType == "" {
		return nil, shared.ErrInvalidInput
	}
	return &DesignEntry{
		BaseEntity:  shared.NewBaseEntity(),
		DesignNo:    designNo,
		ProductType: productType,
	}, nil
}

// DesignRepository defines persistence for the design master
type DesignRepository interface {
	Upsert(ctx context.Context, entry *DesignEntry) (*DesignEntry, error)
	FindByDesignNo(ctx context.Context, designNo string) (*DesignEntry, error)
	List(ctx context.Context) ([]*DesignEntry, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
