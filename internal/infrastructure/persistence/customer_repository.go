package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderhub/backend/internal/domain/partner"
	"github.com/orderhub/backend/internal/domain/shared"
)

// GormCustomerRepository implements CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

var _ partner.CustomerRepository = (*GormCustomerRepository)(nil)

// Save persists a new customer
func (r *GormCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

// Update persists customer changes
func (r *GormCustomerRepository) Update(ctx context.Context, customer *partner.Customer) error {
	result := r.db.WithContext(ctx).Model(customer).
		Where("id = ?", customer.ID).
		Updates(map[string]interface{}{
			"name":         customer.Name,
			"contact_name": customer.ContactName,
			"email":        customer.Email,
			"phone":        customer.Phone,
			"active":       customer.Active,
			"version":      customer.Version,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a customer together with its marketplace identifiers
func (r *GormCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&partner.CustomerIdentifier{}, "customer_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&partner.Customer{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// FindByID finds a customer by its ID
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	var customer partner.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// FindByCode finds a customer by its code
func (r *GormCustomerRepository) FindByCode(ctx context.Context, code string) (*partner.Customer, error) {
	var customer partner.Customer
	if err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// FindByIdentifier resolves a marketplace-side identifier to the customer
// it belongs to
func (r *GormCustomerRepository) FindByIdentifier(ctx context.Context, marketplace, identifier string) (*partner.Customer, error) {
	var customer partner.Customer
	err := r.db.WithContext(ctx).
		Joins("JOIN customer_identifiers ci ON ci.customer_id = customers.id").
		Where("ci.marketplace = ? AND ci.identifier = ?", strings.ToLower(strings.TrimSpace(marketplace)), identifier).
		First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// AddIdentifier persists a marketplace identifier for a customer
func (r *GormCustomerRepository) AddIdentifier(ctx context.Context, identifier *partner.CustomerIdentifier) error {
	err := r.db.WithContext(ctx).Create(identifier).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}

// List returns a page of customers ordered by code
func (r *GormCustomerRepository) List(ctx context.Context, limit, offset int) ([]*partner.Customer, error) {
	var customers []*partner.Customer
	if err := r.db.WithContext(ctx).
		Order("code").
		Limit(limit).
		Offset(offset).
		Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}
