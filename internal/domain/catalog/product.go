// Package catalog holds the product master: the wholesaler's own
// products with their canonical type and default wholesale price.
package catalog

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orderhub/backend/internal/domain/shared"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "active"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

// Product is one entry of the product master. DefaultPrice is the master
// wholesale price the pricing resolver falls back to when no rule
// applies; zero means the master carries no usable price.
type Product struct {
	shared.BaseAggregateRoot
	SKU          string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	Name         string          `gorm:"type:varchar(255);not null;index"`
	ProductType  string          `gorm:"type:varchar(128);index"`
	DefaultPrice decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Status       ProductStatus   `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new product
func NewProduct(sku, name string) (*Product, error) {
	if err := validateSKU(sku); err != nil {
		return nil, err
	}
	if err := validateProductName(name); err != nil {
		return nil, err
	}

	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SKU:               strings.TrimSpace(sku),
		Name:              strings.TrimSpace(name),
		DefaultPrice:      decimal.Zero,
		Status:            ProductStatusActive,
	}, nil
}

// Update updates the product's basic information
func (p *Product) Update(name, productType string) error {
	if err := validateProductName(name); err != nil {
		return err
	}

	p.Name = strings.TrimSpace(name)
	p.ProductType = strings.TrimSpace(productType)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// SetDefaultPrice sets the master wholesale price. Negative prices are
// rejected; zero is allowed and means "no master price".
func (p *Product) SetDefaultPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.ErrInvalidInput
	}
	p.DefaultPrice = price
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// Discontinue marks the product as no longer sold
func (p *Product) Discontinue() {
	p.Status = ProductStatusDiscontinued
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// IsActive reports whether the product is sellable
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// HasMasterPrice reports whether the default price can settle a line
func (p *Product) HasMasterPrice() bool {
	return p.DefaultPrice.IsPositive()
}

func validateSKU(sku string) error {
	sku = strings.TrimSpace(sku)
	if sku == "" || len(sku) > 64 {
		return shared.ErrInvalidInput
	}
	return nil
}

func validateProductName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 255 {
		return shared.ErrInvalidInput
	}
	return nil
}
