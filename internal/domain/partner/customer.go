// Package partner holds the customer master: the wholesale buyers whose
// orders are imported, together with the marketplace identifiers used to
// recognize them in export files.
package partner

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orderhub/backend/internal/domain/shared"
)

// Customer is one wholesale buyer
type Customer struct {
	shared.BaseAggregateRoot
	Code        string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name        string `gorm:"type:varchar(200);not null"`
	ContactName string `gorm:"type:varchar(100)"`
	Email       string `gorm:"type:varchar(255)"`
	Phone       string `gorm:"type:varchar(50)"`
	Active      bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Customer) TableName() string {
	return "customers"
}

// NewCustomer creates a new customer
func NewCustomer(code, name string) (*Customer, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return nil, shared.ErrInvalidInput
	}

	return &Customer{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Name:              name,
		Active:            true,
	}, nil
}

// Update updates the customer's contact information
func (c *Customer) Update(name, contactName, email, phone string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.ErrInvalidInput
	}

	c.Name = name
	c.ContactName = strings.TrimSpace(contactName)
	c.Email = strings.TrimSpace(email)
	c.Phone = strings.TrimSpace(phone)
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	return nil
}

// Deactivate marks the customer as inactive
func (c *Customer) Deactivate() {
	c.Active = false
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// CustomerIdentifier links a marketplace-side buyer identifier (shop
// account, store code) to a customer, so imported rows can be attributed
// without manual selection.
type CustomerIdentifier struct {
	shared.BaseEntity
	CustomerID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Marketplace string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_customer_identifiers_mk_id"`
	Identifier  string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_customer_identifiers_mk_id"`
}

// TableName returns the table name for GORM
func (CustomerIdentifier) TableName() string {
	return "customer_identifiers"
}

// NewCustomerIdentifier creates a marketplace identifier for a customer
func NewCustomerIdentifier(customerID uuid.UUID, marketplace, identifier string) (*CustomerIdentifier, error) {
	marketplace = strings.TrimSpace(marketplace)
	identifier = strings.TrimSpace(identifier)
	if customerID == uuid.Nil || marketplace == "" || identifier == "" {
		return nil, shared.ErrInvalidInput
	}

	return &CustomerIdentifier{
		BaseEntity:  shared.NewBaseEntity(),
		CustomerID:  customerID,
		Marketplace: strings.ToLower(marketplace),
		Identifier:  identifier,
	}, nil
}
