// Package partner exposes customer master administration
package partner

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/orderhub/backend/internal/domain/partner"
	"github.com/orderhub/backend/internal/domain/shared"
)

// CustomerService handles customer master operations
type CustomerService struct {
	customers partner.CustomerRepository
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(customers partner.CustomerRepository) *CustomerService {
	return &CustomerService{customers: customers}
}

// Create creates a new customer
func (s *CustomerService) Create(ctx context.Context, req CreateCustomerRequest) (*CustomerResponse, error) {
	if _, err := s.customers.FindByCode(ctx, strings.ToUpper(strings.TrimSpace(req.Code))); err == nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Customer with this code already exists")
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	customer, err := partner.NewCustomer(req.Code, req.Name)
	if err != nil {
		return nil, err
	}
	if req.ContactName != "" || req.Email != "" || req.Phone != "" {
		if err := customer.Update(req.Name, req.ContactName, req.Email, req.Phone); err != nil {
			return nil, err
		}
	}

	if err := s.customers.Save(ctx, customer); err != nil {
		return nil, err
	}
	return ToCustomerResponse(customer), nil
}

// Update updates a customer's contact information
func (s *CustomerService) Update(ctx context.Context, id uuid.UUID, req UpdateCustomerRequest) (*CustomerResponse, error) {
	customer, err := s.customers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := customer.Name
	if req.Name != nil {
		name = *req.Name
	}
	contactName := customer.ContactName
	if req.ContactName != nil {
		contactName = *req.ContactName
	}
	email := customer.Email
	if req.Email != nil {
		email = *req.Email
	}
	phone := customer.Phone
	if req.Phone != nil {
		phone = *req.Phone
	}

	if err := customer.Update(name, contactName, email, phone); err != nil {
		return nil, err
	}
	if err := s.customers.Update(ctx, customer); err != nil {
		return nil, err
	}
	return ToCustomerResponse(customer), nil
}

// Get returns one customer by ID
func (s *CustomerService) Get(ctx context.Context, id uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToCustomerResponse(customer), nil
}

// List returns a page of customers
func (s *CustomerService) List(ctx context.Context, limit, offset int) ([]*CustomerResponse, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	customers, err := s.customers.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return ToCustomerResponses(customers), nil
}

// Deactivate marks a customer as inactive
func (s *CustomerService) Deactivate(ctx context.Context, id uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	customer.Deactivate()
	if err := s.customers.Update(ctx, customer); err != nil {
		return nil, err
	}
	return ToCustomerResponse(customer), nil
}

// AddIdentifier links a marketplace identifier to a customer
func (s *CustomerService) AddIdentifier(ctx context.Context, customerID uuid.UUID, req AddIdentifierRequest) error {
	if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		return err
	}

	identifier, err := partner.NewCustomerIdentifier(customerID, req.Marketplace, req.Identifier)
	if err != nil {
		return err
	}
	return s.customers.AddIdentifier(ctx, identifier)
}

// ResolveByIdentifier finds the customer behind a marketplace identifier
func (s *CustomerService) ResolveByIdentifier(ctx context.Context, marketplace, identifier string) (*CustomerResponse, error) {
	customer, err := s.customers.FindByIdentifier(ctx, marketplace, identifier)
	if err != nil {
		return nil, err
	}
	return ToCustomerResponse(customer), nil
}
