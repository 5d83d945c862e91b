package partner

import (
	"context"

	"github.com/google/uuid"
)

// CustomerRepository defines persistence for the customer master
type CustomerRepository interface {
	Save(ctx context.Context, customer *Customer) error
	Update(ctx context.Context, customer *Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	FindByCode(ctx context.Context, code string) (*Customer, error)
	// FindByIdentifier resolves a marketplace-side identifier to the
	// customer it belongs to.
	FindByIdentifier(ctx context.Context, marketplace, identifier string) (*Customer, error)
	AddIdentifier(ctx context.Context, identifier *CustomerIdentifier) error
	List(ctx context.Context, limit, offset int) ([]*Customer, error)
}
