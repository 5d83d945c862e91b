package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository defines persistence for the product master
type ProductRepository interface {
	Save(ctx context.Context, product *Product) error
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindBySKU(ctx context.Context, sku string) (*Product, error)
	// FindBySKUOrName resolves an order line's product reference: exact
	// SKU first, then exact name.
	FindBySKUOrName(ctx context.Context, skuOrName string) (*Product, error)
	List(ctx context.Context, limit, offset int) ([]*Product, error)
}
