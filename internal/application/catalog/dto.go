package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderhub/backend/internal/domain/catalog"
)

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	SKU          string           `json:"sku" binding:"required,min=1,max=64"`
	Name         string           `json:"name" binding:"required,min=1,max=200"`
	ProductType  string           `json:"product_type" binding:"max=128"`
	DefaultPrice *decimal.Decimal `json:"default_price"`
}

// UpdateProductRequest represents a request to update a product
type UpdateProductRequest struct {
	Name         *string          `json:"name" binding:"omitempty,min=1,max=200"`
	ProductType  *string          `json:"product_type" binding:"omitempty,max=128"`
	DefaultPrice *decimal.Decimal `json:"default_price"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID           uuid.UUID       `json:"id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	ProductType  string          `json:"product_type,omitempty"`
	DefaultPrice decimal.Decimal `json:"default_price"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ToProductResponse converts a product to a response DTO
func ToProductResponse(p *catalog.Product) *ProductResponse {
	return &ProductResponse{
		ID:           p.ID,
		SKU:          p.SKU,
		Name:         p.Name,
		ProductType:  p.ProductType,
		DefaultPrice: p.DefaultPrice,
		Status:       string(p.Status),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// ToProductResponses converts a slice of products
func ToProductResponses(products []*catalog.Product) []*ProductResponse {
	out := make([]*ProductResponse, len(products))
	for i, p := range products {
		out[i] = ToProductResponse(p)
	}
	return out
}
