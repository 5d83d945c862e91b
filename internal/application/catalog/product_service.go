// Package catalog exposes product master administration
package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/orderhub/backend/internal/domain/catalog"
	"github.com/orderhub/backend/internal/domain/shared"
)

// ProductService handles product master operations
type ProductService struct {
	products catalog.ProductRepository
}

// NewProductService creates a new ProductService
func NewProductService(products catalog.ProductRepository) *ProductService {
	return &ProductService{products: products}
}

// Create creates a new product
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	if _, err := s.products.FindBySKU(ctx, req.SKU); err == nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Product with this SKU already exists")
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	product, err := catalog.NewProduct(req.SKU, req.Name)
	if err != nil {
		return nil, err
	}
	if req.ProductType != "" {
		if err := product.Update(req.Name, req.ProductType); err != nil {
			return nil, err
		}
	}
	if req.DefaultPrice != nil {
		if err := product.SetDefaultPrice(*req.DefaultPrice); err != nil {
			return nil, err
		}
	}

	if err := s.products.Save(ctx, product); err != nil {
		return nil, err
	}
	return ToProductResponse(product), nil
}

// Update updates a product
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := product.Name
	if req.Name != nil {
		name = *req.Name
	}
	productType := product.ProductType
	if req.ProductType != nil {
		productType = *req.ProductType
	}
	if err := product.Update(name, productType); err != nil {
		return nil, err
	}

	if req.DefaultPrice != nil {
		if err := product.SetDefaultPrice(*req.DefaultPrice); err != nil {
			return nil, err
		}
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	return ToProductResponse(product), nil
}

// Get returns one product by ID
func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToProductResponse(product), nil
}

// GetBySKU returns one product by SKU
func (s *ProductService) GetBySKU(ctx context.Context, sku string) (*ProductResponse, error) {
	product, err := s.products.FindBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	return ToProductResponse(product), nil
}

// List returns a page of products
func (s *ProductService) List(ctx context.Context, limit, offset int) ([]*ProductResponse, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	products, err := s.products.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return ToProductResponses(products), nil
}

// Discontinue marks a product as discontinued
func (s *ProductService) Discontinue(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	product.Discontinue()
	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	return ToProductResponse(product), nil
}

// Delete removes a product
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.products.FindByID(ctx, id); err != nil {
		return err
	}
	return s.products.Delete(ctx, id)
}
