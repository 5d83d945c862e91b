package reference

import (
	"time"

	"github.com/google/uuid"

	"github.com/orderhub/backend/internal/domain/matching"
)

// UpsertEntryRequest registers or refreshes one reference master row
type UpsertEntryRequest struct {
	Brand        string `json:"brand" binding:"required,min=1,max=64"`
	DeviceName   string `json:"device_name" binding:"required,min=1,max=128"`
	SizeCategory string `json:"size_category" binding:"required,min=1,max=32"`
}

// ImportEntriesRequest bulk-loads reference master rows
type ImportEntriesRequest struct {
	Entries []UpsertEntryRequest `json:"entries" binding:"required,min=1,dive"`
}

// ImportResult reports a bulk load outcome
type ImportResult struct {
	Imported int `json:"imported"`
	Failed   int `json:"failed"`
}

// EntryResponse represents a reference master row in API responses
type EntryResponse struct {
	ID            uuid.UUID `json:"id"`
	Brand         string    `json:"brand"`
	DeviceName    string    `json:"device_name"`
	NormalizedKey string    `json:"normalized_key"`
	SizeCategory  string    `json:"size_category"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToEntryResponse converts a reference entry to a response DTO
func ToEntryResponse(e *matching.ReferenceEntry) *EntryResponse {
	return &EntryResponse{
		ID:            e.ID,
		Brand:         e.Brand,
		DeviceName:    e.DeviceName,
		NormalizedKey: e.NormalizedKey,
		SizeCategory:  e.SizeCategory,
		UpdatedAt:     e.UpdatedAt,
	}
}

// UpsertDesignRequest registers or refreshes one design master row
type UpsertDesignRequest struct {
	DesignNo    string `json:"design_no" binding:"required,min=1,max=64"`
	ProductType string `json:"product_type" binding:"required,min=1,max=128"`
}

// DesignResponse represents a design master row in API responses
type DesignResponse struct {
	ID          uuid.UUID `json:"id"`
	DesignNo    string    `json:"design_no"`
	ProductType string    `json:"product_type"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToDesignResponse converts a design entry to a response DTO
func ToDesignResponse(e *matching.DesignEntry) *DesignResponse {
	return &DesignResponse{
		ID:          e.ID,
		DesignNo:    e.DesignNo,
		ProductType: e.ProductType,
		UpdatedAt:   e.UpdatedAt,
	}
}
