// Package reference administers the device reference master and the
// design number master backing the resolution tiers.
package reference

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orderhub/backend/internal/domain/matching"
)

// Service handles reference and design master operations
type Service struct {
	entries matching.ReferenceRepository
	designs matching.DesignRepository
	lookup  *matching.ReferenceLookup
	logger  *zap.Logger
}

// NewService creates a reference service. mirror may be nil.
func NewService(
	entries matching.ReferenceRepository,
	designs matching.DesignRepository,
	mirror matching.Mirror,
	logger *zap.Logger,
) *Service {
	return &Service{
		entries: entries,
		designs: designs,
		lookup:  matching.NewReferenceLookup(entries, mirror),
		logger:  logger,
	}
}

// UpsertEntry registers or refreshes one reference master row
func (s *Service) UpsertEntry(ctx context.Context, req UpsertEntryRequest) (*EntryResponse, error) {
	entry, err := matching.NewReferenceEntry(req.Brand, req.DeviceName, req.SizeCategory)
	if err != nil {
		return nil, err
	}

	saved, err := s.entries.Upsert(ctx, entry)
	if err != nil {
		return nil, err
	}
	return ToEntryResponse(saved), nil
}

// ImportEntries bulk-loads reference master rows. Invalid rows are
// skipped and counted; the import itself never aborts on a row.
func (s *Service) ImportEntries(ctx context.Context, req ImportEntriesRequest) (*ImportResult, error) {
	result := &ImportResult{}
	for _, item := range req.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := s.UpsertEntry(ctx, item); err != nil {
			result.Failed++
			s.logger.Warn("reference entry skipped",
				zap.String("brand", item.Brand),
				zap.String("device_name", item.DeviceName),
				zap.Error(err),
			)
			continue
		}
		result.Imported++
	}
	return result, nil
}

// ListEntries returns reference master rows, optionally brand-filtered
func (s *Service) ListEntries(ctx context.Context, brand string) ([]*EntryResponse, error) {
	entries, err := s.entries.List(ctx, brand)
	if err != nil {
		return nil, err
	}
	out := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		out[i] = ToEntryResponse(e)
	}
	return out, nil
}

// DeleteEntry removes a reference master row
func (s *Service) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	return s.entries.Delete(ctx, id)
}

// LookupSize resolves a device's size category through the lookup
// chain, including the mirror when one is configured.
func (s *Service) LookupSize(ctx context.Context, brand, deviceName string) (string, error) {
	return s.lookup.SizeFor(ctx, brand, deviceName)
}

// UpsertDesign registers or refreshes one design master row
func (s *Service) UpsertDesign(ctx context.Context, req UpsertDesignRequest) (*DesignResponse, error) {
	entry, err := matching.NewDesignEntry(req.DesignNo, req.ProductType)
	if err != nil {
		return nil, err
	}

	saved, err := s.designs.Upsert(ctx, entry)
	if err != nil {
		return nil, err
	}
	return ToDesignResponse(saved), nil
}

// ListDesigns returns every design master row
func (s *Service) ListDesigns(ctx context.Context) ([]*DesignResponse, error) {
	entries, err := s.designs.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*DesignResponse, len(entries))
	for i, e := range entries {
		out[i] = ToDesignResponse(e)
	}
	return out, nil
}

// DeleteDesign removes a design master row
func (s *Service) DeleteDesign(ctx context.Context, id uuid.UUID) error {
	return s.designs.Delete(ctx, id)
}
