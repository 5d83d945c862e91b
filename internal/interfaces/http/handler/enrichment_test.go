package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	enrichmentapp "github.com/orderhub/backend/internal/application/enrichment"
	"github.com/orderhub/backend/internal/domain/matching"
	"github.com/orderhub/backend/internal/domain/pricing"
	"github.com/orderhub/backend/internal/domain/shared"
	"github.com/orderhub/backend/internal/infrastructure/cache"
	"github.com/orderhub/backend/internal/interfaces/http/dto"
)

type stubPatternRepo struct{}

func (stubPatternRepo) Upsert(ctx context.Context, p *matching.LearnedPattern) (*matching.LearnedPattern, error) {
	return p, nil
}
func (stubPatternRepo) RecordUse(ctx context.Context, id uuid.UUID) error { return nil }
func (stubPatternRepo) FindByID(ctx context.Context, id uuid.UUID) (*matching.LearnedPattern, error) {
	return nil, shared.ErrNotFound
}
func (stubPatternRepo) FindByKind(ctx context.Context, kind matching.TargetKind) ([]*matching.LearnedPattern, error) {
	return nil, nil
}
func (stubPatternRepo) FindByKindAndValue(ctx context.Context, kind matching.TargetKind, value string) ([]*matching.LearnedPattern, error) {
	return nil, nil
}
func (stubPatternRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }
func (stubPatternRepo) Statistics(ctx context.Context, kind matching.TargetKind) (*matching.PatternStatistics, error) {
	return &matching.PatternStatistics{}, nil
}

type stubRuleRepo struct{}

func (stubRuleRepo) Save(ctx context.Context, rule *pricing.PricingRule) error   { return nil }
func (stubRuleRepo) Update(ctx context.Context, rule *pricing.PricingRule) error { return nil }
func (stubRuleRepo) Delete(ctx context.Context, id uuid.UUID) error              { return nil }
func (stubRuleRepo) FindByID(ctx context.Context, id uuid.UUID) (*pricing.PricingRule, error) {
	return nil, shared.ErrNotFound
}
func (stubRuleRepo) FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]*pricing.PricingRule, error) {
	return nil, nil
}
func (stubRuleRepo) FindApplicableProductRules(ctx context.Context, customerID, productID uuid.UUID, qty int, orderDate time.Time) ([]*pricing.PricingRule, error) {
	return nil, nil
}
func (stubRuleRepo) FindApplicableKeywordRules(ctx context.Context, customerID uuid.UUID, productType string, qty int, orderDate time.Time) ([]*pricing.PricingRule, error) {
	return nil, nil
}
func (stubRuleRepo) ExistsKeywordRule(ctx context.Context, customerID uuid.UUID, keyword string) (bool, error) {
	return false, nil
}

func newEnrichmentTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	designs := &memDesignRepo{}
	entry, err := matching.NewDesignEntry("betty-101", "手帳型ケース")
	require.NoError(t, err)
	designs.entries = append(designs.entries, entry)

	resolver := matching.NewResolver(
		matching.NewPredictor(stubPatternRepo{}),
		matching.DefaultStrategyRegistry(),
		matching.NewReferenceLookup(&memReferenceRepo{}, nil),
		designs,
		matching.DefaultResolverOptions(),
	)

	service := enrichmentapp.NewService(
		resolver,
		stubPatternRepo{},
		nil,
		pricing.NewResolver(stubRuleRepo{}),
		nil,
		zap.NewNop(),
		enrichmentapp.DefaultOptions(),
	)

	submissions := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = submissions.Close() })

	engine := gin.New()
	api := engine.Group("/api/v1")
	NewEnrichmentHandler(service, submissions).RegisterRoutes(api)
	return engine
}

func resolveRowBody(customerID uuid.UUID) string {
	payload := map[string]any{
		"customer_id": customerID.String(),
		"row": map[string]string{
			"商品名":  "手帳型カバー/mirror(刺繍風)_i6",
			"選択肢":  "機種【iPhone】:iPhone 15 Pro[i6s]",
			"商品番号": "betty-101",
			"数量":   "2",
			"単価":   "¥1,200",
			"注文日":  "2026-08-01",
		},
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func TestEnrichmentHandler_ResolveRow(t *testing.T) {
	engine := newEnrichmentTestRouter(t)
	customerID := uuid.New()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/enrichment/rows/resolve", strings.NewReader(resolveRowBody(customerID)))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                      `json:"success"`
		Data    *enrichmentapp.EnrichedRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Equal(t, "iPhone 15 Pro", resp.Data.Device.Value)
	assert.Equal(t, "i6s", resp.Data.Size.Value)
	assert.Equal(t, "手帳型ケース", resp.Data.ProductType.Value)
	require.NotNil(t, resp.Data.Quote)
	assert.Equal(t, 2, resp.Data.Quantity)
}

func TestEnrichmentHandler_ResolveRow_Unpriceable(t *testing.T) {
	engine := newEnrichmentTestRouter(t)

	payload := map[string]any{
		"customer_id": uuid.New().String(),
		"row": map[string]string{
			"商品名": "手帳型カバー/mirror(刺繍風)_i6",
			"数量":  "2",
		},
	}
	b, _ := json.Marshal(payload)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/enrichment/rows/resolve", strings.NewReader(string(b)))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeUnpriceable, resp.Error.Code)
}

func TestEnrichmentHandler_ResolveRow_InvalidBody(t *testing.T) {
	engine := newEnrichmentTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/enrichment/rows/resolve", strings.NewReader(`{"customer_id":"not-a-uuid"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrichmentHandler_ResolveBatch(t *testing.T) {
	engine := newEnrichmentTestRouter(t)
	customerID := uuid.New()

	payload := map[string]any{
		"customer_id": customerID.String(),
		"rows": []map[string]string{
			{
				"商品名":  "手帳型カバー/mirror(刺繍風)_i6",
				"選択肢":  "機種【iPhone】:iPhone 15 Pro[i6s]",
				"商品番号": "betty-101",
				"数量":   "2",
				"単価":   "¥1,200",
			},
			{
				"商品名": "手帳型カバー/rose(ローズ柄)",
				"数量":  "1",
			},
		},
	}
	b, _ := json.Marshal(payload)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/enrichment/batches/resolve", strings.NewReader(string(b)))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool           `json:"success"`
		Data    *BatchResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data)
	assert.Equal(t, 2, resp.Data.TotalRows)
	assert.Equal(t, 1, resp.Data.PricedRows)
	assert.NotEmpty(t, resp.Data.Errors)
}

func TestEnrichmentHandler_ResolveBatch_IdempotencyKey(t *testing.T) {
	engine := newEnrichmentTestRouter(t)
	customerID := uuid.New()

	payload := map[string]any{
		"customer_id": customerID.String(),
		"rows": []map[string]string{
			{
				"商品名":  "手帳型カバー/mirror(刺繍風)_i6",
				"選択肢":  "機種【iPhone】:iPhone 15 Pro[i6s]",
				"商品番号": "betty-101",
				"数量":   "1",
				"単価":   "¥1,200",
			},
		},
	}
	b, _ := json.Marshal(payload)

	send := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/enrichment/batches/resolve", strings.NewReader(string(b)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "batch-2026-08-31-01")
		engine.ServeHTTP(w, req)
		return w
	}

	first := send()
	require.Equal(t, http.StatusOK, first.Code)

	second := send()
	assert.Equal(t, http.StatusConflict, second.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeDuplicateSubmission, resp.Error.Code)
}
