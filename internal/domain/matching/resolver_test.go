package matching

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderhub/backend/internal/domain/shared"
)

type fakeReferenceRepo struct {
	entries []*ReferenceEntry
}

func (f *fakeReferenceRepo) Upsert(_ context.Context, entry *ReferenceEntry) (*ReferenceEntry, error) {
	for _, e := range f.entries {
		if e.Brand == entry.Brand && e.NormalizedKey == entry.NormalizedKey {
			e.DeviceName = entry.DeviceName
			e.SizeCategory = entry.SizeCategory
			return e, nil
		}
	}
	f.entries = append(f.entries, entry)
	return entry, nil
}

func (f *fakeReferenceRepo) FindByKey(_ context.Context, brand, key string) (*ReferenceEntry, error) {
	for _, e := range f.entries {
		if e.Brand == brand && e.NormalizedKey == key {
			return e, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeReferenceRepo) FindByDeviceFragment(_ context.Context, brand, fragment string) (*ReferenceEntry, error) {
	lower := strings.ToLower(fragment)
	for _, e := range f.entries {
		if e.Brand == brand && strings.Contains(strings.ToLower(e.DeviceName), lower) {
			return e, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeReferenceRepo) List(_ context.Context, brand string) ([]*ReferenceEntry, error) {
	if brand == "" {
		return f.entries, nil
	}
	var out []*ReferenceEntry
	for _, e := range f.entries {
		if e.Brand == brand {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeReferenceRepo) Delete(_ context.Context, id uuid.UUID) error {
	for i, e := range f.entries {
		if e.ID == id {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

var _ ReferenceRepository = (*fakeReferenceRepo)(nil)

type fakeDesignRepo struct {
	entries map[string]string
}

func (f *fakeDesignRepo) Upsert(_ context.Context, entry *DesignEntry) (*DesignEntry, error) {
	if f.entries == nil {
		f.entries = map[string]string{}
	}
	f.entries[entry.DesignNo] = entry.ProductType
	return entry, nil
}

func (f *fakeDesignRepo) FindByDesignNo(_ context.Context, designNo string) (*DesignEntry, error) {
	if pt, ok := f.entries[designNo]; ok {
		return &DesignEntry{DesignNo: designNo, ProductType: pt}, nil
	}
	return nil, shared.ErrNotFound
}

func (f *fakeDesignRepo) List(_ context.Context) ([]*DesignEntry, error) {
	var out []*DesignEntry
	for no, pt := range f.entries {
		out = append(out, &DesignEntry{DesignNo: no, ProductType: pt})
	}
	return out, nil
}

func (f *fakeDesignRepo) Delete(_ context.Context, _ uuid.UUID) error { return shared.ErrNotFound }

var _ DesignRepository = (*fakeDesignRepo)(nil)

func newTestResolver(patterns *fakePatternRepo, refs *fakeReferenceRepo, designs *fakeDesignRepo) *Resolver {
	var designRepo DesignRepository
	if designs != nil {
		designRepo = designs
	}
	return NewResolver(
		NewPredictor(patterns),
		DefaultStrategyRegistry(),
		NewReferenceLookup(refs, nil),
		designRepo,
		DefaultResolverOptions(),
	)
}

func TestResolver_ResolveDevice(t *testing.T) {
	ctx := context.Background()

	t.Run("option column wins via pattern tier", func(t *testing.T) {
		r := newTestResolver(&fakePatternRepo{}, &fakeReferenceRepo{}, nil)
		row := Row{
			"商品名":     "手帳型カバー/rose",
			"項目選択肢内容": "機種【iPhone】:iPhone 15 Pro[i6s]",
		}

		res, err := r.ResolveDevice(ctx, row)
		require.NoError(t, err)
		assert.Equal(t, "iPhone 15 Pro", res.Value)
		assert.Equal(t, "iPhone", res.Brand)
		assert.Equal(t, MethodPattern, res.Method)
		assert.Equal(t, StrategyRakutenOption, res.Strategy)
		assert.InDelta(t, 0.8, res.Confidence, 1e-9)
	})

	t.Run("unselected option markers are ignored", func(t *testing.T) {
		r := newTestResolver(&fakePatternRepo{}, &fakeReferenceRepo{}, nil)
		row := Row{"項目選択肢内容": "機種【iPhone】:▼未選択"}

		res, err := r.ResolveDevice(ctx, row)
		require.NoError(t, err)
		assert.Equal(t, MethodNone, res.Method)
		assert.False(t, res.Resolved())
	})

	t.Run("learned tier shadows pattern tier", func(t *testing.T) {
		patterns := &fakePatternRepo{}
		_, err := patterns.Upsert(ctx, mustPattern(t, TargetDevice, "スマQ復刻", "iPhone 14 Pro", SourceManual))
		require.NoError(t, err)

		r := newTestResolver(patterns, &fakeReferenceRepo{}, nil)
		row := Row{
			"商品名":     "スマQ復刻 ケース",
			"項目選択肢内容": "機種【iPhone】:iPhone 15 Pro[i6s]",
		}

		res, err := r.ResolveDevice(ctx, row)
		require.NoError(t, err)
		assert.Equal(t, "iPhone 14 Pro", res.Value)
		assert.Equal(t, MethodLearned, res.Method)
		assert.GreaterOrEqual(t, res.Confidence, ManualInitialConfidence)
	})

	t.Run("learned hit below floor falls to pattern tier", func(t *testing.T) {
		patterns := &fakePatternRepo{}
		weak := mustPattern(t, TargetDevice, "スマQ復刻", "iPhone 12", SourceAuto)
		weak.Confidence = 0.3
		_, err := patterns.Upsert(ctx, weak)
		require.NoError(t, err)

		r := newTestResolver(patterns, &fakeReferenceRepo{}, nil)
		row := Row{"商品名": "スマQ復刻 iPhone 14 ケース"}

		res, err := r.ResolveDevice(ctx, row)
		require.NoError(t, err)
		assert.Equal(t, MethodPattern, res.Method)
		assert.Equal(t, "iPhone 14", res.Value)
	})

	t.Run("dedicated device column scan", func(t *testing.T) {
		r := newTestResolver(&fakePatternRepo{}, &fakeReferenceRepo{}, nil)
		row := Row{"対応機種": "Galaxy A54 5G", "商品名": "手帳型カバー"}

		res, err := r.ResolveDevice(ctx, row)
		require.NoError(t, err)
		assert.Equal(t, "Galaxy A54", res.Value)
		assert.Equal(t, "Galaxy", res.Brand)
		assert.Equal(t, "対応機種", res.Column)
	})

	t.Run("product name keyword scan with kana spelling", func(t *testing.T) {
		r := newTestResolver(&fakePatternRepo{}, &fakeReferenceRepo{}, nil)
		row := Row{"商品名": "スマQ いphone14Pro 対応 ケース"}

		res, err := r.ResolveDevice(ctx, row)
		require.NoError(t, err)
		assert.Equal(t, MethodPattern, res.Method)
		assert.Equal(t, "iphone14Pro", res.Value)
		assert.Equal(t, "iPhone", res.Brand)
	})

	t.Run("remaining columns scanned last", func(t *testing.T) {
		r := newTestResolver(&fakePatternRepo{}, &fakeReferenceRepo{}, nil)
		row := Row{"商品名": "手帳型カバー", "備考": "SO-51C 用です"}

		res, err := r.ResolveDevice(ctx, row)
		require.NoError(t, err)
		assert.Equal(t, "Xperia SO-51C", res.Value)
		assert.Equal(t, "備考", res.Column)
	})

	t.Run("nothing resolves", func(t *testing.T) {
		r := newTestResolver(&fakePatternRepo{}, &fakeReferenceRepo{}, nil)
		row := Row{"商品名": "手帳型カバー 人気柄"}

		res, err := r.ResolveDevice(ctx, row)
		require.NoError(t, err)
		assert.Equal(t, MethodNone, res.Method)
		assert.False(t, res.Resolved())
		assert.NotEmpty(t, res.Note)
	})
}

func TestResolver_ResolveSize(t *testing.T) {
	ctx := context.Background()

	t.Run("hard case is not applicable", func(t *testing.T) {
		r := newTestResolver(&fakePatternRepo{}, &fakeReferenceRepo{}, nil)
		row := Row{"商品名": "ハードケース/wish4_特特大"}

		res, err := r.ResolveSize(ctx, row, "AQUOS wish4", "AQUOS", "ハードケース")
		require.NoError(t, err)
		assert.True(t, res.NotApplicable)
		assert.True(t, res.Resolved())
		assert.Empty(t, res.Value)
	})

	t.Run("option column size", func(t *testing.T) {
		r := newTestResolver(&fakePatternRepo{}, &fakeReferenceRepo{}, nil)
		row := Row{
			"商品名":     "手帳型カバー/rose",
			"項目選択肢内容": "機種【iPhone】:iPhone 15 Pro[i6s]",
		}

		res, err := r.ResolveSize(ctx, row, "iPhone 15 Pro", "iPhone", "手帳型カバー")
		require.NoError(t, err)
		assert.Equal(t, "i6s", res.Value)
		assert.Equal(t, MethodPattern, res.Method)
	})

	t.Run("size token in product name", func(t *testing.T) {
		r := newTestResolver(&fakePatternRepo{}, &fakeReferenceRepo{}, nil)
		row := Row{"商品名": "手帳型カバー/iPhone 8(mirror)_i6"}

		res, err := r.ResolveSize(ctx, row, "iPhone 8", "iPhone", "手帳型カバー")
		require.NoError(t, err)
		assert.Equal(t, "i6", res.Value)
		assert.Equal(t, "size_token", res.Strategy)
	})

	t.Run("reference master fallback", func(t *testing.T) {
		refs := &fakeReferenceRepo{}
		entry, err := NewReferenceEntry("AQUOS", "AQUOS wish4", "L")
		require.NoError(t, err)
		_, err = refs.Upsert(ctx, entry)
		require.NoError(t, err)

		r := newTestResolver(&fakePatternRepo{}, refs, nil)
		row := Row{"商品名": "手帳型カバー/AQUOS wish4"}

		res, err := r.ResolveSize(ctx, row, "AQUOS wish4", "AQUOS", "手帳型カバー")
		require.NoError(t, err)
		assert.Equal(t, "L", res.Value)
		assert.Equal(t, MethodReference, res.Method)
	})

	t.Run("learned size with device scope", func(t *testing.T) {
		patterns := &fakePatternRepo{}
		scoped := mustPattern(t, TargetSize, "手帳型カバー/wish", "3L", SourceManual)
		scoped.DeviceName = "AQUOS wish4"
		_, err := patterns.Upsert(ctx, scoped)
		require.NoError(t, err)

		r := newTestResolver(patterns, &fakeReferenceRepo{}, nil)
		row := Row{"商品名": "手帳型カバー/wish4 黒"}

		res, err := r.ResolveSize(ctx, row, "AQUOS wish4", "AQUOS", "手帳型カバー")
		require.NoError(t, err)
		assert.Equal(t, "3L", res.Value)
		assert.Equal(t, MethodLearned, res.Method)
	})

	t.Run("unresolved size", func(t *testing.T) {
		r := newTestResolver(&fakePatternRepo{}, &fakeReferenceRepo{}, nil)
		row := Row{"商品名": "手帳型カバー/AQUOS wish4"}

		res, err := r.ResolveSize(ctx, row, "AQUOS wish4", "AQUOS", "手帳型カバー")
		require.NoError(t, err)
		assert.Equal(t, MethodNone, res.Method)
		assert.False(t, res.Resolved())
		assert.False(t, res.NotApplicable)
	})
}

func TestResolver_ResolveProductType(t *testing.T) {
	ctx := context.Background()

	t.Run("correction then learned on a sibling row", func(t *testing.T) {
		patterns := &fakePatternRepo{}
		_, err := patterns.Upsert(ctx, mustPattern(t, TargetProductType, "手帳型カバー", "手帳型カバー", SourceManual))
		require.NoError(t, err)

		r := newTestResolver(patterns, &fakeReferenceRepo{}, nil)
		row := Row{"商品名": "手帳型カバー/rose(ローズ柄)"}

		res, err := r.ResolveProductType(ctx, row)
		require.NoError(t, err)
		assert.Equal(t, "手帳型カバー", res.Value)
		assert.Equal(t, MethodLearned, res.Method)
	})

	t.Run("design master by design number", func(t *testing.T) {
		designs := &fakeDesignRepo{}
		entry, err := NewDesignEntry("betty-001-lec-bu", "手帳型カバー")
		require.NoError(t, err)
		_, err = designs.Upsert(ctx, entry)
		require.NoError(t, err)

		r := newTestResolver(&fakePatternRepo{}, &fakeReferenceRepo{}, designs)
		row := Row{"商品名": "betty-001-lec-bu スマホケース"}

		res, err := r.ResolveProductType(ctx, row)
		require.NoError(t, err)
		assert.Equal(t, "手帳型カバー", res.Value)
		assert.Equal(t, MethodReference, res.Method)
	})

	t.Run("design master by sku", func(t *testing.T) {
		designs := &fakeDesignRepo{}
		entry, err := NewDesignEntry("JP1234", "ハードケース")
		require.NoError(t, err)
		_, err = designs.Upsert(ctx, entry)
		require.NoError(t, err)

		r := newTestResolver(&fakePatternRepo{}, &fakeReferenceRepo{}, designs)
		row := Row{"商品名": "スマホケース", "商品番号": "JP1234"}

		res, err := r.ResolveProductType(ctx, row)
		require.NoError(t, err)
		assert.Equal(t, "ハードケース", res.Value)
		assert.Equal(t, "design_master:sku", res.Strategy)
	})

	t.Run("unresolved without design master", func(t *testing.T) {
		r := newTestResolver(&fakePatternRepo{}, &fakeReferenceRepo{}, nil)
		row := Row{"商品名": "すてきなスマホケース"}

		res, err := r.ResolveProductType(ctx, row)
		require.NoError(t, err)
		assert.Equal(t, MethodNone, res.Method)
	})
}
