package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderhub/backend/internal/domain/shared"
)

type stubMirror struct {
	size string
	err  error
}

func (m *stubMirror) FetchSize(_ context.Context, _, _ string) (string, error) {
	return m.size, m.err
}

func seedReference(t *testing.T, repo *fakeReferenceRepo, brand, device, size string) {
	t.Helper()
	entry, err := NewReferenceEntry(brand, device, size)
	require.NoError(t, err)
	_, err = repo.Upsert(context.Background(), entry)
	require.NoError(t, err)
}

func TestReferenceLookup_SizeFor(t *testing.T) {
	ctx := context.Background()

	t.Run("exact normalized key", func(t *testing.T) {
		repo := &fakeReferenceRepo{}
		seedReference(t, repo, "iPhone", "iPhone 14 Pro", "i6s")

		size, err := NewReferenceLookup(repo, nil).SizeFor(ctx, "iPhone", "iphone14pro")
		require.NoError(t, err)
		assert.Equal(t, "i6s", size)
	})

	t.Run("device fragment fallback", func(t *testing.T) {
		repo := &fakeReferenceRepo{}
		seedReference(t, repo, "AQUOS", "AQUOS wish4 SH-52E", "L")

		size, err := NewReferenceLookup(repo, nil).SizeFor(ctx, "AQUOS", "wish4")
		require.NoError(t, err)
		assert.Equal(t, "L", size)
	})

	t.Run("brand-stripped variant fallback", func(t *testing.T) {
		repo := &fakeReferenceRepo{}
		seedReference(t, repo, "Galaxy", "A54 5G", "M")

		size, err := NewReferenceLookup(repo, nil).SizeFor(ctx, "Galaxy", "Galaxy A54 5G")
		require.NoError(t, err)
		assert.Equal(t, "M", size)
	})

	t.Run("empty store degrades to not found", func(t *testing.T) {
		_, err := NewReferenceLookup(&fakeReferenceRepo{}, nil).SizeFor(ctx, "iPhone", "iPhone 99")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("mirror answers after local misses", func(t *testing.T) {
		lookup := NewReferenceLookup(&fakeReferenceRepo{}, &stubMirror{size: "LL"})

		size, err := lookup.SizeFor(ctx, "Xperia", "Xperia 10 V")
		require.NoError(t, err)
		assert.Equal(t, "LL", size)
	})

	t.Run("mirror failure is not found, never an error", func(t *testing.T) {
		lookup := NewReferenceLookup(&fakeReferenceRepo{}, &stubMirror{err: errors.New("timeout")})

		_, err := lookup.SizeFor(ctx, "Xperia", "Xperia 10 V")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("blank inputs are not found", func(t *testing.T) {
		lookup := NewReferenceLookup(&fakeReferenceRepo{}, nil)
		_, err := lookup.SizeFor(ctx, "", "iPhone 14")
		assert.ErrorIs(t, err, shared.ErrNotFound)
		_, err = lookup.SizeFor(ctx, "iPhone", "")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
