package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/go-storefront/core"
)

// mockRepository serves a fixed number of articles and records queries.
type mockRepository struct {
	total      int
	countErr   error
	listErr    error
	listCalls  int
	lastFilter core.Filter
	lastOffset int
	lastLimit  int
}

func (m *mockRepository) CountFiltered(_ context.Context, filter core.Filter) (int, error) {
	m.lastFilter = filter
	return m.total, m.countErr
}

func (m *mockRepository) ListFiltered(_ context.Context, filter core.Filter, offset, limit int) ([]core.Article, error) {
	m.listCalls++
	m.lastOffset, m.lastLimit = offset, limit
	if m.listErr != nil {
		return nil, m.listErr
	}
	articles := make([]core.Article, 0, limit)
	for i := offset; i < offset+limit && i < m.total; i++ {
		articles = append(articles, core.Article{SKU: int64(i + 1), Title: fmt.Sprintf("article %d", i+1)})
	}
	return articles, nil
}

func (m *mockRepository) FindStock(context.Context, int64) (int64, error) {
	return 0, core.ErrNotFound
}

func (m *mockRepository) FindLine(context.Context, string, int64) (*core.CartLine, error) {
	return nil, core.ErrNotFound
}

func TestNewLister(t *testing.T) {
	t.Run("requires a repository", func(t *testing.T) {
		_, err := NewLister(nil)
		assert.ErrorContains(t, err, "repository is required")
	})

	t.Run("rejects invalid options", func(t *testing.T) {
		_, err := NewLister(&mockRepository{}, WithPageSize(0))
		assert.ErrorContains(t, err, "page size must be positive")

		_, err = NewLister(&mockRepository{}, WithNeighborCount(-1))
		assert.ErrorContains(t, err, "neighbor count cannot be negative")
	})
}

func TestLister_List(t *testing.T) {
	ctx := context.Background()

	t.Run("second page of 25 articles", func(t *testing.T) {
		repo := &mockRepository{total: 25}
		lister, err := NewLister(repo)
		require.NoError(t, err)

		listing, err := lister.List(ctx, core.Filter{Query: " shirt "}, "2")
		require.NoError(t, err)

		assert.Equal(t, core.Filter{Query: "shirt"}, repo.lastFilter)
		assert.Equal(t, 12, repo.lastOffset)
		assert.Equal(t, 12, repo.lastLimit)
		assert.Len(t, listing.Articles, 12)
		assert.Equal(t, int64(13), listing.Articles[0].SKU)
		assert.Equal(t, 3, listing.Window.PageCount)
		assert.True(t, listing.Window.HasPrev)
		assert.True(t, listing.Window.HasNext)
		assert.Equal(t, []int{2}, listing.Neighbors)
	})

	t.Run("malformed page falls back to the first page", func(t *testing.T) {
		repo := &mockRepository{total: 25}
		lister, err := NewLister(repo)
		require.NoError(t, err)

		listing, err := lister.List(ctx, core.Filter{}, "abc")
		require.NoError(t, err)

		assert.Equal(t, 1, listing.Window.Page)
		assert.Equal(t, 0, repo.lastOffset)
	})

	t.Run("page past the end does not query the store", func(t *testing.T) {
		repo := &mockRepository{total: 25}
		lister, err := NewLister(repo)
		require.NoError(t, err)

		listing, err := lister.List(ctx, core.Filter{}, "7")
		require.NoError(t, err)

		assert.Empty(t, listing.Articles)
		assert.NotNil(t, listing.Articles)
		assert.Equal(t, 0, repo.listCalls)
	})

	t.Run("custom page size", func(t *testing.T) {
		repo := &mockRepository{total: 25}
		lister, err := NewLister(repo, WithPageSize(5), WithNeighborCount(2))
		require.NoError(t, err)

		listing, err := lister.List(ctx, core.Filter{}, "3")
		require.NoError(t, err)

		assert.Equal(t, 5, listing.Window.PageCount)
		assert.Equal(t, 10, repo.lastOffset)
		assert.Equal(t, []int{2, 3}, listing.Neighbors)
	})

	t.Run("store failures are surfaced", func(t *testing.T) {
		boom := errors.New("connection refused")

		lister, err := NewLister(&mockRepository{countErr: boom})
		require.NoError(t, err)
		_, err = lister.List(ctx, core.Filter{}, "1")
		assert.ErrorIs(t, err, boom)

		lister, err = NewLister(&mockRepository{total: 3, listErr: boom})
		require.NoError(t, err)
		_, err = lister.List(ctx, core.Filter{}, "1")
		assert.ErrorIs(t, err, boom)
	})
}
