package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/storefront/go-storefront/core"
)

// DefaultNeighborCount is the number of page numbers shown around the
// current page.
const DefaultNeighborCount = 3

// Listing is one rendered catalog page.
type Listing struct {
	Filter    core.Filter
	Window    Window
	Articles  []core.Article
	Neighbors []int
}

// Lister pages through the filtered catalog of a core.Repository.
type Lister struct {
	repo          core.Repository
	pageSize      int
	neighborCount int
	logger        core.Logger
}

// ListerOption configures the Lister.
type ListerOption func(*Lister) error

// WithPageSize overrides PageSize.
func WithPageSize(size int) ListerOption {
	return func(l *Lister) error {
		if size <= 0 {
			return errors.New("page size must be positive")
		}
		l.pageSize = size
		return nil
	}
}

// WithNeighborCount overrides DefaultNeighborCount.
func WithNeighborCount(count int) ListerOption {
	return func(l *Lister) error {
		if count < 0 {
			return errors.New("neighbor count cannot be negative")
		}
		l.neighborCount = count
		return nil
	}
}

// WithLogger sets an optional logger.
func WithLogger(logger core.Logger) ListerOption {
	return func(l *Lister) error {
		l.logger = logger
		return nil
	}
}

// NewLister returns a Lister reading from repo.
func NewLister(repo core.Repository, opts ...ListerOption) (*Lister, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}

	l := &Lister{
		repo:          repo,
		pageSize:      PageSize,
		neighborCount: DefaultNeighborCount,
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return l, nil
}

// List returns the requested page of articles matching filter. rawPage is
// parsed with ParsePage. Store failures are returned; an out-of-range page is
// not a failure.
func (l *Lister) List(ctx context.Context, filter core.Filter, rawPage string) (*Listing, error) {
	filter = filter.Normalize()
	page := ParsePage(rawPage)

	total, err := l.repo.CountFiltered(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count articles: %w", err)
	}

	window := Paginate(total, page, l.pageSize)
	listing := &Listing{
		Filter:    filter,
		Window:    window,
		Articles:  []core.Article{},
		Neighbors: NeighborWindow(total, page, l.neighborCount, l.pageSize),
	}

	if window.Empty() {
		if l.logger != nil {
			l.logger.Debug("catalog page is empty", "page", page, "total", total)
		}
		return listing, nil
	}

	articles, err := l.repo.ListFiltered(ctx, filter, window.Offset(), window.Limit())
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	listing.Articles = articles

	return listing, nil
}
