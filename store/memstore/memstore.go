// Package memstore is an in-memory core.Store. It backs the tests and the
// server when no database is configured.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/storefront/go-storefront/core"
)

var (
	_ core.Store      = (*MemoryStore)(nil)
	_ core.Transactor = (*MemoryStore)(nil)
)

// MemoryStore implements core.Store with in-memory storage.
type MemoryStore struct {
	mu            sync.RWMutex
	articles      map[int64]core.Article
	categories    map[string]core.Category
	subcategories map[string]core.Subcategory
	lines         map[string]core.CartLine
	order         []string // line uuids in insertion order
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		articles:      make(map[int64]core.Article),
		categories:    make(map[string]core.Category),
		subcategories: make(map[string]core.Subcategory),
		lines:         make(map[string]core.CartLine),
	}
}

// PutArticle inserts or replaces an article.
func (s *MemoryStore) PutArticle(a core.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles[a.SKU] = a
}

// DeleteArticle removes an article. Cart lines referencing it are kept.
func (s *MemoryStore) DeleteArticle(sku int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.articles, sku)
}

// PutCategory inserts or replaces a root category.
func (s *MemoryStore) PutCategory(c core.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.UUID] = c
}

// PutSubcategory inserts or replaces a subcategory.
func (s *MemoryStore) PutSubcategory(sc core.Subcategory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subcategories[sc.UUID] = sc
}

func (s *MemoryStore) CountFiltered(ctx context.Context, filter core.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().CountFiltered(ctx, filter)
}

func (s *MemoryStore) ListFiltered(ctx context.Context, filter core.Filter, offset, limit int) ([]core.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().ListFiltered(ctx, filter, offset, limit)
}

func (s *MemoryStore) FindStock(ctx context.Context, sku int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().FindStock(ctx, sku)
}

func (s *MemoryStore) FindLine(ctx context.Context, email string, sku int64) (*core.CartLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().FindLine(ctx, email, sku)
}

func (s *MemoryStore) FindArticle(ctx context.Context, sku int64) (*core.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().FindArticle(ctx, sku)
}

func (s *MemoryStore) ListCategories(ctx context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().ListCategories(ctx)
}

func (s *MemoryStore) ListSubcategories(ctx context.Context, categoryUUID string) ([]core.Subcategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().ListSubcategories(ctx, categoryUUID)
}

func (s *MemoryStore) ListLines(ctx context.Context, email string) ([]core.CartLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().ListLines(ctx, email)
}

func (s *MemoryStore) SaveLine(ctx context.Context, line *core.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().SaveLine(ctx, line)
}

func (s *MemoryStore) DeleteLine(ctx context.Context, email, uuid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().DeleteLine(ctx, email, uuid)
}

// InTx runs fn while holding the write lock. Line changes made by fn are
// discarded when it returns an error.
func (s *MemoryStore) InTx(ctx context.Context, fn func(core.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make(map[string]core.CartLine, len(s.lines))
	for k, v := range s.lines {
		lines[k] = v
	}
	order := append([]string(nil), s.order...)

	if err := fn(s.view()); err != nil {
		s.lines = lines
		s.order = order
		return err
	}
	return nil
}

func (s *MemoryStore) view() *unlocked { return (*unlocked)(s) }

// unlocked implements core.Store on the store's maps without locking. The
// caller holds s.mu.
type unlocked MemoryStore

func (u *unlocked) matches(a core.Article, f core.Filter) bool {
	if f.SubcategoryUUID != "" && a.SubcategoryUUID != f.SubcategoryUUID {
		return false
	}
	if f.CategoryUUID != "" && u.subcategories[a.SubcategoryUUID].CategoryUUID != f.CategoryUUID {
		return false
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(a.Title), strings.ToLower(f.Query)) {
		return false
	}
	return true
}

func (u *unlocked) filtered(f core.Filter) []core.Article {
	f = f.Normalize()
	var out []core.Article
	for _, a := range u.articles {
		if u.matches(a, f) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

func (u *unlocked) CountFiltered(_ context.Context, filter core.Filter) (int, error) {
	return len(u.filtered(filter)), nil
}

func (u *unlocked) ListFiltered(_ context.Context, filter core.Filter, offset, limit int) ([]core.Article, error) {
	all := u.filtered(filter)
	if offset < 0 || offset >= len(all) || limit <= 0 {
		return []core.Article{}, nil
	}
	end := min(offset+limit, len(all))
	return append([]core.Article(nil), all[offset:end]...), nil
}

func (u *unlocked) FindStock(_ context.Context, sku int64) (int64, error) {
	a, ok := u.articles[sku]
	if !ok {
		return 0, core.NewNotFoundError(fmt.Sprintf("article %d not found", sku), nil)
	}
	return a.Stock, nil
}

func (u *unlocked) FindArticle(_ context.Context, sku int64) (*core.Article, error) {
	a, ok := u.articles[sku]
	if !ok {
		return nil, core.NewNotFoundError(fmt.Sprintf("article %d not found", sku), nil)
	}
	return &a, nil
}

func (u *unlocked) ListCategories(context.Context) ([]core.Category, error) {
	out := make([]core.Category, 0, len(u.categories))
	for _, c := range u.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].UUID < out[j].UUID
	})
	return out, nil
}

func (u *unlocked) ListSubcategories(_ context.Context, categoryUUID string) ([]core.Subcategory, error) {
	if _, ok := u.categories[categoryUUID]; !ok {
		return nil, core.NewNotFoundError(fmt.Sprintf("category %q not found", categoryUUID), nil)
	}
	out := []core.Subcategory{}
	for _, sc := range u.subcategories {
		if sc.CategoryUUID == categoryUUID {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].UUID < out[j].UUID
	})
	return out, nil
}

func (u *unlocked) FindLine(_ context.Context, email string, sku int64) (*core.CartLine, error) {
	for _, id := range u.order {
		l := u.lines[id]
		if l.Email == email && l.ArticleSKU == sku {
			return &l, nil
		}
	}
	return nil, core.NewNotFoundError(fmt.Sprintf("no cart line for article %d", sku), nil)
}

func (u *unlocked) ListLines(_ context.Context, email string) ([]core.CartLine, error) {
	out := []core.CartLine{}
	for _, id := range u.order {
		if l := u.lines[id]; l.Email == email {
			out = append(out, l)
		}
	}
	return out, nil
}

// SaveLine only ever changes the amount of an existing line.
func (u *unlocked) SaveLine(_ context.Context, line *core.CartLine) error {
	if line == nil || line.UUID == "" {
		return fmt.Errorf("cart line must have a uuid")
	}
	if held, exists := u.lines[line.UUID]; exists {
		if held.Email != line.Email || held.ArticleSKU != line.ArticleSKU {
			return fmt.Errorf("line %s belongs to article %d: %w", line.UUID, held.ArticleSKU, core.ErrLineConflict)
		}
		held.Amount = line.Amount
		u.lines[line.UUID] = held
		return nil
	}
	for _, l := range u.lines {
		if l.Email == line.Email && l.ArticleSKU == line.ArticleSKU {
			return fmt.Errorf("article %d already has line %s: %w", line.ArticleSKU, l.UUID, core.ErrLineConflict)
		}
	}
	u.order = append(u.order, line.UUID)
	u.lines[line.UUID] = *line
	return nil
}

func (u *unlocked) DeleteLine(_ context.Context, email, uuid string) error {
	l, ok := u.lines[uuid]
	if !ok || l.Email != email {
		return nil
	}
	delete(u.lines, uuid)
	for i, id := range u.order {
		if id == uuid {
			u.order = append(u.order[:i], u.order[i+1:]...)
			break
		}
	}
	return nil
}
