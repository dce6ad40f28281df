package core

import "context"

// Repository is the catalog capability consumed by the storefront core.
// Lookups of a missing sku or cart line return an error matching ErrNotFound
// so that "no rows" is never conflated with a failed query.
type Repository interface {
	CountFiltered(ctx context.Context, filter Filter) (int, error)
	ListFiltered(ctx context.Context, filter Filter, offset, limit int) ([]Article, error)
	FindStock(ctx context.Context, sku int64) (int64, error)
	FindLine(ctx context.Context, email string, sku int64) (*CartLine, error)
}

// Store extends Repository with the cart writes, category navigation and
// lookups used by the cart service and the HTTP API.
type Store interface {
	Repository

	FindArticle(ctx context.Context, sku int64) (*Article, error)
	// ListCategories returns every root category ordered by title.
	ListCategories(ctx context.Context) ([]Category, error)
	// ListSubcategories returns the subcategories of a root category ordered
	// by title. An unknown category is ErrNotFound.
	ListSubcategories(ctx context.Context, categoryUUID string) ([]Subcategory, error)
	ListLines(ctx context.Context, email string) ([]CartLine, error)
	// SaveLine inserts a new line or updates the amount of an existing one.
	// A uuid owned by another (email, sku) pair, or a second line for the
	// same pair, is ErrLineConflict.
	SaveLine(ctx context.Context, line *CartLine) error
	// DeleteLine removes the line owned by email. Deleting a missing line
	// is not an error.
	DeleteLine(ctx context.Context, email, uuid string) error
}

// Transactor is implemented by stores that can run a read-modify-write
// sequence atomically. The Store passed to fn must be used for every
// operation inside the transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(Store) error) error
}
