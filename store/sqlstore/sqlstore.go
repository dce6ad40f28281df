// Package sqlstore is a core.Store backed by a SQL database through bun.
// SQLite ("sqlite3") and PostgreSQL ("postgres") are supported.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	"github.com/storefront/go-storefront/core"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

var (
	_ core.Store      = (*Store)(nil)
	_ core.Transactor = (*Store)(nil)
)

// Store implements core.Store on a bun database. A Store returned by InTx
// is bound to the transaction.
type Store struct {
	db     bun.IDB
	root   *bun.DB
	logger core.Logger
	now    func() time.Time
}

// Option configures the Store.
type Option func(*Store) error

// WithLogger sets an optional logger.
func WithLogger(l core.Logger) Option {
	return func(s *Store) error {
		s.logger = l
		return nil
	}
}

// Open connects to dsn with driver, checks the connection and creates the
// schema when it does not exist.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	var sqlDialect schema.Dialect
	switch driver {
	case DriverSQLite:
		sqlDialect = sqlitedialect.New()
	case DriverPostgres:
		sqlDialect = pgdialect.New()
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open database: %w", err)
	}
	if driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: ping database: %w", err)
	}

	s, err := New(bun.NewDB(sqlDB, sqlDialect), opts...)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if err := s.CreateTables(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open bun database. The schema is not created.
func New(db *bun.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlstore: database is required")
	}
	s := &Store{db: db, root: db, now: time.Now}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return s, nil
}

// DB returns the underlying database.
func (s *Store) DB() *bun.DB {
	return s.root
}

// Close closes the database.
func (s *Store) Close() error {
	if s.root == nil {
		return nil
	}
	return s.root.Close()
}

// CreateTables creates the catalog and cart tables if they are missing.
func (s *Store) CreateTables(ctx context.Context) error {
	models := []any{
		(*categoryRecord)(nil),
		(*subcategoryRecord)(nil),
		(*articleRecord)(nil),
		(*cartLineRecord)(nil),
	}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("sqlstore: create table: %w", err)
		}
	}

	_, err := s.db.NewCreateIndex().
		Model((*cartLineRecord)(nil)).
		Index("cart_lines_owner_sku_idx").
		Unique().
		IfNotExists().
		Column("email", "article_sku").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sqlstore: create index: %w", err)
	}
	return nil
}

// PutCategory inserts or replaces a root category.
func (s *Store) PutCategory(ctx context.Context, c core.Category) error {
	_, err := s.db.NewInsert().
		Model(&categoryRecord{UUID: c.UUID, Title: c.Title}).
		On("CONFLICT (uuid) DO UPDATE").
		Set("title = EXCLUDED.title").
		Exec(ctx)
	return err
}

// PutSubcategory inserts or replaces a subcategory.
func (s *Store) PutSubcategory(ctx context.Context, sc core.Subcategory) error {
	_, err := s.db.NewInsert().
		Model(&subcategoryRecord{UUID: sc.UUID, CategoryUUID: sc.CategoryUUID, Title: sc.Title}).
		On("CONFLICT (uuid) DO UPDATE").
		Set("category_uuid = EXCLUDED.category_uuid").
		Set("title = EXCLUDED.title").
		Exec(ctx)
	return err
}

// PutArticle inserts or replaces an article.
func (s *Store) PutArticle(ctx context.Context, a core.Article) error {
	_, err := s.db.NewInsert().
		Model(newArticleRecord(a)).
		On("CONFLICT (sku) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("description = EXCLUDED.description").
		Set("selling_price = EXCLUDED.selling_price").
		Set("list_price = EXCLUDED.list_price").
		Set("available = EXCLUDED.available").
		Set("stock = EXCLUDED.stock").
		Set("subcategory_uuid = EXCLUDED.subcategory_uuid").
		Exec(ctx)
	return err
}

// DeleteArticle removes an article. Cart lines referencing it are kept.
func (s *Store) DeleteArticle(ctx context.Context, sku int64) error {
	_, err := s.db.NewDelete().Model((*articleRecord)(nil)).Where("sku = ?", sku).Exec(ctx)
	return err
}

func (s *Store) filtered(filter core.Filter) *bun.SelectQuery {
	f := filter.Normalize()
	q := s.db.NewSelect().Model((*articleRecord)(nil))
	if f.SubcategoryUUID != "" {
		q = q.Where("a.subcategory_uuid = ?", f.SubcategoryUUID)
	}
	if f.CategoryUUID != "" {
		q = q.Where("a.subcategory_uuid IN (?)",
			s.db.NewSelect().Model((*subcategoryRecord)(nil)).ColumnExpr("sc.uuid").Where("sc.category_uuid = ?", f.CategoryUUID))
	}
	if f.Query != "" {
		q = q.Where(`LOWER(a.title) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(f.Query))+"%")
	}
	return q
}

func (s *Store) CountFiltered(ctx context.Context, filter core.Filter) (int, error) {
	n, err := s.filtered(filter).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: count articles: %w", err)
	}
	return n, nil
}

func (s *Store) ListFiltered(ctx context.Context, filter core.Filter, offset, limit int) ([]core.Article, error) {
	if offset < 0 || limit <= 0 {
		return []core.Article{}, nil
	}

	var records []articleRecord
	err := s.filtered(filter).
		Model(&records).
		OrderExpr("a.sku ASC").
		Offset(offset).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list articles: %w", err)
	}

	out := make([]core.Article, 0, len(records))
	for i := range records {
		out = append(out, records[i].toDomain())
	}
	return out, nil
}

func (s *Store) FindArticle(ctx context.Context, sku int64) (*core.Article, error) {
	var rec articleRecord
	err := s.db.NewSelect().Model(&rec).Where("a.sku = ?", sku).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewNotFoundError(fmt.Sprintf("article %d not found", sku), err)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: find article %d: %w", sku, err)
	}
	a := rec.toDomain()
	return &a, nil
}

func (s *Store) FindStock(ctx context.Context, sku int64) (int64, error) {
	var stock int64
	err := s.db.NewSelect().Model((*articleRecord)(nil)).ColumnExpr("a.stock").Where("a.sku = ?", sku).Limit(1).Scan(ctx, &stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, core.NewNotFoundError(fmt.Sprintf("article %d not found", sku), err)
	}
	if err != nil {
		return 0, fmt.Errorf("sqlstore: find stock of %d: %w", sku, err)
	}
	return stock, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	var records []categoryRecord
	err := s.db.NewSelect().Model(&records).OrderExpr("c.title ASC, c.uuid ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list categories: %w", err)
	}

	out := make([]core.Category, 0, len(records))
	for _, r := range records {
		out = append(out, core.Category{UUID: r.UUID, Title: r.Title})
	}
	return out, nil
}

func (s *Store) ListSubcategories(ctx context.Context, categoryUUID string) ([]core.Subcategory, error) {
	exists, err := s.db.NewSelect().Model((*categoryRecord)(nil)).Where("c.uuid = ?", categoryUUID).Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: find category: %w", err)
	}
	if !exists {
		return nil, core.NewNotFoundError(fmt.Sprintf("category %q not found", categoryUUID), nil)
	}

	var records []subcategoryRecord
	err = s.db.NewSelect().Model(&records).
		Where("sc.category_uuid = ?", categoryUUID).
		OrderExpr("sc.title ASC, sc.uuid ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list subcategories: %w", err)
	}

	out := make([]core.Subcategory, 0, len(records))
	for _, r := range records {
		out = append(out, core.Subcategory{UUID: r.UUID, CategoryUUID: r.CategoryUUID, Title: r.Title})
	}
	return out, nil
}

// lockRows reports whether line reads take row locks. Inside a PostgreSQL
// transaction a concurrent merge of the same line then waits for this one.
// SQLite serializes writers on its single connection.
func (s *Store) lockRows() bool {
	return s.root == nil && s.db.Dialect().Name() == dialect.PG
}

func (s *Store) lineQuery(model any) *bun.SelectQuery {
	q := s.db.NewSelect().Model(model)
	if s.lockRows() {
		q = q.For("UPDATE")
	}
	return q
}

func (s *Store) FindLine(ctx context.Context, email string, sku int64) (*core.CartLine, error) {
	var rec cartLineRecord
	err := s.lineQuery(&rec).
		Where("cl.email = ?", email).
		Where("cl.article_sku = ?", sku).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewNotFoundError(fmt.Sprintf("no cart line for article %d", sku), err)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: find cart line: %w", err)
	}
	l := rec.toDomain()
	return &l, nil
}

func (s *Store) ListLines(ctx context.Context, email string) ([]core.CartLine, error) {
	var records []cartLineRecord
	err := s.db.NewSelect().Model(&records).
		Where("cl.email = ?", email).
		OrderExpr("cl.created_at ASC, cl.uuid ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list cart lines: %w", err)
	}

	out := make([]core.CartLine, 0, len(records))
	for i := range records {
		out = append(out, records[i].toDomain())
	}
	return out, nil
}

// SaveLine inserts the line or updates the amount of an existing one.
// Only the amount of an existing line ever changes.
func (s *Store) SaveLine(ctx context.Context, line *core.CartLine) error {
	if line == nil || line.UUID == "" {
		return errors.New("cart line must have a uuid")
	}

	var held []cartLineRecord
	err := s.lineQuery(&held).
		Where("cl.uuid = ?", line.UUID).
		WhereOr("cl.email = ? AND cl.article_sku = ?", line.Email, line.ArticleSKU).
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("sqlstore: save cart line: %w", err)
	}

	exists := false
	for _, r := range held {
		if r.UUID != line.UUID || r.Email != line.Email || r.ArticleSKU != line.ArticleSKU {
			return fmt.Errorf("sqlstore: line %s clashes with line %s of article %d: %w",
				line.UUID, r.UUID, r.ArticleSKU, core.ErrLineConflict)
		}
		exists = true
	}

	if exists {
		_, err = s.db.NewUpdate().Model((*cartLineRecord)(nil)).
			Set("amount = ?", line.Amount).
			Where("uuid = ?", line.UUID).
			Exec(ctx)
	} else {
		_, err = s.db.NewInsert().Model(newCartLineRecord(line, s.now().UTC())).Exec(ctx)
	}
	if err != nil {
		return fmt.Errorf("sqlstore: save cart line: %w", err)
	}
	return nil
}

func (s *Store) DeleteLine(ctx context.Context, email, uuid string) error {
	_, err := s.db.NewDelete().Model((*cartLineRecord)(nil)).
		Where("uuid = ?", uuid).
		Where("email = ?", email).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sqlstore: delete cart line: %w", err)
	}
	return nil
}

// InTx runs fn in a database transaction that is rolled back when fn
// returns an error. Nested calls join the outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(core.Store) error) error {
	if s.root == nil {
		return fn(s)
	}
	return s.root.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if s.logger != nil {
			s.logger.Debug("sqlstore transaction started")
		}
		return fn(&Store{db: tx, logger: s.logger, now: s.now})
	})
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
