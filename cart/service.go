package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/storefront/go-storefront/core"
	"github.com/storefront/go-storefront/pricing"
	"github.com/storefront/go-storefront/telemetry"
)

// Item is a cart line joined with its article.
type Item struct {
	Line    core.CartLine
	Article core.Article
	Price   pricing.Line
}

// Contents is a priced view of one cart.
type Contents struct {
	Items   []Item
	Summary pricing.Summary
}

// Service runs cart operations for an identity against a core.Store.
type Service struct {
	store      core.Store
	reconciler *Reconciler
	logger     core.Logger
	tracer     telemetry.Tracer
	metrics    telemetry.Metrics
}

// Option configures the Service.
type Option func(*Service) error

// WithReconciler replaces the default Reconciler.
func WithReconciler(r *Reconciler) Option {
	return func(s *Service) error {
		if r == nil {
			return errors.New("reconciler cannot be nil")
		}
		s.reconciler = r
		return nil
	}
}

// WithLogger sets an optional logger.
func WithLogger(logger core.Logger) Option {
	return func(s *Service) error {
		s.logger = logger
		return nil
	}
}

// WithTracer sets the tracer used to open one span per operation.
func WithTracer(tracer telemetry.Tracer) Option {
	return func(s *Service) error {
		if tracer == nil {
			return errors.New("tracer cannot be nil")
		}
		s.tracer = tracer
		return nil
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics telemetry.Metrics) Option {
	return func(s *Service) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		s.metrics = metrics
		return nil
	}
}

// NewService returns a Service backed by store.
// When store also implements core.Transactor, Add and ChangeAmount run their
// read-modify-write inside a transaction.
func NewService(store core.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}

	s := &Service{
		store:      store,
		reconciler: NewReconciler(nil),
		tracer:     &telemetry.NoopTracer{},
		metrics:    &telemetry.NoopMetrics{},
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return s, nil
}

// Add puts amount units of sku into the caller's cart, clamped to stock.
func (s *Service) Add(ctx context.Context, id core.Identity, sku, amount int64) (*core.CartLine, error) {
	ctx, span := s.tracer.StartSpan(ctx, "cart.Add")
	defer span.Finish()
	span.SetTag("sku", sku)
	span.SetTag("amount", amount)

	if id.IsAnonymous() {
		return nil, s.fail(span, "add", core.NewAnonymousError("cart requires a signed-in customer"))
	}

	var (
		saved  *core.CartLine
		merged bool
	)
	err := s.atomically(ctx, func(store core.Store) error {
		stock, err := store.FindStock(ctx, sku)
		if err != nil {
			return fmt.Errorf("find stock: %w", err)
		}

		existing, err := findLine(ctx, store, id.Email, sku)
		if err != nil {
			return err
		}
		var held int64
		merged = existing != nil
		if merged {
			held = existing.Amount
		}

		line, err := s.reconciler.AddOrMerge(sku, amount, id.Email, stock, existing)
		if err != nil {
			return err
		}
		// Compared as a difference: held+amount may not fit in an int64.
		if line.Amount-held < amount {
			s.metrics.IncCounter(telemetry.MetricCartClamped, map[string]string{"operation": "add"})
			span.SetTag("clamped", true)
			if s.logger != nil {
				s.logger.Debug("cart amount clamped to stock", "sku", sku, "held", held, "requested", amount, "stock", stock)
			}
		}

		if err := store.SaveLine(ctx, line); err != nil {
			return fmt.Errorf("save cart line: %w", err)
		}
		saved = line
		return nil
	})
	if err != nil {
		return nil, s.fail(span, "add", err)
	}

	s.metrics.IncCounter(telemetry.MetricCartAdds, map[string]string{"merged": fmt.Sprint(merged)})
	return saved, nil
}

// ChangeAmount sets the caller's line for sku to exactly amount, clamped to
// stock. The line must already exist.
func (s *Service) ChangeAmount(ctx context.Context, id core.Identity, sku, amount int64) (*core.CartLine, error) {
	ctx, span := s.tracer.StartSpan(ctx, "cart.ChangeAmount")
	defer span.Finish()
	span.SetTag("sku", sku)
	span.SetTag("amount", amount)

	if id.IsAnonymous() {
		return nil, s.fail(span, "change_amount", core.NewAnonymousError("cart requires a signed-in customer"))
	}

	var saved *core.CartLine
	err := s.atomically(ctx, func(store core.Store) error {
		line, err := store.FindLine(ctx, id.Email, sku)
		if err != nil {
			return fmt.Errorf("find cart line: %w", err)
		}
		stock, err := store.FindStock(ctx, sku)
		if err != nil {
			return fmt.Errorf("find stock: %w", err)
		}

		line, err = s.reconciler.SetExactAmount(line, amount, stock)
		if err != nil {
			return err
		}
		if line.Amount < amount {
			s.metrics.IncCounter(telemetry.MetricCartClamped, map[string]string{"operation": "change_amount"})
			span.SetTag("clamped", true)
		}

		if err := store.SaveLine(ctx, line); err != nil {
			return fmt.Errorf("save cart line: %w", err)
		}
		saved = line
		return nil
	})
	if err != nil {
		return nil, s.fail(span, "change_amount", err)
	}
	return saved, nil
}

// Remove deletes the caller's line. Removing an unknown line is not an error.
func (s *Service) Remove(ctx context.Context, id core.Identity, lineID string) error {
	ctx, span := s.tracer.StartSpan(ctx, "cart.Remove")
	defer span.Finish()
	span.SetTag("line", lineID)

	if id.IsAnonymous() {
		return s.fail(span, "remove", core.NewAnonymousError("cart requires a signed-in customer"))
	}

	if err := s.store.DeleteLine(ctx, id.Email, lineID); err != nil {
		return s.fail(span, "remove", fmt.Errorf("delete cart line: %w", err))
	}
	s.metrics.IncCounter(telemetry.MetricCartRemovals, nil)
	return nil
}

// Lines returns the caller's cart lines. An anonymous caller has an empty
// cart.
func (s *Service) Lines(ctx context.Context, id core.Identity) ([]core.CartLine, error) {
	ctx, span := s.tracer.StartSpan(ctx, "cart.Lines")
	defer span.Finish()

	if id.IsAnonymous() {
		return []core.CartLine{}, nil
	}

	lines, err := s.store.ListLines(ctx, id.Email)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	return lines, nil
}

// Summary prices the caller's cart. Lines whose article no longer exists
// are left out.
func (s *Service) Summary(ctx context.Context, id core.Identity) (*Contents, error) {
	ctx, span := s.tracer.StartSpan(ctx, "cart.Summary")
	defer span.Finish()

	if id.IsAnonymous() {
		return &Contents{Items: []Item{}, Summary: pricing.Summarize(nil)}, nil
	}

	lines, err := s.store.ListLines(ctx, id.Email)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list cart lines: %w", err)
	}

	items := make([]Item, 0, len(lines))
	priced := make([]pricing.Line, 0, len(lines))
	for _, line := range lines {
		article, err := s.store.FindArticle(ctx, line.ArticleSKU)
		if errors.Is(err, core.ErrNotFound) {
			if s.logger != nil {
				s.logger.Warn("cart line references a missing article", "line", line.UUID, "sku", line.ArticleSKU)
			}
			continue
		}
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("find article %d: %w", line.ArticleSKU, err)
		}

		p := pricing.LineOf(line, *article)
		items = append(items, Item{Line: line, Article: *article, Price: p})
		priced = append(priced, p)
	}

	s.metrics.ObserveHistogram(telemetry.MetricCartLines, float64(len(items)), nil)
	return &Contents{Items: items, Summary: pricing.Summarize(priced)}, nil
}

func (s *Service) atomically(ctx context.Context, fn func(core.Store) error) error {
	if tx, ok := s.store.(core.Transactor); ok {
		return tx.InTx(ctx, fn)
	}
	return fn(s.store)
}

func (s *Service) fail(span telemetry.Span, op string, err error) error {
	span.RecordError(err)
	if errors.Is(err, core.ErrInvalidQuantity) || errors.Is(err, core.ErrAnonymous) {
		s.metrics.IncCounter(telemetry.MetricCartRejected, map[string]string{"operation": op})
	}
	if s.logger != nil && !errors.Is(err, core.ErrNotFound) &&
		!errors.Is(err, core.ErrInvalidQuantity) && !errors.Is(err, core.ErrAnonymous) {
		s.logger.Error("cart operation failed", "operation", op, "error", err)
	}
	return err
}

// findLine returns the caller's line for sku, or nil when there is none.
func findLine(ctx context.Context, store core.Store, email string, sku int64) (*core.CartLine, error) {
	line, err := store.FindLine(ctx, email, sku)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find cart line: %w", err)
	}
	return line, nil
}
