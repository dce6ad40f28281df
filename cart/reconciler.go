// Package cart keeps a caller's cart consistent with the available stock.
//
// Reconciler holds the pure quantity rules; Service applies them against a
// core.Store on behalf of an identity.
package cart

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/storefront/go-storefront/core"
)

// Reconciler computes authoritative cart line quantities.
// It is stateless apart from its id generator and safe for concurrent use.
type Reconciler struct {
	newID func() string
}

// NewReconciler returns a Reconciler that names new lines with newID.
// A nil newID uses random UUIDs.
func NewReconciler(newID func() string) *Reconciler {
	if newID == nil {
		newID = uuid.NewString
	}
	return &Reconciler{newID: newID}
}

// AddOrMerge adds requested units of sku to the cart of email.
//
// Without an existing line a new one is created holding
// min(requested, stock). Otherwise the existing line is updated in place to
// min(existing.Amount+requested, stock) and returned, so the running total
// never exceeds the stock seen at this point in time.
func (r *Reconciler) AddOrMerge(sku, requested int64, email string, stock int64, existing *core.CartLine) (*core.CartLine, error) {
	if requested < 0 {
		return nil, core.NewQuantityError(fmt.Sprintf("requested amount %d is negative", requested))
	}
	stock = max(stock, 0)

	if existing == nil {
		return &core.CartLine{
			UUID:       r.newID(),
			Email:      email,
			ArticleSKU: sku,
			Amount:     min(requested, stock),
		}, nil
	}

	existing.Amount = clampedSum(existing.Amount, requested, stock)
	return existing, nil
}

// SetExactAmount replaces the line's amount with min(requested, stock).
func (r *Reconciler) SetExactAmount(line *core.CartLine, requested, stock int64) (*core.CartLine, error) {
	if line == nil {
		return nil, core.NewNotFoundError("cart line not found", nil)
	}
	if requested < 0 {
		return nil, core.NewQuantityError(fmt.Sprintf("requested amount %d is negative", requested))
	}

	line.Amount = min(requested, max(stock, 0))
	return line, nil
}

// clampedSum returns min(have+add, limit) without overflowing.
func clampedSum(have, add, limit int64) int64 {
	if have >= limit || add >= limit-have {
		return limit
	}
	return have + add
}
