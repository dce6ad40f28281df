package cart

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/go-storefront/core"
)

func fixedID(id string) func() string {
	return func() string { return id }
}

func TestReconciler_AddOrMerge(t *testing.T) {
	tests := []struct {
		name       string
		sku        int64
		requested  int64
		stock      int64
		existing   *core.CartLine
		wantAmount int64
	}{
		{name: "new line clamped to stock", sku: 5, requested: 10, stock: 3, wantAmount: 3},
		{name: "new line below stock", sku: 5, requested: 2, stock: 3, wantAmount: 2},
		{name: "new line with zero request", sku: 5, requested: 0, stock: 3, wantAmount: 0},
		{name: "new line out of stock", sku: 5, requested: 4, stock: 0, wantAmount: 0},
		{name: "negative stock counts as zero", sku: 5, requested: 4, stock: -2, wantAmount: 0},
		{
			name: "merge below stock", sku: 7, requested: 6, stock: 100,
			existing:   &core.CartLine{UUID: "line-7", Email: "a@b.ch", ArticleSKU: 7, Amount: 4},
			wantAmount: 10,
		},
		{
			name: "merge clamps the running total", sku: 7, requested: 6, stock: 8,
			existing:   &core.CartLine{UUID: "line-7", Email: "a@b.ch", ArticleSKU: 7, Amount: 4},
			wantAmount: 8,
		},
		{
			name: "merge after stock dropped below the line", sku: 7, requested: 1, stock: 2,
			existing:   &core.CartLine{UUID: "line-7", Email: "a@b.ch", ArticleSKU: 7, Amount: 5},
			wantAmount: 2,
		},
		{
			name: "merge does not overflow", sku: 7, requested: math.MaxInt64, stock: 9,
			existing:   &core.CartLine{UUID: "line-7", Email: "a@b.ch", ArticleSKU: 7, Amount: 4},
			wantAmount: 9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReconciler(fixedID("new-line"))

			line, err := r.AddOrMerge(tt.sku, tt.requested, "a@b.ch", tt.stock, tt.existing)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAmount, line.Amount)
			assert.Equal(t, tt.sku, line.ArticleSKU)
			assert.Equal(t, "a@b.ch", line.Email)

			if tt.existing != nil {
				assert.Same(t, tt.existing, line, "merge must update the existing line in place")
				assert.Equal(t, "line-7", line.UUID)
			} else {
				assert.Equal(t, "new-line", line.UUID)
			}
		})
	}
}

func TestReconciler_RejectsNegativeAmounts(t *testing.T) {
	r := NewReconciler(nil)
	existing := &core.CartLine{UUID: "line", Amount: 4}

	_, err := r.AddOrMerge(1, -1, "a@b.ch", 10, nil)
	assert.ErrorIs(t, err, core.ErrInvalidQuantity)

	_, err = r.AddOrMerge(1, -1, "a@b.ch", 10, existing)
	assert.ErrorIs(t, err, core.ErrInvalidQuantity)
	assert.Equal(t, int64(4), existing.Amount, "rejected request must not touch the line")

	_, err = r.SetExactAmount(existing, -3, 10)
	assert.ErrorIs(t, err, core.ErrInvalidQuantity)
	assert.Equal(t, int64(4), existing.Amount)
}

func TestReconciler_SetExactAmount(t *testing.T) {
	tests := []struct {
		name      string
		amount    int64
		requested int64
		stock     int64
		want      int64
	}{
		{name: "absolute clamp", amount: 1, requested: 10, stock: 2, want: 2},
		{name: "absolute below stock", amount: 9, requested: 3, stock: 20, want: 3},
		{name: "to zero", amount: 9, requested: 0, stock: 20, want: 0},
		{name: "negative stock", amount: 9, requested: 3, stock: -1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := &core.CartLine{UUID: "line", Amount: tt.amount}

			got, err := NewReconciler(nil).SetExactAmount(line, tt.requested, tt.stock)
			require.NoError(t, err)
			assert.Same(t, line, got)
			assert.Equal(t, tt.want, got.Amount)
		})
	}

	t.Run("missing line", func(t *testing.T) {
		_, err := NewReconciler(nil).SetExactAmount(nil, 1, 1)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestNewReconciler_DefaultIDs(t *testing.T) {
	r := NewReconciler(nil)

	a, err := r.AddOrMerge(1, 1, "a@b.ch", 1, nil)
	require.NoError(t, err)
	b, err := r.AddOrMerge(1, 1, "a@b.ch", 1, nil)
	require.NoError(t, err)

	_, err = uuid.Parse(a.UUID)
	assert.NoError(t, err)
	assert.NotEqual(t, a.UUID, b.UUID)
}
