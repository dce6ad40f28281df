package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/storefront/go-storefront/core"
)

// VATRate is the fixed value-added tax rate included in selling prices.
var VATRate = decimal.RequireFromString("0.07")

// Line is one priced cart position.
type Line struct {
	Price    Price
	Quantity int64
}

// LineOf joins a cart line with its article.
func LineOf(line core.CartLine, article core.Article) Line {
	return Line{Price: PriceOf(article), Quantity: line.Amount}
}

// Subtotal is Quantity * Selling.
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Selling.Mul(decimal.NewFromInt(l.Quantity))
}

// Discount is Quantity * (List - Selling), or zero without a list price.
func (l Line) Discount() decimal.Decimal {
	if !l.Price.List.Valid {
		return decimal.Zero
	}
	return l.Price.List.Decimal.Sub(l.Price.Selling).Mul(decimal.NewFromInt(l.Quantity))
}

// Summary is the unrounded money summary of a cart.
type Summary struct {
	TotalInclVat  decimal.Decimal
	TotalExclVat  decimal.Decimal
	VatAmount     decimal.Decimal
	TotalDiscount decimal.Decimal
}

// Summarize accumulates lines. Each metric is derived from the unrounded
// total, never from another rounded metric.
func Summarize(lines []Line) Summary {
	total := decimal.Zero
	discount := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
		discount = discount.Add(l.Discount())
	}

	return Summary{
		TotalInclVat:  total,
		TotalExclVat:  total.Mul(decimal.NewFromInt(1).Sub(VATRate)),
		VatAmount:     total.Mul(VATRate),
		TotalDiscount: discount,
	}
}

// Rounded returns a copy with every metric independently rounded to two
// decimals.
func (s Summary) Rounded() Summary {
	return Summary{
		TotalInclVat:  roundHalfUp2(s.TotalInclVat),
		TotalExclVat:  roundHalfUp2(s.TotalExclVat),
		VatAmount:     roundHalfUp2(s.VatAmount),
		TotalDiscount: roundHalfUp2(s.TotalDiscount),
	}
}

// Formatted is the presentation form of a Summary.
type Formatted struct {
	Total    string `json:"total"`
	ExclVat  string `json:"exclVat"`
	Vat      string `json:"vat"`
	Discount string `json:"discount"`
}

// Format renders every metric as "{amount} CHF".
func (s Summary) Format() Formatted {
	return Formatted{
		Total:    FormatMoney(s.TotalInclVat),
		ExclVat:  FormatMoney(s.TotalExclVat),
		Vat:      FormatMoney(s.VatAmount),
		Discount: FormatMoney(s.TotalDiscount),
	}
}
