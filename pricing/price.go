// Package pricing formats article prices and summarizes cart totals under a
// single fixed VAT rate.
//
// All arithmetic uses exact decimals. Rounding to two fractional digits
// happens only when a value is presented.
package pricing

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/storefront/go-storefront/core"
)

// Currency is appended to every formatted amount.
const Currency = "CHF"

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.NewFromFloat(0.5)
)

// Price is the unit pricing of one article.
type Price struct {
	Selling decimal.Decimal
	List    decimal.NullDecimal
}

// PriceOf returns the price of an article.
func PriceOf(a core.Article) Price {
	return Price{Selling: a.SellingPrice, List: a.ListPrice}
}

// HasDiscount reports whether a usable list price is present.
func (p Price) HasDiscount() bool {
	return p.List.Valid && !p.List.Decimal.IsZero()
}

// DiscountPercent returns 100 - Selling/List*100 rounded half up.
// ok is false when there is no list price. The percentage is negative when
// the selling price is above the list price.
func (p Price) DiscountPercent() (percent int64, ok bool) {
	if !p.HasDiscount() {
		return 0, false
	}
	ratio := p.Selling.Div(p.List.Decimal).Mul(hundred)
	return roundHalfUp(hundred.Sub(ratio)).IntPart(), true
}

// DiscountLabel returns DiscountPercent as a string, or "" when absent.
func (p Price) DiscountLabel() string {
	percent, ok := p.DiscountPercent()
	if !ok {
		return ""
	}
	return strconv.FormatInt(percent, 10)
}

// Display renders "{selling} was {list} CHF" for an available article with a
// list price, and "{selling} CHF" otherwise.
func (p Price) Display(available bool) string {
	if p.List.Valid && available {
		return FormatAmount(p.Selling) + " was " + FormatAmount(p.List.Decimal) + " " + Currency
	}
	return FormatMoney(p.Selling)
}

// FormatAmount renders d with exactly two fractional digits, half up.
func FormatAmount(d decimal.Decimal) string {
	return roundHalfUp2(d).StringFixed(2)
}

// FormatMoney renders d as "{amount} CHF".
func FormatMoney(d decimal.Decimal) string {
	return FormatAmount(d) + " " + Currency
}

// roundHalfUp rounds to an integer, ties toward positive infinity.
func roundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Add(half).Floor()
}

// roundHalfUp2 rounds to two places, ties toward positive infinity.
func roundHalfUp2(d decimal.Decimal) decimal.Decimal {
	return roundHalfUp(d.Mul(hundred)).Div(hundred)
}
