package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/storefront/go-storefront/core"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func list(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}

func Test_DiscountPercent(t *testing.T) {
	testCases := []struct {
		name      string
		price     Price
		wantLabel string
		wantOK    bool
	}{
		{name: "half price", price: Price{Selling: dec("50"), List: list("100")}, wantLabel: "50", wantOK: true},
		{name: "no list price", price: Price{Selling: dec("50")}, wantLabel: "", wantOK: false},
		{name: "zero list price", price: Price{Selling: dec("50"), List: list("0")}, wantLabel: "", wantOK: false},
		{name: "rounds down below half", price: Price{Selling: dec("2"), List: list("3")}, wantLabel: "33", wantOK: true},
		{name: "rounds up above half", price: Price{Selling: dec("1"), List: list("3")}, wantLabel: "67", wantOK: true},
		{name: "tie rounds up", price: Price{Selling: dec("79.5"), List: list("100")}, wantLabel: "21", wantOK: true},
		{name: "selling above list is negative", price: Price{Selling: dec("120"), List: list("100")}, wantLabel: "-20", wantOK: true},
		{name: "negative tie rounds toward positive infinity", price: Price{Selling: dec("102.5"), List: list("100")}, wantLabel: "-2", wantOK: true},
		{name: "no discount", price: Price{Selling: dec("19.90"), List: list("19.90")}, wantLabel: "0", wantOK: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, ok := testCase.price.DiscountPercent()
			assert.Equal(t, testCase.wantOK, ok)
			assert.Equal(t, testCase.wantLabel, testCase.price.DiscountLabel())
		})
	}
}

func Test_Display(t *testing.T) {
	testCases := []struct {
		name      string
		price     Price
		available bool
		want      string
	}{
		{name: "discounted and available", price: Price{Selling: dec("50"), List: list("100")}, available: true, want: "50.00 was 100.00 CHF"},
		{name: "discounted but unavailable", price: Price{Selling: dec("50"), List: list("100")}, available: false, want: "50.00 CHF"},
		{name: "no list price", price: Price{Selling: dec("9.9")}, available: true, want: "9.90 CHF"},
		{name: "half up on the third digit", price: Price{Selling: dec("1.005"), List: list("2.675")}, available: true, want: "1.01 was 2.68 CHF"},
		{name: "below half rounds down", price: Price{Selling: dec("3.14159")}, available: true, want: "3.14 CHF"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.want, testCase.price.Display(testCase.available))
		})
	}
}

func Test_PriceOf(t *testing.T) {
	a := core.Article{SellingPrice: dec("10"), ListPrice: list("20")}

	assert.Equal(t, Price{Selling: dec("10"), List: list("20")}, PriceOf(a))
	assert.True(t, PriceOf(a).HasDiscount())
	assert.False(t, PriceOf(core.Article{SellingPrice: dec("10")}).HasDiscount())
}
