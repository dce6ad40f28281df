package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Article is a catalog item. It is read-only to the storefront core.
type Article struct {
	SKU             int64
	Title           string
	Description     string
	SellingPrice    decimal.Decimal
	ListPrice       decimal.NullDecimal // invalid means "no discount"
	Available       bool
	Stock           int64
	SubcategoryUUID string
}

// Category is a root category of the catalog.
type Category struct {
	UUID  string
	Title string
}

// Subcategory belongs to exactly one root category. Articles reference
// subcategories only.
type Subcategory struct {
	UUID         string
	CategoryUUID string
	Title        string
}

// CartLine is one article in a caller's cart. UUID is generated once and
// never changes; only Amount is mutated after creation.
type CartLine struct {
	UUID       string
	Email      string
	ArticleSKU int64
	Amount     int64
}

// Filter holds the three catalog predicates. Empty fields are not applied.
// CategoryUUID matches articles whose subcategory belongs to that category.
type Filter struct {
	CategoryUUID    string
	SubcategoryUUID string
	Query           string
}

// Normalize trims surrounding whitespace from every field.
func (f Filter) Normalize() Filter {
	return Filter{
		CategoryUUID:    strings.TrimSpace(f.CategoryUUID),
		SubcategoryUUID: strings.TrimSpace(f.SubcategoryUUID),
		Query:           strings.TrimSpace(f.Query),
	}
}

// IsZero reports whether no predicate is set.
func (f Filter) IsZero() bool {
	n := f.Normalize()
	return n.CategoryUUID == "" && n.SubcategoryUUID == "" && n.Query == ""
}
