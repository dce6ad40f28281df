package sqlstore

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/storefront/go-storefront/core"
)

type categoryRecord struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	UUID  string `bun:"uuid,pk"`
	Title string `bun:"title,notnull"`
}

type subcategoryRecord struct {
	bun.BaseModel `bun:"table:subcategories,alias:sc"`

	UUID         string `bun:"uuid,pk"`
	CategoryUUID string `bun:"category_uuid,notnull"`
	Title        string `bun:"title,notnull"`
}

type articleRecord struct {
	bun.BaseModel `bun:"table:articles,alias:a"`

	SKU             int64               `bun:"sku,pk"`
	Title           string              `bun:"title,notnull"`
	Description     string              `bun:"description,notnull"`
	SellingPrice    decimal.Decimal     `bun:"selling_price,type:numeric(12,2),notnull"`
	ListPrice       decimal.NullDecimal `bun:"list_price,type:numeric(12,2)"`
	Available       bool                `bun:"available,notnull"`
	Stock           int64               `bun:"stock,notnull"`
	SubcategoryUUID string              `bun:"subcategory_uuid,notnull"`
}

type cartLineRecord struct {
	bun.BaseModel `bun:"table:cart_lines,alias:cl"`

	UUID       string    `bun:"uuid,pk"`
	Email      string    `bun:"email,notnull"`
	ArticleSKU int64     `bun:"article_sku,notnull"`
	Amount     int64     `bun:"amount,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

func newArticleRecord(a core.Article) *articleRecord {
	return &articleRecord{
		SKU:             a.SKU,
		Title:           a.Title,
		Description:     a.Description,
		SellingPrice:    a.SellingPrice,
		ListPrice:       a.ListPrice,
		Available:       a.Available,
		Stock:           a.Stock,
		SubcategoryUUID: a.SubcategoryUUID,
	}
}

func (r *articleRecord) toDomain() core.Article {
	return core.Article{
		SKU:             r.SKU,
		Title:           r.Title,
		Description:     r.Description,
		SellingPrice:    r.SellingPrice,
		ListPrice:       r.ListPrice,
		Available:       r.Available,
		Stock:           r.Stock,
		SubcategoryUUID: r.SubcategoryUUID,
	}
}

func newCartLineRecord(l *core.CartLine, now time.Time) *cartLineRecord {
	return &cartLineRecord{
		UUID:       l.UUID,
		Email:      l.Email,
		ArticleSKU: l.ArticleSKU,
		Amount:     l.Amount,
		CreatedAt:  now,
	}
}

func (r *cartLineRecord) toDomain() core.CartLine {
	return core.CartLine{
		UUID:       r.UUID,
		Email:      r.Email,
		ArticleSKU: r.ArticleSKU,
		Amount:     r.Amount,
	}
}
