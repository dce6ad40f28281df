// Package httpapi exposes the catalog and the cart over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/storefront/go-storefront/cart"
	"github.com/storefront/go-storefront/catalog"
	"github.com/storefront/go-storefront/core"
	storefrontgin "github.com/storefront/go-storefront/framework/gin"
	"github.com/storefront/go-storefront/pricing"
)

// Catalog loads single articles and the category tree used to build
// catalog filters.
type Catalog interface {
	FindArticle(ctx context.Context, sku int64) (*core.Article, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	ListSubcategories(ctx context.Context, categoryUUID string) ([]core.Subcategory, error)
}

// API serves the storefront routes. The identity must already be resolved
// by storefrontgin.NewMiddleware.
type API struct {
	lister  *catalog.Lister
	carts   *cart.Service
	catalog Catalog
	logger  core.Logger
}

// Option configures the API.
type Option func(*API) error

// WithLogger sets an optional logger.
func WithLogger(logger core.Logger) Option {
	return func(a *API) error {
		a.logger = logger
		return nil
	}
}

// New returns an API over the given components.
func New(lister *catalog.Lister, carts *cart.Service, cat Catalog, opts ...Option) (*API, error) {
	switch {
	case lister == nil:
		return nil, errors.New("lister is required")
	case carts == nil:
		return nil, errors.New("cart service is required")
	case cat == nil:
		return nil, errors.New("catalog is required")
	}

	a := &API{lister: lister, carts: carts, catalog: cat}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return a, nil
}

// Register mounts the routes on r.
func (a *API) Register(r gin.IRouter) {
	r.GET("/categories", a.listCategories)
	r.GET("/categories/:uuid/subcategories", a.listSubcategories)
	r.GET("/articles", a.listArticles)
	r.GET("/articles/:sku", a.getArticle)
	r.GET("/cart", a.getCart)
	r.POST("/cart", a.addToCart)
	r.POST("/cart/change-amount/:sku/:amount", a.changeAmount)
	r.DELETE("/cart/:uuid", a.removeFromCart)
}

func (a *API) listCategories(c *gin.Context) {
	categories, err := a.catalog.ListCategories(c.Request.Context())
	if err != nil {
		a.abort(c, err)
		return
	}

	resp := make([]categoryResponse, 0, len(categories))
	for _, cat := range categories {
		resp = append(resp, categoryResponse{UUID: cat.UUID, Title: cat.Title})
	}
	c.JSON(http.StatusOK, resp)
}

func (a *API) listSubcategories(c *gin.Context) {
	subcategories, err := a.catalog.ListSubcategories(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		a.abort(c, err)
		return
	}

	resp := make([]subcategoryResponse, 0, len(subcategories))
	for _, sc := range subcategories {
		resp = append(resp, subcategoryResponse{UUID: sc.UUID, CategoryUUID: sc.CategoryUUID, Title: sc.Title})
	}
	c.JSON(http.StatusOK, resp)
}

func (a *API) listArticles(c *gin.Context) {
	filter := core.Filter{
		CategoryUUID:    c.Query("category"),
		SubcategoryUUID: c.Query("subcategory"),
		Query:           c.Query("q"),
	}

	listing, err := a.lister.List(c.Request.Context(), filter, c.Query("page"))
	if err != nil {
		a.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newListingResponse(listing))
}

func (a *API) getArticle(c *gin.Context) {
	sku, err := strconv.ParseInt(c.Param("sku"), 10, 64)
	if err != nil {
		a.abort(c, core.NewNotFoundError("article not found", err))
		return
	}

	article, err := a.catalog.FindArticle(c.Request.Context(), sku)
	if err != nil {
		a.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newArticleResponse(*article))
}

func (a *API) getCart(c *gin.Context) {
	contents, err := a.carts.Summary(c.Request.Context(), storefrontgin.GetIdentity(c))
	if err != nil {
		a.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(contents))
}

func (a *API) addToCart(c *gin.Context) {
	sku, err := strconv.ParseInt(c.PostForm("sku"), 10, 64)
	if err != nil {
		a.abort(c, core.NewNotFoundError("article not found", err))
		return
	}
	amount, err := parseAmount(c.PostForm("amount"))
	if err != nil {
		a.abort(c, err)
		return
	}

	line, err := a.carts.Add(c.Request.Context(), storefrontgin.GetIdentity(c), sku, amount)
	if err != nil {
		a.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newLineResponse(*line))
}

func (a *API) changeAmount(c *gin.Context) {
	sku, err := strconv.ParseInt(c.Param("sku"), 10, 64)
	if err != nil {
		a.abort(c, core.NewNotFoundError("cart line not found", err))
		return
	}
	amount, err := parseAmount(c.Param("amount"))
	if err != nil {
		a.abort(c, err)
		return
	}

	line, err := a.carts.ChangeAmount(c.Request.Context(), storefrontgin.GetIdentity(c), sku, amount)
	if err != nil {
		a.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newLineResponse(*line))
}

func (a *API) removeFromCart(c *gin.Context) {
	if err := a.carts.Remove(c.Request.Context(), storefrontgin.GetIdentity(c), c.Param("uuid")); err != nil {
		a.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) abort(c *gin.Context, err error) {
	if a.logger != nil && !errors.Is(err, core.ErrNotFound) &&
		!errors.Is(err, core.ErrInvalidQuantity) && !errors.Is(err, core.ErrAnonymous) {
		a.logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err)
	}
	storefrontgin.AbortWithError(c, err)
}

func parseAmount(raw string) (int64, error) {
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, core.NewQuantityError("amount must be a whole number")
	}
	return amount, nil
}

type categoryResponse struct {
	UUID  string `json:"uuid"`
	Title string `json:"title"`
}

type subcategoryResponse struct {
	UUID         string `json:"uuid"`
	CategoryUUID string `json:"category_uuid"`
	Title        string `json:"title"`
}

type articleResponse struct {
	SKU          int64  `json:"sku"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Price        string `json:"price"`
	SellingPrice string `json:"selling_price"`
	ListPrice    string `json:"list_price,omitempty"`
	Discount     string `json:"discount_percent,omitempty"`
	Available    bool   `json:"available"`
	Stock        int64  `json:"stock"`
	Subcategory  string `json:"subcategory_uuid"`
}

func newArticleResponse(a core.Article) articleResponse {
	price := pricing.PriceOf(a)
	resp := articleResponse{
		SKU:          a.SKU,
		Title:        a.Title,
		Description:  a.Description,
		Price:        price.Display(a.Available),
		SellingPrice: pricing.FormatAmount(a.SellingPrice),
		Discount:     price.DiscountLabel(),
		Available:    a.Available,
		Stock:        a.Stock,
		Subcategory:  a.SubcategoryUUID,
	}
	if a.ListPrice.Valid {
		resp.ListPrice = pricing.FormatAmount(a.ListPrice.Decimal)
	}
	return resp
}

type listingResponse struct {
	Page      int               `json:"page"`
	Total     int               `json:"total"`
	PageCount int               `json:"page_count"`
	HasPrev   bool              `json:"has_prev"`
	HasNext   bool              `json:"has_next"`
	Neighbors []int             `json:"neighbors"`
	Articles  []articleResponse `json:"articles"`
}

func newListingResponse(l *catalog.Listing) listingResponse {
	articles := make([]articleResponse, 0, len(l.Articles))
	for _, a := range l.Articles {
		articles = append(articles, newArticleResponse(a))
	}
	neighbors := l.Neighbors
	if neighbors == nil {
		neighbors = []int{}
	}
	return listingResponse{
		Page:      l.Window.Page,
		Total:     l.Window.TotalItems,
		PageCount: l.Window.PageCount,
		HasPrev:   l.Window.HasPrev,
		HasNext:   l.Window.HasNext,
		Neighbors: neighbors,
		Articles:  articles,
	}
}

type lineResponse struct {
	UUID   string `json:"uuid"`
	SKU    int64  `json:"sku"`
	Amount int64  `json:"amount"`
}

func newLineResponse(l core.CartLine) lineResponse {
	return lineResponse{UUID: l.UUID, SKU: l.ArticleSKU, Amount: l.Amount}
}

type cartItemResponse struct {
	lineResponse
	Title    string `json:"title"`
	Price    string `json:"price"`
	Subtotal string `json:"subtotal"`
}

type cartResponse struct {
	Items    []cartItemResponse `json:"items"`
	Total    string             `json:"total"`
	ExclVat  string             `json:"total_excl_vat"`
	Vat      string             `json:"vat"`
	Discount string             `json:"discount"`
}

func newCartResponse(c *cart.Contents) cartResponse {
	items := make([]cartItemResponse, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, cartItemResponse{
			lineResponse: newLineResponse(it.Line),
			Title:        it.Article.Title,
			Price:        pricing.FormatMoney(it.Article.SellingPrice),
			Subtotal:     pricing.FormatMoney(it.Price.Subtotal()),
		})
	}
	f := c.Summary.Format()
	return cartResponse{
		Items:    items,
		Total:    f.Total,
		ExclVat:  f.ExclVat,
		Vat:      f.Vat,
		Discount: f.Discount,
	}
}
