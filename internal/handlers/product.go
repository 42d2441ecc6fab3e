package handlers

import (
	"net/http"

	"github.com/diewo77/go-pos/auth"
	"github.com/diewo77/go-pos/httpx"
	"github.com/diewo77/go-pos/internal/services"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProductHandler struct {
	catalog *services.CatalogService
	stock   *services.StockService
	log     *zap.Logger
}

func NewProductHandler(catalog *services.CatalogService, stock *services.StockService, log *zap.Logger) *ProductHandler {
	return &ProductHandler{catalog: catalog, stock: stock, log: log}
}

type productRequest struct {
	CategoryID    *uint            `json:"category_id"`
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	CostPrice     *decimal.Decimal `json:"cost_price"`
	SellingPrice  *decimal.Decimal `json:"selling_price"`
	ProductImages []string         `json:"product_images"`
	Stock         *int             `json:"stock"`
	Barcode       *string          `json:"barcode"`
}

func (b productRequest) input() services.ProductInput {
	return services.ProductInput{
		CategoryID:    b.CategoryID,
		Name:          b.Name,
		Description:   b.Description,
		CostPrice:     b.CostPrice,
		SellingPrice:  b.SellingPrice,
		ProductImages: b.ProductImages,
		Stock:         b.Stock,
		Barcode:       b.Barcode,
	}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := services.ProductFilter{
		Search:   q.str("search"),
		MinPrice: q.amount("min_price"),
		MaxPrice: q.amount("max_price"),
		MinStock: q.number("min_stock"),
	}
	if id := q.id("category_id"); id != 0 {
		f.CategoryID = &id
	}
	f.Page, f.Limit = q.page()
	if !q.ok(w) {
		return
	}
	products, total, err := h.catalog.ListProducts(r.Context(), f)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Paginated(w, "Success", products, httpx.NewPagination(f.Page, f.Limit, total))
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Product")
	if !ok {
		return
	}
	p, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Success", p)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body productRequest
	if !decode(w, r, &body) {
		return
	}
	p, err := h.catalog.CreateProduct(r.Context(), body.input())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusCreated, "Product created", p)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Product")
	if !ok {
		return
	}
	var body productRequest
	if !decode(w, r, &body) {
		return
	}
	p, err := h.catalog.UpdateProduct(r.Context(), id, body.input())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Product updated", p)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Product")
	if !ok {
		return
	}
	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Product deleted", nil)
}

// AddStock records a stock addition for the product in the path.
func (h *ProductHandler) AddStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Product")
	if !ok {
		return
	}
	var body struct {
		Quantity int    `json:"quantity"`
		Notes    string `json:"notes"`
	}
	if !decode(w, r, &body) {
		return
	}
	if _, err := h.catalog.GetProduct(r.Context(), id); err != nil {
		fail(w, r, h.log, err)
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())
	rec, err := h.stock.Add(r.Context(), services.StockAdditionInput{ProductID: id, UserID: userID, Quantity: body.Quantity, Notes: body.Notes})
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Stock added successfully", rec)
}
