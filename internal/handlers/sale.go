package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/diewo77/go-pos/auth"
	"github.com/diewo77/go-pos/gate"
	"github.com/diewo77/go-pos/httpx"
	"github.com/diewo77/go-pos/internal/models"
	"github.com/diewo77/go-pos/internal/services"
	"github.com/diewo77/go-pos/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const saleResource = "sale"

// Authorizer checks the request's user against an action on a resource.
type Authorizer interface {
	Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error
}

type SaleHandler struct {
	sales *services.SaleService
	gate  Authorizer
	log   *zap.Logger
}

func NewSaleHandler(sales *services.SaleService, authz Authorizer, log *zap.Logger) *SaleHandler {
	return &SaleHandler{sales: sales, gate: authz, log: log}
}

type itemRequest struct {
	SaleID         uint             `json:"sale_id"`
	ProductID      uint             `json:"product_id"`
	Quantity       *int             `json:"quantity"`
	DiscountAmount *decimal.Decimal `json:"discount_amount"`
}

func (b itemRequest) input(saleID uint) services.AddItemInput {
	in := services.AddItemInput{SaleID: saleID, ProductID: b.ProductID, Quantity: 1, DiscountAmount: decimal.Zero}
	if b.Quantity != nil {
		in.Quantity = *b.Quantity
	}
	if b.DiscountAmount != nil {
		in.DiscountAmount = *b.DiscountAmount
	}
	return in
}

type itemResponse struct {
	Item *models.SaleItem `json:"item"`
	Sale *models.Sale     `json:"sale"`
}

// owned loads the sale and checks the caller may perform action on it.
func (h *SaleHandler) owned(w http.ResponseWriter, r *http.Request, saleID uint, action gate.Action) (*models.Sale, bool) {
	sale, err := h.sales.Get(r.Context(), saleID)
	if err == nil {
		err = h.gate.Authorize(r.Context(), action, saleResource, sale)
	}
	if err != nil {
		fail(w, r, h.log, err)
		return nil, false
	}
	return sale, true
}

// Create opens a draft for the authenticated user, or for the user_id in the
// body when the request carries no token.
func (h *SaleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID uint `json:"user_id"`
	}
	if !decode(w, r, &body) {
		return
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if ok {
		if err := h.gate.Authorize(r.Context(), gate.ActionCreate, saleResource, nil); err != nil {
			fail(w, r, h.log, err)
			return
		}
	} else {
		userID = body.UserID
	}
	sale, err := h.sales.Create(r.Context(), userID)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusCreated, "Sale created", sale)
}

func (h *SaleHandler) List(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := services.SaleFilter{
		Status: models.SaleStatus(q.str("status")),
		UserID: q.id("user_id"),
	}
	if f.Status != "" && !f.Status.Valid() {
		validation.Invalid("status", q.values)
	}
	f.From, f.To = q.dayRange("start_date", "end_date")
	f.Page, f.Limit = q.page()
	if !q.ok(w) {
		return
	}
	sales, total, err := h.sales.List(r.Context(), f)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Paginated(w, "Success", sales, httpx.NewPagination(f.Page, f.Limit, total))
}

func (h *SaleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Sale")
	if !ok {
		return
	}
	sale, err := h.sales.Get(r.Context(), id)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Success", sale)
}

// AddItem handles POST /sales/items. Ids come from the body, so unknown ones
// are field errors rather than 404s.
func (h *SaleHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var body itemRequest
	if !decode(w, r, &body) {
		return
	}
	v := validation.Violations{}
	if body.SaleID == 0 {
		validation.Required("sale_id", "", v)
	}
	if body.ProductID == 0 {
		validation.Required("product_id", "", v)
	}
	if !v.Empty() {
		httpx.Validation(w, v)
		return
	}
	h.addItem(w, r, body.SaleID, body, true)
}

// AddItemToSale handles POST /sales/{id}/items.
func (h *SaleHandler) AddItemToSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Sale")
	if !ok {
		return
	}
	var body itemRequest
	if !decode(w, r, &body) {
		return
	}
	if body.ProductID == 0 {
		v := validation.Violations{}
		validation.Required("product_id", "", v)
		httpx.Validation(w, v)
		return
	}
	h.addItem(w, r, id, body, false)
}

func (h *SaleHandler) addItem(w http.ResponseWriter, r *http.Request, saleID uint, body itemRequest, idsAsFields bool) {
	sale, err := h.sales.Get(r.Context(), saleID)
	if err == nil {
		err = h.gate.Authorize(r.Context(), gate.ActionUpdate, saleResource, sale)
	}
	if err == nil {
		var item *models.SaleItem
		item, sale, err = h.sales.AddItem(r.Context(), body.input(saleID))
		if err == nil {
			httpx.Success(w, http.StatusCreated, "Item added to sale", itemResponse{Item: item, Sale: sale})
			return
		}
	}
	var nf *services.NotFoundError
	if idsAsFields && errors.As(err, &nf) {
		v := validation.Violations{}
		switch nf.Entity {
		case "Sale":
			validation.Invalid("sale_id", v)
		case "Product":
			validation.Invalid("product_id", v)
		}
		if !v.Empty() {
			httpx.Validation(w, v)
			return
		}
	}
	fail(w, r, h.log, err)
}

func (h *SaleHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r, "item_id", "Sale item")
	if !ok {
		return
	}
	sale, err := h.sales.SaleOf(r.Context(), itemID)
	if err == nil {
		err = h.gate.Authorize(r.Context(), gate.ActionUpdate, saleResource, sale)
	}
	if err == nil {
		sale, err = h.sales.RemoveItem(r.Context(), itemID)
	}
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Item removed from sale", sale)
}

func (h *SaleHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Sale")
	if !ok {
		return
	}
	var body struct {
		PaymentID uint `json:"payment_id"`
	}
	if !decode(w, r, &body) {
		return
	}
	if body.PaymentID == 0 {
		v := validation.Violations{}
		validation.Required("payment_id", "", v)
		httpx.Validation(w, v)
		return
	}
	if _, ok := h.owned(w, r, id, gate.ActionConfirm); !ok {
		return
	}
	sale, err := h.sales.ConfirmPayment(r.Context(), id, body.PaymentID)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Payment confirmed", sale)
}

// amountBody reads {field: amount}; the field is required.
func amountBody(w http.ResponseWriter, r *http.Request, field string) (decimal.Decimal, bool) {
	var body map[string]json.RawMessage
	if !decode(w, r, &body) {
		return decimal.Zero, false
	}
	raw, ok := body[field]
	if !ok || string(raw) == "null" {
		v := validation.Violations{}
		validation.Required(field, "", v)
		httpx.Validation(w, v)
		return decimal.Zero, false
	}
	var amount decimal.Decimal
	if err := json.Unmarshal(raw, &amount); err != nil {
		v := validation.Violations{}
		v.Add(field, "The "+label(field)+" must be a number.")
		httpx.Validation(w, v)
		return decimal.Zero, false
	}
	return amount, true
}

func (h *SaleHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, "discount_amount", "Discount applied", h.sales.ApplyDiscount)
}

func (h *SaleHandler) SetTax(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, "tax_amount", "Tax updated", h.sales.SetTax)
}

func (h *SaleHandler) adjust(w http.ResponseWriter, r *http.Request, field, message string,
	apply func(context.Context, uint, decimal.Decimal) (*models.Sale, error)) {
	id, ok := pathID(w, r, "id", "Sale")
	if !ok {
		return
	}
	amount, ok := amountBody(w, r, field)
	if !ok {
		return
	}
	if _, ok := h.owned(w, r, id, gate.ActionUpdate); !ok {
		return
	}
	sale, err := apply(r.Context(), id, amount)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, message, sale)
}

func (h *SaleHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Sale")
	if !ok {
		return
	}
	if _, ok := h.owned(w, r, id, gate.ActionCancel); !ok {
		return
	}
	sale, err := h.sales.Cancel(r.Context(), id)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Sale cancelled", sale)
}
