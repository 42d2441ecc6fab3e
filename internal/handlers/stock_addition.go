package handlers

import (
	"net/http"

	"github.com/diewo77/go-pos/auth"
	"github.com/diewo77/go-pos/httpx"
	"github.com/diewo77/go-pos/internal/services"
	"go.uber.org/zap"
)

type StockAdditionHandler struct {
	stock *services.StockService
	log   *zap.Logger
}

func NewStockAdditionHandler(stock *services.StockService, log *zap.Logger) *StockAdditionHandler {
	return &StockAdditionHandler{stock: stock, log: log}
}

func (h *StockAdditionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductID uint   `json:"product_id"`
		Quantity  int    `json:"quantity"`
		Notes     string `json:"notes"`
	}
	if !decode(w, r, &body) {
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())
	rec, err := h.stock.Add(r.Context(), services.StockAdditionInput{
		ProductID: body.ProductID,
		UserID:    userID,
		Quantity:  body.Quantity,
		Notes:     body.Notes,
	})
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusCreated, "Stock added successfully", rec)
}

func (h *StockAdditionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := services.StockAdditionFilter{ProductID: q.id("product_id"), UserID: q.id("user_id")}
	f.From, f.To = q.dayRange("start_date", "end_date")
	if !q.ok(w) {
		return
	}
	recs, err := h.stock.List(r.Context(), f)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Success", recs)
}

func (h *StockAdditionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Stock addition")
	if !ok {
		return
	}
	rec, err := h.stock.Get(r.Context(), id)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Success", rec)
}
