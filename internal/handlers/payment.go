package handlers

import (
	"net/http"

	"github.com/diewo77/go-pos/httpx"
	"github.com/diewo77/go-pos/internal/services"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	payments *services.PaymentService
	log      *zap.Logger
}

func NewPaymentHandler(payments *services.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, log: log}
}

func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OrderID           string          `json:"order_id"`
		PaymentMethod     string          `json:"payment_method"`
		PaymentType       string          `json:"payment_type"`
		GrossAmount       decimal.Decimal `json:"gross_amount"`
		TransactionStatus string          `json:"transaction_status"`
		SnapToken         string          `json:"snap_token"`
		Metadata          map[string]any  `json:"metadata"`
	}
	if !decode(w, r, &body) {
		return
	}
	p, err := h.payments.Create(r.Context(), services.PaymentInput{
		OrderID:           body.OrderID,
		PaymentMethod:     body.PaymentMethod,
		PaymentType:       body.PaymentType,
		GrossAmount:       body.GrossAmount,
		TransactionStatus: body.TransactionStatus,
		SnapToken:         body.SnapToken,
		Metadata:          body.Metadata,
	})
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusCreated, "Payment created", p)
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Payment")
	if !ok {
		return
	}
	p, err := h.payments.Get(r.Context(), id)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Success", p)
}
