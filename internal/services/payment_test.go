package services

import (
	"context"
	"strings"
	"testing"

	"github.com/diewo77/go-pos/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePayment(t *testing.T) {
	conn := newTestDB(t)
	svc := NewPaymentService(conn)
	ctx := context.Background()

	p, err := svc.Create(ctx, PaymentInput{PaymentMethod: "cash", GrossAmount: money("13900000.004"), Metadata: map[string]any{"till": "A1"}})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p.OrderID, "POS-"), p.OrderID)
	assert.Equal(t, models.PaymentPending, p.TransactionStatus)
	requireMoney(t, "13900000", p.GrossAmount)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "A1", got.Metadata["till"])
	assert.Empty(t, got.Sales)

	_, err = svc.Create(ctx, PaymentInput{OrderID: "INV-1", PaymentMethod: "qris", TransactionStatus: models.PaymentSettlement})
	require.NoError(t, err)
	_, err = svc.Create(ctx, PaymentInput{OrderID: "INV-1", PaymentMethod: "qris"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Violations.Has("order_id"))
}

func TestCreatePayment_Validation(t *testing.T) {
	conn := newTestDB(t)
	svc := NewPaymentService(conn)

	_, err := svc.Create(context.Background(), PaymentInput{GrossAmount: money("-5")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Violations.Has("payment_method"))
	assert.True(t, verr.Violations.Has("gross_amount"))

	_, err = svc.Get(context.Background(), 77)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Payment not found", nf.Error())
}
