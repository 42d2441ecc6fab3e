package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/diewo77/go-pos/internal/models"
	"github.com/diewo77/go-pos/validation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentService struct {
	db *gorm.DB
}

func NewPaymentService(db *gorm.DB) *PaymentService {
	return &PaymentService{db: db}
}

type PaymentInput struct {
	OrderID           string
	PaymentMethod     string
	PaymentType       string
	GrossAmount       decimal.Decimal
	TransactionStatus string
	SnapToken         string
	Metadata          map[string]any
}

// Create records a payment. A missing order id gets a generated "POS-<uuid>".
func (s *PaymentService) Create(ctx context.Context, in PaymentInput) (*models.Payment, error) {
	db := s.db.WithContext(ctx)
	v := validation.Violations{}
	validation.Required("payment_method", in.PaymentMethod, v)
	validation.MaxLength("payment_method", in.PaymentMethod, 50, v)
	validation.NonNegative("gross_amount", in.GrossAmount, v)
	orderID := strings.TrimSpace(in.OrderID)
	if orderID == "" {
		orderID = "POS-" + uuid.NewString()
	} else {
		var n int64
		if err := db.Model(&models.Payment{}).Where("order_id = ?", orderID).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("check order id: %w", err)
		}
		if n > 0 {
			v.Add("order_id", "The order id has already been taken.")
		}
	}
	if err := invalid(v); err != nil {
		return nil, err
	}
	status := in.TransactionStatus
	if status == "" {
		status = models.PaymentPending
	}
	p := &models.Payment{
		OrderID:           orderID,
		PaymentMethod:     in.PaymentMethod,
		PaymentType:       in.PaymentType,
		GrossAmount:       in.GrossAmount.Round(MoneyPlaces),
		TransactionStatus: status,
		SnapToken:         in.SnapToken,
		Metadata:          in.Metadata,
	}
	if err := db.Create(p).Error; err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return p, nil
}

// Get loads a payment with the sales settled by it.
func (s *PaymentService) Get(ctx context.Context, id uint) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.WithContext(ctx).Preload("Sales").First(&p, id).Error; err != nil {
		return nil, lookupErr(err, "Payment")
	}
	return &p, nil
}
