package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleStatus is the lifecycle state of a sale.
type SaleStatus string

const (
	SaleStatusDraft     SaleStatus = "draft"
	SaleStatusPaid      SaleStatus = "paid"
	SaleStatusCancelled SaleStatus = "cancelled"
)

// saleTransitions lists, for each state, the states it may move to.
// Cancelling a paid sale voids it (stock goes back on the shelf).
var saleTransitions = map[SaleStatus][]SaleStatus{
	SaleStatusDraft: {SaleStatusPaid, SaleStatusCancelled},
	SaleStatusPaid:  {SaleStatusCancelled},
}

// Valid reports whether s is a known status.
func (s SaleStatus) Valid() bool {
	switch s {
	case SaleStatusDraft, SaleStatusPaid, SaleStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the move s -> next is allowed.
func (s SaleStatus) CanTransitionTo(next SaleStatus) bool {
	for _, to := range saleTransitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// AcceptsChanges reports whether items, discount and tax may still change.
func (s SaleStatus) AcceptsChanges() bool { return s == SaleStatusDraft }

// Sale is one checkout. Money fields are kept consistent by the totals
// calculator: total_amount = subtotal - discount_amount + tax_amount.
type Sale struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	UserID         uint            `gorm:"index;not null" json:"user_id"`
	User           *User           `json:"user,omitempty"`
	PaymentID      *uint           `gorm:"index" json:"payment_id"`
	Payment        *Payment        `json:"payment,omitempty"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"subtotal"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"discount_amount"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"tax_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_amount"`
	PaymentStatus  SaleStatus      `gorm:"size:20;not null;index" json:"payment_status"`
	SaleDate       time.Time       `gorm:"index;not null" json:"sale_date"`
	Items          []SaleItem      `gorm:"constraint:OnDelete:CASCADE;" json:"items,omitempty"`
}

// GetUserID returns the cashier who owns the sale.
func (s *Sale) GetUserID() uint { return s.UserID }

// SaleItem is one product line. Name and unit price are captured when the
// line is added so later product edits do not rewrite history.
type SaleItem struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	SaleID         uint            `gorm:"index;not null" json:"sale_id"`
	ProductID      uint            `gorm:"index;not null" json:"product_id"`
	Product        *Product        `json:"product,omitempty"`
	NameProduct    string          `gorm:"size:191;not null" json:"name_product"`
	Quantity       int             `gorm:"not null" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"unit_price"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"discount_amount"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"subtotal"`
}

// Payment is a settlement record (cash, card, gateway) a sale can be attached to.
type Payment struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	OrderID           string          `gorm:"uniqueIndex;size:100;not null" json:"order_id"`
	PaymentMethod     string          `gorm:"size:50;not null" json:"payment_method"`
	PaymentType       string          `gorm:"size:50" json:"payment_type,omitempty"`
	GrossAmount       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"gross_amount"`
	TransactionStatus string          `gorm:"size:30;not null;index" json:"transaction_status"`
	SnapToken         string          `gorm:"size:255" json:"snap_token,omitempty"`
	Metadata          map[string]any  `gorm:"type:text;serializer:json" json:"metadata,omitempty"`
	Sales             []Sale          `json:"sales,omitempty"`
}

// Payment transaction statuses.
const (
	PaymentPending    = "pending"
	PaymentSettlement = "settlement"
)
