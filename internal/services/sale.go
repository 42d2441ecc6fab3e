package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/go-pos/internal/models"
	"github.com/diewo77/go-pos/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SaleService runs the sale lifecycle. Each mutating call is one database
// transaction: the sale row is locked first, then product rows one at a time
// (ascending id when several are touched), and any failure rolls back stock
// and sale changes together.
//
// Stock is reserved when an item is added, not when the sale is paid. A draft
// that is never paid or cancelled keeps its reservation.
type SaleService struct {
	db  *gorm.DB
	inv Inventory
	log *zap.Logger
	now func() time.Time
}

func NewSaleService(db *gorm.DB, log *zap.Logger) *SaleService {
	return &SaleService{db: db, log: log, now: time.Now}
}

// AddItemInput describes one line to add. Quantity must already carry its
// default (1) when the client omitted it.
type AddItemInput struct {
	SaleID         uint
	ProductID      uint
	Quantity       int
	DiscountAmount decimal.Decimal
}

// SaleFilter narrows List.
type SaleFilter struct {
	Status models.SaleStatus
	UserID uint
	From   *time.Time
	To     *time.Time
	Page   int
	Limit  int
}

// Create opens a draft sale for userID with all money fields at zero.
func (s *SaleService) Create(ctx context.Context, userID uint) (*models.Sale, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	db := s.db.WithContext(ctx)
	var n int64
	if err := db.Model(&models.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if n == 0 {
		v := validation.Violations{}
		validation.Invalid("user_id", v)
		return nil, invalid(v)
	}
	sale := &models.Sale{
		UserID:        userID,
		PaymentStatus: models.SaleStatusDraft,
		SaleDate:      s.now().UTC(),
	}
	totalsOf(decimal.Zero, decimal.Zero, decimal.Zero).Apply(sale)
	if err := db.Create(sale).Error; err != nil {
		return nil, fmt.Errorf("create sale: %w", err)
	}
	return sale, nil
}

func validateItem(in AddItemInput) error {
	v := validation.Violations{}
	validation.MinInt("quantity", in.Quantity, 1, v)
	validation.NonNegative("discount_amount", in.DiscountAmount, v)
	return invalid(v)
}

// AddItem reserves stock and appends a line to a draft sale.
func (s *SaleService) AddItem(ctx context.Context, in AddItemInput) (*models.SaleItem, *models.Sale, error) {
	if err := validateItem(in); err != nil {
		return nil, nil, err
	}
	var item *models.SaleItem
	var sale *models.Sale
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if sale, err = lockSale(tx, in.SaleID); err != nil {
			return err
		}
		if !sale.PaymentStatus.AcceptsChanges() {
			return saleConflict(sale, "add items")
		}
		product, err := s.inv.Reserve(tx, in.ProductID, in.Quantity)
		if err != nil {
			return err
		}
		price := product.SellingPrice.Round(MoneyPlaces)
		subtotal := LineSubtotal(price, in.Quantity)
		discount := in.DiscountAmount.Round(MoneyPlaces)
		if discount.GreaterThan(subtotal) {
			return invalidField("discount_amount", "The discount amount may not be greater than the line subtotal.")
		}
		item = &models.SaleItem{
			SaleID:         sale.ID,
			ProductID:      product.ID,
			NameProduct:    product.Name,
			Quantity:       in.Quantity,
			UnitPrice:      price,
			DiscountAmount: discount,
			Subtotal:       subtotal,
		}
		if err := tx.Create(item).Error; err != nil {
			return fmt.Errorf("create sale item: %w", err)
		}
		return recalculate(tx, sale)
	})
	if err != nil {
		return nil, nil, err
	}
	return item, sale, nil
}

// RemoveItem deletes a line from a draft sale and returns its units to stock.
// When the last line goes the sale falls back to zero subtotal and discount;
// an explicitly set tax amount is kept.
func (s *SaleService) RemoveItem(ctx context.Context, itemID uint) (*models.Sale, error) {
	var sale *models.Sale
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ref models.SaleItem
		if err := tx.Select("id", "sale_id").First(&ref, itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("Sale item")
			}
			return fmt.Errorf("load sale item: %w", err)
		}
		var err error
		if sale, err = lockSale(tx, ref.SaleID); err != nil {
			return err
		}
		// Re-read under the sale lock; a concurrent removal may have won.
		var item models.SaleItem
		if err := tx.Clauses(forUpdate).First(&item, itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("Sale item")
			}
			return fmt.Errorf("lock sale item: %w", err)
		}
		if !sale.PaymentStatus.AcceptsChanges() {
			return saleConflict(sale, "remove items")
		}
		if _, err := s.inv.Release(tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
		if err := tx.Delete(&item).Error; err != nil {
			return fmt.Errorf("delete sale item: %w", err)
		}
		return recalculate(tx, sale)
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// ConfirmPayment attaches an existing payment and moves the sale to paid.
// Stock is untouched: it was reserved when the items were added.
func (s *SaleService) ConfirmPayment(ctx context.Context, saleID, paymentID uint) (*models.Sale, error) {
	var sale *models.Sale
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if sale, err = lockSale(tx, saleID); err != nil {
			return err
		}
		var payment models.Payment
		if err := tx.First(&payment, paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("Payment")
			}
			return fmt.Errorf("load payment: %w", err)
		}
		if !sale.PaymentStatus.CanTransitionTo(models.SaleStatusPaid) {
			return saleConflict(sale, "confirm payment")
		}
		var lines int64
		if err := tx.Model(&models.SaleItem{}).Where("sale_id = ?", sale.ID).Count(&lines).Error; err != nil {
			return fmt.Errorf("count sale items: %w", err)
		}
		if lines == 0 {
			return &ConflictError{Message: fmt.Sprintf("Cannot confirm payment: sale %d has no items", sale.ID)}
		}
		sale.PaymentID = &payment.ID
		sale.PaymentStatus = models.SaleStatusPaid
		if err := tx.Model(sale).Select("payment_id", "payment_status").Updates(sale).Error; err != nil {
			return fmt.Errorf("mark sale paid: %w", err)
		}
		if payment.TransactionStatus == models.PaymentPending {
			if err := tx.Model(&payment).Update("transaction_status", models.PaymentSettlement).Error; err != nil {
				return fmt.Errorf("settle payment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("sale paid", zap.Uint("sale_id", sale.ID), zap.Uint("payment_id", paymentID), zap.Uint("user_id", sale.UserID))
	return sale, nil
}

// Cancel voids a draft or paid sale. Every line's units return to stock
// exactly once: cancelled is terminal, so a second cancel is a conflict.
// Lines stay attached to the cancelled sale for the record.
func (s *SaleService) Cancel(ctx context.Context, saleID uint) (*models.Sale, error) {
	var sale *models.Sale
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if sale, err = lockSale(tx, saleID); err != nil {
			return err
		}
		if !sale.PaymentStatus.CanTransitionTo(models.SaleStatusCancelled) {
			return saleConflict(sale, "cancel")
		}
		var items []models.SaleItem
		if err := tx.Where("sale_id = ?", sale.ID).Order("product_id, id").Find(&items).Error; err != nil {
			return fmt.Errorf("load sale items: %w", err)
		}
		for _, it := range items {
			if _, err := s.inv.Release(tx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		sale.PaymentStatus = models.SaleStatusCancelled
		if err := tx.Model(sale).Update("payment_status", sale.PaymentStatus).Error; err != nil {
			return fmt.Errorf("mark sale cancelled: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("sale cancelled", zap.Uint("sale_id", sale.ID), zap.Uint("user_id", sale.UserID))
	return sale, nil
}

// ApplyDiscount overrides the sale-level discount of a draft sale. The next
// item change recomputes the discount from the lines again.
func (s *SaleService) ApplyDiscount(ctx context.Context, saleID uint, amount decimal.Decimal) (*models.Sale, error) {
	return s.adjust(ctx, saleID, "apply a discount", func(sale *models.Sale) error {
		v := validation.Violations{}
		validation.NonNegative("discount_amount", amount, v)
		if amount.GreaterThan(sale.Subtotal) {
			v.Add("discount_amount", "The discount amount may not be greater than the subtotal.")
		}
		if err := invalid(v); err != nil {
			return err
		}
		totalsOf(sale.Subtotal, amount, sale.TaxAmount).Apply(sale)
		return nil
	})
}

// SetTax sets the standalone tax amount of a draft sale.
func (s *SaleService) SetTax(ctx context.Context, saleID uint, amount decimal.Decimal) (*models.Sale, error) {
	return s.adjust(ctx, saleID, "set tax", func(sale *models.Sale) error {
		v := validation.Violations{}
		validation.NonNegative("tax_amount", amount, v)
		if err := invalid(v); err != nil {
			return err
		}
		totalsOf(sale.Subtotal, sale.DiscountAmount, amount).Apply(sale)
		return nil
	})
}

func (s *SaleService) adjust(ctx context.Context, saleID uint, op string, fn func(*models.Sale) error) (*models.Sale, error) {
	var sale *models.Sale
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if sale, err = lockSale(tx, saleID); err != nil {
			return err
		}
		if !sale.PaymentStatus.AcceptsChanges() {
			return saleConflict(sale, op)
		}
		if err := fn(sale); err != nil {
			return err
		}
		return saveTotals(tx, sale)
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// Get loads a sale with its lines, cashier and payment.
func (s *SaleService) Get(ctx context.Context, id uint) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Items.Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("User").
		Preload("Payment").
		First(&sale, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Sale")
	}
	if err != nil {
		return nil, fmt.Errorf("load sale %d: %w", id, err)
	}
	return &sale, nil
}

// SaleOf loads the sale a line item belongs to.
func (s *SaleService) SaleOf(ctx context.Context, itemID uint) (*models.Sale, error) {
	var item models.SaleItem
	err := s.db.WithContext(ctx).Select("id", "sale_id").First(&item, itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Sale item")
	}
	if err != nil {
		return nil, fmt.Errorf("load sale item %d: %w", itemID, err)
	}
	var sale models.Sale
	if err := s.db.WithContext(ctx).First(&sale, item.SaleID).Error; err != nil {
		return nil, lookupErr(err, "Sale")
	}
	return &sale, nil
}

// List returns one page of sales, newest first, and the total match count.
func (s *SaleService) List(ctx context.Context, f SaleFilter) ([]models.Sale, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Sale{})
	if f.Status != "" {
		q = q.Where("payment_status = ?", f.Status)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.From != nil {
		q = q.Where("sale_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("sale_date < ?", *f.To)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count sales: %w", err)
	}
	page, limit := normalizePage(f.Page, f.Limit)
	var sales []models.Sale
	if err := q.Preload("User").Order("sale_date desc, id desc").
		Limit(limit).Offset((page - 1) * limit).Find(&sales).Error; err != nil {
		return nil, 0, fmt.Errorf("list sales: %w", err)
	}
	return sales, total, nil
}

func lockSale(tx *gorm.DB, id uint) (*models.Sale, error) {
	var sale models.Sale
	err := tx.Clauses(forUpdate).First(&sale, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Sale")
	}
	if err != nil {
		return nil, fmt.Errorf("lock sale %d: %w", id, err)
	}
	return &sale, nil
}

// recalculate derives the sale totals from its current lines.
func recalculate(tx *gorm.DB, sale *models.Sale) error {
	var items []models.SaleItem
	if err := tx.Where("sale_id = ?", sale.ID).Find(&items).Error; err != nil {
		return fmt.Errorf("load sale items: %w", err)
	}
	ComputeTotals(items, sale.TaxAmount).Apply(sale)
	return saveTotals(tx, sale)
}

func saveTotals(tx *gorm.DB, sale *models.Sale) error {
	err := tx.Model(sale).
		Select("subtotal", "discount_amount", "tax_amount", "total_amount").
		Updates(sale).Error
	if err != nil {
		return fmt.Errorf("save sale totals: %w", err)
	}
	return nil
}
