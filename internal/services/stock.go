package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/go-pos/internal/models"
	"github.com/diewo77/go-pos/validation"
	"gorm.io/gorm"
)

// StockService records goods received and raises product stock.
type StockService struct {
	db  *gorm.DB
	inv Inventory
	now func() time.Time
}

func NewStockService(db *gorm.DB) *StockService {
	return &StockService{db: db, now: time.Now}
}

type StockAdditionInput struct {
	ProductID uint
	UserID    uint
	Quantity  int
	Notes     string
}

type StockAdditionFilter struct {
	ProductID uint
	UserID    uint
	From      *time.Time // inclusive
	To        *time.Time // exclusive
}

// Add locks the product, records the addition and increments the stock in
// one transaction.
func (s *StockService) Add(ctx context.Context, in StockAdditionInput) (*models.StockAddition, error) {
	if in.UserID == 0 {
		return nil, ErrUnauthenticated
	}
	v := validation.Violations{}
	validation.MinInt("quantity", in.Quantity, 1, v)
	if in.ProductID == 0 {
		validation.Required("product_id", "", v)
	}
	if err := invalid(v); err != nil {
		return nil, err
	}
	var rec *models.StockAddition
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.inv.Lock(tx, in.ProductID)
		if err != nil {
			var nf *NotFoundError
			if errors.As(err, &nf) {
				return invalidField("product_id", "The selected product id is invalid.")
			}
			return err
		}
		rec = &models.StockAddition{
			ProductID: p.ID,
			UserID:    in.UserID,
			Quantity:  in.Quantity,
			Notes:     in.Notes,
			AddedAt:   s.now().UTC(),
		}
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("create stock addition: %w", err)
		}
		if _, err := s.inv.Adjust(tx, p.ID, p.Stock+in.Quantity); err != nil {
			return err
		}
		p.Stock += in.Quantity
		rec.Product = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns additions matching f, newest first.
func (s *StockService) List(ctx context.Context, f StockAdditionFilter) ([]models.StockAddition, error) {
	q := s.db.WithContext(ctx).Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).Preload("User")
	if f.ProductID != 0 {
		q = q.Where("product_id = ?", f.ProductID)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.From != nil {
		q = q.Where("added_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("added_at < ?", *f.To)
	}
	var out []models.StockAddition
	if err := q.Order("added_at desc, id desc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list stock additions: %w", err)
	}
	return out, nil
}

// Get loads one addition with its product (even if since deleted) and clerk.
func (s *StockService) Get(ctx context.Context, id uint) (*models.StockAddition, error) {
	var rec models.StockAddition
	err := s.db.WithContext(ctx).
		Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("User").
		First(&rec, id).Error
	if err != nil {
		return nil, lookupErr(err, "Stock addition")
	}
	return &rec, nil
}
