package services

import (
	"errors"
	"fmt"

	"github.com/diewo77/go-pos/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Inventory moves product stock. Every method must run inside the caller's
// transaction: the product row stays locked until that transaction ends, so
// concurrent reservations on one product serialize and cannot oversell.
type Inventory struct{}

var forUpdate = clause.Locking{Strength: "UPDATE"}

// Lock loads the product with an exclusive row lock.
func (Inventory) Lock(tx *gorm.DB, productID uint) (*models.Product, error) {
	var p models.Product
	err := tx.Clauses(forUpdate).First(&p, productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Product")
	}
	if err != nil {
		return nil, fmt.Errorf("lock product %d: %w", productID, err)
	}
	return &p, nil
}

// Reserve takes quantity off the shelf, failing with *InsufficientStockError
// when the product does not hold that many.
func (inv Inventory) Reserve(tx *gorm.DB, productID uint, quantity int) (*models.Product, error) {
	p, err := inv.Lock(tx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > p.Stock {
		return nil, &InsufficientStockError{ProductID: p.ID, Product: p.Name, Available: p.Stock, Requested: quantity}
	}
	if err := inv.setStock(tx, p, p.Stock-quantity); err != nil {
		return nil, err
	}
	return p, nil
}

// Release puts quantity back. Soft-deleted products are restocked too so a
// void never loses units.
func (inv Inventory) Release(tx *gorm.DB, productID uint, quantity int) (*models.Product, error) {
	p, err := inv.Lock(tx.Unscoped(), productID)
	if err != nil {
		return nil, err
	}
	if err := inv.setStock(tx, p, p.Stock+quantity); err != nil {
		return nil, err
	}
	return p, nil
}

// Adjust sets an absolute stock level (manual correction from the product form).
func (inv Inventory) Adjust(tx *gorm.DB, productID uint, stock int) (*models.Product, error) {
	p, err := inv.Lock(tx, productID)
	if err != nil {
		return nil, err
	}
	if err := inv.setStock(tx, p, stock); err != nil {
		return nil, err
	}
	return p, nil
}

func (Inventory) setStock(tx *gorm.DB, p *models.Product, stock int) error {
	if stock < 0 {
		return fmt.Errorf("product %d: stock would become %d", p.ID, stock)
	}
	if err := tx.Unscoped().Model(&models.Product{}).Where("id = ?", p.ID).Update("stock", stock).Error; err != nil {
		return fmt.Errorf("update stock of product %d: %w", p.ID, err)
	}
	p.Stock = stock
	return nil
}
