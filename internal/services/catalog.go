package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/go-pos/internal/models"
	"github.com/diewo77/go-pos/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CatalogService manages categories and products.
type CatalogService struct {
	db  *gorm.DB
	inv Inventory
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// CategoryInput is the writable part of a category.
type CategoryInput struct {
	Name        string
	Description string
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	if err := s.db.WithContext(ctx).Order("name").Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *CatalogService) validateCategory(db *gorm.DB, in CategoryInput, selfID uint) error {
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.MaxLength("name", in.Name, 191, v)
	if !v.Has("name") {
		var n int64
		if err := db.Model(&models.Category{}).Where("name = ? AND id <> ?", strings.TrimSpace(in.Name), selfID).Count(&n).Error; err != nil {
			return fmt.Errorf("check category name: %w", err)
		}
		if n > 0 {
			v.Add("name", "The name has already been taken.")
		}
	}
	return invalid(v)
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	db := s.db.WithContext(ctx)
	if err := s.validateCategory(db, in, 0); err != nil {
		return nil, err
	}
	c := &models.Category{Name: strings.TrimSpace(in.Name), Description: in.Description}
	if err := db.Create(c).Error; err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uint, in CategoryInput) (*models.Category, error) {
	db := s.db.WithContext(ctx)
	var c models.Category
	if err := db.First(&c, id).Error; err != nil {
		return nil, lookupErr(err, "Category")
	}
	if err := s.validateCategory(db, in, c.ID); err != nil {
		return nil, err
	}
	c.Name = strings.TrimSpace(in.Name)
	c.Description = in.Description
	if err := db.Save(&c).Error; err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return &c, nil
}

// DeleteCategory removes the category; its products become uncategorised.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Category
		if err := tx.First(&c, id).Error; err != nil {
			return lookupErr(err, "Category")
		}
		if err := tx.Unscoped().Model(&models.Product{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
			return fmt.Errorf("detach products: %w", err)
		}
		if err := tx.Delete(&c).Error; err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return nil
	})
}

// ProductFilter narrows ListProducts. Nil fields are ignored.
type ProductFilter struct {
	CategoryID *uint
	Search     string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	MinStock   *int
	Page       int
	Limit      int
}

// ProductInput carries a create or update. On update only non-nil fields change.
type ProductInput struct {
	CategoryID    *uint
	Name          *string
	Description   *string
	CostPrice     *decimal.Decimal
	SellingPrice  *decimal.Decimal
	ProductImages []string
	Stock         *int
	Barcode       *string
}

func (s *CatalogService) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Product{})
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(barcode) LIKE ?", like, like)
	}
	if f.MinPrice != nil {
		q = q.Where("selling_price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("selling_price <= ?", *f.MaxPrice)
	}
	if f.MinStock != nil {
		q = q.Where("stock >= ?", *f.MinStock)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	page, limit := normalizePage(f.Page, f.Limit)
	var products []models.Product
	if err := q.Preload("Category").Order("name, id").Limit(limit).Offset((page - 1) * limit).Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).Preload("Category").First(&p, id).Error; err != nil {
		return nil, lookupErr(err, "Product")
	}
	return &p, nil
}

func (s *CatalogService) validateProduct(db *gorm.DB, in ProductInput, creating bool, selfID uint) error {
	v := validation.Violations{}
	if creating || in.Name != nil {
		name := ""
		if in.Name != nil {
			name = *in.Name
		}
		validation.Required("name", name, v)
		validation.MaxLength("name", name, 191, v)
	}
	if in.CostPrice != nil {
		validation.NonNegative("cost_price", *in.CostPrice, v)
	}
	if in.SellingPrice != nil {
		validation.NonNegative("selling_price", *in.SellingPrice, v)
	}
	if in.Stock != nil {
		validation.MinInt("stock", *in.Stock, 0, v)
	}
	if in.CategoryID != nil {
		var n int64
		if err := db.Model(&models.Category{}).Where("id = ?", *in.CategoryID).Count(&n).Error; err != nil {
			return fmt.Errorf("check category: %w", err)
		}
		if n == 0 {
			validation.Invalid("category_id", v)
		}
	}
	if in.Barcode != nil && *in.Barcode != "" {
		validation.MaxLength("barcode", *in.Barcode, 191, v)
		var n int64
		if err := db.Unscoped().Model(&models.Product{}).Where("barcode = ? AND id <> ?", *in.Barcode, selfID).Count(&n).Error; err != nil {
			return fmt.Errorf("check barcode: %w", err)
		}
		if n > 0 {
			v.Add("barcode", "The barcode has already been taken.")
		}
	}
	return invalid(v)
}

func (in ProductInput) applyTo(p *models.Product) {
	if in.CategoryID != nil {
		p.CategoryID = in.CategoryID
	}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.CostPrice != nil {
		p.CostPrice = in.CostPrice.Round(MoneyPlaces)
	}
	if in.SellingPrice != nil {
		p.SellingPrice = in.SellingPrice.Round(MoneyPlaces)
	}
	if in.ProductImages != nil {
		p.ProductImages = in.ProductImages
	}
	if in.Barcode != nil {
		if *in.Barcode == "" {
			p.Barcode = nil
		} else {
			b := *in.Barcode
			p.Barcode = &b
		}
	}
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	db := s.db.WithContext(ctx)
	if err := s.validateProduct(db, in, true, 0); err != nil {
		return nil, err
	}
	p := &models.Product{ProductImages: []string{}}
	in.applyTo(p)
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if err := db.Create(p).Error; err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

// UpdateProduct edits a product. A stock value, when given, is written under
// the product row lock like any other stock movement.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	var p models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.inv.Lock(tx, id)
		if err != nil {
			return err
		}
		p = *locked
		if err := s.validateProduct(tx, in, false, p.ID); err != nil {
			return err
		}
		in.applyTo(&p)
		if err := tx.Omit("stock", "Category").Save(&p).Error; err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		if in.Stock != nil {
			if _, err := s.inv.Adjust(tx, p.ID, *in.Stock); err != nil {
				return err
			}
			p.Stock = *in.Stock
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProduct soft-deletes a product. Products held by a draft sale cannot
// be deleted until the reservation is released.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.inv.Lock(tx, id)
		if err != nil {
			return err
		}
		var reserved int64
		err = tx.Model(&models.SaleItem{}).
			Joins("JOIN sales ON sales.id = sale_items.sale_id").
			Where("sale_items.product_id = ? AND sales.payment_status = ?", p.ID, models.SaleStatusDraft).
			Count(&reserved).Error
		if err != nil {
			return fmt.Errorf("check reservations: %w", err)
		}
		if reserved > 0 {
			return &ConflictError{Message: fmt.Sprintf("Product '%s' is reserved by a draft sale", p.Name)}
		}
		if err := tx.Delete(p).Error; err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		return nil
	})
}

// lookupErr maps gorm.ErrRecordNotFound onto a NotFoundError for entity.
func lookupErr(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(entity)
	}
	return fmt.Errorf("load %s: %w", strings.ToLower(entity), err)
}
