package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/diewo77/go-pos/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReportService aggregates paid sales. Sums are done in Go on decimals.
type ReportService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db, now: time.Now}
}

// SlowMovingThreshold is the paid quantity below which a product counts as slow moving.
const SlowMovingThreshold = 5

type SalesSummary struct {
	From             time.Time       `json:"start_date"`
	To               time.Time       `json:"end_date"`
	TotalSales       int             `json:"total_sales"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TotalItemsSold   int             `json:"total_items_sold"`
	AverageSaleValue decimal.Decimal `json:"average_sale_value"`
}

type ProfitAnalysis struct {
	From                   time.Time       `json:"start_date"`
	To                     time.Time       `json:"end_date"`
	TotalRevenue           decimal.Decimal `json:"total_revenue"`
	TotalCost              decimal.Decimal `json:"total_cost"`
	GrossProfit            decimal.Decimal `json:"gross_profit"`
	ProfitMarginPercentage decimal.Decimal `json:"profit_margin_percentage"`
}

type CashierPerformance struct {
	UserID       uint            `json:"user_id"`
	Name         string          `json:"name"`
	TotalSales   int             `json:"total_sales"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

type ProductPerformance struct {
	ProductID         uint            `json:"product_id"`
	Name              string          `json:"name"`
	Category          string          `json:"category,omitempty"`
	CurrentStock      int             `json:"current_stock"`
	TimesSold         int             `json:"times_sold"`
	TotalQuantitySold int             `json:"total_quantity_sold"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	CostPrice         decimal.Decimal `json:"cost_price"`
	SellingPrice      decimal.Decimal `json:"selling_price"`
}

type SlowMovingProduct struct {
	ProductID    uint            `json:"product_id"`
	Name         string          `json:"name"`
	Category     string          `json:"category,omitempty"`
	CurrentStock int             `json:"current_stock"`
	QuantitySold int             `json:"quantity_sold"`
	SellingPrice decimal.Decimal `json:"selling_price"`
}

// Period is a half-open [From, To) window.
type Period struct {
	From time.Time
	To   time.Time
}

type PeriodTotals struct {
	From         time.Time       `json:"start_date"`
	To           time.Time       `json:"end_date"`
	TotalSales   int             `json:"total_sales"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

type PeriodComparison struct {
	Period1    PeriodTotals `json:"period1"`
	Period2    PeriodTotals `json:"period2"`
	Comparison struct {
		RevenueDifference       decimal.Decimal `json:"revenue_difference"`
		RevenueGrowthPercentage decimal.Decimal `json:"revenue_growth_percentage"`
		SalesCountDifference    int             `json:"sales_count_difference"`
	} `json:"comparison"`
}

// paidSales loads paid sales in [from, to) with their lines.
func (s *ReportService) paidSales(ctx context.Context, from, to time.Time, withProducts bool) ([]models.Sale, error) {
	q := s.db.WithContext(ctx).
		Where("payment_status = ? AND sale_date >= ? AND sale_date < ?", models.SaleStatusPaid, from, to).
		Preload("Items")
	if withProducts {
		q = q.Preload("Items.Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() })
	}
	var sales []models.Sale
	if err := q.Order("sale_date").Find(&sales).Error; err != nil {
		return nil, fmt.Errorf("load paid sales: %w", err)
	}
	return sales, nil
}

// SalesBetween summarises paid sales in [from, to).
func (s *ReportService) SalesBetween(ctx context.Context, from, to time.Time) (*SalesSummary, error) {
	sales, err := s.paidSales(ctx, from, to, false)
	if err != nil {
		return nil, err
	}
	sum := &SalesSummary{From: from, To: to, TotalRevenue: decimal.Zero, AverageSaleValue: decimal.Zero}
	for _, sale := range sales {
		sum.TotalSales++
		sum.TotalRevenue = sum.TotalRevenue.Add(sale.TotalAmount)
		for _, it := range sale.Items {
			sum.TotalItemsSold += it.Quantity
		}
	}
	if sum.TotalSales > 0 {
		sum.AverageSaleValue = sum.TotalRevenue.Div(decimal.NewFromInt(int64(sum.TotalSales))).Round(MoneyPlaces)
	}
	sum.TotalRevenue = sum.TotalRevenue.Round(MoneyPlaces)
	return sum, nil
}

// Daily summarises the calendar day containing day, in day's location.
func (s *ReportService) Daily(ctx context.Context, day time.Time) (*SalesSummary, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return s.SalesBetween(ctx, start, start.AddDate(0, 0, 1))
}

// Profit compares line revenue (subtotal minus line discount) with the
// current cost price of the products sold.
func (s *ReportService) Profit(ctx context.Context, from, to time.Time) (*ProfitAnalysis, error) {
	sales, err := s.paidSales(ctx, from, to, true)
	if err != nil {
		return nil, err
	}
	revenue, cost := decimal.Zero, decimal.Zero
	for _, sale := range sales {
		for _, it := range sale.Items {
			revenue = revenue.Add(it.Subtotal.Sub(it.DiscountAmount))
			if it.Product != nil {
				cost = cost.Add(it.Product.CostPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
			}
		}
	}
	out := &ProfitAnalysis{
		From:                   from,
		To:                     to,
		TotalRevenue:           revenue.Round(MoneyPlaces),
		TotalCost:              cost.Round(MoneyPlaces),
		GrossProfit:            revenue.Sub(cost).Round(MoneyPlaces),
		ProfitMarginPercentage: decimal.Zero,
	}
	if !revenue.IsZero() {
		out.ProfitMarginPercentage = revenue.Sub(cost).Div(revenue).Mul(decimal.NewFromInt(100)).Round(MoneyPlaces)
	}
	return out, nil
}

// Cashiers ranks cashiers by revenue over paid sales in [from, to).
func (s *ReportService) Cashiers(ctx context.Context, from, to time.Time) ([]CashierPerformance, error) {
	var sales []models.Sale
	err := s.db.WithContext(ctx).Preload("User", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("payment_status = ? AND sale_date >= ? AND sale_date < ?", models.SaleStatusPaid, from, to).
		Find(&sales).Error
	if err != nil {
		return nil, fmt.Errorf("load paid sales: %w", err)
	}
	byUser := map[uint]*CashierPerformance{}
	for _, sale := range sales {
		row, ok := byUser[sale.UserID]
		if !ok {
			row = &CashierPerformance{UserID: sale.UserID, TotalRevenue: decimal.Zero}
			if sale.User != nil {
				row.Name = sale.User.Name
			}
			byUser[sale.UserID] = row
		}
		row.TotalSales++
		row.TotalRevenue = row.TotalRevenue.Add(sale.TotalAmount)
	}
	out := make([]CashierPerformance, 0, len(byUser))
	for _, row := range byUser {
		row.TotalRevenue = row.TotalRevenue.Round(MoneyPlaces)
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalRevenue.Cmp(out[j].TotalRevenue); c != 0 {
			return c > 0
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// paidItems loads the lines of paid sales dated at or after since (all of
// them when since is zero).
func (s *ReportService) paidItems(ctx context.Context, since time.Time) ([]models.SaleItem, error) {
	q := s.db.WithContext(ctx).
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sales.payment_status = ?", models.SaleStatusPaid)
	if !since.IsZero() {
		q = q.Where("sales.sale_date >= ?", since)
	}
	var items []models.SaleItem
	if err := q.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("load paid sale items: %w", err)
	}
	return items, nil
}

func (s *ReportService) products(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Preload("Category").Order("id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	return products, nil
}

func categoryName(p *models.Product) string {
	if p.Category == nil {
		return ""
	}
	return p.Category.Name
}

// ProductPerformance reports every product's paid sales: how many lines,
// how many units and the line revenue (subtotal minus line discount).
// Best sellers by revenue come first.
func (s *ReportService) ProductPerformance(ctx context.Context) ([]ProductPerformance, error) {
	products, err := s.products(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.paidItems(ctx, time.Time{})
	if err != nil {
		return nil, err
	}
	rows := make([]ProductPerformance, len(products))
	index := make(map[uint]int, len(products))
	for i := range products {
		p := &products[i]
		index[p.ID] = i
		rows[i] = ProductPerformance{
			ProductID:    p.ID,
			Name:         p.Name,
			Category:     categoryName(p),
			CurrentStock: p.Stock,
			TotalRevenue: decimal.Zero,
			CostPrice:    p.CostPrice,
			SellingPrice: p.SellingPrice,
		}
	}
	for _, it := range items {
		i, ok := index[it.ProductID]
		if !ok {
			continue // product since deleted
		}
		rows[i].TimesSold++
		rows[i].TotalQuantitySold += it.Quantity
		rows[i].TotalRevenue = rows[i].TotalRevenue.Add(it.Subtotal.Sub(it.DiscountAmount))
	}
	for i := range rows {
		rows[i].TotalRevenue = rows[i].TotalRevenue.Round(MoneyPlaces)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TotalRevenue.Cmp(rows[j].TotalRevenue) > 0
	})
	return rows, nil
}

// SlowMoving lists products that sold fewer than SlowMovingThreshold units in
// paid sales over the last days days, slowest first.
func (s *ReportService) SlowMoving(ctx context.Context, days int) ([]SlowMovingProduct, error) {
	if days < 1 {
		return nil, invalidField("days", "The days must be at least 1.")
	}
	products, err := s.products(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.paidItems(ctx, s.now().UTC().AddDate(0, 0, -days))
	if err != nil {
		return nil, err
	}
	sold := map[uint]int{}
	for _, it := range items {
		sold[it.ProductID] += it.Quantity
	}
	out := []SlowMovingProduct{}
	for i := range products {
		p := &products[i]
		if sold[p.ID] >= SlowMovingThreshold {
			continue
		}
		out = append(out, SlowMovingProduct{
			ProductID:    p.ID,
			Name:         p.Name,
			Category:     categoryName(p),
			CurrentStock: p.Stock,
			QuantitySold: sold[p.ID],
			SellingPrice: p.SellingPrice,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].QuantitySold < out[j].QuantitySold })
	return out, nil
}

// ComparePeriods sets paid sales in p2 against p1. Growth is relative to p1
// and zero when p1 had no revenue.
func (s *ReportService) ComparePeriods(ctx context.Context, p1, p2 Period) (*PeriodComparison, error) {
	first, err := s.SalesBetween(ctx, p1.From, p1.To)
	if err != nil {
		return nil, err
	}
	second, err := s.SalesBetween(ctx, p2.From, p2.To)
	if err != nil {
		return nil, err
	}
	out := &PeriodComparison{
		Period1: PeriodTotals{From: p1.From, To: p1.To, TotalSales: first.TotalSales, TotalRevenue: first.TotalRevenue},
		Period2: PeriodTotals{From: p2.From, To: p2.To, TotalSales: second.TotalSales, TotalRevenue: second.TotalRevenue},
	}
	diff := second.TotalRevenue.Sub(first.TotalRevenue)
	out.Comparison.RevenueDifference = diff.Round(MoneyPlaces)
	out.Comparison.RevenueGrowthPercentage = decimal.Zero
	if !first.TotalRevenue.IsZero() {
		out.Comparison.RevenueGrowthPercentage = diff.Div(first.TotalRevenue).Mul(decimal.NewFromInt(100)).Round(MoneyPlaces)
	}
	out.Comparison.SalesCountDifference = second.TotalSales - first.TotalSales
	return out, nil
}
