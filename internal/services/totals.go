package services

import (
	"github.com/diewo77/go-pos/internal/models"
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fraction digits stored for money.
const MoneyPlaces = 2

// Totals are the derived money fields of a sale.
type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
}

// ComputeTotals sums the lines exactly and quantizes only the results.
func ComputeTotals(items []models.SaleItem, tax decimal.Decimal) Totals {
	subtotal, discount := decimal.Zero, decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Subtotal)
		discount = discount.Add(it.DiscountAmount)
	}
	return totalsOf(subtotal, discount, tax)
}

func totalsOf(subtotal, discount, tax decimal.Decimal) Totals {
	return Totals{
		Subtotal:       subtotal.Round(MoneyPlaces),
		DiscountAmount: discount.Round(MoneyPlaces),
		TaxAmount:      tax.Round(MoneyPlaces),
		TotalAmount:    subtotal.Sub(discount).Add(tax).Round(MoneyPlaces),
	}
}

// LineSubtotal is unit price times quantity.
func LineSubtotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(MoneyPlaces)
}

// Apply copies t onto the sale.
func (t Totals) Apply(s *models.Sale) {
	s.Subtotal = t.Subtotal
	s.DiscountAmount = t.DiscountAmount
	s.TaxAmount = t.TaxAmount
	s.TotalAmount = t.TotalAmount
}
