package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reportFixture struct {
	*saleFixture
	reports *ReportService
	budi    uint
	laptop  uint
	mouse   uint
}

// newReportFixture records three paid sales and one open draft on testNow's day:
//
//	kasir: 2 x Laptop            = 14,000,000
//	kasir: 1 x Laptop - 100,000  =  6,900,000
//	budi:  3 x Mouse             =    450,000
func newReportFixture(t *testing.T) *reportFixture {
	f := newSaleFixture(t)
	ctx := context.Background()
	budi := createUser(t, f.db, "budi")
	laptop := createProduct(t, f.db, "Laptop", "4000000", "7000000", 10)
	mouse := createProduct(t, f.db, "Mouse", "50000", "150000", 10)

	pay := func(userID uint, lines func(saleID uint)) {
		sale, err := f.sales.Create(ctx, userID)
		require.NoError(t, err)
		lines(sale.ID)
		_, err = f.sales.ConfirmPayment(ctx, sale.ID, f.payment(t).ID)
		require.NoError(t, err)
	}
	pay(f.user.ID, func(id uint) { f.add(t, id, laptop.ID, 2, "0") })
	pay(f.user.ID, func(id uint) { f.add(t, id, laptop.ID, 1, "100000") })
	pay(budi.ID, func(id uint) { f.add(t, id, mouse.ID, 3, "0") })

	open := f.draft(t)
	f.add(t, open.ID, mouse.ID, 1, "0")

	reports := NewReportService(f.db)
	reports.now = func() time.Time { return testNow }
	return &reportFixture{saleFixture: f, reports: reports, budi: budi.ID, laptop: laptop.ID, mouse: mouse.ID}
}

// sellOn records a paid sale of qty x productID dated at.
func (f *reportFixture) sellOn(t *testing.T, at time.Time, productID uint, qty int) {
	t.Helper()
	ctx := context.Background()
	prev := f.sales.now
	f.sales.now = func() time.Time { return at }
	defer func() { f.sales.now = prev }()
	sale, err := f.sales.Create(ctx, f.user.ID)
	require.NoError(t, err)
	f.add(t, sale.ID, productID, qty, "0")
	_, err = f.sales.ConfirmPayment(ctx, sale.ID, f.payment(t).ID)
	require.NoError(t, err)
}

func TestSalesBetween(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	sum, err := f.reports.SalesBetween(ctx, testNow.Add(-time.Hour), testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, sum.TotalSales)
	assert.Equal(t, 6, sum.TotalItemsSold)
	requireMoney(t, "21350000", sum.TotalRevenue)
	requireMoney(t, "7116666.67", sum.AverageSaleValue)

	empty, err := f.reports.SalesBetween(ctx, testNow.Add(time.Hour), testNow.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, empty.TotalSales)
	requireMoney(t, "0", empty.AverageSaleValue)
}

func TestDailyReport(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	today, err := f.reports.Daily(ctx, time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 3, today.TotalSales)
	assert.True(t, today.From.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))
	assert.True(t, today.To.Equal(time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)))

	yesterday, err := f.reports.Daily(ctx, time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, yesterday.TotalSales)
}

func TestProfitReport(t *testing.T) {
	f := newReportFixture(t)

	got, err := f.reports.Profit(context.Background(), testNow.Add(-time.Hour), testNow.Add(time.Hour))
	require.NoError(t, err)
	requireMoney(t, "21350000", got.TotalRevenue)
	requireMoney(t, "12150000", got.TotalCost)
	requireMoney(t, "9200000", got.GrossProfit)
	requireMoney(t, "43.09", got.ProfitMarginPercentage)

	none, err := f.reports.Profit(context.Background(), testNow.Add(time.Hour), testNow.Add(2*time.Hour))
	require.NoError(t, err)
	requireMoney(t, "0", none.ProfitMarginPercentage)
}

func TestCashierPerformance(t *testing.T) {
	f := newReportFixture(t)

	rows, err := f.reports.Cashiers(context.Background(), testNow.Add(-time.Hour), testNow.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, f.user.ID, rows[0].UserID)
	assert.Equal(t, "Kasir", rows[0].Name)
	assert.Equal(t, 2, rows[0].TotalSales)
	requireMoney(t, "20900000", rows[0].TotalRevenue)
	assert.Equal(t, f.budi, rows[1].UserID)
	requireMoney(t, "450000", rows[1].TotalRevenue)
}

func TestProductPerformance(t *testing.T) {
	f := newReportFixture(t)
	idle := createProduct(t, f.db, "Kabel", "5000", "12000", 4)

	rows, err := f.reports.ProductPerformance(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	laptop := rows[0]
	assert.Equal(t, f.laptop, laptop.ProductID)
	assert.Equal(t, 2, laptop.TimesSold)
	assert.Equal(t, 3, laptop.TotalQuantitySold)
	assert.Equal(t, 7, laptop.CurrentStock)
	requireMoney(t, "20900000", laptop.TotalRevenue)
	requireMoney(t, "7000000", laptop.SellingPrice)

	// The open draft's mouse is reserved but not sold.
	mouse := rows[1]
	assert.Equal(t, f.mouse, mouse.ProductID)
	assert.Equal(t, 1, mouse.TimesSold)
	assert.Equal(t, 3, mouse.TotalQuantitySold)
	assert.Equal(t, 6, mouse.CurrentStock)
	requireMoney(t, "450000", mouse.TotalRevenue)

	assert.Equal(t, idle.ID, rows[2].ProductID)
	assert.Zero(t, rows[2].TimesSold)
	requireMoney(t, "0", rows[2].TotalRevenue)
}

func TestSlowMoving(t *testing.T) {
	f := newReportFixture(t)
	f.sellOn(t, testNow, f.mouse, 5)

	rows, err := f.reports.SlowMoving(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, rows, 1, "mouse sold 8 units")
	assert.Equal(t, f.laptop, rows[0].ProductID)
	assert.Equal(t, 3, rows[0].QuantitySold)

	// Forty days on, nothing sold inside the window.
	f.reports.now = func() time.Time { return testNow.AddDate(0, 0, 40) }
	rows, err = f.reports.SlowMoving(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Zero(t, row.QuantitySold, row.Name)
	}

	_, err = f.reports.SlowMoving(context.Background(), 0)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Violations.Has("days"))
}

func TestComparePeriods(t *testing.T) {
	f := newReportFixture(t)
	yesterday := testNow.AddDate(0, 0, -1)
	f.sellOn(t, yesterday, f.mouse, 1)

	day := func(at time.Time) Period {
		start := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
		return Period{From: start, To: start.AddDate(0, 0, 1)}
	}
	got, err := f.reports.ComparePeriods(context.Background(), day(yesterday), day(testNow))
	require.NoError(t, err)
	assert.Equal(t, 1, got.Period1.TotalSales)
	requireMoney(t, "150000", got.Period1.TotalRevenue)
	assert.Equal(t, 3, got.Period2.TotalSales)
	requireMoney(t, "21350000", got.Period2.TotalRevenue)
	requireMoney(t, "21200000", got.Comparison.RevenueDifference)
	requireMoney(t, "14133.33", got.Comparison.RevenueGrowthPercentage)
	assert.Equal(t, 2, got.Comparison.SalesCountDifference)

	empty := day(testNow.AddDate(0, 0, -10))
	got, err = f.reports.ComparePeriods(context.Background(), empty, day(testNow))
	require.NoError(t, err)
	requireMoney(t, "0", got.Comparison.RevenueGrowthPercentage)
	requireMoney(t, "21350000", got.Comparison.RevenueDifference)
	assert.Equal(t, 3, got.Comparison.SalesCountDifference)
}
