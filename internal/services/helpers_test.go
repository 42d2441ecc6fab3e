package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/go-pos/internal/db"
	"github.com/diewo77/go-pos/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database with the full schema. A single
// connection makes concurrent transactions queue the way row locks would.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(conn, db.MigrateOptions{}))
	return conn
}

func newTestSales(conn *gorm.DB) *SaleService {
	s := NewSaleService(conn, zap.NewNop())
	s.now = func() time.Time { return testNow }
	return s
}

var testNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, money(want).Equal(got), "want %s, got %s", want, got.StringFixed(2))
}

func createUser(t *testing.T, conn *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Name: strings.ToUpper(username[:1]) + username[1:], Email: username + "@pos.test", Password: "x"}
	require.NoError(t, conn.Create(u).Error)
	return u
}

func createProduct(t *testing.T, conn *gorm.DB, name, cost, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, CostPrice: money(cost), SellingPrice: money(price), Stock: stock, ProductImages: []string{}}
	require.NoError(t, conn.Create(p).Error)
	return p
}

func stockOf(t *testing.T, conn *gorm.DB, productID uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, conn.Unscoped().First(&p, productID).Error)
	return p.Stock
}
