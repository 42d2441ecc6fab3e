package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// lockLog records, in order, the tables read with a FOR UPDATE clause.
type lockLog struct {
	mu     sync.Mutex
	tables []string
}

func (l *lockLog) locked() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.tables...)
}

func recordLocks(t *testing.T, conn *gorm.DB) *lockLog {
	t.Helper()
	log := &lockLog{}
	err := conn.Callback().Query().Before("gorm:query").Register("test:record_locks", func(d *gorm.DB) {
		if _, ok := d.Statement.Clauses[forUpdate.Name()]; ok {
			log.mu.Lock()
			log.tables = append(log.tables, d.Statement.Table)
			log.mu.Unlock()
		}
	})
	require.NoError(t, err)
	return log
}

// dryRunPostgres renders SQL with the production dialect without a server.
func dryRunPostgres(t *testing.T) (*gorm.DB, *[]string) {
	t.Helper()
	conn, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=127.0.0.1 user=pos dbname=pos sslmode=disable"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	var sqls []string
	err = conn.Callback().Query().After("gorm:query").Register("test:capture_sql", func(d *gorm.DB) {
		sqls = append(sqls, d.Statement.SQL.String())
	})
	require.NoError(t, err)
	return conn, &sqls
}

func TestLocks_RenderForUpdateOnPostgres(t *testing.T) {
	conn, sqls := dryRunPostgres(t)

	_, _ = Inventory{}.Lock(conn, 7)
	_, _ = lockSale(conn, 3)

	require.Len(t, *sqls, 2)
	assert.Contains(t, (*sqls)[0], `FROM "products"`)
	assert.Contains(t, (*sqls)[0], "FOR UPDATE")
	assert.Contains(t, (*sqls)[1], `FROM "sales"`)
	assert.Contains(t, (*sqls)[1], "FOR UPDATE")
}

func TestSaleOperations_LockSaleThenProduct(t *testing.T) {
	f := newSaleFixture(t)
	locks := recordLocks(t, f.db)
	ctx := context.Background()
	p := createProduct(t, f.db, "Teh", "2000", "5000", 10)
	sale := f.draft(t)

	item := f.add(t, sale.ID, p.ID, 2, "0")
	assert.Equal(t, []string{"sales", "products"}, locks.locked())

	_, err := f.sales.RemoveItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"sales", "products", "sales", "sale_items", "products"}, locks.locked())

	f.add(t, sale.ID, p.ID, 1, "0")
	_, err = f.sales.Cancel(ctx, sale.ID)
	require.NoError(t, err)
	got := locks.locked()
	assert.Equal(t, []string{"sales", "products"}, got[len(got)-2:])
}

func TestStockAdd_LocksProduct(t *testing.T) {
	conn := newTestDB(t)
	locks := recordLocks(t, conn)
	clerk := createUser(t, conn, "gudang")
	p := createProduct(t, conn, "Gula", "10000", "14000", 0)

	_, err := NewStockService(conn).Add(context.Background(), StockAdditionInput{ProductID: p.ID, UserID: clerk.ID, Quantity: 3})
	require.NoError(t, err)
	// Add locks the row to read it, then Adjust re-locks inside the same transaction.
	assert.Equal(t, []string{"products", "products"}, locks.locked())
}
