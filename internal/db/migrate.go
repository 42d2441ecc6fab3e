package db

import (
	"errors"
	"fmt"

	"github.com/diewo77/go-pos/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// Register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"
)

// MigrateOptions selects the migration strategy.
type MigrateOptions struct {
	// SQL runs the versioned files in Dir through golang-migrate against URL.
	// Otherwise the schema is derived with GORM AutoMigrate (dev and tests).
	SQL bool
	URL string
	Dir string
}

// Models lists every persisted model in dependency order.
func Models() []any {
	return []any{
		&models.Permission{}, &models.Role{}, &models.User{}, &models.RevokedToken{},
		&models.Category{}, &models.Product{}, &models.StockAddition{},
		&models.Payment{}, &models.Sale{}, &models.SaleItem{},
	}
}

var requiredTables = []string{"roles", "users", "products", "sales", "sale_items", "payments"}

// Migrate brings the schema up to date and checks the core tables exist.
func Migrate(conn *gorm.DB, opts MigrateOptions) error {
	if opts.SQL {
		if err := runSQLMigrations(opts.Dir, opts.URL); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range Models() {
			if err := conn.AutoMigrate(m); err != nil {
				return fmt.Errorf("automigrate %T: %w", m, err)
			}
		}
	}
	for _, table := range requiredTables {
		if !conn.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// runSQLMigrations applies dir (default ./migrations) with golang-migrate.
func runSQLMigrations(dir, url string) error {
	if dir == "" {
		dir = "migrations"
	}
	m, err := migrate.New("file://"+dir, url)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
