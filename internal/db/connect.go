package db

import (
	"fmt"
	"time"

	"github.com/diewo77/go-pos/internal/config"
	"github.com/diewo77/go-pos/internal/logging"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens PostgreSQL, retrying while the server comes up.
func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logging.Gorm(log, cfg.Debug)}
	log.Info("connecting to database",
		zap.String("host", cfg.Host), zap.Int("port", cfg.Port),
		zap.String("dbname", cfg.DBName), zap.String("user", cfg.User))

	var conn *gorm.DB
	var err error
	for i := 1; i <= cfg.Retries; i++ {
		conn, err = gorm.Open(postgres.Open(cfg.DSN()), gcfg)
		if err == nil {
			break
		}
		log.Warn("database not ready, retrying", zap.Int("attempt", i), zap.Error(err))
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect database after %d attempts: %w", cfg.Retries, err)
	}
	if err := Ping(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// Ping runs a trivial query.
func Ping(conn *gorm.DB) error {
	if err := conn.Exec("SELECT 1").Error; err != nil {
		return fmt.Errorf("db ping failed: %w", err)
	}
	return nil
}
