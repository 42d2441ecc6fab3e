package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/go-pos/auth"
	"github.com/diewo77/go-pos/internal/config"
	"github.com/diewo77/go-pos/internal/db"
	"github.com/diewo77/go-pos/internal/logging"
	"github.com/diewo77/go-pos/internal/policy"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logging.New(cfg.App.Dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	dbConn, err := db.Connect(cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if *migrateOnlyFlag {
		if err := migrate(dbConn, cfg); err != nil {
			log.Fatal("migration failed", zap.Error(err))
		}
		log.Info("migrations completed")
		return
	}
	if *seedOnlyFlag {
		if err := seed(dbConn, cfg); err != nil {
			log.Fatal("seeding failed", zap.Error(err))
		}
		log.Info("seeding completed")
		return
	}

	if err := migrate(dbConn, cfg); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
	if cfg.App.Seed {
		if err := seed(dbConn, cfg); err != nil {
			log.Fatal("seeding failed", zap.Error(err))
		}
	}

	routerCfg := policy.NewRouterConfig(dbConn, policy.RouterOptions{
		Tokens:        auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.RefreshTTL),
		RoleCacheTTL:  cfg.Auth.RoleCacheTTL,
		SecureCookies: !cfg.App.Dev,
		Log:           log,
	})
	if n, err := routerCfg.Users.PurgeRevokedTokens(context.Background(), time.Now()); err != nil {
		log.Warn("purging token revocations failed", zap.Error(err))
	} else if n > 0 {
		log.Info("purged expired token revocations", zap.Int64("count", n))
	}
	appHandler := NewApp(dbConn, routerCfg, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      withLogging(log, appHandler),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("port", cfg.Server.Port), zap.Bool("dev", cfg.App.Dev))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
	log.Info("server stopped gracefully")
}

func migrate(conn *gorm.DB, cfg *config.Config) error {
	return db.Migrate(conn, db.MigrateOptions{SQL: cfg.App.Migrations, URL: cfg.Database.URL()})
}

func seed(conn *gorm.DB, cfg *config.Config) error {
	return db.Seed(conn, db.SeedOptions{AdminEmail: cfg.Auth.AdminEmail, AdminPassword: cfg.Auth.AdminPassword})
}
