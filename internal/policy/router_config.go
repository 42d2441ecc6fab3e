package policy

import (
	"time"

	"github.com/diewo77/go-pos/auth"
	"github.com/diewo77/go-pos/internal/handlers"
	"github.com/diewo77/go-pos/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RouterOptions carries what NewRouterConfig needs besides the database.
type RouterOptions struct {
	Tokens       *auth.TokenIssuer
	RoleCacheTTL time.Duration
	// SecureCookies marks the jwt_token cookie Secure.
	SecureCookies bool
	Log           *zap.Logger
}

// RouterConfig holds configured handlers and middleware for the application.
type RouterConfig struct {
	// AuthGate provides authorization checks and middleware
	AuthGate *AuthGate
	// Authenticator resolves bearer tokens into request identities
	Authenticator *auth.Authenticator

	AuthHandler          *handlers.AuthHandler
	UserHandler          *handlers.UserHandler
	RoleHandler          *handlers.RoleHandler
	CategoryHandler      *handlers.CategoryHandler
	ProductHandler       *handlers.ProductHandler
	StockAdditionHandler *handlers.StockAdditionHandler
	PaymentHandler       *handlers.PaymentHandler
	SaleHandler          *handlers.SaleHandler
	ReportHandler        *handlers.ReportHandler

	Users *services.UserService
}

// NewRouterConfig wires services, handlers and the authorization gate
// over db.
//
//	cfg := policy.NewRouterConfig(db, policy.RouterOptions{Tokens: issuer, RoleCacheTTL: 5 * time.Minute, Log: log})
//	mux.Handle("GET /products", cfg.AuthGate.RequirePermission("product", gate.ActionList)(http.HandlerFunc(cfg.ProductHandler.List)))
func NewRouterConfig(db *gorm.DB, opts RouterOptions) *RouterConfig {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	ttl := opts.RoleCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	authGate := NewAuthGate(db, ttl)

	users := services.NewUserService(db)
	catalog := services.NewCatalogService(db)
	stock := services.NewStockService(db)
	payments := services.NewPaymentService(db)
	sales := services.NewSaleService(db, log.Named("sales"))
	reports := services.NewReportService(db)
	roles := services.NewRoleService(db)

	authHandler := handlers.NewAuthHandler(users, opts.Tokens, log)
	authHandler.Secure = opts.SecureCookies

	return &RouterConfig{
		AuthGate: authGate,
		Authenticator: &auth.Authenticator{
			Tokens:  opts.Tokens,
			Verify:  users.Exists,
			Revoked: users.IsRevoked,
		},
		AuthHandler:          authHandler,
		UserHandler:          handlers.NewUserHandler(users, authGate, log),
		RoleHandler:          handlers.NewRoleHandler(roles, authGate, log),
		CategoryHandler:      handlers.NewCategoryHandler(catalog, log),
		ProductHandler:       handlers.NewProductHandler(catalog, stock, log),
		StockAdditionHandler: handlers.NewStockAdditionHandler(stock, log),
		PaymentHandler:       handlers.NewPaymentHandler(payments, log),
		SaleHandler:          handlers.NewSaleHandler(sales, authGate, log),
		ReportHandler:        handlers.NewReportHandler(reports, log),
		Users:                users,
	}
}
