package main

import (
	"net/http"

	"github.com/diewo77/go-pos/auth"
	"github.com/diewo77/go-pos/gate"
	"github.com/diewo77/go-pos/httpx"
	"github.com/diewo77/go-pos/internal/db"
	"github.com/diewo77/go-pos/internal/policy"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux       *http.ServeMux
	db        *gorm.DB
	routerCfg *policy.RouterConfig
	log       *zap.Logger
}

// NewApp creates a new application with all routes configured.
func NewApp(conn *gorm.DB, routerCfg *policy.RouterConfig, log *zap.Logger) *App {
	app := &App{
		mux:       http.NewServeMux(),
		db:        conn,
		routerCfg: routerCfg,
		log:       log,
	}
	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler := withRecover(a.log, a.routerCfg.Authenticator.Middleware(a.mux))
	handler.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	// Public routes
	ah := a.routerCfg.AuthHandler

	a.mux.HandleFunc("GET /health", a.health)
	a.mux.HandleFunc("GET /healthz", a.healthz)
	a.mux.HandleFunc("POST /auth/login", ah.Login)
	a.mux.HandleFunc("POST /auth/refresh", ah.Refresh)

	// Authenticated routes
	a.mux.Handle("GET /auth/me", auth.RequireAuth(http.HandlerFunc(ah.Me)))
	a.mux.Handle("POST /auth/logout", auth.RequireAuth(http.HandlerFunc(ah.Logout)))
	a.mux.Handle("POST /auth/change-password", auth.RequireAuth(http.HandlerFunc(ah.ChangePassword)))

	// Catalog
	ch := a.routerCfg.CategoryHandler
	a.mux.Handle("GET /categories",
		a.requirePermission(policy.ResourceCategory, gate.ActionList)(http.HandlerFunc(ch.List)))
	a.mux.Handle("POST /categories",
		a.requirePermission(policy.ResourceCategory, gate.ActionCreate)(http.HandlerFunc(ch.Create)))
	a.mux.Handle("PUT /categories/{id}",
		a.requirePermission(policy.ResourceCategory, gate.ActionUpdate)(http.HandlerFunc(ch.Update)))
	a.mux.Handle("DELETE /categories/{id}",
		a.requirePermission(policy.ResourceCategory, gate.ActionDelete)(http.HandlerFunc(ch.Delete)))

	ph := a.routerCfg.ProductHandler
	a.mux.Handle("GET /products",
		a.requirePermission(policy.ResourceProduct, gate.ActionList)(http.HandlerFunc(ph.List)))
	a.mux.Handle("POST /products",
		a.requirePermission(policy.ResourceProduct, gate.ActionCreate)(http.HandlerFunc(ph.Create)))
	a.mux.Handle("GET /products/{id}",
		a.requirePermission(policy.ResourceProduct, gate.ActionView)(http.HandlerFunc(ph.Get)))
	a.mux.Handle("PUT /products/{id}",
		a.requirePermission(policy.ResourceProduct, gate.ActionUpdate)(http.HandlerFunc(ph.Update)))
	a.mux.Handle("DELETE /products/{id}",
		a.requirePermission(policy.ResourceProduct, gate.ActionDelete)(http.HandlerFunc(ph.Delete)))
	a.mux.Handle("POST /products/{id}/add_stock",
		a.requirePermission(policy.ResourceStock, gate.ActionCreate)(http.HandlerFunc(ph.AddStock)))

	sah := a.routerCfg.StockAdditionHandler
	a.mux.Handle("GET /stock-additions",
		a.requirePermission(policy.ResourceStock, gate.ActionList)(http.HandlerFunc(sah.List)))
	a.mux.Handle("GET /stock-additions/{id}",
		a.requirePermission(policy.ResourceStock, gate.ActionView)(http.HandlerFunc(sah.Get)))
	a.mux.Handle("POST /stock-additions",
		a.requirePermission(policy.ResourceStock, gate.ActionCreate)(http.HandlerFunc(sah.Create)))

	// Payments
	pay := a.routerCfg.PaymentHandler
	a.mux.Handle("POST /payments",
		a.requirePermission(policy.ResourcePayment, gate.ActionCreate)(http.HandlerFunc(pay.Create)))
	a.mux.Handle("GET /payments/{id}",
		a.requirePermission(policy.ResourcePayment, gate.ActionView)(http.HandlerFunc(pay.Get)))

	// Sales. Creating a draft works without a token (user_id in the body);
	// mutations check permission and ownership against the loaded sale.
	sh := a.routerCfg.SaleHandler
	a.mux.HandleFunc("POST /sales", sh.Create)
	a.mux.Handle("GET /sales",
		a.requirePermission(policy.ResourceSale, gate.ActionList)(http.HandlerFunc(sh.List)))
	a.mux.Handle("GET /sales/{id}",
		a.requirePermission(policy.ResourceSale, gate.ActionView)(http.HandlerFunc(sh.Get)))
	a.mux.Handle("POST /sales/items", auth.RequireAuth(http.HandlerFunc(sh.AddItem)))
	a.mux.Handle("DELETE /sales/items/{item_id}", auth.RequireAuth(http.HandlerFunc(sh.RemoveItem)))
	a.mux.Handle("POST /sales/{id}/items", auth.RequireAuth(http.HandlerFunc(sh.AddItemToSale)))
	a.mux.Handle("POST /sales/{id}/confirm-payment", auth.RequireAuth(http.HandlerFunc(sh.ConfirmPayment)))
	a.mux.Handle("PUT /sales/{id}/discount", auth.RequireAuth(http.HandlerFunc(sh.ApplyDiscount)))
	a.mux.Handle("PUT /sales/{id}/tax", auth.RequireAuth(http.HandlerFunc(sh.SetTax)))
	a.mux.Handle("DELETE /sales/{id}", auth.RequireAuth(http.HandlerFunc(sh.Cancel)))

	// Admin routes
	uh := a.routerCfg.UserHandler
	a.mux.Handle("GET /users", a.requireAdmin(http.HandlerFunc(uh.List)))
	a.mux.Handle("POST /users", a.requireAdmin(http.HandlerFunc(uh.Create)))
	a.mux.Handle("GET /users/{id}", a.requireAdmin(http.HandlerFunc(uh.Get)))
	a.mux.Handle("PUT /users/{id}", a.requireAdmin(http.HandlerFunc(uh.Update)))
	a.mux.Handle("DELETE /users/{id}", a.requireAdmin(http.HandlerFunc(uh.Delete)))

	rh := a.routerCfg.RoleHandler
	a.mux.Handle("GET /roles", a.requireAdmin(http.HandlerFunc(rh.List)))
	a.mux.Handle("GET /permissions", a.requireAdmin(http.HandlerFunc(rh.ListPermissions)))
	a.mux.Handle("PUT /roles/{id}/permissions", a.requireAdmin(http.HandlerFunc(rh.SetPermissions)))

	rep := a.routerCfg.ReportHandler
	a.mux.Handle("GET /reports/sales/range", a.requireAdmin(http.HandlerFunc(rep.SalesRange)))
	a.mux.Handle("GET /reports/sales/daily", a.requireAdmin(http.HandlerFunc(rep.Daily)))
	a.mux.Handle("GET /reports/profit", a.requireAdmin(http.HandlerFunc(rep.Profit)))
	a.mux.Handle("GET /reports/cashiers", a.requireAdmin(http.HandlerFunc(rep.Cashiers)))
	a.mux.Handle("GET /reports/products", a.requireAdmin(http.HandlerFunc(rep.Products)))
	a.mux.Handle("GET /reports/products/slow-moving", a.requireAdmin(http.HandlerFunc(rep.SlowMoving)))
	a.mux.Handle("GET /reports/compare", a.requireAdmin(http.HandlerFunc(rep.ComparePeriods)))
}

// requireAdmin wraps a handler to require the "*:*" permission.
func (a *App) requireAdmin(next http.Handler) http.Handler {
	return a.routerCfg.AuthGate.RequireAdmin()(next)
}

// requirePermission wraps a handler to require specific resource permission.
func (a *App) requirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return a.routerCfg.AuthGate.RequirePermission(resourceType, action)
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// healthz also checks the database.
func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	if err := db.Ping(a.db.WithContext(r.Context())); err != nil {
		a.log.Warn("health check failed", zap.Error(err))
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
