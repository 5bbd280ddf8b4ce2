package main

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/diewo77/bar-stock/internal/catalog"
	"github.com/diewo77/bar-stock/internal/config"
	"github.com/diewo77/bar-stock/internal/handlers"
	"github.com/diewo77/bar-stock/internal/httpx"
	"github.com/diewo77/bar-stock/internal/ledger"
	"github.com/diewo77/bar-stock/internal/middleware"
	"github.com/diewo77/bar-stock/internal/printing"
	"github.com/diewo77/bar-stock/internal/services"
	"github.com/diewo77/bar-stock/internal/store"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux     *http.ServeMux
	kv      store.KV
	catalog *catalog.Catalog
	ledger  *ledger.Ledger
	shop    config.Shop
	static  string
	// allowed collects the methods registered per path, for the 405 answers.
	allowed map[string][]string
}

// NewApp wires the catalog and ledger kept in kv to the HTTP handlers.
// Both must already be loaded.
func NewApp(kv store.KV, c *catalog.Catalog, l *ledger.Ledger, shop config.Shop, loc *time.Location) (*App, error) {
	renderer, err := printing.NewRenderer(shop, loc)
	if err != nil {
		return nil, err
	}
	app := &App{
		mux:     http.NewServeMux(),
		kv:      kv,
		catalog: c,
		ledger:  l,
		shop:    shop,
		static:  "static",
		allowed: map[string][]string{},
	}
	ph := handlers.NewProductHandler(c, shop)
	ih := handlers.NewInvoiceHandler(l, ledger.NewDrafts(), c, services.NewStockService(c, l), services.NewInvoiceService(), renderer, shop)
	app.setupRoutes(ph, ih)
	return app, nil
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler := withRecover(middleware.WithPrefs(a.mux))
	handler.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes(ph *handlers.ProductHandler, ih *handlers.InvoiceHandler) {
	// ─────────────────────────────────────────────────────────────────────────
	// Health
	// ─────────────────────────────────────────────────────────────────────────
	a.route("GET", "/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	a.route("GET", "/healthz", a.healthz)

	// ─────────────────────────────────────────────────────────────────────────
	// Stock
	// ─────────────────────────────────────────────────────────────────────────
	a.route("GET", "/{$}", handlers.Root)
	a.route("GET", "/stock", ph.Page)
	a.route("GET", "/products", ph.List)
	a.route("POST", "/products", ph.Save)
	a.route("POST", "/products/delete", ph.Delete)
	a.route("POST", "/products/stock", ph.Stock)
	a.route("POST", "/products/print-qty", ph.PrintQty)
	a.route("POST", "/products/image", ph.Image)
	a.route("POST", "/products/reset", ph.Reset)
	a.route("POST", "/prefs/sku", ph.ToggleSKU)

	// ─────────────────────────────────────────────────────────────────────────
	// Invoices
	// ─────────────────────────────────────────────────────────────────────────
	a.route("GET", "/invoices", ih.List)
	a.route("POST", "/invoices", ih.Save)
	a.route("POST", "/invoices/new", ih.New)
	a.route("GET", "/invoices/edit", ih.Edit)
	a.route("POST", "/invoices/lines", ih.Lines)
	a.route("POST", "/invoices/apply", ih.Apply)
	a.route("POST", "/invoices/delete", ih.Delete)
	a.route("POST", "/invoices/close", ih.Close)
	a.route("GET", "/invoices/print", ih.Print)
	a.route("POST", "/invoices/print", ih.Print)
	a.route("GET", "/invoices/pdf", ih.PDF)

	// ─────────────────────────────────────────────────────────────────────────
	// Static files
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(a.static))))

	a.rejectOtherMethods()
}

func (a *App) route(method, path string, h http.HandlerFunc) {
	a.mux.HandleFunc(method+" "+path, h)
	a.allowed[path] = append(a.allowed[path], method)
}

// rejectOtherMethods answers any other method on a known path with a JSON 405.
func (a *App) rejectOtherMethods() {
	for path, methods := range a.allowed {
		allow := strings.Join(methods, ", ")
		a.mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			httpx.MethodNotAllowed(w, allow)
		})
	}
}

// healthz reports degraded when the snapshot store cannot be reached.
func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	if err := store.Ping(r.Context(), a.kv); err != nil {
		log.Printf("[health] store unreachable: %v", err)
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"products": len(a.catalog.List()),
		"invoices": len(a.ledger.List()),
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[panic] %s %s: %v", r.Method, r.URL.Path, rec)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
