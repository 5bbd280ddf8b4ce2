package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/diewo77/bar-stock/internal/catalog"
	"github.com/diewo77/bar-stock/internal/config"
	"github.com/diewo77/bar-stock/internal/db"
	"github.com/diewo77/bar-stock/internal/ledger"
	"github.com/diewo77/bar-stock/internal/store"
	"github.com/diewo77/bar-stock/internal/view"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Seed the demo catalog and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()
	shop := config.LoadShop(cfg.App.ShopFile)
	view.SetLocation(time.Local)

	ctx := context.Background()

	var conn *gorm.DB
	if usesSQL(cfg.Store) {
		var err error
		conn, err = db.Open(cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if *migrateOnlyFlag || cfg.App.Migrations {
			if err := db.Migrate(conn, cfg.Database, cfg.App.Migrations); err != nil {
				log.Fatalf("Migration failed: %v", err)
			}
			log.Println("Migrations completed")
		} else if err := db.Migrate(conn, cfg.Database, false); err != nil {
			log.Fatalf("Schema check failed: %v", err)
		}
	}
	if *migrateOnlyFlag {
		return
	}

	kv, err := store.Open(ctx, cfg.Store, conn)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	products := catalog.New(kv)
	products.Load(ctx)
	invoices := ledger.New(kv)
	invoices.Load(ctx)

	if *seedOnlyFlag || cfg.App.Seed {
		n := products.Seed(ctx)
		log.Printf("Seeded %d demo products", n)
		if *seedOnlyFlag {
			return
		}
	}

	app, err := NewApp(kv, products, invoices, shop, time.Local)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      withLogging(app),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on port %s (store=%s dev=%v)", cfg.Server.Port, cfg.Store.Backend, cfg.App.Dev)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Server stopped gracefully")
}

// usesSQL reports whether the snapshot store lives in the gorm database.
func usesSQL(cfg config.StoreConfig) bool {
	b := strings.ToLower(cfg.Backend)
	return b == "" || b == "sql"
}

// withLogging adds request logging middleware.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
