package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "DATABASE_DSN", "STORE_BACKEND", "MIGRATIONS"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port 8080 got %s", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "bar-stock.db" {
		t.Fatalf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.Store.Backend != "sql" {
		t.Fatalf("expected sql backend got %s", cfg.Store.Backend)
	}
	if cfg.App.Migrations {
		t.Fatalf("migrations should default to false")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("MIGRATIONS", "yes")
	t.Setenv("SERVER_READ_TIMEOUT", "abc")
	cfg := Load()
	if cfg.Server.Port != "9090" || cfg.Database.Driver != "postgres" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.Store.RedisDB != 3 {
		t.Fatalf("expected redis db 3 got %d", cfg.Store.RedisDB)
	}
	if !cfg.App.Migrations {
		t.Fatalf("expected migrations enabled")
	}
	if cfg.Server.ReadTimeout != 15 {
		t.Fatalf("invalid int should fall back to default, got %d", cfg.Server.ReadTimeout)
	}
}

func TestLoadShop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shop.toml")
	content := "[shop]\nname = \"Le Comptoir\"\ncontact = \"01 02 03 04 05\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	shop := LoadShop(path)
	if shop.Name != "Le Comptoir" || shop.Contact != "01 02 03 04 05" {
		t.Fatalf("unexpected shop: %+v", shop)
	}
	if shop.Tagline != "Gestion de stock" {
		t.Fatalf("missing key should keep default, got %q", shop.Tagline)
	}
}

func TestLoadShopMissingFile(t *testing.T) {
	shop := LoadShop(filepath.Join(t.TempDir(), "nope.toml"))
	if shop != DefaultShop() {
		t.Fatalf("expected defaults got %+v", shop)
	}
}
