// Package store persists JSON snapshots under string keys.
//
// It is the server-side replacement for browser local storage: each top-level
// collection is one value, rewritten in full on every change.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/diewo77/bar-stock/internal/config"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Snapshot keys.
const (
	KeyProducts = "bar_products"
	KeyInvoices = "bar_invoices"
	KeyShowSKU  = "bar_showSku"
)

// ErrUnknownBackend is returned by Open for an unsupported STORE_BACKEND.
var ErrUnknownBackend = errors.New("unknown_store_backend")

// KV is the minimal byte-level contract a backend has to offer.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Load returns the value saved under key, or fallback when it is absent or
// cannot be read or decoded. Decoding failures are logged and swallowed.
func Load[T any](ctx context.Context, kv KV, key string, fallback T) T {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		log.Printf("[store] read %s failed, using fallback: %v", key, err)
		return fallback
	}
	if !ok || len(raw) == 0 {
		return fallback
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		log.Printf("[store] %s unparsable, using fallback: %v", key, err)
		return fallback
	}
	return v
}

// Save serializes value and overwrites whatever was stored under key.
func Save[T any](ctx context.Context, kv KV, key string, value T) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := kv.Put(ctx, key, b); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Open builds the backend selected in cfg. conn is only used by the sql backend.
func Open(ctx context.Context, cfg config.StoreConfig, conn *gorm.DB) (KV, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "sql":
		if conn == nil {
			return nil, errors.New("sql store requires a database connection")
		}
		return NewSQL(conn), nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		return NewRedis(client, ""), nil
	case "memory":
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks that the backend is reachable. Backends without a remote side
// are always healthy.
func Ping(ctx context.Context, kv KV) error {
	if p, ok := kv.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
