package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/diewo77/bar-stock/internal/config"
	"github.com/diewo77/bar-stock/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSQL(t *testing.T) *SQL {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.KVEntry{}))
	return NewSQL(db)
}

type sample struct {
	Name string `json:"name"`
	N    int    `json:"n"`
}

func exerciseKV(t *testing.T, kv KV) {
	ctx := context.Background()
	fallback := []sample{{Name: "fallback"}}

	got := Load(ctx, kv, "missing", fallback)
	assert.Equal(t, fallback, got, "absent key returns fallback")

	require.NoError(t, Save(ctx, kv, "k", []sample{{Name: "a", N: 1}}))
	assert.Equal(t, []sample{{Name: "a", N: 1}}, Load(ctx, kv, "k", fallback))

	require.NoError(t, Save(ctx, kv, "k", []sample{{Name: "b", N: 2}}))
	assert.Equal(t, []sample{{Name: "b", N: 2}}, Load(ctx, kv, "k", fallback), "save overwrites")

	require.NoError(t, kv.Put(ctx, "broken", []byte("{not json")))
	assert.Equal(t, fallback, Load(ctx, kv, "broken", fallback), "unparsable returns fallback")

	require.NoError(t, Save(ctx, kv, KeyShowSKU, true))
	assert.True(t, Load(ctx, kv, KeyShowSKU, false))
}

func TestMemoryKV(t *testing.T) {
	exerciseKV(t, NewMemory())
}

func TestSQLKV(t *testing.T) {
	exerciseKV(t, setupSQL(t))
}

func TestRedisKV(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	kv := NewRedis(client, "test:"+t.Name()+":")
	exerciseKV(t, kv)
}

type failingKV struct{ err error }

func (f failingKV) Get(context.Context, string) ([]byte, bool, error) { return nil, false, f.err }
func (f failingKV) Put(context.Context, string, []byte) error         { return f.err }

func TestLoadReadErrorFallsBack(t *testing.T) {
	kv := failingKV{err: errors.New("disk gone")}
	assert.Equal(t, 7, Load(context.Background(), kv, "x", 7))
	err := Save(context.Background(), kv, "x", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write x")
}

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()
	kv, err := Open(ctx, config.StoreConfig{Backend: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, kv)

	_, err = Open(ctx, config.StoreConfig{Backend: "sql"}, nil)
	require.Error(t, err)

	_, err = Open(ctx, config.StoreConfig{Backend: "etcd"}, nil)
	require.ErrorIs(t, err, ErrUnknownBackend)
}

func TestPing(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, Ping(ctx, NewMemory()))
	assert.NoError(t, Ping(ctx, setupSQL(t)))
}
