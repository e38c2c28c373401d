//go:build integration
// +build integration

package mutationcache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/huykn/mutation-cache/shopper"
	"github.com/huykn/mutation-cache/types"
)

func newRedisEngine(t *testing.T, prefix string) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Registry = shopper.CustomerMutations()
	cfg.StoreBackend = BackendRedis
	cfg.RedisAddr = "localhost:6379"
	cfg.RedisDB = 1
	cfg.RedisKeyPrefix = prefix
	cfg.MetricsRegisterer = prometheus.NewRegistry()

	engine, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	return engine
}

// TestIntegrationSharedStore tests that a mutation on one instance is seen by
// another instance reading the same Redis store.
func TestIntegrationSharedStore(t *testing.T) {
	prefix := fmt.Sprintf("mutationcache:it:%d:", time.Now().UnixNano())
	e1 := newRedisEngine(t, prefix)
	e2 := newRedisEngine(t, prefix)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	k := shopper.CustomerKey("123")
	fetch := func(context.Context) (any, error) {
		return map[string]any{"email": "old@b.com"}, nil
	}
	if _, err := e1.Fetch(ctx, k, fetch); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	// Instance 2 updates the customer.
	if _, err := e2.Mutate(ctx, shopper.UpdateCustomer, map[string]any{"id": "123"},
		func(context.Context) (any, error) { return map[string]any{"email": "a@b.com"}, nil }); err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	// Instance 1 reads the new value without refetching.
	value, err := e1.Fetch(ctx, k, func(context.Context) (any, error) {
		t.Fatal("Fresh entry should not be refetched")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if value.(map[string]any)["email"] != "a@b.com" {
		t.Fatalf("Expected updated email, got %v", value)
	}
}

// TestIntegrationInvalidateAndRemove tests the scan-based steps against Redis.
func TestIntegrationInvalidateAndRemove(t *testing.T) {
	prefix := fmt.Sprintf("mutationcache:it:%d:", time.Now().UnixNano())
	engine := newRedisEngine(t, prefix)
	store := engine.Store()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store.Set(ctx, shopper.CustomerKey("123"), "profile")
	store.Set(ctx, shopper.AddressKey("123", "9"), "home")
	store.Set(ctx, shopper.AddressKey("123", "10"), "work")
	defer store.RemoveWhere(ctx, func(Key) bool { return true })

	if err := engine.Sync(ctx, shopper.DeleteAddress, map[string]any{"customerId": "123", "addressId": "9"}, nil); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if _, found, _ := store.Get(ctx, shopper.AddressKey("123", "9")); found {
		t.Fatal("Deleted address should be absent")
	}
	entry, found, err := store.Get(ctx, shopper.AddressKey("123", "10"))
	if err != nil || !found || entry.State != types.Stale {
		t.Fatalf("Expected remaining address to be stale, got %+v (err=%v)", entry, err)
	}

	stats := engine.Stats()
	if stats.Invalidated != 3 || stats.Removed != 1 {
		t.Fatalf("Unexpected stats %+v", stats)
	}
}
