//go:build integration

package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/go-redis/redis/v8"
)

// RedisAddr returns the address of the test Redis instance, or skips the
// test when OOBWATCH_TEST_REDIS_ADDR is not set.
func RedisAddr(t *testing.T) string {
	t.Helper()

	addr := os.Getenv("OOBWATCH_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("OOBWATCH_TEST_REDIS_ADDR not set: run a local Redis and export it first")
	}
	return addr
}

// FlushDB flushes a specific Redis database.
func FlushDB(t *testing.T, addr string, db int) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	defer client.Close()

	if err := client.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("flushing DB %d: %v", db, err)
	}
}

// SeedFDBTable writes FDB_TABLE hash entries into a STATE_DB-shaped
// Redis database. Keys map "Vlan100:aa:bb:cc:dd:ee:01" style suffixes
// to their hash fields ("port", "type", optionally "remote_vtep").
func SeedFDBTable(t *testing.T, addr string, db int, entries map[string]map[string]string) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	defer client.Close()

	ctx := context.Background()
	for key, fields := range entries {
		args := make([]interface{}, 0, len(fields)*2)
		for k, v := range fields {
			args = append(args, k, v)
		}
		if err := client.HSet(ctx, "FDB_TABLE|"+key, args...).Err(); err != nil {
			t.Fatalf("seeding FDB_TABLE|%s: %v", key, err)
		}
	}
}
