package db

import (
	"context"
	"path/filepath"
	"testing"
)

// OpenTestSQLite opens a migrated Pool in t.TempDir() and registers cleanup.
func OpenTestSQLite(t *testing.T) *Pool {
	t.Helper()

	pool, err := Open(filepath.Join(t.TempDir(), "test.sqlite"), 4)
	if err != nil {
		t.Fatalf("open test sqlite: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })

	if err := RunMigrations(context.Background(), pool.Write, nil); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return pool
}
