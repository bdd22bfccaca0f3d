package testutil

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/geo-reservation/internal/database"
)

// OpenInMemoryDB opens an in-memory SQLite database with the reservation
// table in place.  The handle is closed through t.Cleanup.
func OpenInMemoryDB(t *testing.T) *sqlx.DB {
	t.Helper()
	d, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := database.EnsureSchema(context.Background(), d); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return d
}
