package database

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"campusrx/m/internal/config"
	"campusrx/m/internal/migrations"
)

var testDBSeq atomic.Int64

// NewTestDB opens a private in-memory SQLite database with the schema applied.
func NewTestDB(t testing.TB) *sqlx.DB {
	t.Helper()

	goose.SetLogger(goose.NopLogger())
	dsn := fmt.Sprintf("file:campusrx_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := Connect(config.DBConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Up(context.Background(), db, "sqlite"); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}
