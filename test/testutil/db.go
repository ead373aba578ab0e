package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/xxxsen/mag7qa/internal/config"
	"github.com/xxxsen/mag7qa/internal/db"
)

func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	ctx := context.Background()
	conn, err := db.Open(ctx, config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     "mag7qa",
		Password: "mag7qa_pass",
		DBName:   "mag7qa_test",
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(ctx, conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return conn, func() {
		_, _ = conn.ExecContext(ctx, "DELETE FROM qa_logs")
		_, _ = conn.ExecContext(ctx, "DELETE FROM embedding_cache")
		_ = conn.Close()
	}
}
