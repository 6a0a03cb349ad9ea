package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/storage/database"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// OpenDB creates, migrates then empties the test database.
// The test is skipped when $TEST_DATABASE_HOST is not set.
func OpenDB(t *testing.T) *sql.DB {
	host := os.Getenv("TEST_DATABASE_HOST")
	if host == "" {
		t.Skip("TEST_DATABASE_HOST not set")
	}

	conf := NewConfig()
	conf.Database = core.DatabaseConfig{
		Engine:        "postgres",
		Host:          host,
		Port:          getenv("TEST_DATABASE_PORT", "5432"),
		Name:          getenv("TEST_DATABASE_NAME", "mahudhurio_test"),
		User:          getenv("TEST_DATABASE_USER", "mahudhurio"),
		Password:      getenv("TEST_DATABASE_PASSWORD", "mahudhurio"),
		AdminUser:     getenv("TEST_DATABASE_ADMINUSER", "postgres"),
		AdminPassword: getenv("TEST_DATABASE_ADMINPASSWORD", "postgres"),
		DisableTLS:    true,
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	db, err := database.Setup(ctx, conf)
	if err != nil {
		t.Fatalf("OpenDB(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ResetDB(t, db)
	return db
}

// ResetDB deletes all the data.
func ResetDB(t *testing.T, db *sql.DB) {
	if _, err := db.Exec(`TRUNCATE "attendance_records", "audit_logs"`); err != nil {
		t.Fatalf("ResetDB(): %v", err)
	}
}
