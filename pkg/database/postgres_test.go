package database

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestDefaultPostgresConfig(t *testing.T) {
	cfg := DefaultPostgresConfig()

	if cfg.Database != "slotwise" {
		t.Errorf("database = %q, want slotwise", cfg.Database)
	}
	if cfg.Host != "localhost" || cfg.Port != 5432 {
		t.Errorf("address = %s:%d, want localhost:5432", cfg.Host, cfg.Port)
	}
	if cfg.MaxConns <= cfg.MinConns {
		t.Errorf("pool bounds = [%d, %d], want min below max", cfg.MinConns, cfg.MaxConns)
	}
	if cfg.MaxRetries == 0 || cfg.RetryInterval == 0 {
		t.Error("connect retries disabled by default")
	}
}

func TestDSN(t *testing.T) {
	cfg := &PostgresConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "slotwise",
		Password: "secret",
		Database: "slotwise",
		SSLMode:  "require",
	}
	want := "host=db.internal port=5433 user=slotwise password=secret dbname=slotwise sslmode=require"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}

func TestNewPostgresUnreachableHost(t *testing.T) {
	cfg := DefaultPostgresConfig()
	cfg.Host = "unreachable.invalid"
	cfg.MaxRetries = 0
	cfg.ConnectTimeout = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := NewPostgres(ctx, cfg); err == nil {
		t.Error("connect to unreachable host succeeded, want error")
	}
}

func TestNewPostgresCanceledContext(t *testing.T) {
	cfg := DefaultPostgresConfig()
	cfg.Host = "unreachable.invalid"
	cfg.MaxRetries = 3
	cfg.RetryInterval = time.Hour // only a canceled context can end the retry loop

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewPostgres(ctx, cfg); err == nil {
		t.Error("connect with canceled context succeeded, want error")
	}
}

// testDB connects using TEST_POSTGRES_* overrides, skipping when no database
// is reachable.
func testDB(t *testing.T) *PostgresDB {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("set INTEGRATION_TEST=true to run against a live database")
	}

	cfg := DefaultPostgresConfig()
	if host := os.Getenv("TEST_POSTGRES_HOST"); host != "" {
		cfg.Host = host
	}
	if user := os.Getenv("TEST_POSTGRES_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("TEST_POSTGRES_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("TEST_POSTGRES_DATABASE"); name != "" {
		cfg.Database = name
	}

	db, err := NewPostgres(context.Background(), cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestPostgresRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.HealthCheck(ctx); err != nil {
		t.Fatalf("health check: %v", err)
	}
	if !db.IsConnected(ctx) {
		t.Error("IsConnected = false on a live pool")
	}
	if db.Pool() == nil {
		t.Fatal("Pool() = nil")
	}

	if err := db.Exec(ctx, "CREATE TEMP TABLE holds (id SERIAL PRIMARY KEY, booking_id TEXT)"); err != nil {
		t.Fatalf("create temp table: %v", err)
	}
	if err := db.Exec(ctx, "INSERT INTO holds (booking_id) VALUES ($1)", "bk_1"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var bookingID string
	if err := db.QueryRow(ctx, "SELECT booking_id FROM holds WHERE booking_id = $1", "bk_1").Scan(&bookingID); err != nil {
		t.Fatalf("query: %v", err)
	}
	if bookingID != "bk_1" {
		t.Errorf("booking_id = %q, want bk_1", bookingID)
	}
}

func TestPostgresTransactionCommit(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.Exec(ctx, "CREATE TEMP TABLE counters (n INT)"); err != nil {
		t.Fatalf("create temp table: %v", err)
	}
	tx, err := db.BeginTx(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.Exec(ctx, "INSERT INTO counters (n) VALUES ($1)", 7); err != nil {
		_ = tx.Rollback(ctx)
		t.Fatalf("insert in tx: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	var n int
	if err := db.QueryRow(ctx, "SELECT n FROM counters").Scan(&n); err != nil {
		t.Fatalf("query after commit: %v", err)
	}
	if n != 7 {
		t.Errorf("n = %d, want 7", n)
	}
}
