package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/franz/sparkify/internal/catalog"
	"github.com/franz/sparkify/internal/store"
)

func TestCheckSQLite(t *testing.T) {
	result := checkSQLite()

	if result.error {
		t.Errorf("SQLite check failed: %s", result.message)
	}

	if result.message == "" {
		t.Error("expected version information in message")
	}
}

func TestCheckDialect(t *testing.T) {
	if r := checkDialect(catalog.DuckDB, nil); r.error || r.message != "duckdb" {
		t.Errorf("checkDialect(duckdb) = %+v", r)
	}
	if r := checkDialect("", errors.New("unknown dialect")); !r.error {
		t.Error("expected error result for a bad dialect")
	}
}

func TestCheckWarehouse_NonExistent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nonexistent.db")

	results := checkWarehouse(context.Background(), catalog.SQLite, dbPath)

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].error || !results[0].warning {
		t.Errorf("missing database should warn, got %+v", results[0])
	}

	// The check must not create the file
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Errorf("doctor created %s", dbPath)
	}
}

func TestCheckWarehouse_Existing(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := store.OpenWithOptions(ctx, dbPath, &store.OpenOptions{CreateSchema: true})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := s.InsertSongplay(ctx, &store.Songplay{UserID: "8", Level: "free", SessionID: "139"}); err != nil {
		t.Fatalf("failed to insert songplay: %v", err)
	}
	s.Close()

	results := checkWarehouse(ctx, catalog.SQLite, dbPath)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d: %+v", len(results), results)
	}
	for _, r := range results {
		if r.error || r.warning {
			t.Errorf("%s check failed: %s", r.name, r.message)
		}
	}
	if !strings.Contains(results[1].message, "1 songplays") {
		t.Errorf("schema message should report the songplay count, got %q", results[1].message)
	}
}

func TestCheckWarehouse_MissingTables(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "empty.db")

	s, err := store.Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if _, err := s.DB().ExecContext(ctx, "CREATE TABLE unrelated (id INTEGER)"); err != nil {
		t.Fatalf("failed to write test database: %v", err)
	}
	s.Close()

	results := checkWarehouse(ctx, catalog.SQLite, dbPath)

	var schema *checkResult
	for i := range results {
		if results[i].name == "Schema" {
			schema = &results[i]
		}
	}
	if schema == nil {
		t.Fatal("no schema result")
	}
	if !schema.warning || !strings.Contains(schema.message, "songplays") {
		t.Errorf("expected a warning naming the missing tables, got %+v", *schema)
	}
}

func TestCheckWarehouse_DuckDBInMemory(t *testing.T) {
	results := checkWarehouse(context.Background(), catalog.DuckDB, "")

	for _, r := range results {
		if r.error {
			t.Errorf("%s check failed: %s", r.name, r.message)
		}
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !strings.Contains(results[2].message, "not checked") {
		t.Errorf("integrity on duckdb should be skipped, got %q", results[2].message)
	}
}
