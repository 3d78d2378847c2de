package store

import (
	"context"
	"fmt"
	"time"

	"github.com/franz/sparkify/internal/catalog"
	"github.com/franz/sparkify/internal/report"
	"github.com/franz/sparkify/internal/util"
)

// ProgressFunc is called after each batch statement succeeds
type ProgressFunc func(st catalog.Statement)

// CreateTables runs the create batch. Tables that already exist are left
// untouched.
func (s *Store) CreateTables(ctx context.Context, progress ProgressFunc) error {
	return s.execBatch(ctx, s.cat.CreateTableQueries(), progress)
}

// DropTables runs the drop batch. Missing tables are not an error.
func (s *Store) DropTables(ctx context.Context, progress ProgressFunc) error {
	return s.execBatch(ctx, s.cat.DropTableQueries(), progress)
}

// Reset drops every warehouse table and creates it again, empty
func (s *Store) Reset(ctx context.Context, progress ProgressFunc) error {
	if err := s.DropTables(ctx, progress); err != nil {
		return err
	}
	return s.CreateTables(ctx, progress)
}

func (s *Store) execBatch(ctx context.Context, queries []string, progress ProgressFunc) error {
	for _, st := range catalog.Batch(queries) {
		start := time.Now()
		_, err := s.conn.ExecContext(ctx, st.SQL)
		elapsed := time.Since(start)

		s.metrics.ObserveStatement(string(st.Kind), st.Table, elapsed, err)
		warnEventLog(s.events.LogStatement(report.EventType(st.Kind), string(s.cat.Dialect), st.Table, st.SQL, elapsed, err))

		if err != nil {
			return fmt.Errorf("failed to %s table %s: %w", st.Kind, st.Table, err)
		}
		util.DebugLog("%s %s (%v)", st.Kind, st.Table, elapsed)

		if progress != nil {
			progress(st)
		}
	}
	return nil
}

// TableExists reports whether the named table exists in the warehouse
func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	var query string
	switch s.cat.Dialect {
	case catalog.SQLite:
		query = "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	case catalog.Postgres:
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1"
	case catalog.DuckDB:
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?"
	}

	var count int
	if err := s.conn.QueryRowContext(ctx, query, name).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", name, err)
	}
	return count > 0, nil
}

// MissingTables returns the warehouse tables that do not exist, in batch order
func (s *Store) MissingTables(ctx context.Context) ([]string, error) {
	var missing []string
	for _, t := range catalog.Tables() {
		ok, err := s.TableExists(ctx, t.Name)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, t.Name)
		}
	}
	return missing, nil
}

// RequireSchema returns util.ErrSchemaMissing if any warehouse table is absent
func (s *Store) RequireSchema(ctx context.Context) error {
	missing, err := s.MissingTables(ctx)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		warnEventLog(s.events.LogSchemaCheck(string(s.cat.Dialect), missing))
		return fmt.Errorf("%w: %v", util.ErrSchemaMissing, missing)
	}
	return nil
}

// warnEventLog reports a failed audit write without failing the operation
func warnEventLog(err error) {
	if err != nil {
		util.WarnLog("Failed to write event log: %v", err)
	}
}
