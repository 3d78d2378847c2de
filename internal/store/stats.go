package store

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/franz/sparkify/internal/catalog"
	"github.com/franz/sparkify/internal/report"
)

// TableCount is the row count of one warehouse table
type TableCount struct {
	Table string
	Rows  int64
}

// RowCounts counts the rows of every warehouse table, in batch order.
// Counts run concurrently where the connection pool allows it.
func (s *Store) RowCounts(ctx context.Context) ([]TableCount, error) {
	tables := catalog.Tables()
	counts := make([]TableCount, len(tables))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, t := range tables {
		g.Go(func() error {
			var n int64
			// Table names are catalog constants, never user input.
			err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.Name).Scan(&n)
			if err != nil {
				return fmt.Errorf("failed to count %s: %w", t.Name, err)
			}
			counts[i] = TableCount{Table: t.Name, Rows: n}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		warnEventLog(s.events.LogError(report.EventCheck, string(s.cat.Dialect), "", err))
		return nil, err
	}
	return counts, nil
}

// CountRows counts the rows of a single warehouse table
func (s *Store) CountRows(ctx context.Context, table string) (int64, error) {
	if _, ok := catalog.LookupTable(table); !ok {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int64
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		err = fmt.Errorf("failed to count %s: %w", table, err)
		warnEventLog(s.events.LogError(report.EventCheck, string(s.cat.Dialect), table, err))
		return 0, err
	}
	return n, nil
}
