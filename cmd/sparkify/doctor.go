package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/sparkify/internal/catalog"
	"github.com/franz/sparkify/internal/store"
	"github.com/franz/sparkify/internal/util"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the configuration and warehouse",
	Long: `Run diagnostic checks to ensure sparkify can reach the warehouse.

This command checks:
- The configured dialect
- The embedded SQLite library
- Database file or server accessibility and engine version
- That all five warehouse tables exist
- SQLite integrity (sqlite only)

Use this command to troubleshoot issues before running the ETL job.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== Sparkify Doctor - Warehouse Diagnostics ===")
	util.InfoLog("")

	results := []checkResult{}

	// 1. Check dialect
	dialect, err := configDialect()
	results = append(results, checkDialect(dialect, err))

	// 2. Check embedded SQLite
	results = append(results, checkSQLite())

	// 3. Check database, schema and integrity
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		results = append(results, checkWarehouse(ctx, dialect, viper.GetString("db"))...)
	}

	// Print results
	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	// Summary
	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("❌ Some critical checks failed. Please resolve errors before loading data.")
		return fmt.Errorf("warehouse diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("⚠️  Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("✅ All checks passed! Warehouse is ready for loading.")
	}

	return nil
}

func checkDialect(dialect catalog.Dialect, err error) checkResult {
	if err != nil {
		return checkResult{
			name:    "Dialect",
			error:   true,
			message: err.Error(),
		}
	}
	return checkResult{
		name:    "Dialect",
		message: string(dialect),
	}
}

// checkSQLite verifies the embedded SQLite library
func checkSQLite() checkResult {
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{
			name:    "SQLite",
			error:   true,
			message: "unable to determine version",
		}
	}

	return checkResult{
		name:    "SQLite",
		message: fmt.Sprintf("version %s (built-in)", version),
	}
}

// checkWarehouse opens the warehouse and checks connectivity, schema and
// integrity. A missing database file only produces a warning since create
// will make it.
func checkWarehouse(ctx context.Context, dialect catalog.Dialect, dsn string) []checkResult {
	if strings.TrimSpace(dsn) == "" && dialect != catalog.DuckDB {
		return []checkResult{{
			name:    "Database",
			warning: true,
			message: "no database specified (use --db flag, SPARKIFY_DB or config)",
		}}
	}

	var sizeNote string
	if dialect != catalog.Postgres && dsn != "" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		info, err := os.Stat(dsn)
		switch {
		case os.IsNotExist(err):
			return []checkResult{{
				name:    "Database",
				warning: true,
				message: fmt.Sprintf("%s does not exist (run 'sparkify create')", dsn),
			}}
		case err != nil:
			return []checkResult{{
				name:    "Database",
				error:   true,
				message: fmt.Sprintf("cannot access %s: %v", dsn, err),
			}}
		case !info.Mode().IsRegular():
			return []checkResult{{
				name:    "Database",
				error:   true,
				message: fmt.Sprintf("%s is not a regular file", dsn),
			}}
		}
		sizeNote = ", " + humanize.Bytes(uint64(info.Size()))
	}

	s, err := store.OpenWithOptions(ctx, dsn, &store.OpenOptions{
		Dialect: dialect,
		Retry:   &util.RetryConfig{MaxAttempts: 1},
	})
	if err != nil {
		return []checkResult{{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", redactDSN(dsn), err),
		}}
	}
	defer s.Close()

	results := []checkResult{}

	version, err := s.Version(ctx)
	if err != nil {
		results = append(results, checkResult{
			name:    "Database",
			warning: true,
			message: fmt.Sprintf("connected, but %v", err),
		})
	} else {
		results = append(results, checkResult{
			name:    "Database",
			message: fmt.Sprintf("%s (%s %s%s)", redactDSN(dsn), dialect, version, sizeNote),
		})
	}

	results = append(results, checkSchema(ctx, s))
	results = append(results, checkIntegrity(ctx, s))

	return results
}

// checkSchema verifies every warehouse table exists
func checkSchema(ctx context.Context, s *store.Store) checkResult {
	missing, err := s.MissingTables(ctx)
	if err != nil {
		return checkResult{
			name:    "Schema",
			error:   true,
			message: err.Error(),
		}
	}

	if len(missing) > 0 {
		return checkResult{
			name:    "Schema",
			warning: true,
			message: fmt.Sprintf("missing %s (run 'sparkify create')", strings.Join(missing, ", ")),
		}
	}

	counts, err := s.RowCounts(ctx)
	if err != nil {
		return checkResult{
			name:    "Schema",
			error:   true,
			message: err.Error(),
		}
	}

	var facts int64
	for _, c := range counts {
		if c.Table == catalog.SongplaysTable {
			facts = c.Rows
		}
	}

	return checkResult{
		name:    "Schema",
		message: fmt.Sprintf("%d tables present, %s songplays", len(counts), humanize.Comma(facts)),
	}
}

// checkIntegrity runs the engine's integrity check where one exists
func checkIntegrity(ctx context.Context, s *store.Store) checkResult {
	err := s.CheckIntegrity(ctx)
	switch {
	case errors.Is(err, util.ErrUnsupported):
		return checkResult{
			name:    "Integrity",
			message: fmt.Sprintf("not checked on %s", s.Dialect()),
		}
	case err != nil:
		return checkResult{
			name:    "Integrity",
			error:   true,
			message: err.Error(),
		}
	}
	return checkResult{
		name:    "Integrity",
		message: "ok",
	}
}
