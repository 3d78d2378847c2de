package main

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/franz/sparkify/internal/catalog"
	"github.com/franz/sparkify/internal/store"
	"github.com/franz/sparkify/internal/util"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the warehouse tables if they do not exist",
	Long: `Run the create batch: songplays, users, songs, artists and time.

Existing tables and their rows are left untouched, so running create
twice is safe.`,
	RunE: runSchema(schemaCreate),
}

var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the warehouse tables if they exist",
	Long: `Run the drop batch. Tables that do not exist are skipped.

All rows in the warehouse are lost.`,
	RunE: runSchema(schemaDrop),
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop and recreate the warehouse tables",
	Long: `Run the drop batch followed by the create batch, leaving all five
tables present and empty. This is what the ETL job runs before a full load.`,
	RunE: runSchema(schemaReset),
}

func init() {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(resetCmd)
}

type schemaAction string

const (
	schemaCreate schemaAction = "create"
	schemaDrop   schemaAction = "drop"
	schemaReset  schemaAction = "reset"
)

// steps is the number of batch statements the action runs
func (a schemaAction) steps() int {
	n := len(catalog.Tables())
	if a == schemaReset {
		return 2 * n
	}
	return n
}

func runSchema(action schemaAction) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		sess, err := openSession(ctx, string(action))
		if err != nil {
			return err
		}
		defer sess.Close(ctx)

		start := time.Now()
		if err := applySchema(ctx, sess.store, action, newBatchProgress(action)); err != nil {
			return err
		}

		util.SuccessLog("%s complete on %s (%d statements, %v)",
			action, sess.dialect, action.steps(), time.Since(start).Round(time.Millisecond))
		return nil
	}
}

func applySchema(ctx context.Context, s *store.Store, action schemaAction, progress store.ProgressFunc) error {
	switch action {
	case schemaCreate:
		return s.CreateTables(ctx, progress)
	case schemaDrop:
		return s.DropTables(ctx, progress)
	case schemaReset:
		return s.Reset(ctx, progress)
	}
	return fmt.Errorf("unknown schema action %q", action)
}

// newBatchProgress returns a progress callback that drives a bar on a
// terminal and logs each statement at debug level otherwise
func newBatchProgress(action schemaAction) store.ProgressFunc {
	if !util.StderrIsTerminal() || util.IsQuiet() {
		return func(st catalog.Statement) {
			util.DebugLog("done: %s", st.Name())
		}
	}

	bar := progressbar.NewOptions(action.steps(),
		progressbar.OptionSetDescription(fmt.Sprintf("%-7s", action)),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(50*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
	return func(st catalog.Statement) {
		bar.Describe(fmt.Sprintf("%-7s %s", st.Kind, st.Table))
		bar.Add(1)
	}
}
