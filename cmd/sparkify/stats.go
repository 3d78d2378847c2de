package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show row counts for the warehouse tables",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sess, err := openSession(ctx, "stats")
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	if err := sess.store.RequireSchema(ctx); err != nil {
		return fmt.Errorf("%w (run 'sparkify create' first)", err)
	}

	counts, err := sess.store.RowCounts(ctx)
	if err != nil {
		return err
	}

	rows := make([][2]string, len(counts))
	var total int64
	for i, c := range counts {
		rows[i] = [2]string{c.Table, humanize.Comma(c.Rows)}
		total += c.Rows
	}

	printCounts(cmd.OutOrStdout(), string(sess.dialect), rows, humanize.Comma(total))
	return nil
}

func printCounts(w io.Writer, dialect string, rows [][2]string, total string) {
	fmt.Fprintf(w, "=== Warehouse (%s) ===\n", dialect)
	for _, r := range rows {
		fmt.Fprintf(w, "  %-10s %12s\n", r[0], r[1])
	}
	fmt.Fprintf(w, "  %-10s %12s\n", "total", total)
}
