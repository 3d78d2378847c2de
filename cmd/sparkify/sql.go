package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/franz/sparkify/internal/catalog"
)

var sqlCmd = &cobra.Command{
	Use:   "sql [name...]",
	Short: "Print the SQL catalog for the configured dialect",
	Long: `Print the catalog statements: the five drops, the five creates, the
five inserts and the song select, in batch order.

Pass statement names (for example songplay_table_create or song_select)
to print only those. Use --dialect to choose postgres, sqlite or duckdb.
No database connection is made.`,
	RunE: runSQL,
}

func init() {
	rootCmd.AddCommand(sqlCmd)

	sqlCmd.Flags().Bool("names", false, "List statement names only")
}

func runSQL(cmd *cobra.Command, args []string) error {
	dialect, err := configDialect()
	if err != nil {
		return err
	}
	cat, err := catalog.For(dialect)
	if err != nil {
		return err
	}

	namesOnly, _ := cmd.Flags().GetBool("names")
	statements, err := selectStatements(cat.Statements(), args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, st := range statements {
		if namesOnly {
			fmt.Fprintln(out, st.Name())
			continue
		}
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "-- %s (%s)\n%s;\n", st.Name(), dialect, strings.TrimRight(strings.TrimSpace(st.SQL), ";"))
	}
	return nil
}

// selectStatements filters statements by name, keeping catalog order
func selectStatements(all []catalog.Statement, names []string) ([]catalog.Statement, error) {
	if len(names) == 0 {
		return all, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var selected []catalog.Statement
	for _, st := range all {
		if wanted[st.Name()] {
			selected = append(selected, st)
			delete(wanted, st.Name())
		}
	}

	if len(wanted) > 0 {
		unknown := make([]string, 0, len(wanted))
		for _, n := range names {
			if wanted[n] {
				unknown = append(unknown, n)
			}
		}
		return nil, fmt.Errorf("unknown statement(s): %s", strings.Join(unknown, ", "))
	}
	return selected, nil
}
