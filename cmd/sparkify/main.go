package main

import (
	"fmt"
	"os"

	"github.com/franz/sparkify/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "sparkify",
		Short: "Sparkify warehouse schema tool - create, drop and inspect the song-play star schema",
		Long: `sparkify manages the song-play analytics warehouse: one songplays fact
table and the users, songs, artists and time dimensions.

It creates and drops the schema idempotently, prints the SQL catalog for
Postgres, SQLite or DuckDB, runs the song lookup and reports row counts.
Loading rows is left to the ETL job that uses the catalog.`,
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			util.SetVerbose(viper.GetBool("verbose"))
			util.SetQuiet(viper.GetBool("quiet"))
		},
		SilenceUsage: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/sparkify.yaml)")
	rootCmd.PersistentFlags().String("db", "sparkify.db", "database: file path for sqlite/duckdb, connection string for postgres")
	rootCmd.PersistentFlags().String("dialect", "sqlite", "SQL dialect: postgres, sqlite or duckdb")
	rootCmd.PersistentFlags().String("event-log", "", "directory for a JSONL audit log of executed statements")
	rootCmd.PersistentFlags().String("pushgateway", "", "Prometheus Pushgateway URL to push run metrics to")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	// Bind flags to viper
	for _, key := range []string{"db", "dialect", "event-log", "pushgateway", "verbose", "quiet"} {
		viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key))
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("sparkify")
		viper.SetConfigType("yaml")
	}

	// SPARKIFY_DB, SPARKIFY_DIALECT, SPARKIFY_EVENT_LOG, ...
	viper.SetEnvPrefix("SPARKIFY")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.InfoLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
