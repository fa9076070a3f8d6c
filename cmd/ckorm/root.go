package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zzguang83325/ckorm"
	_ "github.com/zzguang83325/ckorm/drivers/clickhouse"
	_ "github.com/zzguang83325/ckorm/drivers/mysql"
	_ "github.com/zzguang83325/ckorm/drivers/sqlite"
	"github.com/zzguang83325/ckorm/zlog"
)

// Global flag values.
var (
	flagConfig   string
	flagDriver   string
	flagDSN      string
	flagLogLevel string
	flagJSONLogs bool
)

// db is opened by PersistentPreRunE and closed by PersistentPostRunE.
var db *ckorm.DB

var rootCmd = &cobra.Command{
	Use:   "ckorm",
	Short: "ckorm runs queries, counts and batch loads against ClickHouse",
	Long: `ckorm is an operator tool over the ckorm data-access kernel.
Configuration comes from --config (YAML), CKORM_* environment variables
and flags, in increasing precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, level, err := loadConfig(flagConfig, cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logLevel := ckorm.ParseLogLevel(level)
		ckorm.SetLogger(zlog.NewConsole(os.Stderr, logLevel, !flagJSONLogs))
		ckorm.SetDebugMode(logLevel == ckorm.LevelDebug)

		db, err = ckorm.Open(cfg)
		if err != nil {
			return fmt.Errorf("open %s: %w", cfg.Driver, err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if db != nil {
			return db.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&flagDriver, "driver", "", "driver: clickhouse, mysql or sqlite3 (default clickhouse)")
	rootCmd.PersistentFlags().StringVar(&flagDSN, "dsn", "", "data source name")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error (default info)")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLogs, "json-logs", false, "write logs as JSON instead of console format")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(genCmd)
}
