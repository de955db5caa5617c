package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/prospector/internal/config"
	"github.com/lazypower/prospector/internal/logging"
	"github.com/lazypower/prospector/internal/scoring"
	"github.com/lazypower/prospector/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "prospector",
	Short:         "Headless sales intelligence pipeline",
	Long:          "Prospector turns public company signals into scored accounts and reviewed outreach drafts.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagConfig   string
	flagDB       string
	flagDataDir  string
	flagLogLevel string
)

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default $XDG_CONFIG_HOME/prospector/config.yaml)")
	pf.StringVar(&flagDB, "db", "", "SQLite database path")
	pf.StringVar(&flagDataDir, "data-dir", "", "Directory for drafts, contexts and reports")
	pf.StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(retrieveCmd)
	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(draftsCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(contextsCmd)
}

// app carries the resolved config and logger for one command invocation.
type app struct {
	cfg *config.Config
	log *slog.Logger
}

func setup() (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagDB != "" {
		cfg.Database.Path = flagDB
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	log := logging.New(cfg.LogLevel)
	slog.SetDefault(log)
	return &app{cfg: cfg, log: log}, nil
}

// openDB is a helper that opens the database for CLI commands.
func (a *app) openDB() (*store.DB, error) {
	db, err := store.Open(a.cfg.ResolvedDBPath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.log.Debug("database open", "path", db.Path)
	return db, nil
}

// dateOrToday returns date, or today's UTC date when empty.
func dateOrToday(date string) string {
	if date != "" {
		return date
	}
	return scoring.Today(time.Now())
}
