package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ayusman/wakeguard/internal/config"
	"github.com/ayusman/wakeguard/internal/logger"
	"github.com/ayusman/wakeguard/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is the application version.
const Version = "0.1.0"

var (
	// cfg is the configuration shared by subcommands, loaded before each run.
	cfg config.Config
	// log is the shared logger.
	log *logrus.Logger

	logLevel string
	logDir   string
	dbPath   string
)

var rootCmd = &cobra.Command{
	Use:           "wakeguard",
	Short:         "Drowsiness facial-landmark data collector",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if flags.Changed("log-dir") {
			cfg.LogDir = logDir
		}
		if flags.Changed("db") {
			cfg.DBPath = dbPath
		}

		log, err = logger.New(logger.Options{Level: cfg.LogLevel, Dir: cfg.LogDir})
		if err != nil {
			return err
		}
		return nil
	},
}

// Execute runs the root command with a context cancelled on Ctrl+C.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	pf.StringVar(&logDir, "log-dir", "", "directory for rotating log files (default ~/.wakeguard/logs)")
	pf.StringVar(&dbPath, "db", "", "session archive database (default ~/.wakeguard/wakeguard.db, empty string disables)")
}

// openStore opens the session archive, creating its directory.
func openStore() (*store.Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("no session database configured")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}
	return st, nil
}
