package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"example.com/gymstore/internal/config"
	"example.com/gymstore/internal/kv"
	"example.com/gymstore/internal/observability"
	"example.com/gymstore/internal/service"
)

// app holds what every subcommand needs once flags are parsed.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  kv.Store
	svc    *service.Service
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var (
		dsn      string
		prefix   string
		logLevel string
		force    bool
	)

	root := &cobra.Command{
		Use:           "gymctl",
		Short:         "Inspect and maintain a gym store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dsn") {
				cfg.StoreDSN = dsn
			}
			if cmd.Flags().Changed("prefix") {
				cfg.KeyPrefix = prefix
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			a.cfg = cfg

			logger := zap.NewNop()
			if cfg.LogLevel != "" && cfg.LogLevel != "off" {
				if logger, err = observability.NewLogger(cfg.LogLevel); err != nil {
					return err
				}
			}
			a.logger = logger

			store, err := kv.Open(cfg.StoreDSN, logger)
			if err != nil {
				return fmt.Errorf("open store %s: %w", cfg.StoreDSN, err)
			}
			a.store = store

			svc, err := service.New(store,
				service.WithLogger(logger),
				service.WithPrefix(cfg.KeyPrefix),
				service.WithForceMigration(force),
			)
			if err != nil {
				return err
			}
			if _, err := svc.Init(false); err != nil {
				return err
			}
			a.svc = svc
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			_ = a.logger.Sync()
			return a.store.Close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&dsn, "dsn", "", "store DSN (overrides STORE_DSN)")
	flags.StringVar(&prefix, "prefix", "", "key prefix of the current storage generation (overrides KEY_PREFIX)")
	flags.StringVar(&logLevel, "log-level", "", "log level, or off (overrides LOG_LEVEL)")
	flags.BoolVar(&force, "force", false, "re-run migrations for keys already marked as migrated")

	root.AddCommand(
		newMigrateCmd(a),
		newCheckCmd(a),
		newFixCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newStatsCmd(a),
	)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
