package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"example.com/gymstore/internal/backup"
	"example.com/gymstore/internal/transfer"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Move workouts from legacy keys into the per-family collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.svc.MigrateLegacy()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report workouts stored under the wrong family",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.svc.CheckSeparation()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"separated":        report.Separated(),
				"manualInSuperset": report.ManualInSuperset,
				"supersetInManual": report.SupersetInManual,
			})
		},
	}
}

func newFixCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fix",
		Short: "Relocate misplaced workouts to their own family",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			moved, err := a.svc.FixMixedData()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]int{"moved": moved})
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var (
		scopeName string
		outFile   string
		publish   bool
		topic     string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a versioned backup envelope",
		Long: `Export writes the selected collections as a version 2 envelope.

The envelope goes to stdout unless --out names a file. With --publish it is
also sent to the backup topic so restore consumers can pick it up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scope, err := transfer.ParseScope(scopeName)
			if err != nil {
				return err
			}
			env, err := a.svc.Export(scope)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if outFile != "" {
				f, err := os.Create(outFile)
				if err != nil {
					return fmt.Errorf("create %s: %w", outFile, err)
				}
				defer f.Close()
				w = f
			}
			if err := printJSON(w, env); err != nil {
				return err
			}

			if !publish {
				return nil
			}
			if topic == "" {
				topic = a.cfg.BackupTopic
			}
			pub := backup.NewPublisher(a.cfg.KafkaBrokers, backup.WithPublisherLogger(a.logger))
			defer pub.Close()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			id, err := pub.Publish(ctx, topic, env)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "published backup %s to %s\n", id, topic)
			return nil
		},
	}
	cmd.Flags().StringVar(&scopeName, "type", "all", "collections to export: all, manual or superset")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "write the envelope to this file")
	cmd.Flags().BoolVar(&publish, "publish", false, "also publish the envelope to the backup topic")
	cmd.Flags().StringVar(&topic, "topic", "", "backup topic (defaults to BACKUP_TOPIC)")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace collections from a backup envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if args[0] == "-" {
				raw, err = io.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}
			if err := a.svc.Import(raw); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "import complete")
			return nil
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count workouts per family",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.svc.Stats()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
}
