// @title           ScreedFlow API
// @version         1.0
// @description     Site management backend: projects, zones, crews, stock and AI site reports.

// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @schemes http https
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "screedflow/docs"

	"screedflow/config"
	"screedflow/storage"
)

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func newRootCmd() *cobra.Command {
	var verbose bool
	var cfg config.Config
	var logger *zap.Logger

	root := &cobra.Command{
		Use:           "screedflow",
		Short:         "Site management backend for screed and flooring contractors",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			logger, err = newLogger(verbose)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API and the scheduled alert sweep",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(cmd.Context(), cfg, logger)
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Overwrite every collection with the default seed data",
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := buildApp(cmd.Context(), cfg, logger)
				if err != nil {
					return err
				}
				defer a.Close()
				if err := a.repo.Reseed(cmd.Context()); err != nil {
					return err
				}
				logger.Info("store reseeded", zap.String("version", cfg.SchemaVersion))
				return nil
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations (postgres backend)",
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := storage.InitDB(cfg)
				if err != nil {
					return err
				}
				defer db.Close()
				return storage.Migrate(cmd.Context(), db, logger)
			},
		},
		&cobra.Command{
			Use:   "sweep",
			Short: "Raise stock, schedule and budget alerts once and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := buildApp(cmd.Context(), cfg, logger)
				if err != nil {
					return err
				}
				defer a.Close()
				raised, err := a.sweep.Run(cmd.Context())
				if err != nil {
					return err
				}
				a.metrics.AlertsRaised("cli", raised)
				fmt.Fprintf(cmd.OutOrStdout(), "%d alerts raised\n", raised)
				return nil
			},
		},
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
