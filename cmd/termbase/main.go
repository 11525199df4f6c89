package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/termbase-backend/internal/app"
	"github.com/yungbote/termbase-backend/internal/platform/logger"
	"github.com/yungbote/termbase-backend/internal/services"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "termbase",
		Short: "Terminology service: topics, terms, descriptions, relation graphs and semantic search",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			return app.ApplyConfigFile(path)
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", os.Getenv(app.ConfigFileEnv), "YAML file of environment defaults")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("termbase %s\n", app.Version)
		},
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the cascade worker pool",
		RunE:  runServe,
	}
	serveCmd.Flags().String("addr", "", "Listen address (overrides HTTP_ADDR)")
	rootCmd.AddCommand(serveCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE:  runMigrate,
	})

	reindexCmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild missing relation graphs and embeddings",
		Long: `Walks every description and rebuilds the relation graph and the
embedding where either is missing. With --force both are rebuilt for every
description.`,
		RunE: runReindex,
	}
	reindexCmd.Flags().Bool("force", false, "Rebuild artifacts that already exist")
	reindexCmd.Flags().Int("concurrency", 4, "Descriptions processed in parallel")
	rootCmd.AddCommand(reindexCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (app.Config, *logger.Logger, error) {
	cfg := app.LoadConfig()
	log, err := app.NewLogger(cfg)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.HTTPAddr = addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		return err
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		log.Error("server stopped", "error", err)
		return err
	}
	log.Info("shutdown complete")
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	dbs, err := app.OpenDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer dbs.Close()
	log.Info("migration complete", "driver", dbs.Driver())
	return nil
}

func runReindex(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()
	force, _ := cmd.Flags().GetBool("force")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	report, err := a.Services.Coordinator.Reindex(ctx, services.ReindexOptions{Force: force, Concurrency: concurrency})
	log.Info("reindex finished",
		"descriptions", report.Descriptions,
		"graphs_rebuilt", report.GraphsRebuilt,
		"vectors_computed", report.VectorsComputed,
		"failures", report.Failures,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if err != nil {
		return err
	}
	fmt.Printf("descriptions=%d graphs=%d vectors=%d failures=%d\n",
		report.Descriptions, report.GraphsRebuilt, report.VectorsComputed, report.Failures)
	return nil
}
