// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/plotweave-dev/plotweave/internal/config"
	"github.com/plotweave-dev/plotweave/internal/embedding/openai"
	"github.com/plotweave-dev/plotweave/internal/project"
	"github.com/plotweave-dev/plotweave/internal/secrets"
	"github.com/plotweave-dev/plotweave/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the plotweave server",
		Long:  "Load configuration, build the embeddings client and project manager, and serve the HTTP API.",
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")

	return cmd
}

// loadConfig resolves the config file path from flags, bootstraps a default
// config on first run, and loads it with keyring secret resolution.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath == "" {
		// First run seeds a commented default in the user config dir.
		if path := config.BootstrapConfig(); path != "" {
			cfgPath = path
		} else if path, err := config.DefaultConfigPath(); err == nil {
			if _, statErr := os.Stat(path); statErr == nil {
				cfgPath = path
			}
		}
	}
	if cfgPath != "" {
		config.WarnInsecurePermissions(cfgPath)
	}

	cfg, err := config.Load(cfgPath, secrets.Keyring{})
	if err != nil {
		return nil, err
	}

	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Server.Listen = listen
	}

	embedder, err := openai.New(openai.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return fmt.Errorf("building embeddings client: %w", err)
	}

	manager := project.NewManager(project.ManagerConfig{
		DataDir:         cfg.DataDir,
		InactiveTimeout: cfg.Projects.InactiveTimeout(),
		SweepInterval:   cfg.Projects.SweepInterval(),
	}, embedder, nil)

	srv, err := server.New(server.Config{
		ListenAddr:      cfg.Server.Listen,
		CORSOrigins:     cfg.Server.CORSOrigins,
		ShutdownTimeout: cfg.Server.ShutdownTimeout(),
	}, manager)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go manager.Run(ctx)

	slog.Info("starting plotweave", "listen", cfg.Server.Listen, "data_dir", cfg.DataDir)
	serveErr := srv.Start(ctx)

	// Flush every still-active project before exiting.
	if err := manager.CloseAll(); err != nil {
		slog.Error("closing projects", "error", err)
	}
	return serveErr
}
