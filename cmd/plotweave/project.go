// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/plotweave-dev/plotweave/internal/embedding/openai"
	"github.com/plotweave-dev/plotweave/internal/project"
	pwerr "github.com/plotweave-dev/plotweave/pkg/errors"
)

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
		Long:  "List, create, and delete writing projects in the data directory.",
	}

	cmd.AddCommand(
		newProjectListCmd(),
		newProjectCreateCmd(),
		newProjectDeleteCmd(),
	)

	return cmd
}

func newProjectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all projects",
		RunE:  runProjectList,
	}
}

func newProjectCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create [name]",
		Short: "Create a new project",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runProjectCreate,
	}
}

func newProjectDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project and all its data",
		Args:  cobra.ExactArgs(1),
		RunE:  runProjectDelete,
	}
}

// newLocalManager builds a Manager for direct data-dir access. Commands that
// never touch the semantic index pass a nil embedder.
func newLocalManager(cmd *cobra.Command, withEmbedder bool) (*project.Manager, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	mcfg := project.ManagerConfig{DataDir: cfg.DataDir}
	if !withEmbedder {
		return project.NewManager(mcfg, nil, nil), nil
	}

	embedder, err := openai.New(openai.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("building embeddings client: %w", err)
	}
	return project.NewManager(mcfg, embedder, nil), nil
}

func runProjectList(cmd *cobra.Command, _ []string) error {
	manager, err := newLocalManager(cmd, false)
	if err != nil {
		return err
	}

	projects, err := manager.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(projects) == 0 {
		_, _ = fmt.Fprintln(out, "No projects found.")
		return nil
	}
	for _, m := range projects {
		_, _ = fmt.Fprintf(out, "%s  %-20s phase=%s\n", m.ID, m.Name, m.Phase)
	}
	return nil
}

func runProjectCreate(cmd *cobra.Command, args []string) error {
	manager, err := newLocalManager(cmd, true)
	if err != nil {
		return err
	}
	defer func() { _ = manager.CloseAll() }()

	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	p, err := manager.Create(cmd.Context(), name)
	if err != nil {
		return err
	}

	meta := p.MetadataCopy()
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created project %q (%s)\n", meta.Name, meta.ID)
	return nil
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return pwerr.Errorf(pwerr.CodeCLIInputInvalid, "invalid project id %q", args[0])
	}

	manager, err := newLocalManager(cmd, false)
	if err != nil {
		return err
	}

	if err := manager.Delete(id); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", id)
	return nil
}
