// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

package config

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"

	pwerr "github.com/plotweave-dev/plotweave/pkg/errors"
)

// DefaultConfigYAML is the commented starter config written on first run.
//
//go:embed plotweave.yaml.default
var DefaultConfigYAML []byte

// DefaultConfigPath returns the per-user config file location,
// <user config dir>/plotweave/plotweave.yaml (~/.config/plotweave/plotweave.yaml
// on Linux, honoring XDG_CONFIG_HOME).
func DefaultConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", pwerr.Errorf(pwerr.CodeConfigLoadFailure, "resolving user config directory: %w", err)
	}
	return filepath.Join(base, "plotweave", "plotweave.yaml"), nil
}

// BootstrapConfig seeds the default config file on first run so users have a
// commented template to put their embedding API key into. It returns the path
// written, or empty string when a config already exists or the write was not
// possible; failure here is never fatal, the server runs fine on defaults.
func BootstrapConfig() string {
	cfgPath, err := DefaultConfigPath()
	if err != nil {
		slog.Debug("config bootstrap skipped", "error", err)
		return ""
	}
	if _, err := os.Stat(cfgPath); err == nil {
		return ""
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o700); err != nil {
		slog.Debug("config bootstrap skipped", "path", cfgPath, "error", err)
		return ""
	}
	if err := os.WriteFile(cfgPath, DefaultConfigYAML, 0o600); err != nil {
		slog.Debug("config bootstrap skipped", "path", cfgPath, "error", err)
		return ""
	}

	slog.Info("wrote starter config, set embedding.api_key there or via PLOTWEAVE_EMBEDDING_API_KEY",
		"path", cfgPath)
	return cfgPath
}
