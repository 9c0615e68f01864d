// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

// Package config loads and validates the plotweave configuration from
// defaults, an optional YAML file, and PLOTWEAVE_-prefixed environment
// variables.
package config

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/plotweave-dev/plotweave/internal/secrets"
	pwerr "github.com/plotweave-dev/plotweave/pkg/errors"
)

// Config is the top-level plotweave configuration.
type Config struct {
	DataDir   string          `mapstructure:"data_dir"`
	Server    ServerConfig    `mapstructure:"server"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Projects  ProjectsConfig  `mapstructure:"projects"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Listen                 string   `mapstructure:"listen"`
	CORSOrigins            []string `mapstructure:"cors_origins"`
	ShutdownTimeoutSeconds int      `mapstructure:"shutdown_timeout_seconds"`
}

// EmbeddingConfig holds the embeddings provider settings. APIKey may be a
// keyring:// URI, resolved at load time.
type EmbeddingConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
}

// ProjectsConfig controls the active-project cache.
type ProjectsConfig struct {
	InactiveTimeoutMinutes int `mapstructure:"inactive_timeout_minutes"`
	SweepIntervalSeconds   int `mapstructure:"sweep_interval_seconds"`
}

// InactiveTimeout returns the configured eviction timeout.
func (p ProjectsConfig) InactiveTimeout() time.Duration {
	return time.Duration(p.InactiveTimeoutMinutes) * time.Minute
}

// SweepInterval returns the configured sweep period.
func (p ProjectsConfig) SweepInterval() time.Duration {
	return time.Duration(p.SweepIntervalSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown deadline.
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// Load reads configuration from the given path (or defaults only when path
// is empty), applies environment overrides, and resolves keyring:// secret
// URIs through store when it is non-nil.
func Load(path string, store secrets.Store) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("data_dir", "datas")
	v.SetDefault("server.listen", "127.0.0.1:8787")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimensions", 1536)
	v.SetDefault("projects.inactive_timeout_minutes", 10)
	v.SetDefault("projects.sweep_interval_seconds", 30)

	// Environment
	v.SetEnvPrefix("PLOTWEAVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, pwerr.Errorf(pwerr.CodeConfigLoadFailure, "reading config %s: %w", path, err)
		}
	}

	if store != nil {
		secrets.ResolveViper(v, store)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, pwerr.Errorf(pwerr.CodeConfigLoadFailure, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, pwerr.Errorf(pwerr.CodeConfigInvalid, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It collects every
// problem found rather than stopping at the first one. The embedding API key
// is deliberately not required here: it may arrive per-deployment and is
// checked where the embeddings client is built.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateEmbedding()...)
	errs = append(errs, c.validateProjects()...)

	if c.DataDir == "" {
		errs = append(errs, pwerr.New(pwerr.CodeConfigInvalid, "config: data_dir must not be empty"))
	}

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, pwerr.New(pwerr.CodeConfigInvalid, "config: server.listen must not be empty"))
		return errs
	}

	_, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		errs = append(errs, pwerr.Errorf(pwerr.CodeConfigInvalid,
			"config: server.listen must be a valid host:port address, got %q: %w", c.Server.Listen, err))
		return errs
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, pwerr.Errorf(pwerr.CodeConfigInvalid,
			"config: server.listen port must be a number, got %q", portStr))
	} else if port < 1 || port > 65535 {
		errs = append(errs, pwerr.Errorf(pwerr.CodeConfigInvalid,
			"config: server.listen port must be between 1 and 65535, got %d", port))
	}

	if c.Server.ShutdownTimeoutSeconds <= 0 {
		errs = append(errs, pwerr.Errorf(pwerr.CodeConfigInvalid,
			"config: server.shutdown_timeout_seconds must be greater than 0, got %d", c.Server.ShutdownTimeoutSeconds))
	}

	return errs
}

func (c *Config) validateEmbedding() []error {
	var errs []error

	if c.Embedding.Model == "" {
		errs = append(errs, pwerr.New(pwerr.CodeConfigInvalid, "config: embedding.model must not be empty"))
	}

	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, pwerr.Errorf(pwerr.CodeConfigInvalid,
			"config: embedding.dimensions must be greater than 0, got %d", c.Embedding.Dimensions))
	}

	return errs
}

func (c *Config) validateProjects() []error {
	var errs []error

	if c.Projects.InactiveTimeoutMinutes <= 0 {
		errs = append(errs, pwerr.Errorf(pwerr.CodeConfigInvalid,
			"config: projects.inactive_timeout_minutes must be greater than 0, got %d", c.Projects.InactiveTimeoutMinutes))
	}

	if c.Projects.SweepIntervalSeconds <= 0 {
		errs = append(errs, pwerr.Errorf(pwerr.CodeConfigInvalid,
			"config: projects.sweep_interval_seconds must be greater than 0, got %d", c.Projects.SweepIntervalSeconds))
	}

	return errs
}
