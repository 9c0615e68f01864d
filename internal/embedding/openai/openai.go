// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

// Package openai implements embedding.Embedder against any OpenAI-compatible
// embeddings endpoint.
package openai

import (
	"context"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/plotweave-dev/plotweave/internal/embedding"
	pwerr "github.com/plotweave-dev/plotweave/pkg/errors"
)

// Config holds embeddings provider configuration.
type Config struct {
	APIKey     string
	BaseURL    string // optional, for self-hosted or compatible endpoints
	Model      string
	Dimensions int // expected output dimensionality
}

// Compile-time interface check.
var _ embedding.Embedder = (*Client)(nil)

// Client implements embedding.Embedder using the OpenAI embeddings API.
type Client struct {
	client openaisdk.Client
	cfg    Config
}

// New creates an embeddings client. The API key, model, and dimensions are
// required.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, pwerr.New(pwerr.CodeConfigInvalid, "embedding: missing api key")
	}
	if cfg.Model == "" {
		return nil, pwerr.New(pwerr.CodeConfigInvalid, "embedding: missing model")
	}
	if cfg.Dimensions <= 0 {
		return nil, pwerr.Errorf(pwerr.CodeConfigInvalid, "embedding: dimensions must be positive, got %d", cfg.Dimensions)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{client: openaisdk.NewClient(opts...), cfg: cfg}, nil
}

// Dimensions returns the configured output dimensionality.
func (c *Client) Dimensions() int {
	return c.cfg.Dimensions
}

// Embed requests one embedding for the given text. Provider failures are
// surfaced as upstream failures so callers can retry the whole mutation; a
// dimensionality mismatch is a fatal configuration error instead.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Model: openaisdk.EmbeddingModel(c.cfg.Model),
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
	})
	if err != nil {
		return nil, pwerr.Wrapf(err, pwerr.CodeEmbeddingUnavailable, "requesting embedding from %s", c.cfg.Model)
	}
	if len(resp.Data) == 0 {
		return nil, pwerr.Errorf(pwerr.CodeEmbeddingUnavailable, "embedding response from %s contained no data", c.cfg.Model)
	}

	raw := resp.Data[0].Embedding
	if len(raw) != c.cfg.Dimensions {
		return nil, pwerr.Errorf(pwerr.CodeEmbeddingDimensions,
			"model %s returned %d dimensions, configured for %d", c.cfg.Model, len(raw), c.cfg.Dimensions)
	}

	vector := make([]float32, len(raw))
	for i, v := range raw {
		vector[i] = float32(v)
	}
	return vector, nil
}
