// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

// Package embedding defines the text-to-vector provider boundary.
package embedding

import "context"

// Embedder turns text into a fixed-dimensionality vector. Dimensionality is
// fixed per deployment and must match the semantic index it feeds; a
// mismatch is a configuration error, not a retryable failure.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}
