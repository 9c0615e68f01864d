// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

// Package index defines the semantic index boundary: an embedded
// vector-similarity store keyed by the same ids as the knowledge graph.
package index

import "context"

// Point is one stored vector with its mirrored payload. The payload carries
// enough of the graph element (type tag, endpoint ids, attributes) to build
// a search-result summary without a graph round trip.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Hit is one similarity search result. Score is a similarity where higher
// is more similar; cosine-backed implementations report 1 - distance, which
// ranges over [-1, 1], so callers must not assume non-negative scores.
type Hit struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// Index is the semantic index adapter. Implementations persist every write
// durably on their own; there is no flush call.
type Index interface {
	// Upsert inserts or fully replaces the point with the given id.
	Upsert(ctx context.Context, p Point) error

	// Search returns up to limit nearest neighbors ordered by
	// non-increasing score.
	Search(ctx context.Context, vector []float32, limit int) ([]Hit, error)

	// DeleteByIDs removes the given points. Absent ids are not an error.
	DeleteByIDs(ctx context.Context, ids []string) error

	// DeleteByField removes every point whose payload has the given
	// top-level field equal to value.
	DeleteByField(ctx context.Context, field, value string) error

	Close() error
}
