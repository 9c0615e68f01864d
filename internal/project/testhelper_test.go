// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

package project_test

import (
	"context"

	"github.com/plotweave-dev/plotweave/internal/index"
	"github.com/plotweave-dev/plotweave/internal/project"
	"github.com/plotweave-dev/plotweave/internal/world"
)

// fakeEmbedder returns fixed-size vectors without any provider round trip.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 4)
	for i := range v {
		v[i] = float32((len(text) + i) % 5)
	}
	return v, nil
}

func (fakeEmbedder) Dimensions() int { return 4 }

// fakeIndex is a minimal in-memory index.Index.
type fakeIndex struct {
	points map[string]index.Point
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{points: make(map[string]index.Point)}
}

func (f *fakeIndex) Upsert(_ context.Context, p index.Point) error {
	f.points[p.ID] = p
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, limit int) ([]index.Hit, error) {
	var hits []index.Hit
	for id, p := range f.points {
		if len(hits) == limit {
			break
		}
		hits = append(hits, index.Hit{ID: id, Score: 1, Payload: p.Payload})
	}
	return hits, nil
}

func (f *fakeIndex) DeleteByIDs(_ context.Context, ids []string) error {
	for _, id := range ids {
		delete(f.points, id)
	}
	return nil
}

func (f *fakeIndex) DeleteByField(_ context.Context, field, value string) error {
	for id, p := range f.points {
		if v, ok := p.Payload[field].(string); ok && v == value {
			delete(f.points, id)
		}
	}
	return nil
}

func (f *fakeIndex) Close() error { return nil }

// fakeIndexOpener satisfies project.IndexOpenerFactory without sqlite.
func fakeIndexOpener(string) world.IndexOpener {
	return func(context.Context, int) (index.Index, error) {
		return newFakeIndex(), nil
	}
}

var _ project.IndexOpenerFactory = fakeIndexOpener
