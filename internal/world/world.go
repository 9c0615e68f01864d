// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

package world

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/plotweave-dev/plotweave/internal/embedding"
	"github.com/plotweave-dev/plotweave/internal/index"
	pwerr "github.com/plotweave-dev/plotweave/pkg/errors"
)

// payloadTypeRelationship is the type tag stored in edge index payloads,
// distinguishing them from entity payloads (which carry the entity type).
const payloadTypeRelationship = "RELATIONSHIP"

type lifecycleState int

const (
	stateUninitialized lifecycleState = iota
	stateReady
	stateClosed
)

// IndexOpener creates the semantic index during Initialize. The index must
// accept vectors of exactly the given dimensionality.
type IndexOpener func(ctx context.Context, dimensions int) (index.Index, error)

// World is the store façade coordinating the graph and the semantic index
// under one consistency contract: every mutation changes the graph first and
// the index second, with a compensating graph rollback when the index half
// fails, so the two never permanently disagree. Existence questions are
// always answered by the graph; the index is consulted for similarity only.
//
// All operations are serialized through one internal mutex. A World instance
// exclusively owns its snapshot file and its index storage; two instances
// must never share either.
type World struct {
	mu        sync.Mutex
	state     lifecycleState
	snapshot  string
	graph     *Graph
	embedder  embedding.Embedder
	openIndex IndexOpener
	index     index.Index
	logger    *slog.Logger
}

// Open creates a World from the snapshot at snapshotPath (an absent file
// means an empty world; a corrupt one is a hard error). The returned World
// must complete Initialize before any other operation.
func Open(snapshotPath string, embedder embedding.Embedder, open IndexOpener) (*World, error) {
	g, err := loadSnapshot(snapshotPath)
	if err != nil {
		return nil, err
	}
	return &World{
		state:     stateUninitialized,
		snapshot:  snapshotPath,
		graph:     g,
		embedder:  embedder,
		openIndex: open,
		logger:    slog.Default(),
	}, nil
}

// Initialize opens the semantic index collection. It must be called exactly
// once, before any other operation.
func (w *World) Initialize(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != stateUninitialized {
		return pwerr.New(pwerr.CodeWorldNotReady, "world already initialized or closed")
	}

	ix, err := w.openIndex(ctx, w.embedder.Dimensions())
	if err != nil {
		return pwerr.Wrap(err, pwerr.CodeWorldNotReady, "opening semantic index")
	}
	w.index = ix
	w.state = stateReady
	return nil
}

// Close releases index-client resources. It does not flush the snapshot;
// call SyncToDisk first if unpersisted graph changes matter. Close is
// idempotent and terminal.
func (w *World) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == stateClosed {
		return nil
	}
	prev := w.state
	w.state = stateClosed
	if prev == stateReady {
		return w.index.Close()
	}
	return nil
}

// SyncToDisk flushes the graph snapshot. The index needs no flush: it is
// durable on every write.
func (w *World) SyncToDisk() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireReady(); err != nil {
		return err
	}
	return writeSnapshot(w.snapshot, w.graph)
}

// AddEntity inserts a new entity and indexes it. A nil id is assigned. On
// embedding or index failure the graph insert is rolled back and the entity
// must be treated as not added.
func (w *World) AddEntity(ctx context.Context, e *Entity) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireReady(); err != nil {
		return err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Attributes == nil {
		e.Attributes = AttributeMap{}
	}
	if _, err := ParseEntityType(string(e.Type)); err != nil {
		return err
	}

	if err := w.graph.AddEntity(e); err != nil {
		return err
	}
	if err := w.upsertEntity(ctx, e); err != nil {
		w.graph.RemoveEntity(e.ID)
		return err
	}
	return nil
}

// AddEdge inserts a new relationship and indexes it. Both endpoints must
// already exist. On embedding or index failure the graph insert is rolled
// back.
func (w *World) AddEdge(ctx context.Context, e *Edge) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireReady(); err != nil {
		return err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Attributes == nil {
		e.Attributes = AttributeMap{}
	}

	if err := w.graph.AddEdge(e); err != nil {
		return err
	}
	if err := w.upsertEdge(ctx, e); err != nil {
		w.graph.RemoveEdge(e.ID)
		return err
	}
	return nil
}

// GetEntity returns a copy of the entity, or a not-found error. Graph-only:
// never touches the index or the network.
func (w *World) GetEntity(id uuid.UUID) (*Entity, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireReady(); err != nil {
		return nil, err
	}
	e := w.graph.Entity(id)
	if e == nil {
		return nil, pwerr.New(pwerr.CodeWorldEntityNotFound, "entity not found", pwerr.FieldEntityID(id.String()))
	}
	return e.Clone(), nil
}

// GetEdge returns a copy of the edge, or a not-found error.
func (w *World) GetEdge(id uuid.UUID) (*Edge, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireReady(); err != nil {
		return nil, err
	}
	e := w.graph.Edge(id)
	if e == nil {
		return nil, pwerr.New(pwerr.CodeWorldEdgeNotFound, "edge not found", pwerr.FieldEdgeID(id.String()))
	}
	return e.Clone(), nil
}

// RelatedEdges returns every (start, edge, end) triple touching the entity,
// deduplicated by edge id. A not-found error means the entity does not
// exist; an isolated entity yields an empty slice.
func (w *World) RelatedEdges(id uuid.UUID) ([]RelatedEdge, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireReady(); err != nil {
		return nil, err
	}
	triples, ok := w.graph.RelatedEdges(id)
	if !ok {
		return nil, pwerr.New(pwerr.CodeWorldEntityNotFound, "entity not found", pwerr.FieldEntityID(id.String()))
	}
	out := make([]RelatedEdge, len(triples))
	for i, t := range triples {
		out[i] = RelatedEdge{Start: t.Start.Clone(), Edge: t.Edge.Clone(), End: t.End.Clone()}
	}
	return out, nil
}

// EdgesBetween returns every edge with exactly the ordered endpoint pair. A
// not-found error means an endpoint does not exist; an unconnected pair
// yields an empty slice.
func (w *World) EdgesBetween(from, to uuid.UUID) ([]*Edge, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireReady(); err != nil {
		return nil, err
	}
	edges, ok := w.graph.EdgesBetween(from, to)
	if !ok {
		return nil, pwerr.Errorf(pwerr.CodeWorldEntityNotFound, "entity %s or %s not found", from, to)
	}
	out := make([]*Edge, len(edges))
	for i, e := range edges {
		out[i] = e.Clone()
	}
	return out, nil
}

// ReplaceEntityAttributes overwrites the entity's attributes wholesale and
// re-indexes. On failure the previous attributes are restored.
func (w *World) ReplaceEntityAttributes(ctx context.Context, id uuid.UUID, attrs AttributeMap) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireReady(); err != nil {
		return err
	}
	e := w.graph.Entity(id)
	if e == nil {
		return pwerr.New(pwerr.CodeWorldEntityNotFound, "entity not found", pwerr.FieldEntityID(id.String()))
	}
	return w.replaceEntityLocked(ctx, e, attrs.Clone())
}

// AppendEntityAttributes merges new values onto the ends of the entity's
// attribute timelines (creating absent categories) and re-indexes. It is a
// read-modify-write over ReplaceEntityAttributes, existing for caller
// ergonomics, not economy.
func (w *World) AppendEntityAttributes(ctx context.Context, id uuid.UUID, additions AttributeMap) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireReady(); err != nil {
		return err
	}
	e := w.graph.Entity(id)
	if e == nil {
		return pwerr.New(pwerr.CodeWorldEntityNotFound, "entity not found", pwerr.FieldEntityID(id.String()))
	}
	merged := e.Attributes.Clone()
	merged.Merge(additions)
	return w.replaceEntityLocked(ctx, e, merged)
}

// ReplaceEdgeAttributes overwrites the edge's attributes wholesale and
// re-indexes. On failure the previous attributes are restored.
func (w *World) ReplaceEdgeAttributes(ctx context.Context, id uuid.UUID, attrs AttributeMap) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireReady(); err != nil {
		return err
	}
	e := w.graph.Edge(id)
	if e == nil {
		return pwerr.New(pwerr.CodeWorldEdgeNotFound, "edge not found", pwerr.FieldEdgeID(id.String()))
	}
	return w.replaceEdgeLocked(ctx, e, attrs.Clone())
}

// AppendEdgeAttributes merges new values onto the edge's attribute timelines
// and re-indexes.
func (w *World) AppendEdgeAttributes(ctx context.Context, id uuid.UUID, additions AttributeMap) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireReady(); err != nil {
		return err
	}
	e := w.graph.Edge(id)
	if e == nil {
		return pwerr.New(pwerr.CodeWorldEdgeNotFound, "edge not found", pwerr.FieldEdgeID(id.String()))
	}
	merged := e.Attributes.Clone()
	merged.Merge(additions)
	return w.replaceEdgeLocked(ctx, e, merged)
}

// DeleteEntity removes the entity and every incident edge from the graph,
// then clears the index: one delete for the entity's own point and two
// filtered deletes for points referencing it as an endpoint. Returns false
// with no state change when the entity does not exist.
//
// The three index deletes run after the graph mutation and are independent;
// a failure leaves orphaned index points, never a dangling graph reference.
// Orphans are bounded and harmless because every read is graph-gated for
// existence. When index cleanup fails the graph deletion stands and the
// error is returned alongside ok=true.
func (w *World) DeleteEntity(ctx context.Context, id uuid.UUID) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireReady(); err != nil {
		return false, err
	}
	removed, ok := w.graph.RemoveEntity(id)
	if !ok {
		return false, nil
	}
	w.logger.Debug("entity deleted with edge cascade", "entity_id", id, "edges_removed", len(removed))

	idStr := id.String()
	var errs []error
	if err := w.index.DeleteByIDs(ctx, []string{idStr}); err != nil {
		errs = append(errs, err)
	}
	if err := w.index.DeleteByField(ctx, "from_entity_id", idStr); err != nil {
		errs = append(errs, err)
	}
	if err := w.index.DeleteByField(ctx, "to_entity_id", idStr); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return true, pwerr.Wrapf(errors.Join(errs...), pwerr.CodeIndexFailure,
			"entity %s deleted from graph but index cleanup incomplete", id)
	}
	return true, nil
}

// DeleteEdge removes a single edge from the graph and its point from the
// index, leaving both endpoints in place. Returns false with no state change
// when the edge does not exist.
func (w *World) DeleteEdge(ctx context.Context, id uuid.UUID) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireReady(); err != nil {
		return false, err
	}
	if !w.graph.RemoveEdge(id) {
		return false, nil
	}
	if err := w.index.DeleteByIDs(ctx, []string{id.String()}); err != nil {
		return true, pwerr.Wrapf(err, pwerr.CodeIndexFailure,
			"edge %s deleted from graph but index cleanup incomplete", id)
	}
	return true, nil
}

// Search embeds the query text and returns up to limit graph elements by
// descending similarity. Results carry ids and scores only; follow up with
// GetEntity/GetEdge for attribute detail.
func (w *World) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireReady(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, pwerr.Errorf(pwerr.CodeIndexInvalidInput, "search limit must be positive, got %d", limit)
	}

	vector, err := w.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := w.index.Search(ctx, vector, limit)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		r, err := hitToResult(h)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

func (w *World) requireReady() error {
	switch w.state {
	case stateReady:
		return nil
	case stateUninitialized:
		return pwerr.New(pwerr.CodeWorldNotReady, "world not initialized")
	default:
		return pwerr.New(pwerr.CodeWorldNotReady, "world is closed")
	}
}

func (w *World) replaceEntityLocked(ctx context.Context, e *Entity, attrs AttributeMap) error {
	previous := e.Attributes
	e.Attributes = attrs
	if err := w.upsertEntity(ctx, e); err != nil {
		e.Attributes = previous
		return err
	}
	return nil
}

func (w *World) replaceEdgeLocked(ctx context.Context, e *Edge, attrs AttributeMap) error {
	previous := e.Attributes
	e.Attributes = attrs
	if err := w.upsertEdge(ctx, e); err != nil {
		e.Attributes = previous
		return err
	}
	return nil
}

func (w *World) upsertEntity(ctx context.Context, e *Entity) error {
	vector, err := w.embedder.Embed(ctx, DescribeEntity(e))
	if err != nil {
		return err
	}
	return w.index.Upsert(ctx, index.Point{
		ID:     e.ID.String(),
		Vector: vector,
		Payload: map[string]any{
			"type":       string(e.Type),
			"attributes": e.Attributes,
		},
	})
}

func (w *World) upsertEdge(ctx context.Context, e *Edge) error {
	vector, err := w.embedder.Embed(ctx, DescribeEdge(e))
	if err != nil {
		return err
	}
	return w.index.Upsert(ctx, index.Point{
		ID:     e.ID.String(),
		Vector: vector,
		Payload: map[string]any{
			"type":           payloadTypeRelationship,
			"from_entity_id": e.FromEntityID.String(),
			"to_entity_id":   e.ToEntityID.String(),
			"attributes":     e.Attributes,
		},
	})
}

func hitToResult(h index.Hit) (SearchResult, error) {
	id, err := uuid.Parse(h.ID)
	if err != nil {
		return SearchResult{}, pwerr.Errorf(pwerr.CodeIndexFailure, "index returned non-uuid point id %q", h.ID)
	}

	typeTag, _ := h.Payload["type"].(string)
	if typeTag == payloadTypeRelationship {
		fromStr, _ := h.Payload["from_entity_id"].(string)
		toStr, _ := h.Payload["to_entity_id"].(string)
		from, err := uuid.Parse(fromStr)
		if err != nil {
			return SearchResult{}, pwerr.Errorf(pwerr.CodeIndexFailure, "edge point %s has invalid from_entity_id %q", h.ID, fromStr)
		}
		to, err := uuid.Parse(toStr)
		if err != nil {
			return SearchResult{}, pwerr.Errorf(pwerr.CodeIndexFailure, "edge point %s has invalid to_entity_id %q", h.ID, toStr)
		}
		return SearchResult{
			Kind:         ResultKindEdge,
			ID:           id,
			FromEntityID: from,
			ToEntityID:   to,
			Score:        h.Score,
		}, nil
	}

	entityType, err := ParseEntityType(typeTag)
	if err != nil {
		return SearchResult{}, pwerr.Errorf(pwerr.CodeIndexFailure, "point %s has unknown type tag %q", h.ID, typeTag)
	}
	return SearchResult{
		Kind:  ResultKindEntity,
		ID:    id,
		Type:  entityType,
		Score: h.Score,
	}, nil
}
