// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

package world

import (
	"sort"

	"github.com/google/uuid"

	pwerr "github.com/plotweave-dev/plotweave/pkg/errors"
)

// Graph is a directed multigraph over entity ids. Entities and edges share
// one id space and are both indexed by id for O(1) lookup; adjacency is kept
// as per-entity edge-id sets in both directions.
//
// Graph performs no locking and no index synchronization; World owns both.
type Graph struct {
	nodes map[uuid.UUID]*Entity
	edges map[uuid.UUID]*Edge
	out   map[uuid.UUID]map[uuid.UUID]struct{} // entity id -> outgoing edge ids
	in    map[uuid.UUID]map[uuid.UUID]struct{} // entity id -> incoming edge ids
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[uuid.UUID]*Entity),
		edges: make(map[uuid.UUID]*Edge),
		out:   make(map[uuid.UUID]map[uuid.UUID]struct{}),
		in:    make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// AddEntity inserts a new node. The id must not collide with any existing
// entity or edge id.
func (g *Graph) AddEntity(e *Entity) error {
	if g.idTaken(e.ID) {
		return pwerr.New(pwerr.CodeWorldDuplicateID, "id already exists in graph",
			pwerr.FieldEntityID(e.ID.String()))
	}
	g.nodes[e.ID] = e
	g.out[e.ID] = make(map[uuid.UUID]struct{})
	g.in[e.ID] = make(map[uuid.UUID]struct{})
	return nil
}

// AddEdge inserts a new directed edge. Both endpoints must already exist;
// the edge id must not collide with any existing entity or edge id.
func (g *Graph) AddEdge(e *Edge) error {
	if _, ok := g.nodes[e.FromEntityID]; !ok {
		return pwerr.New(pwerr.CodeWorldMissingEndpoint, "from entity does not exist",
			pwerr.FieldEntityID(e.FromEntityID.String()))
	}
	if _, ok := g.nodes[e.ToEntityID]; !ok {
		return pwerr.New(pwerr.CodeWorldMissingEndpoint, "to entity does not exist",
			pwerr.FieldEntityID(e.ToEntityID.String()))
	}
	if g.idTaken(e.ID) {
		return pwerr.New(pwerr.CodeWorldDuplicateID, "id already exists in graph",
			pwerr.FieldEdgeID(e.ID.String()))
	}
	g.edges[e.ID] = e
	g.out[e.FromEntityID][e.ID] = struct{}{}
	g.in[e.ToEntityID][e.ID] = struct{}{}
	return nil
}

// Entity returns the node with the given id, or nil.
func (g *Graph) Entity(id uuid.UUID) *Entity {
	return g.nodes[id]
}

// Edge returns the edge with the given id, or nil.
func (g *Graph) Edge(id uuid.UUID) *Edge {
	return g.edges[id]
}

// RemoveEntity removes a node and every edge incident to it in either
// direction. It returns the removed edges and whether the entity existed.
func (g *Graph) RemoveEntity(id uuid.UUID) ([]*Edge, bool) {
	if _, ok := g.nodes[id]; !ok {
		return nil, false
	}

	removedIDs := make(map[uuid.UUID]struct{})
	for edgeID := range g.out[id] {
		removedIDs[edgeID] = struct{}{}
	}
	for edgeID := range g.in[id] {
		removedIDs[edgeID] = struct{}{}
	}

	removed := make([]*Edge, 0, len(removedIDs))
	for edgeID := range removedIDs {
		removed = append(removed, g.edges[edgeID])
		g.removeEdgeLinks(g.edges[edgeID])
		delete(g.edges, edgeID)
	}
	sortEdgesByID(removed)

	delete(g.nodes, id)
	delete(g.out, id)
	delete(g.in, id)
	return removed, true
}

// RemoveEdge removes a single edge without touching its endpoints, even if
// that leaves them isolated. Returns whether the edge existed.
func (g *Graph) RemoveEdge(id uuid.UUID) bool {
	e, ok := g.edges[id]
	if !ok {
		return false
	}
	g.removeEdgeLinks(e)
	delete(g.edges, id)
	return true
}

// RelatedEdges returns every (start, edge, end) triple touching the entity,
// in either direction, deduplicated by edge id — a self-loop contributes one
// triple, not two. Returns ok=false when the entity does not exist; an
// isolated entity yields an empty, non-nil slice.
func (g *Graph) RelatedEdges(id uuid.UUID) ([]RelatedEdge, bool) {
	if _, ok := g.nodes[id]; !ok {
		return nil, false
	}

	seen := make(map[uuid.UUID]struct{})
	triples := make([]RelatedEdge, 0, len(g.out[id])+len(g.in[id]))
	collect := func(edgeID uuid.UUID) {
		if _, dup := seen[edgeID]; dup {
			return
		}
		seen[edgeID] = struct{}{}
		e := g.edges[edgeID]
		triples = append(triples, RelatedEdge{
			Start: g.nodes[e.FromEntityID],
			Edge:  e,
			End:   g.nodes[e.ToEntityID],
		})
	}
	for edgeID := range g.out[id] {
		collect(edgeID)
	}
	for edgeID := range g.in[id] {
		collect(edgeID)
	}

	sort.Slice(triples, func(i, j int) bool {
		return triples[i].Edge.ID.String() < triples[j].Edge.ID.String()
	})
	return triples, true
}

// EdgesBetween returns every edge with exactly the ordered endpoint pair
// (from, to). Returns ok=false when either endpoint does not exist; an empty,
// non-nil slice when the pair is unconnected.
func (g *Graph) EdgesBetween(from, to uuid.UUID) ([]*Edge, bool) {
	if _, ok := g.nodes[from]; !ok {
		return nil, false
	}
	if _, ok := g.nodes[to]; !ok {
		return nil, false
	}

	edges := make([]*Edge, 0)
	for edgeID := range g.out[from] {
		if e := g.edges[edgeID]; e.ToEntityID == to {
			edges = append(edges, e)
		}
	}
	sortEdgesByID(edges)
	return edges, true
}

// Entities returns all nodes sorted by id.
func (g *Graph) Entities() []*Entity {
	out := make([]*Entity, 0, len(g.nodes))
	for _, e := range g.nodes {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// Edges returns all edges sorted by id.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	sortEdgesByID(out)
	return out
}

// EntityCount returns the number of nodes.
func (g *Graph) EntityCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

func (g *Graph) idTaken(id uuid.UUID) bool {
	if _, ok := g.nodes[id]; ok {
		return true
	}
	_, ok := g.edges[id]
	return ok
}

func (g *Graph) removeEdgeLinks(e *Edge) {
	if set, ok := g.out[e.FromEntityID]; ok {
		delete(set, e.ID)
	}
	if set, ok := g.in[e.ToEntityID]; ok {
		delete(set, e.ID)
	}
}

func sortEdgesByID(edges []*Edge) {
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID.String() < edges[j].ID.String() })
}
