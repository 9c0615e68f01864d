// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

// Package world implements the worldbuilding knowledge store: a directed
// multigraph of typed entities and relationships whose attribute state is
// kept synchronized with an embedding-based semantic index.
package world

import (
	"github.com/google/uuid"

	pwerr "github.com/plotweave-dev/plotweave/pkg/errors"
)

// EntityType classifies a node in the knowledge graph.
type EntityType string

const (
	EntityTypePerson       EntityType = "PERSON"
	EntityTypePlace        EntityType = "PLACE"
	EntityTypeItem         EntityType = "ITEM"
	EntityTypeOrganization EntityType = "ORGANIZATION"
)

// ParseEntityType validates a raw entity type label.
func ParseEntityType(s string) (EntityType, error) {
	switch EntityType(s) {
	case EntityTypePerson, EntityTypePlace, EntityTypeItem, EntityTypeOrganization:
		return EntityType(s), nil
	}
	return "", pwerr.Errorf(pwerr.CodeWorldInvalidInput, "unknown entity type %q", s)
}

// AttributeValue is a single timestamped fact. The timestamp is an in-story
// time description ("after the crossing", "in her childhood"), not a clock
// value; timeline order is insertion order.
type AttributeValue struct {
	Value         string `json:"value"`
	TimestampDesc string `json:"timestamp_desc"`
}

// AttributeMap maps a free-form category label to its ordered value timeline.
// The last element of each timeline is the current value for display purposes.
type AttributeMap map[string][]AttributeValue

// Clone returns a deep copy. A nil map clones to an empty one, so stored
// attribute maps are always safe to Merge into.
func (m AttributeMap) Clone() AttributeMap {
	out := make(AttributeMap, len(m))
	for category, values := range m {
		out[category] = append([]AttributeValue(nil), values...)
	}
	return out
}

// Merge appends the given values to the end of each category's timeline,
// creating categories that do not exist yet. Existing values are untouched.
func (m AttributeMap) Merge(additions AttributeMap) {
	for category, values := range additions {
		m[category] = append(m[category], values...)
	}
}

// Entity is a typed node in the knowledge graph.
type Entity struct {
	ID         uuid.UUID    `json:"id"`
	Type       EntityType   `json:"type"`
	Attributes AttributeMap `json:"attributes"`
}

// NewEntity creates an entity with a fresh v4 id.
func NewEntity(t EntityType, attrs AttributeMap) *Entity {
	if attrs == nil {
		attrs = AttributeMap{}
	}
	return &Entity{ID: uuid.New(), Type: t, Attributes: attrs}
}

// Clone returns a deep copy of the entity.
func (e *Entity) Clone() *Entity {
	return &Entity{ID: e.ID, Type: e.Type, Attributes: e.Attributes.Clone()}
}

// Edge is a directed relationship between two entities. Its identity is its
// own id, independent of the endpoints: multiple edges may connect the same
// ordered pair, and an edge may loop an entity to itself.
type Edge struct {
	ID           uuid.UUID    `json:"id"`
	FromEntityID uuid.UUID    `json:"from_entity_id"`
	ToEntityID   uuid.UUID    `json:"to_entity_id"`
	Attributes   AttributeMap `json:"attributes"`
}

// NewEdge creates an edge with a fresh v4 id.
func NewEdge(from, to uuid.UUID, attrs AttributeMap) *Edge {
	if attrs == nil {
		attrs = AttributeMap{}
	}
	return &Edge{ID: uuid.New(), FromEntityID: from, ToEntityID: to, Attributes: attrs}
}

// Clone returns a deep copy of the edge.
func (e *Edge) Clone() *Edge {
	return &Edge{
		ID:           e.ID,
		FromEntityID: e.FromEntityID,
		ToEntityID:   e.ToEntityID,
		Attributes:   e.Attributes.Clone(),
	}
}

// RelatedEdge is one (start, edge, end) triple from an adjacency query.
type RelatedEdge struct {
	Start *Entity
	Edge  *Edge
	End   *Entity
}

// ResultKind discriminates semantic search results.
type ResultKind string

const (
	ResultKindEntity ResultKind = "entity"
	ResultKindEdge   ResultKind = "edge"
)

// SearchResult is one semantic search hit. It deliberately carries no
// attribute detail; callers needing full state follow up with GetEntity or
// GetEdge. From/To are set only for edge results, Type only for entity
// results.
type SearchResult struct {
	Kind         ResultKind
	ID           uuid.UUID
	Type         EntityType
	FromEntityID uuid.UUID
	ToEntityID   uuid.UUID
	Score        float64
}
