// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

package world_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plotweave-dev/plotweave/internal/world"
	pwerr "github.com/plotweave-dev/plotweave/pkg/errors"
)

func TestGraphAddAndLookup(t *testing.T) {
	g := world.NewGraph()

	a := world.NewEntity(world.EntityTypePerson, nil)
	b := world.NewEntity(world.EntityTypePlace, nil)
	require.NoError(t, g.AddEntity(a))
	require.NoError(t, g.AddEntity(b))

	edge := world.NewEdge(a.ID, b.ID, nil)
	require.NoError(t, g.AddEdge(edge))

	assert.Same(t, a, g.Entity(a.ID))
	assert.Same(t, edge, g.Edge(edge.ID))
	assert.Nil(t, g.Entity(uuid.New()))
	assert.Nil(t, g.Edge(uuid.New()))
	assert.Equal(t, 2, g.EntityCount())
	assert.Equal(t, 1, g.EdgeCount())
}

func TestGraphSharedIDSpace(t *testing.T) {
	g := world.NewGraph()

	a := world.NewEntity(world.EntityTypePerson, nil)
	b := world.NewEntity(world.EntityTypePerson, nil)
	require.NoError(t, g.AddEntity(a))
	require.NoError(t, g.AddEntity(b))

	// Entity id reuse is rejected.
	err := g.AddEntity(&world.Entity{ID: a.ID, Type: world.EntityTypeItem})
	assert.True(t, pwerr.IsDuplicateID(err))

	// An edge may not reuse an entity id either.
	err = g.AddEdge(&world.Edge{ID: a.ID, FromEntityID: a.ID, ToEntityID: b.ID})
	assert.True(t, pwerr.IsDuplicateID(err))

	edge := world.NewEdge(a.ID, b.ID, nil)
	require.NoError(t, g.AddEdge(edge))
	err = g.AddEntity(&world.Entity{ID: edge.ID, Type: world.EntityTypePerson})
	assert.True(t, pwerr.IsDuplicateID(err))
}

func TestGraphParallelEdges(t *testing.T) {
	g := world.NewGraph()

	a := world.NewEntity(world.EntityTypePerson, nil)
	b := world.NewEntity(world.EntityTypeOrganization, nil)
	require.NoError(t, g.AddEntity(a))
	require.NoError(t, g.AddEntity(b))

	// Several edges over the same ordered pair are distinct edges.
	first := world.NewEdge(a.ID, b.ID, nil)
	second := world.NewEdge(a.ID, b.ID, nil)
	require.NoError(t, g.AddEdge(first))
	require.NoError(t, g.AddEdge(second))

	between, ok := g.EdgesBetween(a.ID, b.ID)
	require.True(t, ok)
	assert.Len(t, between, 2)

	reverse, ok := g.EdgesBetween(b.ID, a.ID)
	require.True(t, ok)
	assert.Empty(t, reverse)
	assert.NotNil(t, reverse)
}

func TestGraphEdgesBetweenMissingEndpoint(t *testing.T) {
	g := world.NewGraph()
	a := world.NewEntity(world.EntityTypePerson, nil)
	require.NoError(t, g.AddEntity(a))

	_, ok := g.EdgesBetween(a.ID, uuid.New())
	assert.False(t, ok)
	_, ok = g.EdgesBetween(uuid.New(), a.ID)
	assert.False(t, ok)
}

func TestGraphRemoveEntityCascades(t *testing.T) {
	g := world.NewGraph()

	a := world.NewEntity(world.EntityTypePerson, nil)
	b := world.NewEntity(world.EntityTypePerson, nil)
	c := world.NewEntity(world.EntityTypePlace, nil)
	for _, e := range []*world.Entity{a, b, c} {
		require.NoError(t, g.AddEntity(e))
	}
	ab := world.NewEdge(a.ID, b.ID, nil)
	ba := world.NewEdge(b.ID, a.ID, nil)
	bc := world.NewEdge(b.ID, c.ID, nil)
	for _, e := range []*world.Edge{ab, ba, bc} {
		require.NoError(t, g.AddEdge(e))
	}

	removed, ok := g.RemoveEntity(b.ID)
	require.True(t, ok)
	assert.Len(t, removed, 3, "edges in both directions are cascaded")

	assert.Nil(t, g.Entity(b.ID))
	assert.Nil(t, g.Edge(ab.ID))
	assert.Nil(t, g.Edge(ba.ID))
	assert.Nil(t, g.Edge(bc.ID))
	assert.NotNil(t, g.Entity(a.ID))
	assert.NotNil(t, g.Entity(c.ID))

	_, ok = g.RemoveEntity(b.ID)
	assert.False(t, ok)
}

func TestGraphRemoveEntitySelfLoopOnce(t *testing.T) {
	g := world.NewGraph()
	a := world.NewEntity(world.EntityTypePerson, nil)
	require.NoError(t, g.AddEntity(a))
	loop := world.NewEdge(a.ID, a.ID, nil)
	require.NoError(t, g.AddEdge(loop))

	removed, ok := g.RemoveEntity(a.ID)
	require.True(t, ok)
	require.Len(t, removed, 1, "a self-loop is removed exactly once")
	assert.Equal(t, loop.ID, removed[0].ID)
}

func TestGraphRemoveEdgeLeavesEndpoints(t *testing.T) {
	g := world.NewGraph()
	a := world.NewEntity(world.EntityTypePerson, nil)
	b := world.NewEntity(world.EntityTypePerson, nil)
	require.NoError(t, g.AddEntity(a))
	require.NoError(t, g.AddEntity(b))
	edge := world.NewEdge(a.ID, b.ID, nil)
	require.NoError(t, g.AddEdge(edge))

	assert.True(t, g.RemoveEdge(edge.ID))
	assert.False(t, g.RemoveEdge(edge.ID))
	assert.NotNil(t, g.Entity(a.ID))
	assert.NotNil(t, g.Entity(b.ID))

	related, ok := g.RelatedEdges(a.ID)
	require.True(t, ok)
	assert.Empty(t, related)
	assert.NotNil(t, related)
}

func TestGraphRelatedEdges(t *testing.T) {
	g := world.NewGraph()
	a := world.NewEntity(world.EntityTypePerson, nil)
	b := world.NewEntity(world.EntityTypeOrganization, nil)
	require.NoError(t, g.AddEntity(a))
	require.NoError(t, g.AddEntity(b))
	out := world.NewEdge(a.ID, b.ID, nil)
	in := world.NewEdge(b.ID, a.ID, nil)
	require.NoError(t, g.AddEdge(out))
	require.NoError(t, g.AddEdge(in))

	related, ok := g.RelatedEdges(a.ID)
	require.True(t, ok)
	require.Len(t, related, 2)
	for _, triple := range related {
		assert.Equal(t, triple.Start.ID, triple.Edge.FromEntityID)
		assert.Equal(t, triple.End.ID, triple.Edge.ToEntityID)
	}

	_, ok = g.RelatedEdges(uuid.New())
	assert.False(t, ok)
}

func TestGraphEnumerationSorted(t *testing.T) {
	g := world.NewGraph()
	for i := 0; i < 8; i++ {
		require.NoError(t, g.AddEntity(world.NewEntity(world.EntityTypeItem, nil)))
	}

	entities := g.Entities()
	require.Len(t, entities, 8)
	for i := 1; i < len(entities); i++ {
		assert.Less(t, entities[i-1].ID.String(), entities[i].ID.String())
	}
}
