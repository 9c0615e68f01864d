// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/plotweave-dev/plotweave/internal/world"
)

func (s *Server) registerWorldRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "add-entity",
		Method:      http.MethodPost,
		Path:        "/api/projects/{projectId}/world/entities",
		Summary:     "Add an entity",
		Tags:        []string{"world"},
	}, s.handleAddEntity)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-entity",
		Method:      http.MethodGet,
		Path:        "/api/projects/{projectId}/world/entities/{entityId}",
		Summary:     "Get an entity",
		Tags:        []string{"world"},
	}, s.handleGetEntity)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-entity",
		Method:      http.MethodDelete,
		Path:        "/api/projects/{projectId}/world/entities/{entityId}",
		Summary:     "Delete an entity and its relationships",
		Tags:        []string{"world"},
	}, s.handleDeleteEntity)

	huma.Register(s.api, huma.Operation{
		OperationID: "replace-entity-attributes",
		Method:      http.MethodPut,
		Path:        "/api/projects/{projectId}/world/entities/{entityId}/attributes",
		Summary:     "Replace an entity's attributes",
		Tags:        []string{"world"},
	}, s.handleReplaceEntityAttributes)

	huma.Register(s.api, huma.Operation{
		OperationID: "append-entity-attributes",
		Method:      http.MethodPost,
		Path:        "/api/projects/{projectId}/world/entities/{entityId}/attributes",
		Summary:     "Append to an entity's attribute timelines",
		Tags:        []string{"world"},
	}, s.handleAppendEntityAttributes)

	huma.Register(s.api, huma.Operation{
		OperationID: "related-edges",
		Method:      http.MethodGet,
		Path:        "/api/projects/{projectId}/world/entities/{entityId}/related",
		Summary:     "List relationships touching an entity",
		Tags:        []string{"world"},
	}, s.handleRelatedEdges)

	huma.Register(s.api, huma.Operation{
		OperationID: "add-edge",
		Method:      http.MethodPost,
		Path:        "/api/projects/{projectId}/world/edges",
		Summary:     "Add a relationship",
		Tags:        []string{"world"},
	}, s.handleAddEdge)

	huma.Register(s.api, huma.Operation{
		OperationID: "edges-between",
		Method:      http.MethodGet,
		Path:        "/api/projects/{projectId}/world/edges",
		Summary:     "List relationships from one entity to another",
		Tags:        []string{"world"},
	}, s.handleEdgesBetween)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-edge",
		Method:      http.MethodGet,
		Path:        "/api/projects/{projectId}/world/edges/{edgeId}",
		Summary:     "Get a relationship",
		Tags:        []string{"world"},
	}, s.handleGetEdge)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-edge",
		Method:      http.MethodDelete,
		Path:        "/api/projects/{projectId}/world/edges/{edgeId}",
		Summary:     "Delete a relationship",
		Tags:        []string{"world"},
	}, s.handleDeleteEdge)

	huma.Register(s.api, huma.Operation{
		OperationID: "replace-edge-attributes",
		Method:      http.MethodPut,
		Path:        "/api/projects/{projectId}/world/edges/{edgeId}/attributes",
		Summary:     "Replace a relationship's attributes",
		Tags:        []string{"world"},
	}, s.handleReplaceEdgeAttributes)

	huma.Register(s.api, huma.Operation{
		OperationID: "append-edge-attributes",
		Method:      http.MethodPost,
		Path:        "/api/projects/{projectId}/world/edges/{edgeId}/attributes",
		Summary:     "Append to a relationship's attribute timelines",
		Tags:        []string{"world"},
	}, s.handleAppendEdgeAttributes)

	huma.Register(s.api, huma.Operation{
		OperationID: "search-world",
		Method:      http.MethodPost,
		Path:        "/api/projects/{projectId}/world/search",
		Summary:     "Semantic search over entities and relationships",
		Tags:        []string{"world"},
	}, s.handleSearchWorld)
}

// --- Request/Response types ---

type EntityRefInput struct {
	ProjectIDInput
	EntityID string `path:"entityId" doc:"Entity id"`
}

type EdgeRefInput struct {
	ProjectIDInput
	EdgeID string `path:"edgeId" doc:"Relationship id"`
}

type addEntityInput struct {
	ProjectIDInput
	Body struct {
		Type       string             `json:"type" enum:"PERSON,PLACE,ITEM,ORGANIZATION" doc:"Entity type"`
		Attributes world.AttributeMap `json:"attributes,omitempty" doc:"Initial attribute timelines"`
	}
}

type entityOutput struct {
	Body world.Entity
}

type addEdgeInput struct {
	ProjectIDInput
	Body struct {
		FromEntityID string             `json:"from_entity_id" doc:"Source entity id"`
		ToEntityID   string             `json:"to_entity_id" doc:"Target entity id"`
		Attributes   world.AttributeMap `json:"attributes,omitempty" doc:"Initial attribute timelines"`
	}
}

type edgeOutput struct {
	Body world.Edge
}

type attributesInput struct {
	EntityRefInput
	Body struct {
		Attributes world.AttributeMap `json:"attributes" doc:"Attribute timelines"`
	}
}

type edgeAttributesInput struct {
	EdgeRefInput
	Body struct {
		Attributes world.AttributeMap `json:"attributes" doc:"Attribute timelines"`
	}
}

type deletedOutput struct {
	Body struct {
		Deleted bool `json:"deleted" doc:"Whether the element existed"`
	}
}

// relatedEdgeBody is one (start, edge, end) triple on the wire.
type relatedEdgeBody struct {
	Start world.Entity `json:"start"`
	Edge  world.Edge   `json:"edge"`
	End   world.Entity `json:"end"`
}

type relatedEdgesOutput struct {
	Body struct {
		Related []relatedEdgeBody `json:"related"`
	}
}

type edgesBetweenInput struct {
	ProjectIDInput
	From string `query:"from" required:"true" doc:"Source entity id"`
	To   string `query:"to" required:"true" doc:"Target entity id"`
}

type edgesOutput struct {
	Body struct {
		Edges []world.Edge `json:"edges"`
	}
}

type searchInput struct {
	ProjectIDInput
	Body struct {
		Query string `json:"query" minLength:"1" doc:"Natural-language query"`
		Limit int    `json:"limit,omitempty" minimum:"1" maximum:"100" doc:"Maximum results, default 10"`
	}
}

// searchResultBody is one search hit. Type is present for entity hits,
// from/to for relationship hits.
type searchResultBody struct {
	Kind         string  `json:"kind" enum:"entity,edge"`
	ID           string  `json:"id"`
	Type         string  `json:"type,omitempty"`
	FromEntityID string  `json:"from_entity_id,omitempty"`
	ToEntityID   string  `json:"to_entity_id,omitempty"`
	Score        float64 `json:"score"`
}

type searchOutput struct {
	Body struct {
		Results []searchResultBody `json:"results"`
	}
}

// --- Handlers ---

func parseID(raw, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, huma.Error400BadRequest(fmt.Sprintf("invalid %s id %q", what, raw))
	}
	return id, nil
}

func (s *Server) handleAddEntity(ctx context.Context, input *addEntityInput) (*entityOutput, error) {
	p, err := s.getProject(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}

	entityType, err := world.ParseEntityType(input.Body.Type)
	if err != nil {
		return nil, apiError(err)
	}

	e := world.NewEntity(entityType, input.Body.Attributes)
	if err := p.World.AddEntity(ctx, e); err != nil {
		return nil, apiError(err)
	}
	return &entityOutput{Body: *e}, nil
}

func (s *Server) handleGetEntity(ctx context.Context, input *EntityRefInput) (*entityOutput, error) {
	p, err := s.getProject(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	id, err := parseID(input.EntityID, "entity")
	if err != nil {
		return nil, err
	}

	e, err := p.World.GetEntity(id)
	if err != nil {
		return nil, apiError(err)
	}
	return &entityOutput{Body: *e}, nil
}

func (s *Server) handleDeleteEntity(ctx context.Context, input *EntityRefInput) (*deletedOutput, error) {
	p, err := s.getProject(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	id, err := parseID(input.EntityID, "entity")
	if err != nil {
		return nil, err
	}

	ok, err := p.World.DeleteEntity(ctx, id)
	if err != nil {
		return nil, apiError(err)
	}
	out := &deletedOutput{}
	out.Body.Deleted = ok
	return out, nil
}

func (s *Server) handleReplaceEntityAttributes(ctx context.Context, input *attributesInput) (*entityOutput, error) {
	return s.updateEntityAttributes(ctx, input, (*world.World).ReplaceEntityAttributes)
}

func (s *Server) handleAppendEntityAttributes(ctx context.Context, input *attributesInput) (*entityOutput, error) {
	return s.updateEntityAttributes(ctx, input, (*world.World).AppendEntityAttributes)
}

func (s *Server) updateEntityAttributes(
	ctx context.Context,
	input *attributesInput,
	apply func(*world.World, context.Context, uuid.UUID, world.AttributeMap) error,
) (*entityOutput, error) {
	p, err := s.getProject(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	id, err := parseID(input.EntityID, "entity")
	if err != nil {
		return nil, err
	}

	if err := apply(p.World, ctx, id, input.Body.Attributes); err != nil {
		return nil, apiError(err)
	}
	e, err := p.World.GetEntity(id)
	if err != nil {
		return nil, apiError(err)
	}
	return &entityOutput{Body: *e}, nil
}

func (s *Server) handleRelatedEdges(ctx context.Context, input *EntityRefInput) (*relatedEdgesOutput, error) {
	p, err := s.getProject(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	id, err := parseID(input.EntityID, "entity")
	if err != nil {
		return nil, err
	}

	related, err := p.World.RelatedEdges(id)
	if err != nil {
		return nil, apiError(err)
	}

	out := &relatedEdgesOutput{}
	out.Body.Related = make([]relatedEdgeBody, 0, len(related))
	for _, triple := range related {
		out.Body.Related = append(out.Body.Related, relatedEdgeBody{
			Start: *triple.Start,
			Edge:  *triple.Edge,
			End:   *triple.End,
		})
	}
	return out, nil
}

func (s *Server) handleAddEdge(ctx context.Context, input *addEdgeInput) (*edgeOutput, error) {
	p, err := s.getProject(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	from, err := parseID(input.Body.FromEntityID, "entity")
	if err != nil {
		return nil, err
	}
	to, err := parseID(input.Body.ToEntityID, "entity")
	if err != nil {
		return nil, err
	}

	e := world.NewEdge(from, to, input.Body.Attributes)
	if err := p.World.AddEdge(ctx, e); err != nil {
		return nil, apiError(err)
	}
	return &edgeOutput{Body: *e}, nil
}

func (s *Server) handleEdgesBetween(ctx context.Context, input *edgesBetweenInput) (*edgesOutput, error) {
	p, err := s.getProject(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	from, err := parseID(input.From, "entity")
	if err != nil {
		return nil, err
	}
	to, err := parseID(input.To, "entity")
	if err != nil {
		return nil, err
	}

	edges, err := p.World.EdgesBetween(from, to)
	if err != nil {
		return nil, apiError(err)
	}

	out := &edgesOutput{}
	out.Body.Edges = make([]world.Edge, 0, len(edges))
	for _, e := range edges {
		out.Body.Edges = append(out.Body.Edges, *e)
	}
	return out, nil
}

func (s *Server) handleGetEdge(ctx context.Context, input *EdgeRefInput) (*edgeOutput, error) {
	p, err := s.getProject(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	id, err := parseID(input.EdgeID, "edge")
	if err != nil {
		return nil, err
	}

	e, err := p.World.GetEdge(id)
	if err != nil {
		return nil, apiError(err)
	}
	return &edgeOutput{Body: *e}, nil
}

func (s *Server) handleDeleteEdge(ctx context.Context, input *EdgeRefInput) (*deletedOutput, error) {
	p, err := s.getProject(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	id, err := parseID(input.EdgeID, "edge")
	if err != nil {
		return nil, err
	}

	ok, err := p.World.DeleteEdge(ctx, id)
	if err != nil {
		return nil, apiError(err)
	}
	out := &deletedOutput{}
	out.Body.Deleted = ok
	return out, nil
}

func (s *Server) handleReplaceEdgeAttributes(ctx context.Context, input *edgeAttributesInput) (*edgeOutput, error) {
	return s.updateEdgeAttributes(ctx, input, (*world.World).ReplaceEdgeAttributes)
}

func (s *Server) handleAppendEdgeAttributes(ctx context.Context, input *edgeAttributesInput) (*edgeOutput, error) {
	return s.updateEdgeAttributes(ctx, input, (*world.World).AppendEdgeAttributes)
}

func (s *Server) updateEdgeAttributes(
	ctx context.Context,
	input *edgeAttributesInput,
	apply func(*world.World, context.Context, uuid.UUID, world.AttributeMap) error,
) (*edgeOutput, error) {
	p, err := s.getProject(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	id, err := parseID(input.EdgeID, "edge")
	if err != nil {
		return nil, err
	}

	if err := apply(p.World, ctx, id, input.Body.Attributes); err != nil {
		return nil, apiError(err)
	}
	e, err := p.World.GetEdge(id)
	if err != nil {
		return nil, apiError(err)
	}
	return &edgeOutput{Body: *e}, nil
}

func (s *Server) handleSearchWorld(ctx context.Context, input *searchInput) (*searchOutput, error) {
	p, err := s.getProject(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}

	limit := input.Body.Limit
	if limit == 0 {
		limit = 10
	}

	results, err := p.World.Search(ctx, input.Body.Query, limit)
	if err != nil {
		return nil, apiError(err)
	}

	out := &searchOutput{}
	out.Body.Results = make([]searchResultBody, 0, len(results))
	for _, r := range results {
		body := searchResultBody{
			Kind:  string(r.Kind),
			ID:    r.ID.String(),
			Score: r.Score,
		}
		if r.Kind == world.ResultKindEntity {
			body.Type = string(r.Type)
		} else {
			body.FromEntityID = r.FromEntityID.String()
			body.ToEntityID = r.ToEntityID.String()
		}
		out.Body.Results = append(out.Body.Results, body)
	}
	return out, nil
}
