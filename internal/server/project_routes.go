// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/plotweave-dev/plotweave/internal/project"
)

func (s *Server) registerProjectRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/api/projects",
		Summary:     "List all projects",
		Tags:        []string{"projects"},
	}, s.handleListProjects)

	huma.Register(s.api, huma.Operation{
		OperationID: "create-project",
		Method:      http.MethodPost,
		Path:        "/api/projects",
		Summary:     "Create a project",
		Tags:        []string{"projects"},
	}, s.handleCreateProject)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-project",
		Method:      http.MethodDelete,
		Path:        "/api/projects/{projectId}",
		Summary:     "Delete a project and its data",
		Tags:        []string{"projects"},
	}, s.handleDeleteProject)

	huma.Register(s.api, huma.Operation{
		OperationID: "project-heartbeat",
		Method:      http.MethodPost,
		Path:        "/api/projects/{projectId}/heartbeat",
		Summary:     "Keep a project active",
		Description: "Loads the project if needed and refreshes its activity timestamp.",
		Tags:        []string{"projects"},
	}, s.handleProjectHeartbeat)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-outline",
		Method:      http.MethodGet,
		Path:        "/api/projects/{projectId}/outline",
		Summary:     "Get the project outline",
		Tags:        []string{"outline"},
	}, s.handleGetOutline)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-outline",
		Method:      http.MethodPost,
		Path:        "/api/projects/{projectId}/outline",
		Summary:     "Replace the project outline",
		Tags:        []string{"outline"},
	}, s.handleUpdateOutline)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-chapters",
		Method:      http.MethodGet,
		Path:        "/api/projects/{projectId}/chapters",
		Summary:     "Get the chapter plan",
		Tags:        []string{"chapters"},
	}, s.handleGetChapters)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-chapters",
		Method:      http.MethodPost,
		Path:        "/api/projects/{projectId}/chapters",
		Summary:     "Replace the chapter plan",
		Tags:        []string{"chapters"},
	}, s.handleUpdateChapters)
}

// --- Request/Response types ---

type ProjectIDInput struct {
	ProjectID string `path:"projectId" doc:"Project id"`
}

type listProjectsOutput struct {
	Body struct {
		Projects []project.Metadata `json:"projects"`
	}
}

type createProjectInput struct {
	Body struct {
		Name string `json:"name" doc:"Project name, need not be unique"`
	}
}
type createProjectOutput struct {
	Body project.Metadata
}

type deleteProjectOutput struct {
	Body struct {
		OK bool `json:"ok"`
	}
}

type heartbeatOutput struct {
	Body struct {
		Message string `json:"message"`
	}
}

type outlineOutput struct {
	Body project.Outline
}

type updateOutlineInput struct {
	ProjectIDInput
	Body project.Outline
}

type chaptersOutput struct {
	Body project.ChapterInfos
}

type updateChaptersInput struct {
	ProjectIDInput
	Body project.ChapterInfos
}

// --- Handlers ---

func (s *Server) parseProjectID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, huma.Error400BadRequest(fmt.Sprintf("invalid project id %q", raw))
	}
	return id, nil
}

func (s *Server) getProject(ctx context.Context, raw string) (*project.Project, error) {
	id, err := s.parseProjectID(raw)
	if err != nil {
		return nil, err
	}
	p, err := s.projects.Get(ctx, id)
	if err != nil {
		return nil, apiError(err)
	}
	return p, nil
}

func (s *Server) handleListProjects(_ context.Context, _ *struct{}) (*listProjectsOutput, error) {
	projects, err := s.projects.List()
	if err != nil {
		return nil, apiError(err)
	}
	out := &listProjectsOutput{}
	out.Body.Projects = projects
	return out, nil
}

func (s *Server) handleCreateProject(ctx context.Context, input *createProjectInput) (*createProjectOutput, error) {
	p, err := s.projects.Create(ctx, input.Body.Name)
	if err != nil {
		return nil, apiError(err)
	}
	return &createProjectOutput{Body: p.MetadataCopy()}, nil
}

func (s *Server) handleDeleteProject(_ context.Context, input *ProjectIDInput) (*deleteProjectOutput, error) {
	id, err := s.parseProjectID(input.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := s.projects.Delete(id); err != nil {
		return nil, apiError(err)
	}
	out := &deleteProjectOutput{}
	out.Body.OK = true
	return out, nil
}

func (s *Server) handleProjectHeartbeat(ctx context.Context, input *ProjectIDInput) (*heartbeatOutput, error) {
	id, err := s.parseProjectID(input.ProjectID)
	if err != nil {
		return nil, err
	}
	// Get loads the project if it is not active yet.
	if _, err := s.projects.Get(ctx, id); err != nil {
		return nil, apiError(err)
	}
	s.projects.Heartbeat(id)

	out := &heartbeatOutput{}
	out.Body.Message = fmt.Sprintf("project %s is active", id)
	return out, nil
}

func (s *Server) handleGetOutline(ctx context.Context, input *ProjectIDInput) (*outlineOutput, error) {
	p, err := s.getProject(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	return &outlineOutput{Body: p.OutlineCopy()}, nil
}

func (s *Server) handleUpdateOutline(ctx context.Context, input *updateOutlineInput) (*outlineOutput, error) {
	p, err := s.getProject(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	p.SetOutline(input.Body)
	return &outlineOutput{Body: p.OutlineCopy()}, nil
}

func (s *Server) handleGetChapters(ctx context.Context, input *ProjectIDInput) (*chaptersOutput, error) {
	p, err := s.getProject(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	return &chaptersOutput{Body: p.ChaptersCopy()}, nil
}

func (s *Server) handleUpdateChapters(ctx context.Context, input *updateChaptersInput) (*chaptersOutput, error) {
	p, err := s.getProject(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	p.SetChapters(input.Body)
	return &chaptersOutput{Body: p.ChaptersCopy()}, nil
}
