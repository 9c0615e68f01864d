// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plotweave-dev/plotweave/internal/index"
	"github.com/plotweave-dev/plotweave/internal/project"
	"github.com/plotweave-dev/plotweave/internal/server"
	"github.com/plotweave-dev/plotweave/internal/world"
)

// fakeEmbedder avoids any provider round trip in handler tests.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 4)
	for i := range v {
		v[i] = float32((len(text) + i) % 5)
	}
	return v, nil
}

func (fakeEmbedder) Dimensions() int { return 4 }

// fakeIndex is an in-memory index.Index with deterministic search order.
type fakeIndex struct {
	points map[string]index.Point
	order  []string
}

func (f *fakeIndex) Upsert(_ context.Context, p index.Point) error {
	if _, ok := f.points[p.ID]; !ok {
		f.order = append(f.order, p.ID)
	}
	f.points[p.ID] = p
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, limit int) ([]index.Hit, error) {
	var hits []index.Hit
	for i, id := range f.order {
		if len(hits) == limit {
			break
		}
		p, ok := f.points[id]
		if !ok {
			continue
		}
		hits = append(hits, index.Hit{ID: id, Score: 1 - float64(i)*0.05, Payload: p.Payload})
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

func fakeIndexOpener(string) world.IndexOpener {
	return func(context.Context, int) (index.Index, error) {
		return &fakeIndex{points: make(map[string]index.Point)}, nil
	}
}

func newTestServer(t *testing.T) (*server.Server, *project.Manager) {
	t.Helper()
	mgr := project.NewManager(project.ManagerConfig{DataDir: t.TempDir()},
		fakeEmbedder{}, fakeIndexOpener)
	t.Cleanup(func() { _ = mgr.CloseAll() })

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, mgr)
	require.NoError(t, err)
	return srv, mgr
}

func doJSON(t *testing.T, srv *server.Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func createTestProject(t *testing.T, srv *server.Server, name string) string {
	t.Helper()
	w := doJSON(t, srv, http.MethodPost, "/api/projects", fmt.Sprintf(`{"name":%q}`, name))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var meta project.Metadata
	decodeBody(t, w, &meta)
	return meta.ID
}

func createTestEntity(t *testing.T, srv *server.Server, projectID, entityType, attrs string) world.Entity {
	t.Helper()
	body := fmt.Sprintf(`{"type":%q,"attributes":%s}`, entityType, attrs)
	w := doJSON(t, srv, http.MethodPost, "/api/projects/"+projectID+"/world/entities", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var e world.Entity
	decodeBody(t, w, &e)
	return e
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)
}

func TestCreateAndListProjects(t *testing.T) {
	srv, _ := newTestServer(t)

	id := createTestProject(t, srv, "雾都疑云")
	require.NotEmpty(t, id)

	w := doJSON(t, srv, http.MethodGet, "/api/projects", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Projects []project.Metadata `json:"projects"`
	}
	decodeBody(t, w, &resp)
	require.Len(t, resp.Projects, 1)
	assert.Equal(t, "雾都疑云", resp.Projects[0].Name)
	assert.Equal(t, id, resp.Projects[0].ID)
}

func TestDeleteProject(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createTestProject(t, srv, "doomed")

	w := doJSON(t, srv, http.MethodDelete, "/api/projects/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodDelete, "/api/projects/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHeartbeat(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createTestProject(t, srv, "hb")

	w := doJSON(t, srv, http.MethodPost, "/api/projects/"+id+"/heartbeat", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHeartbeatUnknownProject(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/projects/00000000-0000-0000-0000-000000000001/heartbeat", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvalidProjectID(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/projects/not-a-uuid/outline", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOutlineGetAndUpdate(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createTestProject(t, srv, "outline")

	w := doJSON(t, srv, http.MethodGet, "/api/projects/"+id+"/outline", "")
	require.Equal(t, http.StatusOK, w.Code)
	var outline project.Outline
	decodeBody(t, w, &outline)
	assert.Equal(t, "未命名小说", outline.Title)

	w = doJSON(t, srv, http.MethodPost, "/api/projects/"+id+"/outline",
		`{"title":"诡秘之主","plots":["穿越","入会"]}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/projects/"+id+"/outline", "")
	decodeBody(t, w, &outline)
	assert.Equal(t, "诡秘之主", outline.Title)
	assert.Equal(t, []string{"穿越", "入会"}, outline.Plots)
}

func TestChaptersGetAndUpdate(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createTestProject(t, srv, "chapters")

	w := doJSON(t, srv, http.MethodPost, "/api/projects/"+id+"/chapters",
		`{"chapters":[{"title":"第一章","intent":"开场"}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/projects/"+id+"/chapters", "")
	require.Equal(t, http.StatusOK, w.Code)
	var chapters project.ChapterInfos
	decodeBody(t, w, &chapters)
	require.Len(t, chapters.Chapters, 1)
	assert.Equal(t, "第一章", chapters.Chapters[0].Title)
}

func TestEntityLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createTestProject(t, srv, "world")

	e := createTestEntity(t, srv, id, "PERSON",
		`{"名字":[{"value":"克莱恩","timestamp_desc":"穿越后"}]}`)
	assert.Equal(t, world.EntityTypePerson, e.Type)

	w := doJSON(t, srv, http.MethodGet, "/api/projects/"+id+"/world/entities/"+e.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	var got world.Entity
	decodeBody(t, w, &got)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, "克莱恩", got.Attributes["名字"][0].Value)

	w = doJSON(t, srv, http.MethodDelete, "/api/projects/"+id+"/world/entities/"+e.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deleted":true`)

	w = doJSON(t, srv, http.MethodGet, "/api/projects/"+id+"/world/entities/"+e.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddEntityRejectsUnknownType(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createTestProject(t, srv, "types")

	w := doJSON(t, srv, http.MethodPost, "/api/projects/"+id+"/world/entities",
		`{"type":"DRAGON"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "schema enum rejects unknown types")
}

func TestEntityAttributeUpdates(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createTestProject(t, srv, "attrs")
	e := createTestEntity(t, srv, id, "PERSON",
		`{"名字":[{"value":"克莱恩","timestamp_desc":"穿越后"}]}`)

	base := "/api/projects/" + id + "/world/entities/" + e.ID.String() + "/attributes"

	// Append keeps earlier values.
	w := doJSON(t, srv, http.MethodPost, base,
		`{"attributes":{"名字":[{"value":"夏洛克·莫里亚蒂","timestamp_desc":"化名后"}]}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got world.Entity
	decodeBody(t, w, &got)
	require.Len(t, got.Attributes["名字"], 2)

	// Replace discards them.
	w = doJSON(t, srv, http.MethodPut, base,
		`{"attributes":{"职业":[{"value":"占卜家","timestamp_desc":"序列9"}]}}`)
	require.Equal(t, http.StatusOK, w.Code)
	got = world.Entity{}
	decodeBody(t, w, &got)
	assert.NotContains(t, got.Attributes, "名字")
	assert.Contains(t, got.Attributes, "职业")
}

func TestEdgeLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createTestProject(t, srv, "edges")

	a := createTestEntity(t, srv, id, "PERSON", `{}`)
	b := createTestEntity(t, srv, id, "ORGANIZATION", `{}`)

	w := doJSON(t, srv, http.MethodPost, "/api/projects/"+id+"/world/edges",
		fmt.Sprintf(`{"from_entity_id":%q,"to_entity_id":%q,"attributes":{"关系":[{"value":"成员","timestamp_desc":"入会后"}]}}`,
			a.ID, b.ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var edge world.Edge
	decodeBody(t, w, &edge)
	assert.Equal(t, a.ID, edge.FromEntityID)

	// Related edges from either endpoint.
	w = doJSON(t, srv, http.MethodGet, "/api/projects/"+id+"/world/entities/"+b.ID.String()+"/related", "")
	require.Equal(t, http.StatusOK, w.Code)
	var related struct {
		Related []struct {
			Start world.Entity `json:"start"`
			Edge  world.Edge   `json:"edge"`
			End   world.Entity `json:"end"`
		} `json:"related"`
	}
	decodeBody(t, w, &related)
	require.Len(t, related.Related, 1)
	assert.Equal(t, a.ID, related.Related[0].Start.ID)
	assert.Equal(t, b.ID, related.Related[0].End.ID)

	// Directional query.
	w = doJSON(t, srv, http.MethodGet,
		fmt.Sprintf("/api/projects/%s/world/edges?from=%s&to=%s", id, a.ID, b.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	var between struct {
		Edges []world.Edge `json:"edges"`
	}
	decodeBody(t, w, &between)
	assert.Len(t, between.Edges, 1)

	w = doJSON(t, srv, http.MethodGet,
		fmt.Sprintf("/api/projects/%s/world/edges?from=%s&to=%s", id, b.ID, a.ID), "")
	decodeBody(t, w, &between)
	assert.Empty(t, between.Edges)

	// Delete.
	w = doJSON(t, srv, http.MethodDelete, "/api/projects/"+id+"/world/edges/"+edge.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deleted":true`)
}

func TestAddEdgeMissingEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createTestProject(t, srv, "dangling")
	a := createTestEntity(t, srv, id, "PERSON", `{}`)

	w := doJSON(t, srv, http.MethodPost, "/api/projects/"+id+"/world/edges",
		fmt.Sprintf(`{"from_entity_id":%q,"to_entity_id":"00000000-0000-0000-0000-000000000009"}`, a.ID))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearch(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createTestProject(t, srv, "search")

	a := createTestEntity(t, srv, id, "PERSON",
		`{"名字":[{"value":"克莱恩","timestamp_desc":"穿越后"}]}`)
	b := createTestEntity(t, srv, id, "ORGANIZATION", `{}`)

	w := doJSON(t, srv, http.MethodPost, "/api/projects/"+id+"/world/edges",
		fmt.Sprintf(`{"from_entity_id":%q,"to_entity_id":%q}`, a.ID, b.ID))
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/projects/"+id+"/world/search",
		`{"query":"神秘组织的成员"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Results []struct {
			Kind         string  `json:"kind"`
			ID           string  `json:"id"`
			Type         string  `json:"type"`
			FromEntityID string  `json:"from_entity_id"`
			ToEntityID   string  `json:"to_entity_id"`
			Score        float64 `json:"score"`
		} `json:"results"`
	}
	decodeBody(t, w, &resp)
	require.Len(t, resp.Results, 3)

	kinds := map[string]int{}
	for i, r := range resp.Results {
		kinds[r.Kind]++
		if r.Kind == "edge" {
			assert.Equal(t, a.ID.String(), r.FromEntityID)
			assert.Equal(t, b.ID.String(), r.ToEntityID)
			assert.Empty(t, r.Type)
		} else {
			assert.NotEmpty(t, r.Type)
			assert.Empty(t, r.FromEntityID)
		}
		if i > 0 {
			assert.LessOrEqual(t, r.Score, resp.Results[i-1].Score)
		}
	}
	assert.Equal(t, 2, kinds["entity"])
	assert.Equal(t, 1, kinds["edge"])
}

func TestSearchValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createTestProject(t, srv, "badsearch")

	w := doJSON(t, srv, http.MethodPost, "/api/projects/"+id+"/world/search", `{"query":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestOpenAPISpecServed(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/openapi.json", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "add-entity")
}
