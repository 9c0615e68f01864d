// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

package project

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/plotweave-dev/plotweave/internal/embedding"
	pwerr "github.com/plotweave-dev/plotweave/pkg/errors"
)

// ManagerConfig tunes the active-project cache.
type ManagerConfig struct {
	DataDir         string
	InactiveTimeout time.Duration // evict projects whose last heartbeat is older than this
	SweepInterval   time.Duration // how often the background sweep runs
}

const (
	defaultInactiveTimeout = 10 * time.Minute
	defaultSweepInterval   = 30 * time.Second
)

type activeProject struct {
	project       *Project
	lastHeartbeat time.Time
}

// Manager creates, caches, and evicts active projects. It is the single
// owner of every open Project: all access goes through Get, and eviction
// saves before closing. Clients keep a project active by sending heartbeats.
type Manager struct {
	cfg       ManagerConfig
	embedder  embedding.Embedder
	openIndex IndexOpenerFactory
	logger    *slog.Logger

	mu     sync.RWMutex
	active map[uuid.UUID]*activeProject
}

// NewManager creates a Manager storing project data under cfg.DataDir.
func NewManager(cfg ManagerConfig, embedder embedding.Embedder, openIndex IndexOpenerFactory) *Manager {
	if cfg.InactiveTimeout <= 0 {
		cfg.InactiveTimeout = defaultInactiveTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if openIndex == nil {
		openIndex = DefaultIndexOpener
	}
	return &Manager{
		cfg:       cfg,
		embedder:  embedder,
		openIndex: openIndex,
		logger:    slog.Default(),
		active:    make(map[uuid.UUID]*activeProject),
	}
}

// Get returns the active project for id, loading and initializing it from
// disk on first access. Loading sets an initial heartbeat.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Project, error) {
	m.mu.RLock()
	if entry, ok := m.active[id]; ok {
		m.mu.RUnlock()
		return entry.project, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock.
	if entry, ok := m.active[id]; ok {
		return entry.project, nil
	}

	m.logger.Info("loading project into active set", "project_id", id)
	p, err := Load(m.cfg.DataDir, id, m.embedder, m.openIndex)
	if err != nil {
		return nil, err
	}
	if err := p.Initialize(ctx); err != nil {
		_ = p.Close()
		return nil, err
	}

	m.active[id] = &activeProject{project: p, lastHeartbeat: time.Now()}
	return p, nil
}

// Create makes a new project, persists it, and adds it to the active set.
func (m *Manager) Create(ctx context.Context, name string) (*Project, error) {
	p, err := New(m.cfg.DataDir, name, m.embedder, m.openIndex)
	if err != nil {
		return nil, err
	}
	if err := p.Initialize(ctx); err != nil {
		_ = p.Close()
		return nil, err
	}
	if err := p.Save(); err != nil {
		_ = p.Close()
		return nil, err
	}

	m.mu.Lock()
	m.active[p.ID] = &activeProject{project: p, lastHeartbeat: time.Now()}
	m.mu.Unlock()

	m.logger.Info("created project", "project_id", p.ID, "name", name)
	return p, nil
}

// Heartbeat refreshes a project's activity timestamp. Returns false when the
// project is not in the active set.
func (m *Manager) Heartbeat(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.active[id]
	if !ok {
		return false
	}
	entry.lastHeartbeat = time.Now()
	return true
}

// Remove saves and closes an active project and drops it from the cache.
// Removing an inactive project is a no-op.
func (m *Manager) Remove(id uuid.UUID) error {
	m.mu.Lock()
	entry, ok := m.active[id]
	delete(m.active, id)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return saveAndClose(entry.project)
}

// Delete evicts a project (without saving) and deletes its directory.
func (m *Manager) Delete(id uuid.UUID) error {
	dir := Dir(m.cfg.DataDir, id)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return pwerr.New(pwerr.CodeProjectNotFound, "project directory not found",
			pwerr.FieldProjectID(id.String()))
	}

	m.mu.Lock()
	entry, ok := m.active[id]
	delete(m.active, id)
	m.mu.Unlock()

	if ok {
		if err := entry.project.Close(); err != nil {
			m.logger.Warn("closing project before delete", "project_id", id, "error", err)
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return pwerr.Wrapf(err, pwerr.CodeProjectSaveFailure, "deleting project directory %s", dir)
	}
	m.logger.Info("deleted project", "project_id", id)
	return nil
}

// List returns metadata for every project under the data dir, active or not.
// A corrupt metadata file fails the whole listing; half a project list is
// worse than an actionable error.
func (m *Manager) List() ([]Metadata, error) {
	entries, err := os.ReadDir(m.cfg.DataDir)
	if os.IsNotExist(err) {
		return []Metadata{}, nil
	}
	if err != nil {
		return nil, pwerr.Wrapf(err, pwerr.CodeProjectLoadFailure, "reading data directory %s", m.cfg.DataDir)
	}

	projects := make([]Metadata, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := uuid.Parse(entry.Name())
		if err != nil {
			// Not a project directory.
			continue
		}
		meta, err := LoadMetadata(metadataPath(Dir(m.cfg.DataDir, id)))
		if err != nil {
			return nil, err
		}
		projects = append(projects, *meta)
	}
	return projects, nil
}

// Run sweeps the active set until ctx is cancelled: expired projects are
// saved and evicted, surviving ones are saved in place so a crash loses at
// most one interval of work. Call CloseAll after Run returns.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Manager) sweep() {
	now := time.Now()

	m.mu.Lock()
	expired := make([]*Project, 0)
	remaining := make([]*Project, 0, len(m.active))
	for id, entry := range m.active {
		if now.Sub(entry.lastHeartbeat) > m.cfg.InactiveTimeout {
			expired = append(expired, entry.project)
			delete(m.active, id)
		} else {
			remaining = append(remaining, entry.project)
		}
	}
	m.mu.Unlock()

	for _, p := range expired {
		m.logger.Info("evicting inactive project", "project_id", p.ID)
		if err := saveAndClose(p); err != nil {
			m.logger.Error("saving evicted project", "project_id", p.ID, "error", err)
		}
	}
	for _, p := range remaining {
		if err := p.Save(); err != nil {
			m.logger.Error("saving active project", "project_id", p.ID, "error", err)
		}
	}
}

// CloseAll saves and closes every active project. Used at shutdown.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	projects := make([]*Project, 0, len(m.active))
	for id, entry := range m.active {
		projects = append(projects, entry.project)
		delete(m.active, id)
	}
	m.mu.Unlock()

	var errs []error
	for _, p := range projects {
		if err := saveAndClose(p); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return pwerr.Join(errs...)
	}
	return nil
}

func saveAndClose(p *Project) error {
	saveErr := p.Save()
	closeErr := p.Close()
	if saveErr != nil {
		return saveErr
	}
	return closeErr
}
