// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

package project

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/plotweave-dev/plotweave/internal/embedding"
	"github.com/plotweave-dev/plotweave/internal/index"
	"github.com/plotweave-dev/plotweave/internal/index/sqlitevec"
	"github.com/plotweave-dev/plotweave/internal/world"
	pwerr "github.com/plotweave-dev/plotweave/pkg/errors"
)

// defaultProjectName names a project created without one.
const defaultProjectName = "未命名项目"

// IndexOpenerFactory builds a world.IndexOpener rooted at a project
// directory. Tests substitute in-memory fakes here.
type IndexOpenerFactory func(projectDir string) world.IndexOpener

// DefaultIndexOpener opens the embedded sqlite-vec index under the project's
// index directory.
func DefaultIndexOpener(projectDir string) world.IndexOpener {
	return func(_ context.Context, dimensions int) (index.Index, error) {
		dbPath := IndexDBPath(projectDir)
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, pwerr.Wrapf(err, pwerr.CodeIndexFailure, "creating index directory for %s", projectDir)
		}
		return sqlitevec.New(dbPath, dimensions)
	}
}

// Project aggregates everything one fiction project owns: its metadata,
// outline, chapter plan, and worldbuilding store. A Project instance is the
// exclusive owner of its directory; Manager enforces that at most one exists
// per id.
type Project struct {
	ID       uuid.UUID
	Metadata *Metadata
	Outline  *Outline
	Chapters *ChapterInfos
	World    *world.World

	// mu guards Metadata, Outline, and Chapters against concurrent HTTP
	// handlers and the background save sweep. The world has its own lock.
	mu  sync.Mutex
	dir string
}

// New creates a fresh project under dataDir. Nothing is persisted until
// Save; Initialize must still be called before using the world.
func New(dataDir, name string, embedder embedding.Embedder, openIndex IndexOpenerFactory) (*Project, error) {
	if name == "" {
		name = defaultProjectName
	}

	id := uuid.New()
	dir := Dir(dataDir, id)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, pwerr.Wrapf(err, pwerr.CodeProjectSaveFailure, "creating project directory %s", dir)
	}

	w, err := world.Open(snapshotPath(dir), embedder, openIndex(dir))
	if err != nil {
		return nil, err
	}

	return &Project{
		ID: id,
		Metadata: &Metadata{
			Name:  name,
			ID:    id.String(),
			Phase: PhaseOutline,
		},
		Outline:  NewOutline(),
		Chapters: NewChapterInfos(),
		World:    w,
		dir:      dir,
	}, nil
}

// Load reads an existing project from dataDir. A missing directory is a
// not-found error; corrupt metadata, outline, chapter, or snapshot files are
// hard errors rather than silently replaced defaults.
func Load(dataDir string, id uuid.UUID, embedder embedding.Embedder, openIndex IndexOpenerFactory) (*Project, error) {
	dir := Dir(dataDir, id)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, pwerr.New(pwerr.CodeProjectNotFound, "project directory not found",
			pwerr.FieldProjectID(id.String()))
	}

	meta, err := LoadMetadata(metadataPath(dir))
	if err != nil {
		return nil, err
	}
	outline, err := LoadOutline(outlinePath(dir))
	if err != nil {
		return nil, err
	}
	chapters, err := LoadChapterInfos(chapterInfosPath(dir))
	if err != nil {
		return nil, err
	}
	w, err := world.Open(snapshotPath(dir), embedder, openIndex(dir))
	if err != nil {
		return nil, err
	}

	return &Project{
		ID:       id,
		Metadata: meta,
		Outline:  outline,
		Chapters: chapters,
		World:    w,
		dir:      dir,
	}, nil
}

// Initialize prepares the world's semantic index. Must be called before any
// world operation.
func (p *Project) Initialize(ctx context.Context) error {
	return p.World.Initialize(ctx)
}

// Save persists metadata, outline, chapter plan, and the world snapshot. The
// semantic index is durable on every write and needs no flushing.
func (p *Project) Save() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.Metadata.SaveMetadata(metadataPath(p.dir)); err != nil {
		return err
	}
	if err := p.Outline.SaveOutline(outlinePath(p.dir)); err != nil {
		return err
	}
	if err := p.Chapters.SaveChapterInfos(chapterInfosPath(p.dir)); err != nil {
		return err
	}
	return p.World.SyncToDisk()
}

// OutlineCopy returns the current outline by value.
func (p *Project) OutlineCopy() Outline {
	p.mu.Lock()
	defer p.mu.Unlock()
	o := *p.Outline
	o.Plots = append([]string(nil), p.Outline.Plots...)
	return o
}

// SetOutline replaces the outline.
func (p *Project) SetOutline(o Outline) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if o.Plots == nil {
		o.Plots = []string{}
	}
	*p.Outline = o
}

// ChaptersCopy returns the current chapter plan by value.
func (p *Project) ChaptersCopy() ChapterInfos {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := ChapterInfos{Chapters: append([]ChapterInfo(nil), p.Chapters.Chapters...)}
	if c.Chapters == nil {
		c.Chapters = []ChapterInfo{}
	}
	return c
}

// SetChapters replaces the chapter plan.
func (p *Project) SetChapters(c ChapterInfos) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c.Chapters == nil {
		c.Chapters = []ChapterInfo{}
	}
	*p.Chapters = c
}

// MetadataCopy returns the current metadata by value.
func (p *Project) MetadataCopy() Metadata {
	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.Metadata
}

// Close releases the project's resources. It does not save; Manager saves
// before closing.
func (p *Project) Close() error {
	return p.World.Close()
}

// Dir returns the project's root directory.
func (p *Project) Dir() string {
	return p.dir
}
