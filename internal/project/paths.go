// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

// Package project manages fiction project lifecycles: per-project metadata,
// outline, chapter plan, and worldbuilding store, persisted under one
// directory per project id.
package project

import (
	"path/filepath"

	"github.com/google/uuid"

	"github.com/plotweave-dev/plotweave/internal/world"
)

// Per-project file layout under <dataDir>/<uuid>/.
const (
	MetadataFileName     = "metadata.json"
	OutlineFileName      = "outline.yaml"
	ChapterInfosFileName = "chapter_infos.yaml"
	IndexDirName         = "index"
	indexDBFileName      = "vectors.db"
)

// Dir returns the root directory for a project.
func Dir(dataDir string, id uuid.UUID) string {
	return filepath.Join(dataDir, id.String())
}

func metadataPath(dir string) string {
	return filepath.Join(dir, MetadataFileName)
}

func outlinePath(dir string) string {
	return filepath.Join(dir, OutlineFileName)
}

func chapterInfosPath(dir string) string {
	return filepath.Join(dir, ChapterInfosFileName)
}

func snapshotPath(dir string) string {
	return filepath.Join(dir, world.SnapshotFileName)
}

// IndexDBPath returns the semantic index database path for a project
// directory.
func IndexDBPath(dir string) string {
	return filepath.Join(dir, IndexDirName, indexDBFileName)
}
