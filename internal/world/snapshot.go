// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

package world

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	pwerr "github.com/plotweave-dev/plotweave/pkg/errors"
)

// SnapshotFileName is the graph snapshot file inside a project directory.
const SnapshotFileName = "graph.json"

// snapshotFile is the on-disk shape of a graph snapshot: one JSON blob with
// entities and edges sorted by id for stable diffs.
type snapshotFile struct {
	Entities []*Entity `json:"entities"`
	Edges    []*Edge   `json:"edges"`
}

// loadSnapshot reads the snapshot at path and rebuilds the graph. A missing
// file yields an empty graph; a present-but-unreadable snapshot is a hard
// error, never silently discarded.
func loadSnapshot(path string) (*Graph, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewGraph(), nil
	}
	if err != nil {
		return nil, pwerr.Errorf(pwerr.CodeWorldSnapshotFailure, "reading snapshot %s: %w", path, err)
	}

	var file snapshotFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, pwerr.Errorf(pwerr.CodeWorldSnapshotCorrupt, "parsing snapshot %s: %w", path, err)
	}

	g := NewGraph()
	for _, e := range file.Entities {
		if _, err := ParseEntityType(string(e.Type)); err != nil {
			return nil, pwerr.Errorf(pwerr.CodeWorldSnapshotCorrupt,
				"snapshot %s: entity %s has invalid type %q", path, e.ID, e.Type)
		}
		if e.Attributes == nil {
			e.Attributes = AttributeMap{}
		}
		if err := g.AddEntity(e); err != nil {
			return nil, pwerr.Wrapf(err, pwerr.CodeWorldSnapshotCorrupt, "snapshot %s: restoring entity %s", path, e.ID)
		}
	}
	for _, e := range file.Edges {
		if e.Attributes == nil {
			e.Attributes = AttributeMap{}
		}
		if err := g.AddEdge(e); err != nil {
			return nil, pwerr.Wrapf(err, pwerr.CodeWorldSnapshotCorrupt, "snapshot %s: restoring edge %s", path, e.ID)
		}
	}
	return g, nil
}

// writeSnapshot serializes the graph to path atomically (temp file plus
// rename), creating parent directories as needed.
func writeSnapshot(path string, g *Graph) error {
	file := snapshotFile{
		Entities: g.Entities(),
		Edges:    g.Edges(),
	}

	raw, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return pwerr.Errorf(pwerr.CodeWorldSnapshotFailure, "serializing snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return pwerr.Errorf(pwerr.CodeWorldSnapshotFailure, "creating snapshot directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return pwerr.Errorf(pwerr.CodeWorldSnapshotFailure, "writing snapshot %s: %w", tmp, err)
	}
	if _, err := f.Write(raw); err != nil {
		_ = f.Close()
		return pwerr.Errorf(pwerr.CodeWorldSnapshotFailure, "writing snapshot %s: %w", tmp, err)
	}
	// The data must be on stable storage before the rename publishes it.
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return pwerr.Errorf(pwerr.CodeWorldSnapshotFailure, "syncing snapshot %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return pwerr.Errorf(pwerr.CodeWorldSnapshotFailure, "closing snapshot %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return pwerr.Errorf(pwerr.CodeWorldSnapshotFailure, "replacing snapshot %s: %w", path, err)
	}
	return nil
}
