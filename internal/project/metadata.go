// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

package project

import (
	"encoding/json"
	"os"

	pwerr "github.com/plotweave-dev/plotweave/pkg/errors"
)

// Phase is a project's position in the writing workflow. Serialized as an
// integer so that phase ordering comparisons stay trivial for clients.
type Phase int

const (
	PhaseOutline Phase = iota
	PhaseWorldSetup
	PhaseChaptering
	PhaseChapterWriting
)

// String returns the phase's wire-independent display name.
func (p Phase) String() string {
	switch p {
	case PhaseOutline:
		return "OUTLINE"
	case PhaseWorldSetup:
		return "WORLD_SETUP"
	case PhaseChaptering:
		return "CHAPTERING"
	case PhaseChapterWriting:
		return "CHAPTER_WRITING"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether p is a known phase value.
func (p Phase) Valid() bool {
	return p >= PhaseOutline && p <= PhaseChapterWriting
}

// Metadata is a project's persisted descriptor.
type Metadata struct {
	Name                string `json:"name"`
	ID                  string `json:"id"`
	Phase               Phase  `json:"phase"`
	WritingChapterIndex int    `json:"writing_chapter_index"`
}

// LoadMetadata reads and validates a metadata.json file. A missing file is a
// not-found error; anything unparseable is a load failure.
func LoadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, pwerr.Wrapf(err, pwerr.CodeProjectNotFound, "project metadata %s not found", path)
	}
	if err != nil {
		return nil, pwerr.Wrapf(err, pwerr.CodeProjectLoadFailure, "reading project metadata %s", path)
	}

	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, pwerr.Wrapf(err, pwerr.CodeProjectLoadFailure, "parsing project metadata %s", path)
	}
	if !m.Phase.Valid() {
		return nil, pwerr.Errorf(pwerr.CodeProjectLoadFailure, "project metadata %s has unknown phase %d", path, m.Phase)
	}
	if m.WritingChapterIndex < 0 {
		return nil, pwerr.Errorf(pwerr.CodeProjectLoadFailure,
			"project metadata %s has negative writing chapter index %d", path, m.WritingChapterIndex)
	}
	return &m, nil
}

// SaveMetadata writes metadata to path, replacing any existing file.
func (m *Metadata) SaveMetadata(path string) error {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return pwerr.Wrapf(err, pwerr.CodeProjectSaveFailure, "encoding project metadata")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return pwerr.Wrapf(err, pwerr.CodeProjectSaveFailure, "writing project metadata %s", path)
	}
	return nil
}
