// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

package project

import (
	"os"

	"gopkg.in/yaml.v3"

	pwerr "github.com/plotweave-dev/plotweave/pkg/errors"
)

// ChapterInfo is a chapter's plan entry: its title and what the chapter is
// meant to accomplish in the story. Prose content lives elsewhere.
type ChapterInfo struct {
	Title  string `yaml:"title" json:"title"`
	Intent string `yaml:"intent" json:"intent"`
}

// ChapterInfos is the ordered chapter plan for a project.
type ChapterInfos struct {
	Chapters []ChapterInfo `yaml:"chapters" json:"chapters"`
}

// NewChapterInfos returns an empty chapter plan.
func NewChapterInfos() *ChapterInfos {
	return &ChapterInfos{Chapters: []ChapterInfo{}}
}

// LoadChapterInfos reads and validates a chapter_infos.yaml file.
func LoadChapterInfos(path string) (*ChapterInfos, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, pwerr.Wrapf(err, pwerr.CodeProjectNotFound, "chapter infos %s not found", path)
	}
	if err != nil {
		return nil, pwerr.Wrapf(err, pwerr.CodeProjectLoadFailure, "reading chapter infos %s", path)
	}

	var c ChapterInfos
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, pwerr.Wrapf(err, pwerr.CodeProjectLoadFailure, "parsing chapter infos %s", path)
	}
	if c.Chapters == nil {
		c.Chapters = []ChapterInfo{}
	}
	return &c, nil
}

// SaveChapterInfos writes the chapter plan to path, replacing any existing
// file.
func (c *ChapterInfos) SaveChapterInfos(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return pwerr.Wrapf(err, pwerr.CodeProjectSaveFailure, "encoding chapter infos")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return pwerr.Wrapf(err, pwerr.CodeProjectSaveFailure, "writing chapter infos %s", path)
	}
	return nil
}
