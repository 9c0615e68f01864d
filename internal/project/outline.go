// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

package project

import (
	"os"

	"gopkg.in/yaml.v3"

	pwerr "github.com/plotweave-dev/plotweave/pkg/errors"
)

// defaultOutlineTitle names an outline before the author picks a real title.
const defaultOutlineTitle = "未命名小说"

// Outline is a novel's top-level plan: its title and the main plot beats, in
// story order.
type Outline struct {
	Title string   `yaml:"title" json:"title"`
	Plots []string `yaml:"plots" json:"plots"`
}

// NewOutline returns an empty outline with the default title.
func NewOutline() *Outline {
	return &Outline{Title: defaultOutlineTitle, Plots: []string{}}
}

// LoadOutline reads and validates an outline.yaml file.
func LoadOutline(path string) (*Outline, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, pwerr.Wrapf(err, pwerr.CodeProjectNotFound, "outline %s not found", path)
	}
	if err != nil {
		return nil, pwerr.Wrapf(err, pwerr.CodeProjectLoadFailure, "reading outline %s", path)
	}

	var o Outline
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, pwerr.Wrapf(err, pwerr.CodeProjectLoadFailure, "parsing outline %s", path)
	}
	if o.Plots == nil {
		o.Plots = []string{}
	}
	return &o, nil
}

// SaveOutline writes the outline to path, replacing any existing file.
func (o *Outline) SaveOutline(path string) error {
	data, err := yaml.Marshal(o)
	if err != nil {
		return pwerr.Wrapf(err, pwerr.CodeProjectSaveFailure, "encoding outline")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return pwerr.Wrapf(err, pwerr.CodeProjectSaveFailure, "writing outline %s", path)
	}
	return nil
}
