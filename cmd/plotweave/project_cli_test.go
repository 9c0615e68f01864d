// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlotWeave Contributors

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pwerr "github.com/plotweave-dev/plotweave/pkg/errors"
)

// writeTestConfig writes a minimal config file pointing at a temp data dir so
// commands never touch the user's real config or keyring.
func writeTestConfig(t *testing.T) (cfgPath, dataDir string) {
	t.Helper()
	dir := t.TempDir()
	dataDir = filepath.Join(dir, "datas")
	cfgPath = filepath.Join(dir, "plotweave.yaml")
	content := fmt.Sprintf("data_dir: %s\n", dataDir)
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))
	return cfgPath, dataDir
}

func TestProjectList_Empty(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"project", "list", "--config", cfgPath})

	err := root.Execute()
	require.NoError(t, err)
	assert.Equal(t, "No projects found.\n", buf.String())
}

func TestProjectDelete_InvalidID(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"project", "delete", "not-a-uuid"})

	err := root.Execute()
	require.Error(t, err)
	assert.True(t, pwerr.HasCode(err, pwerr.CodeCLIInputInvalid))
}

func TestProjectDelete_Missing(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"project", "delete",
		"00000000-0000-0000-0000-000000000001", "--config", cfgPath})

	err := root.Execute()
	require.Error(t, err)
	assert.True(t, pwerr.IsNotFound(err))
}

func TestProjectCreate_RequiresAPIKey(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"project", "create", "测试项目", "--config", cfgPath})

	err := root.Execute()
	assert.Error(t, err, "creating a project needs a configured embedding api key")
}
