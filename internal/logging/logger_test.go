package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initWorkspace(t *testing.T, configJSON string) string {
	t.Helper()
	ws := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(ws, ".idsbench"), 0755))
	if configJSON != "" {
		require.NoError(t, os.WriteFile(filepath.Join(ws, ".idsbench", "config.json"), []byte(configJSON), 0644))
	}
	require.NoError(t, Initialize(ws))
	t.Cleanup(func() {
		CloseAll()
		// Reset package state for the next test.
		logsDir = ""
		workspace = ""
		config = loggingConfig{}
	})
	return ws
}

func TestInitializeWithoutConfigIsSilent(t *testing.T) {
	ws := initWorkspace(t, "")
	assert.False(t, IsDebugMode())

	Workflow("this line must not be written")
	_, err := os.Stat(filepath.Join(ws, ".idsbench", "logs"))
	assert.True(t, os.IsNotExist(err))
}

func TestDebugModeWritesCategoryFiles(t *testing.T) {
	ws := initWorkspace(t, `{"logging": {"debug_mode": true, "level": "debug"}}`)
	require.True(t, IsDebugMode())

	Tracking("dataset %s recorded", "DS_1")
	EngineDebug("loaded step config")
	CloseAll()

	entries, err := os.ReadDir(filepath.Join(ws, ".idsbench", "logs"))
	require.NoError(t, err)
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name()] = true
	}
	foundTracking, foundEngine := false, false
	for name := range names {
		if filepath.Ext(name) != ".log" {
			continue
		}
		if strings.Contains(name, "tracking") {
			foundTracking = true
		}
		if strings.Contains(name, "engine") {
			foundEngine = true
		}
	}
	assert.True(t, foundTracking, "tracking log file missing: %v", names)
	assert.True(t, foundEngine, "engine log file missing: %v", names)
}

func TestCategoryCanBeDisabled(t *testing.T) {
	initWorkspace(t, `{"logging": {"debug_mode": true, "categories": {"progress": false}}}`)

	assert.False(t, IsCategoryEnabled(CategoryProgress))
	assert.True(t, IsCategoryEnabled(CategoryEngine))
}
