package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"idsbench/internal/actions"
	"idsbench/internal/confignode"
	"idsbench/internal/logging"
)

// materialise writes a step's resolved config to a temp file and returns its
// path plus a release func. The release func removes the file on every exit
// path from the step unless temp-config retention is toggled.
func (e *Engine) materialise(cfg *confignode.Node, action string, iteration int) (string, func(), error) {
	dir := filepath.Join(os.TempDir(), "idsbench-"+e.runtime.RunID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", nil, &actions.ConfigError{Path: dir, Err: err}
	}

	data, err := cfg.EncodeIndent()
	if err != nil {
		return "", nil, &actions.ConfigError{Path: dir, Err: fmt.Errorf("encode step config: %w", err)}
	}

	name := fmt.Sprintf("%s_iter%d_%d.json", actions.Normalize(action), iteration, time.Now().UnixMilli())
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", nil, &actions.ConfigError{Path: path, Err: err}
	}

	release := func() {
		if e.runtime.KeepTempConfigs {
			logging.EngineDebug("retaining temp config %s", path)
			return
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logging.EngineDebug("could not remove temp config %s: %v", path, err)
		}
	}
	return path, release, nil
}
