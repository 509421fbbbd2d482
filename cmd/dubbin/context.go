package main

import (
	"fmt"
	"strings"
	"sync"

	"dubbin/internal/config"
	"dubbin/internal/fileutil"
	"dubbin/internal/manifest"
	"dubbin/internal/workspace"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = fmt.Errorf("invalid configuration: %w", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// openWorkspace resolves the episode workspace for a video and loads its
// manifest.
func openWorkspace(cfg config.Config, videoPath string) (*workspace.Workspace, *manifest.Manifest, error) {
	ws, err := workspace.ForVideo(cfg.Paths.WorkspaceRoot, videoPath)
	if err != nil {
		return nil, nil, err
	}
	if !fileutil.FileExists(ws.VideoPath) {
		return nil, nil, fmt.Errorf("video %s does not exist or is not a regular file", videoPath)
	}
	if err := ws.Ensure(); err != nil {
		return nil, nil, err
	}
	m, err := manifest.Load(ws.ManifestPath(), ws.Episode)
	if err != nil {
		return nil, nil, err
	}
	return ws, m, nil
}
