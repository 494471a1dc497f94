package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	loom "github.com/jward/loom"
	"github.com/jward/loom/internal/config"
)

// loadConfig reads the config from --config or the workspace root.
func loadConfig(root string) (*config.Config, error) {
	if flagConfig != "" {
		return config.Load(flagConfig)
	}
	return config.LoadOrDefault(root)
}

// loadWorkspace creates a workspace populated with every model file the
// config's include globs select under root.
func loadWorkspace(root string, cfg *config.Config) (*loom.Workspace, error) {
	paths, err := selectFiles(root, cfg)
	if err != nil {
		return nil, err
	}
	ws := loom.NewWorkspace()
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			ws.Close()
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if _, err := ws.AddOrUpdateFile(path, content); err != nil {
			ws.Close()
			return nil, fmt.Errorf("add %s: %w", path, err)
		}
	}
	return ws, nil
}

// selectFiles walks root and returns the sorted paths matched by the config's
// include globs and not filtered by its exclude globs.
func selectFiles(root string, cfg *config.Config) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if matchAny(cfg.Include, rel) && !matchAny(cfg.Exclude, rel) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// matchAny matches a slash-separated relative path against glob patterns.
// A leading "**/" matches any directory depth, including zero.
func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if strings.HasPrefix(p, "**/") {
			suffix := strings.TrimPrefix(p, "**/")
			if ok, _ := filepath.Match(suffix, filepath.Base(rel)); ok {
				return true
			}
			continue
		}
		if ok, _ := filepath.Match(p, rel); ok {
			return true
		}
	}
	return false
}
