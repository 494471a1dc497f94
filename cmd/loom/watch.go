package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	loom "github.com/jward/loom"
	"github.com/jward/loom/internal/config"
	"github.com/jward/loom/internal/diag"
)

var flagDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch a workspace and re-analyze on changes",
	Long:  "Analyzes the workspace, then watches the filesystem and incrementally re-analyzes changed model files, printing fresh diagnostics after each burst of edits.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", 250*time.Millisecond, "settle time after a burst of file events")
}

func runWatch(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	ws, err := loadWorkspace(root, cfg)
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := report(ctx, ws, cfg); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := addWatchRecursive(watcher, root); err != nil {
		return err
	}

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	pending := map[string]fsnotify.Op{}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			path := filepath.Clean(event.Name)
			if event.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
					_ = addWatchRecursive(watcher, path)
					continue
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			pending[path] |= event.Op
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(flagDebounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := pending
			pending = map[string]fsnotify.Op{}
			if err := applyChanges(ws, root, cfg, changed); err != nil {
				fmt.Fprintf(os.Stderr, "watch: %s\n", err)
				continue
			}
			if err := report(ctx, ws, cfg); err != nil {
				return err
			}

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return watchErr
		}
	}
}

func applyChanges(ws *loom.Workspace, root string, cfg *config.Config, changed map[string]fsnotify.Op) error {
	for path, op := range changed {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			continue
		}
		if !matchAny(cfg.Include, filepath.ToSlash(rel)) || matchAny(cfg.Exclude, filepath.ToSlash(rel)) {
			continue
		}
		if op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			if _, statErr := os.Stat(path); statErr != nil {
				if id, ok := ws.FileByPath(path); ok {
					if err := ws.RemoveFile(id); err != nil {
						return err
					}
				}
				continue
			}
		}
		content, err := os.ReadFile(path)
		if err != nil {
			continue // transient editor state, next event settles it
		}
		if _, err := ws.AddOrUpdateFile(path, content); err != nil {
			if errors.Is(err, loom.ErrUnsupportedFile) {
				continue
			}
			return err
		}
	}
	return nil
}

func report(ctx context.Context, ws *loom.Workspace, cfg *config.Config) error {
	snap, err := ws.Snapshot(ctx)
	if err != nil {
		if errors.Is(err, loom.ErrStale) {
			return nil
		}
		return err
	}
	diags := applySeverities(snap.AllDiagnostics(), cfg.Severities)
	if err := outputDiagnostics(os.Stdout, snap, diags); err != nil {
		return err
	}
	errorCount := 0
	for _, d := range diags {
		if d.Severity == diag.SeverityError {
			errorCount++
		}
	}
	fmt.Fprintf(os.Stderr, "[gen %d] %d file(s), %d diagnostic(s), %d error(s)\n",
		snap.Generation(), len(snap.Files()), len(diags), errorCount)
	return nil
}

func addWatchRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !entry.IsDir() {
			return nil
		}
		if strings.HasPrefix(entry.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
