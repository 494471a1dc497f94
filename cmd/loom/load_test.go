package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/loom/internal/config"
)

func TestMatchAny(t *testing.T) {
	cases := []struct {
		pattern string
		rel     string
		want    bool
	}{
		{"**/*.sysml", "model.sysml", true},
		{"**/*.sysml", "deep/nested/model.sysml", true},
		{"**/*.sysml", "model.kerml", false},
		{"models/*.sysml", "models/a.sysml", true},
		{"models/*.sysml", "other/a.sysml", false},
		{"models/*.sysml", "models/sub/a.sysml", false},
		{"exact.sysml", "exact.sysml", true},
	}
	for _, tc := range cases {
		t.Run(tc.pattern+" vs "+tc.rel, func(t *testing.T) {
			assert.Equal(t, tc.want, matchAny([]string{tc.pattern}, tc.rel))
		})
	}
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func TestSelectFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.sysml":          `package A;`,
		"sub/b.sysml":      `package B;`,
		"sub/gen.sysml":    `package Gen;`,
		"sub/notes.txt":    "ignored",
		".hidden/c.sysml":  `package C;`,
		"types/base.kerml": `package Base;`,
	})

	cfg := config.Default()
	cfg.Exclude = []string{"**/gen.sysml"}

	paths, err := selectFiles(root, cfg)
	require.NoError(t, err)

	var rels []string
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		require.NoError(t, err)
		rels = append(rels, filepath.ToSlash(rel))
	}
	assert.Equal(t, []string{"a.sysml", "sub/b.sysml", "types/base.kerml"}, rels)
}

func TestLoadWorkspace(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"lib.sysml": `package Lib { part def Component; }`,
		"app.sysml": `package App {
			import Lib::*;
			part def Controller :> Component;
		}`,
	})

	ws, err := loadWorkspace(root, config.Default())
	require.NoError(t, err)
	defer ws.Close()

	require.Len(t, ws.Files(), 2)

	snap, err := ws.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.AllDiagnostics())

	_, ok := snap.LookupQualified("App::Controller")
	assert.True(t, ok)
}
