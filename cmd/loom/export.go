package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var flagDB string

var exportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Export the analysis snapshot to SQLite",
	Long:  "Analyzes the workspace and writes symbols, relationships, imports, and diagnostics to a SQLite database for offline inspection.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&flagDB, "db", "", "database path (default: export.database from the config)")
}

func runExport(cmd *cobra.Command, args []string) error {
	ws, snap, cfg, root, err := snapshotOf(args)
	if err != nil {
		return err
	}
	defer ws.Close()

	dbPath := flagDB
	if dbPath == "" {
		dbPath = cfg.Export.Database
	}
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(root, dbPath)
	}

	if err := snap.ExportToFile(dbPath); err != nil {
		return fmt.Errorf("exporting: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Exported %d file(s) at generation %d\n", len(snap.Files()), snap.Generation())
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	return nil
}
