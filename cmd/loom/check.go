package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	loom "github.com/jward/loom"
	"github.com/jward/loom/internal/config"
	"github.com/jward/loom/internal/diag"
	"github.com/jward/loom/internal/rules"
)

var flagNoRules bool

var checkCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Analyze a model workspace and report diagnostics",
	Long:  "Loads every model file the config selects, runs the full analysis plus any configured rule scripts, and prints diagnostics. Exits non-zero when errors are found.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&flagNoRules, "no-rules", false, "skip rule scripts")
}

func runCheck(cmd *cobra.Command, args []string) error {
	start := time.Now()

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

	ctx := context.Background()
	snap, err := ws.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("analyzing: %w", err)
	}

	diags := snap.AllDiagnostics()
	if !flagNoRules && cfg.RulesDir != "" {
		runner := rules.NewRunner(filepath.Join(root, cfg.RulesDir))
		findings, err := runner.Run(ctx, snap)
		if err != nil {
			return fmt.Errorf("rules: %w", err)
		}
		diags = append(diags, findings...)
	}
	diags = applySeverities(diags, cfg.Severities)

	if err := outputDiagnostics(os.Stdout, snap, diags); err != nil {
		return err
	}

	errorCount := 0
	for _, d := range diags {
		if d.Severity == diag.SeverityError {
			errorCount++
		}
	}
	fmt.Fprintf(os.Stderr, "Checked %d file(s) in %s: %d diagnostic(s), %d error(s)\n",
		len(snap.Files()), time.Since(start).Round(time.Millisecond), len(diags), errorCount)

	if errorCount > 0 {
		return fmt.Errorf("%d error(s) found", errorCount)
	}
	return nil
}

// snapshotOf builds a one-shot workspace snapshot for query-style commands.
func snapshotOf(args []string) (*loom.Workspace, *loom.Snapshot, *config.Config, string, error) {
	root, err := resolveRoot(args)
	if err != nil {
		return nil, nil, nil, "", err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, nil, nil, "", err
	}
	ws, err := loadWorkspace(root, cfg)
	if err != nil {
		return nil, nil, nil, "", err
	}
	snap, err := ws.Snapshot(context.Background())
	if err != nil {
		ws.Close()
		return nil, nil, nil, "", fmt.Errorf("analyzing: %w", err)
	}
	return ws, snap, cfg, root, nil
}
