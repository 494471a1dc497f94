package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/loom/internal/sym"
)

var flagDir string

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the analyzed model",
	Long:  "Analyzes the workspace and answers symbol, reference, and hierarchy queries against the resulting snapshot.",
}

func init() {
	queryCmd.PersistentFlags().StringVar(&flagDir, "dir", ".", "workspace root to analyze")

	queryCmd.AddCommand(querySymbolCmd)
	queryCmd.AddCommand(querySymbolsCmd)
	queryCmd.AddCommand(queryReferencesCmd)
	queryCmd.AddCommand(queryChildrenCmd)
	queryCmd.AddCommand(querySpecializationsCmd)
	queryCmd.AddCommand(querySpecializesCmd)
}

var querySymbolCmd = &cobra.Command{
	Use:   "symbol <qualified-name>",
	Short: "Show one symbol by qualified name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, snap, _, _, err := snapshotOf([]string{flagDir})
		if err != nil {
			return err
		}
		defer ws.Close()
		s, ok := snap.LookupQualified(sym.QualifiedName(args[0]))
		if !ok {
			return fmt.Errorf("symbol not found: %s", args[0])
		}
		return outputSymbols(os.Stdout, snap, []*sym.Symbol{s})
	},
}

var querySymbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "List every symbol in the workspace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, snap, _, _, err := snapshotOf([]string{flagDir})
		if err != nil {
			return err
		}
		defer ws.Close()
		symbols := snap.Symbols()
		sym.SortSymbols(symbols)
		return outputSymbols(os.Stdout, snap, symbols)
	},
}

var queryReferencesCmd = &cobra.Command{
	Use:   "references <qualified-name>",
	Short: "List every relationship referencing a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, snap, _, _, err := snapshotOf([]string{flagDir})
		if err != nil {
			return err
		}
		defer ws.Close()
		return outputReferences(os.Stdout, snap, snap.ReferencesTo(sym.QualifiedName(args[0])))
	},
}

var queryChildrenCmd = &cobra.Command{
	Use:   "children <qualified-name>",
	Short: "List the direct children of a namespace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, snap, _, _, err := snapshotOf([]string{flagDir})
		if err != nil {
			return err
		}
		defer ws.Close()
		return outputSymbols(os.Stdout, snap, snap.ChildrenOf(sym.QualifiedName(args[0])))
	},
}

var querySpecializationsCmd = &cobra.Command{
	Use:   "specializations <qualified-name>",
	Short: "List the definitions that specialize the given one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, snap, _, _, err := snapshotOf([]string{flagDir})
		if err != nil {
			return err
		}
		defer ws.Close()
		return outputNames(os.Stdout, snap.SpecializationsOf(sym.QualifiedName(args[0])))
	},
}

var querySpecializesCmd = &cobra.Command{
	Use:   "specializes <qualified-name>",
	Short: "List the definitions a definition specializes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, snap, _, _, err := snapshotOf([]string{flagDir})
		if err != nil {
			return err
		}
		defer ws.Close()
		return outputNames(os.Stdout, snap.Specializes(sym.QualifiedName(args[0])))
	},
}
