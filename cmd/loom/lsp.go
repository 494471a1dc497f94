package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	loom "github.com/jward/loom"
	"github.com/jward/loom/internal/lsp"
)

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Run the language server on stdio",
	Long:  "Serves hover, go-to-definition, find-references, document symbols, rename, type hierarchy, and push diagnostics over the Language Server Protocol. Documents arrive from the client; nothing is read from disk.",
	Args:  cobra.NoArgs,
	RunE:  runLSP,
}

func runLSP(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	root, err := resolveRoot(nil)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	ws := loom.NewWorkspace()
	defer ws.Close()

	server := lsp.NewServer(ws, logger,
		lsp.WithDebounce(time.Duration(cfg.LSP.DebounceMillis)*time.Millisecond))

	logger.Info("language server listening on stdio")
	return server.ServeStream(context.Background(), stdio{})
}

// stdio adapts the process's stdin/stdout into one ReadWriteCloser.
type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdio) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}

var _ io.ReadWriteCloser = stdio{}
