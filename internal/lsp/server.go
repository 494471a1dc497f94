// Package lsp serves loom's analysis over the Language Server Protocol.
// Document edits flow into the workspace; diagnostics are pushed after each
// re-analysis, and hover, definition, references, document symbols, rename,
// and the type hierarchy are answered from the latest snapshot.
package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	loom "github.com/jward/loom"
)

// Server bridges one LSP client connection to a workspace.
type Server struct {
	ws       *loom.Workspace
	logger   *zap.Logger
	conn     jsonrpc2.Conn
	debounce time.Duration
	shutdown bool

	pubMu    sync.Mutex
	pubTimer *time.Timer
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithDebounce delays diagnostic publication after a burst of edits.
func WithDebounce(d time.Duration) ServerOption {
	return func(s *Server) {
		s.debounce = d
	}
}

// NewServer creates a Server over the given workspace.
func NewServer(ws *loom.Workspace, logger *zap.Logger, opts ...ServerOption) *Server {
	s := &Server{ws: ws, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServeStream runs the JSON-RPC loop over rwc until the client disconnects
// or sends exit.
func (s *Server) ServeStream(ctx context.Context, rwc io.ReadWriteCloser) error {
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	s.conn = conn
	conn.Go(ctx, s.handle)
	<-conn.Done()
	if err := conn.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("lsp: connection: %w", err)
	}
	return nil
}

func (s *Server) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	s.logger.Debug("request", zap.String("method", req.Method()))

	switch req.Method() {
	case protocol.MethodInitialize:
		return reply(ctx, s.initialize(), nil)

	case protocol.MethodInitialized:
		return reply(ctx, nil, nil)

	case protocol.MethodShutdown:
		s.shutdown = true
		return reply(ctx, nil, nil)

	case protocol.MethodExit:
		err := reply(ctx, nil, nil)
		s.conn.Close()
		return err

	case protocol.MethodTextDocumentDidOpen:
		var params protocol.DidOpenTextDocumentParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return replyParseError(ctx, reply, err)
		}
		s.updateDocument(ctx, params.TextDocument.URI, []byte(params.TextDocument.Text))
		return reply(ctx, nil, nil)

	case protocol.MethodTextDocumentDidChange:
		var params protocol.DidChangeTextDocumentParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return replyParseError(ctx, reply, err)
		}
		// Full sync: the last change event carries the whole document.
		if n := len(params.ContentChanges); n > 0 {
			s.updateDocument(ctx, params.TextDocument.URI, []byte(params.ContentChanges[n-1].Text))
		}
		return reply(ctx, nil, nil)

	case protocol.MethodTextDocumentDidClose:
		// The file stays in the workspace: closing an editor tab does not
		// remove the model from analysis.
		return reply(ctx, nil, nil)

	case protocol.MethodTextDocumentHover:
		var params protocol.HoverParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return replyParseError(ctx, reply, err)
		}
		result, err := s.hover(ctx, params)
		return reply(ctx, result, err)

	case protocol.MethodTextDocumentDefinition:
		var params protocol.DefinitionParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return replyParseError(ctx, reply, err)
		}
		result, err := s.definition(ctx, params)
		return reply(ctx, result, err)

	case protocol.MethodTextDocumentReferences:
		var params protocol.ReferenceParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return replyParseError(ctx, reply, err)
		}
		result, err := s.references(ctx, params)
		return reply(ctx, result, err)

	case protocol.MethodTextDocumentDocumentSymbol:
		var params protocol.DocumentSymbolParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return replyParseError(ctx, reply, err)
		}
		result, err := s.documentSymbols(ctx, params)
		return reply(ctx, result, err)

	case protocol.MethodTextDocumentRename:
		var params protocol.RenameParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return replyParseError(ctx, reply, err)
		}
		result, err := s.rename(ctx, params)
		return reply(ctx, result, err)

	case methodPrepareTypeHierarchy:
		var params typeHierarchyPrepareParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return replyParseError(ctx, reply, err)
		}
		result, err := s.prepareTypeHierarchy(ctx, params)
		return reply(ctx, result, err)

	case methodTypeHierarchySupertypes:
		var params typeHierarchyItemParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return replyParseError(ctx, reply, err)
		}
		result, err := s.supertypes(ctx, params)
		return reply(ctx, result, err)

	case methodTypeHierarchySubtypes:
		var params typeHierarchyItemParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return replyParseError(ctx, reply, err)
		}
		result, err := s.subtypes(ctx, params)
		return reply(ctx, result, err)

	default:
		return reply(ctx, nil, jsonrpc2.ErrMethodNotFound)
	}
}

func replyParseError(ctx context.Context, reply jsonrpc2.Replier, err error) error {
	return reply(ctx, nil, fmt.Errorf("%w: %s", jsonrpc2.ErrParse, err))
}

func (s *Server) initialize() *protocol.InitializeResult {
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
			},
			HoverProvider:          true,
			DefinitionProvider:     true,
			ReferencesProvider:     true,
			DocumentSymbolProvider: true,
			RenameProvider:         true,
			Experimental: map[string]interface{}{
				"typeHierarchyProvider": true,
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    "loom",
			Version: loom.Version,
		},
	}
}

// updateDocument feeds new content into the workspace and schedules
// diagnostic publication.
func (s *Server) updateDocument(ctx context.Context, docURI protocol.DocumentURI, content []byte) {
	path := docURI.Filename()
	if _, err := s.ws.AddOrUpdateFile(path, content); err != nil {
		s.logger.Warn("update rejected", zap.String("path", path), zap.Error(err))
		return
	}
	s.schedulePublish(ctx)
}

// schedulePublish coalesces a burst of edits into one diagnostics pass. The
// handler returns immediately; the timer restarts on every edit and fires
// once the burst settles. Without a debounce, publication is synchronous.
func (s *Server) schedulePublish(ctx context.Context) {
	if s.debounce <= 0 {
		s.publishDiagnostics(ctx)
		return
	}
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if s.pubTimer != nil {
		s.pubTimer.Stop()
	}
	s.pubTimer = time.AfterFunc(s.debounce, func() {
		s.publishDiagnostics(context.Background())
	})
}

// snapshot retries while edits keep superseding the computation.
func (s *Server) snapshot(ctx context.Context) (*loom.Snapshot, error) {
	for {
		snap, err := s.ws.Snapshot(ctx)
		if errors.Is(err, loom.ErrStale) {
			continue
		}
		return snap, err
	}
}

func (s *Server) publishDiagnostics(ctx context.Context) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		s.logger.Warn("diagnostics skipped", zap.Error(err))
		return
	}
	for _, id := range snap.Files() {
		path, _ := snap.PathOf(id)
		params := &protocol.PublishDiagnosticsParams{
			URI:         toDocumentURI(path),
			Diagnostics: toProtocolDiagnostics(snap.DiagnosticsFor(id)),
		}
		if err := s.conn.Notify(ctx, protocol.MethodTextDocumentPublishDiagnostics, params); err != nil {
			s.logger.Warn("publish failed", zap.String("path", path), zap.Error(err))
			return
		}
	}
}
