// Package server exposes the step inventory over the Language Server
// Protocol: completion, hover, go-to-definition and diagnostics for
// Gherkin feature files, backed by statically extracted step definitions.
package server

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

const (
	serverName       = "grizzly-ls"
	serverVersion    = "0.1.0"
	diagnosticSource = "grizzly-ls"

	// commandRebuild forces a step-inventory rebuild.
	commandRebuild = "grizzly-ls/rebuild"
)

// Server is one LSP session over a jsonrpc2 connection.
type Server struct {
	logger  *zap.Logger
	session *Session
	root    string

	client protocol.Client

	docMu     sync.RWMutex
	documents map[protocol.DocumentURI]string

	watcher *Watcher
}

// New creates a server for the given session, rooted at the project
// directory the step source scans.
func New(session *Session, root string, logger *zap.Logger) *Server {
	return &Server{
		logger:    logger,
		session:   session,
		root:      root,
		documents: make(map[protocol.DocumentURI]string),
	}
}

// Serve runs the LSP session over the given transport until the
// connection closes or the context is cancelled.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewStream(rwc)
	conn := jsonrpc2.NewConn(stream)
	s.client = protocol.ClientDispatcher(conn, s.logger.Named("client"))

	conn.Go(ctx, s.Handler())

	select {
	case <-ctx.Done():
		_ = conn.Close()
		return ctx.Err()
	case <-conn.Done():
		if s.watcher != nil {
			s.watcher.Close()
		}
		return conn.Err()
	}
}

// Handler dispatches incoming LSP methods.
func (s *Server) Handler() jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		s.logger.Debug("request", zap.String("method", req.Method()))

		switch req.Method() {
		case protocol.MethodInitialize:
			var params protocol.InitializeParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result, err := s.Initialize(ctx, &params)
			return reply(ctx, result, err)

		case protocol.MethodInitialized:
			s.Initialized(ctx)
			return reply(ctx, nil, nil)

		case protocol.MethodShutdown:
			return reply(ctx, nil, nil)

		case protocol.MethodExit:
			if s.watcher != nil {
				s.watcher.Close()
			}
			return nil

		case protocol.MethodTextDocumentDidOpen:
			var params protocol.DidOpenTextDocumentParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			s.setDocument(params.TextDocument.URI, params.TextDocument.Text)
			s.publishDiagnostics(ctx, params.TextDocument.URI)
			return reply(ctx, nil, nil)

		case protocol.MethodTextDocumentDidChange:
			var params protocol.DidChangeTextDocumentParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			if len(params.ContentChanges) > 0 {
				s.setDocument(params.TextDocument.URI, params.ContentChanges[len(params.ContentChanges)-1].Text)
				s.publishDiagnostics(ctx, params.TextDocument.URI)
			}
			return reply(ctx, nil, nil)

		case protocol.MethodTextDocumentDidSave:
			var params protocol.DidSaveTextDocumentParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			s.publishDiagnostics(ctx, params.TextDocument.URI)
			return reply(ctx, nil, nil)

		case protocol.MethodTextDocumentDidClose:
			var params protocol.DidCloseTextDocumentParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			s.removeDocument(params.TextDocument.URI)
			return reply(ctx, nil, nil)

		case protocol.MethodTextDocumentCompletion:
			var params protocol.CompletionParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result, err := s.Completion(ctx, &params)
			return reply(ctx, result, err)

		case protocol.MethodTextDocumentHover:
			var params protocol.HoverParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result, err := s.Hover(ctx, &params)
			return reply(ctx, result, err)

		case protocol.MethodTextDocumentDefinition:
			var params protocol.DefinitionParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			result, err := s.Definition(ctx, &params)
			return reply(ctx, result, err)

		case protocol.MethodWorkspaceExecuteCommand:
			var params protocol.ExecuteCommandParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, err)
			}
			if params.Command == commandRebuild {
				s.rebuild(ctx)
				return reply(ctx, nil, nil)
			}
			return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)

		default:
			return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
		}
	}
}

// Initialize answers the handshake with the server's capabilities.
func (s *Server) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	if s.root == "" && params.RootURI != "" {
		s.root = params.RootURI.Filename()
	}

	s.logger.Info("initialize",
		zap.String("root", s.root),
		zap.String("language", s.session.Language()))

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save:      &protocol.SaveOptions{},
			},
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{" ", "\""},
			},
			HoverProvider:      true,
			DefinitionProvider: true,
			ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
				Commands: []string{commandRebuild},
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    serverName,
			Version: serverVersion,
		},
	}, nil
}

// Initialized performs the first inventory build and starts the
// step-source watcher.
func (s *Server) Initialized(ctx context.Context) {
	s.rebuild(ctx)

	watcher, err := NewWatcher(s.root, func() {
		s.rebuild(context.Background())
	}, s.logger.Named("watcher"))
	if err != nil {
		s.logger.Warn("step-source watcher disabled", zap.Error(err))
		return
	}
	s.watcher = watcher
	go watcher.Run(ctx)
}

// rebuild refreshes the inventory and re-diagnoses every open document.
// A total failure keeps the previous inventory published and notifies the
// editor.
func (s *Server) rebuild(ctx context.Context) {
	soft, err := s.session.Rebuild(ctx)
	if err != nil {
		s.logger.Error("rebuild failed", zap.Error(err))
		s.showMessage(ctx, protocol.MessageTypeError, "step inventory rebuild failed: "+err.Error())
		return
	}
	for _, softErr := range soft {
		s.logger.Warn("step definition skipped", zap.Error(softErr))
	}

	inv, _, _ := s.session.Snapshot()
	s.logger.Info("inventory rebuilt",
		zap.Int("entries", inv.Len()),
		zap.Int("soft_errors", len(soft)))

	for _, docURI := range s.openDocuments() {
		s.publishDiagnostics(ctx, docURI)
	}
}

func (s *Server) showMessage(ctx context.Context, kind protocol.MessageType, message string) {
	if s.client == nil {
		return
	}
	_ = s.client.ShowMessage(ctx, &protocol.ShowMessageParams{
		Type:    kind,
		Message: message,
	})
}

// publishDiagnostics recomputes and pushes the diagnostics of one open
// document.
func (s *Server) publishDiagnostics(ctx context.Context, docURI protocol.DocumentURI) {
	if s.client == nil {
		return
	}
	text, ok := s.document(docURI)
	if !ok {
		return
	}

	inv, _, _ := s.session.Snapshot()
	table, keywords := s.session.Resolve(text)
	diagnostics := computeDiagnostics(text, table, inv, keywords)

	if err := s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         docURI,
		Diagnostics: diagnostics,
	}); err != nil {
		s.logger.Warn("publish diagnostics", zap.Error(err))
	}
}

func (s *Server) setDocument(docURI protocol.DocumentURI, text string) {
	s.docMu.Lock()
	defer s.docMu.Unlock()
	s.documents[docURI] = text
}

func (s *Server) removeDocument(docURI protocol.DocumentURI) {
	s.docMu.Lock()
	defer s.docMu.Unlock()
	delete(s.documents, docURI)
}

func (s *Server) document(docURI protocol.DocumentURI) (string, bool) {
	s.docMu.RLock()
	defer s.docMu.RUnlock()
	text, ok := s.documents[docURI]
	return text, ok
}

func (s *Server) openDocuments() []protocol.DocumentURI {
	s.docMu.RLock()
	defer s.docMu.RUnlock()
	uris := make([]protocol.DocumentURI, 0, len(s.documents))
	for docURI := range s.documents {
		uris = append(uris, docURI)
	}
	return uris
}

// lineAt returns one line of a document.
func lineAt(text string, line int) (string, bool) {
	lines := strings.Split(text, "\n")
	if line < 0 || line >= len(lines) {
		return "", false
	}
	return strings.TrimRight(lines[line], "\r"), true
}
