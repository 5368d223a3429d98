/*
Package lsp serves tag highlighting, namespace hovers, semantic annotations
and markup diagnostics over the Language Server Protocol.

	stdin ──> channel.LSP ──> jrpc2.Server ──> handler.Map ──> Server
	                                                            ├─ DocumentManager (snapshot, lexer, highlight controller)
	                                                            └─ publishDiagnostics / window/logMessage ──> stdout

Requests are handled one at a time. Document positions on the wire count
UTF-16 code units and are converted to byte offsets at the handler edge.
*/
package lsp

import (
	"context"
	"io"
	"sync"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tagmatch/pkg/config"
	"github.com/walteh/tagmatch/pkg/diagnostic"
	"github.com/walteh/tagmatch/pkg/dialect"
	"github.com/walteh/tagmatch/pkg/tagmatch"
)

const ServerName = "tagmatch"

// Server represents an LSP server instance
type Server struct {
	id      string
	version string

	fs        afero.Fs
	cfg       *config.Config
	cfgLocked bool
	level     zerolog.Level

	documents   *DocumentManager
	diagnostics diagnostic.Generator

	mu          sync.Mutex
	workspace   string
	initialized bool
	shutdown    bool
	exit        bool
}

type Option func(*Server)

// WithConfig fixes the configuration; the workspace config file is then not
// read on initialize.
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) {
		s.cfg = cfg
		s.cfgLocked = true
	}
}

// WithFs sets the filesystem the workspace config is read from.
func WithFs(fs afero.Fs) Option {
	return func(s *Server) { s.fs = fs }
}

func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithLogLevel sets the level of entries forwarded to the client.
func WithLogLevel(lvl zerolog.Level) Option {
	return func(s *Server) { s.level = lvl }
}

func NewServer(opts ...Option) *Server {
	s := &Server{
		id:          uuid.NewString(),
		fs:          afero.NewOsFs(),
		cfg:         config.Default(),
		level:       zerolog.InfoLevel,
		documents:   NewDocumentManager(),
		diagnostics: diagnostic.NewDefaultGenerator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) ID() string { return s.id }

func (s *Server) Documents() *DocumentManager { return s.documents }

// Config returns the configuration in effect.
func (s *Server) Config() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Server) locator(d dialect.Dialect) *tagmatch.Locator {
	return tagmatch.NewLocator(d, s.Config().LocatorOptions()...)
}

// Methods returns the dispatch table for the server.
func (s *Server) Methods() handler.Map {
	return handler.Map{
		"initialize":                       handler.New(s.Initialize),
		"initialized":                      handler.Func(s.Initialized),
		"shutdown":                         handler.Func(s.Shutdown),
		"exit":                             handler.Func(s.Exit),
		"$/cancelRequest":                  handler.Func(ignore),
		"$/setTrace":                       handler.Func(ignore),
		"workspace/didChangeConfiguration": handler.Func(ignore),
		"textDocument/didOpen":             handler.New(s.DidOpen),
		"textDocument/didChange":           handler.New(s.DidChange),
		"textDocument/didClose":            handler.New(s.DidClose),
		"textDocument/didSave":             handler.Func(ignore),
		"textDocument/documentHighlight":   handler.New(s.DocumentHighlight),
		"textDocument/hover":               handler.New(s.Hover),
		"textDocument/semanticTokens/full": handler.New(s.SemanticTokensFull),
	}
}

// Run serves one client over the given streams until it exits or the streams
// close.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.WriteCloser) error {
	var handlerCtx context.Context

	opts := &jrpc2.ServerOptions{
		AllowPush:   true,
		Concurrency: 1,
		RPCLog:      RPCLogger{},
		NewContext: func() context.Context {
			return handlerCtx
		},
	}

	srv := jrpc2.NewServer(s.Methods(), opts)

	writer := NewLSPWriter(srv)
	defer writer.Close()
	handlerCtx = ApplyLSPWriter(ctx, writer, s.id, s.level)

	zerolog.Ctx(ctx).Info().Str("server", s.id).Str("version", s.version).Msg("starting language server")

	srv.Start(channel.LSP(in, out))

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			srv.Stop()
		case <-stopped:
		}
	}()

	err := srv.Wait()
	if err != nil && !s.exited() && ctx.Err() == nil {
		return errors.Errorf("serving language server: %w", err)
	}
	return nil
}

func (s *Server) exited() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exit
}

func ignore(context.Context, *jrpc2.Request) (any, error) {
	return nil, nil
}
