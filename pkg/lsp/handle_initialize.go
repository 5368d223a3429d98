package lsp

import (
	"context"

	"github.com/creachadair/jrpc2"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tagmatch/pkg/config"
	"github.com/walteh/tagmatch/pkg/semtok"
	"github.com/walteh/tagmatch/pkg/tagmatch"
)

// TokenLegend lists the semantic token types in index order.
var TokenLegend = []string{"namespace", "closingTagName"}

func (s *Server) Initialize(ctx context.Context, params *InitializeParams) (*InitializeResult, error) {
	logger := zerolog.Ctx(ctx)

	root := uriToPath(params.RootURI)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil, errors.New("server already initialized")
	}
	s.workspace = root

	if !s.cfgLocked && root != "" {
		cfg, file, err := config.Find(s.fs, root)
		if err != nil {
			logger.Warn().Err(err).Str("root", root).Msg("ignoring workspace config")
		} else {
			if file != "" {
				logger.Info().Str("file", file).Msg("loaded workspace config")
			}
			s.cfg = cfg
		}
	}

	if opts := params.InitializationOptions; opts != nil {
		cfg := *s.cfg
		if opts.MismatchPolicy != "" {
			if _, err := tagmatch.ParsePolicy(opts.MismatchPolicy); err != nil {
				return nil, errors.Errorf("initialization options: %w", err)
			}
			cfg.MismatchPolicy = opts.MismatchPolicy
		}
		if opts.MatchClosingTags != nil {
			cfg.MatchClosingTags = opts.MatchClosingTags
		}
		s.cfg = &cfg
	}

	logger.Info().
		Str("root", root).
		Str("policy", s.cfg.Policy().String()).
		Bool("closing_tags", s.cfg.ClosingTags()).
		Msg("initializing")

	return &InitializeResult{
		Capabilities: ServerCapabilities{
			PositionEncoding: "utf-16",
			TextDocumentSync: TextDocumentSyncOptions{
				OpenClose: true,
				Change:    SyncIncremental,
			},
			HoverProvider:             true,
			DocumentHighlightProvider: true,
			SemanticTokensProvider: &SemanticTokensOptions{
				Legend: SemanticTokensLegend{
					TokenTypes:     TokenLegend,
					TokenModifiers: []string{},
				},
				Full: true,
			},
		},
		ServerInfo: &ServerInfo{
			Name:    ServerName,
			Version: s.version,
		},
	}, nil
}

func (s *Server) Initialized(ctx context.Context, _ *jrpc2.Request) (any, error) {
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	zerolog.Ctx(ctx).Debug().Msg("client initialized")
	return nil, nil
}

func (s *Server) Shutdown(ctx context.Context, _ *jrpc2.Request) (any, error) {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	zerolog.Ctx(ctx).Info().Int("documents", s.documents.Len()).Msg("shutting down")
	return nil, nil
}

func (s *Server) Exit(ctx context.Context, _ *jrpc2.Request) (any, error) {
	s.mu.Lock()
	s.exit = true
	s.mu.Unlock()

	if srv := jrpc2.ServerFromContext(ctx); srv != nil {
		go srv.Stop()
	}
	return nil, nil
}

// tokenIndex maps an annotation type onto its legend index.
func tokenIndex(t semtok.TokenType) uint32 {
	return uint32(t) - 1
}
