package lsp

import (
	"context"
	"sort"
	"strings"

	"github.com/creachadair/jrpc2"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tagmatch/pkg/diagnostic"
	"github.com/walteh/tagmatch/pkg/highlight"
	"github.com/walteh/tagmatch/pkg/hover"
	"github.com/walteh/tagmatch/pkg/position"
	"github.com/walteh/tagmatch/pkg/semtok"
	"github.com/walteh/tagmatch/pkg/tagmatch"
)

func (s *Server) DidOpen(ctx context.Context, params *DidOpenTextDocumentParams) error {
	item := params.TextDocument
	d := dialectFor(item.LanguageID, s.Config().DialectFor, item.URI)

	zerolog.Ctx(ctx).Debug().
		Str("uri", item.URI).
		Str("dialect", d.Name()).
		Int("version", item.Version).
		Msg("document opened")

	sink := highlight.SinkFunc(func(ctx context.Context, _ *position.Snapshot, pair *tagmatch.TagPair) {
		ev := zerolog.Ctx(ctx).Debug().Str("uri", item.URI)
		if pair != nil {
			ev = ev.Stringer("tag", pair.Tag).Stringer("status", pair.Complement.Status)
		}
		ev.Msg("tags changed")
	})
	doc := s.documents.Open(item, d, s.locator(d), sink)

	return s.publishDiagnostics(ctx, doc)
}

func (s *Server) DidChange(ctx context.Context, params *DidChangeTextDocumentParams) error {
	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return errors.Errorf("change to %s: %w", params.TextDocument.URI, ErrDocumentNotFound)
	}
	if err := doc.Apply(ctx, params.TextDocument.Version, params.ContentChanges); err != nil {
		return err
	}
	return s.publishDiagnostics(ctx, doc)
}

func (s *Server) DidClose(ctx context.Context, params *DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.documents.Delete(uri)

	zerolog.Ctx(ctx).Debug().Str("uri", uri).Msg("document closed")

	return notify(ctx, "textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []Diagnostic{},
	})
}

func (s *Server) publishDiagnostics(ctx context.Context, doc *Document) error {
	snap, _ := doc.Current()

	diags, err := s.diagnostics.Generate(ctx, snap)
	if err != nil {
		return errors.Errorf("generating diagnostics for %s: %w", doc.URI, err)
	}

	out := make([]Diagnostic, 0, diags.Len())
	for _, d := range diags.All() {
		out = append(out, Diagnostic{
			Range: Range{
				Start: positionOf(snap, d.Offset),
				End:   positionOf(snap, d.EndOffset),
			},
			Severity: DiagnosticSeverity(d.Severity),
			Code:     d.Code,
			Source:   ServerName,
			Message:  d.Message,
		})
	}

	zerolog.Ctx(ctx).Debug().Str("uri", doc.URI).Int("count", len(out)).Msg("publishing diagnostics")

	return notify(ctx, "textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         doc.URI,
		Version:     doc.Version,
		Diagnostics: out,
	})
}

func (s *Server) DocumentHighlight(ctx context.Context, params *DocumentHighlightParams) ([]DocumentHighlight, error) {
	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return nil, errors.Errorf("highlight in %s: %w", params.TextDocument.URI, ErrDocumentNotFound)
	}
	snap, lexer := doc.Current()

	out := []DocumentHighlight{}
	pair := doc.Highlights.CaretMoved(ctx, lexer, snap, offsetOf(snap, params.Position))
	if pair == nil {
		return out, nil
	}
	for _, span := range pair.Highlights() {
		out = append(out, DocumentHighlight{Range: rangeOf(span), Kind: HighlightText})
	}

	if diags := diagnostic.FromTagPair(pair); len(diags) > 0 {
		zerolog.Ctx(ctx).Debug().Str("uri", doc.URI).Str("message", diags[0].Message).Msg("highlighted mismatched tag")
	}
	return out, nil
}

func (s *Server) Hover(ctx context.Context, params *HoverParams) (*Hover, error) {
	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return nil, errors.Errorf("hover in %s: %w", params.TextDocument.URI, ErrDocumentNotFound)
	}
	snap, lexer := doc.Current()

	info, err := hover.BuildNamespaceHover(ctx, lexer, doc.Dialect, snap, offsetOf(snap, params.Position))
	if err != nil {
		return nil, errors.Errorf("building hover: %w", err)
	}
	if info == nil {
		return nil, nil
	}

	rng := rangeOf(info.Position)
	return &Hover{
		Contents: MarkupContent{
			Kind:  "plaintext",
			Value: strings.Join(info.Content, "\n\n"),
		},
		Range: &rng,
	}, nil
}

// SemanticTokensFull encodes the document's annotations as relative
// (line, start, length, type, modifiers) quintuples.
func (s *Server) SemanticTokensFull(ctx context.Context, params *SemanticTokensParams) (*SemanticTokens, error) {
	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return nil, errors.Errorf("semantic tokens for %s: %w", params.TextDocument.URI, ErrDocumentNotFound)
	}
	snap, lexer := doc.Current()

	tokens := semtok.Normalize(ctx, lexer, position.NewSpan(snap, 0, snap.Length()), doc.Dialect)
	sort.SliceStable(tokens, func(i, j int) bool {
		return tokens[i].Range.Start() < tokens[j].Range.Start()
	})

	return &SemanticTokens{Data: encodeTokens(snap, tokens)}, nil
}

func encodeTokens(snap *position.Snapshot, tokens []semtok.Token) []uint32 {
	data := make([]uint32, 0, len(tokens)*5)
	prev := Position{}
	for _, tok := range tokens {
		start := positionOf(snap, tok.Range.Start())
		end := positionOf(snap, tok.Range.End())
		if start.Line != end.Line || tok.Range.Length() == 0 {
			continue
		}

		deltaLine := start.Line - prev.Line
		deltaChar := start.Character
		if deltaLine == 0 {
			deltaChar -= prev.Character
		}
		data = append(data,
			uint32(deltaLine),
			uint32(deltaChar),
			uint32(utf16Count(tok.Range.Text())),
			tokenIndex(tok.Type),
			0,
		)
		prev = start
	}
	return data
}

func notify(ctx context.Context, method string, params any) error {
	srv := jrpc2.ServerFromContext(ctx)
	if srv == nil {
		return nil
	}
	if err := srv.Notify(ctx, method, params); err != nil {
		return errors.Errorf("sending %s: %w", method, err)
	}
	return nil
}
