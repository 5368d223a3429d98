package semtok

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/walteh/tagmatch/pkg/classify"
	"github.com/walteh/tagmatch/pkg/dialect"
	"github.com/walteh/tagmatch/pkg/position"
)

// Strategy advances the normalizer by one token.
type Strategy interface {
	Step(m Machine, tok classify.Token) (Machine, []Token)
}

// StrategyFor returns the strategy matching the dialect's colon layout.
func StrategyFor(d dialect.Dialect) Strategy {
	if d.ColonSplit() == dialect.ColonSeparate {
		return &separateStrategy{dialect: d}
	}
	return &inNameStrategy{dialect: d}
}

// Normalize returns the annotations derived from the tokens intersecting
// region, in token order. The stream is only read.
func Normalize(ctx context.Context, stream classify.Stream, region position.Span, d dialect.Dialect) []Token {
	strategy := StrategyFor(d)

	var (
		machine Machine
		out     []Token
		emitted []Token
	)
	tokens := stream.Query(region)
	for _, tok := range tokens {
		machine, emitted = strategy.Step(machine, tok)
		out = append(out, emitted...)
	}

	zerolog.Ctx(ctx).Trace().
		Str("dialect", d.Name()).
		Int("tokens", len(tokens)).
		Int("annotations", len(out)).
		Msg("normalized region")

	return out
}

type inNameStrategy struct {
	dialect dialect.Dialect
}

func (s *inNameStrategy) Step(m Machine, tok classify.Token) (Machine, []Token) {
	text := tok.Span.Text()
	switch {
	case s.dialect.IsDelimiter(tok.Category):
		if strings.HasSuffix(text, dialect.ClosingOpener) {
			return Machine{State: StateAfterClosingDelimiter, InsideClosingTag: true}, nil
		}
		return m, nil
	case s.dialect.IsName(tok.Category), s.dialect.IsAttribute(tok.Category):
		var out []Token
		snap, start := tok.Span.Snapshot(), tok.Span.Start()
		colon := strings.IndexByte(text, ':')
		if colon > 0 {
			out = append(out, Token{
				Type:  TokenNamespacePrefix,
				Range: position.NewSpan(snap, start, colon),
			})
		}
		if m.InsideClosingTag {
			// the remainder keeps its leading colon
			from := max(colon, 0)
			out = append(out, Token{
				Type:  TokenClosingTagName,
				Range: position.NewSpanFromBounds(snap, start+from, tok.Span.End()),
			})
		}
		return Machine{}, out
	default:
		return m, nil
	}
}

type separateStrategy struct {
	dialect dialect.Dialect
}

func (s *separateStrategy) Step(m Machine, tok classify.Token) (Machine, []Token) {
	text := tok.Span.Text()
	switch {
	case s.dialect.IsDelimiter(tok.Category):
		switch {
		case strings.HasSuffix(text, dialect.ClosingOpener):
			return Machine{State: StateAfterClosingDelimiter, InsideClosingTag: true}, nil
		case text == ":":
			if !m.HasLast {
				return m, nil
			}
			return Machine{
					State:            StateAfterDelimiterAwaitingName,
					InsideClosingTag: m.InsideClosingTag,
				}, []Token{{
					Type:  TokenNamespacePrefix,
					Range: m.Last,
				}}
		case strings.Contains(text, ">"):
			if m.InsideClosingTag && m.HasLast {
				return Machine{}, []Token{{
					Type:  TokenClosingTagName,
					Range: m.Last,
				}}
			}
			return Machine{}, nil
		default:
			return m, nil
		}
	case s.dialect.IsName(tok.Category), s.dialect.IsAttribute(tok.Category):
		return Machine{
			State:            StateNeutral,
			InsideClosingTag: m.InsideClosingTag,
			Last:             tok.Span,
			HasLast:          true,
		}, nil
	default:
		return m, nil
	}
}
