/*
Package classify provides the token stream the engine reads from.

A Stream answers "which classified tokens intersect this span". Editors
usually supply their own; Lexer is a built-in stream that labels markup the
way the host classifiers for each dialect do:

	<x:Button Content="Go" />

	XML   [<] [x:Button] [Content] [=] ["Go"] [/>]
	XAML  [<] [x] [:] [Button] [Content] [=] ["Go"] [/>]
*/
package classify

import (
	"sort"
	"sync"

	"github.com/walteh/tagmatch/pkg/dialect"
	"github.com/walteh/tagmatch/pkg/position"
)

// Token is a classified run of text.
type Token struct {
	Span     position.Span
	Category string
}

func (t Token) String() string {
	return t.Category + " " + t.Span.String()
}

// Stream yields the tokens intersecting a span. Repeated queries over the same
// span return the same tokens.
type Stream interface {
	Query(span position.Span) []Token
}

// Lexer classifies one snapshot. Tokens are computed on first use.
type Lexer struct {
	snapshot *position.Snapshot
	dialect  dialect.Dialect

	once   sync.Once
	tokens []Token
}

var _ Stream = (*Lexer)(nil)

func NewLexer(snapshot *position.Snapshot, d dialect.Dialect) *Lexer {
	return &Lexer{snapshot: snapshot, dialect: d}
}

func (l *Lexer) Snapshot() *position.Snapshot { return l.snapshot }

func (l *Lexer) Dialect() dialect.Dialect { return l.dialect }

// Tokens returns every token of the snapshot in document order.
func (l *Lexer) Tokens() []Token {
	l.once.Do(func() {
		s := &scanner{
			text:   l.snapshot.Text(),
			labels: l.dialect.Labels(),
			split:  l.dialect.ColonSplit(),
		}
		s.run()
		l.tokens = make([]Token, 0, len(s.out))
		for _, r := range s.out {
			l.tokens = append(l.tokens, Token{
				Span:     position.NewSpanFromBounds(l.snapshot, r.start, r.end),
				Category: r.category,
			})
		}
	})
	return l.tokens
}

// Query returns the tokens overlapping span. An empty span selects the tokens
// it touches. Spans on other snapshots select nothing.
func (l *Lexer) Query(span position.Span) []Token {
	if span.Snapshot() != l.snapshot {
		return nil
	}
	tokens := l.Tokens()
	first := sort.Search(len(tokens), func(i int) bool {
		return tokens[i].Span.End() >= span.Start()
	})
	var out []Token
	for _, tok := range tokens[first:] {
		if tok.Span.Start() > span.End() {
			break
		}
		if tok.Span.Intersects(span) {
			out = append(out, tok)
		}
	}
	return out
}
