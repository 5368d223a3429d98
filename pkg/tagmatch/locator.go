/*
Package tagmatch finds the partner of the tag under the caret.

	caret ─> name token ─> CompleteTag ─┬─ "<a"  ─> ExtendOpeningTag ─> forward parse  ─> "</a>" or "/>"
	                                    └─ "</a" ─> backward parse ─> "<a ...>"

The forward search parses the document from the anchor tag on and stops at
the end event of depth 1; the parser's line and column are mapped back to a
document offset. The backward search parses the document up to the closing
tag and pairs it with the start tag the parser closed there.
*/
package tagmatch

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/walteh/tagmatch/pkg/classify"
	"github.com/walteh/tagmatch/pkg/dialect"
	"github.com/walteh/tagmatch/pkg/fragment"
	"github.com/walteh/tagmatch/pkg/position"
)

type Locator struct {
	dialect      dialect.Dialect
	policy       MismatchPolicy
	matchClosing bool
}

type Option func(*Locator)

func WithPolicy(p MismatchPolicy) Option {
	return func(l *Locator) { l.policy = p }
}

// WithClosingTags enables searching backwards from a closing-tag anchor.
func WithClosingTags(enabled bool) Option {
	return func(l *Locator) { l.matchClosing = enabled }
}

func NewLocator(d dialect.Dialect, opts ...Option) *Locator {
	l := &Locator{
		dialect:      d,
		policy:       PolicyReport,
		matchClosing: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Locator) Dialect() dialect.Dialect { return l.dialect }

// FindAnchor returns the element-name token at offset. A caret right after
// the last character of a name still selects it.
func (l *Locator) FindAnchor(stream classify.Stream, snap *position.Snapshot, offset int) (position.Span, bool) {
	window := position.NewSpanFromBounds(snap, offset-1, offset+1)

	var touching position.Span
	found := false
	for _, tok := range stream.Query(window) {
		if !l.dialect.IsName(tok.Category) {
			continue
		}
		if tok.Span.Contains(offset) {
			return tok.Span, true
		}
		if !found && tok.Span.Touches(offset) {
			touching, found = tok.Span, true
		}
	}
	return touching, found
}

// Locate pairs the tag whose name is anchor. It returns false when nothing
// should be highlighted at all.
func (l *Locator) Locate(ctx context.Context, stream classify.Stream, anchor position.Span) (*TagPair, bool) {
	logger := zerolog.Ctx(ctx)
	if anchor.IsZero() || anchor.Length() == 0 {
		return nil, false
	}

	name := l.qualifiedName(stream, anchor)
	tag, ok := CompleteTag(name)
	if !ok {
		logger.Trace().Stringer("anchor", anchor).Msg("no tag start before anchor")
		return nil, false
	}
	if strings.Contains(tag.Text(), "?") {
		return nil, false
	}

	pair := &TagPair{
		Name:    name,
		Tag:     tag,
		Full:    ExtendOpeningTag(tag),
		Closing: strings.HasPrefix(tag.Text(), dialect.ClosingOpener),
	}

	switch {
	case pair.Closing && !l.matchClosing:
		pair.Complement = Complement{Status: StatusNoMatch, Expected: "<" + name.Text()}
	case pair.Closing:
		pair.Complement = l.findOpening(pair.Full, name.Text())
	default:
		pair.Complement = l.findClosing(pair.Full.Start(), name.Text(), tag.Snapshot())
	}

	if pair.Complement.Status == StatusSoftMismatch {
		pair.Suppressed = l.policy == PolicySuppress
		logger.Warn().
			Str("expected", pair.Complement.Expected).
			Str("found", pair.Complement.Found).
			Int("issues", len(pair.Complement.Issues)).
			Bool("suppressed", pair.Suppressed).
			Msg("tag partner does not match")
	}

	logger.Debug().
		Stringer("tag", pair.Tag).
		Stringer("status", pair.Complement.Status).
		Msg("located tag partner")

	return pair, true
}

// qualifiedName widens a local-name or prefix token across an adjacent ':' and
// name token when the dialect classifies the colon on its own.
func (l *Locator) qualifiedName(stream classify.Stream, anchor position.Span) position.Span {
	if l.dialect.ColonSplit() != dialect.ColonSeparate {
		return anchor
	}
	snap := anchor.Snapshot()
	line := snap.LineOf(anchor.Start())
	tokens := stream.Query(position.NewSpanFromBounds(snap, snap.LineStart(line), snap.LineEnd(line)))

	at := -1
	for i, tok := range tokens {
		if tok.Span.Equal(anchor) {
			at = i
			break
		}
	}
	if at < 0 {
		return anchor
	}

	adjacentColon := func(i, j int) bool {
		return tokens[i].Span.End() == tokens[j].Span.Start() &&
			l.dialect.IsDelimiter(tokens[j].Category) && tokens[j].Span.Text() == ":"
	}

	start, end := anchor.Start(), anchor.End()
	if at >= 2 && adjacentColon(at-2, at-1) && tokens[at-1].Span.End() == start && l.dialect.IsName(tokens[at-2].Category) {
		start = tokens[at-2].Span.Start()
	}
	if at+2 < len(tokens) && adjacentColon(at, at+1) && tokens[at+1].Span.End() == tokens[at+2].Span.Start() && l.dialect.IsName(tokens[at+2].Category) {
		end = tokens[at+2].Span.End()
	}
	return position.NewSpanFromBounds(snap, start, end)
}

func (l *Locator) findClosing(tagStart int, name string, snap *position.Snapshot) Complement {
	expected := "</" + name + ">"
	text := snap.Text()

	p := fragment.NewParser(text[tagStart:])
	defer p.Close()

	first, ok := p.Next()
	if !ok || first.Kind != fragment.KindStartElement {
		return Complement{Status: StatusNoMatch, Expected: expected}
	}

	origin := snap.Place(tagStart)

	if first.SelfClosing {
		end := documentOffset(snap, origin, first.EndLine, first.EndColumn)
		span := position.NewSpan(snap, end-2, 2)
		c := Complement{Status: StatusSuccess, Span: span, Expected: "/>", Found: span.Text()}
		if c.Found != c.Expected {
			c.Status = StatusSoftMismatch
		}
		return c
	}

	for ev := range p.Events() {
		if ev.Kind != fragment.KindEndElement || ev.Depth != 1 {
			continue
		}
		end := documentOffset(snap, origin, ev.EndLine, ev.EndColumn)
		start := documentOffset(snap, origin, ev.Line, ev.Column)
		span := position.NewSpanFromBounds(snap, start, end)

		c := Complement{
			Status:   StatusSuccess,
			Span:     span,
			Expected: expected,
			Found:    span.Text(),
			Issues:   structural(p.Issues()),
		}
		if normalizeClosing(c.Found, trailingSpace(text, end)) != expected || len(c.Issues) > 0 {
			c.Status = StatusSoftMismatch
		}
		return c
	}

	return Complement{Status: StatusNoMatch, Expected: expected}
}

func (l *Locator) findOpening(closing position.Span, name string) Complement {
	expected := "<" + name
	snap := closing.Snapshot()

	p := fragment.NewParser(snap.Text()[:closing.End()])
	defer p.Close()

	for ev := range p.Events() {
		if ev.Kind != fragment.KindEndElement || ev.Implicit || ev.Offset != closing.Start() {
			continue
		}
		if ev.OpenOffset < 0 {
			return Complement{Status: StatusNoMatch, Expected: expected}
		}
		span := position.NewSpanFromBounds(snap, ev.OpenOffset, ev.OpenEndOffset)

		var issues []fragment.Issue
		for _, iss := range structural(p.Issues()) {
			if iss.Offset == closing.Start() {
				issues = append(issues, iss)
			}
		}
		c := Complement{
			Status:   StatusSuccess,
			Span:     span,
			Expected: expected,
			Found:    span.Text(),
			Issues:   issues,
		}
		if !nameFollows(c.Found, expected) || len(issues) > 0 {
			c.Status = StatusSoftMismatch
		}
		return c
	}
	return Complement{Status: StatusNoMatch, Expected: expected}
}
