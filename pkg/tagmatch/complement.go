package tagmatch

import (
	"strings"
	"unicode/utf8"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tagmatch/pkg/dialect"
	"github.com/walteh/tagmatch/pkg/fragment"
	"github.com/walteh/tagmatch/pkg/position"
)

// Status is the outcome of a partner search.
type Status int

const (
	// StatusNoMatch: no partner was found; only the anchor is highlighted.
	StatusNoMatch Status = iota
	// StatusSuccess: the partner reads exactly as expected.
	StatusSuccess
	// StatusSoftMismatch: a partner was located but it does not read as
	// expected, or the markup between the tags does not pair up.
	StatusSoftMismatch
)

func (s Status) String() string {
	switch s {
	case StatusNoMatch:
		return "no-match"
	case StatusSuccess:
		return "success"
	case StatusSoftMismatch:
		return "soft-mismatch"
	default:
		return "unknown"
	}
}

// MismatchPolicy decides whether soft mismatches are highlighted.
type MismatchPolicy int

const (
	PolicyReport MismatchPolicy = iota
	PolicySuppress
)

var ErrUnknownPolicy = errors.Base("unknown mismatch policy")

func ParsePolicy(s string) (MismatchPolicy, error) {
	switch strings.ToLower(s) {
	case "", "report":
		return PolicyReport, nil
	case "suppress":
		return PolicySuppress, nil
	default:
		return PolicyReport, errors.Errorf("parsing %q: %w", s, ErrUnknownPolicy)
	}
}

func (p MismatchPolicy) String() string {
	if p == PolicySuppress {
		return "suppress"
	}
	return "report"
}

// Complement is the located partner of an anchor tag.
type Complement struct {
	Status Status
	Span   position.Span

	// Expected is the text the partner should read, Found what it reads.
	Expected string
	Found    string

	// Issues are the structural irregularities met while pairing.
	Issues []fragment.Issue
}

// TagPair is the result of a highlight request.
type TagPair struct {
	// Name is the anchor's qualified element name.
	Name position.Span

	// Tag is the anchor tag from '<' to one character past the name.
	Tag position.Span

	// Full is the anchor tag through its terminating '>'.
	Full position.Span

	Closing    bool
	Complement Complement

	// Suppressed is set when policy hides a soft-mismatched complement.
	Suppressed bool
}

func (p *TagPair) HasComplement() bool {
	switch p.Complement.Status {
	case StatusSuccess:
		return true
	case StatusSoftMismatch:
		return !p.Suppressed
	default:
		return false
	}
}

// Anchor is the span highlighted for the anchor tag, attributes and
// terminator included.
func (p *TagPair) Anchor() position.Span {
	if p.Full.IsZero() {
		return p.Tag
	}
	return p.Full
}

// Highlights returns the spans to highlight, anchor tag first.
func (p *TagPair) Highlights() []position.Span {
	out := []position.Span{p.Anchor()}
	if p.HasComplement() {
		out = append(out, p.Complement.Span)
	}
	return out
}

// CompleteTag walks left from the name to the nearest '<' and returns the tag
// up to one character past the name. It fails when the walk runs off the
// start of the document.
func CompleteTag(name position.Span) (position.Span, bool) {
	snap := name.Snapshot()
	text := snap.Text()
	start := name.Start() - 1
	for start >= 0 && text[start] != '<' {
		start--
	}
	if start < 0 {
		return position.Span{}, false
	}
	end := name.End()
	if end < len(text) {
		_, w := utf8.DecodeRuneInString(text[end:])
		end = min(end+w, len(text))
	}
	return position.NewSpanFromBounds(snap, start, end), true
}

// ExtendOpeningTag extends tag to its terminating '>', skipping any '>' that
// sits inside a quoted attribute value. A tag left unterminated, either at the
// end of the document or by an unquoted '<', is returned as is.
func ExtendOpeningTag(tag position.Span) position.Span {
	snap := tag.Snapshot()
	text := snap.Text()
	var quote byte
	for i := tag.Start(); i < len(text); i++ {
		c := text[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return position.NewSpanFromBounds(snap, tag.Start(), i+1)
		case c == '<' && i > tag.Start():
			return tag
		}
	}
	return tag
}

// documentOffset maps a parser position reported for a fragment starting at
// origin back to a document offset. Only the fragment's first line is offset
// by the origin's column.
func documentOffset(snap *position.Snapshot, origin position.Place, line, column int) int {
	docLine := origin.Line + line - 1
	docCol := column - 1
	if line == 1 {
		docCol += origin.Character
	}
	return snap.OffsetOf(docLine, docCol)
}

// trailingSpace counts the whitespace immediately before the '>' that ends
// at end.
func trailingSpace(text string, end int) int {
	n := 0
	for i := end - 2; i >= 0 && dialect.IsSpace(text[i]); i-- {
		n++
	}
	return n
}

// normalizeClosing drops the whitespace before a closing tag's final '>'.
func normalizeClosing(found string, ws int) string {
	if ws == 0 || len(found) < ws+1 {
		return found
	}
	return found[:len(found)-1-ws] + ">"
}

func structural(issues []fragment.Issue) []fragment.Issue {
	var out []fragment.Issue
	for _, iss := range issues {
		if iss.Code.Structural() {
			out = append(out, iss)
		}
	}
	return out
}

func nameFollows(found, expected string) bool {
	if !strings.HasPrefix(found, expected) {
		return false
	}
	if len(found) == len(expected) {
		return true
	}
	c := found[len(expected)]
	return dialect.IsSpace(c) || c == '>' || c == '/'
}
