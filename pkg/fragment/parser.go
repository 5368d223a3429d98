/*
Package fragment is a lenient, forward-only markup parser for document
fragments: text that may start mid-document and may be malformed.

	text ──> Parser.Next() ──> StartElement / Attribute / EndElement
	              │
	              └─> Issues()  irregularities recovered from, as values

Lenient mode never stops early: stray '<' becomes text, end tags that do not
match are paired with the nearest sensible open element, and trailing junk
leaves every already-produced event intact. Strict mode ends the stream at
the first issue and reports it from Err.

Each event carries its 1-based line and grapheme column at both ends, so a
caller that parsed a suffix of a larger document can map events back to
document coordinates.
*/
package fragment

import (
	"fmt"
	"iter"
	"strconv"
	"strings"
	"unicode/utf8"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tagmatch/pkg/dialect"
	"github.com/walteh/tagmatch/pkg/position"
)

const (
	XMLNamespace   = "http://www.w3.org/XML/1998/namespace"
	XMLNSNamespace = "http://www.w3.org/2000/xmlns/"

	DefaultMaxIssues = 256
)

type Mode int

const (
	ModeLenient Mode = iota
	ModeStrict
)

type Option func(*Parser)

func WithMode(m Mode) Option {
	return func(p *Parser) { p.mode = m }
}

// WithMaxIssues caps the recorded issues; one IssueTooMany marks truncation.
func WithMaxIssues(n int) Option {
	return func(p *Parser) { p.maxIssues = n }
}

// WithNamespaces seeds prefix bindings inherited from outside the fragment.
// The empty prefix is the default namespace.
func WithNamespaces(bindings map[string]string) Option {
	return func(p *Parser) {
		for k, v := range bindings {
			p.base[k] = v
		}
	}
}

var ErrMalformed = errors.Base("malformed markup")

type openElement struct {
	name      Name
	raw       string
	offset    int
	endOffset int
	scope     map[string]string
}

type Parser struct {
	text string
	pos  int

	line      int
	lineStart int
	colPos    int
	col       int

	base    map[string]string
	stack   []openElement
	pending []Event

	issues    []Issue
	maxIssues int
	mode      Mode
	err       error

	done   bool
	closed bool
}

func NewParser(text string, opts ...Option) *Parser {
	p := &Parser{
		text:      text,
		line:      1,
		maxIssues: DefaultMaxIssues,
		base: map[string]string{
			"xml":   XMLNamespace,
			"xmlns": XMLNSNamespace,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Next returns the next event, or false once the fragment is exhausted, the
// parser was closed, or strict mode hit an issue.
func (p *Parser) Next() (Event, bool) {
	for len(p.pending) == 0 {
		if p.done || p.closed {
			return Event{}, false
		}
		p.scan()
	}
	ev := p.pending[0]
	p.pending = p.pending[1:]
	return ev, true
}

// Events yields the remaining events. The sequence shares the parser's
// position and cannot be restarted.
func (p *Parser) Events() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for {
			ev, ok := p.Next()
			if !ok || !yield(ev) {
				return
			}
		}
	}
}

// Pos returns the 1-based line and column of the parser's read position.
func (p *Parser) Pos() (line, column int) {
	return p.here()
}

// Consumed returns the number of bytes read so far.
func (p *Parser) Consumed() int { return p.pos }

func (p *Parser) Issues() []Issue {
	return append([]Issue(nil), p.issues...)
}

// Err returns the issue that stopped a strict parse.
func (p *Parser) Err() error { return p.err }

// Depth returns the number of currently open elements.
func (p *Parser) Depth() int { return len(p.stack) }

func (p *Parser) Close() {
	p.closed = true
	p.pending = nil
}

func (p *Parser) here() (int, int) {
	if p.colPos < p.lineStart || p.colPos > p.pos {
		p.colPos, p.col = p.lineStart, 0
	}
	n, last := position.GraphemeTail(p.text[p.colPos:p.pos])
	col := p.col + n
	// the cluster ending at pos may still absorb the text that follows
	if n > 0 {
		p.col += n - 1
		p.colPos += last
	}
	return p.line, col + 1
}

func (p *Parser) advance(to int) {
	if to > len(p.text) {
		to = len(p.text)
	}
	seg := p.text[p.pos:to]
	if n := strings.Count(seg, "\n"); n > 0 {
		p.line += n
		p.lineStart = p.pos + strings.LastIndexByte(seg, '\n') + 1
	}
	p.pos = to
}

func (p *Parser) skipSpace() {
	for p.pos < len(p.text) && dialect.IsSpace(p.text[p.pos]) {
		p.advance(p.pos + 1)
	}
}

func (p *Parser) issue(code IssueCode, line, col, offset int, format string, args ...any) {
	if p.done {
		return
	}
	iss := Issue{Code: code, Message: fmt.Sprintf(format, args...), Offset: offset, Line: line, Column: col}
	switch {
	case len(p.issues) < p.maxIssues:
		p.issues = append(p.issues, iss)
	case len(p.issues) == p.maxIssues:
		p.issues = append(p.issues, Issue{Code: IssueTooMany, Message: "further issues omitted", Offset: offset, Line: line, Column: col})
	}
	if p.mode == ModeStrict {
		p.err = errors.Errorf("%s: %w", iss.Error(), ErrMalformed)
		p.done = true
		p.pending = nil
	}
}

func (p *Parser) queue(events ...Event) {
	if p.done {
		return
	}
	p.pending = append(p.pending, events...)
}

func (p *Parser) finish() {
	for i := len(p.stack) - 1; i >= 0; i-- {
		line, col := p.here()
		p.issue(IssueUnclosedElement, line, col, p.pos, "element <%s> is not closed", p.stack[i].raw)
	}
	p.done = true
}

func (p *Parser) scan() {
	i := strings.IndexByte(p.text[p.pos:], '<')
	if i < 0 {
		p.advance(len(p.text))
		p.finish()
		return
	}
	p.advance(p.pos + i)

	rest := p.text[p.pos:]
	switch {
	case strings.HasPrefix(rest, "<!--"):
		p.skipPast("<!--", "-->", "comment")
	case strings.HasPrefix(rest, "<![CDATA["):
		p.skipPast("<![CDATA[", "]]>", "CDATA section")
	case strings.HasPrefix(rest, "<!"):
		p.skipDeclaration()
	case strings.HasPrefix(rest, "<?"):
		p.skipPast("<?", "?>", "processing instruction")
	case strings.HasPrefix(rest, "</") && dialect.NameLength(rest[2:]) > 0:
		p.endTag()
	case dialect.NameLength(rest[1:]) > 0:
		p.startTag()
	default:
		line, col := p.here()
		p.issue(IssueMalformedMarkup, line, col, p.pos, "stray '<' treated as text")
		p.advance(p.pos + 1)
	}
}

func (p *Parser) skipPast(open, close, what string) {
	line, col := p.here()
	start := p.pos
	end := strings.Index(p.text[p.pos+len(open):], close)
	if end < 0 {
		p.issue(IssueUnterminated, line, col, start, "%s is not terminated", what)
		p.advance(len(p.text))
		p.finish()
		return
	}
	p.advance(p.pos + len(open) + end + len(close))
}

func (p *Parser) skipDeclaration() {
	line, col := p.here()
	start := p.pos
	depth := 0
	for i := p.pos + 2; i < len(p.text); i++ {
		switch p.text[i] {
		case '[':
			depth++
		case ']':
			depth--
		case '>':
			if depth <= 0 {
				p.advance(i + 1)
				return
			}
		}
	}
	p.issue(IssueUnterminated, line, col, start, "declaration is not terminated")
	p.advance(len(p.text))
	p.finish()
}

type rawAttribute struct {
	name                       Name
	value                      string
	offset, endOffset          int
	line, col, endLine, endCol int
}

func (p *Parser) startTag() {
	start := p.pos
	line, col := p.here()
	p.advance(start + 1)
	n := dialect.NameLength(p.text[p.pos:])
	raw := p.text[p.pos : p.pos+n]
	p.advance(p.pos + n)

	var (
		attrs       []rawAttribute
		selfClosing bool
		terminated  bool
	)
loop:
	for p.pos < len(p.text) {
		rest := p.text[p.pos:]
		switch c := rest[0]; {
		case dialect.IsSpace(c):
			p.advance(p.pos + 1)
		case strings.HasPrefix(rest, "/>"):
			p.advance(p.pos + 2)
			selfClosing, terminated = true, true
			break loop
		case c == '>':
			p.advance(p.pos + 1)
			terminated = true
			break loop
		case c == '<':
			l, cc := p.here()
			p.issue(IssueMalformedMarkup, l, cc, p.pos, "start tag <%s> is not terminated", raw)
			terminated = true
			break loop
		default:
			if a, ok := p.attribute(); ok {
				attrs = append(attrs, a)
				continue
			}
			l, cc := p.here()
			_, w := utf8.DecodeRuneInString(rest)
			p.issue(IssueMalformedMarkup, l, cc, p.pos, "unexpected %q in start tag <%s>", rest[:w], raw)
			p.advance(p.pos + w)
		}
	}
	if !terminated {
		p.issue(IssueUnterminated, line, col, start, "start tag <%s> is not terminated", raw)
		p.finish()
		return
	}
	endLine, endCol := p.here()

	scope := p.declare(attrs)
	name := ParseName(raw)
	depth := len(p.stack) + 1
	events := make([]Event, 0, len(attrs)+1)
	events = append(events, Event{
		Kind:          KindStartElement,
		Name:          name,
		NamespaceURI:  p.resolveElement(name, scope, line, col, start),
		Depth:         depth,
		SelfClosing:   selfClosing,
		Offset:        start,
		EndOffset:     p.pos,
		Line:          line,
		Column:        col,
		EndLine:       endLine,
		EndColumn:     endCol,
		OpenOffset:    -1,
		OpenEndOffset: -1,
	})
	for _, a := range attrs {
		events = append(events, Event{
			Kind:          KindAttribute,
			Name:          a.name,
			NamespaceURI:  p.resolveAttribute(a, scope),
			Value:         a.value,
			Depth:         depth,
			Offset:        a.offset,
			EndOffset:     a.endOffset,
			Line:          a.line,
			Column:        a.col,
			EndLine:       a.endLine,
			EndColumn:     a.endCol,
			OpenOffset:    -1,
			OpenEndOffset: -1,
		})
	}
	p.queue(events...)

	if !selfClosing {
		p.stack = append(p.stack, openElement{
			name:      name,
			raw:       raw,
			offset:    start,
			endOffset: p.pos,
			scope:     scope,
		})
	}
}

func (p *Parser) attribute() (rawAttribute, bool) {
	n := dialect.NameLength(p.text[p.pos:])
	if n == 0 {
		return rawAttribute{}, false
	}
	a := rawAttribute{offset: p.pos}
	a.line, a.col = p.here()
	raw := p.text[p.pos : p.pos+n]
	a.name = ParseName(raw)
	p.advance(p.pos + n)

	a.endOffset = p.pos
	a.endLine, a.endCol = p.here()
	p.skipSpace()
	if p.pos >= len(p.text) || p.text[p.pos] != '=' {
		p.issue(IssueMalformedMarkup, a.line, a.col, a.offset, "attribute %s has no value", raw)
		return a, true
	}
	p.advance(p.pos + 1)
	p.skipSpace()

	if p.pos < len(p.text) && (p.text[p.pos] == '"' || p.text[p.pos] == '\'') {
		q := p.text[p.pos]
		end := strings.IndexByte(p.text[p.pos+1:], q)
		if end < 0 {
			p.issue(IssueUnterminated, a.line, a.col, a.offset, "value of attribute %s is not terminated", raw)
			a.value = decode(p.text[p.pos+1:])
			p.advance(len(p.text))
		} else {
			a.value = decode(p.text[p.pos+1 : p.pos+1+end])
			p.advance(p.pos + end + 2)
		}
	} else {
		from := p.pos
		for p.pos < len(p.text) {
			c := p.text[p.pos]
			if dialect.IsSpace(c) || c == '>' || c == '<' || strings.HasPrefix(p.text[p.pos:], "/>") {
				break
			}
			p.advance(p.pos + 1)
		}
		p.issue(IssueMalformedMarkup, a.line, a.col, a.offset, "value of attribute %s is not quoted", raw)
		a.value = decode(p.text[from:p.pos])
	}
	a.endOffset = p.pos
	a.endLine, a.endCol = p.here()
	return a, true
}

var xmlEntities = map[string]string{
	"amp":  "&",
	"lt":   "<",
	"gt":   ">",
	"quot": "\"",
	"apos": "'",
}

// decode expands the predefined XML entities and numeric character
// references. Anything else, including HTML-only entities, stays literal.
func decode(s string) string {
	if strings.IndexByte(s, '&') < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for {
		amp := strings.IndexByte(s, '&')
		if amp < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:amp])
		s = s[amp:]
		semi := strings.IndexByte(s, ';')
		if semi < 0 {
			b.WriteString(s)
			return b.String()
		}
		if r, ok := reference(s[1:semi]); ok {
			b.WriteString(r)
			s = s[semi+1:]
			continue
		}
		b.WriteByte('&')
		s = s[1:]
	}
}

func reference(ref string) (string, bool) {
	if v, ok := xmlEntities[ref]; ok {
		return v, true
	}
	if len(ref) < 2 || ref[0] != '#' {
		return "", false
	}
	base, digits := 10, ref[1:]
	if digits[0] == 'x' {
		base, digits = 16, digits[1:]
	}
	if digits == "" || len(digits) > 8 {
		return "", false
	}
	n, err := strconv.ParseUint(digits, base, 32)
	if err != nil || n == 0 || !utf8.ValidRune(rune(n)) {
		return "", false
	}
	return string(rune(n)), true
}

// declare collects the namespace declarations among attrs, reporting duplicates.
func (p *Parser) declare(attrs []rawAttribute) map[string]string {
	var scope map[string]string
	seen := make(map[Name]bool, len(attrs))
	for _, a := range attrs {
		if seen[a.name] {
			p.issue(IssueDuplicateAttribute, a.line, a.col, a.offset, "attribute %s is repeated", a.name)
		}
		seen[a.name] = true

		switch {
		case a.name.Prefix == "" && a.name.Local == "xmlns":
			if scope == nil {
				scope = map[string]string{}
			}
			scope[""] = a.value
		case a.name.Prefix == "xmlns":
			if scope == nil {
				scope = map[string]string{}
			}
			scope[a.name.Local] = a.value
		}
	}
	return scope
}

func (p *Parser) lookup(prefix string, scope map[string]string) (string, bool) {
	if uri, ok := scope[prefix]; ok {
		return uri, true
	}
	for i := len(p.stack) - 1; i >= 0; i-- {
		if uri, ok := p.stack[i].scope[prefix]; ok {
			return uri, true
		}
	}
	uri, ok := p.base[prefix]
	return uri, ok
}

func (p *Parser) resolveElement(name Name, scope map[string]string, line, col, offset int) string {
	uri, ok := p.lookup(name.Prefix, scope)
	if !ok && name.Prefix != "" {
		p.issue(IssueUndeclaredPrefix, line, col, offset, "prefix %q is not declared", name.Prefix)
	}
	return uri
}

func (p *Parser) resolveAttribute(a rawAttribute, scope map[string]string) string {
	switch {
	case a.name.Prefix == "" && a.name.Local == "xmlns":
		return XMLNSNamespace
	case a.name.Prefix == "":
		return ""
	}
	uri, ok := p.lookup(a.name.Prefix, scope)
	if !ok {
		p.issue(IssueUndeclaredPrefix, a.line, a.col, a.offset, "prefix %q is not declared", a.name.Prefix)
	}
	return uri
}

func (p *Parser) endTag() {
	start := p.pos
	line, col := p.here()
	p.advance(start + 2)
	n := dialect.NameLength(p.text[p.pos:])
	raw := p.text[p.pos : p.pos+n]
	p.advance(p.pos + n)
	p.skipSpace()

	switch {
	case p.pos >= len(p.text):
		p.issue(IssueUnterminated, line, col, start, "end tag </%s> is not terminated", raw)
		p.finish()
		return
	case p.text[p.pos] == '>':
		p.advance(p.pos + 1)
	default:
		l, c := p.here()
		p.issue(IssueMalformedMarkup, l, c, p.pos, "unexpected content in end tag </%s>", raw)
		for p.pos < len(p.text) && p.text[p.pos] != '>' && p.text[p.pos] != '<' {
			p.advance(p.pos + 1)
		}
		if p.pos < len(p.text) && p.text[p.pos] == '>' {
			p.advance(p.pos + 1)
		}
	}
	endLine, endCol := p.here()

	end := Event{
		Kind:          KindEndElement,
		Name:          ParseName(raw),
		Offset:        start,
		EndOffset:     p.pos,
		Line:          line,
		Column:        col,
		EndLine:       endLine,
		EndColumn:     endCol,
		OpenOffset:    -1,
		OpenEndOffset: -1,
	}

	match := -1
	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.stack[i].raw == raw {
			match = i
			break
		}
	}

	switch {
	case match >= 0:
		for len(p.stack)-1 > match {
			top := p.stack[len(p.stack)-1]
			p.issue(IssueImplicitClose, line, col, start, "element <%s> closed implicitly by </%s>", top.raw, raw)
			p.queue(Event{
				Kind:          KindEndElement,
				Name:          top.name,
				NamespaceURI:  p.resolveQuiet(top.name.Prefix),
				Depth:         len(p.stack),
				Implicit:      true,
				Offset:        start,
				EndOffset:     start,
				Line:          line,
				Column:        col,
				EndLine:       line,
				EndColumn:     col,
				OpenOffset:    top.offset,
				OpenEndOffset: top.endOffset,
			})
			p.stack = p.stack[:len(p.stack)-1]
		}
		p.closeTop(end)
	case len(p.stack) > 0:
		p.issue(IssueMismatchedEnd, line, col, start, "end tag </%s> does not match <%s>", raw, p.stack[len(p.stack)-1].raw)
		end.Mismatched = true
		p.closeTop(end)
	default:
		p.issue(IssueStrayEnd, line, col, start, "end tag </%s> has no open element", raw)
		end.NamespaceURI = p.resolveQuiet(end.Name.Prefix)
		p.queue(end)
	}
}

func (p *Parser) closeTop(end Event) {
	top := p.stack[len(p.stack)-1]
	end.NamespaceURI = p.resolveQuiet(end.Name.Prefix)
	end.Depth = len(p.stack)
	end.OpenOffset = top.offset
	end.OpenEndOffset = top.endOffset
	p.queue(end)
	p.stack = p.stack[:len(p.stack)-1]
}

func (p *Parser) resolveQuiet(prefix string) string {
	uri, _ := p.lookup(prefix, nil)
	return uri
}
