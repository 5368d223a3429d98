package classify

import (
	"strings"
	"unicode/utf8"

	"github.com/walteh/tagmatch/pkg/dialect"
)

type rawToken struct {
	start, end int
	category   string
}

type scanner struct {
	text   string
	pos    int
	labels dialect.Labels
	split  dialect.ColonSplit
	out    []rawToken
}

func (s *scanner) emit(start, end int, category string) {
	if end > start {
		s.out = append(s.out, rawToken{start: start, end: end, category: category})
	}
}

func (s *scanner) run() {
	for s.pos < len(s.text) {
		i := strings.IndexByte(s.text[s.pos:], '<')
		if i < 0 {
			s.emit(s.pos, len(s.text), s.labels.Text)
			return
		}
		s.emit(s.pos, s.pos+i, s.labels.Text)
		s.pos += i
		s.markup()
	}
}

func (s *scanner) markup() {
	rest := s.text[s.pos:]
	switch {
	case strings.HasPrefix(rest, "<!--"):
		s.enclosed("<!--", "-->")
	case strings.HasPrefix(rest, "<![CDATA["):
		s.enclosed("<![CDATA[", "]]>")
	case strings.HasPrefix(rest, "<!"):
		s.declaration()
	case strings.HasPrefix(rest, "<?"):
		s.tag("<?")
	case strings.HasPrefix(rest, dialect.ClosingOpener):
		s.tag(dialect.ClosingOpener)
	case dialect.NameLength(rest[1:]) > 0:
		s.tag("<")
	default:
		s.emit(s.pos, s.pos+1, s.labels.Text)
		s.pos++
	}
}

// enclosed handles comments and CDATA: delimiters around an opaque body.
func (s *scanner) enclosed(open, close string) {
	s.emit(s.pos, s.pos+len(open), s.labels.Delimiter)
	s.pos += len(open)
	end := strings.Index(s.text[s.pos:], close)
	if end < 0 {
		s.emit(s.pos, len(s.text), s.labels.Text)
		s.pos = len(s.text)
		return
	}
	s.emit(s.pos, s.pos+end, s.labels.Text)
	s.pos += end
	s.emit(s.pos, s.pos+len(close), s.labels.Delimiter)
	s.pos += len(close)
}

// declaration handles <!DOCTYPE ...> including a bracketed internal subset.
func (s *scanner) declaration() {
	s.emit(s.pos, s.pos+2, s.labels.Delimiter)
	s.pos += 2
	start, depth := s.pos, 0
	for ; s.pos < len(s.text); s.pos++ {
		switch s.text[s.pos] {
		case '[':
			depth++
		case ']':
			depth--
		case '>':
			if depth <= 0 {
				s.emit(start, s.pos, s.labels.Text)
				s.emit(s.pos, s.pos+1, s.labels.Delimiter)
				s.pos++
				return
			}
		}
	}
	s.emit(start, s.pos, s.labels.Text)
}

func (s *scanner) tag(opener string) {
	s.emit(s.pos, s.pos+len(opener), s.labels.Delimiter)
	s.pos += len(opener)
	s.name(s.labels.Name)

	for s.pos < len(s.text) {
		rest := s.text[s.pos:]
		c := rest[0]
		switch {
		case dialect.IsSpace(c):
			s.pos++
		case opener == "<?" && strings.HasPrefix(rest, "?>"),
			strings.HasPrefix(rest, "/>"):
			s.emit(s.pos, s.pos+2, s.labels.Delimiter)
			s.pos += 2
			return
		case c == '>':
			s.emit(s.pos, s.pos+1, s.labels.Delimiter)
			s.pos++
			return
		case c == '<':
			// unterminated tag; the next construct starts here
			return
		case c == '=':
			s.emit(s.pos, s.pos+1, s.labels.Delimiter)
			s.pos++
		case c == '"' || c == '\'':
			end := strings.IndexByte(rest[1:], c)
			if end < 0 {
				s.emit(s.pos, len(s.text), s.labels.Text)
				s.pos = len(s.text)
				return
			}
			s.emit(s.pos, s.pos+end+2, s.labels.Text)
			s.pos += end + 2
		case dialect.NameLength(rest) > 0:
			s.name(s.labels.Attribute)
		default:
			_, w := utf8.DecodeRuneInString(rest)
			s.emit(s.pos, s.pos+w, s.labels.Text)
			s.pos += w
		}
	}
}

// name emits the name at the current position, splitting it at colons when
// the dialect classifies the colon separately.
func (s *scanner) name(category string) {
	n := dialect.NameLength(s.text[s.pos:])
	if n == 0 {
		return
	}
	start, end := s.pos, s.pos+n
	s.pos = end
	if s.split == dialect.ColonInName {
		s.emit(start, end, category)
		return
	}
	for start < end {
		i := strings.IndexByte(s.text[start:end], ':')
		if i < 0 {
			s.emit(start, end, category)
			return
		}
		s.emit(start, start+i, category)
		s.emit(start+i, start+i+1, s.labels.Delimiter)
		start += i + 1
	}
}
