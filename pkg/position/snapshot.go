package position

import (
	"sort"

	"gitlab.com/tozd/go/errors"
)

// Edit replaces Length bytes at Offset with Text.
type Edit struct {
	Offset int
	Length int
	Text   string
}

// Delta is the change in document length caused by the edit.
func (e Edit) Delta() int {
	return len(e.Text) - e.Length
}

// Snapshot is an immutable version of a document's text. Line starts are
// computed once so (line, column) to offset conversion is an index lookup.
type Snapshot struct {
	text       string
	lineStarts []int
	version    int

	// the snapshot this one was derived from and the edit that produced it
	prev *Snapshot
	edit Edit
}

func NewSnapshot(text string) *Snapshot {
	return &Snapshot{
		text:       text,
		lineStarts: computeLineStarts(text),
	}
}

func computeLineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (s *Snapshot) Text() string { return s.text }

func (s *Snapshot) Length() int { return len(s.text) }

func (s *Snapshot) Version() int { return s.version }

// GetText returns the text of [start, start+length), clamped to the document.
func (s *Snapshot) GetText(start, length int) string {
	start, end := s.clamp(start, start+length)
	return s.text[start:end]
}

func (s *Snapshot) clamp(start, end int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end > len(s.text) {
		end = len(s.text)
	}
	if start > end {
		start = end
	}
	return start, end
}

func (s *Snapshot) LineCount() int { return len(s.lineStarts) }

// LineOf returns the zero-based line containing offset.
func (s *Snapshot) LineOf(offset int) int {
	if offset <= 0 {
		return 0
	}
	// first line start strictly greater than offset, minus one
	return sort.SearchInts(s.lineStarts, offset+1) - 1
}

// LineStart returns the offset of the first byte of a zero-based line.
func (s *Snapshot) LineStart(line int) int {
	if line <= 0 {
		return 0
	}
	if line >= len(s.lineStarts) {
		return len(s.text)
	}
	return s.lineStarts[line]
}

// LineEnd returns the offset of the line break ending the line, or the document
// length on the last line.
func (s *Snapshot) LineEnd(line int) int {
	if line+1 >= len(s.lineStarts) {
		return len(s.text)
	}
	if line < 0 {
		line = 0
	}
	return s.lineStarts[line+1] - 1
}

// LineText returns the text of a zero-based line without its line break.
func (s *Snapshot) LineText(line int) string {
	return s.text[s.LineStart(line):s.LineEnd(line)]
}

// Place returns the zero-based line and grapheme column of offset.
func (s *Snapshot) Place(offset int) Place {
	offset, _ = s.clamp(offset, len(s.text))
	line := s.LineOf(offset)
	return Place{
		Line:      line,
		Character: GraphemeColumn(s.text[s.lineStarts[line]:offset]),
	}
}

// OffsetOf converts a zero-based line and grapheme column to a byte offset.
// Columns beyond the end of the line resolve to the line end.
func (s *Snapshot) OffsetOf(line, column int) int {
	if line >= len(s.lineStarts) {
		return len(s.text)
	}
	start := s.LineStart(line)
	return start + ByteOffsetOfColumn(s.text[start:s.LineEnd(line)], column)
}

// Range returns the line/column range covered by span.
func (s *Snapshot) Range(span Span) Range {
	return Range{
		Start: s.Place(span.Start()),
		End:   s.Place(span.End()),
	}
}

// Apply returns a new snapshot with the edits applied in order. Each edit is
// interpreted against the text produced by the edits before it.
func (s *Snapshot) Apply(edits ...Edit) (*Snapshot, error) {
	cur := s
	for _, e := range edits {
		if e.Offset < 0 || e.Length < 0 || e.Offset+e.Length > len(cur.text) {
			return nil, errors.Errorf("applying edit at %d (length %d) to document of length %d: %w", e.Offset, e.Length, len(cur.text), ErrEditOutOfRange)
		}
		text := cur.text[:e.Offset] + e.Text + cur.text[e.Offset+e.Length:]
		cur = &Snapshot{
			text:       text,
			lineStarts: computeLineStarts(text),
			version:    cur.version + 1,
			prev:       cur,
			edit:       e,
		}
	}
	return cur, nil
}

// ReplaceAll returns a new version of the document holding text. Spans
// translated across it collapse to the document start.
func (s *Snapshot) ReplaceAll(text string) *Snapshot {
	next, _ := s.Apply(Edit{Offset: 0, Length: len(s.text), Text: text})
	return next
}

// editsSince returns the edits leading from older to s, oldest first.
func (s *Snapshot) editsSince(older *Snapshot) ([]Edit, bool) {
	var edits []Edit
	for cur := s; cur != nil; cur = cur.prev {
		if cur == older {
			for i, j := 0, len(edits)-1; i < j; i, j = i+1, j-1 {
				edits[i], edits[j] = edits[j], edits[i]
			}
			return edits, true
		}
		edits = append(edits, cur.edit)
	}
	return nil, false
}

var (
	ErrEditOutOfRange    = errors.Base("edit out of range")
	ErrUnrelatedSnapshot = errors.Base("snapshot is not a newer version of the span's snapshot")
)
