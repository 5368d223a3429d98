package position

import (
	"fmt"
)

type Place struct {
	Line      int
	Character int
}

type Range struct {
	Start Place
	End   Place
}

// Span is a half-open byte range [Start, End) on a specific snapshot. Its text
// is captured at creation, so a span stays valid after newer versions exist.
type Span struct {
	snapshot *Snapshot
	start    int
	text     string
}

// NewSpan creates a span on snapshot, clamped to the document bounds.
func NewSpan(snapshot *Snapshot, start, length int) Span {
	start, end := snapshot.clamp(start, start+length)
	return Span{
		snapshot: snapshot,
		start:    start,
		text:     snapshot.text[start:end],
	}
}

// NewSpanFromBounds creates a span covering [start, end).
func NewSpanFromBounds(snapshot *Snapshot, start, end int) Span {
	return NewSpan(snapshot, start, end-start)
}

func (p Span) Snapshot() *Snapshot { return p.snapshot }

func (p Span) Start() int { return p.start }

func (p Span) Length() int { return len(p.text) }

func (p Span) End() int { return p.start + len(p.text) }

func (p Span) Text() string { return p.text }

func (p Span) IsZero() bool { return p.snapshot == nil }

// ID returns an identifier for this span based on offset and text
func (p Span) ID() string {
	return fmt.Sprintf("%s@%d", p.text, p.start)
}

// Contains reports whether offset lies in [Start, End).
func (p Span) Contains(offset int) bool {
	return offset >= p.start && offset < p.End()
}

// Touches reports whether offset lies in [Start, End].
func (p Span) Touches(offset int) bool {
	return offset >= p.start && offset <= p.End()
}

// Equal reports whether both spans cover the same range of the same snapshot.
func (p Span) Equal(other Span) bool {
	return p.snapshot == other.snapshot && p.start == other.start && len(p.text) == len(other.text)
}

// Intersects reports whether the spans overlap. An empty span intersects a
// span it lies within, including at its end.
func (p Span) Intersects(other Span) bool {
	if p.Length() == 0 {
		return p.start >= other.start && p.start <= other.End()
	}
	if other.Length() == 0 {
		return other.start >= p.start && other.start <= p.End()
	}
	return other.start < p.End() && other.End() > p.start
}

// Range returns the zero-based line/column range of the span.
func (p Span) Range() Range {
	return p.snapshot.Range(p)
}

func (p Span) String() string {
	return fmt.Sprintf("%q@%d", p.text, p.start)
}

type SpanArray []Span

func (me SpanArray) ToStrings() []string {
	var texts []string
	for _, pos := range me {
		texts = append(texts, pos.String())
	}
	return texts
}
