package position

import (
	"gitlab.com/tozd/go/errors"
)

// TrackingMode decides how span edges react to insertions made exactly at them.
type TrackingMode int

const (
	// EdgeExclusive: neither edge grows to take in text inserted at it.
	EdgeExclusive TrackingMode = iota
	// EdgeInclusive: both edges grow to take in text inserted at them.
	EdgeInclusive
	// EdgePositive: both edges move right past text inserted at them.
	EdgePositive
	// EdgeNegative: both edges stay left of text inserted at them.
	EdgeNegative
)

func (m TrackingMode) String() string {
	switch m {
	case EdgeExclusive:
		return "EdgeExclusive"
	case EdgeInclusive:
		return "EdgeInclusive"
	case EdgePositive:
		return "EdgePositive"
	case EdgeNegative:
		return "EdgeNegative"
	}
	return "Unknown"
}

// TranslateTo maps the span onto target, which must be the span's snapshot or
// a version derived from it through Apply.
func (p Span) TranslateTo(target *Snapshot, mode TrackingMode) (Span, error) {
	if p.snapshot == target {
		return p, nil
	}
	edits, ok := target.editsSince(p.snapshot)
	if !ok {
		return Span{}, errors.Errorf("translating %s to version %d: %w", p, target.Version(), ErrUnrelatedSnapshot)
	}

	start, end := p.start, p.End()
	startMoves, endMoves := edgeBias(mode)
	for _, e := range edits {
		// an empty span behaves as a point: a single bias for both edges
		if start == end {
			start = translatePoint(start, e, startMoves)
			end = start
			continue
		}
		start = translatePoint(start, e, startMoves)
		end = translatePoint(end, e, endMoves)
		if end < start {
			end = start
		}
	}
	return NewSpanFromBounds(target, start, end), nil
}

// edgeBias returns, per edge, whether an insertion exactly at that edge
// pushes it to the right.
func edgeBias(mode TrackingMode) (start, end bool) {
	switch mode {
	case EdgeInclusive:
		return false, true
	case EdgePositive:
		return true, true
	case EdgeNegative:
		return false, false
	default:
		return true, false
	}
}

func translatePoint(point int, e Edit, movesRight bool) int {
	editEnd := e.Offset + e.Length
	switch {
	case point < e.Offset:
		return point
	case point == e.Offset && e.Length == 0:
		if movesRight {
			return point + len(e.Text)
		}
		return point
	case point >= editEnd:
		return point + e.Delta()
	default:
		// covered by the deletion: collapse to the edit start, or past the
		// replacement for right-moving edges
		if movesRight && point > e.Offset {
			return e.Offset + len(e.Text)
		}
		return e.Offset
	}
}

// TranslateOffset maps a single offset from one snapshot to a newer one.
func TranslateOffset(from, to *Snapshot, offset int, mode TrackingMode) (int, error) {
	span, err := NewSpan(from, offset, 0).TranslateTo(to, mode)
	if err != nil {
		return 0, err
	}
	return span.Start(), nil
}
