package lsp

import (
	"net/url"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/walteh/tagmatch/pkg/position"
)

// offsetOf converts a protocol position to a byte offset. Lines past the end
// clamp to the document end, characters past the line end to the line end.
func offsetOf(snap *position.Snapshot, pos Position) int {
	if pos.Line < 0 {
		return 0
	}
	if pos.Line >= snap.LineCount() {
		return snap.Length()
	}
	start := snap.LineStart(pos.Line)
	line := snap.LineText(pos.Line)

	units := 0
	for i, r := range line {
		if units >= pos.Character {
			return start + i
		}
		units += utf16Len(r)
	}
	return start + len(line)
}

// positionOf converts a byte offset to a protocol position.
func positionOf(snap *position.Snapshot, offset int) Position {
	offset = min(max(offset, 0), snap.Length())
	line := snap.LineOf(offset)
	units := 0
	for _, r := range snap.Text()[snap.LineStart(line):offset] {
		units += utf16Len(r)
	}
	return Position{Line: line, Character: units}
}

func rangeOf(span position.Span) Range {
	return Range{
		Start: positionOf(span.Snapshot(), span.Start()),
		End:   positionOf(span.Snapshot(), span.End()),
	}
}

func utf16Len(r rune) int {
	if r == utf8.RuneError {
		return 1
	}
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

func utf16Count(s string) int {
	n := 0
	for _, r := range s {
		n += utf16Len(r)
	}
	return n
}

// uriToPath turns a file URI into a filesystem path; other strings are
// returned unchanged.
func uriToPath(uri string) string {
	if !strings.HasPrefix(uri, "file:") {
		return uri
	}
	u, err := url.Parse(uri)
	if err != nil || u.Path == "" {
		return strings.TrimPrefix(strings.TrimPrefix(uri, "file://"), "file:")
	}
	return u.Path
}
