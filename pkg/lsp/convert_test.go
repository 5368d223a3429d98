package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/walteh/tagmatch/pkg/dialect"
	"github.com/walteh/tagmatch/pkg/position"
)

func TestOffsetRoundTrip(t *testing.T) {
	// "é" is two bytes and one code unit, the emoji four bytes and two units.
	snap := position.NewSnapshot("<é>\n<a>😀</a>\n")

	tests := []struct {
		name   string
		pos    Position
		offset int
	}{
		{"start", Position{0, 0}, 0},
		{"after two byte rune", Position{0, 2}, 3},
		{"line two", Position{1, 0}, 5},
		{"after surrogate pair", Position{1, 5}, 12},
		{"closing tag", Position{1, 6}, 13},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.offset, offsetOf(snap, tt.pos))
			assert.Equal(t, tt.pos, positionOf(snap, tt.offset))
		})
	}
}

func TestOffsetOfClamps(t *testing.T) {
	snap := position.NewSnapshot("ab\ncd")
	assert.Equal(t, 0, offsetOf(snap, Position{Line: -1}))
	assert.Equal(t, 2, offsetOf(snap, Position{Line: 0, Character: 40}))
	assert.Equal(t, 5, offsetOf(snap, Position{Line: 9, Character: 0}))
	assert.Equal(t, Position{Line: 1, Character: 2}, positionOf(snap, 99))
}

func TestURIToPath(t *testing.T) {
	assert.Equal(t, "/tmp/a b.xml", uriToPath("file:///tmp/a%20b.xml"))
	assert.Equal(t, "/tmp/x.xaml", uriToPath("/tmp/x.xaml"))
	assert.Equal(t, "untitled:1", uriToPath("untitled:1"))
}

func TestDialectFor(t *testing.T) {
	byPath := func(p string) dialect.Dialect { return dialect.ForPath(p) }
	assert.Equal(t, dialect.XAML.Name(), dialectFor("xaml", byPath, "file:///a.xml").Name())
	assert.Equal(t, dialect.XAML.Name(), dialectFor("", byPath, "file:///w/Main.xaml").Name())
	assert.Equal(t, dialect.XML.Name(), dialectFor("xml", byPath, "file:///w/data.xml").Name())
}

func TestFormatLogEntry(t *testing.T) {
	got := FormatLogEntry(map[string]any{
		"level":   "warn",
		"message": "ignoring workspace config",
		"time":    "2024-01-01T00:00:00Z",
		"server":  "abc",
		"root":    "/w",
		"count":   float64(2),
	})
	assert.Equal(t, LogMessageParams{Type: Warning, Message: "ignoring workspace config count=2 root=/w"}, got)

	assert.Equal(t, Log, FormatLogEntry(map[string]any{"message": "x"}).Type)
}

func TestMessageTypeFromLevel(t *testing.T) {
	assert.Equal(t, Error, MessageTypeFromLevel("error"))
	assert.Equal(t, Info, MessageTypeFromLevel("info"))
	assert.Equal(t, Debug, MessageTypeFromLevel("trace"))
	assert.Equal(t, Log, MessageTypeFromLevel("bogus"))
}
