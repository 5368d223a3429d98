package classify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/walteh/tagmatch/pkg/classify"
	"github.com/walteh/tagmatch/pkg/dialect"
	"github.com/walteh/tagmatch/pkg/position"
)

type tok struct {
	Category string
	Text     string
}

func simplify(tokens []classify.Token) []tok {
	out := make([]tok, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, tok{Category: t.Category, Text: t.Span.Text()})
	}
	return out
}

func TestLexerXML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []tok
	}{
		{
			name:  "qualified name is one token",
			input: `<ns:Foo a="1"/>`,
			expected: []tok{
				{"XML Delimiter", "<"},
				{"XML Name", "ns:Foo"},
				{"XML Attribute", "a"},
				{"XML Delimiter", "="},
				{"XML Text", `"1"`},
				{"XML Delimiter", "/>"},
			},
		},
		{
			name:  "closing tag with whitespace",
			input: "<a>hi</a >",
			expected: []tok{
				{"XML Delimiter", "<"},
				{"XML Name", "a"},
				{"XML Delimiter", ">"},
				{"XML Text", "hi"},
				{"XML Delimiter", "</"},
				{"XML Name", "a"},
				{"XML Delimiter", ">"},
			},
		},
		{
			name:  "quoted greater-than stays in the value",
			input: `<a attr=">">`,
			expected: []tok{
				{"XML Delimiter", "<"},
				{"XML Name", "a"},
				{"XML Attribute", "attr"},
				{"XML Delimiter", "="},
				{"XML Text", `">"`},
				{"XML Delimiter", ">"},
			},
		},
		{
			name:  "processing instruction and comment",
			input: `<?xml version="1.0"?><!-- <b> -->`,
			expected: []tok{
				{"XML Delimiter", "<?"},
				{"XML Name", "xml"},
				{"XML Attribute", "version"},
				{"XML Delimiter", "="},
				{"XML Text", `"1.0"`},
				{"XML Delimiter", "?>"},
				{"XML Delimiter", "<!--"},
				{"XML Text", " <b> "},
				{"XML Delimiter", "-->"},
			},
		},
		{
			name:  "doctype with internal subset",
			input: `<!DOCTYPE a [<!ENTITY e "x">]><a/>`,
			expected: []tok{
				{"XML Delimiter", "<!"},
				{"XML Text", `DOCTYPE a [<!ENTITY e "x">]`},
				{"XML Delimiter", ">"},
				{"XML Delimiter", "<"},
				{"XML Name", "a"},
				{"XML Delimiter", "/>"},
			},
		},
		{
			name:  "stray less-than is text",
			input: "a < b <c>",
			expected: []tok{
				{"XML Text", "a "},
				{"XML Text", "<"},
				{"XML Text", " b "},
				{"XML Delimiter", "<"},
				{"XML Name", "c"},
				{"XML Delimiter", ">"},
			},
		},
		{
			name:  "cdata",
			input: "<![CDATA[</x>]]>",
			expected: []tok{
				{"XML Delimiter", "<![CDATA["},
				{"XML Text", "</x>"},
				{"XML Delimiter", "]]>"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lexer := classify.NewLexer(position.NewSnapshot(tt.input), dialect.XML)
			assert.Equal(t, tt.expected, simplify(lexer.Tokens()))
		})
	}
}

func TestLexerXAML(t *testing.T) {
	lexer := classify.NewLexer(position.NewSnapshot(`<x:Button x:Name="b"></x:Button>`), dialect.XAML)

	assert.Equal(t, []tok{
		{"XAML Delimiter", "<"},
		{"XAML Name", "x"},
		{"XAML Delimiter", ":"},
		{"XAML Name", "Button"},
		{"XAML Attribute", "x"},
		{"XAML Delimiter", ":"},
		{"XAML Attribute", "Name"},
		{"XAML Delimiter", "="},
		{"XAML Text", `"b"`},
		{"XAML Delimiter", ">"},
		{"XAML Delimiter", "</"},
		{"XAML Name", "x"},
		{"XAML Delimiter", ":"},
		{"XAML Name", "Button"},
		{"XAML Delimiter", ">"},
	}, simplify(lexer.Tokens()))
}

func TestQuery(t *testing.T) {
	snap := position.NewSnapshot("<root><child/></root>")
	lexer := classify.NewLexer(snap, dialect.XML)

	tests := []struct {
		name     string
		span     position.Span
		expected []tok
	}{
		{
			name:     "inside a name",
			span:     position.NewSpan(snap, 2, 1),
			expected: []tok{{"XML Name", "root"}},
		},
		{
			name:     "empty span touches neighbours",
			span:     position.NewSpan(snap, 5, 0),
			expected: []tok{{"XML Name", "root"}, {"XML Delimiter", ">"}},
		},
		{
			name: "caret window",
			span: position.NewSpan(snap, 6, 2),
			expected: []tok{
				{"XML Delimiter", "<"},
				{"XML Name", "child"},
			},
		},
		{
			name:     "other snapshot",
			span:     position.NewSpan(position.NewSnapshot(snap.Text()), 0, 5),
			expected: []tok{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := simplify(lexer.Query(tt.span))
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, got, simplify(lexer.Query(tt.span)), "queries are idempotent")
		})
	}
}
