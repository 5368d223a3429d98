package fragment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/tagmatch/pkg/diff"
	"github.com/walteh/tagmatch/pkg/fragment"
)

type ev struct {
	Kind  string
	Name  string
	Depth int
	NS    string
}

func collect(t *testing.T, p *fragment.Parser) []ev {
	t.Helper()
	out := []ev{}
	for e := range p.Events() {
		out = append(out, ev{Kind: e.Kind.String(), Name: e.Name.String(), Depth: e.Depth, NS: e.NamespaceURI})
	}
	return out
}

func codes(issues []fragment.Issue) []fragment.IssueCode {
	out := []fragment.IssueCode{}
	for _, iss := range issues {
		out = append(out, iss.Code)
	}
	return out
}

func TestParserEvents(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantEvents []ev
		wantIssues []fragment.IssueCode
	}{
		{
			name:  "nested with self-closing child",
			input: `<a x="1"><b/></a>`,
			wantEvents: []ev{
				{"StartElement", "a", 1, ""},
				{"Attribute", "x", 1, ""},
				{"StartElement", "b", 2, ""},
				{"EndElement", "a", 1, ""},
			},
			wantIssues: []fragment.IssueCode{},
		},
		{
			name:  "prefix bound on the parent",
			input: `<root xmlns:p="urn:x"><p:child/></root>`,
			wantEvents: []ev{
				{"StartElement", "root", 1, ""},
				{"Attribute", "xmlns:p", 1, fragment.XMLNSNamespace},
				{"StartElement", "p:child", 2, "urn:x"},
				{"EndElement", "root", 1, ""},
			},
			wantIssues: []fragment.IssueCode{},
		},
		{
			name:  "default namespace and reserved xml prefix",
			input: `<a xmlns="urn:d" xml:lang="en"><b/></a>`,
			wantEvents: []ev{
				{"StartElement", "a", 1, "urn:d"},
				{"Attribute", "xmlns", 1, fragment.XMLNSNamespace},
				{"Attribute", "xml:lang", 1, fragment.XMLNamespace},
				{"StartElement", "b", 2, "urn:d"},
				{"EndElement", "a", 1, "urn:d"},
			},
			wantIssues: []fragment.IssueCode{},
		},
		{
			name:  "unbound prefix resolves to empty",
			input: `<q:x/>`,
			wantEvents: []ev{
				{"StartElement", "q:x", 1, ""},
			},
			wantIssues: []fragment.IssueCode{fragment.IssueUndeclaredPrefix},
		},
		{
			name:  "end tag closes a deeper element implicitly",
			input: `<a><b></a>`,
			wantEvents: []ev{
				{"StartElement", "a", 1, ""},
				{"StartElement", "b", 2, ""},
				{"EndElement", "b", 2, ""},
				{"EndElement", "a", 1, ""},
			},
			wantIssues: []fragment.IssueCode{fragment.IssueImplicitClose},
		},
		{
			name:  "unknown end tag closes the top element",
			input: `<b></a>`,
			wantEvents: []ev{
				{"StartElement", "b", 1, ""},
				{"EndElement", "a", 1, ""},
			},
			wantIssues: []fragment.IssueCode{fragment.IssueMismatchedEnd},
		},
		{
			name:  "end tag with nothing open",
			input: `</x><y/>`,
			wantEvents: []ev{
				{"EndElement", "x", 0, ""},
				{"StartElement", "y", 1, ""},
			},
			wantIssues: []fragment.IssueCode{fragment.IssueStrayEnd},
		},
		{
			name:  "stray less-than is text",
			input: `<a> 1 < 2 </a>`,
			wantEvents: []ev{
				{"StartElement", "a", 1, ""},
				{"EndElement", "a", 1, ""},
			},
			wantIssues: []fragment.IssueCode{fragment.IssueMalformedMarkup},
		},
		{
			name:  "unclosed elements at the end",
			input: `<a><b>`,
			wantEvents: []ev{
				{"StartElement", "a", 1, ""},
				{"StartElement", "b", 2, ""},
			},
			wantIssues: []fragment.IssueCode{fragment.IssueUnclosedElement, fragment.IssueUnclosedElement},
		},
		{
			name:  "truncated start tag keeps earlier events",
			input: `<r><a/><b x="1"`,
			wantEvents: []ev{
				{"StartElement", "r", 1, ""},
				{"StartElement", "a", 2, ""},
			},
			wantIssues: []fragment.IssueCode{fragment.IssueUnterminated, fragment.IssueUnclosedElement},
		},
		{
			name:  "comments, cdata and instructions are skipped",
			input: `<?xml version="1.0"?><!-- <x> --><r><![CDATA[</r>]]></r>`,
			wantEvents: []ev{
				{"StartElement", "r", 1, ""},
				{"EndElement", "r", 1, ""},
			},
			wantIssues: []fragment.IssueCode{},
		},
		{
			name:  "doctype with internal subset",
			input: `<!DOCTYPE r [<!ELEMENT r ANY>]><r/>`,
			wantEvents: []ev{
				{"StartElement", "r", 1, ""},
			},
			wantIssues: []fragment.IssueCode{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := fragment.NewParser(tt.input)
			defer p.Close()

			diff.Require(t, tt.wantEvents, collect(t, p), "events should match")
			assert.Equal(t, tt.wantIssues, codes(p.Issues()), "issues should match")
			assert.NoError(t, p.Err(), "lenient mode never fails")
		})
	}
}

func TestParserOffsetsAndPositions(t *testing.T) {
	p := fragment.NewParser("<a>\n  <b/>\n</a>")

	start, ok := p.Next()
	require.True(t, ok)
	assert.Equal(t, 0, start.Offset)
	assert.Equal(t, 3, start.EndOffset)
	assert.Equal(t, 3, p.Consumed())
	line, col := p.Pos()
	assert.Equal(t, 1, line)
	assert.Equal(t, 4, col)

	child, ok := p.Next()
	require.True(t, ok)
	assert.True(t, child.SelfClosing)
	assert.Equal(t, []int{2, 3, 2, 7}, []int{child.Line, child.Column, child.EndLine, child.EndColumn})

	end, ok := p.Next()
	require.True(t, ok)
	assert.Equal(t, fragment.KindEndElement, end.Kind)
	assert.Equal(t, []int{3, 1, 3, 5}, []int{end.Line, end.Column, end.EndLine, end.EndColumn})
	assert.Equal(t, 0, end.OpenOffset)
	assert.Equal(t, 3, end.OpenEndOffset)

	_, ok = p.Next()
	assert.False(t, ok)
}

func TestParserQuotedGreaterThan(t *testing.T) {
	p := fragment.NewParser(`<a attr=">">x</a>`)

	start, ok := p.Next()
	require.True(t, ok)
	assert.Equal(t, 12, start.EndOffset)

	attr, ok := p.Next()
	require.True(t, ok)
	assert.Equal(t, ">", attr.Value)

	end, ok := p.Next()
	require.True(t, ok)
	assert.Equal(t, 13, end.Offset)
	assert.Equal(t, 17, end.EndOffset)
	assert.Empty(t, p.Issues())
}

func TestParserAttributeEntities(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "predefined entities", value: "&lt;&amp;&gt;&quot;&apos;", want: `<&>"'`},
		{name: "decimal reference", value: "x&#65;y", want: "xAy"},
		{name: "hex reference", value: "&#x41;&#x20AC;", want: "A\u20ac"},
		{name: "html entity stays literal", value: "a&nbsp;b&copy;", want: "a&nbsp;b&copy;"},
		{name: "bare ampersand", value: "a & b", want: "a & b"},
		{name: "unterminated reference", value: "&amp", want: "&amp"},
		{name: "invalid code point", value: "&#0;&#xD800;", want: "&#0;&#xD800;"},
		{name: "namespace uri", value: "urn:a&amp;b", want: "urn:a&b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := fragment.NewParser(`<a v="` + tt.value + `"/>`)
			_, ok := p.Next()
			require.True(t, ok)
			attr, ok := p.Next()
			require.True(t, ok)
			require.Equal(t, fragment.KindAttribute, attr.Kind)
			assert.Equal(t, tt.want, attr.Value)
		})
	}
}

func TestParserColumnsAcrossCombiningMarks(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantColumn int
		wantEnd    int
	}{
		{name: "mark after start tag", input: "<a>\u0301x</a>", wantColumn: 5, wantEnd: 9},
		{name: "mark after start tag then newline", input: "<a>\u0301\n</a>", wantColumn: 1, wantEnd: 5},
		{name: "plain", input: "<a>x</a>", wantColumn: 5, wantEnd: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := fragment.NewParser(tt.input)
			start, ok := p.Next()
			require.True(t, ok)
			assert.Equal(t, 4, start.EndColumn)

			end, ok := p.Next()
			require.True(t, ok)
			require.Equal(t, fragment.KindEndElement, end.Kind)
			assert.Equal(t, tt.wantColumn, end.Column, "column")
			assert.Equal(t, tt.wantEnd, end.EndColumn, "end column")
		})
	}
}

func TestParserGraphemeColumns(t *testing.T) {
	p := fragment.NewParser("<é>é</é>")

	start, ok := p.Next()
	require.True(t, ok)
	assert.Equal(t, len("<é>"), start.EndOffset)
	assert.Equal(t, 4, start.EndColumn)

	end, ok := p.Next()
	require.True(t, ok)
	assert.Equal(t, 5, end.Column, "combining sequence is one column")
}

func TestParserStrict(t *testing.T) {
	p := fragment.NewParser(`<a> < </a>`, fragment.WithMode(fragment.ModeStrict))

	first, ok := p.Next()
	require.True(t, ok)
	assert.Equal(t, fragment.KindStartElement, first.Kind)

	_, ok = p.Next()
	assert.False(t, ok, "strict mode stops at the first issue")
	require.ErrorIs(t, p.Err(), fragment.ErrMalformed)
}

func TestParserIssueCap(t *testing.T) {
	p := fragment.NewParser(`</a></a></a></a></a>`, fragment.WithMaxIssues(2))
	events := collect(t, p)
	assert.Len(t, events, 5)
	assert.Equal(t, []fragment.IssueCode{
		fragment.IssueStrayEnd,
		fragment.IssueStrayEnd,
		fragment.IssueTooMany,
	}, codes(p.Issues()))
}

func TestParserInheritedNamespaces(t *testing.T) {
	p := fragment.NewParser(`<p:item/>`, fragment.WithNamespaces(map[string]string{"p": "urn:outer"}))
	e, ok := p.Next()
	require.True(t, ok)
	assert.Equal(t, "urn:outer", e.NamespaceURI)
	assert.Empty(t, p.Issues())
}

func TestParserClose(t *testing.T) {
	p := fragment.NewParser(`<a><b/></a>`)
	_, ok := p.Next()
	require.True(t, ok)
	p.Close()
	_, ok = p.Next()
	assert.False(t, ok)
}

func TestParseName(t *testing.T) {
	assert.Equal(t, fragment.Name{Prefix: "p", Local: "x"}, fragment.ParseName("p:x"))
	assert.Equal(t, fragment.Name{Local: ":x"}, fragment.ParseName(":x"))
	assert.Equal(t, fragment.Name{Local: "x"}, fragment.ParseName("x"))
	assert.Equal(t, "p:x", fragment.ParseName("p:x").String())
}
