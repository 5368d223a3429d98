package semtok_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/tagmatch/pkg/classify"
	"github.com/walteh/tagmatch/pkg/dialect"
	"github.com/walteh/tagmatch/pkg/position"
	"github.com/walteh/tagmatch/pkg/semtok"
)

type annotation struct {
	Type string
	Text string
	At   int
}

func normalize(t *testing.T, input string, d dialect.Dialect) []annotation {
	t.Helper()
	snap := position.NewSnapshot(input)
	lexer := classify.NewLexer(snap, d)
	tokens := semtok.Normalize(context.Background(), lexer, position.NewSpan(snap, 0, snap.Length()), d)

	out := []annotation{}
	for _, tok := range tokens {
		out = append(out, annotation{Type: tok.Type.String(), Text: tok.Range.Text(), At: tok.Range.Start()})
	}
	return out
}

func TestNormalizeInName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []annotation
	}{
		{
			name:  "opening tag emits prefix only",
			input: "<ns:Foo>",
			expected: []annotation{
				{"namespace-prefix", "ns", 1},
			},
		},
		{
			name:  "closing tag splits at the colon",
			input: "</ns:Foo>",
			expected: []annotation{
				{"namespace-prefix", "ns", 2},
				{"closing-tag-name", ":Foo", 4},
			},
		},
		{
			name:  "closing tag without prefix covers the whole name",
			input: "<a></a>",
			expected: []annotation{
				{"closing-tag-name", "a", 5},
			},
		},
		{
			name:  "attribute prefix",
			input: `<root xmlns:p="urn:x"/>`,
			expected: []annotation{
				{"namespace-prefix", "xmlns", 6},
			},
		},
		{
			name:  "flag resets after the name",
			input: "</a><b>",
			expected: []annotation{
				{"closing-tag-name", "a", 2},
			},
		},
		{
			name:     "no markup",
			input:    "plain text",
			expected: []annotation{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalize(t, tt.input, dialect.XML))
		})
	}
}

func TestNormalizeSeparate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []annotation
	}{
		{
			name:  "opening tag emits prefix",
			input: "<x:Button>",
			expected: []annotation{
				{"namespace-prefix", "x", 1},
			},
		},
		{
			name:  "closing tag emits prefix and local name",
			input: "</x:Button>",
			expected: []annotation{
				{"namespace-prefix", "x", 2},
				{"closing-tag-name", "Button", 4},
			},
		},
		{
			name:  "attribute prefix",
			input: `<Grid x:Name="g"></Grid>`,
			expected: []annotation{
				{"namespace-prefix", "x", 6},
				{"closing-tag-name", "Grid", 19},
			},
		},
		{
			name:     "colon without a name before it",
			input:    "a : b",
			expected: []annotation{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalize(t, tt.input, dialect.XAML))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	input := `<a:Root xmlns:a="urn:a"><a:Child/></a:Root>`
	for _, d := range dialect.All() {
		t.Run(d.Name(), func(t *testing.T) {
			first := normalize(t, input, d)
			require.NotEmpty(t, first)
			assert.Equal(t, first, normalize(t, input, d))
		})
	}
}

func TestStepIsPure(t *testing.T) {
	snap := position.NewSnapshot("</x:A>")
	labels := dialect.XAML.Labels()
	strategy := semtok.StrategyFor(dialect.XAML)

	closer := classify.Token{Span: position.NewSpan(snap, 0, 2), Category: labels.Delimiter}
	m, out := strategy.Step(semtok.Machine{}, closer)
	assert.Empty(t, out)
	assert.Equal(t, semtok.StateAfterClosingDelimiter, m.State)
	assert.True(t, m.InsideClosingTag)

	prefix := classify.Token{Span: position.NewSpan(snap, 2, 1), Category: labels.Name}
	afterName, _ := strategy.Step(m, prefix)
	assert.True(t, afterName.HasLast)
	assert.False(t, m.HasLast, "input machine is not modified")

	colon := classify.Token{Span: position.NewSpan(snap, 3, 1), Category: labels.Delimiter}
	afterColon, out := strategy.Step(afterName, colon)
	require.Len(t, out, 1)
	assert.Equal(t, semtok.TokenNamespacePrefix, out[0].Type)
	assert.Equal(t, semtok.StateAfterDelimiterAwaitingName, afterColon.State)
	assert.True(t, afterColon.InsideClosingTag, "closing flag survives the colon")
}

type fixedStream []classify.Token

func (f fixedStream) Query(position.Span) []classify.Token { return f }

func TestNormalizeForeignStream(t *testing.T) {
	snap := position.NewSnapshot("</p:Item>")
	labels := dialect.XML.Labels()
	stream := fixedStream{
		{Span: position.NewSpan(snap, 0, 2), Category: labels.Delimiter},
		{Span: position.NewSpan(snap, 2, 6), Category: labels.Name},
		{Span: position.NewSpan(snap, 8, 1), Category: labels.Delimiter},
	}

	tokens := semtok.Normalize(context.Background(), stream, position.NewSpan(snap, 0, snap.Length()), dialect.XML)
	require.Len(t, tokens, 2)
	assert.Equal(t, "p", tokens[0].Range.Text())
	assert.Equal(t, ":Item", tokens[1].Range.Text())
	assert.Equal(t, "closing-tag-name \":Item\"@3", tokens[1].String())
}
