package highlight_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/tagmatch/pkg/classify"
	"github.com/walteh/tagmatch/pkg/dialect"
	"github.com/walteh/tagmatch/pkg/highlight"
	"github.com/walteh/tagmatch/pkg/position"
	"github.com/walteh/tagmatch/pkg/tagmatch"
)

type recorder struct {
	calls []*tagmatch.TagPair
}

func (r *recorder) TagsChanged(_ context.Context, _ *position.Snapshot, pair *tagmatch.TagPair) {
	r.calls = append(r.calls, pair)
}

func texts(pair *tagmatch.TagPair) []string {
	if pair == nil {
		return nil
	}
	var out []string
	for _, s := range pair.Highlights() {
		out = append(out, s.Text())
	}
	return out
}

func TestController(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	ctrl := highlight.NewController(tagmatch.NewLocator(dialect.XML), rec)

	v0 := position.NewSnapshot("<a><b/></a>")
	pair := ctrl.CaretMoved(ctx, classify.NewLexer(v0, dialect.XML), v0, 1)
	assert.Equal(t, []string{"<a>", "</a>"}, texts(pair))

	v1, err := v0.Apply(position.Edit{Offset: 0, Text: "<root>"}, position.Edit{Offset: 17, Text: "</root>"})
	require.NoError(t, err)
	require.Equal(t, "<root><a><b/></a></root>", v1.Text())

	pair = ctrl.LayoutChanged(ctx, classify.NewLexer(v1, dialect.XML), v1)
	assert.Equal(t, []string{"<a>", "</a>"}, texts(pair))
	require.NotNil(t, pair)
	assert.Equal(t, 6, pair.Tag.Start(), "anchor moved with the insertion")

	current, ok := ctrl.Current()
	require.True(t, ok)
	assert.Same(t, v1, current.Snapshot())

	pair = ctrl.CaretMoved(ctx, classify.NewLexer(v1, dialect.XML), v1, 5)
	assert.Equal(t, []string{"<root>", "</root>"}, texts(pair))

	pair = ctrl.CaretMoved(ctx, classify.NewLexer(v1, dialect.XML), v1, 6)
	assert.Nil(t, pair, "caret between tags clears the highlight")

	require.Len(t, rec.calls, 4, "sink is notified on every change")
	assert.Nil(t, rec.calls[3])
}

func TestControllerDropsDeletedAnchor(t *testing.T) {
	ctx := context.Background()
	ctrl := highlight.NewController(tagmatch.NewLocator(dialect.XML), nil)

	v0 := position.NewSnapshot("<a></a>")
	require.NotNil(t, ctrl.CaretMoved(ctx, classify.NewLexer(v0, dialect.XML), v0, 1))

	v1, err := v0.Apply(position.Edit{Offset: 0, Length: 3})
	require.NoError(t, err)

	assert.Nil(t, ctrl.LayoutChanged(ctx, classify.NewLexer(v1, dialect.XML), v1))
	_, ok := ctrl.Current()
	assert.False(t, ok)
}

func TestControllerTagsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ctrl := highlight.NewController(tagmatch.NewLocator(dialect.XAML), highlight.SinkFunc(func(context.Context, *position.Snapshot, *tagmatch.TagPair) {}))

	snap := position.NewSnapshot("<x:Grid>\n</x:Grid>")
	lexer := classify.NewLexer(snap, dialect.XAML)
	ctrl.CaretMoved(ctx, lexer, snap, 4)

	first := ctrl.Tags(ctx, lexer, snap)
	second := ctrl.Tags(ctx, lexer, snap)
	assert.Equal(t, texts(first), texts(second))
	assert.Equal(t, []string{"<x:Grid>", "</x:Grid>"}, texts(first))
}
