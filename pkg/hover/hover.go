// Package hover builds the tooltip shown over a namespace prefix.
package hover

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tagmatch/pkg/classify"
	"github.com/walteh/tagmatch/pkg/dialect"
	"github.com/walteh/tagmatch/pkg/nsresolve"
	"github.com/walteh/tagmatch/pkg/position"
	"github.com/walteh/tagmatch/pkg/semtok"
)

// HoverInfo represents the information to be displayed in a hover tooltip
type HoverInfo struct {
	// Content is the text to display, one entry per paragraph
	Content []string
	// Position is the span in the document that this hover applies to
	Position position.Span
}

// FormatNamespaceHover renders the tooltip text for a prefix.
func FormatNamespaceHover(prefix, uri string) string {
	return fmt.Sprintf("%s: %s", prefix, uri)
}

var ErrOutOfRange = errors.Base("offset out of range")

// BuildNamespaceHover returns the tooltip for the namespace prefix at offset,
// or nil when the offset is not on a prefix.
func BuildNamespaceHover(ctx context.Context, stream classify.Stream, d dialect.Dialect, snap *position.Snapshot, offset int) (*HoverInfo, error) {
	if offset < 0 || offset > snap.Length() {
		return nil, errors.Errorf("hover at %d in document of length %d: %w", offset, snap.Length(), ErrOutOfRange)
	}

	line := snap.LineOf(offset)
	region := position.NewSpanFromBounds(snap, snap.LineStart(line), snap.LineEnd(line))

	for _, tok := range semtok.Normalize(ctx, stream, region, d) {
		if tok.Type != semtok.TokenNamespacePrefix || !tok.Range.Touches(offset) {
			continue
		}
		uri := nsresolve.Resolve(ctx, tok.Range)
		zerolog.Ctx(ctx).Debug().Stringer("prefix", tok.Range).Str("uri", uri).Msg("namespace hover")
		return &HoverInfo{
			Content:  []string{FormatNamespaceHover(tok.Range.Text(), uri)},
			Position: tok.Range,
		}, nil
	}
	return nil, nil
}
