// Package nsresolve maps a namespace prefix in a document to the URI it is
// bound to at that point.
package nsresolve

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/walteh/tagmatch/pkg/fragment"
	"github.com/walteh/tagmatch/pkg/position"
)

// Unknown is returned when no binding can be determined.
const Unknown = "unknown"

// Resolve returns the URI bound to the prefix covered by span. The document
// is parsed up to the first '>' after the span, so the enclosing start tag's
// own declarations are seen. Spans that are delimiters or already contain a
// colon resolve to Unknown without parsing.
func Resolve(ctx context.Context, span position.Span) string {
	prefix := span.Text()
	if !isPrefix(prefix) {
		return Unknown
	}
	return ResolvePrefix(ctx, span.Snapshot().Text(), prefix, span.End())
}

// ResolvePrefix resolves prefix as observed in text before the first '>' at or
// after offset. The last element or attribute with that prefix and a
// non-empty namespace wins.
func ResolvePrefix(ctx context.Context, text, prefix string, offset int) string {
	if !isPrefix(prefix) {
		return Unknown
	}
	offset = min(max(offset, 0), len(text))
	cut := len(text)
	if i := strings.IndexByte(text[offset:], '>'); i >= 0 {
		cut = offset + i + 1
	}

	p := fragment.NewParser(text[:cut])
	defer p.Close()

	uri := ""
	for ev := range p.Events() {
		if ev.Kind == fragment.KindEndElement {
			continue
		}
		if ev.Name.Prefix == prefix && ev.NamespaceURI != "" {
			uri = ev.NamespaceURI
		}
	}

	zerolog.Ctx(ctx).Trace().
		Str("prefix", prefix).
		Str("uri", uri).
		Int("issues", len(p.Issues())).
		Msg("resolved namespace prefix")

	if uri == "" {
		return Unknown
	}
	return uri
}

func isPrefix(s string) bool {
	return s != "" && !strings.ContainsAny(s, ":<>/=")
}
