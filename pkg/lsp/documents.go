package lsp

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tagmatch/pkg/classify"
	"github.com/walteh/tagmatch/pkg/dialect"
	"github.com/walteh/tagmatch/pkg/highlight"
	"github.com/walteh/tagmatch/pkg/position"
	"github.com/walteh/tagmatch/pkg/tagmatch"
)

var ErrDocumentNotFound = errors.Base("document not found")

// Document is an open editor buffer and everything derived from its current
// text.
type Document struct {
	URI        string
	LanguageID string
	Version    int
	Dialect    dialect.Dialect
	Snapshot   *position.Snapshot
	Lexer      *classify.Lexer
	Highlights *highlight.Controller

	mu sync.Mutex
}

// DocumentManager handles document operations
type DocumentManager struct {
	store *sync.Map // map[string]*Document
}

func NewDocumentManager() *DocumentManager {
	return &DocumentManager{
		store: &sync.Map{},
	}
}

// Open stores a new document, replacing any earlier one with the same URI.
func (m *DocumentManager) Open(item TextDocumentItem, d dialect.Dialect, locator *tagmatch.Locator, sink highlight.Sink) *Document {
	snap := position.NewSnapshot(item.Text)
	doc := &Document{
		URI:        item.URI,
		LanguageID: item.LanguageID,
		Version:    item.Version,
		Dialect:    d,
		Snapshot:   snap,
		Lexer:      classify.NewLexer(snap, d),
		Highlights: highlight.NewController(locator, sink),
	}
	m.store.Store(item.URI, doc)
	return doc
}

func (m *DocumentManager) Get(uri string) (*Document, bool) {
	v, ok := m.store.Load(uri)
	if !ok {
		return nil, false
	}
	return v.(*Document), true
}

func (m *DocumentManager) Delete(uri string) {
	m.store.Delete(uri)
}

// Len returns the number of open documents.
func (m *DocumentManager) Len() int {
	n := 0
	m.store.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Apply applies content changes in order and moves the document's highlight
// anchor onto the new text.
func (d *Document) Apply(ctx context.Context, version int, changes []TextDocumentContentChangeEvent) error {
	d.mu.Lock()
	snap := d.Snapshot
	for i, change := range changes {
		if change.Range == nil {
			snap = snap.ReplaceAll(change.Text)
			continue
		}
		start := offsetOf(snap, change.Range.Start)
		end := max(offsetOf(snap, change.Range.End), start)
		next, err := snap.Apply(position.Edit{Offset: start, Length: end - start, Text: change.Text})
		if err != nil {
			d.mu.Unlock()
			return errors.Errorf("applying change %d to %s: %w", i, d.URI, err)
		}
		snap = next
	}
	d.Snapshot = snap
	d.Version = version
	d.Lexer = classify.NewLexer(snap, d.Dialect)
	lexer := d.Lexer
	d.mu.Unlock()

	zerolog.Ctx(ctx).Debug().
		Str("uri", d.URI).
		Int("version", version).
		Int("changes", len(changes)).
		Int("snapshot", snap.Version()).
		Msg("document changed")

	d.Highlights.LayoutChanged(ctx, lexer, snap)
	return nil
}

// Current returns the snapshot and lexer as one consistent pair.
func (d *Document) Current() (*position.Snapshot, *classify.Lexer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Snapshot, d.Lexer
}

// dialectFor honors a "xaml" language id and otherwise goes by path.
func dialectFor(languageID string, byPath func(string) dialect.Dialect, uri string) dialect.Dialect {
	if strings.EqualFold(strings.TrimSpace(languageID), dialect.XAML.Name()) {
		return dialect.XAML
	}
	return byPath(uriToPath(uri))
}
