/*
Package workspace opens markup documents from a project directory.

	root ──> finder (include globs) ──> raw bytes ──> charset (.editorconfig) ──> Document
	                                                                              ├─ Snapshot
	                                                                              ├─ Dialect (config rules)
	                                                                              └─ Lexer
*/
package workspace

import (
	"context"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/editorconfig/editorconfig-core-go/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/walteh/tagmatch/pkg/classify"
	"github.com/walteh/tagmatch/pkg/config"
	"github.com/walteh/tagmatch/pkg/diagnostic"
	"github.com/walteh/tagmatch/pkg/dialect"
	"github.com/walteh/tagmatch/pkg/finder"
	"github.com/walteh/tagmatch/pkg/position"
)

// Charset names as written in .editorconfig.
const (
	CharsetLatin1  = "latin1"
	CharsetUTF8    = "utf-8"
	CharsetUTF8BOM = "utf-8-bom"
	CharsetUTF16BE = "utf-16be"
	CharsetUTF16LE = "utf-16le"
)

var (
	ErrUnsupportedCharset = errors.Base("unsupported charset")
	ErrInvalidText        = errors.Base("document is not valid text")
)

// Document is one opened file.
type Document struct {
	// Path is relative to the workspace root, slash separated.
	Path     string
	Dialect  dialect.Dialect
	Snapshot *position.Snapshot
	Lexer    *classify.Lexer
}

// CharsetResolver names the charset a file is stored in; "" means UTF-8.
type CharsetResolver interface {
	CharsetFor(rel string) (string, error)
}

// EditorConfigResolver reads the charset property from the root's
// .editorconfig file, when there is one.
type EditorConfigResolver struct {
	fs   afero.Fs
	root string

	loaded bool
	ec     *editorconfig.Editorconfig
}

func NewEditorConfigResolver(fs afero.Fs, root string) *EditorConfigResolver {
	return &EditorConfigResolver{fs: fs, root: root}
}

func (r *EditorConfigResolver) CharsetFor(rel string) (string, error) {
	if !r.loaded {
		r.loaded = true
		f, err := r.fs.Open(filepath.Join(r.root, ".editorconfig"))
		if err != nil {
			return "", nil
		}
		defer f.Close()
		ec, err := editorconfig.Parse(f)
		if err != nil {
			return "", errors.Errorf("parsing .editorconfig: %w", err)
		}
		r.ec = ec
	}
	if r.ec == nil {
		return "", nil
	}
	def, err := r.ec.GetDefinitionForFilename("/" + strings.TrimPrefix(rel, "/"))
	if err != nil {
		return "", errors.Errorf("matching .editorconfig for %s: %w", rel, err)
	}
	return def.Charset, nil
}

// Decode converts raw file content in the named charset to UTF-8. A byte
// order mark, when present, wins over the charset.
func Decode(raw []byte, charset string) (string, error) {
	var dec transform.Transformer
	switch strings.ToLower(charset) {
	case "", CharsetUTF8, CharsetUTF8BOM:
		dec = encoding.Nop.NewDecoder()
	case CharsetLatin1:
		dec = charmap.ISO8859_1.NewDecoder()
	case CharsetUTF16BE:
		dec = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	case CharsetUTF16LE:
		dec = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	default:
		return "", errors.Errorf("%q: %w", charset, ErrUnsupportedCharset)
	}

	out, _, err := transform.Bytes(unicode.BOMOverride(dec), raw)
	if err != nil {
		return "", errors.Errorf("decoding %s: %w", charset, err)
	}
	if !utf8.Valid(out) {
		return "", errors.Errorf("decoding %s: %w", charset, ErrInvalidText)
	}
	return string(out), nil
}

type Workspace struct {
	fs       afero.Fs
	root     string
	cfg      *config.Config
	finder   finder.DocumentFinder
	charsets CharsetResolver
}

type Option func(*Workspace)

func WithConfig(cfg *config.Config) Option {
	return func(w *Workspace) { w.cfg = cfg }
}

func WithCharsetResolver(r CharsetResolver) Option {
	return func(w *Workspace) { w.charsets = r }
}

func WithFinder(f finder.DocumentFinder) Option {
	return func(w *Workspace) { w.finder = f }
}

func New(fs afero.Fs, root string, opts ...Option) *Workspace {
	w := &Workspace{
		fs:   fs,
		root: root,
		cfg:  config.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.finder == nil {
		w.finder = finder.NewDefaultFinder(fs)
	}
	if w.charsets == nil {
		w.charsets = NewEditorConfigResolver(fs, root)
	}
	return w
}

func (w *Workspace) Root() string { return w.root }

func (w *Workspace) Config() *config.Config { return w.cfg }

// Open reads and decodes one document.
func (w *Workspace) Open(ctx context.Context, rel string) (*Document, error) {
	rel = filepath.ToSlash(rel)
	raw, err := afero.ReadFile(w.fs, filepath.Join(w.root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, errors.Errorf("reading %s: %w", rel, err)
	}
	return w.open(ctx, rel, raw)
}

func (w *Workspace) open(ctx context.Context, rel string, raw []byte) (*Document, error) {
	charset, err := w.charsets.CharsetFor(rel)
	if err != nil {
		return nil, err
	}
	text, err := Decode(raw, charset)
	if err != nil {
		return nil, errors.Errorf("opening %s: %w", rel, err)
	}

	d := w.cfg.DialectFor(rel)
	snap := position.NewSnapshot(text)

	zerolog.Ctx(ctx).Debug().
		Str("path", rel).
		Str("dialect", d.Name()).
		Str("charset", charset).
		Int("bytes", len(raw)).
		Msg("opened document")

	return &Document{
		Path:     rel,
		Dialect:  d,
		Snapshot: snap,
		Lexer:    classify.NewLexer(snap, d),
	}, nil
}

// OpenAll opens every included document. Files that cannot be decoded are
// skipped and reported together in the returned error.
func (w *Workspace) OpenAll(ctx context.Context) ([]*Document, error) {
	files, err := w.finder.FindDocuments(ctx, w.root, w.cfg.Include)
	if err != nil {
		return nil, errors.Errorf("scanning %s: %w", w.root, err)
	}

	var (
		docs []*Document
		errs error
	)
	for _, f := range files {
		if !w.cfg.Includes(f.Path) {
			continue
		}
		doc, err := w.open(ctx, f.Path, f.Content)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, errs
}

// Check generates diagnostics for every included document, keyed by path.
func (w *Workspace) Check(ctx context.Context, gen diagnostic.Generator) (map[string]*diagnostic.Diagnostics, error) {
	docs, openErr := w.OpenAll(ctx)

	out := make(map[string]*diagnostic.Diagnostics, len(docs))
	for _, doc := range docs {
		diags, err := gen.Generate(ctx, doc.Snapshot)
		if err != nil {
			return out, multierr.Append(openErr, errors.Errorf("checking %s: %w", doc.Path, err))
		}
		out[doc.Path] = diags
	}
	return out, openErr
}
