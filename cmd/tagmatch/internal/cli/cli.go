// Package cli holds the pieces shared by the tagmatch subcommands.
package cli

import (
	"context"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tagmatch/pkg/config"
	"github.com/walteh/tagmatch/pkg/debug"
	"github.com/walteh/tagmatch/pkg/position"
	"github.com/walteh/tagmatch/pkg/workspace"
)

var ErrBadLocation = errors.Base("bad location")

// OpenDocument loads path through a workspace rooted at its directory. The
// config file in that directory, if any, picks the dialect.
func OpenDocument(ctx context.Context, fs afero.Fs, path string) (*workspace.Document, *config.Config, error) {
	dir, name := filepath.Split(filepath.Clean(path))
	if dir == "" {
		dir = "."
	}

	cfg, file, err := config.Find(fs, dir)
	if err != nil {
		return nil, nil, errors.Errorf("loading config: %w", err)
	}
	if file != "" {
		zerolog.Ctx(ctx).Debug().Str("file", file).Msg("using config")
	}

	doc, err := workspace.New(fs, dir, workspace.WithConfig(cfg)).Open(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return doc, cfg, nil
}

// ParseLocation accepts a byte offset ("42") or a one-based "line:column"
// pair where the column counts grapheme clusters.
func ParseLocation(snap *position.Snapshot, loc string) (int, error) {
	lineStr, colStr, pair := strings.Cut(strings.TrimSpace(loc), ":")
	if !pair {
		offset, err := strconv.Atoi(lineStr)
		if err != nil || offset < 0 || offset > snap.Length() {
			return 0, errors.Errorf("%q: want an offset in [0,%d]: %w", loc, snap.Length(), ErrBadLocation)
		}
		return offset, nil
	}

	line, err := strconv.Atoi(lineStr)
	if err != nil || line < 1 || line > snap.LineCount() {
		return 0, errors.Errorf("%q: line must be in [1,%d]: %w", loc, snap.LineCount(), ErrBadLocation)
	}
	col, err := strconv.Atoi(colStr)
	if err != nil || col < 1 {
		return 0, errors.Errorf("%q: column must be positive: %w", loc, ErrBadLocation)
	}
	return snap.OffsetOf(line-1, col-1), nil
}

// Place renders offset as a one-based "line:column".
func Place(snap *position.Snapshot, offset int) string {
	p := snap.Place(offset)
	return strconv.Itoa(p.Line+1) + ":" + strconv.Itoa(p.Character+1)
}

// NewLogger builds the stderr logger used by every subcommand.
func NewLogger(w io.Writer, level string, pretty bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), errors.Errorf("parsing log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return debug.NewLogger(w, debug.Options{
		Level:  lvl,
		Pretty: pretty,
		Color:  pretty,
		Caller: lvl <= zerolog.DebugLevel,
	}), nil
}
