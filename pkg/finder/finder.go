package finder

import (
	"context"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// DefaultPatterns match every markup document the engine understands.
var DefaultPatterns = []string{"**/*.xml", "**/*.xaml"}

// DocumentFinder is responsible for finding markup documents in a directory
type DocumentFinder interface {
	// FindDocuments finds all files under dir matching any of the glob patterns
	FindDocuments(ctx context.Context, dir string, patterns []string) ([]FileInfo, error)
}

// FileInfo represents information about a found document
type FileInfo struct {
	// Path is relative to the searched directory, slash separated.
	Path     string
	Content  []byte
	FileType string
}

// DefaultFinder is the default implementation of DocumentFinder
type DefaultFinder struct {
	fs afero.Fs
}

// NewDefaultFinder creates a finder over fs; a nil fs means the OS filesystem.
func NewDefaultFinder(fs afero.Fs) *DefaultFinder {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &DefaultFinder{fs: fs}
}

// FindDocuments implements DocumentFinder. Results are sorted and each file
// appears once even when several patterns match it.
func (f *DefaultFinder) FindDocuments(ctx context.Context, dir string, patterns []string) ([]FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Errorf("finding documents: %w", err)
	}

	ok, err := afero.DirExists(f.fs, dir)
	if err != nil {
		return nil, errors.Errorf("checking %s: %w", dir, err)
	}
	if !ok {
		return nil, errors.Errorf("directory %s does not exist", dir)
	}

	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	rooted := afero.NewIOFS(afero.NewBasePathFs(f.fs, dir))

	var matches []string
	for _, pattern := range patterns {
		found, err := doublestar.Glob(rooted, strings.TrimPrefix(pattern, "/"), doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Errorf("globbing %q: %w", pattern, err)
		}
		matches = append(matches, found...)
	}
	slices.Sort(matches)
	matches = slices.Compact(matches)

	files := make([]FileInfo, 0, len(matches))
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return nil, errors.Errorf("finding documents: %w", err)
		}
		content, err := afero.ReadFile(f.fs, filepath.Join(dir, filepath.FromSlash(m)))
		if err != nil {
			return nil, errors.Errorf("reading %s: %w", m, err)
		}
		files = append(files, FileInfo{
			Path:     m,
			Content:  content,
			FileType: strings.TrimPrefix(strings.ToLower(path.Ext(m)), "."),
		})
	}

	return files, nil
}
