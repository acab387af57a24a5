package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"plugind/internal/common/fsutil"
	"plugind/internal/plugin"
)

// FileScheme is the Mux scheme conventionally bound to an FS source.
const FileScheme = "file"

// Loader turns one file into a plugin.
type Loader interface {
	// Pattern is a doublestar pattern matched against the file's base name.
	Pattern() string
	Load(ctx context.Context, path string, host plugin.Host) (plugin.Plugin, error)
}

// FS discovers plugins by scanning directories. Files of a directory are
// handled before its sub-directories; both are visited in lexical order.
// Entries whose name starts with "." are ignored.
type FS struct {
	loaders []Loader
}

// NewFS returns a filesystem source. The first loader whose pattern matches a
// file wins.
func NewFS(loaders ...Loader) (*FS, error) {
	for _, l := range loaders {
		if !doublestar.ValidatePattern(l.Pattern()) {
			return nil, fmt.Errorf("invalid loader pattern %q", l.Pattern())
		}
	}
	return &FS{loaders: loaders}, nil
}

func (s *FS) Discover(ctx context.Context, roots []string, w *Walk) {
	for _, root := range roots {
		dir, err := fsutil.Resolve(root)
		if err != nil {
			w.Fail(root, err)
			continue
		}
		s.walkDir(ctx, dir, w)
	}
}

func (s *FS) walkDir(ctx context.Context, dir string, w *Walk) {
	if ctx.Err() != nil {
		return
	}
	real, err := fsutil.RealPath(dir)
	if err != nil {
		w.Fail(dir, err)
		return
	}
	if !w.Visit(real) {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.Fail(dir, fmt.Errorf("read dir: %w", err))
		return
	}
	var subdirs []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		p := filepath.Join(dir, name)
		if isDir(e, p) {
			subdirs = append(subdirs, p)
			continue
		}
		l := s.loaderFor(name)
		if l == nil {
			continue
		}
		pl, err := l.Load(ctx, p, w.Host())
		if err != nil {
			w.Fail(p, err)
			continue
		}
		w.Yield(p, pl)
	}
	for _, sub := range subdirs {
		s.walkDir(ctx, sub, w)
	}
}

func (s *FS) loaderFor(name string) Loader {
	for _, l := range s.loaders {
		if ok, _ := doublestar.Match(l.Pattern(), name); ok {
			return l
		}
	}
	return nil
}

// isDir follows symlinks so linked plugin directories are traversed; the
// walk's seen set stops link cycles.
func isDir(e os.DirEntry, p string) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&os.ModeSymlink == 0 {
		return false
	}
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}
