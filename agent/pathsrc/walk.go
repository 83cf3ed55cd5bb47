package pathsrc

import (
	"os"
	"path/filepath"

	"github.com/bluele/gcache"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// WalkSource yields the regular files below a set of roots, depth first and in
// lexical order within each directory.  Directories are read only when the
// walk reaches them, so an arbitrarily large tree costs memory proportional
// to its depth and widest directory.
//
// Symbolic links are followed for roots only.  A path that cannot be
// stat'ed is still yielded so that the consumer reports the failure in order.
type WalkSource struct {
	stack [][]walkItem
	seen  gcache.Cache
	log   zerolog.Logger
	err   error
}

type walkItem struct {
	path string
	root bool
}

type WalkOption func(*WalkSource)

// WithDedupLinks skips files whose device and inode were already yielded.
// Only files with more than one link are tracked, in an LRU of size entries.
func WithDedupLinks(size int) WalkOption {
	return func(w *WalkSource) {
		if size > 0 {
			w.seen = gcache.New(size).LRU().Build()
		}
	}
}

func WithWalkLogger(l zerolog.Logger) WalkOption {
	return func(w *WalkSource) { w.log = l }
}

func Walk(roots []string, opts ...WalkOption) *WalkSource {
	items := make([]walkItem, 0, len(roots))
	for _, r := range roots {
		items = append(items, walkItem{path: r, root: true})
	}

	w := &WalkSource{
		stack: [][]walkItem{items},
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *WalkSource) Next() (string, bool) {
	for len(w.stack) > 0 {
		top := len(w.stack) - 1
		if len(w.stack[top]) == 0 {
			w.stack = w.stack[:top]
			continue
		}
		item := w.stack[top][0]
		w.stack[top] = w.stack[top][1:]

		var fi os.FileInfo
		var err error
		if item.root {
			fi, err = os.Stat(item.path)
		} else {
			fi, err = os.Lstat(item.path)
		}
		if err != nil {
			return item.path, true
		}

		switch {
		case fi.IsDir():
			w.push(item.path)
		case fi.Mode().IsRegular():
			if w.duplicate(fi) {
				w.log.Debug().Str("path", item.path).Msg("skipping hard link")
				continue
			}
			return item.path, true
		}
	}
	return "", false
}

func (w *WalkSource) push(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		err = errors.Wrapf(err, "unable to read directory %q", dir)
		w.log.Warn().Err(err).Msg("skipping directory")
		if w.err == nil {
			w.err = err
		}
	}
	if len(entries) == 0 {
		return
	}

	items := make([]walkItem, 0, len(entries))
	for _, ent := range entries {
		items = append(items, walkItem{path: filepath.Join(dir, ent.Name())})
	}
	w.stack = append(w.stack, items)
}

func (w *WalkSource) duplicate(fi os.FileInfo) bool {
	if w.seen == nil {
		return false
	}
	id, ok := fileID(fi)
	if !ok {
		return false
	}
	if _, err := w.seen.Get(id); err == nil {
		return true
	}
	w.seen.Set(id, struct{}{})
	return false
}

// Err returns the first directory read error encountered by the walk.
func (w *WalkSource) Err() error { return w.err }
