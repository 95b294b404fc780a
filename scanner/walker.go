package scanner

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sync/atomic"
)

// TargetDirName is the directory name the walker looks for.
const TargetDirName = "node_modules"

// markerFiles stop descent into the directory that contains them.
var markerFiles = map[string]struct{}{
	"package.json":      {},
	"package-lock.json": {},
}

// Walker finds node_modules directories under a root.
//
// A directory named node_modules is yielded and never entered. A directory
// with a node_modules child yields that child and stops there; the child may
// be a symlink to a directory. A directory
// holding package.json or package-lock.json (and no node_modules child) is
// not descended into at all. Everything else is walked recursively.
type Walker struct {
	// OnError is called for every directory that could not be listed. The
	// directory is then treated as empty.
	OnError func(dir string, err error)

	dirs atomic.Int64
}

// Dirs returns the number of directories listed so far.
func (w *Walker) Dirs() int64 {
	return w.dirs.Load()
}

// Walk returns a lazy sequence of discovered node_modules paths, depth-first
// in lexical order. Each call starts an independent walk. The sequence ends
// early if ctx is cancelled.
func (w *Walker) Walk(ctx context.Context, root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		w.walk(ctx, filepath.Clean(root), yield)
	}
}

// walk returns false when the walk must stop entirely.
func (w *Walker) walk(ctx context.Context, dir string, yield func(string) bool) bool {
	if ctx.Err() != nil {
		return false
	}

	if filepath.Base(dir) == TargetDirName {
		return yield(dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if w.OnError != nil {
			w.OnError(dir, err)
		}
		return true
	}
	w.dirs.Add(1)

	for _, e := range entries {
		if e.Name() != TargetDirName {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if isDir(e) || isDirLink(p, e) {
			return yield(p)
		}
	}

	for _, e := range entries {
		if _, ok := markerFiles[e.Name()]; ok && !isDir(e) {
			return true
		}
	}

	for _, e := range entries {
		if !isDir(e) {
			continue
		}
		if !w.walk(ctx, filepath.Join(dir, e.Name()), yield) {
			return false
		}
	}
	return true
}

// isDir reports real directories only. The walker never descends through
// a symlink.
func isDir(e fs.DirEntry) bool {
	return e.Type()&fs.ModeSymlink == 0 && e.IsDir()
}

// isDirLink reports whether e is a symlink resolving to a directory.
func isDirLink(path string, e fs.DirEntry) bool {
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
