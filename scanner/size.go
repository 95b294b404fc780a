package scanner

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"
)

// DevIno identifies a file across hard links.
type DevIno struct {
	Dev uint64
	Ino uint64
}

// Measurement is the outcome of measuring one directory.
type Measurement struct {
	// Apparent size of all regular files, hard links counted once.
	Size uint64
	// Regular files counted.
	Files int64
	// Entries that could not be read and contributed zero bytes.
	Unreadable int64
	// Modification time of the measured directory itself.
	ModTime time.Time
}

// Partial reports whether some entries could not be read.
func (m Measurement) Partial() bool {
	return m.Unreadable > 0
}

// Measure sums the apparent size of every regular file under path. It is
// safe to call concurrently on any paths.
//
// A symlinked path is resolved once; links below it are not followed.
// Entries that fail to stat or list count as zero and are tallied in
// Unreadable. Only a failure on path itself, or cancellation, is returned as
// an error.
func Measure(ctx context.Context, path string) (Measurement, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return Measurement{}, err
	}
	root := path
	if info.Mode()&fs.ModeSymlink != 0 {
		if root, err = filepath.EvalSymlinks(path); err != nil {
			return Measurement{}, err
		}
		if info, err = os.Stat(root); err != nil {
			return Measurement{}, err
		}
	}
	if !info.IsDir() {
		return Measurement{}, fmt.Errorf("%s: %w", path, ErrNotDirectory)
	}
	if err := ctx.Err(); err != nil {
		return Measurement{}, err
	}

	// The directory itself must be listable; only its children may fail.
	d, err := os.Open(root)
	if err != nil {
		return Measurement{}, err
	}
	if _, err := d.ReadDir(1); err != nil && err != io.EOF {
		d.Close()
		return Measurement{}, err
	}
	d.Close()

	var (
		size       atomic.Uint64
		files      atomic.Int64
		unreadable atomic.Int64
		mu         sync.Mutex
		seen       = make(map[DevIno]struct{})
	)

	walkFn := func(p string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			if p == root {
				return err
			}
			unreadable.Add(1)
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			unreadable.Add(1)
			return nil
		}

		if key, ok := hardLinkKey(fi); ok {
			mu.Lock()
			_, dup := seen[key]
			seen[key] = struct{}{}
			mu.Unlock()
			if dup {
				return nil
			}
		}

		files.Add(1)
		size.Add(uint64(fi.Size()))
		return nil
	}

	conf := fastwalk.Config{Follow: false}
	if err := fastwalk.Walk(&conf, root, walkFn); err != nil {
		return Measurement{}, err
	}

	return Measurement{
		Size:       size.Load(),
		Files:      files.Load(),
		Unreadable: unreadable.Load(),
		ModTime:    info.ModTime(),
	}, nil
}
