//go:build unix

package scanner

import (
	"io/fs"
	"syscall"
)

// hardLinkKey returns the (dev, inode) pair for files with more than one link.
func hardLinkKey(fi fs.FileInfo) (DevIno, bool) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok || st.Nlink <= 1 {
		return DevIno{}, false
	}
	return DevIno{Dev: uint64(st.Dev), Ino: uint64(st.Ino)}, true
}
