//go:build !unix && !windows

package scanner

import "io/fs"

func hardLinkKey(fs.FileInfo) (DevIno, bool) {
	return DevIno{}, false
}
