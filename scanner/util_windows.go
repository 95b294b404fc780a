//go:build windows

package scanner

import (
	"io/fs"

	"golang.org/x/sys/windows"
)

// NTFS hard links are rare in node_modules; every file is counted.
func hardLinkKey(fs.FileInfo) (DevIno, bool) {
	return DevIno{}, false
}

// FreeSpace returns the bytes available to the caller on the volume
// holding path.
func FreeSpace(path string) (uint64, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	var avail, total, free uint64
	if err := windows.GetDiskFreeSpaceEx(p, &avail, &total, &free); err != nil {
		return 0, err
	}
	return avail, nil
}
