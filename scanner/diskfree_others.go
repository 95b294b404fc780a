//go:build !linux && !darwin && !windows

package scanner

import "errors"

func FreeSpace(string) (uint64, error) {
	return 0, errors.ErrUnsupported
}
