//go:build linux

package fadvise

import (
	"os"

	"golang.org/x/sys/unix"
)

// Fadvise is a wrapper around posix_fadvise()
type Fadvise struct{}

// Default returns the platform's Advisor.
func Default() Advisor { return Fadvise{} }

func (Fadvise) Advise(f *os.File, off, length int64, kind Kind) error {
	var advice int
	switch kind {
	case Sequential:
		advice = unix.FADV_SEQUENTIAL
	case WillNeed:
		advice = unix.FADV_WILLNEED
	case DontNeed:
		advice = unix.FADV_DONTNEED
	default:
		return unix.EINVAL
	}
	return unix.Fadvise(int(f.Fd()), off, length, advice)
}
