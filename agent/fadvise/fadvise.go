// Package fadvise isolates the posix_fadvise(2) page-cache hints behind a
// narrow interface.  All advice is best-effort: callers are expected to ignore
// the returned error, and platforms without kernel support get a no-op.
package fadvise

import (
	"fmt"
	"os"
)

// Kind is the access pattern being advised.
type Kind uint

const (
	// Sequential widens the kernel's readahead window for the whole file.
	Sequential Kind = iota
	// WillNeed starts asynchronous readahead of a byte range.
	WillNeed
	// DontNeed allows the kernel to evict a byte range from the page cache.
	DontNeed
)

func (k Kind) String() string {
	switch k {
	case Sequential:
		return "sequential"
	case WillNeed:
		return "willneed"
	case DontNeed:
		return "dontneed"
	default:
		panic(fmt.Sprintf("unknown advice kind: %d", k))
	}
}

// Advisor issues page-cache hints against an open file.  An offset and length
// of zero denote the whole file.
type Advisor interface {
	Advise(f *os.File, off, length int64, kind Kind) error
}

// Nop discards all advice.
type Nop struct{}

func (Nop) Advise(*os.File, int64, int64, Kind) error { return nil }
