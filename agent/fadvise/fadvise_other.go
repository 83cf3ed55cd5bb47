//go:build !linux

package fadvise

// Default returns the platform's Advisor.  posix_fadvise(2) is not available
// here, so advice is dropped.
func Default() Advisor { return Nop{} }
