// Package pathsrc provides forward-only sources of file paths for
// readahead.Pipeline.
package pathsrc

import (
	"bufio"
	"io"
	"strings"
)

// SliceSource yields a fixed list of paths.
type SliceSource struct {
	paths []string
}

func Slice(paths ...string) *SliceSource {
	return &SliceSource{paths: paths}
}

func (s *SliceSource) Next() (string, bool) {
	if len(s.paths) == 0 {
		return "", false
	}
	p := s.paths[0]
	s.paths = s.paths[1:]
	return p, true
}

// LineSource yields one path per line of an io.Reader, skipping blank lines.
type LineSource struct {
	sc  *bufio.Scanner
	err error
}

func Lines(r io.Reader) *LineSource {
	return &LineSource{sc: bufio.NewScanner(r)}
}

func (s *LineSource) Next() (string, bool) {
	if s.sc == nil {
		return "", false
	}
	for s.sc.Scan() {
		line := strings.TrimRight(s.sc.Text(), "\r")
		if line == "" {
			continue
		}
		return line, true
	}
	s.err = s.sc.Err()
	s.sc = nil
	return "", false
}

// Err returns the error that ended the scan, if any.
func (s *LineSource) Err() error { return s.err }
