package readahead

import (
	"io"
	"os"

	"github.com/ludios/reapfrog/agent/fadvise"
	"github.com/ludios/reapfrog/config"
)

// Reader reads the file at the front of a Pipeline.  It is valid until the
// next call to Pipeline.Next or Pipeline.Close.
type Reader struct {
	p   *Pipeline
	e   *fileEntry
	gen uint64
}

var _ io.Reader = (*Reader)(nil)

func (r *Reader) stale() bool {
	return r.p.closed || r.p.gen != r.gen
}

// Path returns the path the file was opened with.
func (r *Reader) Path() string { return r.e.path }

// Size returns the file size captured when the file was opened.
func (r *Reader) Size() int64 { return r.e.length }

// Stat returns the current metadata of the open file.
func (r *Reader) Stat() (os.FileInfo, error) {
	if r.stale() {
		return nil, ErrStaleReader
	}
	return r.e.f.Stat()
}

// Read reads from the file and gives the scheduler a chance to issue more
// readahead.  Errors from the file are returned unchanged.
func (r *Reader) Read(b []byte) (int, error) {
	if r.stale() {
		return 0, ErrStaleReader
	}

	p, e := r.p, r.e
	n, err := e.f.Read(b)
	if n > 0 {
		e.readPos += int64(n)
		p.stats.BytesRead += uint64(n)
		p.metrics.Add(config.MetricsReadBytes, uint64(n))

		if p.dropBehind {
			e.toDrop += int64(n)
			if e.toDrop >= DropBehindBlock {
				p.advise(e, e.readPos-e.toDrop, e.toDrop, fadvise.DontNeed)
				e.toDrop = 0
			}
		}
	}
	if err != nil && err != io.EOF {
		p.stats.ReadErrors++
		p.metrics.Increment(config.MetricsReadErrorCount)
	}

	p.advance()
	return n, err
}
