package readahead

import (
	"os"

	"github.com/ludios/reapfrog/agent/fadvise"
	"github.com/ludios/reapfrog/config"
	"github.com/pkg/errors"
)

// fileEntry tracks an open file in the lookahead queue.
//
// readPos <= prefetchPos <= length holds after every scheduler pass, and
// toDrop <= readPos always.  prefetchPos only grows.
type fileEntry struct {
	path   string
	f      *os.File
	length int64 // size at open time

	readPos     int64
	prefetchPos int64
	toDrop      int64
}

// watermark is the offset the next WILLNEED extent starts at.  A read may
// briefly move readPos past prefetchPos.
func (e *fileEntry) watermark() int64 {
	return max(e.readPos, e.prefetchPos)
}

// outstanding is the number of prefetched bytes not yet read.
func (e *fileEntry) outstanding() int64 {
	return max(0, e.prefetchPos-e.readPos)
}

// slot is one position of the lookahead queue: either an open file or the
// error that prevented opening it.
type slot struct {
	entry *fileEntry
	err   error
}

// addFile pulls one path from the source and appends a slot for it.  It
// returns false when the source is exhausted or the path could not be opened;
// in the latter case the error is queued in source order.
func (p *Pipeline) addFile() bool {
	if p.srcDone {
		return false
	}

	path, ok := p.src.Next()
	if !ok {
		p.srcDone = true
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		p.openFailed(path, errors.Wrap(err, "unable to open file"))
		return false
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		p.openFailed(path, errors.Wrapf(err, "unable to stat %q", path))
		return false
	}

	e := &fileEntry{
		path:   path,
		f:      f,
		length: fi.Size(),
	}
	p.advise(e, 0, 0, fadvise.Sequential)
	p.open = append(p.open, slot{entry: e})

	p.stats.FilesOpened++
	p.metrics.Increment(config.MetricsFileOpenCount)
	return true
}

func (p *Pipeline) openFailed(path string, err error) {
	p.open = append(p.open, slot{err: err})

	p.stats.OpenErrors++
	p.metrics.Increment(config.MetricsFileOpenErrorCount)
	p.log.Debug().Err(err).Str("path", path).Msg("queued open error")
}
