// Package readahead streams a sequence of files to a single consumer while
// keeping the kernel's readahead busy on the files that come next.
//
// A Pipeline opens files ahead of the consumer's read position and spreads a
// global byte budget of WILLNEED hints across them in queue order.  Consumed
// pages can optionally be evicted behind the reader (drop-behind) so that a
// large scan does not push everything else out of the page cache.  All
// scheduling happens synchronously inside Next and Reader.Read; there are no
// background goroutines and a Pipeline must not be used concurrently.
package readahead

import (
	"io"

	"github.com/alecthomas/units"
	"github.com/ludios/reapfrog/agent/fadvise"
	"github.com/ludios/reapfrog/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	// PrefetchBlock is the alignment of every WILLNEED extent.
	PrefetchBlock = int64(64 * units.KiB)

	// DropBehindBlock is how many consumed bytes accumulate before a DONTNEED
	// hint is issued for them.
	DropBehindBlock = int64(512 * units.KiB)

	DefaultBudget  = int64(8 * units.MiB)
	DefaultMaxOpen = 512
)

var (
	// ErrStaleReader is returned by a Reader that has been superseded by a
	// later call to Pipeline.Next.
	ErrStaleReader = errors.New("readahead: reader used after Next")

	// ErrClosed is returned by Next once the Pipeline has been closed.
	ErrClosed = errors.New("readahead: pipeline closed")
)

// PathSource yields the paths to stream, in order.  ok is false once the
// source is exhausted; Next is not called again after that.
type PathSource interface {
	Next() (path string, ok bool)
}

// Metrics receives pipeline counters.  *circonusgometrics.CirconusMetrics
// satisfies it.
type Metrics interface {
	Increment(metric string)
	Add(metric string, val uint64)
}

type nopMetrics struct{}

func (nopMetrics) Increment(string) {}
func (nopMetrics) Add(string, uint64) {}

// Stats is a snapshot of a Pipeline's counters.
type Stats struct {
	FilesOpened   uint64
	OpenErrors    uint64
	FilesRetired  uint64
	BytesRead     uint64
	ReadErrors    uint64
	WillNeedHints uint64
	WillNeedBytes uint64
	DontNeedHints uint64
}

// Pipeline reads the files of a PathSource one after another.
type Pipeline struct {
	src     PathSource
	srcDone bool

	// open is the lookahead queue.  open[0] is the file exposed to the consumer
	// when exposed is set.
	open    []slot
	exposed bool

	budget     int64
	dropBehind bool
	maxOpen    int

	advisor fadvise.Advisor
	log     zerolog.Logger
	metrics Metrics
	stats   Stats

	// gen invalidates Readers handed out by earlier calls to Next.
	gen    uint64
	closed bool
}

type Option func(*Pipeline)

// WithBudget sets the maximum number of prefetched but unread bytes.
func WithBudget(n int64) Option { return func(p *Pipeline) { p.SetBudget(n) } }

// WithDropBehind enables eviction of pages after they have been read.
func WithDropBehind(v bool) Option { return func(p *Pipeline) { p.dropBehind = v } }

func WithAdvisor(a fadvise.Advisor) Option { return func(p *Pipeline) { p.advisor = a } }

func WithLogger(l zerolog.Logger) Option { return func(p *Pipeline) { p.log = l } }

func WithMetrics(m Metrics) Option { return func(p *Pipeline) { p.metrics = m } }

// WithMaxOpen bounds how many queue slots the scheduler may look ahead over.
func WithMaxOpen(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxOpen = n
		}
	}
}

// New returns a Pipeline over src.  No file is opened until the first call to
// Next.
func New(src PathSource, opts ...Option) *Pipeline {
	p := &Pipeline{
		src:     src,
		budget:  DefaultBudget,
		maxOpen: DefaultMaxOpen,
		advisor: fadvise.Default(),
		log:     zerolog.Nop(),
		metrics: nopMetrics{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetDropBehind enables or disables drop-behind for subsequent reads.
func (p *Pipeline) SetDropBehind(v bool) { p.dropBehind = v }

// SetBudget changes the prefetch budget.  Negative values are treated as zero,
// which disables prefetching.
func (p *Pipeline) SetBudget(n int64) {
	if n < 0 {
		n = 0
	}
	p.budget = n
}

func (p *Pipeline) Stats() Stats { return p.stats }

// Next retires the file returned by the previous call and moves on to the
// next one.  It returns a Reader for the next file, the error captured while
// opening it, or io.EOF when the PathSource is exhausted.  An open error is
// reported once, in source order; call Next again to continue past it.
//
// Any Reader returned earlier becomes stale.
func (p *Pipeline) Next() (*Reader, error) {
	if p.closed {
		return nil, ErrClosed
	}
	p.gen++

	if p.exposed {
		p.exposed = false
		if s := p.popFront(); s.entry != nil {
			p.retire(s.entry)
		}
	}

	p.advance()

	if len(p.open) == 0 {
		p.addFile()
	}
	if len(p.open) == 0 {
		return nil, io.EOF
	}

	if err := p.open[0].err; err != nil {
		p.popFront()
		return nil, err
	}

	p.exposed = true
	return &Reader{p: p, e: p.open[0].entry, gen: p.gen}, nil
}

// Close releases every open file.  Outstanding Readers become stale and Next
// returns ErrClosed.
func (p *Pipeline) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.gen++

	var err error
	for _, s := range p.open {
		if s.entry == nil {
			continue
		}
		if cerr := s.entry.f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "unable to close %q", s.entry.path)
		}
	}
	p.open = nil
	p.exposed = false
	return err
}

func (p *Pipeline) popFront() slot {
	s := p.open[0]
	p.open[0] = slot{}
	p.open = p.open[1:]
	return s
}

// retire flushes any pages left behind by drop-behind and closes the file.
func (p *Pipeline) retire(e *fileEntry) {
	if e.toDrop > 0 {
		p.advise(e, 0, 0, fadvise.DontNeed)
		e.toDrop = 0
	}
	if err := e.f.Close(); err != nil {
		p.log.Debug().Err(err).Str("path", e.path).Msg("unable to close file")
	}
	p.stats.FilesRetired++
	p.metrics.Increment(config.MetricsFileRetiredCount)
}

// advise issues a hint and swallows any failure.
func (p *Pipeline) advise(e *fileEntry, off, length int64, kind fadvise.Kind) {
	switch kind {
	case fadvise.WillNeed:
		p.stats.WillNeedHints++
		p.stats.WillNeedBytes += uint64(length)
		p.metrics.Increment(config.MetricsWillNeedCount)
		p.metrics.Add(config.MetricsWillNeedBytes, uint64(length))
	case fadvise.DontNeed:
		p.stats.DontNeedHints++
		p.metrics.Increment(config.MetricsDontNeedCount)
	}

	if err := p.advisor.Advise(e.f, off, length, kind); err != nil {
		p.metrics.Increment(config.MetricsAdviseErrorCount)
		p.log.Debug().Err(err).
			Str("path", e.path).
			Stringer("advice", kind).
			Int64("offset", off).
			Int64("length", length).
			Msg("advice ignored")
	}
}
