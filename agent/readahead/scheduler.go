package readahead

import "github.com/ludios/reapfrog/agent/fadvise"

// advance tops up the readahead windows of the queued files.  It never
// blocks on I/O other than opening files further down the source and never
// fails.
func (p *Pipeline) advance() {
	var outstanding int64
	for _, s := range p.open {
		if s.entry != nil {
			outstanding += s.entry.outstanding()
		}
	}

	// Alignment lets outstanding overshoot the budget by up to a block.
	remaining := max(0, p.budget-outstanding)

	// Hysteresis: once the pipeline has been filled, wait until the consumer
	// has drained it to about half before issuing more hints.
	if remaining < outstanding {
		return
	}

	for i := 0; ; i++ {
		if remaining < PrefetchBlock || i >= p.maxOpen {
			return
		}

		if i == len(p.open) && !p.addFile() {
			return
		}

		e := p.open[i].entry
		if e == nil {
			continue
		}

		watermark := e.watermark()
		if watermark >= e.length {
			continue
		}

		budget := remaining &^ (PrefetchBlock - 1)
		extent := min(e.length-watermark, budget)

		// Round the end up so extents stay block aligned.
		end := (watermark + extent + PrefetchBlock - 1) &^ (PrefetchBlock - 1)
		end = min(end, e.length)
		extent = end - watermark

		p.advise(e, watermark, extent, fadvise.WillNeed)
		e.prefetchPos = end
		remaining = max(0, remaining-extent)
	}
}
