package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Progress reports how many files of a batch have been extracted.
type Progress struct {
	writer       io.Writer
	total        int
	done         int
	failed       int
	every        int
	lastReported int
	startTime    time.Time
	started      bool
	mu           sync.Mutex
}

// NewProgress creates a progress reporter for total files that writes a
// status line every `every` files.
func NewProgress(writer io.Writer, total, every int) *Progress {
	if every < 1 {
		every = 1
	}
	return &Progress{
		writer: writer,
		total:  total,
		every:  every,
	}
}

// Start resets the counters and the clock.
func (p *Progress) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.done = 0
	p.failed = 0
	p.lastReported = 0
}

// Advance records one finished file. A non-nil err counts it as failed.
func (p *Progress) Advance(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.done >= p.total {
		return
	}

	p.done++
	if err != nil {
		p.failed++
	}

	if p.done-p.lastReported >= p.every {
		p.report()
		p.lastReported = p.done
	}
}

// Finish prints the final status line.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.report()
	fmt.Fprintln(p.writer)
}

// Failed returns the number of files recorded as failed.
func (p *Progress) Failed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed
}

// Elapsed returns the time since Start was called.
func (p *Progress) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.startTime)
}

// report must be called with the lock held.
func (p *Progress) report() {
	rate := float64(p.done) / time.Since(p.startTime).Seconds()

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.done) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rExtracted: %d/%d (%.1f%%) - %d failed - %.1f files/s",
		p.done, p.total, percentage, p.failed, rate)
}
