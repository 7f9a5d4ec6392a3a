package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// progress renders an in-place bar of processed files. Done may be called
// from several goroutines.
type progress struct {
	w        io.Writer
	total    int
	done     atomic.Int32
	failed   atomic.Int32
	barWidth int
	start    time.Time
	stop     chan struct{}
	stopped  chan struct{}
	mu       sync.Mutex
}

func newProgress(w io.Writer, total int, refresh time.Duration) *progress {
	p := &progress{
		w:        w,
		total:    total,
		barWidth: 30,
		start:    time.Now(),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go p.run(refresh)
	return p
}

// Done records one finished file.
func (p *progress) Done(ok bool) {
	p.done.Add(1)
	if !ok {
		p.failed.Add(1)
	}
}

// Finish stops refreshing and draws the final state on its own line.
func (p *progress) Finish() {
	close(p.stop)
	<-p.stopped
	p.draw()
	fmt.Fprint(p.w, "\n")
}

func (p *progress) run(refresh time.Duration) {
	defer close(p.stopped)
	ticker := time.NewTicker(refresh)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.draw()
		}
	}
}

func (p *progress) draw() {
	p.mu.Lock()
	defer p.mu.Unlock()

	done := int(p.done.Load())
	frac := 1.0
	if p.total > 0 {
		frac = min(float64(done)/float64(p.total), 1)
	}
	filled := int(float64(p.barWidth) * frac)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", p.barWidth-filled)

	fmt.Fprintf(p.w, "\r[%s] %3.0f%%  %d/%d files  %d failed  %s\033[K",
		bar, frac*100, done, p.total, p.failed.Load(), formatDuration(time.Since(p.start)))
}

// formatDuration formats a duration as "45s" or "1m23s".
func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	m := int(d.Minutes())
	return fmt.Sprintf("%dm%02ds", m, int(d.Seconds())-m*60)
}
