// internal/sched/pacer.go

package sched

import (
	"context"
	"sync/atomic"
	"time"
)

// Pacer spaces loop iterations delay apart, measured from the end of the
// previous iteration. An iteration is slow when its own work took longer
// than delay or its deadline had already passed; slow iterations are
// counted, never caught up on.
// Wait and Mark belong to the loop goroutine; the counters are atomic.
type Pacer struct {
	last    time.Time     // end of the previous iteration
	woke    time.Time     // start of the current iteration
	delay   time.Duration // budget of the current iteration
	overran bool

	ticks atomic.Int64
	slow  atomic.Int64
}

// NewPacer creates a pacer whose first deadline is start + delay.
func NewPacer(start time.Time) *Pacer {
	return &Pacer{last: start, woke: start}
}

// Wait sleeps until the previous mark plus delay and reports whether this
// iteration counts as slow. It never sleeps less than the remaining time to
// make up for a slow iteration. A done ctx cuts the sleep short and is
// returned as the error.
func (p *Pacer) Wait(ctx context.Context, delay time.Duration) (late bool, err error) {
	p.ticks.Add(1)
	p.delay = delay

	late = p.overran
	p.overran = false

	wait := time.Until(p.last.Add(delay))
	if wait < 0 {
		late = true
	}
	if late {
		p.slow.Add(1)
	}

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return late, ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return late, err
	}

	p.woke = time.Now()
	return late, nil
}

// Mark records t as the end of the current iteration. The next deadline is
// t plus the next delay.
func (p *Pacer) Mark(t time.Time) {
	p.overran = t.Sub(p.woke) > p.delay
	p.last = t
}

// Ticks counts Wait calls.
func (p *Pacer) Ticks() int64 { return p.ticks.Load() }

// Slow counts slow iterations.
func (p *Pacer) Slow() int64 { return p.slow.Load() }
