package job

import (
	"sync/atomic"
	"time"
)

// FillTimer accumulates how long array fills take. It is written by the
// generating goroutine and read by whoever reports on it.
type FillTimer struct {
	total atomic.Int64
	runs  atomic.Int64
	last  atomic.Int64
}

// Observe records one fill.
func (t *FillTimer) Observe(d time.Duration) {
	t.total.Add(int64(d))
	t.runs.Add(1)
	t.last.Store(int64(d))
}

// Average is the mean fill time, zero before the first fill.
func (t *FillTimer) Average() time.Duration {
	runs := t.runs.Load()
	if runs <= 0 {
		return 0
	}
	return time.Duration(t.total.Load() / runs)
}

// Last is the duration of the most recent fill.
func (t *FillTimer) Last() time.Duration { return time.Duration(t.last.Load()) }

// Runs is the number of observed fills.
func (t *FillTimer) Runs() int64 { return t.runs.Load() }

func (t *FillTimer) String() string {
	return t.Average().String()
}
