// Package worker runs CPU-bound work on a dedicated goroutine behind a
// one-request, one-result handshake.
//
// A Worker is driven by a single owner:
//
//	w.Submit(req)           // hand over the request
//	res, err := w.Await(ctx) // collect exactly one result
//
// Submitting again before the previous result was awaited, or awaiting
// without a submitted request, is a programming error and panics.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"neutrons/internal/monitoring"
)

// DefaultStopTimeout bounds how long Shutdown waits for the goroutine to exit.
const DefaultStopTimeout = 5 * time.Second

// ErrStopped is returned by Await when the worker exited before producing
// the pending result.
var ErrStopped = errors.New("worker stopped")

// Worker executes work(req) for every submitted request on its own goroutine.
type Worker[Req, Res any] struct {
	name string
	work func(Req) Res
	logf func(format string, v ...any)

	// both channels hold at most one value, so a signal sent before the
	// other side starts waiting is kept rather than lost
	requests chan Req
	results  chan Res

	pending atomic.Bool
	started atomic.Bool
	busy    atomic.Bool

	quit     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once

	// StopTimeout bounds Shutdown; zero means DefaultStopTimeout.
	StopTimeout time.Duration
}

// New creates a stopped worker. Call Start before submitting.
func New[Req, Res any](name string, work func(Req) Res) *Worker[Req, Res] {
	return &Worker[Req, Res]{
		name:     name,
		work:     work,
		logf:     monitoring.Prefixed("worker " + name + ":"),
		requests: make(chan Req, 1),
		results:  make(chan Res, 1),
		quit:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
}

// Name returns the label given to New.
func (w *Worker[Req, Res]) Name() string { return w.name }

// Start launches the worker goroutine. Calling it more than once is a no-op.
func (w *Worker[Req, Res]) Start() {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run()
}

func (w *Worker[Req, Res]) run() {
	defer close(w.exited)
	for {
		select {
		case <-w.quit:
			return
		case req := <-w.requests:
			w.busy.Store(true)
			res := w.work(req)
			w.busy.Store(false)
			// never blocks: only one request can be in flight
			w.results <- res
		}
	}
}

// Submit hands req to the worker and returns immediately.
// It panics if the previous request has not been awaited yet.
func (w *Worker[Req, Res]) Submit(req Req) {
	if !w.pending.CompareAndSwap(false, true) {
		panic(fmt.Sprintf("worker %s: submit while a request is still pending", w.name))
	}
	w.requests <- req
}

// Await blocks until the pending request's result is ready. It returns early
// with ctx.Err() when ctx is done, or ErrStopped when the worker exited.
// It panics if nothing was submitted.
func (w *Worker[Req, Res]) Await(ctx context.Context) (Res, error) {
	var zero Res
	if !w.pending.Load() {
		panic(fmt.Sprintf("worker %s: await without a submitted request", w.name))
	}
	select {
	case res := <-w.results:
		w.pending.Store(false)
		return res, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-w.exited:
		// the result may have landed right before the goroutine returned
		select {
		case res := <-w.results:
			w.pending.Store(false)
			return res, nil
		default:
			return zero, ErrStopped
		}
	}
}

// Pending reports whether a submitted request has not been awaited yet.
func (w *Worker[Req, Res]) Pending() bool { return w.pending.Load() }

// Busy reports whether the worker goroutine is currently executing work.
func (w *Worker[Req, Res]) Busy() bool { return w.busy.Load() }

// Done is closed once the worker goroutine has exited.
func (w *Worker[Req, Res]) Done() <-chan struct{} { return w.exited }

// Shutdown asks the goroutine to exit once its current unit of work is done
// and waits for it, at most StopTimeout. It reports whether the goroutine
// exited in time. Safe to call several times and from any goroutine.
func (w *Worker[Req, Res]) Shutdown() bool {
	w.stopOnce.Do(func() { close(w.quit) })
	if !w.started.Load() {
		return true
	}

	timeout := w.StopTimeout
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-w.exited:
		return true
	case <-timer.C:
		w.logf("did not exit within %s", timeout)
		return false
	}
}
