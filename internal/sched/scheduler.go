// internal/sched/scheduler.go

package sched

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"neutrons/internal/job"
	"neutrons/internal/monitoring"
	"neutrons/internal/worker"
)

// Sink receives every published pulse. Update must store the timestamp,
// the pulse id and both arrays as one transaction for its readers.
type Sink interface {
	Update(pulseID uint64, protonCharge float64, tof, pixel []uint32) error
}

// ErrNotIdle is returned when configuring or starting a scheduler that
// has already been started.
var ErrNotIdle = errors.New("scheduler already started")

type arrayWorker = worker.Worker[job.Request, []uint32]

var logf = monitoring.Prefixed("sched:")

// partialPublish is implemented by sink errors that still delivered the
// pulse to some of their outputs, such as record.PartialError.
type partialPublish interface {
	error
	Delivered() int
}

// Scheduler paces pulse generation: every delay it fills one time-of-flight
// and one pixel array in parallel and publishes them to the sink.
type Scheduler struct {
	// runtime tunables, read once per iteration without locking; a change
	// takes effect on the next iteration at the latest
	delay       atomic.Int64
	eventCount  atomic.Int64
	randomCount atomic.Bool
	realistic   atomic.Bool
	skipPackets atomic.Uint64

	sink        Sink
	runID       string
	seed        uint64
	logInterval time.Duration

	// StopTimeout bounds each wait in Shutdown; zero means worker.DefaultStopTimeout.
	StopTimeout time.Duration

	// lifecycle
	mu         sync.Mutex // serializes Start and Shutdown
	state      atomic.Int32
	cancel     context.CancelFunc
	loopDone   chan struct{}
	eventsDone chan struct{}

	tofGen   *job.TimeOfFlight
	pixelGen *job.Pixel
	tof      *arrayWorker
	pixel    *arrayWorker
	pacer    atomic.Pointer[Pacer]

	// counters
	pulseID atomic.Uint64
	packets atomic.Int64
	skipped atomic.Int64
	failed  atomic.Int64

	statusCh chan StatusEvent

	// logging-related
	csvFile   *os.File
	csvWriter *csv.Writer
}

// New creates an idle Scheduler publishing into sink.
func New(cfg Config, sink Sink) *Scheduler {
	cfg = cfg.sanitize()

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	s := &Scheduler{
		sink:        sink,
		runID:       runID,
		seed:        seed,
		logInterval: cfg.LogEvery(),
		loopDone:    make(chan struct{}),
		eventsDone:  make(chan struct{}),
		tofGen:      job.NewTimeOfFlight(seed),
		pixelGen:    job.NewPixel(seed + 1),
		statusCh:    make(chan StatusEvent, 256), // buffered channel for status events
	}
	s.delay.Store(int64(cfg.DelayDuration()))
	s.eventCount.Store(int64(cfg.EventCount))
	s.randomCount.Store(cfg.RandomCount)
	s.realistic.Store(cfg.Realistic)
	s.skipPackets.Store(cfg.SkipPackets)
	return s
}

// EnableCSVLogging opens the given file path for CSV logging of events.
// Must be called before Start().
func (s *Scheduler) EnableCSVLogging(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != StateIdle {
		return ErrNotIdle
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open csv log: %w", err)
	}
	w := csv.NewWriter(f)

	// write header
	w.Write([]string{"timestamp", "run_id", "event", "pulse_id", "events", "detail"})
	w.Flush()
	s.csvFile = f
	s.csvWriter = w
	return nil
}

// Start launches both array workers and the pacing loop. The loop also
// stops when ctx is done; Shutdown is still needed to release the workers.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != StateIdle {
		return ErrNotIdle
	}

	s.tof = worker.New("tof_processor", s.tofGen.Generate)
	s.pixel = worker.New("pixel_processor", s.pixelGen.Generate)
	s.tof.StopTimeout = s.StopTimeout
	s.pixel.StopTimeout = s.StopTimeout
	s.tof.Start()
	s.pixel.Start()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.pacer.Store(NewPacer(time.Now()))
	s.state.Store(int32(StateRunning))

	go s.consume()
	go s.loop(runCtx)
	return nil
}

// Run starts the scheduler, blocks until ctx is done and shuts it down.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Shutdown()
	return nil
}

// Shutdown stops the pacing loop and then both workers. Each wait is
// bounded by StopTimeout; a timeout is logged and teardown carries on.
// Safe to call from any goroutine and more than once.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.State() {
	case StateStopping, StateStopped:
		return
	case StateIdle:
		s.state.Store(int32(StateStopped))
		if s.csvFile != nil {
			s.csvFile.Close()
		}
		return
	}

	s.state.Store(int32(StateStopping))
	s.cancel()

	timeout := s.stopTimeout()
	if !waitFor(s.loopDone, timeout) {
		logf("pacing loop did not exit within %s", timeout)
	}
	s.pixel.Shutdown()
	s.tof.Shutdown()
	if !waitFor(s.eventsDone, timeout) {
		logf("event log did not drain within %s", timeout)
	}

	s.state.Store(int32(StateStopped))
}

func (s *Scheduler) stopTimeout() time.Duration {
	if s.StopTimeout > 0 {
		return s.StopTimeout
	}
	return worker.DefaultStopTimeout
}

func waitFor(done <-chan struct{}, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// loop runs the pacing loop until ctx is done.
func (s *Scheduler) loop(ctx context.Context) {
	defer func() {
		close(s.statusCh)
		close(s.loopDone)
	}()

	pacer := s.pacer.Load()
	rng := rand.New(rand.NewPCG(s.seed, s.seed^0x6c6f6f70))

	s.emit(StatusEvent{Kind: StatusStart, Events: -1, Detail: "run " + s.runID})

	nextLog := time.Now().Add(s.logInterval)
	var id uint64
	var slow int64 // since the last report

	for {
		// 1) wait for the next deadline, or check shutdown
		late, err := pacer.Wait(ctx, s.Delay())
		if err != nil {
			break
		}
		if late {
			slow++
		}

		// 2) every iteration consumes exactly one pulse id, published or not
		id++
		s.pulseID.Store(id)

		switch {
		case skipped(id, s.skipPackets.Load()):
			s.skipped.Add(1)
			s.emit(StatusEvent{Kind: StatusSkip, PulseID: id, Events: -1})
		default:
			err := s.publish(ctx, rng, id)
			if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				// interrupted while awaiting the workers
				s.emit(StatusEvent{Kind: StatusStop, PulseID: id, Events: -1, Detail: "interrupted"})
				return
			}
			if err != nil {
				s.failed.Add(1)
				s.emit(StatusEvent{Kind: StatusPublishFailed, PulseID: id, Events: -1, Detail: err.Error()})
			}
		}
		if late {
			s.emit(StatusEvent{Kind: StatusSlow, PulseID: id, Events: -1})
		}

		// 3) the next deadline counts from the end of this iteration
		now := time.Now()
		pacer.Mark(now)

		if now.After(nextLog) {
			nextLog = now.Add(s.logInterval)
			s.emit(StatusEvent{Kind: StatusReport, PulseID: id, Events: -1, Detail: s.report(slow)})
			slow = 0
		}
	}

	s.emit(StatusEvent{Kind: StatusStop, PulseID: id, Events: -1})
}

// publish fills both arrays for pulse id in parallel and hands them to the
// sink. The sink gets exactly one attempt. A pulse that reached at least one
// of the sink's outputs counts as published even when an error is returned.
func (s *Scheduler) publish(ctx context.Context, rng *rand.Rand, id uint64) error {
	req := job.Request{
		Count:     eventCount(rng, s.EventCount(), s.randomCount.Load()),
		PulseID:   id,
		Realistic: s.realistic.Load(),
	}
	s.tof.Submit(req)
	s.pixel.Submit(req)

	charge := ProtonCharge(id)

	tof, tofErr := s.tof.Await(ctx)
	pixel, pixelErr := s.pixel.Await(ctx)
	if err := errors.Join(tofErr, pixelErr); err != nil {
		return fmt.Errorf("pulse %d: collect arrays: %w", id, err)
	}

	err := s.sink.Update(id, charge, tof, pixel)
	if err != nil {
		var partial partialPublish
		if !errors.As(err, &partial) || partial.Delivered() == 0 {
			return fmt.Errorf("pulse %d: publish: %w", id, err)
		}
	}
	s.packets.Add(1)
	s.emit(StatusEvent{Kind: StatusPublish, PulseID: id, Events: len(tof)})
	if err != nil {
		return fmt.Errorf("pulse %d: publish: %w", id, err)
	}
	return nil
}

func (s *Scheduler) report(slow int64) string {
	return fmt.Sprintf("%d packets, %d times slow, array values set in %s (tof %s)",
		s.packets.Load(), slow, s.pixelGen.Timer.String(), s.tofGen.Timer.String())
}

func (s *Scheduler) emit(ev StatusEvent) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	s.statusCh <- ev
}

// consume drains the status stream until the loop closes it.
func (s *Scheduler) consume() {
	defer close(s.eventsDone)

	for ev := range s.statusCh {
		s.handleEvent(ev)
	}

	if s.csvFile != nil {
		s.csvWriter.Flush()
		s.csvFile.Close()
	}
}

func (s *Scheduler) handleEvent(ev StatusEvent) {
	// CSV output
	if s.csvWriter != nil {
		rec := []string{
			ev.Time.Format(time.RFC3339Nano),
			s.runID,
			ev.Kind.String(),
			strconv.FormatUint(ev.PulseID, 10),
			strconv.Itoa(ev.Events),
			ev.Detail,
		}
		s.csvWriter.Write(rec)
		s.csvWriter.Flush()
	}

	// per-pulse events are far too frequent for the console
	switch ev.Kind {
	case StatusPublish, StatusSkip, StatusSlow:
		return
	}

	// an auxiliary function to center the event kind in the output
	center := func(str string, width int) string {
		spaces := max((width-len(str))/2, 0)
		return strings.Repeat(" ", spaces) + str + strings.Repeat(" ", max(width-(spaces+len(str)), 0))
	}

	monitoring.Logf("%s [%s] => Pulse: %07d %s",
		ev.Time.Format("Jan 02 15:04:05.000"),
		center(ev.Kind.String(), 15),
		ev.PulseID,
		ev.Detail,
	)
}

// Stats is a point-in-time view of the scheduler.
type Stats struct {
	RunID       string
	State       State
	PulseID     uint64 // last attempted pulse
	Packets     int64  // pulses published
	Skipped     int64
	Failed      int64 // pulses rejected by the sink or one of its outputs
	Iterations  int64 // pacing loop wake-ups, skipped pulses included
	Slow        int64 // iterations that started late
	Delay       time.Duration
	EventCount  int
	RandomCount bool
	Realistic   bool
	SkipPackets uint64
	TOFFill     time.Duration // average array fill times
	PixelFill   time.Duration
}

// Stats returns a snapshot of the counters and tunables.
func (s *Scheduler) Stats() Stats {
	st := Stats{
		RunID:       s.runID,
		State:       s.State(),
		PulseID:     s.pulseID.Load(),
		Packets:     s.packets.Load(),
		Skipped:     s.skipped.Load(),
		Failed:      s.failed.Load(),
		Delay:       s.Delay(),
		EventCount:  s.EventCount(),
		RandomCount: s.randomCount.Load(),
		Realistic:   s.realistic.Load(),
		SkipPackets: s.skipPackets.Load(),
		TOFFill:     s.tofGen.Timer.Average(),
		PixelFill:   s.pixelGen.Timer.Average(),
	}
	if p := s.pacer.Load(); p != nil {
		st.Iterations = p.Ticks()
		st.Slow = p.Slow()
	}
	return st
}

// RunID identifies this scheduler instance in logs and journals.
func (s *Scheduler) RunID() string { return s.runID }

// State returns the lifecycle state.
func (s *Scheduler) State() State { return State(s.state.Load()) }

// Delay returns the target period between pulses.
func (s *Scheduler) Delay() time.Duration { return time.Duration(s.delay.Load()) }

// EventCount returns the nominal number of events per pulse.
func (s *Scheduler) EventCount() int { return int(s.eventCount.Load()) }

// SetDelay changes the period between pulses.
func (s *Scheduler) SetDelay(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("delay must be >= 0, got %s", d)
	}
	s.delay.Store(int64(d))
	return nil
}

// SetEventCount changes the nominal number of events per pulse.
func (s *Scheduler) SetEventCount(n int) error {
	if n < 0 {
		return fmt.Errorf("event count must be >= 0, got %d", n)
	}
	s.eventCount.Store(int64(n))
	return nil
}

// SetRandomCount toggles random event counts.
func (s *Scheduler) SetRandomCount(on bool) { s.randomCount.Store(on) }

// SetRealistic toggles distribution-shaped event values.
func (s *Scheduler) SetRealistic(on bool) { s.realistic.Store(on) }

// SetSkipPackets drops every nth pulse; 0 disables dropping.
func (s *Scheduler) SetSkipPackets(n uint64) { s.skipPackets.Store(n) }
