// Package record holds the published neutron record: the latest pulse as
// one consistent value, plus a window of recent pulse ids.
package record

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrClosed is returned by Update after Close.
var ErrClosed = errors.New("record closed")

// Pulse is one published update. The arrays are shared with the publisher
// and must not be modified.
type Pulse struct {
	Timestamp    time.Time
	SeqTag       uint64 // sequence tag stamped with the pulse id
	PulseID      uint64
	ProtonCharge float64
	TimeOfFlight []uint32
	Pixel        []uint32
}

// Record is an in-memory Sink. Every Update replaces all fields of the
// current pulse under one lock, so Snapshot never mixes two pulses.
type Record struct {
	name string
	now  func() time.Time

	mu      sync.RWMutex
	pulse   Pulse
	updates uint64
	history *History
	closed  bool
}

// New creates an empty record that remembers the last history pulse ids.
func New(name string, history int) *Record {
	return &Record{
		name:    name,
		now:     time.Now,
		history: NewHistory(history),
	}
}

// Name is the channel name the record is published under.
func (r *Record) Name() string { return r.name }

// Update publishes one pulse. tof and pixel must have the same length.
func (r *Record) Update(pulseID uint64, protonCharge float64, tof, pixel []uint32) error {
	if len(tof) != len(pixel) {
		return fmt.Errorf("record %s: pulse %d has %d time-of-flight and %d pixel events",
			r.name, pulseID, len(tof), len(pixel))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("record %s: %w", r.name, ErrClosed)
	}

	ts := r.now()
	r.pulse = Pulse{
		Timestamp:    ts,
		SeqTag:       pulseID,
		PulseID:      pulseID,
		ProtonCharge: protonCharge,
		TimeOfFlight: tof,
		Pixel:        pixel,
	}
	r.updates++
	r.history.Add(pulseID, ts)
	return nil
}

// Snapshot returns the latest pulse. ok is false before the first Update.
func (r *Record) Snapshot() (p Pulse, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pulse, r.updates > 0
}

// Updates counts successful Update calls.
func (r *Record) Updates() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.updates
}

// Gaps lists pulse ids missing from the recent window.
func (r *Record) Gaps() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.history.Gaps()
}

// Duplicates counts pulse ids that were published more than once.
func (r *Record) Duplicates() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.history.Duplicates()
}

// Window returns the lowest and highest pulse id in the recent window.
func (r *Record) Window() (first, last uint64, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.history.Bounds()
}

// Close rejects further updates; the last pulse stays readable.
func (r *Record) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}
