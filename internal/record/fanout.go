package record

import (
	"errors"
	"fmt"
)

// Sink is anything that accepts published pulses.
type Sink interface {
	Update(pulseID uint64, protonCharge float64, tof, pixel []uint32) error
}

// Fanout publishes every pulse to each sink in order. Each sink gets one
// attempt per pulse; a failing sink does not stop the others.
type Fanout []Sink

// PartialError is returned by Fanout.Update when some sinks rejected the
// pulse. Accepted may be zero.
type PartialError struct {
	Accepted int
	Failed   int
	Err      error // the joined sink errors
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%d of %d sinks failed: %v", e.Failed, e.Accepted+e.Failed, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// Delivered is the number of sinks that stored the pulse.
func (e *PartialError) Delivered() int { return e.Accepted }

// Update forwards the pulse and reports the failing sinks as a *PartialError.
func (f Fanout) Update(pulseID uint64, protonCharge float64, tof, pixel []uint32) error {
	var errs []error
	for _, s := range f {
		if err := s.Update(pulseID, protonCharge, tof, pixel); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &PartialError{
		Accepted: len(f) - len(errs),
		Failed:   len(errs),
		Err:      errors.Join(errs...),
	}
}
