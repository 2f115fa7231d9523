// internal/sched/schedulerEvent.go

package sched

import (
	"time"
)

// StatusKind represents the type of pipeline event
type StatusKind int

const (
	StatusStart StatusKind = iota
	StatusPublish
	StatusSkip
	StatusSlow
	StatusPublishFailed
	StatusReport
	StatusStop
)

// StatusEvent is emitted for every pulse and on lifecycle changes
type StatusEvent struct {
	Time    time.Time
	Kind    StatusKind
	PulseID uint64
	Events  int // events in the pulse, -1 when not applicable
	Detail  string
}

func (sk StatusKind) String() string {
	switch sk {
	case StatusStart:
		return "Start"
	case StatusPublish:
		return "Publish"
	case StatusSkip:
		return "Skip"
	case StatusSlow:
		return "Slow"
	case StatusPublishFailed:
		return "PublishFailed"
	case StatusReport:
		return "Report"
	case StatusStop:
		return "Stop"
	default:
		return "Unknown"
	}
}

// State is the lifecycle state of a Scheduler.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// MarshalText renders the state by name, e.g. in JSON status pages.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
