package processor

import "time"

// State is a step of a single pipeline invocation.
type State int

const (
	StateIdle State = iota
	StateDecoding
	StateDecoded
	StateResizing
	StateEncoding
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDecoding:
		return "decoding"
	case StateDecoded:
		return "decoded"
	case StateResizing:
		return "resizing"
	case StateEncoding:
		return "encoding"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Transition describes one state change. Preset is zero outside the
// per-preset states. Err is set when To is StateFailed, and when a preset
// of CreateThumbnailsEach fails and the run falls back to StateDecoded.
// Elapsed is the time spent in From.
type Transition struct {
	From    State
	To      State
	Preset  Preset
	Err     error
	Elapsed time.Duration
}

// Observer receives transitions synchronously, in order, on the goroutine
// running the pipeline.
type Observer interface {
	OnTransition(t Transition)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(t Transition)

func (f ObserverFunc) OnTransition(t Transition) { f(t) }
