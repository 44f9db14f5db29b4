package pipeline

import "fmt"

// State identifies where a pipeline run currently is. Transitions are
// published on the pipeline's event channel so presentation layers can
// render progress at their own cadence.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateConverting
	StateChunking
	StateTranscribing
	StateMerging
	StateTransforming
	StatePersisting
	StateCleaned
	StateFailed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateConverting:
		return "converting"
	case StateChunking:
		return "chunking"
	case StateTranscribing:
		return "transcribing"
	case StateMerging:
		return "merging"
	case StateTransforming:
		return "transforming"
	case StatePersisting:
		return "persisting"
	case StateCleaned:
		return "cleaned"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event is one state transition with an optional human-readable message.
type Event struct {
	State   State
	Message string
}

// StageError reports which stage a run failed in and, for per-chunk
// failures, which chunk index.
type StageError struct {
	Stage State
	Chunk int // -1 when not chunk-specific
	Err   error
}

func (e *StageError) Error() string {
	if e.Chunk >= 0 {
		return fmt.Sprintf("pipeline: %s failed on chunk %d: %v", e.Stage, e.Chunk, e.Err)
	}
	return fmt.Sprintf("pipeline: %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
