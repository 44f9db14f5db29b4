package audio

import (
	"math"
	"sync"
)

// Source identifies which capture stream a level sample came from.
type Source int

const (
	// SourceMic is the microphone input.
	SourceMic Source = iota
	// SourceLoopback is the system loopback input.
	SourceLoopback
)

// LevelMonitor accumulates per-source peak RMS values pushed from capture
// callbacks. It never opens audio streams itself: callers push sample blocks
// at whatever rate the device delivers them, and a display loop reads the
// accumulated peaks at its own cadence via GetAndResetPeaks.
type LevelMonitor struct {
	mu          sync.Mutex
	hasLoopback bool
	micPeak     float64
	loopPeak    float64
}

// NewLevelMonitor creates a monitor. withLoopback controls whether the
// loopback accumulator is active; when false, GetAndResetPeaks reports
// -1 for the loopback source.
func NewLevelMonitor(withLoopback bool) *LevelMonitor {
	return &LevelMonitor{hasLoopback: withLoopback}
}

// Push computes the RMS of a sample block and folds it into the running
// per-source maximum. Safe to call from a capture callback; never blocks
// on anything but the internal mutex.
func (m *LevelMonitor) Push(src Source, samples []float32) {
	if len(samples) == 0 {
		return
	}
	rms := BlockRMS(samples)

	m.mu.Lock()
	switch src {
	case SourceMic:
		if rms > m.micPeak {
			m.micPeak = rms
		}
	case SourceLoopback:
		if rms > m.loopPeak {
			m.loopPeak = rms
		}
	}
	m.mu.Unlock()
}

// GetAndResetPeaks returns the peak RMS per source accumulated since the
// previous call and atomically resets both accumulators to zero.
// The loopback value is -1 when no loopback source is configured.
func (m *LevelMonitor) GetAndResetPeaks() (mic, loopback float64) {
	m.mu.Lock()
	mic = m.micPeak
	if m.hasLoopback {
		loopback = m.loopPeak
	} else {
		loopback = -1
	}
	m.micPeak = 0
	m.loopPeak = 0
	m.mu.Unlock()
	return mic, loopback
}

// BlockRMS returns the root mean square of a sample block.
func BlockRMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
