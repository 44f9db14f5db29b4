package audio

import (
	"math"
	"time"
)

// Buffer accumulates mono float32 PCM samples in the [-1.0, 1.0] range.
// It has exactly one writer (the active capture callback) while recording;
// once capture stops it is treated as read-only. Callers that write from
// a callback must serialize access themselves (see Recorder, DualRecorder).
type Buffer struct {
	samples    []float32
	sampleRate int
}

// NewBuffer creates an empty buffer for the given sample rate.
func NewBuffer(sampleRate int) *Buffer {
	return &Buffer{sampleRate: sampleRate}
}

// NewBufferFromSamples wraps an existing sample slice. Used by tests and
// by the mixer when handing off a finished recording.
func NewBufferFromSamples(samples []float32, sampleRate int) *Buffer {
	return &Buffer{samples: samples, sampleRate: sampleRate}
}

// Append adds samples to the end of the buffer.
func (b *Buffer) Append(samples []float32) {
	b.samples = append(b.samples, samples...)
}

// Samples returns the underlying sample slice. The slice must not be
// mutated after capture has stopped.
func (b *Buffer) Samples() []float32 { return b.samples }

// Len returns the number of samples in the buffer.
func (b *Buffer) Len() int { return len(b.samples) }

// SampleRate returns the buffer's sample rate in Hz.
func (b *Buffer) SampleRate() int { return b.sampleRate }

// Duration returns the buffer length as wall-clock time.
func (b *Buffer) Duration() time.Duration {
	if b.sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(b.samples)) / float64(b.sampleRate) * float64(time.Second))
}

// FrameIndex converts a time offset into a sample index, clipped to the
// buffer bounds.
func (b *Buffer) FrameIndex(at time.Duration) int {
	idx := int(at.Seconds() * float64(b.sampleRate))
	if idx < 0 {
		return 0
	}
	if idx > len(b.samples) {
		return len(b.samples)
	}
	return idx
}

// Slice returns a read-only view of the samples between two time offsets.
func (b *Buffer) Slice(from, to time.Duration) []float32 {
	return b.samples[b.FrameIndex(from):b.FrameIndex(to)]
}

// Int16Samples quantizes the float32 samples to signed 16-bit values,
// clamping anything outside [-1.0, 1.0]. Output format for WAV encoding.
func (b *Buffer) Int16Samples() []int {
	out := make([]int, len(b.samples))
	for i, s := range b.samples {
		out[i] = QuantizeInt16(s)
	}
	return out
}

// QuantizeInt16 converts one float32 sample to a clamped int16 value.
func QuantizeInt16(s float32) int {
	v := int(math.Round(float64(s) * 32767))
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return v
}
