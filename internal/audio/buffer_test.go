package audio

import (
	"math"
	"testing"
	"time"
)

func TestBufferDuration(t *testing.T) {
	buf := NewBuffer(16000)
	buf.Append(make([]float32, 16000*2)) // 2 seconds

	if got := buf.Duration(); got != 2*time.Second {
		t.Errorf("Duration() = %v, want 2s", got)
	}
	if buf.Len() != 32000 {
		t.Errorf("Len() = %d, want 32000", buf.Len())
	}
}

func TestBufferDurationEmpty(t *testing.T) {
	buf := NewBuffer(16000)
	if got := buf.Duration(); got != 0 {
		t.Errorf("Duration() of empty buffer = %v, want 0", got)
	}
}

func TestBufferSlice(t *testing.T) {
	samples := make([]float32, 1000) // 10s at 100 Hz
	for i := range samples {
		samples[i] = float32(i)
	}
	buf := NewBufferFromSamples(samples, 100)

	got := buf.Slice(2*time.Second, 4*time.Second)
	if len(got) != 200 {
		t.Fatalf("Slice(2s, 4s) length = %d, want 200", len(got))
	}
	if got[0] != 200 {
		t.Errorf("Slice(2s, 4s)[0] = %f, want 200", got[0])
	}
}

func TestBufferSliceClipped(t *testing.T) {
	buf := NewBufferFromSamples(make([]float32, 100), 100)

	got := buf.Slice(0, 5*time.Second)
	if len(got) != 100 {
		t.Errorf("Slice past end length = %d, want 100", len(got))
	}
}

func TestQuantizeInt16(t *testing.T) {
	tests := []struct {
		in   float32
		want int
	}{
		{0, 0},
		{1.0, math.MaxInt16},
		{-1.0, -32767},
		{2.0, math.MaxInt16},  // clamp high
		{-2.0, math.MinInt16}, // clamp low
		{0.5, 16384},
	}
	for _, tt := range tests {
		if got := QuantizeInt16(tt.in); got != tt.want {
			t.Errorf("QuantizeInt16(%f) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestInt16SamplesNeverExceedsRange(t *testing.T) {
	buf := NewBufferFromSamples([]float32{-3, -1, -0.5, 0, 0.5, 1, 3}, 16000)
	for i, v := range buf.Int16Samples() {
		if v > math.MaxInt16 || v < math.MinInt16 {
			t.Errorf("sample %d = %d outside int16 range", i, v)
		}
	}
}
