package chunk

import (
	"testing"
	"time"

	"github.com/voxd/voxpipe/internal/audio"
)

// testBuffer builds a buffer of the given duration at 100 Hz, cheap
// enough for long synthetic recordings.
func testBuffer(d time.Duration) *audio.Buffer {
	return audio.NewBufferFromSamples(make([]float32, int(d.Seconds()*100)), 100)
}

func TestSplitShortRecordingSingleChunk(t *testing.T) {
	buf := testBuffer(120 * time.Second)

	chunks, err := Split(buf, 300*time.Second, 30*time.Second)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	c := chunks[0]
	if c.Index != 0 || c.Start != 0 || c.End != 120*time.Second {
		t.Errorf("chunk = {%d %v %v}, want {0 0s 2m0s}", c.Index, c.Start, c.End)
	}
	if len(c.Samples) != buf.Len() {
		t.Errorf("chunk has %d samples, want whole buffer (%d)", len(c.Samples), buf.Len())
	}
}

func TestSplitExactFitSingleChunk(t *testing.T) {
	buf := testBuffer(300 * time.Second)

	chunks, err := Split(buf, 300*time.Second, 30*time.Second)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Errorf("got %d chunks, want 1", len(chunks))
	}
}

func TestSplitLongRecording(t *testing.T) {
	// 400s with 300s windows and 30s overlap: two chunks, 0-300 and
	// 270-400.
	buf := testBuffer(400 * time.Second)

	chunks, err := Split(buf, 300*time.Second, 30*time.Second)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].Start != 0 || chunks[0].End != 300*time.Second {
		t.Errorf("chunk 0 = %v-%v, want 0s-5m0s", chunks[0].Start, chunks[0].End)
	}
	if chunks[1].Start != 270*time.Second || chunks[1].End != 400*time.Second {
		t.Errorf("chunk 1 = %v-%v, want 4m30s-6m40s", chunks[1].Start, chunks[1].End)
	}
}

func TestSplitOverlapAndCoverage(t *testing.T) {
	buf := testBuffer(1000 * time.Second)
	dur, ov := 300*time.Second, 30*time.Second

	chunks, err := Split(buf, dur, ov)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	if chunks[0].Start != 0 {
		t.Errorf("first chunk starts at %v, want 0", chunks[0].Start)
	}
	if last := chunks[len(chunks)-1]; last.End != buf.Duration() {
		t.Errorf("last chunk ends at %v, want %v", last.End, buf.Duration())
	}
	for i := 1; i < len(chunks); i++ {
		if got := chunks[i-1].End - chunks[i].Start; got != ov {
			t.Errorf("overlap between chunk %d and %d = %v, want %v", i-1, i, got, ov)
		}
		if chunks[i].Index != i {
			t.Errorf("chunk %d has index %d", i, chunks[i].Index)
		}
	}
}

func TestSplitLastChunkNeverShorterThanOverlap(t *testing.T) {
	// The tail is clipped to the buffer end but must stay at least as
	// long as the overlap so boundary dedup remains possible.
	for _, total := range []time.Duration{
		301 * time.Second,
		310 * time.Second,
		571 * time.Second,
		840 * time.Second,
		3601 * time.Second,
	} {
		chunks, err := Split(testBuffer(total), 300*time.Second, 30*time.Second)
		if err != nil {
			t.Fatalf("Split(%v) error = %v", total, err)
		}
		last := chunks[len(chunks)-1]
		if last.Duration() < 30*time.Second {
			t.Errorf("total %v: last chunk %v shorter than overlap", total, last.Duration())
		}
		if last.End != total {
			t.Errorf("total %v: last chunk ends at %v", total, last.End)
		}
	}
}

func TestSplitInvalidArguments(t *testing.T) {
	buf := testBuffer(10 * time.Second)

	if _, err := Split(buf, 0, 0); err == nil {
		t.Error("Split() with zero duration should error")
	}
	if _, err := Split(buf, 10*time.Second, 10*time.Second); err == nil {
		t.Error("Split() with overlap == duration should error")
	}
	if _, err := Split(buf, 10*time.Second, -time.Second); err == nil {
		t.Error("Split() with negative overlap should error")
	}
}
