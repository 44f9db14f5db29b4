// Package chunk slices long recordings into overlapping windows and
// stitches the per-window transcription results back into one transcript.
package chunk

import (
	"fmt"
	"time"

	"github.com/voxd/voxpipe/internal/audio"
)

// Chunk is a read-only view into a finished recording, bounded by start
// and end offsets on the recording's timeline. Consecutive chunks overlap
// by the configured overlap duration; the final chunk may be shorter than
// a full window but never shorter than the overlap.
type Chunk struct {
	Index   int
	Start   time.Duration
	End     time.Duration
	Samples []float32
}

// Duration returns the chunk's length.
func (c Chunk) Duration() time.Duration { return c.End - c.Start }

// Split slices a buffer into overlapping chunks of chunkDuration with the
// given overlap between neighbors. A buffer no longer than chunkDuration
// yields a single chunk spanning the whole buffer. When the remainder past
// the last full window would be shorter than the overlap, it is folded
// into the previous chunk instead of emitted as a separate short tail, so
// overlap-based dedup stays possible for every chunk pair.
//
// The returned slice is fully materialized: downstream transcription calls
// need a stable index for ordering and retry.
func Split(buf *audio.Buffer, chunkDuration, overlap time.Duration) ([]Chunk, error) {
	if chunkDuration <= 0 {
		return nil, fmt.Errorf("chunk: chunk duration must be > 0, got %v", chunkDuration)
	}
	if overlap < 0 || overlap >= chunkDuration {
		return nil, fmt.Errorf("chunk: overlap %v must be >= 0 and < chunk duration %v", overlap, chunkDuration)
	}

	total := buf.Duration()
	if total <= chunkDuration {
		return []Chunk{{
			Index:   0,
			Start:   0,
			End:     total,
			Samples: buf.Samples(),
		}}, nil
	}

	step := chunkDuration - overlap
	var chunks []Chunk

	for start := time.Duration(0); start < total; start += step {
		end := start + chunkDuration
		if end >= total {
			end = total
			if end-start < overlap && len(chunks) > 0 {
				// Short tail: extend the previous chunk to the end of
				// the recording instead of emitting it.
				prev := &chunks[len(chunks)-1]
				prev.End = total
				prev.Samples = buf.Slice(prev.Start, total)
				break
			}
			chunks = append(chunks, Chunk{
				Index:   len(chunks),
				Start:   start,
				End:     end,
				Samples: buf.Slice(start, end),
			})
			break
		}
		chunks = append(chunks, Chunk{
			Index:   len(chunks),
			Start:   start,
			End:     end,
			Samples: buf.Slice(start, end),
		})
	}

	return chunks, nil
}
