package chunk

import (
	"fmt"
	"sort"
	"strings"

	"github.com/voxd/voxpipe/internal/provider"
)

// MergeSegments stitches per-chunk transcription segments into one
// time-ordered list spanning the whole recording.
//
// Each chunk's segment timestamps are first shifted by the chunk's start
// offset. For every pair of adjacent chunks the overlap window is then
// split at its midpoint: segments from the earlier chunk are kept only
// while they start before the midpoint, segments from the later chunk
// only from the midpoint onward. Segments are never split mid-span; the
// decision rides on each segment's start time. Speaker ids are not
// reconciled across chunks — each chunk's diarization is only locally
// consistent.
func MergeSegments(chunks []Chunk, results [][]provider.Segment) ([]provider.Segment, error) {
	if len(chunks) != len(results) {
		return nil, fmt.Errorf("chunk: %d chunks but %d result sets", len(chunks), len(results))
	}
	if len(chunks) == 0 {
		return nil, nil
	}
	if len(chunks) == 1 {
		return shiftSegments(chunks[0], results[0]), nil
	}

	var merged []provider.Segment
	for i, segs := range results {
		adjusted := shiftSegments(chunks[i], segs)

		lower := 0.0
		if i > 0 {
			lower = overlapMidpoint(chunks[i-1], chunks[i])
		}
		upper := chunks[i].End.Seconds() + 1
		if i < len(chunks)-1 {
			upper = overlapMidpoint(chunks[i], chunks[i+1])
		}

		for _, seg := range adjusted {
			if seg.Start >= lower && seg.Start < upper {
				merged = append(merged, seg)
			}
		}
	}

	sort.SliceStable(merged, func(a, b int) bool { return merged[a].Start < merged[b].Start })
	return merged, nil
}

// overlapMidpoint returns the midpoint of the overlap window between two
// adjacent chunks, on the recording's timeline.
func overlapMidpoint(earlier, later Chunk) float64 {
	return earlier.End.Seconds() - (earlier.End.Seconds()-later.Start.Seconds())/2
}

// shiftSegments remaps a chunk's local timestamps onto the recording's
// timeline by adding the chunk's start offset.
func shiftSegments(c Chunk, segs []provider.Segment) []provider.Segment {
	offset := c.Start.Seconds()
	if offset == 0 {
		return segs
	}
	out := make([]provider.Segment, len(segs))
	for i, s := range segs {
		s.Start += offset
		s.End += offset
		out[i] = s
	}
	return out
}

// MergeTexts concatenates per-chunk transcription texts with a blank-line
// separator. Fallback path when the provider returns no segment timing;
// boundary duplication is left for the prompt transform to clean up.
func MergeTexts(texts []string) string {
	var parts []string
	for _, t := range texts {
		if s := strings.TrimSpace(t); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// JoinSegmentTexts renders merged segments as plain text in order.
func JoinSegmentTexts(segs []provider.Segment) string {
	var parts []string
	for _, s := range segs {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
