package chunk

import (
	"fmt"
	"strings"

	"github.com/voxd/voxpipe/internal/provider"
)

// FormatDiarized renders diarized segments as readable text, grouping
// consecutive segments from the same speaker:
//
//	[00:12 - 00:45] Speaker 0:
//	Hello everyone, welcome to the meeting.
func FormatDiarized(segs []provider.Segment) string {
	if len(segs) == 0 {
		return ""
	}

	type group struct {
		speaker    string
		start, end float64
		texts      []string
	}

	var groups []group
	cur := group{speaker: segs[0].Speaker, start: segs[0].Start}

	for _, seg := range segs {
		if seg.Speaker != cur.speaker && len(cur.texts) > 0 {
			groups = append(groups, cur)
			cur = group{speaker: seg.Speaker, start: seg.Start}
		}
		if len(cur.texts) == 0 {
			cur.start = seg.Start
		}
		cur.speaker = seg.Speaker
		cur.end = seg.End
		if t := strings.TrimSpace(seg.Text); t != "" {
			cur.texts = append(cur.texts, t)
		}
	}
	if len(cur.texts) > 0 {
		groups = append(groups, cur)
	}

	var b strings.Builder
	for i, g := range groups {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if g.speaker != "" {
			fmt.Fprintf(&b, "[%s - %s] %s:\n", formatTimestamp(g.start), formatTimestamp(g.end), displaySpeaker(g.speaker))
		} else {
			fmt.Fprintf(&b, "[%s - %s]\n", formatTimestamp(g.start), formatTimestamp(g.end))
		}
		b.WriteString(strings.Join(g.texts, " "))
	}
	return b.String()
}

// formatTimestamp renders seconds as MM:SS, or HH:MM:SS past one hour.
func formatTimestamp(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// displaySpeaker turns a provider speaker id like "speaker_0" into
// "Speaker 0".
func displaySpeaker(id string) string {
	words := strings.Fields(strings.ReplaceAll(id, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
