// Package media wraps ffmpeg for audio format conversion.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Converter converts WAV recordings to compressed formats via the ffmpeg
// binary on PATH.
type Converter struct{}

// NewConverter returns a Converter.
func NewConverter() *Converter { return &Converter{} }

// Detect reports whether ffmpeg is available on PATH.
func Detect() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// Convert transcodes a WAV file to the target format ("mp3" or "opus")
// and returns the output path, which sits next to the input with the
// format's extension.
func (c *Converter) Convert(ctx context.Context, wavPath, format string) (string, error) {
	var codecArgs []string
	switch format {
	case "mp3":
		codecArgs = []string{"-codec:a", "libmp3lame", "-q:a", "3"}
	case "opus":
		codecArgs = []string{"-c:a", "libopus", "-b:a", "24k"}
	default:
		return "", fmt.Errorf("media: unsupported target format %q (supported: mp3, opus)", format)
	}

	if !Detect() {
		return "", fmt.Errorf("media: ffmpeg not found on PATH")
	}

	outPath := strings.TrimSuffix(wavPath, ".wav") + "." + format

	args := append([]string{"-y", "-i", wavPath}, codecArgs...)
	args = append(args, outPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		slog.Error("ffmpeg conversion failed", "format", format, "output", strings.TrimSpace(string(out)))
		return "", fmt.Errorf("media: ffmpeg conversion to %s: %w", format, err)
	}
	return outPath, nil
}
