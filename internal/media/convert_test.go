package media

import (
	"context"
	"strings"
	"testing"
)

func TestConvertRejectsUnknownFormat(t *testing.T) {
	c := NewConverter()
	_, err := c.Convert(context.Background(), "/tmp/in.wav", "flac")
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "flac") {
		t.Errorf("error %q should name the rejected format", err)
	}
}

func TestConvertOutputPath(t *testing.T) {
	// The output path is derived before ffmpeg runs; verify the extension
	// swap via the error-free part of the contract only when ffmpeg exists.
	if !Detect() {
		t.Skip("ffmpeg not on PATH")
	}
	c := NewConverter()
	// A missing input still exercises the path derivation and surfaces a
	// conversion error rather than a format error.
	_, err := c.Convert(context.Background(), "/nonexistent/in.wav", "mp3")
	if err == nil {
		t.Fatal("expected error for missing input file")
	}
	if !strings.Contains(err.Error(), "mp3") {
		t.Errorf("error %q should name the target format", err)
	}
}
