package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

func TestWriteWAV(t *testing.T) {
	buf := NewBufferFromSamples([]float32{0, 0.5, -0.5, 1.0, -1.0}, 16000)
	path := filepath.Join(t.TempDir(), "out.wav")

	if err := WriteWAV(path, buf); err != nil {
		t.Fatalf("WriteWAV() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening written file: %v", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	decoded, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decoding wav: %v", err)
	}
	if dec.SampleRate != 16000 {
		t.Errorf("sample rate = %d, want 16000", dec.SampleRate)
	}
	if dec.NumChans != 1 {
		t.Errorf("channels = %d, want 1", dec.NumChans)
	}
	if len(decoded.Data) != buf.Len() {
		t.Errorf("decoded %d samples, want %d", len(decoded.Data), buf.Len())
	}
}
