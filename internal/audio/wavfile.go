package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV encodes a buffer as a 16-bit mono PCM WAV file at path.
func WriteWAV(path string, buf *Buffer) error {
	return WriteWAVSamples(path, buf.Samples(), buf.SampleRate())
}

// WriteWAVSamples encodes float32 samples as a 16-bit mono PCM WAV file,
// quantizing and clamping each sample.
func WriteWAVSamples(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audio: creating wav file: %w", err)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = QuantizeInt16(s)
	}

	ibuf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(ibuf); err != nil {
		enc.Close()
		f.Close()
		return fmt.Errorf("audio: writing wav data: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("audio: finalizing wav file: %w", err)
	}
	return f.Close()
}
