// Package provider defines the transcription and text-transformation
// service boundary and its concrete implementations.
//
// Supported providers:
//   - openai: Whisper transcription + chat completion transform
//   - voxtral: Voxtral-compatible HTTP endpoint with diarization support
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Segment is one timed span of transcribed speech. Timestamps are seconds
// relative to the audio that was sent; for chunked recordings they are
// remapped to the full recording's timeline during merge.
type Segment struct {
	Speaker string  `json:"speaker,omitempty"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

// Result is a normalized transcription response: the flattened text, the
// timed segments when the provider returns them (in non-decreasing start
// order), and the raw provider payload for optional persistence.
type Result struct {
	Text     string
	Segments []Segment
	Raw      json.RawMessage
}

// Request describes one transcription call.
type Request struct {
	// AudioPath points at the file to upload (wav, mp3 or opus).
	AudioPath string
	// Format is the container format of AudioPath.
	Format string
	// Language is an optional language hint (e.g. "en", "fr").
	Language string
	// ContextBias lists terms likely to occur, passed to the provider
	// as a decoding hint.
	ContextBias []string
	// Diarize requests per-segment speaker attribution where supported.
	Diarize bool
}

// Transcriber converts an audio file into a normalized Result.
type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (*Result, error)
}

// Completer applies a text prompt to transcribed text, returning the
// transformed text.
type Completer interface {
	Complete(ctx context.Context, text, prompt, model string) (string, error)
}

// Provider bundles both capabilities behind one interface; the pipeline
// selects one implementation at construction time.
type Provider interface {
	Transcriber
	Completer
	Name() string
}

// Error represents an expected provider failure (misconfiguration, auth,
// rejected request). Unexpected failures propagate as plain errors.
type Error struct {
	Provider string
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Msg, e.Err)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New selects a provider by name. The set is closed: adding a provider
// means adding a case here.
func New(name, model string) (Provider, error) {
	switch name {
	case "openai", "":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, &Error{Provider: "openai", Msg: "OPENAI_API_KEY is not set"}
		}
		return NewOpenAI(key, model), nil
	case "voxtral":
		key := os.Getenv("VOXTRAL_API_KEY")
		if key == "" {
			return nil, &Error{Provider: "voxtral", Msg: "VOXTRAL_API_KEY is not set"}
		}
		baseURL := os.Getenv("VOXTRAL_BASE_URL")
		return NewVoxtral(key, baseURL, model), nil
	default:
		return nil, fmt.Errorf("provider: unknown provider %q (supported: openai, voxtral)", name)
	}
}
