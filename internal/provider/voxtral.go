package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultVoxtralBaseURL = "https://api.mistral.ai"

// Voxtral implements Provider against a Voxtral-compatible HTTP API.
// Unlike Whisper, the transcription endpoint supports diarization and
// returns speaker ids on segments.
type Voxtral struct {
	apiKey  string
	baseURL string
	model   string
	hc      *http.Client
}

// NewVoxtral creates a Voxtral provider. baseURL and model fall back to
// the hosted endpoint and its default transcription model when empty.
func NewVoxtral(apiKey, baseURL, model string) *Voxtral {
	if baseURL == "" {
		baseURL = defaultVoxtralBaseURL
	}
	if model == "" {
		model = "voxtral-mini-latest"
	}
	return &Voxtral{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		hc:      &http.Client{Timeout: 10 * time.Minute},
	}
}

// Name returns the provider identifier.
func (p *Voxtral) Name() string { return "voxtral" }

type voxtralSegment struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Text      string  `json:"text"`
	SpeakerID string  `json:"speaker_id"`
}

type voxtralResponse struct {
	Text     string           `json:"text"`
	Segments []voxtralSegment `json:"segments"`
}

// Transcribe uploads the audio as multipart form data to the
// transcription endpoint.
func (p *Voxtral) Transcribe(ctx context.Context, req Request) (*Result, error) {
	f, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, &Error{Provider: "voxtral", Msg: "opening audio file", Err: err}
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fields := map[string]string{
		"model":                     p.model,
		"timestamp_granularities[]": "segment",
	}
	if req.Language != "" {
		fields["language"] = req.Language
	}
	if req.Diarize {
		fields["diarize"] = "true"
	}
	if len(req.ContextBias) > 0 {
		fields["prompt"] = strings.Join(req.ContextBias, ", ")
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("provider voxtral: writing form field %s: %w", k, err)
		}
	}

	fw, err := mw.CreateFormFile("file", filepath.Base(req.AudioPath))
	if err != nil {
		return nil, fmt.Errorf("provider voxtral: creating form file: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, fmt.Errorf("provider voxtral: copying audio data: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("provider voxtral: finalizing form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return nil, fmt.Errorf("provider voxtral: building request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	raw, err := p.do(httpReq)
	if err != nil {
		return nil, err
	}

	var vr voxtralResponse
	if err := json.Unmarshal(raw, &vr); err != nil {
		return nil, &Error{Provider: "voxtral", Msg: "decoding transcription response", Err: err}
	}

	segments := make([]Segment, 0, len(vr.Segments))
	for _, s := range vr.Segments {
		segments = append(segments, Segment{
			Speaker: s.SpeakerID,
			Start:   s.Start,
			End:     s.End,
			Text:    strings.TrimSpace(s.Text),
		})
	}

	return &Result{
		Text:     strings.TrimSpace(vr.Text),
		Segments: segments,
		Raw:      raw,
	}, nil
}

type voxtralChatRequest struct {
	Model    string               `json:"model"`
	Messages []voxtralChatMessage `json:"messages"`
}

type voxtralChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type voxtralChatResponse struct {
	Choices []struct {
		Message voxtralChatMessage `json:"message"`
	} `json:"choices"`
}

// Complete applies prompt to text via the chat completions endpoint.
func (p *Voxtral) Complete(ctx context.Context, text, prompt, model string) (string, error) {
	if model == "" {
		model = "mistral-small-latest"
	}

	payload, err := json.Marshal(voxtralChatRequest{
		Model: model,
		Messages: []voxtralChatMessage{
			{Role: "system", Content: prompt},
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("provider voxtral: encoding chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("provider voxtral: building request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	raw, err := p.do(httpReq)
	if err != nil {
		return "", err
	}

	var cr voxtralChatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", &Error{Provider: "voxtral", Msg: "decoding chat response", Err: err}
	}
	if len(cr.Choices) == 0 {
		return "", &Error{Provider: "voxtral", Msg: "chat completion returned no choices"}
	}
	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}

// do executes the request and returns the response body, turning non-2xx
// statuses into provider errors carrying the body text.
func (p *Voxtral) do(req *http.Request) ([]byte, error) {
	resp, err := p.hc.Do(req)
	if err != nil {
		return nil, &Error{Provider: "voxtral", Msg: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Provider: "voxtral", Msg: "reading response body", Err: err}
	}
	if resp.StatusCode >= 300 {
		return nil, &Error{
			Provider: "voxtral",
			Msg:      fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}
	return body, nil
}
