package provider

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI implements Provider on the OpenAI API: Whisper for transcription
// and chat completions for the text transform. Whisper does not diarize,
// so segments carry no speaker ids.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an OpenAI provider. model overrides the default
// transcription model (whisper-1) when non-empty.
func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAI{client: openai.NewClient(apiKey), model: model}
}

// Name returns the provider identifier.
func (p *OpenAI) Name() string { return "openai" }

// Transcribe uploads the audio file and requests verbose JSON so the
// response carries per-segment timestamps.
func (p *OpenAI) Transcribe(ctx context.Context, req Request) (*Result, error) {
	if req.Diarize {
		slog.Debug("openai provider does not support diarization, segments will be unlabeled")
	}

	areq := openai.AudioRequest{
		Model:    p.model,
		FilePath: req.AudioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: req.Language,
		Prompt:   strings.Join(req.ContextBias, ", "),
	}

	resp, err := p.client.CreateTranscription(ctx, areq)
	if err != nil {
		return nil, &Error{Provider: "openai", Msg: "transcription request failed", Err: err}
	}

	segments := make([]Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, Segment{
			Start: s.Start,
			End:   s.End,
			Text:  strings.TrimSpace(s.Text),
		})
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		raw = nil
	}

	return &Result{
		Text:     strings.TrimSpace(resp.Text),
		Segments: segments,
		Raw:      raw,
	}, nil
}

// Complete applies prompt to text via a chat completion.
func (p *OpenAI) Complete(ctx context.Context, text, prompt, model string) (string, error) {
	if model == "" {
		model = openai.GPT4oMini
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", &Error{Provider: "openai", Msg: "chat completion failed", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Provider: "openai", Msg: "chat completion returned no choices"}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
