package provider

import (
	"errors"
	"strings"
	"testing"
)

func TestNewUnknownProvider(t *testing.T) {
	if _, err := New("whisperx", ""); err == nil {
		t.Error("expected error for unknown provider name")
	}
}

func TestNewMissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("VOXTRAL_API_KEY", "")

	for _, name := range []string{"openai", "voxtral"} {
		_, err := New(name, "")
		var perr *Error
		if !errors.As(err, &perr) {
			t.Fatalf("New(%q) error = %v, want *provider.Error", name, err)
		}
		if perr.Provider != name {
			t.Errorf("error names provider %q, want %q", perr.Provider, name)
		}
		if !strings.Contains(perr.Msg, "API_KEY") {
			t.Errorf("error message %q should name the missing variable", perr.Msg)
		}
	}
}

func TestNewDefaultsToOpenAI(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	p, err := New("", "whisper-1")
	if err != nil {
		t.Fatalf("New(\"\") error = %v", err)
	}
	if p.Name() != "openai" {
		t.Errorf("default provider = %q, want openai", p.Name())
	}
}

func TestErrorFormatting(t *testing.T) {
	wrapped := errors.New("connection refused")
	e := &Error{Provider: "voxtral", Msg: "request failed", Err: wrapped}
	if got := e.Error(); got != "provider voxtral: request failed: connection refused" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(e, wrapped) {
		t.Error("Unwrap should expose the underlying error")
	}

	bare := &Error{Provider: "openai", Msg: "OPENAI_API_KEY is not set"}
	if got := bare.Error(); got != "provider openai: OPENAI_API_KEY is not set" {
		t.Errorf("Error() = %q", got)
	}
}
