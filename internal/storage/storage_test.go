package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveTranscript(t *testing.T) {
	s := NewStore(t.TempDir())

	txt, jsn, err := s.SaveTranscript("rec_20260826_a1b2c3d4", "voxtral", "hello world", []byte(`{"text":"hello world"}`))
	if err != nil {
		t.Fatalf("SaveTranscript() error = %v", err)
	}

	data, err := os.ReadFile(txt)
	if err != nil {
		t.Fatalf("reading transcript: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("transcript = %q", data)
	}
	if !strings.HasSuffix(txt, "rec_20260826_a1b2c3d4_voxtral.txt") {
		t.Errorf("txt path = %q", txt)
	}
	if filepath.Dir(txt) != s.TranscriptsDir() {
		t.Errorf("transcript saved to %q, want %q", filepath.Dir(txt), s.TranscriptsDir())
	}

	raw, err := os.ReadFile(jsn)
	if err != nil {
		t.Fatalf("reading raw json: %v", err)
	}
	// json.Indent puts the value on its own line.
	if !strings.Contains(string(raw), "\n  \"text\"") {
		t.Errorf("raw json not pretty-printed: %q", raw)
	}
}

func TestSaveTranscriptNilRaw(t *testing.T) {
	s := NewStore(t.TempDir())
	txt, jsn, err := s.SaveTranscript("base", "openai", "text", nil)
	if err != nil {
		t.Fatalf("SaveTranscript() error = %v", err)
	}
	if txt == "" || jsn != "" {
		t.Errorf("paths = (%q, %q), want json path empty", txt, jsn)
	}
}

func TestSaveAudioCopies(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.wav")
	if err := os.WriteFile(src, []byte("RIFF audio bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(filepath.Join(dir, "out"))
	dst, err := s.SaveAudio(src, "rec.wav")
	if err != nil {
		t.Fatalf("SaveAudio() error = %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("reading copy: %v", err)
	}
	if string(data) != "RIFF audio bytes" {
		t.Errorf("copied content = %q", data)
	}
	if filepath.Dir(dst) != s.RecordingsDir() {
		t.Errorf("audio saved to %q", filepath.Dir(dst))
	}
}

func TestSaveAudioMissingSource(t *testing.T) {
	s := NewStore(t.TempDir())
	if _, err := s.SaveAudio("/nonexistent/clip.wav", "rec.wav"); err == nil {
		t.Error("expected error for missing source file")
	}
}

func TestDirsCreatedLazily(t *testing.T) {
	base := filepath.Join(t.TempDir(), "out")
	s := NewStore(base)

	if _, err := os.Stat(base); !os.IsNotExist(err) {
		t.Fatalf("base dir should not exist before first save")
	}
	if _, err := s.SaveLog("run.log", "line"); err != nil {
		t.Fatalf("SaveLog() error = %v", err)
	}
	if _, err := os.Stat(s.LogsDir()); err != nil {
		t.Errorf("logs dir missing after save: %v", err)
	}
	if _, err := os.Stat(s.RecordingsDir()); !os.IsNotExist(err) {
		t.Errorf("recordings dir should still not exist")
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"rec_2026.wav", "rec_2026.wav"},
		{"a b/c:d", "a_b_c_d"},
		{"", "out"},
		{"///", "_"},
	}
	for _, tt := range tests {
		if got := sanitize(tt.in); got != tt.want {
			t.Errorf("sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
