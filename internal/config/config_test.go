package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() should validate, got %v", err)
	}
	if cfg.Provider != "openai" {
		t.Errorf("Provider = %q, want openai", cfg.Provider)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.Channels != 1 {
		t.Errorf("audio defaults = %d Hz / %d ch", cfg.Audio.SampleRate, cfg.Audio.Channels)
	}
	if cfg.Chunking.DurationSeconds != 300 || cfg.Chunking.OverlapSeconds != 30 {
		t.Errorf("chunking defaults = %d/%d", cfg.Chunking.DurationSeconds, cfg.Chunking.OverlapSeconds)
	}
	if !cfg.Copy {
		t.Error("Copy should default to true")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
provider: voxtral
model: voxtral-mini-latest
diarize: true
format: opus
context_bias: [Kubernetes, gRPC]
audio:
  sample_rate: 48000
  loopback_device: "BlackHole"
  loopback_gain: 0.5
chunking:
  duration_seconds: 600
  overlap_seconds: 45
keep:
  transcript: true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider != "voxtral" || !cfg.Diarize || cfg.Format != "opus" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.LoopbackDevice != "BlackHole" || cfg.Audio.LoopbackGain != 0.5 {
		t.Errorf("loopback config = %q / %v", cfg.Audio.LoopbackDevice, cfg.Audio.LoopbackGain)
	}
	if cfg.Chunking.DurationSeconds != 600 || cfg.Chunking.OverlapSeconds != 45 {
		t.Errorf("chunking = %d/%d", cfg.Chunking.DurationSeconds, cfg.Chunking.OverlapSeconds)
	}
	if !cfg.Keep.Transcript || cfg.Keep.Audio {
		t.Errorf("keep = %+v", cfg.Keep)
	}
	// Unset fields keep their defaults.
	if cfg.Audio.Channels != 1 || cfg.Audio.MicGain != 1.0 {
		t.Errorf("unset audio fields lost defaults: %+v", cfg.Audio)
	}
	if len(cfg.ContextBias) != 2 {
		t.Errorf("ContextBias = %v", cfg.ContextBias)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should validate, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Provider = "whisperx" }},
		{"unknown format", func(c *Config) { c.Format = "flac" }},
		{"zero sample rate", func(c *Config) { c.Audio.SampleRate = 0 }},
		{"stereo capture", func(c *Config) { c.Audio.Channels = 2 }},
		{"negative gain", func(c *Config) { c.Audio.MicGain = -0.1 }},
		{"zero chunk duration", func(c *Config) { c.Chunking.DurationSeconds = 0 }},
		{"overlap >= duration", func(c *Config) { c.Chunking.OverlapSeconds = 300 }},
		{"negative overlap", func(c *Config) { c.Chunking.OverlapSeconds = -1 }},
		{"empty hotkey", func(c *Config) { c.Hotkey.Keys = nil }},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() should reject %s", tt.name)
			}
		})
	}
}

func TestResolvePromptPriority(t *testing.T) {
	dir := t.TempDir()

	flagFile := filepath.Join(dir, "flag-prompt.txt")
	if err := os.WriteFile(flagFile, []byte("from flag file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgFile := filepath.Join(dir, "cfg-prompt.txt")
	if err := os.WriteFile(cfgFile, []byte("from config file"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	cfg.Prompt.Text = "from config text"
	cfg.Prompt.File = cfgFile

	if got := cfg.ResolvePrompt("inline wins", flagFile); got != "inline wins" {
		t.Errorf("inline text should win, got %q", got)
	}
	if got := cfg.ResolvePrompt("", flagFile); got != "from flag file" {
		t.Errorf("flag file should win over config, got %q", got)
	}
	if got := cfg.ResolvePrompt("", ""); got != "from config text" {
		t.Errorf("config text should win over config file, got %q", got)
	}

	cfg.Prompt.Text = ""
	if got := cfg.ResolvePrompt("", ""); got != "from config file" {
		t.Errorf("config file is the last source, got %q", got)
	}

	cfg.Prompt.File = ""
	if got := cfg.ResolvePrompt("", ""); got != "" {
		t.Errorf("no sources should yield empty, got %q", got)
	}
}

func TestResolvePromptUnreadableFile(t *testing.T) {
	cfg := Default()
	if got := cfg.ResolvePrompt("", filepath.Join(t.TempDir(), "missing.txt")); got != "" {
		t.Errorf("unreadable flag file should be skipped, got %q", got)
	}
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got := expandTilde("~/recordings")
	if !strings.HasPrefix(got, home) {
		t.Errorf("expandTilde(~/recordings) = %q, want prefix %q", got, home)
	}
	if got := expandTilde("/abs/path"); got != "/abs/path" {
		t.Errorf("absolute path changed: %q", got)
	}
}
