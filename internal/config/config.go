package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Provider       string         `yaml:"provider"`
	Model          string         `yaml:"model"`
	TransformModel string         `yaml:"transform_model"`
	Language       string         `yaml:"language"`
	Format         string         `yaml:"format"` // "wav", "mp3" or "opus"
	Diarize        bool           `yaml:"diarize"`
	Copy           bool           `yaml:"copy"`
	OutputDir      string         `yaml:"output_dir"`
	ContextBias    []string       `yaml:"context_bias"`
	Audio          AudioConfig    `yaml:"audio"`
	Chunking       ChunkingConfig `yaml:"chunking"`
	Keep           KeepConfig     `yaml:"keep"`
	Prompt         PromptConfig   `yaml:"prompt"`
	Hotkey         HotkeyConfig   `yaml:"hotkey"`
	LogLevel       string         `yaml:"log_level"`
}

// AudioConfig holds capture settings.
type AudioConfig struct {
	SampleRate     uint32  `yaml:"sample_rate"`
	Channels       uint32  `yaml:"channels"`
	MicDevice      string  `yaml:"mic_device"`      // empty = system default
	LoopbackDevice string  `yaml:"loopback_device"` // presence enables dual capture
	MicGain        float64 `yaml:"mic_gain"`
	LoopbackGain   float64 `yaml:"loopback_gain"`
}

// ChunkingConfig controls how long recordings are split before upload.
type ChunkingConfig struct {
	DurationSeconds int `yaml:"duration_seconds"`
	OverlapSeconds  int `yaml:"overlap_seconds"`
}

// KeepConfig selects which outputs are written to durable storage.
// Recordings longer than the chunk duration force audio, transcript and
// logs on regardless of these flags.
type KeepConfig struct {
	Audio      bool `yaml:"audio"`
	Transcript bool `yaml:"transcript"`
	RawJSON    bool `yaml:"raw_json"`
	Logs       bool `yaml:"logs"`
}

// PromptConfig supplies a default transformation prompt, inline or from
// a file.
type PromptConfig struct {
	Text string `yaml:"text"`
	File string `yaml:"file"`
}

// HotkeyConfig holds the record/stop toggle binding.
type HotkeyConfig struct {
	Keys []string `yaml:"keys"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "voxpipe")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Provider: "openai",
		Format:   "wav",
		Copy:     true,
		Audio: AudioConfig{
			SampleRate:   16000,
			Channels:     1,
			MicGain:      1.0,
			LoopbackGain: 1.0,
		},
		Chunking: ChunkingConfig{
			DurationSeconds: 300,
			OverlapSeconds:  30,
		},
		Hotkey: HotkeyConfig{
			Keys: []string{"ctrl", "shift", "r"},
		},
		OutputDir: ".",
		LogLevel:  "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in paths is expanded to the user's home
// directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.OutputDir = expandTilde(cfg.OutputDir)
	cfg.Prompt.File = expandTilde(cfg.Prompt.File)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.Provider {
	case "openai", "voxtral":
	default:
		return fmt.Errorf("provider must be \"openai\" or \"voxtral\", got %q", c.Provider)
	}

	switch c.Format {
	case "wav", "mp3", "opus":
	default:
		return fmt.Errorf("format must be wav, mp3 or opus, got %q", c.Format)
	}

	if c.Audio.SampleRate == 0 {
		return fmt.Errorf("audio.sample_rate must be > 0")
	}

	if c.Audio.Channels != 1 {
		return fmt.Errorf("audio.channels must be 1 (pipeline output is mono), got %d", c.Audio.Channels)
	}

	if c.Audio.MicGain < 0 || c.Audio.LoopbackGain < 0 {
		return fmt.Errorf("audio gains must be >= 0")
	}

	if c.Chunking.DurationSeconds <= 0 {
		return fmt.Errorf("chunking.duration_seconds must be > 0")
	}

	if c.Chunking.OverlapSeconds < 0 || c.Chunking.OverlapSeconds >= c.Chunking.DurationSeconds {
		return fmt.Errorf("chunking.overlap_seconds must be >= 0 and < duration_seconds, got %d", c.Chunking.OverlapSeconds)
	}

	if len(c.Hotkey.Keys) == 0 {
		return fmt.Errorf("hotkey.keys must not be empty")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// ResolvePrompt resolves the transformation prompt from the available
// sources, by priority: inline flag text, explicit flag file, config
// inline text, config file path. Returns "" when no source yields text,
// which disables the transform step.
func (c *Config) ResolvePrompt(inline, file string) string {
	if s := strings.TrimSpace(inline); s != "" {
		return s
	}
	if s := readPromptFile(file); s != "" {
		return s
	}
	if s := strings.TrimSpace(c.Prompt.Text); s != "" {
		return s
	}
	return readPromptFile(c.Prompt.File)
}

// readPromptFile reads a prompt file, returning "" when the path is empty
// or unreadable.
func readPromptFile(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(expandTilde(path))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
