// Package storage persists recordings, transcripts and run logs.
// Directories are created lazily so that nothing touches the filesystem
// until a keep flag (or the long-recording override) asks for it.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Store writes pipeline outputs beneath a base directory, split into
// recordings/, transcripts/ and logs/.
type Store struct {
	baseDir string
}

// NewStore creates a store rooted at baseDir. No directories are created
// until the first save.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// RecordingsDir returns the directory audio files are saved to.
func (s *Store) RecordingsDir() string { return filepath.Join(s.baseDir, "recordings") }

// TranscriptsDir returns the directory transcripts are saved to.
func (s *Store) TranscriptsDir() string { return filepath.Join(s.baseDir, "transcripts") }

// LogsDir returns the directory run logs are saved to.
func (s *Store) LogsDir() string { return filepath.Join(s.baseDir, "logs") }

// SaveText writes content as UTF-8 text and returns the destination path.
func (s *Store) SaveText(dir, name, content string) (string, error) {
	path := filepath.Join(dir, sanitize(name))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: creating %s: %w", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("storage: writing %s: %w", path, err)
	}
	return path, nil
}

// SaveJSON pretty-prints raw JSON (or stores it verbatim when it does not
// re-indent) and returns the destination path.
func (s *Store) SaveJSON(dir, name string, raw []byte) (string, error) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err == nil {
		raw = pretty.Bytes()
	}
	return s.SaveText(dir, name, string(raw))
}

// SaveAudio copies an audio file into the recordings directory and
// returns the destination path.
func (s *Store) SaveAudio(srcPath, name string) (string, error) {
	dir := s.RecordingsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: creating %s: %w", dir, err)
	}
	dst := filepath.Join(dir, sanitize(name))

	in, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("storage: opening %s: %w", srcPath, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("storage: creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", fmt.Errorf("storage: copying to %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("storage: closing %s: %w", dst, err)
	}
	return dst, nil
}

// SaveTranscript writes the transcript text and, when raw is non-nil, the
// raw provider payload as JSON. Returns both paths (jsonPath is empty when
// raw is nil).
func (s *Store) SaveTranscript(base, providerName, text string, raw []byte) (txtPath, jsonPath string, err error) {
	name := sanitize(base) + "_" + sanitize(providerName)

	txtPath, err = s.SaveText(s.TranscriptsDir(), name+".txt", text)
	if err != nil {
		return "", "", err
	}
	if raw != nil {
		jsonPath, err = s.SaveJSON(s.TranscriptsDir(), name+".json", raw)
		if err != nil {
			return txtPath, "", err
		}
	}
	return txtPath, jsonPath, nil
}

// SaveLog writes a run log into the logs directory.
func (s *Store) SaveLog(name, content string) (string, error) {
	return s.SaveText(s.LogsDir(), name, content)
}

// sanitize replaces unsafe filename characters with underscores.
func sanitize(name string) string {
	out := unsafeChars.ReplaceAllString(name, "_")
	if out == "" {
		return "out"
	}
	return out
}
