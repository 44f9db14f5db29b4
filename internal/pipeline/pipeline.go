// Package pipeline orchestrates one recording run: capture, optional
// conversion, chunk splitting, per-chunk transcription, segment merge,
// optional text transformation, conditional persistence and cleanup.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/voxd/voxpipe/internal/audio"
	"github.com/voxd/voxpipe/internal/chunk"
	"github.com/voxd/voxpipe/internal/provider"
)

// Config is the immutable input to one pipeline run.
type Config struct {
	SampleRate     uint32
	Channels       uint32
	MicDevice      string
	LoopbackDevice string // non-empty enables the dual-capture path
	MicGain        float32
	LoopbackGain   float32

	ChunkDuration time.Duration
	ChunkOverlap  time.Duration

	Format      string // "wav", "mp3" or "opus"
	Language    string
	Diarize     bool
	ContextBias []string

	Prompt         string // non-empty enables the transform step
	TransformModel string

	KeepAudio      bool
	KeepTranscript bool
	KeepRawJSON    bool
	KeepLogs       bool
	Copy           bool

	// BaseName prefixes every artifact written for this run.
	BaseName string
}

// Converter transcodes a WAV file to a compressed format. Failures are
// recoverable: the pipeline falls back to sending the raw WAV.
type Converter interface {
	Convert(ctx context.Context, wavPath, format string) (string, error)
}

// Store persists run outputs. Persistence failures are logged but never
// roll back an already-produced transcript.
type Store interface {
	SaveAudio(srcPath, name string) (string, error)
	SaveTranscript(base, providerName, text string, raw []byte) (txtPath, jsonPath string, err error)
	SaveLog(name, content string) (string, error)
}

// Clipboard copies the final text, best-effort.
type Clipboard interface {
	Copy(text string) error
}

// Recorder abstracts the capture source so tests can substitute one.
type Recorder interface {
	Start() error
	Stop() *audio.Buffer
	Close() error
}

// Deps are the collaborators a pipeline run calls out to. Transcriber and
// Store are required; the rest may be nil to disable the matching step.
type Deps struct {
	Transcriber  provider.Transcriber
	Completer    provider.Completer
	Converter    Converter
	Store        Store
	Clipboard    Clipboard
	Monitor      *audio.LevelMonitor
	Recorder     Recorder // nil = build from config on Record
	ProviderName string
}

// Outcome is what a successful run produces. Only the merged transcript
// survives the run; chunks and intermediate results are discarded.
type Outcome struct {
	Text     string
	Segments []provider.Segment
	Raw      json.RawMessage
	Duration time.Duration
	Chunks   int
	Paths    map[string]string
}

// Pipeline drives one recording through the state machine. Not reusable:
// create a new Pipeline per run.
type Pipeline struct {
	cfg  Config
	deps Deps

	mu     sync.Mutex
	state  State
	tmpDir string
	runLog []string

	events chan Event
}

// New creates a pipeline in the Idle state.
func New(cfg Config, deps Deps) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		deps:   deps,
		state:  StateIdle,
		events: make(chan Event, 32),
	}
}

// Events returns the channel state transitions are published on. The
// channel is buffered and sends never block; a slow consumer misses
// intermediate events rather than stalling the run.
func (p *Pipeline) Events() <-chan Event { return p.events }

// State returns the current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// setState records a transition, logs it, and publishes it without
// blocking.
func (p *Pipeline) setState(s State, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	p.mu.Lock()
	p.state = s
	p.runLog = append(p.runLog, fmt.Sprintf("%s | %-12s | %s",
		time.Now().Format(time.RFC3339), s, msg))
	p.mu.Unlock()

	slog.Info(msg, "state", s.String())
	select {
	case p.events <- Event{State: s, Message: msg}:
	default:
	}
}

func (p *Pipeline) fail(stage State, chunkIdx int, err error) error {
	serr := &StageError{Stage: stage, Chunk: chunkIdx, Err: err}
	p.setState(StateFailed, "%v", serr)
	return serr
}

// Run executes the full pipeline: record until stopRecord fires (or ctx is
// cancelled), process, and clean up. Clean always runs, even on failure.
func (p *Pipeline) Run(ctx context.Context, stopRecord <-chan struct{}) (*Outcome, error) {
	defer p.Clean()

	recCtx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-stopRecord:
		case <-ctx.Done():
		}
		cancel()
	}()

	buf, err := p.Record(recCtx)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, p.fail(StateRecording, -1, ctx.Err())
	}
	return p.Process(ctx, buf)
}

// Record starts capture and blocks until ctx is cancelled, then finalizes
// and returns the buffer. Capture callbacks only append samples and push
// level values; all blocking work happens later in Process.
func (p *Pipeline) Record(ctx context.Context) (*audio.Buffer, error) {
	rec := p.deps.Recorder
	if rec == nil {
		built, err := p.buildRecorder()
		if err != nil {
			return nil, p.fail(StateRecording, -1, err)
		}
		rec = built
		defer rec.Close()
	}

	if err := rec.Start(); err != nil {
		return nil, p.fail(StateRecording, -1, err)
	}
	p.setState(StateRecording, "recording started")

	<-ctx.Done()

	buf := rec.Stop()
	if buf == nil || buf.Len() == 0 {
		return nil, p.fail(StateRecording, -1, fmt.Errorf("no audio captured"))
	}
	slog.Info("recording stopped", "duration", buf.Duration().Round(time.Millisecond))
	return buf, nil
}

func (p *Pipeline) buildRecorder() (Recorder, error) {
	if p.cfg.LoopbackDevice != "" {
		return audio.NewDualRecorder(p.cfg.MicDevice, p.cfg.LoopbackDevice,
			p.cfg.SampleRate, p.cfg.Channels, p.cfg.MicGain, p.cfg.LoopbackGain, p.deps.Monitor)
	}
	return audio.NewRecorder(p.cfg.MicDevice, p.cfg.SampleRate, p.cfg.Channels, p.deps.Monitor)
}

// Process turns a finished recording into a transcript. The buffer is
// read-only from here on.
func (p *Pipeline) Process(ctx context.Context, buf *audio.Buffer) (*Outcome, error) {
	duration := buf.Duration()

	// Long recordings force full persistence as a data-protection
	// measure, regardless of the configured keep flags.
	forceKeep := duration > p.cfg.ChunkDuration
	if forceKeep {
		slog.Info("recording exceeds chunk duration, forcing persistence",
			"duration", duration.Round(time.Second))
	}

	tmpDir, err := os.MkdirTemp("", "voxpipe_")
	if err != nil {
		return nil, p.fail(StateTranscribing, -1, fmt.Errorf("creating temp dir: %w", err))
	}
	p.mu.Lock()
	p.tmpDir = tmpDir
	p.mu.Unlock()

	wavPath := filepath.Join(tmpDir, p.cfg.BaseName+".wav")
	if err := audio.WriteWAV(wavPath, buf); err != nil {
		return nil, p.fail(StateTranscribing, -1, err)
	}

	chunks, err := chunk.Split(buf, p.cfg.ChunkDuration, p.cfg.ChunkOverlap)
	if err != nil {
		return nil, p.fail(StateChunking, -1, err)
	}

	// Each chunk becomes one upload: a WAV slice of the recording,
	// optionally converted to the configured compressed format.
	uploads := make([]uploadUnit, len(chunks))
	if len(chunks) == 1 {
		uploads[0] = uploadUnit{path: wavPath, format: "wav"}
	} else {
		p.setState(StateChunking, "splitting %.0fs recording into %d chunks",
			duration.Seconds(), len(chunks))
		for i, c := range chunks {
			cp := filepath.Join(tmpDir, fmt.Sprintf("%s_chunk_%03d.wav", p.cfg.BaseName, i))
			if err := audio.WriteWAVSamples(cp, c.Samples, buf.SampleRate()); err != nil {
				return nil, p.fail(StateChunking, i, err)
			}
			uploads[i] = uploadUnit{path: cp, format: "wav"}
		}
	}

	if p.cfg.Format != "wav" && p.deps.Converter != nil {
		p.setState(StateConverting, "converting %d file(s) to %s", len(uploads), p.cfg.Format)
		for i := range uploads {
			converted, err := p.deps.Converter.Convert(ctx, uploads[i].path, p.cfg.Format)
			if err != nil {
				// Raw WAV is always a valid provider input; degrade
				// instead of aborting.
				slog.Warn("conversion failed, sending raw wav", "chunk", i, "err", err)
				continue
			}
			uploads[i] = uploadUnit{path: converted, format: p.cfg.Format}
		}
	}

	if ctx.Err() != nil {
		return nil, p.fail(StateTranscribing, -1, ctx.Err())
	}

	results, err := p.transcribeAll(ctx, uploads)
	if err != nil {
		return nil, err
	}

	text, segments, err := p.mergeResults(chunks, results)
	if err != nil {
		return nil, err
	}

	if p.cfg.Prompt != "" && p.deps.Completer != nil {
		p.setState(StateTransforming, "applying prompt transform")
		transformed, err := p.deps.Completer.Complete(ctx, text, p.cfg.Prompt, p.cfg.TransformModel)
		if err != nil {
			return nil, p.fail(StateTransforming, -1, err)
		}
		text = transformed
	}

	out := &Outcome{
		Text:     text,
		Segments: segments,
		Raw:      rawPayload(results),
		Duration: duration,
		Chunks:   len(chunks),
		Paths:    map[string]string{},
	}

	if ctx.Err() != nil {
		// Cancelled mid-processing: skip persistence, Clean still runs.
		return nil, p.fail(StatePersisting, -1, ctx.Err())
	}

	p.persist(out, wavPath, forceKeep)

	if p.cfg.Copy && p.deps.Clipboard != nil {
		if err := p.deps.Clipboard.Copy(text); err != nil {
			slog.Warn("clipboard copy failed", "err", err)
		}
	}

	return out, nil
}

type uploadUnit struct {
	path   string
	format string
}

// transcribeAll dispatches one transcription call per chunk. Calls run
// concurrently (chunks share no mutable state) and results are re-ordered
// by chunk index afterwards, since merge correctness depends on chunk
// adjacency, not completion order. Any chunk failure fails the whole run:
// a silently partial transcript is worse than a hard error.
func (p *Pipeline) transcribeAll(ctx context.Context, uploads []uploadUnit) ([]*provider.Result, error) {
	p.setState(StateTranscribing, "transcribing %d chunk(s)", len(uploads))

	results := make([]*provider.Result, len(uploads))
	errs := make([]error, len(uploads))

	var wg sync.WaitGroup
	for i, u := range uploads {
		wg.Add(1)
		go func(i int, u uploadUnit) {
			defer wg.Done()
			results[i], errs[i] = p.deps.Transcriber.Transcribe(ctx, provider.Request{
				AudioPath:   u.path,
				Format:      u.format,
				Language:    p.cfg.Language,
				ContextBias: p.cfg.ContextBias,
				Diarize:     p.cfg.Diarize,
			})
		}(i, u)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			done := 0
			for j := range results {
				if errs[j] == nil && results[j] != nil {
					done++
				}
			}
			slog.Error("chunk transcription failed",
				"chunk", i, "completed_chunks", done, "err", err)
			return nil, p.fail(StateTranscribing, i, err)
		}
	}
	return results, nil
}

// mergeResults reduces the per-chunk results to one transcript. With a
// single chunk the result passes through unchanged.
func (p *Pipeline) mergeResults(chunks []chunk.Chunk, results []*provider.Result) (string, []provider.Segment, error) {
	if len(results) == 1 {
		segs, err := chunk.MergeSegments(chunks, [][]provider.Segment{results[0].Segments})
		if err != nil {
			return "", nil, p.fail(StateMerging, -1, err)
		}
		return results[0].Text, segs, nil
	}

	p.setState(StateMerging, "merging %d chunk results", len(results))

	segsByChunk := make([][]provider.Segment, len(results))
	texts := make([]string, len(results))
	haveSegments := true
	for i, r := range results {
		segsByChunk[i] = r.Segments
		texts[i] = r.Text
		if len(r.Segments) == 0 {
			haveSegments = false
		}
	}

	if !haveSegments {
		// No timing data: concatenate texts, leaving boundary cleanup
		// to the prompt transform.
		return chunk.MergeTexts(texts), nil, nil
	}

	merged, err := chunk.MergeSegments(chunks, segsByChunk)
	if err != nil {
		return "", nil, p.fail(StateMerging, -1, err)
	}

	if p.cfg.Diarize {
		return chunk.FormatDiarized(merged), merged, nil
	}
	return chunk.JoinSegmentTexts(merged), merged, nil
}

// persist writes outputs per the keep flags (or the long-recording
// override) and records destinations in the outcome. Persistence errors
// are logged and swallowed: the in-memory result is still returned.
func (p *Pipeline) persist(out *Outcome, wavPath string, forceKeep bool) {
	p.setState(StatePersisting, "persisting outputs")

	if p.cfg.KeepAudio || forceKeep {
		if path, err := p.deps.Store.SaveAudio(wavPath, p.cfg.BaseName+".wav"); err != nil {
			slog.Warn("saving audio failed", "err", err)
		} else {
			out.Paths["audio"] = path
		}
	}

	if p.cfg.KeepTranscript || forceKeep {
		var raw []byte
		if p.cfg.KeepRawJSON && out.Raw != nil {
			raw = out.Raw
		}
		txt, js, err := p.deps.Store.SaveTranscript(p.cfg.BaseName, p.deps.ProviderName, out.Text, raw)
		if err != nil {
			slog.Warn("saving transcript failed", "err", err)
		} else {
			out.Paths["transcript"] = txt
			if js != "" {
				out.Paths["json"] = js
			}
		}
	}

	if p.cfg.KeepLogs || forceKeep {
		p.mu.Lock()
		content := strings.Join(p.runLog, "\n")
		p.mu.Unlock()
		if path, err := p.deps.Store.SaveLog(p.cfg.BaseName+".log", content); err != nil {
			slog.Warn("saving run log failed", "err", err)
		} else {
			out.Paths["log"] = path
		}
	}
}

// rawPayload returns the provider payload for persistence: the single
// chunk's payload as-is, or a JSON array of per-chunk payloads.
func rawPayload(results []*provider.Result) json.RawMessage {
	if len(results) == 1 {
		return results[0].Raw
	}
	raws := make([]json.RawMessage, 0, len(results))
	for _, r := range results {
		if r.Raw == nil {
			raws = append(raws, json.RawMessage("null"))
			continue
		}
		raws = append(raws, r.Raw)
	}
	combined, err := json.Marshal(raws)
	if err != nil {
		return nil
	}
	return combined
}

// Clean removes temporary artifacts. It runs on every outcome, including
// failures and cancellations, so chunk files never leak.
func (p *Pipeline) Clean() error {
	p.mu.Lock()
	tmpDir := p.tmpDir
	p.tmpDir = ""
	failed := p.state == StateFailed
	p.mu.Unlock()

	if tmpDir != "" {
		if err := os.RemoveAll(tmpDir); err != nil {
			return fmt.Errorf("pipeline: removing temp dir: %w", err)
		}
	}
	if !failed {
		p.setState(StateCleaned, "temporary files removed")
	} else {
		slog.Info("temporary files removed after failure")
	}
	return nil
}
