package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/malgo"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/voxd/voxpipe/internal/audio"
	"github.com/voxd/voxpipe/internal/clipboard"
	"github.com/voxd/voxpipe/internal/config"
	"github.com/voxd/voxpipe/internal/hotkey"
	"github.com/voxd/voxpipe/internal/media"
	"github.com/voxd/voxpipe/internal/pipeline"
	"github.com/voxd/voxpipe/internal/provider"
	"github.com/voxd/voxpipe/internal/storage"
	"github.com/voxd/voxpipe/internal/ui"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/voxpipe/config.yaml)")
	promptText := flag.String("prompt", "", "inline transformation prompt")
	promptFile := flag.String("prompt-file", "", "path to a transformation prompt file")
	saveAll := flag.Bool("save-all", false, "keep audio, transcript, raw JSON and logs for this run")
	transcribeMode := flag.Bool("transcribe", false, "pure transcription: skip the prompt transform")
	noUI := flag.Bool("no-ui", false, "disable the terminal level display")
	listDevices := flag.Bool("list-devices", false, "list capture devices and exit")
	flag.Parse()

	// API keys come from the environment; a .env file is honored when
	// present.
	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	if *listDevices {
		if err := printCaptureDevices(); err != nil {
			log.Fatalf("listing devices: %v", err)
		}
		return
	}

	if *saveAll {
		cfg.Keep.Audio = true
		cfg.Keep.Transcript = true
		cfg.Keep.RawJSON = true
		cfg.Keep.Logs = true
	}

	store := storage.NewStore(cfg.OutputDir)
	if err := setupLogging(cfg, store, *saveAll, !*noUI); err != nil {
		log.Fatalf("logging: %v", err)
	}

	prompt := ""
	if !*transcribeMode {
		prompt = cfg.ResolvePrompt(*promptText, *promptFile)
	}

	prov, err := provider.New(cfg.Provider, cfg.Model)
	if err != nil {
		log.Fatalf("provider: %v", err)
	}

	base := fmt.Sprintf("rec_%s_%s", time.Now().Format("20060102_150405"), uuid.NewString()[:8])
	hasLoop := cfg.Audio.LoopbackDevice != ""
	monitor := audio.NewLevelMonitor(hasLoop)

	pcfg := pipeline.Config{
		SampleRate:     cfg.Audio.SampleRate,
		Channels:       cfg.Audio.Channels,
		MicDevice:      cfg.Audio.MicDevice,
		LoopbackDevice: cfg.Audio.LoopbackDevice,
		MicGain:        float32(cfg.Audio.MicGain),
		LoopbackGain:   float32(cfg.Audio.LoopbackGain),
		ChunkDuration:  time.Duration(cfg.Chunking.DurationSeconds) * time.Second,
		ChunkOverlap:   time.Duration(cfg.Chunking.OverlapSeconds) * time.Second,
		Format:         cfg.Format,
		Language:       cfg.Language,
		Diarize:        cfg.Diarize,
		ContextBias:    cfg.ContextBias,
		Prompt:         prompt,
		TransformModel: cfg.TransformModel,
		KeepAudio:      cfg.Keep.Audio,
		KeepTranscript: cfg.Keep.Transcript,
		KeepRawJSON:    cfg.Keep.RawJSON,
		KeepLogs:       cfg.Keep.Logs,
		Copy:           cfg.Copy,
		BaseName:       base,
	}

	deps := pipeline.Deps{
		Transcriber:  prov,
		Completer:    prov,
		Store:        store,
		Monitor:      monitor,
		ProviderName: prov.Name(),
	}
	if cfg.Format != "wav" {
		deps.Converter = media.NewConverter()
	}
	if cfg.Copy {
		deps.Clipboard = clipboard.New()
	}

	p := pipeline.New(pcfg, deps)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopRecord := make(chan struct{})
	var stopOnce sync.Once
	stopRec := func() { stopOnce.Do(func() { close(stopRecord) }) }

	// First interrupt stops the recording; a second aborts the run
	// (cleanup still happens).
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		stopRec()
		<-sigCh
		cancel()
	}()

	toggle := hotkey.NewToggle(cfg.Hotkey.Keys)
	go toggle.Start()
	defer toggle.Stop()
	go func() {
		for range toggle.Presses() {
			stopRec()
		}
	}()

	var prog *tea.Program
	if !*noUI {
		ctrl := ui.NewControl()
		prog = tea.NewProgram(ui.NewModel(monitor, p.Events(), hasLoop, ctrl))
		go func() {
			for {
				select {
				case <-ctrl.Toggle:
					stopRec()
				case <-ctrl.Quit:
					stopRec()
					return
				}
			}
		}()
		go func() {
			if _, err := prog.Run(); err != nil {
				log.Printf("ui: %v", err)
			}
		}()
	} else {
		log.Printf("Recording... press %s or Ctrl+C to stop", strings.Join(cfg.Hotkey.Keys, "+"))
	}

	out, err := p.Run(ctx, stopRecord)
	if prog != nil {
		prog.Quit()
		prog.Wait()
	}
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}

	fmt.Println(out.Text)
	for kind, path := range out.Paths {
		log.Printf("saved %s: %s", kind, path)
	}
}

// loadConfig reads the config from an explicit path, the default
// location, or falls back to built-in defaults when no file exists.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		return config.Load(defaultPath)
	}
	return config.Default(), nil
}

// setupLogging points slog at stderr, a log file, or both. In UI mode the
// terminal belongs to the level display, so stderr logging is dropped
// unless nothing else is available.
func setupLogging(cfg *config.Config, store *storage.Store, saveAll, uiMode bool) error {
	var w io.Writer = os.Stderr
	if saveAll {
		if err := os.MkdirAll(store.LogsDir(), 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(filepath.Join(store.LogsDir(), "app.log"),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		if uiMode {
			w = f
		} else {
			w = io.MultiWriter(os.Stderr, f)
		}
	} else if uiMode {
		w = io.Discard
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	})))
	return nil
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// printCaptureDevices lists every capture device malgo can see.
func printCaptureDevices() error {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return err
	}
	for i, info := range infos {
		fmt.Printf("[%d] %s\n", i, info.Name())
	}
	return nil
}
