package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
)

// Recorder captures audio from a single input device into a Buffer,
// pushing block RMS values into a LevelMonitor as it goes.
type Recorder struct {
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	deviceName string
	sampleRate uint32
	channels   uint32
	monitor    *LevelMonitor

	mu        sync.Mutex
	buf       *Buffer
	recording bool
}

// NewRecorder creates a recorder for the named input device (empty string
// selects the system default). monitor may be nil. Call Close() when done.
func NewRecorder(deviceName string, sampleRate, channels uint32, monitor *LevelMonitor) (*Recorder, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("audio: initializing context: %w", err)
	}

	return &Recorder{
		ctx:        ctx,
		deviceName: deviceName,
		sampleRate: sampleRate,
		channels:   channels,
		monitor:    monitor,
	}, nil
}

// Start begins capturing. Samples accumulate in an internal Buffer as
// float32 values; the capture callback never blocks on anything beyond
// the buffer mutex.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return fmt.Errorf("audio: already recording")
	}
	r.buf = NewBuffer(int(r.sampleRate))
	r.recording = true
	r.mu.Unlock()

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = malgo.FormatF32
	deviceCfg.Capture.Channels = r.channels
	deviceCfg.SampleRate = r.sampleRate

	if r.deviceName != "" {
		info, err := FindCaptureDevice(r.ctx, r.deviceName)
		if err != nil {
			r.abortStart()
			return err
		}
		deviceCfg.Capture.DeviceID = info.ID.Pointer()
	}

	device, err := malgo.InitDevice(r.ctx.Context, deviceCfg, malgo.DeviceCallbacks{Data: r.onData})
	if err != nil {
		r.abortStart()
		return fmt.Errorf("audio: initializing capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		r.abortStart()
		return fmt.Errorf("audio: starting capture device: %w", err)
	}

	r.mu.Lock()
	r.device = device
	r.mu.Unlock()

	return nil
}

func (r *Recorder) abortStart() {
	r.mu.Lock()
	r.recording = false
	r.mu.Unlock()
}

// Stop ends the capture and hands the finished buffer to the caller.
// The buffer is read-only from this point on. Returns nil if the recorder
// was not recording.
func (r *Recorder) Stop() *Buffer {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return nil
	}

	if r.device != nil {
		r.device.Uninit()
		r.device = nil
	}
	r.recording = false

	buf := r.buf
	r.buf = nil
	return buf
}

// IsRecording reports whether capture is in progress.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Close releases all audio resources.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.device != nil {
		r.device.Uninit()
		r.device = nil
	}
	r.recording = false
	r.mu.Unlock()

	if r.ctx != nil {
		if err := r.ctx.Uninit(); err != nil {
			return fmt.Errorf("audio: uninitializing context: %w", err)
		}
		r.ctx.Free()
		r.ctx = nil
	}

	return nil
}

// onData is the malgo callback invoked when captured frames are available.
func (r *Recorder) onData(_, pSample []byte, frameCount uint32) {
	samples := bytesToFloat32(pSample, frameCount*r.channels)
	if r.monitor != nil {
		r.monitor.Push(SourceMic, samples)
	}

	r.mu.Lock()
	if r.recording && r.buf != nil {
		r.buf.Append(samples)
	}
	r.mu.Unlock()
}

// FindCaptureDevice returns the first capture device whose name contains
// the given substring (case-insensitive).
func FindCaptureDevice(ctx *malgo.AllocatedContext, name string) (*malgo.DeviceInfo, error) {
	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("audio: enumerating capture devices: %w", err)
	}
	needle := strings.ToLower(name)
	for i := range infos {
		if strings.Contains(strings.ToLower(infos[i].Name()), needle) {
			return &infos[i], nil
		}
	}
	return nil, fmt.Errorf("audio: capture device %q not found", name)
}

// bytesToFloat32 converts raw bytes (little-endian float32) to a float32 slice.
func bytesToFloat32(data []byte, sampleCount uint32) []float32 {
	samples := make([]float32, 0, sampleCount)
	for i := uint32(0); i < sampleCount; i++ {
		offset := i * 4
		if offset+4 > uint32(len(data)) {
			break
		}
		bits := binary.LittleEndian.Uint32(data[offset : offset+4])
		samples = append(samples, math.Float32frombits(bits))
	}
	return samples
}
