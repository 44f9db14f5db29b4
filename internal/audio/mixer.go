package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// mixInterval is how often the mixer goroutine reconciles the two
// pending sample queues.
const mixInterval = 50 * time.Millisecond

// MixBlocks combines equally long mic and loopback blocks into one mono
// block with per-source gain. No averaging factor is applied: in the
// typical meeting scenario only one side speaks at a time, and halving
// the signal would needlessly lower the level of the active source.
// Clamping to [-1.0, 1.0] bounds the rare simultaneous peaks.
func MixBlocks(mic, loopback []float32, micGain, loopGain float32) []float32 {
	n := len(mic)
	if len(loopback) < n {
		n = len(loopback)
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := mic[i]*micGain + loopback[i]*loopGain
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		out[i] = v
	}
	return out
}

// applyGain scales samples in place and clamps them to [-1.0, 1.0].
func applyGain(samples []float32, gain float32) []float32 {
	for i, s := range samples {
		v := s * gain
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		samples[i] = v
	}
	return samples
}

// DualRecorder captures from two input devices at once (microphone plus a
// system loopback device) and mixes them into a single mono Buffer.
//
// The two device callbacks fire independently, so each source accumulates
// raw samples into its own pending queue. A mixer goroutine periodically
// takes the overlapping portion of both queues, mixes it with per-source
// gain, and carries the remainder over to the next cycle. Both streams are
// opened at the same sample rate to avoid resampling artifacts.
type DualRecorder struct {
	ctx        *malgo.AllocatedContext
	micName    string
	loopName   string
	sampleRate uint32
	channels   uint32
	micGain    float32
	loopGain   float32
	monitor    *LevelMonitor

	micDevice  *malgo.Device
	loopDevice *malgo.Device

	mu        sync.Mutex
	micPend   []float32
	loopPend  []float32
	buf       *Buffer
	recording bool

	stopMixer chan struct{}
	mixerDone chan struct{}
}

// NewDualRecorder creates a dual-source recorder. micName may be empty to
// use the default input device; loopName must identify the loopback device.
func NewDualRecorder(micName, loopName string, sampleRate, channels uint32, micGain, loopGain float32, monitor *LevelMonitor) (*DualRecorder, error) {
	if loopName == "" {
		return nil, fmt.Errorf("audio: dual capture requires a loopback device name")
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("audio: initializing context: %w", err)
	}
	return &DualRecorder{
		ctx:        ctx,
		micName:    micName,
		loopName:   loopName,
		sampleRate: sampleRate,
		channels:   channels,
		micGain:    micGain,
		loopGain:   loopGain,
		monitor:    monitor,
	}, nil
}

// Start opens both capture devices and begins mixing.
func (d *DualRecorder) Start() error {
	d.mu.Lock()
	if d.recording {
		d.mu.Unlock()
		return fmt.Errorf("audio: already recording")
	}
	d.buf = NewBuffer(int(d.sampleRate))
	d.micPend = nil
	d.loopPend = nil
	d.recording = true
	d.mu.Unlock()

	micDev, err := d.openDevice(d.micName, d.onMicData)
	if err != nil {
		d.failStart(nil, nil)
		return err
	}
	loopDev, err := d.openDevice(d.loopName, d.onLoopData)
	if err != nil {
		d.failStart(micDev, nil)
		return err
	}

	if err := micDev.Start(); err != nil {
		d.failStart(micDev, loopDev)
		return fmt.Errorf("audio: starting mic device: %w", err)
	}
	if err := loopDev.Start(); err != nil {
		d.failStart(micDev, loopDev)
		return fmt.Errorf("audio: starting loopback device: %w", err)
	}

	d.mu.Lock()
	d.micDevice = micDev
	d.loopDevice = loopDev
	d.mu.Unlock()

	d.stopMixer = make(chan struct{})
	d.mixerDone = make(chan struct{})
	go d.mixLoop()

	return nil
}

func (d *DualRecorder) openDevice(name string, onData func(out, in []byte, frames uint32)) (*malgo.Device, error) {
	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = malgo.FormatF32
	deviceCfg.Capture.Channels = d.channels
	deviceCfg.SampleRate = d.sampleRate

	if name != "" {
		info, err := FindCaptureDevice(d.ctx, name)
		if err != nil {
			return nil, err
		}
		deviceCfg.Capture.DeviceID = info.ID.Pointer()
	}

	device, err := malgo.InitDevice(d.ctx.Context, deviceCfg, malgo.DeviceCallbacks{Data: onData})
	if err != nil {
		return nil, fmt.Errorf("audio: initializing capture device %q: %w", name, err)
	}
	return device, nil
}

func (d *DualRecorder) failStart(micDev, loopDev *malgo.Device) {
	if micDev != nil {
		micDev.Uninit()
	}
	if loopDev != nil {
		loopDev.Uninit()
	}
	d.mu.Lock()
	d.recording = false
	d.mu.Unlock()
}

func (d *DualRecorder) onMicData(_, pSample []byte, frameCount uint32) {
	samples := bytesToFloat32(pSample, frameCount*d.channels)
	if d.monitor != nil {
		d.monitor.Push(SourceMic, samples)
	}
	d.mu.Lock()
	if d.recording {
		d.micPend = append(d.micPend, samples...)
	}
	d.mu.Unlock()
}

func (d *DualRecorder) onLoopData(_, pSample []byte, frameCount uint32) {
	samples := bytesToFloat32(pSample, frameCount*d.channels)
	if d.monitor != nil {
		d.monitor.Push(SourceLoopback, samples)
	}
	d.mu.Lock()
	if d.recording {
		d.loopPend = append(d.loopPend, samples...)
	}
	d.mu.Unlock()
}

// mixLoop periodically mixes the overlapping portion of both pending
// queues into the output buffer, trimming to the shorter queue and
// carrying the remainder forward.
func (d *DualRecorder) mixLoop() {
	defer close(d.mixerDone)
	ticker := time.NewTicker(mixInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.mu.Lock()
			d.mixPendingLocked()
			d.mu.Unlock()
		case <-d.stopMixer:
			return
		}
	}
}

// mixPendingLocked mixes min(len(mic), len(loop)) samples into the buffer.
// Callers must hold d.mu.
func (d *DualRecorder) mixPendingLocked() {
	n := len(d.micPend)
	if len(d.loopPend) < n {
		n = len(d.loopPend)
	}
	if n == 0 {
		return
	}
	d.buf.Append(MixBlocks(d.micPend[:n], d.loopPend[:n], d.micGain, d.loopGain))
	d.micPend = d.micPend[n:]
	d.loopPend = d.loopPend[n:]
}

// Stop closes both devices, flushes whatever is still pending, and hands
// the mixed buffer to the caller. After the final flush, any leftover from
// the longer queue is appended with its gain applied so no captured audio
// is dropped.
func (d *DualRecorder) Stop() *Buffer {
	d.mu.Lock()
	if !d.recording {
		d.mu.Unlock()
		return nil
	}
	micDev, loopDev := d.micDevice, d.loopDevice
	d.micDevice, d.loopDevice = nil, nil
	d.mu.Unlock()

	if micDev != nil {
		micDev.Uninit()
	}
	if loopDev != nil {
		loopDev.Uninit()
	}

	if d.stopMixer != nil {
		close(d.stopMixer)
		<-d.mixerDone
		d.stopMixer = nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.mixPendingLocked()
	if len(d.micPend) > 0 {
		d.buf.Append(applyGain(d.micPend, d.micGain))
		d.micPend = nil
	}
	if len(d.loopPend) > 0 {
		d.buf.Append(applyGain(d.loopPend, d.loopGain))
		d.loopPend = nil
	}

	d.recording = false
	buf := d.buf
	d.buf = nil
	return buf
}

// IsRecording reports whether capture is in progress.
func (d *DualRecorder) IsRecording() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recording
}

// Close releases all audio resources.
func (d *DualRecorder) Close() error {
	d.mu.Lock()
	if d.micDevice != nil {
		d.micDevice.Uninit()
		d.micDevice = nil
	}
	if d.loopDevice != nil {
		d.loopDevice.Uninit()
		d.loopDevice = nil
	}
	d.recording = false
	d.mu.Unlock()

	if d.stopMixer != nil {
		close(d.stopMixer)
		<-d.mixerDone
		d.stopMixer = nil
	}

	if d.ctx != nil {
		if err := d.ctx.Uninit(); err != nil {
			return fmt.Errorf("audio: uninitializing context: %w", err)
		}
		d.ctx.Free()
		d.ctx = nil
	}
	return nil
}
