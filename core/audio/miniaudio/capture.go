// Package miniaudio backs audio capture and playback with the miniaudio
// library.
package miniaudio

import (
	"fmt"

	"github.com/gen2brain/malgo"

	"github.com/jsalvador/gdsim/core/audio"
)

const (
	captureSampleRate  = 16000
	playbackSampleRate = 48000
	channels           = 1
)

// CaptureDevice is an exclusive microphone handle. Open acquires the device,
// Close releases it; frames arrive on miniaudio's audio thread.
type CaptureDevice struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
}

func NewCaptureDevice() *CaptureDevice {
	return &CaptureDevice{}
}

func (d *CaptureDevice) Open(onFrame func(frame []byte)) error {
	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("initializing miniaudio context: %w", err)
	}

	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.SampleRate = captureSampleRate
	cfg.Capture.Format = format
	cfg.Capture.Channels = channels
	cfg.Alsa.NoMMap = 1
	cfg.PerformanceProfile = malgo.LowLatency
	cfg.PeriodSizeInFrames = 480
	cfg.Periods = 3

	device, err := malgo.InitDevice(audioCtx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if n == 0 || len(pInput) < n {
				return
			}
			// miniaudio reuses pInput between callbacks.
			frame := make([]byte, n)
			copy(frame, pInput[:n])
			onFrame(frame)
		},
	})
	if err != nil {
		_ = audioCtx.Uninit()
		audioCtx.Free()
		return fmt.Errorf("initializing capture device: %w", err)
	}

	d.audioContext = audioCtx
	d.device = device
	return nil
}

func (d *CaptureDevice) Start() error {
	if d.device == nil {
		return fmt.Errorf("capture device not open")
	}
	if err := d.device.Start(); err != nil {
		return fmt.Errorf("starting capture device: %w", err)
	}
	return nil
}

func (d *CaptureDevice) Stop() error {
	if d.device == nil {
		return fmt.Errorf("capture device not open")
	}
	if err := d.device.Stop(); err != nil {
		return fmt.Errorf("stopping capture device: %w", err)
	}
	return nil
}

func (d *CaptureDevice) Close() {
	if d.device != nil {
		d.device.Uninit()
		d.device = nil
	}
	if d.audioContext != nil {
		_ = d.audioContext.Uninit()
		d.audioContext.Free()
		d.audioContext = nil
	}
}

func (d *CaptureDevice) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: captureSampleRate,
		Channels:   channels,
		Encoding:   "linear16",
	}
}
