package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// PlaybackSink feeds buffered audio to the default output device and can
// report when the buffer has run dry. The device keeps running between
// clips, emitting silence while the buffer is empty.
type PlaybackSink struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device

	mu       sync.Mutex
	buffered []byte
	awaiting bool
	drained  sync.WaitGroup
}

func NewPlaybackSink() (*PlaybackSink, error) {
	sink := &PlaybackSink{}

	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing miniaudio context: %w", err)
	}

	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.SampleRate = playbackSampleRate
	cfg.Playback.Format = format
	cfg.Playback.Channels = channels
	cfg.Alsa.NoMMap = 1
	cfg.PeriodSizeInFrames = 480 // ~10ms at 48kHz
	cfg.Periods = 4

	device, err := malgo.InitDevice(audioCtx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(pOutput, _ []byte, frameCount uint32) {
			need := int(frameCount) * bytesPerFrame
			sink.fill(pOutput, need)
		},
	})
	if err != nil {
		_ = audioCtx.Uninit()
		audioCtx.Free()
		return nil, fmt.Errorf("initializing playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = audioCtx.Uninit()
		audioCtx.Free()
		return nil, fmt.Errorf("starting playback device: %w", err)
	}

	sink.audioContext = audioCtx
	sink.device = device
	return sink, nil
}

// fill copies buffered audio into the device's output slice, zero-filling
// the rest and signalling any waiter once the buffer is empty.
func (s *PlaybackSink) fill(pOutput []byte, need int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := copy(pOutput[:need], s.buffered)
	s.buffered = s.buffered[n:]

	for i := n; i < need; i++ {
		pOutput[i] = 0
	}

	if len(s.buffered) == 0 && s.awaiting {
		s.awaiting = false
		s.drained.Done()
	}
}

func (s *PlaybackSink) SendAudio(audio []byte) error {
	if s.device == nil {
		return fmt.Errorf("playback device not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffered = append(s.buffered, audio...)
	return nil
}

// AwaitDrained blocks until the device has played out everything buffered so
// far.
func (s *PlaybackSink) AwaitDrained() error {
	s.mu.Lock()
	if len(s.buffered) == 0 {
		s.mu.Unlock()
		return nil
	}
	if !s.awaiting {
		s.awaiting = true
		s.drained.Add(1)
	}
	s.mu.Unlock()

	s.drained.Wait()
	return nil
}

func (s *PlaybackSink) ClearBuffer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffered = nil
	if s.awaiting {
		s.awaiting = false
		s.drained.Done()
	}
}

func (s *PlaybackSink) Close() {
	if s.device != nil {
		s.device.Uninit()
		s.device = nil
	}
	if s.audioContext != nil {
		_ = s.audioContext.Uninit()
		s.audioContext.Free()
		s.audioContext = nil
	}
}
