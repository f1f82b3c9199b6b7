// Package recording owns the lifecycle of one audio-capture attempt.
package recording

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrDeviceUnavailable means the audio input device could not be
	// acquired: permission denied, no device, or a backend failure.
	ErrDeviceUnavailable = errors.New("audio input device unavailable")

	// ErrRecordingTooShort means the finalized clip was below the minimum
	// size. The session is back to idle and the caller may retry or fall
	// back to text.
	ErrRecordingTooShort = errors.New("recording too short")

	// ErrNotRecording means Stop was called outside of a live recording.
	ErrNotRecording = errors.New("no recording in progress")

	// ErrBusy means Start was called while a previous attempt was still
	// being captured or processed.
	ErrBusy = errors.New("recording session busy")
)

type State string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateProcessing State = "processing"
)

// Device is an exclusive audio input device. Open acquires it and registers
// the frame callback, Close releases it. Frames may arrive on an audio
// thread.
type Device interface {
	Open(onFrame func(frame []byte)) error
	Start() error
	Stop() error
	Close()
}

const (
	defaultMinClipBytes = 1000
	defaultTick         = time.Second
)

// Session buffers audio frames between Start and Stop and tracks elapsed
// recording time, ticking once per interval strictly while recording. The
// device is released on every exit path, including validation failure.
type Session struct {
	device       Device
	minClipBytes int
	tick         time.Duration
	onElapsed    func(seconds int)
	logger       *slog.Logger

	mu         sync.Mutex
	state      State
	acquired   bool
	elapsed    int
	stopTicker chan struct{}

	frameMu sync.Mutex
	frames  []byte
}

func NewSession(device Device, opts ...SessionOption) *Session {
	session := Session{
		device:       device,
		minClipBytes: defaultMinClipBytes,
		tick:         defaultTick,
		logger:       slog.Default(),
		state:        StateIdle,
	}

	for _, opt := range opts {
		opt(&session)
	}

	return &session
}

type SessionOption func(*Session)

func WithMinClipBytes(minClipBytes int) SessionOption {
	return func(s *Session) {
		s.minClipBytes = minClipBytes
	}
}

func WithElapsedCallback(callback func(seconds int)) SessionOption {
	return func(s *Session) {
		s.onElapsed = callback
	}
}

// WithTickInterval overrides the elapsed-time tick. Only tests should need
// anything other than the one-second default.
func WithTickInterval(tick time.Duration) SessionOption {
	return func(s *Session) {
		s.tick = tick
	}
}

func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Elapsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Acquire requests the audio input device. It must be followed by Start, or
// released again through Cancel.
func (s *Session) Acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return ErrBusy
	}
	if s.acquired {
		return nil
	}

	if err := s.device.Open(s.appendFrame); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	s.acquired = true
	return nil
}

// Start begins buffering frames from the acquired device, acquiring it first
// if needed.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return ErrBusy
	}

	if !s.acquired {
		if err := s.device.Open(s.appendFrame); err != nil {
			return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
		s.acquired = true
	}

	if err := s.device.Start(); err != nil {
		s.releaseLocked()
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	s.frameMu.Lock()
	s.frames = nil
	s.frameMu.Unlock()

	s.state = StateRecording
	s.elapsed = 0
	s.stopTicker = make(chan struct{})
	go s.runTicker(s.stopTicker)

	return nil
}

// Stop finalizes the clip from the buffered frames and releases the device.
// A clip below the minimum size is rejected with ErrRecordingTooShort and
// the session returns to idle.
func (s *Session) Stop() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRecording {
		return nil, ErrNotRecording
	}

	s.teardownLocked()

	s.frameMu.Lock()
	clip := s.frames
	s.frames = nil
	s.frameMu.Unlock()

	if len(clip) < s.minClipBytes {
		s.state = StateIdle
		return nil, fmt.Errorf("%w: %d bytes buffered, need at least %d",
			ErrRecordingTooShort, len(clip), s.minClipBytes)
	}

	s.state = StateProcessing
	return clip, nil
}

// Cancel aborts any capture in progress and discards buffered frames. Safe
// to call in any state.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRecording {
		s.teardownLocked()
	} else if s.acquired {
		s.releaseLocked()
	}

	s.frameMu.Lock()
	s.frames = nil
	s.frameMu.Unlock()

	s.state = StateIdle
}

// Finish returns the session to idle once the submission of a finalized clip
// has run its course, successfully or not.
func (s *Session) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateProcessing {
		s.state = StateIdle
	}
}

// teardownLocked stops the tick, zeroes the counter and releases the device.
func (s *Session) teardownLocked() {
	close(s.stopTicker)
	s.stopTicker = nil
	s.elapsed = 0

	if err := s.device.Stop(); err != nil {
		s.logger.Warn("failed to stop capture device", "error", err)
	}
	s.releaseLocked()
}

func (s *Session) releaseLocked() {
	if s.acquired {
		s.device.Close()
		s.acquired = false
	}
}

func (s *Session) appendFrame(frame []byte) {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	s.frames = append(s.frames, frame...)
}

func (s *Session) runTicker(stop chan struct{}) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.state != StateRecording {
				s.mu.Unlock()
				return
			}
			s.elapsed++
			seconds := s.elapsed
			callback := s.onElapsed
			s.mu.Unlock()

			if callback != nil {
				callback(seconds)
			}
		}
	}
}
