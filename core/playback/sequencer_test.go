package playback_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsalvador/gdsim/core/playback"
)

type fakeSink struct {
	mu      sync.Mutex
	sent    [][]byte
	cleared bool

	sendErr  error
	drainErr error
	drain    chan struct{}
}

func (s *fakeSink) SendAudio(audio []byte) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, audio)
	return nil
}

func (s *fakeSink) AwaitDrained() error {
	if s.drain != nil {
		<-s.drain
	}
	return s.drainErr
}

func (s *fakeSink) ClearBuffer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = true
}

func TestPlayBlocksUntilDrained(t *testing.T) {
	sink := &fakeSink{drain: make(chan struct{})}
	sequencer := playback.NewSequencer(sink)

	done := make(chan struct{})
	go func() {
		defer close(done)
		sequencer.Play(context.Background(), []byte{1, 2, 3})
	}()

	select {
	case <-done:
		t.Fatal("Play returned before the sink drained")
	case <-time.After(20 * time.Millisecond):
	}

	close(sink.drain)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Play did not return after the sink drained")
	}

	require.Len(t, sink.sent, 1)
	assert.Equal(t, []byte{1, 2, 3}, sink.sent[0])
}

func TestPlaySwallowsSinkErrors(t *testing.T) {
	sequencer := playback.NewSequencer(&fakeSink{sendErr: errors.New("device gone")})
	sequencer.Play(context.Background(), []byte{1})

	sequencer = playback.NewSequencer(&fakeSink{drainErr: errors.New("underrun")})
	sequencer.Play(context.Background(), []byte{1})
}

func TestPlayEmptyClipIsNoop(t *testing.T) {
	sink := &fakeSink{}
	sequencer := playback.NewSequencer(sink)
	sequencer.Play(context.Background(), nil)
	assert.Empty(t, sink.sent)
}

func TestPlayNilSinkIsNoop(t *testing.T) {
	sequencer := playback.NewSequencer(nil)
	sequencer.Play(context.Background(), []byte{1, 2, 3})
}

func TestPlayCancelledContextClearsBuffer(t *testing.T) {
	sink := &fakeSink{drain: make(chan struct{})}
	sequencer := playback.NewSequencer(sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		sequencer.Play(ctx, []byte{1})
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Play did not return after cancellation")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.True(t, sink.cleared)
	close(sink.drain)
}
