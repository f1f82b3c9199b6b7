// Package playback plays server-supplied narration clips in order.
package playback

import (
	"context"
	"log/slog"
	"sync"
)

// Sink is a playback destination that buffers audio and can report when the
// buffer has drained.
type Sink interface {
	SendAudio(audio []byte) error
	AwaitDrained() error
	ClearBuffer()
}

// Sequencer plays one clip at a time, to completion. Narration is best
// effort: a sink failure resolves the same as a finished playback so the
// discussion never stalls on audio.
type Sequencer struct {
	sink   Sink
	logger *slog.Logger

	mu sync.Mutex
}

func NewSequencer(sink Sink, opts ...Option) *Sequencer {
	sequencer := Sequencer{
		sink:   sink,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(&sequencer)
	}

	return &sequencer
}

type Option func(*Sequencer)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sequencer) {
		s.logger = logger
	}
}

// Play blocks until the clip has been played out, the sink fails, or ctx is
// cancelled. It never returns an error.
func (s *Sequencer) Play(ctx context.Context, audio []byte) {
	if s == nil || s.sink == nil || len(audio) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sink.SendAudio(audio); err != nil {
		s.logger.Warn("failed to send audio to playback sink", "error", err)
		return
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		if err := s.sink.AwaitDrained(); err != nil {
			s.logger.Warn("playback did not drain cleanly", "error", err)
		}
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		s.sink.ClearBuffer()
	}
}
