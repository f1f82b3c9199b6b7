// Package discussion drives a simulated group discussion from the backend's
// round event stream: it owns the participants, the transcript and the
// session round counter, gates the stream on the human participant's turn,
// and sequences narration playback so it never races event arrival.
package discussion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/jsalvador/gdsim/core/api"
	"github.com/jsalvador/gdsim/core/stream"
)

// ErrRoundFailed marks a transport-level failure: the round request itself
// or the underlying stream broke. Applied state is kept; no further events
// are processed.
var ErrRoundFailed = errors.New("round failed")

const defaultHumanRole = "Human Participant"

// Backend is the slice of the API client the orchestrator needs.
type Backend interface {
	NextRound(ctx context.Context, simulationID string) (io.ReadCloser, error)
	SubmitAudio(ctx context.Context, simulationID string, clip []byte) (*api.SubmissionResult, error)
	SubmitText(ctx context.Context, simulationID, text string) (*api.SubmissionResult, error)
}

// Player plays one narration clip to completion. Implementations must treat
// playback failure as completion.
type Player interface {
	Play(ctx context.Context, audio []byte)
}

type Session struct {
	ID    string
	Topic string
	Round int
}

// Callbacks decouple observers (the rendering layer) from the orchestrator.
// They are invoked from the event-processing goroutine with snapshots, never
// with live state.
type Callbacks struct {
	OnParticipantsChanged func(participants []Participant)
	OnMessagesChanged     func(messages []Message)
	OnHumanTurn           func()
	OnHumanTurnClosed     func()
	OnRoundComplete       func(round int)
}

type Orchestrator struct {
	backend   Backend
	player    Player
	callbacks Callbacks
	logger    *slog.Logger
	humanName string

	gate humanGate

	mu           sync.Mutex
	session      Session
	participants []Participant
	messages     messageLog
}

func NewOrchestrator(backend Backend, simulation *api.Simulation, topic string, opts ...Option) (*Orchestrator, error) {
	orchestrator := Orchestrator{
		backend: backend,
		logger:  slog.Default(),
		session: Session{ID: simulation.ID, Topic: topic},
	}

	for _, opt := range opts {
		opt(&orchestrator)
	}

	var participants []Participant
	if err := copier.Copy(&participants, &simulation.Agents); err != nil {
		return nil, fmt.Errorf("mapping agents to participants: %w", err)
	}
	for i := range participants {
		participants[i].Status = StatusWaiting
	}

	if orchestrator.humanName != "" {
		participants = append(participants, Participant{
			Name:    orchestrator.humanName,
			Role:    defaultHumanRole,
			Status:  StatusWaiting,
			IsHuman: true,
		})
	}
	orchestrator.participants = participants

	return &orchestrator, nil
}

type Option func(*Orchestrator)

// WithHumanParticipant adds the human to the roster under the given name and
// enables the human-turn gate.
func WithHumanParticipant(name string) Option {
	return func(o *Orchestrator) {
		o.humanName = name
	}
}

func WithPlayer(player Player) Option {
	return func(o *Orchestrator) {
		o.player = player
	}
}

func WithCallbacks(callbacks Callbacks) Option {
	return func(o *Orchestrator) {
		o.callbacks = callbacks
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func (o *Orchestrator) Session() Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

func (o *Orchestrator) Participants() []Participant {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.participants)
}

func (o *Orchestrator) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.messages.snapshot()
}

// HumanTurnOpen reports whether the discussion is waiting on the human
// participant and no submission has taken the turn yet.
func (o *Orchestrator) HumanTurnOpen() bool {
	return o.gate.isOpen()
}

// Run executes the given number of rounds back to back.
func (o *Orchestrator) Run(ctx context.Context, rounds int) error {
	for range rounds {
		if err := o.RunRound(ctx); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// RunRound requests one round from the backend and applies its events
// strictly in arrival order. Undecodable events are dropped and logged;
// a transport failure ends the round with ErrRoundFailed.
func (o *Orchestrator) RunRound(ctx context.Context) error {
	body, err := o.backend.NextRound(ctx, o.session.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRoundFailed, err)
	}
	defer body.Close()

	for event, err := range stream.Events(body) {
		if err != nil {
			var decodeErr *stream.DecodeError
			if errors.As(err, &decodeErr) {
				o.logger.Warn("dropping undecodable event", "error", err)
				continue
			}
			return fmt.Errorf("%w: %v", ErrRoundFailed, err)
		}
		o.apply(ctx, event)
	}

	return nil
}

func (o *Orchestrator) apply(ctx context.Context, event stream.Event) {
	switch event := event.(type) {
	case stream.Thinking:
		o.applyThinking(event)
	case stream.Response:
		o.applyResponse(ctx, event)
	case stream.HumanTurn:
		o.applyHumanTurn()
	case stream.HumanResponse:
		o.applyHumanResponse(event)
	case stream.Complete:
		o.applyComplete(event)
	}
}

func (o *Orchestrator) applyThinking(event stream.Thinking) {
	o.mu.Lock()
	o.setStatus(event.Agent, StatusThinking)
	for i := range o.participants {
		if !o.participants[i].IsHuman && o.participants[i].Name != event.Agent {
			o.participants[i].Status = StatusWaiting
		}
	}
	if !o.messages.hasThinking(event.Agent) {
		o.messages.Push(Message{
			ID:         uuid.NewString(),
			Agent:      event.Agent,
			Role:       o.roleOf(event.Agent),
			IsThinking: true,
		})
	}
	o.mu.Unlock()

	o.notifyParticipants()
	o.notifyMessages()
}

func (o *Orchestrator) applyResponse(ctx context.Context, event stream.Response) {
	o.mu.Lock()
	o.setStatus(event.Agent, StatusSpeaking)
	final := Message{
		ID:    uuid.NewString(),
		Agent: event.Agent,
		Role:  o.roleOf(event.Agent),
		Text:  event.Text,
	}
	if !o.messages.resolveThinking(event.Agent, final) {
		o.messages.Push(final)
	}
	o.mu.Unlock()

	o.notifyParticipants()
	o.notifyMessages()

	// Narration must finish before any later event takes effect, even
	// though the transport may already have buffered it.
	if o.player != nil && len(event.Audio) > 0 {
		o.player.Play(ctx, event.Audio)
	}

	o.mu.Lock()
	o.setStatus(event.Agent, StatusSpoke)
	o.mu.Unlock()
	o.notifyParticipants()
}

func (o *Orchestrator) applyHumanTurn() {
	if o.humanName == "" {
		o.logger.Warn("backend requested a human turn but no human participant is configured")
		return
	}

	o.mu.Lock()
	for i := range o.participants {
		if o.participants[i].IsHuman {
			o.participants[i].Status = StatusThinking
		} else {
			o.participants[i].Status = StatusWaiting
		}
	}
	o.mu.Unlock()

	o.gate.openTurn()
	o.notifyParticipants()
	if o.callbacks.OnHumanTurn != nil {
		o.callbacks.OnHumanTurn()
	}
}

func (o *Orchestrator) applyHumanResponse(event stream.HumanResponse) {
	o.mu.Lock()
	o.messages.Push(Message{
		ID:      uuid.NewString(),
		Agent:   o.humanName,
		Role:    o.roleOf(o.humanName),
		Text:    event.Text,
		IsHuman: true,
	})
	o.setStatus(o.humanName, StatusSpoke)
	o.mu.Unlock()

	o.gate.closeTurn()
	o.notifyParticipants()
	o.notifyMessages()
	if o.callbacks.OnHumanTurnClosed != nil {
		o.callbacks.OnHumanTurnClosed()
	}
}

func (o *Orchestrator) applyComplete(event stream.Complete) {
	o.mu.Lock()
	if event.Round > o.session.Round {
		o.session.Round = event.Round
	}
	round := o.session.Round
	for i := range o.participants {
		o.participants[i].Status = StatusWaiting
	}
	o.mu.Unlock()

	o.notifyParticipants()
	if o.callbacks.OnRoundComplete != nil {
		o.callbacks.OnRoundComplete(round)
	}
}

// SubmitText sends the typed reply as the human turn. On Success=false the
// turn stays open for a retry with either modality.
func (o *Orchestrator) SubmitText(ctx context.Context, text string) (*api.SubmissionResult, error) {
	return o.submit(ctx, func(ctx context.Context) (*api.SubmissionResult, error) {
		return o.backend.SubmitText(ctx, o.session.ID, text)
	})
}

// SubmitAudio sends a recorded clip as the human turn.
func (o *Orchestrator) SubmitAudio(ctx context.Context, clip []byte) (*api.SubmissionResult, error) {
	return o.submit(ctx, func(ctx context.Context) (*api.SubmissionResult, error) {
		return o.backend.SubmitAudio(ctx, o.session.ID, clip)
	})
}

func (o *Orchestrator) submit(ctx context.Context, send func(ctx context.Context) (*api.SubmissionResult, error)) (*api.SubmissionResult, error) {
	if err := o.gate.begin(); err != nil {
		return nil, err
	}

	result, err := send(ctx)
	if err != nil {
		o.gate.fail()
		return nil, fmt.Errorf("submitting human input: %w", err)
	}
	if !result.Success {
		o.gate.fail()
		return result, nil
	}

	// The backend emits the matching human_response event on the round
	// stream; the gate closes when that event is applied.
	return result, nil
}

// setStatus flips the named participant's status, registering the
// participant first if the backend introduced a name we have not seen.
func (o *Orchestrator) setStatus(name string, status Status) {
	for i := range o.participants {
		if o.participants[i].Name == name {
			o.participants[i].Status = status
			return
		}
	}
	o.participants = append(o.participants, Participant{Name: name, Status: status})
}

// roleOf reads the current roster, never a captured snapshot of it.
func (o *Orchestrator) roleOf(name string) string {
	for i := range o.participants {
		if o.participants[i].Name == name {
			return o.participants[i].Role
		}
	}
	return ""
}

func (o *Orchestrator) notifyParticipants() {
	if o.callbacks.OnParticipantsChanged != nil {
		o.callbacks.OnParticipantsChanged(o.Participants())
	}
}

func (o *Orchestrator) notifyMessages() {
	if o.callbacks.OnMessagesChanged != nil {
		o.callbacks.OnMessagesChanged(o.Messages())
	}
}
