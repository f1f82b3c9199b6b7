package discussion

import (
	"errors"
	"sync"
)

var (
	// ErrNoHumanTurn means a submission was attempted while the backend was
	// not waiting on the human participant.
	ErrNoHumanTurn = errors.New("no human turn in progress")

	// ErrTurnAlreadyTaken means another submission already succeeded for
	// this turn, or is still in flight.
	ErrTurnAlreadyTaken = errors.New("human turn already taken")
)

// humanGate is the single resolution point both input modalities race for.
// The first successful submission takes the turn; concurrent attempts get an
// explicit rejection. A failed submission hands the turn back so the user
// can retry with either modality.
type humanGate struct {
	mu    sync.Mutex
	open  bool
	taken bool
}

func (g *humanGate) openTurn() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = true
	g.taken = false
}

func (g *humanGate) closeTurn() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = false
	g.taken = false
}

func (g *humanGate) begin() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open {
		return ErrNoHumanTurn
	}
	if g.taken {
		return ErrTurnAlreadyTaken
	}
	g.taken = true
	return nil
}

func (g *humanGate) fail() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.taken = false
}

func (g *humanGate) isOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open && !g.taken
}
