package stream

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Event is one decoded record from a round stream. The concrete type is one
// of Thinking, Response, HumanTurn, HumanResponse or Complete.
type Event interface {
	event()
}

// Thinking announces that an agent has started working on its reply.
type Thinking struct {
	Agent string
}

// Response carries an agent's finished reply. Audio, when present, is the
// decoded narration payload; the codec is a backend detail and the bytes are
// opaque to this client.
type Response struct {
	Agent string
	Text  string
	Audio []byte
}

// HumanTurn signals that the backend is waiting for the human participant.
type HumanTurn struct{}

// HumanResponse carries the human participant's reply, transcribed by the
// backend if it was submitted as audio.
type HumanResponse struct {
	Text string
}

// Complete closes a round and carries the round number the session is now at.
type Complete struct {
	Round int
}

func (Thinking) event()      {}
func (Response) event()      {}
func (HumanTurn) event()     {}
func (HumanResponse) event() {}
func (Complete) event()      {}

type wireEvent struct {
	Type  string `json:"type"`
	Agent string `json:"agent"`
	Text  string `json:"text"`
	Audio string `json:"audio"`
	Round int    `json:"round"`
}

func parseEvent(payload string) (Event, error) {
	var raw wireEvent
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("unmarshalling event: %w", err)
	}

	switch raw.Type {
	case "thinking":
		return Thinking{Agent: raw.Agent}, nil
	case "response":
		var audio []byte
		if raw.Audio != "" {
			var err error
			audio, err = base64.StdEncoding.DecodeString(raw.Audio)
			if err != nil {
				return nil, fmt.Errorf("decoding audio payload: %w", err)
			}
		}
		return Response{Agent: raw.Agent, Text: raw.Text, Audio: audio}, nil
	case "human_turn":
		return HumanTurn{}, nil
	case "human_response":
		return HumanResponse{Text: raw.Text}, nil
	case "complete":
		return Complete{Round: raw.Round}, nil
	default:
		return nil, fmt.Errorf("unknown event type: %q", raw.Type)
	}
}
