package discussion

import "slices"

// Message is one entry in the discussion transcript. While IsThinking is set
// it is a provisional placeholder that the agent's final reply will replace
// in place.
type Message struct {
	ID         string
	Agent      string
	Role       string
	Text       string
	IsThinking bool
	IsHuman    bool
}

// messageLog is append-only in arrival order, except that an agent's
// thinking placeholder is overwritten by its final message.
type messageLog []Message

// Push adds a new message to the log
func (l *messageLog) Push(message Message) {
	*l = append(*l, message)
}

// hasThinking reports whether the agent already has a thinking placeholder.
func (l messageLog) hasThinking(agent string) bool {
	for i := range l {
		if l[i].IsThinking && l[i].Agent == agent {
			return true
		}
	}
	return false
}

// resolveThinking overwrites the agent's thinking placeholder, keeping its
// slot and id. Reports whether a placeholder was found.
func (l messageLog) resolveThinking(agent string, final Message) bool {
	for i := range l {
		if l[i].IsThinking && l[i].Agent == agent {
			final.ID = l[i].ID
			l[i] = final
			return true
		}
	}
	return false
}

func (l messageLog) snapshot() []Message {
	return slices.Clone(l)
}

// Values is an iterator that goes over all the stored messages starting from
// the earliest towards the latest
func (l messageLog) Values(yield func(Message) bool) {
	for _, message := range l {
		if !yield(message) {
			return
		}
	}
}
