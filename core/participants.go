package discussion

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusThinking Status = "thinking"
	StatusSpeaking Status = "speaking"
	StatusSpoke    Status = "spoke"
)

// Participant is one member of the discussion, agent or human. Unique by
// name within a session; only the orchestrator mutates its status.
type Participant struct {
	Name    string
	Role    string `copier:"Persona"`
	Status  Status
	IsHuman bool
}
