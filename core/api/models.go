package api

// StartRequest is the body of POST /start_simulation.
type StartRequest struct {
	Topic            string `json:"topic"`
	NumAgents        int    `json:"num_agents"`
	Rounds           int    `json:"rounds"`
	HumanParticipant bool   `json:"human_participant"`
}

type Agent struct {
	Name    string `json:"name"`
	Persona string `json:"persona"`
}

type Simulation struct {
	ID     string  `json:"simulation_id"`
	Agents []Agent `json:"agents"`
}

// SubmissionResult is the backend's verdict on one human-input submission.
// Success=false means the turn is still open and the caller may retry with
// either modality.
type SubmissionResult struct {
	Success         bool   `json:"success"`
	TranscribedText string `json:"transcribed_text,omitempty"`
	Error           string `json:"error,omitempty"`
}

type Health struct {
	VoskModelLoaded bool `json:"vosk_model_loaded"`
	FfmpegAvailable bool `json:"ffmpeg_available"`
}

// SpeechCapable reports whether the backend can take audio submissions at
// all. Without it the client must fall back to text-only input.
func (h Health) SpeechCapable() bool {
	return h.VoskModelLoaded && h.FfmpegAvailable
}
