package model

// EventType names an event emitted by the dispatcher.
type EventType string

const (
	EventUtteranceAdded       EventType = "utterance_added"
	EventSuggestionsAvailable EventType = "suggestions_available"
	EventNavigateToArtifact   EventType = "navigate_to_artifact"
	EventError                EventType = "error"
	EventJobStarted           EventType = "job_started"
	EventJobProgress          EventType = "job_progress"
	EventJobDone              EventType = "job_done"
	EventJobFailed            EventType = "job_failed"
)

// Event is one item of the stream returned to the caller of a dispatch.
// Only the fields relevant to Type are populated.
type Event struct {
	Type       EventType  `json:"type"`
	Utterance  *Utterance `json:"utterance,omitempty"`
	URLs       []string   `json:"urls,omitempty"`
	ArtifactID string     `json:"artifact_id,omitempty"`
	Message    string     `json:"message,omitempty"`
	JobID      string     `json:"job_id,omitempty"`
	Progress   string     `json:"progress,omitempty"`
}
