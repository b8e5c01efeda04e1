package engine

import "github.com/clinicstack/noshow-engine/internal/models"

// EventType tags messages flowing from the background host to callers.
// The tag strings and field names below are the wire contract; existing
// callers depend on them exactly.
type EventType string

const (
	// EventSamples carries a small preview of encoded training strings,
	// emitted once near the start of a run.
	EventSamples EventType = "samples"
	// EventLog carries a human-readable progress line. Informational
	// only; never used for control flow.
	EventLog EventType = "log"
	// EventProgress reports training advancement at a fixed cadence.
	EventProgress EventType = "progress"
	// EventDone is the terminal success message for a run.
	EventDone EventType = "done"
	// EventError is the terminal failure message for a run.
	EventError EventType = "error"
	// EventPrediction answers a predict request after a completed run.
	EventPrediction EventType = "prediction"
)

// Event is one host-to-caller message. Only the fields relevant to the
// event type are populated.
type Event struct {
	Type            EventType           `json:"type"`
	RunID           string              `json:"runId,omitempty"`
	Examples        []string            `json:"examples,omitempty"`
	Message         string              `json:"message,omitempty"`
	PercentComplete float64             `json:"percentComplete,omitempty"`
	CurrentError    float64             `json:"currentError,omitempty"`
	Metrics         *models.TextMetrics `json:"metrics,omitempty"`
	Label           string              `json:"label,omitempty"`
	CleanedText     string              `json:"cleanedText,omitempty"`
}
