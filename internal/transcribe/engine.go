package transcribe

import (
	"context"

	"github.com/autocaption/backend/internal/project"
)

// Chunk is one raw timed span from the speech model, before subtitle
// numbering and filtering.
type Chunk struct {
	Start float64
	End   *float64 // nil when the model produced no end timestamp
	Text  string
}

// Result is the model's full output for one media file.
type Result struct {
	Text     string
	Language string
	Chunks   []Chunk
}

// Engine abstracts the speech model. Load is idempotent for the same model
// size; switching sizes unloads the previous model first.
type Engine interface {
	Load(ctx context.Context, modelSize string) error
	Transcribe(ctx context.Context, mediaPath, language string) (*Result, error)
}

// EventType classifies progress events emitted by a running job.
type EventType string

const (
	EventStatus   EventType = "status"
	EventSegment  EventType = "segment"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is one progress update. Error events are terminal: nothing follows
// them, and no complete event is emitted.
type Event struct {
	Type     EventType
	Message  string
	Segment  *project.Segment
	Progress float64
	Segments []project.Segment
	Elapsed  float64
	Language string
}
