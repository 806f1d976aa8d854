package translate

import (
	"context"

	"github.com/autocaption/backend/internal/project"
)

// TextTranslator abstracts the local language model. Load is idempotent;
// implementations own the model lifecycle.
type TextTranslator interface {
	Load(ctx context.Context) error
	TranslateText(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// EventType classifies progress events emitted by a running job.
type EventType string

const (
	EventStatus   EventType = "status"
	EventSegment  EventType = "segment"
	EventWarning  EventType = "warning"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is one progress update. Warning events are non-terminal: the job
// keeps the failed segment untranslated and continues.
type Event struct {
	Type      EventType
	Message   string
	Segment   *project.Segment
	SegmentID int
	Progress  float64
	Current   int
	Total     int
	Elapsed   float64
	Remaining float64
	Segments  []project.Segment
}
