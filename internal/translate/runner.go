package translate

import (
	"context"
	"fmt"
	"time"

	"github.com/autocaption/backend/internal/project"
)

// Runner translates a segment list one cue at a time, streaming progress
// events with a remaining-time estimate.
type Runner struct {
	translator TextTranslator
}

func NewRunner(translator TextTranslator) *Runner {
	return &Runner{translator: translator}
}

// Run translates segments and streams events. A failed segment produces a
// warning and keeps its original text; the job continues with the rest.
// The channel is closed after the terminal event (complete or error).
func (r *Runner) Run(ctx context.Context, segments []project.Segment, sourceLang, targetLang string) <-chan Event {
	events := make(chan Event)

	go func() {
		defer close(events)

		events <- Event{Type: EventStatus, Message: "Loading translation model..."}

		if err := r.translator.Load(ctx); err != nil {
			events <- Event{Type: EventError, Message: fmt.Sprintf("Failed to load model: %v", err)}
			return
		}

		events <- Event{Type: EventStatus, Message: "Starting translation..."}

		total := len(segments)
		translated := make([]project.Segment, 0, total)
		start := time.Now()

		for i, seg := range segments {
			text, err := r.translator.TranslateText(ctx, seg.Text, sourceLang, targetLang)
			if err != nil {
				events <- Event{
					Type:      EventWarning,
					Message:   fmt.Sprintf("Failed to translate segment %d: %v", i+1, err),
					SegmentID: seg.ID,
				}
				// Keep the original segment untouched.
				translated = append(translated, seg)
				continue
			}

			out := seg
			out.OriginalText = seg.Text
			out.Text = text
			translated = append(translated, out)

			elapsed := time.Since(start).Seconds()
			done := i + 1
			remaining := elapsed / float64(done) * float64(total-done)

			events <- Event{
				Type:      EventSegment,
				Segment:   &out,
				Progress:  float64(done) / float64(total) * 100,
				Current:   done,
				Total:     total,
				Elapsed:   elapsed,
				Remaining: remaining,
			}
		}

		events <- Event{
			Type:     EventComplete,
			Segments: translated,
			Elapsed:  time.Since(start).Seconds(),
		}
	}()

	return events
}
