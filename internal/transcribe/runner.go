package transcribe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/autocaption/backend/internal/project"
)

// When a chunk has no end timestamp, the segment gets a default duration.
const defaultSegmentSeconds = 5

// Runner turns one media file into an ordered stream of progress events.
type Runner struct {
	engine Engine
}

func NewRunner(engine Engine) *Runner {
	return &Runner{engine: engine}
}

// Run transcribes mediaPath with the requested model size and streams
// progress events. The channel is closed after the terminal event
// (complete or error).
func (r *Runner) Run(ctx context.Context, mediaPath, modelSize, language string) <-chan Event {
	events := make(chan Event)

	go func() {
		defer close(events)
		start := time.Now()

		events <- Event{Type: EventStatus, Message: fmt.Sprintf("Loading Whisper %s model...", modelSize)}

		if err := r.engine.Load(ctx, modelSize); err != nil {
			events <- Event{Type: EventError, Message: fmt.Sprintf("Failed to load model: %v", err)}
			return
		}

		events <- Event{Type: EventStatus, Message: "Transcribing audio..."}

		result, err := r.engine.Transcribe(ctx, mediaPath, language)
		if err != nil {
			events <- Event{Type: EventError, Message: err.Error()}
			return
		}

		chunks := result.Chunks
		if len(chunks) == 0 {
			// No chunked output: fall back to a single segment covering
			// the full text.
			chunks = []Chunk{{Start: 0, Text: result.Text}}
		}

		var segments []project.Segment
		for i, chunk := range chunks {
			end := chunk.Start + defaultSegmentSeconds
			if chunk.End != nil {
				end = *chunk.End
			}

			text := strings.TrimSpace(chunk.Text)
			if text == "" {
				continue
			}

			seg := project.Segment{
				ID:    len(segments) + 1,
				Start: chunk.Start,
				End:   end,
				Text:  text,
			}
			segments = append(segments, seg)

			progress := float64(i+1) / float64(len(chunks)) * 100
			if progress > 100 {
				progress = 100
			}
			events <- Event{Type: EventSegment, Segment: &seg, Progress: progress}
		}

		events <- Event{
			Type:     EventComplete,
			Segments: segments,
			Elapsed:  time.Since(start).Seconds(),
			Language: result.Language,
		}
	}()

	return events
}
