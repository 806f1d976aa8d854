package translate

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocaption/backend/internal/project"
)

type fakeTranslator struct {
	loadErr error
	failIDs map[string]bool // original texts that fail
}

func (f *fakeTranslator) Load(ctx context.Context) error { return f.loadErr }

func (f *fakeTranslator) TranslateText(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if f.failIDs[text] {
		return "", fmt.Errorf("model timeout")
	}
	return strings.ToUpper(text), nil
}

func collect(ch <-chan Event) []Event {
	var events []Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func testSegments() []project.Segment {
	return []project.Segment{
		{ID: 1, Start: 0, End: 2, Text: "hello"},
		{ID: 2, Start: 2, End: 4, Text: "world"},
	}
}

func TestRunner_TranslatesAllSegments(t *testing.T) {
	runner := NewRunner(&fakeTranslator{})

	events := collect(runner.Run(context.Background(), testSegments(), "auto", "spanish"))
	complete := events[len(events)-1]
	require.Equal(t, EventComplete, complete.Type)

	require.Len(t, complete.Segments, 2)
	assert.Equal(t, "HELLO", complete.Segments[0].Text)
	assert.Equal(t, "hello", complete.Segments[0].OriginalText)
	assert.Equal(t, "WORLD", complete.Segments[1].Text)

	// Timing fields on the per-segment events.
	var segEvents []Event
	for _, ev := range events {
		if ev.Type == EventSegment {
			segEvents = append(segEvents, ev)
		}
	}
	require.Len(t, segEvents, 2)
	assert.Equal(t, 1, segEvents[0].Current)
	assert.Equal(t, 2, segEvents[0].Total)
	assert.Equal(t, 50.0, segEvents[0].Progress)
	assert.Equal(t, 100.0, segEvents[1].Progress)
	assert.Equal(t, 0.0, segEvents[1].Remaining)
}

func TestRunner_FailedSegmentKeepsOriginal(t *testing.T) {
	runner := NewRunner(&fakeTranslator{failIDs: map[string]bool{"world": true}})

	events := collect(runner.Run(context.Background(), testSegments(), "auto", "spanish"))

	var warning *Event
	for i := range events {
		if events[i].Type == EventWarning {
			warning = &events[i]
		}
	}
	require.NotNil(t, warning)
	assert.Equal(t, 2, warning.SegmentID)
	assert.Contains(t, warning.Message, "Failed to translate segment 2")

	complete := events[len(events)-1]
	require.Equal(t, EventComplete, complete.Type)
	require.Len(t, complete.Segments, 2)
	assert.Equal(t, "HELLO", complete.Segments[0].Text)
	// The failed segment passes through untouched, no original_text marker.
	assert.Equal(t, "world", complete.Segments[1].Text)
	assert.Empty(t, complete.Segments[1].OriginalText)
}

func TestRunner_LoadErrorIsTerminal(t *testing.T) {
	runner := NewRunner(&fakeTranslator{loadErr: fmt.Errorf("gguf missing")})

	events := collect(runner.Run(context.Background(), testSegments(), "auto", "spanish"))
	last := events[len(events)-1]
	assert.Equal(t, EventError, last.Type)
	assert.Equal(t, "Failed to load model: gguf missing", last.Message)
}
