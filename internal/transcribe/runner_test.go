package transcribe

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	loadErr       error
	transcribeErr error
	result        *Result
	loadedSize    string
}

func (f *fakeEngine) Load(ctx context.Context, modelSize string) error {
	f.loadedSize = modelSize
	return f.loadErr
}

func (f *fakeEngine) Transcribe(ctx context.Context, mediaPath, language string) (*Result, error) {
	if f.transcribeErr != nil {
		return nil, f.transcribeErr
	}
	return f.result, nil
}

func collect(ch <-chan Event) []Event {
	var events []Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func floatPtr(v float64) *float64 { return &v }

func TestRunner_EmitsSegmentsAndComplete(t *testing.T) {
	engine := &fakeEngine{result: &Result{
		Language: "en",
		Chunks: []Chunk{
			{Start: 0, End: floatPtr(2.5), Text: " Hello there. "},
			{Start: 2.5, End: floatPtr(5), Text: "Second line."},
		},
	}}

	events := collect(NewRunner(engine).Run(context.Background(), "video.mp4", "base", "auto"))
	require.Len(t, events, 5)

	assert.Equal(t, EventStatus, events[0].Type)
	assert.Equal(t, "Loading Whisper base model...", events[0].Message)
	assert.Equal(t, "base", engine.loadedSize)
	assert.Equal(t, EventStatus, events[1].Type)

	seg1 := events[2]
	require.Equal(t, EventSegment, seg1.Type)
	assert.Equal(t, 1, seg1.Segment.ID)
	assert.Equal(t, "Hello there.", seg1.Segment.Text)
	assert.Equal(t, 2.5, seg1.Segment.End)
	assert.Equal(t, 50.0, seg1.Progress)

	seg2 := events[3]
	require.Equal(t, EventSegment, seg2.Type)
	assert.Equal(t, 2, seg2.Segment.ID)
	assert.Equal(t, 100.0, seg2.Progress)

	done := events[4]
	require.Equal(t, EventComplete, done.Type)
	assert.Len(t, done.Segments, 2)
	assert.Equal(t, "en", done.Language)
}

func TestRunner_SkipsEmptyChunksAndRenumbers(t *testing.T) {
	engine := &fakeEngine{result: &Result{
		Chunks: []Chunk{
			{Start: 0, End: floatPtr(1), Text: "first"},
			{Start: 1, End: floatPtr(2), Text: "   "},
			{Start: 2, End: floatPtr(3), Text: "third"},
		},
	}}

	events := collect(NewRunner(engine).Run(context.Background(), "video.mp4", "base", "auto"))
	complete := events[len(events)-1]
	require.Equal(t, EventComplete, complete.Type)

	require.Len(t, complete.Segments, 2)
	assert.Equal(t, 1, complete.Segments[0].ID)
	assert.Equal(t, 2, complete.Segments[1].ID)
	assert.Equal(t, "third", complete.Segments[1].Text)
	// Progress reflects the raw chunk position, not the kept count.
	assert.Equal(t, 100.0, events[len(events)-2].Progress)
}

func TestRunner_DefaultsMissingEndTimestamp(t *testing.T) {
	engine := &fakeEngine{result: &Result{
		Chunks: []Chunk{{Start: 10, Text: "open ended"}},
	}}

	events := collect(NewRunner(engine).Run(context.Background(), "video.mp4", "base", "auto"))
	complete := events[len(events)-1]
	require.Equal(t, EventComplete, complete.Type)
	require.Len(t, complete.Segments, 1)
	assert.Equal(t, 15.0, complete.Segments[0].End)
}

func TestRunner_NoChunksFallsBackToFullText(t *testing.T) {
	engine := &fakeEngine{result: &Result{Text: "the whole thing"}}

	events := collect(NewRunner(engine).Run(context.Background(), "video.mp4", "base", "auto"))
	complete := events[len(events)-1]
	require.Equal(t, EventComplete, complete.Type)
	require.Len(t, complete.Segments, 1)
	assert.Equal(t, "the whole thing", complete.Segments[0].Text)
	assert.Equal(t, 0.0, complete.Segments[0].Start)
	assert.Equal(t, 5.0, complete.Segments[0].End)
}

func TestRunner_LoadErrorIsTerminal(t *testing.T) {
	engine := &fakeEngine{loadErr: fmt.Errorf("model file missing")}

	events := collect(NewRunner(engine).Run(context.Background(), "video.mp4", "base", "auto"))
	last := events[len(events)-1]
	assert.Equal(t, EventError, last.Type)
	assert.Equal(t, "Failed to load model: model file missing", last.Message)
}

func TestRunner_TranscribeErrorIsTerminal(t *testing.T) {
	engine := &fakeEngine{transcribeErr: fmt.Errorf("inference failed")}

	events := collect(NewRunner(engine).Run(context.Background(), "video.mp4", "base", "auto"))
	last := events[len(events)-1]
	assert.Equal(t, EventError, last.Type)
	assert.Equal(t, "inference failed", last.Message)
}
