package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/autocaption/backend/internal/project"
)

// Kind distinguishes the two tracked job types.
type Kind string

const (
	KindTranscribe Kind = "transcribe"
	KindTranslate  Kind = "translate"
)

// Sentinel statuses. Everything in between is a free-form human-readable
// message from the running job.
const (
	StatusStarting   = "starting"
	StatusComplete   = "complete"
	StatusNotStarted = "not_started"
	errorPrefix      = "error: "
)

// ErrJobRunning is returned when a second job of the same kind is started
// for a project that already has one in flight.
var ErrJobRunning = errors.New("job already running for this project")

// Snapshot is the pollable view of an in-flight or finished job. It is
// best-effort and non-durable; the persisted project is the source of truth.
type Snapshot struct {
	Status   string            `json:"status"`
	Progress float64           `json:"progress"`
	Segments []project.Segment `json:"segments"`

	// Translation-only fields.
	Current   int      `json:"current,omitempty"`
	Total     int      `json:"total,omitempty"`
	Remaining *float64 `json:"remaining,omitempty"`
}

// Task is the handle for one scheduled background job. Cancellation is part
// of the contract even though the HTTP surface does not expose it yet.
type Task struct {
	Kind      Kind
	ProjectID string

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Context is the task's cancellable context; workers should pass it to
// every blocking operation.
func (t *Task) Context() context.Context { return t.ctx }

// Cancel requests the task to stop.
func (t *Task) Cancel() { t.cancel() }

// Done is closed when the task reaches a terminal state.
func (t *Task) Done() <-chan struct{} { return t.done }

func (t *Task) finish() {
	t.once.Do(func() {
		t.cancel()
		close(t.done)
	})
}

type key struct {
	kind      Kind
	projectID string
}

type entry struct {
	snap      Snapshot
	task      *Task
	terminal  bool
	updatedAt time.Time
}

// Registry tracks the latest progress snapshot per (kind, project). It is
// owned by the composition root and passed to handlers; terminal entries
// are evicted after a TTL so memory stays bounded.
type Registry struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[key]*entry
}

func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Registry{
		ttl:     ttl,
		entries: make(map[key]*entry),
	}
}

// Start registers a fresh "starting" snapshot and returns the task handle.
// A project can have at most one active job per kind.
func (r *Registry) Start(ctx context.Context, kind Kind, projectID string, total int) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune()

	k := key{kind, projectID}
	if e, ok := r.entries[k]; ok && !e.terminal {
		return nil, ErrJobRunning
	}

	taskCtx, cancel := context.WithCancel(ctx)
	task := &Task{
		Kind:      kind,
		ProjectID: projectID,
		ctx:       taskCtx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	r.entries[k] = &entry{
		snap: Snapshot{
			Status:   StatusStarting,
			Segments: []project.Segment{},
			Total:    total,
		},
		task:      task,
		updatedAt: time.Now(),
	}
	return task, nil
}

// SetStatus overwrites the human-readable status message.
func (r *Registry) SetStatus(kind Kind, projectID, status string) {
	r.mutate(kind, projectID, func(e *entry) {
		e.snap.Status = status
	})
}

// AddSegment appends one finished segment and updates progress counters.
func (r *Registry) AddSegment(kind Kind, projectID string, seg project.Segment, progress float64, current int, remaining *float64) {
	r.mutate(kind, projectID, func(e *entry) {
		e.snap.Segments = append(e.snap.Segments, seg)
		e.snap.Progress = progress
		e.snap.Current = current
		e.snap.Remaining = remaining
	})
}

// Complete marks the job finished and releases its task handle.
func (r *Registry) Complete(kind Kind, projectID string) {
	r.mutate(kind, projectID, func(e *entry) {
		e.snap.Status = StatusComplete
		e.snap.Progress = 100
		e.terminal = true
		if e.task != nil {
			e.task.finish()
		}
	})
}

// Fail records a terminal error status. Progress and accumulated segments
// are left as they were when the failure happened.
func (r *Registry) Fail(kind Kind, projectID, message string) {
	r.mutate(kind, projectID, func(e *entry) {
		e.snap.Status = errorPrefix + message
		e.terminal = true
		if e.task != nil {
			e.task.finish()
		}
	})
}

// Snapshot returns a copy of the current snapshot, or false when the
// project has no entry (never started, or evicted).
func (r *Registry) Snapshot(kind Kind, projectID string) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune()

	e, ok := r.entries[key{kind, projectID}]
	if !ok {
		return Snapshot{}, false
	}

	snap := e.snap
	snap.Segments = append([]project.Segment(nil), e.snap.Segments...)
	return snap, true
}

func (r *Registry) mutate(kind Kind, projectID string, fn func(*entry)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key{kind, projectID}]
	if !ok {
		return
	}
	fn(e)
	e.updatedAt = time.Now()
}

// prune drops terminal entries older than the TTL. Callers hold r.mu.
func (r *Registry) prune() {
	cutoff := time.Now().Add(-r.ttl)
	for k, e := range r.entries {
		if e.terminal && e.updatedAt.Before(cutoff) {
			delete(r.entries, k)
		}
	}
}
