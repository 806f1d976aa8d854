package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/autocaption/backend/internal/jobs"
	"github.com/autocaption/backend/internal/project"
	"github.com/autocaption/backend/internal/transcribe"
)

type TranscribeHandler struct {
	store    *project.Store
	registry *jobs.Registry
	runner   *transcribe.Runner
}

func NewTranscribeHandler(store *project.Store, registry *jobs.Registry, runner *transcribe.Runner) *TranscribeHandler {
	return &TranscribeHandler{store: store, registry: registry, runner: runner}
}

type transcribeRequest struct {
	ProjectID string `json:"project_id"`
	ModelSize string `json:"model_size"`
	Language  string `json:"language"`
}

// Start kicks off a background transcription for a project. A second start
// while one is running is rejected with 409.
func (h *TranscribeHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ModelSize == "" {
		req.ModelSize = "base"
	}
	if req.Language == "" {
		req.Language = "auto"
	}

	p, err := h.store.Get(req.ProjectID)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			jsonError(w, "project not found", http.StatusNotFound)
			return
		}
		jsonError(w, "failed to load project: "+err.Error(), http.StatusInternalServerError)
		return
	}

	task, err := h.registry.Start(context.Background(), jobs.KindTranscribe, p.ID, 0)
	if err != nil {
		if errors.Is(err, jobs.ErrJobRunning) {
			jsonError(w, "transcription already running for this project", http.StatusConflict)
			return
		}
		jsonError(w, "failed to start transcription: "+err.Error(), http.StatusInternalServerError)
		return
	}

	go h.run(task, p, req)

	jsonResponse(w, map[string]string{
		"message":    "Transcription started",
		"project_id": p.ID,
	}, http.StatusOK)
}

func (h *TranscribeHandler) run(task *jobs.Task, p *project.Project, req transcribeRequest) {
	for ev := range h.runner.Run(task.Context(), p.VideoPath, req.ModelSize, req.Language) {
		switch ev.Type {
		case transcribe.EventStatus:
			h.registry.SetStatus(jobs.KindTranscribe, p.ID, ev.Message)
		case transcribe.EventSegment:
			h.registry.AddSegment(jobs.KindTranscribe, p.ID, *ev.Segment, ev.Progress, 0, nil)
		case transcribe.EventComplete:
			// Mark the snapshot complete before persisting, so pollers
			// never see a transcribed project behind an in-flight status.
			h.registry.Complete(jobs.KindTranscribe, p.ID)
			_, err := h.store.Update(p.ID, func(p *project.Project) {
				p.Segments = ev.Segments
				p.WhisperModel = req.ModelSize
				if ev.Language != "" {
					p.SourceLanguage = ev.Language
				}
				p.Status = project.StatusTranscribed
			})
			if err != nil {
				h.registry.Fail(jobs.KindTranscribe, p.ID, "failed to save segments: "+err.Error())
				return
			}
			if _, err := h.store.SaveSRTFile(p.ID, false); err != nil {
				log.Printf("[transcribe] auto-save srt failed for %s: %v", p.ID, err)
			}
		case transcribe.EventError:
			h.registry.Fail(jobs.KindTranscribe, p.ID, ev.Message)
		}
	}
}

// Progress reports the live job state, falling back to persisted segments
// when no job is tracked (for example after a restart).
func (h *TranscribeHandler) Progress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if snap, ok := h.registry.Snapshot(jobs.KindTranscribe, id); ok {
		jsonResponse(w, snap, http.StatusOK)
		return
	}

	if p, err := h.store.Get(id); err == nil && len(p.Segments) > 0 {
		jsonResponse(w, jobs.Snapshot{
			Status:   jobs.StatusComplete,
			Progress: 100,
			Segments: p.Segments,
		}, http.StatusOK)
		return
	}

	jsonResponse(w, jobs.Snapshot{
		Status:   jobs.StatusNotStarted,
		Progress: 0,
		Segments: []project.Segment{},
	}, http.StatusOK)
}
