package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/autocaption/backend/internal/jobs"
	"github.com/autocaption/backend/internal/project"
	"github.com/autocaption/backend/internal/translate"
)

type TranslateHandler struct {
	store    *project.Store
	registry *jobs.Registry
	runner   *translate.Runner
}

func NewTranslateHandler(store *project.Store, registry *jobs.Registry, runner *translate.Runner) *TranslateHandler {
	return &TranslateHandler{store: store, registry: registry, runner: runner}
}

type translateRequest struct {
	ProjectID  string `json:"project_id"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

// Start kicks off a background translation of the project's segments.
// Requires an existing transcription; duplicates are rejected with 409.
func (h *TranslateHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SourceLang == "" {
		req.SourceLang = "auto"
	}
	if req.TargetLang == "" {
		jsonError(w, "target_lang is required", http.StatusBadRequest)
		return
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
	if len(p.Segments) == 0 {
		jsonError(w, "No segments to translate. Run transcription first.", http.StatusBadRequest)
		return
	}

	task, err := h.registry.Start(context.Background(), jobs.KindTranslate, p.ID, len(p.Segments))
	if err != nil {
		if errors.Is(err, jobs.ErrJobRunning) {
			jsonError(w, "translation already running for this project", http.StatusConflict)
			return
		}
		jsonError(w, "failed to start translation: "+err.Error(), http.StatusInternalServerError)
		return
	}

	go h.run(task, p, req)

	jsonResponse(w, map[string]string{
		"message":    "Translation started",
		"project_id": p.ID,
	}, http.StatusOK)
}

func (h *TranslateHandler) run(task *jobs.Task, p *project.Project, req translateRequest) {
	for ev := range h.runner.Run(task.Context(), p.Segments, req.SourceLang, req.TargetLang) {
		switch ev.Type {
		case translate.EventStatus:
			h.registry.SetStatus(jobs.KindTranslate, p.ID, ev.Message)
		case translate.EventWarning:
			log.Printf("[translate] %s: %s", p.ID, ev.Message)
		case translate.EventSegment:
			remaining := ev.Remaining
			h.registry.AddSegment(jobs.KindTranslate, p.ID, *ev.Segment, ev.Progress, ev.Current, &remaining)
		case translate.EventComplete:
			// Mark the snapshot complete before persisting, so pollers
			// never see a translated project behind an in-flight status.
			h.registry.Complete(jobs.KindTranslate, p.ID)
			_, err := h.store.Update(p.ID, func(p *project.Project) {
				p.TranslatedSegments = ev.Segments
				p.SourceLanguage = req.SourceLang
				p.TargetLanguage = req.TargetLang
				p.Status = project.StatusTranslated
			})
			if err != nil {
				h.registry.Fail(jobs.KindTranslate, p.ID, "failed to save segments: "+err.Error())
				return
			}
			if _, err := h.store.SaveSRTFile(p.ID, true); err != nil {
				log.Printf("[translate] auto-save srt failed for %s: %v", p.ID, err)
			}
		case translate.EventError:
			h.registry.Fail(jobs.KindTranslate, p.ID, ev.Message)
		}
	}
}

// Progress reports the live job state, falling back to persisted translated
// segments when no job is tracked.
func (h *TranslateHandler) Progress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if snap, ok := h.registry.Snapshot(jobs.KindTranslate, id); ok {
		jsonResponse(w, snap, http.StatusOK)
		return
	}

	if p, err := h.store.Get(id); err == nil && len(p.TranslatedSegments) > 0 {
		jsonResponse(w, jobs.Snapshot{
			Status:   jobs.StatusComplete,
			Progress: 100,
			Segments: p.TranslatedSegments,
		}, http.StatusOK)
		return
	}

	jsonResponse(w, jobs.Snapshot{
		Status:   jobs.StatusNotStarted,
		Progress: 0,
		Segments: []project.Segment{},
	}, http.StatusOK)
}
