package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/autocaption/backend/internal/ffmpeg"
	"github.com/autocaption/backend/internal/project"
	"github.com/autocaption/backend/internal/storage"
)

// maxUploadBytes caps video uploads at 4 GiB.
const maxUploadBytes = 4 << 30

type ProjectsHandler struct {
	store   *project.Store
	tempDir string
}

func NewProjectsHandler(store *project.Store, tempDir string) *ProjectsHandler {
	return &ProjectsHandler{store: store, tempDir: tempDir}
}

// List returns recent projects, newest first.
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.store.List(limit)
	if err != nil {
		jsonError(w, "failed to list projects: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, entries, http.StatusOK)
}

// Get returns a single project by ID.
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProject(w, r)
	if !ok {
		return
	}
	jsonResponse(w, p, http.StatusOK)
}

// Delete removes a project and its directory. Idempotent.
func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(id); err != nil {
		jsonError(w, "failed to delete project: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]bool{"success": true}, http.StatusOK)
}

// Upload accepts a multipart video file and creates a project from it.
func (h *ProjectsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !storage.IsVideoFile(header.Filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(header.Filename)), http.StatusBadRequest)
		return
	}

	if err := os.MkdirAll(h.tempDir, 0755); err != nil {
		jsonError(w, "failed to prepare temp dir", http.StatusInternalServerError)
		return
	}

	tmp, err := os.CreateTemp(h.tempDir, "upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		jsonError(w, "failed to store upload", http.StatusInternalServerError)
		return
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		jsonError(w, "failed to store upload: "+err.Error(), http.StatusInternalServerError)
		return
	}
	tmp.Close()

	p, err := h.store.Create(r.Context(), tmp.Name(), header.Filename)
	if err != nil {
		jsonError(w, "failed to create project: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, p, http.StatusCreated)
}

// Video serves the project's stored video file with range support.
func (h *ProjectsHandler) Video(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProject(w, r)
	if !ok {
		return
	}

	if _, err := os.Stat(p.VideoPath); err != nil {
		jsonError(w, "video file not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", p.OriginalFilename))
	http.ServeFile(w, r, p.VideoPath)
}

// Thumbnail serves the project's thumbnail image.
func (h *ProjectsHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProject(w, r)
	if !ok {
		return
	}

	if p.ThumbnailPath == "" {
		jsonError(w, "thumbnail not found", http.StatusNotFound)
		return
	}
	if _, err := os.Stat(p.ThumbnailPath); err != nil {
		jsonError(w, "thumbnail file not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	http.ServeFile(w, r, p.ThumbnailPath)
}

// VideoInfo probes the stored video and returns its metadata.
func (h *ProjectsHandler) VideoInfo(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProject(w, r)
	if !ok {
		return
	}

	info, err := ffmpeg.Probe(r.Context(), p.VideoPath)
	if err != nil {
		jsonError(w, "could not read video info: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, info, http.StatusOK)
}

// OpenFolder opens the project directory in the platform file manager.
func (h *ProjectsHandler) OpenFolder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.store.OpenFolder(id)
	jsonResponse(w, map[string]bool{"success": err == nil}, http.StatusOK)
}

// SaveSRT writes the SRT file into the project directory.
func (h *ProjectsHandler) SaveSRT(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	translated := r.URL.Query().Get("translated") == "true"

	path, err := h.store.SaveSRTFile(id, translated)
	if err != nil {
		jsonResponse(w, map[string]interface{}{"success": false, "error": err.Error()}, http.StatusOK)
		return
	}
	jsonResponse(w, map[string]interface{}{"success": true, "path": path}, http.StatusOK)
}

// ExportSRT returns the SRT content as a download.
func (h *ProjectsHandler) ExportSRT(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	translated := r.URL.Query().Get("translated") == "true"

	content, err := h.store.ExportSRT(id, translated)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) || errors.Is(err, project.ErrNoSegments) {
			jsonError(w, "no segments to export", http.StatusNotFound)
			return
		}
		jsonError(w, "failed to export: "+err.Error(), http.StatusInternalServerError)
		return
	}

	name := "subtitles.srt"
	if translated {
		name = "subtitles_translated.srt"
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write([]byte(content))
}

type burnRequest struct {
	Translated bool `json:"translated"`
	FontSize   int  `json:"font_size"`
}

// Burn renders the subtitles into the video and returns the output path.
func (h *ProjectsHandler) Burn(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProject(w, r)
	if !ok {
		return
	}

	var req burnRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	srtPath, err := h.store.SaveSRTFile(p.ID, req.Translated)
	if err != nil {
		jsonError(w, "no subtitles to burn: "+err.Error(), http.StatusBadRequest)
		return
	}

	base := project.SanitizeFilename(p.Name)
	if base == "" {
		base = "video"
	}
	outputPath := filepath.Join(h.store.Dir(p.ID), base+"_subtitled.mp4")

	opts := ffmpeg.BurnOptions{FontSize: req.FontSize}
	if err := ffmpeg.BurnSubtitles(r.Context(), p.VideoPath, srtPath, outputPath, opts); err != nil {
		jsonError(w, "failed to burn subtitles: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]interface{}{"success": true, "path": outputPath}, http.StatusOK)
}

func (h *ProjectsHandler) loadProject(w http.ResponseWriter, r *http.Request) (*project.Project, bool) {
	id := chi.URLParam(r, "id")
	p, err := h.store.Get(id)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			jsonError(w, "project not found", http.StatusNotFound)
		} else {
			jsonError(w, "failed to load project: "+err.Error(), http.StatusInternalServerError)
		}
		return nil, false
	}
	return p, true
}
