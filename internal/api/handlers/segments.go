package handlers

import (
	"errors"
	"net/http"

	"github.com/autocaption/backend/internal/project"
)

type SegmentsHandler struct {
	store *project.Store
}

func NewSegmentsHandler(store *project.Store) *SegmentsHandler {
	return &SegmentsHandler{store: store}
}

type updateSegmentRequest struct {
	ProjectID    string `json:"project_id"`
	SegmentID    int    `json:"segment_id"`
	Text         string `json:"text"`
	IsTranslated bool   `json:"is_translated"`
}

// Update edits the text of one segment. Unknown segment IDs are a no-op,
// matching the editor's optimistic save behavior.
func (h *SegmentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateSegmentRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	_, err := h.store.Update(req.ProjectID, func(p *project.Project) {
		segments := p.Segments
		if req.IsTranslated {
			segments = p.TranslatedSegments
		}
		for i := range segments {
			if segments[i].ID == req.SegmentID {
				segments[i].Text = req.Text
				break
			}
		}
	})
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			jsonError(w, "project not found", http.StatusNotFound)
			return
		}
		jsonError(w, "failed to update segment: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]bool{"success": true}, http.StatusOK)
}

type updateSegmentsRequest struct {
	ProjectID    string            `json:"project_id"`
	Segments     []project.Segment `json:"segments"`
	IsTranslated bool              `json:"is_translated"`
}

// UpdateBulk replaces the whole segment list in one write.
func (h *SegmentsHandler) UpdateBulk(w http.ResponseWriter, r *http.Request) {
	var req updateSegmentsRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	_, err := h.store.Update(req.ProjectID, func(p *project.Project) {
		if req.IsTranslated {
			p.TranslatedSegments = req.Segments
		} else {
			p.Segments = req.Segments
		}
	})
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			jsonError(w, "project not found", http.StatusNotFound)
			return
		}
		jsonError(w, "failed to update segments: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]bool{"success": true}, http.StatusOK)
}
