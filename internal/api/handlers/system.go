package handlers

import (
	"net/http"

	"github.com/autocaption/backend/internal/installer"
)

type SystemHandler struct {
	installer *installer.Service
}

func NewSystemHandler(svc *installer.Service) *SystemHandler {
	return &SystemHandler{installer: svc}
}

// Status returns the dependency checklist plus an overall ready flag.
func (h *SystemHandler) Status(w http.ResponseWriter, r *http.Request) {
	size := r.URL.Query().Get("whisper_model")
	status := h.installer.Status(r.Context(), size)

	jsonResponse(w, map[string]interface{}{
		"components": status,
		"ready":      status.FFmpeg.Installed && status.WhisperModel.Installed,
	}, http.StatusOK)
}

// InstallFFmpeg downloads ffmpeg where supported.
func (h *SystemHandler) InstallFFmpeg(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, h.installer.InstallFFmpeg(r.Context()), http.StatusOK)
}

type downloadWhisperRequest struct {
	ModelSize string `json:"model_size"`
}

// DownloadWhisperModel fetches a whisper model from Hugging Face.
func (h *SystemHandler) DownloadWhisperModel(w http.ResponseWriter, r *http.Request) {
	var req downloadWhisperRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ModelSize == "" {
		req.ModelSize = "base"
	}
	jsonResponse(w, h.installer.DownloadWhisperModel(r.Context(), req.ModelSize), http.StatusOK)
}

// DownloadTranslationModel fetches the translation model from Hugging Face.
func (h *SystemHandler) DownloadTranslationModel(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, h.installer.DownloadTranslationModel(r.Context()), http.StatusOK)
}
