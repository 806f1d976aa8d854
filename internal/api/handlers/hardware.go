package handlers

import (
	"net/http"

	"github.com/autocaption/backend/internal/hardware"
)

type HardwareHandler struct {
	detector *hardware.Detector
}

func NewHardwareHandler(detector *hardware.Detector) *HardwareHandler {
	return &HardwareHandler{detector: detector}
}

// Status returns the combined system, GPU, and recommendation report.
func (h *HardwareHandler) Status(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, h.detector.FullStatus(r.Context()), http.StatusOK)
}

// GPUs returns the detected adapters.
func (h *HardwareHandler) GPUs(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, h.detector.GPUs(r.Context()), http.StatusOK)
}

// Recommended returns the chosen acceleration backend.
func (h *HardwareHandler) Recommended(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, h.detector.Recommended(r.Context()), http.StatusOK)
}
