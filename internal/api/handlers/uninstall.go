package handlers

import (
	"net/http"

	"github.com/autocaption/backend/internal/installer"
)

type UninstallHandler struct {
	installer *installer.Service
}

func NewUninstallHandler(svc *installer.Service) *UninstallHandler {
	return &UninstallHandler{installer: svc}
}

// Info reports disk usage per category.
func (h *UninstallHandler) Info(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, h.installer.StorageUsage(), http.StatusOK)
}

// DeleteModels removes all downloaded models.
func (h *UninstallHandler) DeleteModels(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, h.installer.DeleteModels(), http.StatusOK)
}

// DeleteProjects removes all project data.
func (h *UninstallHandler) DeleteProjects(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, h.installer.DeleteProjects(), http.StatusOK)
}

// ClearCache removes temporary files.
func (h *UninstallHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, h.installer.ClearCache(), http.StatusOK)
}

// Full removes everything, optionally keeping projects.
func (h *UninstallHandler) Full(w http.ResponseWriter, r *http.Request) {
	keepProjects := r.URL.Query().Get("keep_projects") == "true"
	jsonResponse(w, h.installer.FullUninstall(keepProjects), http.StatusOK)
}
