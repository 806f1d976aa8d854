package api

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/autocaption/backend/internal/api/handlers"
	"github.com/autocaption/backend/internal/api/middleware"
	"github.com/autocaption/backend/internal/config"
	"github.com/autocaption/backend/internal/hardware"
	"github.com/autocaption/backend/internal/installer"
	"github.com/autocaption/backend/internal/jobs"
	"github.com/autocaption/backend/internal/project"
	"github.com/autocaption/backend/internal/transcribe"
	"github.com/autocaption/backend/internal/translate"
)

type Deps struct {
	Config      *config.Config
	Store       *project.Store
	Registry    *jobs.Registry
	Transcriber *transcribe.Runner
	Translator  *translate.Runner
	Installer   *installer.Service
	Hardware    *hardware.Detector
}

func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(middleware.CORSHandler(d.Config.CORSOrigins)))

	// Handlers
	projectsHandler := handlers.NewProjectsHandler(d.Store, d.Config.TempDir)
	segmentsHandler := handlers.NewSegmentsHandler(d.Store)
	transcribeHandler := handlers.NewTranscribeHandler(d.Store, d.Registry, d.Transcriber)
	translateHandler := handlers.NewTranslateHandler(d.Store, d.Registry, d.Translator)
	systemHandler := handlers.NewSystemHandler(d.Installer)
	hardwareHandler := handlers.NewHardwareHandler(d.Hardware)
	uninstallHandler := handlers.NewUninstallHandler(d.Installer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Everything except the upload takes small JSON bodies.
		jsonBody := middleware.MaxBodySize(1 << 20)

		// Projects
		r.Get("/projects", projectsHandler.List)
		r.Post("/projects/upload", projectsHandler.Upload)
		r.Get("/projects/{id}", projectsHandler.Get)
		r.Delete("/projects/{id}", projectsHandler.Delete)
		r.Get("/projects/{id}/video", projectsHandler.Video)
		r.Get("/projects/{id}/thumbnail", projectsHandler.Thumbnail)
		r.Get("/projects/{id}/video-info", projectsHandler.VideoInfo)
		r.Post("/projects/{id}/open-folder", projectsHandler.OpenFolder)
		r.Post("/projects/{id}/save-srt", projectsHandler.SaveSRT)
		r.Get("/projects/{id}/export/srt", projectsHandler.ExportSRT)
		r.With(jsonBody).Post("/projects/{id}/burn", projectsHandler.Burn)

		// Transcription
		r.With(jsonBody).Post("/transcribe", transcribeHandler.Start)
		r.Get("/transcribe/{id}/progress", transcribeHandler.Progress)

		// Translation
		r.With(jsonBody).Post("/translate", translateHandler.Start)
		r.Get("/translate/{id}/progress", translateHandler.Progress)

		// Segment editing
		r.With(jsonBody).Put("/segments", segmentsHandler.Update)
		r.With(jsonBody).Put("/segments/bulk", segmentsHandler.UpdateBulk)

		// System / installer
		r.Get("/system/status", systemHandler.Status)
		r.Post("/system/install-ffmpeg", systemHandler.InstallFFmpeg)
		r.With(jsonBody).Post("/system/download-whisper", systemHandler.DownloadWhisperModel)
		r.Post("/system/download-translation", systemHandler.DownloadTranslationModel)

		// Hardware
		r.Get("/hardware/status", hardwareHandler.Status)
		r.Get("/hardware/gpus", hardwareHandler.GPUs)
		r.Get("/hardware/recommended", hardwareHandler.Recommended)

		// Uninstall
		r.Get("/uninstall/info", uninstallHandler.Info)
		r.Delete("/uninstall/models", uninstallHandler.DeleteModels)
		r.Delete("/uninstall/projects", uninstallHandler.DeleteProjects)
		r.Delete("/uninstall/cache", uninstallHandler.ClearCache)
		r.Post("/uninstall/full", uninstallHandler.Full)
	})

	// Serve the built frontend when present. Registered last so API routes win.
	if info, err := os.Stat(d.Config.StaticDir); err == nil && info.IsDir() {
		fileServer := http.FileServer(http.Dir(d.Config.StaticDir))
		r.Handle("/*", fileServer)
	}

	return r
}
