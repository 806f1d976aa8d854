package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/autocaption/backend/internal/api"
	"github.com/autocaption/backend/internal/config"
	"github.com/autocaption/backend/internal/ffmpeg"
	"github.com/autocaption/backend/internal/hardware"
	"github.com/autocaption/backend/internal/installer"
	"github.com/autocaption/backend/internal/jobs"
	"github.com/autocaption/backend/internal/project"
	"github.com/autocaption/backend/internal/transcribe"
	"github.com/autocaption/backend/internal/translate"
)

func main() {
	cfg := config.Load()

	// Ensure data directories exist
	for _, dir := range []string{cfg.DataPath, cfg.ProjectsDir, cfg.ModelsDir, cfg.TempDir} {
		os.MkdirAll(dir, 0755)
	}

	// Project store with ffmpeg-backed thumbnails
	store, err := project.NewStore(cfg.ProjectsDir, ffmpeg.GenerateThumbnail)
	if err != nil {
		log.Fatalf("Failed to initialize project store: %v", err)
	}

	// Probe hardware and pick an acceleration backend
	detector := hardware.NewDetector()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	rec := detector.Recommended(ctx)
	cancel()
	log.Printf("Hardware: %s", rec)

	// Full GPU offload when acceleration is ready, CPU otherwise
	gpuLayers := 0
	if rec.Ready && rec.Backend != hardware.BackendCPU {
		gpuLayers = 99
	}

	whisperEngine := transcribe.NewWhisperServer(
		cfg.WhisperServerBin, cfg.ModelsDir, cfg.WhisperServerPort, cfg.Threads)
	llama := translate.NewLlamaServer(
		cfg.LlamaServerBin, filepath.Join(cfg.ModelsDir, cfg.TranslationModel),
		cfg.LlamaServerPort, cfg.Threads, gpuLayers)

	registry := jobs.NewRegistry(time.Hour)
	installerSvc := installer.NewService(cfg.DataPath, cfg.ModelsDir, cfg.ProjectsDir, cfg.TranslationModel)

	router := api.NewRouter(api.Deps{
		Config:      cfg,
		Store:       store,
		Registry:    registry,
		Transcriber: transcribe.NewRunner(whisperEngine),
		Translator:  translate.NewRunner(llama),
		Installer:   installerSvc,
		Hardware:    detector,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Starting server on %s", addr)
	log.Printf("Data path: %s", cfg.DataPath)

	// Graceful shutdown: stop the inference servers before exiting
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		whisperEngine.Unload()
		llama.Unload()
		os.Exit(0)
	}()

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
