package installer

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Result is the common response shape for install and check operations.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Path    string `json:"path,omitempty"`
}

// ComponentStatus reports whether one dependency is usable.
type ComponentStatus struct {
	Installed bool   `json:"installed"`
	Version   string `json:"version,omitempty"`
	Path      string `json:"path,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// SystemStatus is the full dependency checklist.
type SystemStatus struct {
	FFmpeg           ComponentStatus `json:"ffmpeg"`
	CUDA             ComponentStatus `json:"cuda"`
	WhisperModel     ComponentStatus `json:"whisper_model"`
	TranslationModel ComponentStatus `json:"translation_model"`
}

// Service checks for and installs the external pieces the app depends on:
// ffmpeg, whisper models, and the translation model.
type Service struct {
	baseDir          string
	modelsDir        string
	projectsDir      string
	translationModel string
	client           *http.Client
}

func NewService(baseDir, modelsDir, projectsDir, translationModel string) *Service {
	return &Service{
		baseDir:          baseDir,
		modelsDir:        modelsDir,
		projectsDir:      projectsDir,
		translationModel: translationModel,
		client:           &http.Client{Timeout: 30 * time.Minute},
	}
}

// CheckFFmpeg looks for ffmpeg on PATH, then in the local install dir, and
// grabs its version line.
func (s *Service) CheckFFmpeg(ctx context.Context) ComponentStatus {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		local := filepath.Join(s.baseDir, "bin", ffmpegBinaryName())
		if _, statErr := os.Stat(local); statErr != nil {
			return ComponentStatus{Installed: false, Detail: "ffmpeg not found on PATH"}
		}
		path = local
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return ComponentStatus{Installed: false, Path: path, Detail: "ffmpeg found but failed to run"}
	}

	version := ""
	if line, _, ok := strings.Cut(string(out), "\n"); ok {
		version = strings.TrimSpace(line)
	}
	return ComponentStatus{Installed: true, Version: version, Path: path}
}

func ffmpegBinaryName() string {
	if runtime.GOOS == "windows" {
		return "ffmpeg.exe"
	}
	return "ffmpeg"
}

// CheckCUDA reports whether the NVIDIA runtime responds.
func (s *Service) CheckCUDA(ctx context.Context) ComponentStatus {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "nvidia-smi", "--query-gpu=driver_version", "--format=csv,noheader").Output()
	if err != nil {
		return ComponentStatus{Installed: false, Detail: "nvidia-smi not available"}
	}
	return ComponentStatus{Installed: true, Version: strings.TrimSpace(string(out))}
}

// CheckWhisperModel reports whether the ggml file for size exists.
func (s *Service) CheckWhisperModel(size string) ComponentStatus {
	path := filepath.Join(s.modelsDir, "ggml-"+size+".bin")
	info, err := os.Stat(path)
	if err != nil {
		return ComponentStatus{Installed: false, Detail: fmt.Sprintf("model %s not downloaded", size)}
	}
	return ComponentStatus{Installed: true, Path: path, Detail: fmt.Sprintf("%d bytes", info.Size())}
}

// CheckTranslationModel reports whether the GGUF translation model exists.
func (s *Service) CheckTranslationModel() ComponentStatus {
	path := filepath.Join(s.modelsDir, s.translationModel)
	info, err := os.Stat(path)
	if err != nil {
		return ComponentStatus{Installed: false, Detail: "translation model not downloaded"}
	}
	return ComponentStatus{Installed: true, Path: path, Detail: fmt.Sprintf("%d bytes", info.Size())}
}

// Status runs every check. whisperSize defaults to base when empty.
func (s *Service) Status(ctx context.Context, whisperSize string) SystemStatus {
	if whisperSize == "" {
		whisperSize = "base"
	}
	return SystemStatus{
		FFmpeg:           s.CheckFFmpeg(ctx),
		CUDA:             s.CheckCUDA(ctx),
		WhisperModel:     s.CheckWhisperModel(whisperSize),
		TranslationModel: s.CheckTranslationModel(),
	}
}

// download streams url to dest via a temp file so a partial download never
// shows up as an installed model.
func (s *Service) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: unexpected status %d", url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating models dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.ReadFrom(resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("writing download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing download: %w", err)
	}
	return os.Rename(tmp.Name(), dest)
}

const whisperModelBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

var validWhisperSizes = map[string]bool{
	"tiny": true, "base": true, "small": true, "medium": true, "large-v3": true,
}

// DownloadWhisperModel fetches the ggml model for size. Idempotent: an
// already-present file is reported as success without re-downloading.
func (s *Service) DownloadWhisperModel(ctx context.Context, size string) Result {
	if !validWhisperSizes[size] {
		return Result{Success: false, Error: fmt.Sprintf("unknown whisper model size: %s", size)}
	}

	dest := filepath.Join(s.modelsDir, "ggml-"+size+".bin")
	if _, err := os.Stat(dest); err == nil {
		return Result{Success: true, Message: fmt.Sprintf("Whisper %s model already installed", size), Path: dest}
	}

	url := fmt.Sprintf("%s/ggml-%s.bin", whisperModelBaseURL, size)
	log.Printf("[installer] downloading whisper %s model from %s", size, url)
	if err := s.download(ctx, url, dest); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true, Message: fmt.Sprintf("Whisper %s model installed", size), Path: dest}
}

const translationModelURL = "https://huggingface.co/mradermacher/Huihui-Hunyuan-MT-Chimera-7B-abliterated-GGUF/resolve/main/Huihui-Hunyuan-MT-Chimera-7B-abliterated.Q4_K_M.gguf"

// DownloadTranslationModel fetches the translation GGUF. Idempotent.
func (s *Service) DownloadTranslationModel(ctx context.Context) Result {
	dest := filepath.Join(s.modelsDir, s.translationModel)
	if _, err := os.Stat(dest); err == nil {
		return Result{Success: true, Message: "Translation model already installed", Path: dest}
	}

	log.Printf("[installer] downloading translation model from %s", translationModelURL)
	if err := s.download(ctx, translationModelURL, dest); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true, Message: "Translation model installed", Path: dest}
}
