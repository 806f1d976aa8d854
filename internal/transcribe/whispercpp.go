package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/autocaption/backend/internal/ffmpeg"
)

const (
	loadTimeout      = 2 * time.Minute
	inferenceTimeout = 30 * time.Minute
)

// WhisperServer runs a whisper.cpp server as a child process and talks to
// it over HTTP. The server holds exactly one model: loading a different
// size kills and respawns it, loading the same size is a no-op.
type WhisperServer struct {
	bin       string
	modelsDir string
	port      int
	threads   int
	client    *http.Client

	mu      sync.Mutex
	current string // loaded model size, "" when stopped
	cmd     *exec.Cmd
}

func NewWhisperServer(bin, modelsDir string, port, threads int) *WhisperServer {
	return &WhisperServer{
		bin:       bin,
		modelsDir: modelsDir,
		port:      port,
		threads:   threads,
		client:    &http.Client{Timeout: inferenceTimeout},
	}
}

func (s *WhisperServer) baseURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", s.port)
}

// ModelPath returns the expected ggml file for a model size.
func (s *WhisperServer) ModelPath(modelSize string) string {
	return filepath.Join(s.modelsDir, "ggml-"+modelSize+".bin")
}

// Load starts the server with the requested model, replacing any previously
// loaded one.
func (s *WhisperServer) Load(ctx context.Context, modelSize string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil && s.current == modelSize {
		return nil
	}

	modelPath := s.ModelPath(modelSize)
	if _, err := os.Stat(modelPath); err != nil {
		return fmt.Errorf("whisper model %q not found at %s, download it first", modelSize, modelPath)
	}

	s.stopLocked()

	cmd := exec.Command(s.bin,
		"-m", modelPath,
		"--host", "127.0.0.1",
		"--port", strconv.Itoa(s.port),
		"-t", strconv.Itoa(s.threads),
	)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start whisper-server: %w", err)
	}

	if err := s.waitReady(ctx); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return fmt.Errorf("whisper-server did not become ready: %w", err)
	}

	s.cmd = cmd
	s.current = modelSize
	log.Printf("[whisper] loaded model %s (%s)", modelSize, modelPath)
	return nil
}

// Unload stops the server process and frees the model.
func (s *WhisperServer) Unload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *WhisperServer) stopLocked() {
	if s.cmd == nil {
		return
	}
	log.Printf("[whisper] unloading model %s", s.current)
	s.cmd.Process.Kill()
	s.cmd.Wait()
	s.cmd = nil
	s.current = ""
}

func (s *WhisperServer) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	probe := &http.Client{Timeout: 2 * time.Second}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL()+"/health", nil)
			if err != nil {
				return err
			}
			resp, err := probe.Do(req)
			if err != nil {
				continue
			}
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
	}
}

// verboseJSON is the OpenAI-compatible inference response shape.
type verboseJSON struct {
	Language string `json:"language"`
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe extracts the audio track and sends it to the loaded server.
func (s *WhisperServer) Transcribe(ctx context.Context, mediaPath, language string) (*Result, error) {
	audioPath, err := ffmpeg.ExtractAudio(ctx, mediaPath)
	if err != nil {
		return nil, fmt.Errorf("extract audio: %w", err)
	}
	defer os.Remove(audioPath)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	audioFile, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer audioFile.Close()

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, audioFile); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}

	writer.WriteField("response_format", "verbose_json")
	writer.WriteField("temperature", "0.0")
	if language != "" && language != "auto" {
		writer.WriteField("language", strings.ToLower(language))
	}
	writer.Close()

	url := s.baseURL() + "/inference"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	log.Printf("[whisper] sending inference request (audio: %s)", audioPath)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper server request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if isOOMError(string(body)) {
			return nil, fmt.Errorf("GPU out of memory, try a smaller model (status %d): %s", resp.StatusCode, body)
		}
		return nil, fmt.Errorf("whisper server error (status %d): %s", resp.StatusCode, body)
	}

	var parsed verboseJSON
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse inference response: %w", err)
	}

	result := &Result{
		Text:     parsed.Text,
		Language: parsed.Language,
	}
	for _, seg := range parsed.Segments {
		end := seg.End
		result.Chunks = append(result.Chunks, Chunk{
			Start: seg.Start,
			End:   &end,
			Text:  seg.Text,
		})
	}
	return result, nil
}

// isOOMError checks whether an inference response indicates the model ran
// out of device memory.
func isOOMError(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "out of memory") ||
		strings.Contains(lower, "allocation") ||
		strings.Contains(lower, "oom") ||
		(strings.Contains(lower, "memory") && strings.Contains(lower, "failed"))
}
