package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	loadTimeout       = 5 * time.Minute
	completionTimeout = 5 * time.Minute
)

// LlamaServer runs a llama.cpp server as a child process with the GGUF
// translation model loaded and translates one text at a time through its
// completion endpoint.
type LlamaServer struct {
	bin       string
	modelPath string
	port      int
	threads   int
	gpuLayers int
	client    *http.Client

	mu     sync.Mutex
	cmd    *exec.Cmd
	loaded bool
}

// NewLlamaServer configures the translator. gpuLayers follows llama.cpp
// conventions: 0 keeps everything on CPU, a large value offloads all layers.
func NewLlamaServer(bin, modelPath string, port, threads, gpuLayers int) *LlamaServer {
	return &LlamaServer{
		bin:       bin,
		modelPath: modelPath,
		port:      port,
		threads:   threads,
		gpuLayers: gpuLayers,
		client:    &http.Client{Timeout: completionTimeout},
	}
}

func (s *LlamaServer) baseURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", s.port)
}

// Load spawns the server if it is not already running.
func (s *LlamaServer) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return nil
	}

	if _, err := os.Stat(s.modelPath); err != nil {
		return fmt.Errorf("translation model not found at %s, download it first", s.modelPath)
	}

	cmd := exec.Command(s.bin,
		"-m", s.modelPath,
		"--host", "127.0.0.1",
		"--port", strconv.Itoa(s.port),
		"-t", strconv.Itoa(s.threads),
		"-ngl", strconv.Itoa(s.gpuLayers),
		"-c", "4096",
	)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start llama-server: %w", err)
	}

	if err := s.waitReady(ctx); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return fmt.Errorf("llama-server did not become ready: %w", err)
	}

	s.cmd = cmd
	s.loaded = true
	log.Printf("[translate] loaded translation model (%s, gpu layers=%d)", s.modelPath, s.gpuLayers)
	return nil
}

// Unload stops the server process.
func (s *LlamaServer) Unload() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil {
		return
	}
	log.Printf("[translate] unloading translation model")
	s.cmd.Process.Kill()
	s.cmd.Wait()
	s.cmd = nil
	s.loaded = false
}

func (s *LlamaServer) waitReady(ctx context.Context) error {
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

type completionRequest struct {
	Prompt        string   `json:"prompt"`
	NPredict      int      `json:"n_predict"`
	Temperature   float64  `json:"temperature"`
	TopP          float64  `json:"top_p,omitempty"`
	TopK          int      `json:"top_k,omitempty"`
	RepeatPenalty float64  `json:"repeat_penalty,omitempty"`
	Stop          []string `json:"stop,omitempty"`
}

type completionResponse struct {
	Content string `json:"content"`
}

func (s *LlamaServer) complete(ctx context.Context, prompt string, params samplingParams) (string, error) {
	payload, err := json.Marshal(completionRequest{
		Prompt:        prompt,
		NPredict:      params.MaxTokens,
		Temperature:   params.Temperature,
		TopP:          params.TopP,
		TopK:          params.TopK,
		RepeatPenalty: params.RepeatPenalty,
		Stop:          params.Stop,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL()+"/completion", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llama server request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llama server error (status %d): %s", resp.StatusCode, body)
	}

	var parsed completionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse completion response: %w", err)
	}
	return strings.TrimSpace(parsed.Content), nil
}

// TranslateText translates one string. When the model refuses or returns
// nothing, a bare fallback prompt is tried once; if that also fails, the
// original text is returned unchanged.
func (s *LlamaServer) TranslateText(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if err := s.Load(ctx); err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return text, nil
	}

	translated, err := s.complete(ctx, buildPrompt(text, sourceLang, targetLang), primarySampling)
	if err != nil {
		return "", err
	}

	if len(translated) >= 2 && !isRefusal(translated) {
		return translated, nil
	}

	translated, err = s.complete(ctx, fallbackPrompt(text, targetLang), fallbackSampling)
	if err != nil {
		return "", err
	}

	if translated == "" || isRefusal(translated) {
		// Both prompts refused; hand back the original so the job can
		// keep going. Logged so the silent fallback is at least visible.
		log.Printf("[translate] model refused to translate %q, keeping original", truncate(text, 50))
		return text, nil
	}
	return translated, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
