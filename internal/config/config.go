package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

type Config struct {
	Port        int
	DataPath    string
	ProjectsDir string
	ModelsDir   string
	TempDir     string
	StaticDir   string
	CORSOrigins []string

	// Local inference servers spawned as child processes.
	WhisperServerBin  string
	WhisperServerPort int
	LlamaServerBin    string
	LlamaServerPort   int

	// GGUF file name of the translation model inside ModelsDir.
	TranslationModel string

	// Threads passed to the inference servers. Defaults to half the CPUs,
	// which keeps the desktop responsive while a job runs.
	Threads int
}

func Load() *Config {
	port, _ := strconv.Atoi(getEnv("PORT", "8000"))
	dataPath := getEnv("DATA_PATH", "./data")

	threads := runtime.NumCPU() / 2
	if threads < 1 {
		threads = 1
	}
	if v := os.Getenv("THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			threads = n
		}
	}

	// CORS origins: comma-separated list; defaults match the dev frontend.
	corsOrigins := []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		corsOrigins = make([]string, 0, len(origins))
		for _, o := range origins {
			o = strings.TrimSpace(o)
			if o != "" {
				corsOrigins = append(corsOrigins, o)
			}
		}
	}

	whisperPort, _ := strconv.Atoi(getEnv("WHISPER_SERVER_PORT", "8178"))
	llamaPort, _ := strconv.Atoi(getEnv("LLAMA_SERVER_PORT", "8179"))

	return &Config{
		Port:              port,
		DataPath:          dataPath,
		ProjectsDir:       getEnv("PROJECTS_DIR", filepath.Join(dataPath, "projects")),
		ModelsDir:         getEnv("MODELS_DIR", filepath.Join(dataPath, "models")),
		TempDir:           getEnv("TEMP_DIR", filepath.Join(dataPath, "temp")),
		StaticDir:         getEnv("STATIC_DIR", "./static"),
		CORSOrigins:       corsOrigins,
		WhisperServerBin:  getEnv("WHISPER_SERVER_BIN", "whisper-server"),
		WhisperServerPort: whisperPort,
		LlamaServerBin:    getEnv("LLAMA_SERVER_BIN", "llama-server"),
		LlamaServerPort:   llamaPort,
		TranslationModel:  getEnv("TRANSLATION_MODEL", "hunyuan-mt-chimera-7b-q4_k_m.gguf"),
		Threads:           threads,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
