package installer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	base := t.TempDir()
	return NewService(base, filepath.Join(base, "models"), filepath.Join(base, "projects"), "translator.gguf")
}

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
}

func TestCheckWhisperModel(t *testing.T) {
	s := newTestService(t)

	status := s.CheckWhisperModel("base")
	assert.False(t, status.Installed)

	writeFile(t, filepath.Join(s.modelsDir, "ggml-base.bin"), 128)
	status = s.CheckWhisperModel("base")
	assert.True(t, status.Installed)
	assert.Equal(t, "128 bytes", status.Detail)
}

func TestCheckTranslationModel(t *testing.T) {
	s := newTestService(t)

	assert.False(t, s.CheckTranslationModel().Installed)

	writeFile(t, filepath.Join(s.modelsDir, "translator.gguf"), 64)
	assert.True(t, s.CheckTranslationModel().Installed)
}

func TestDownloadWhisperModel_RejectsUnknownSize(t *testing.T) {
	s := newTestService(t)

	result := s.DownloadWhisperModel(context.Background(), "enormous")
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unknown whisper model size")
}

func TestDownloadWhisperModel_SkipsExisting(t *testing.T) {
	s := newTestService(t)
	writeFile(t, filepath.Join(s.modelsDir, "ggml-base.bin"), 128)

	result := s.DownloadWhisperModel(context.Background(), "base")
	assert.True(t, result.Success)
	assert.Contains(t, result.Message, "already installed")
}

func TestStorageUsage(t *testing.T) {
	s := newTestService(t)
	writeFile(t, filepath.Join(s.modelsDir, "ggml-base.bin"), 100)
	writeFile(t, filepath.Join(s.projectsDir, "p1", "project.json"), 50)
	writeFile(t, filepath.Join(s.cacheDir(), "tmp.bin"), 25)

	info := s.StorageUsage()
	assert.Equal(t, int64(100), info.ModelsBytes)
	assert.Equal(t, int64(50), info.ProjectsBytes)
	assert.Equal(t, int64(25), info.CacheBytes)
	assert.Equal(t, int64(175), info.TotalBytes)
}

func TestFullUninstall_KeepProjects(t *testing.T) {
	s := newTestService(t)
	writeFile(t, filepath.Join(s.modelsDir, "ggml-base.bin"), 100)
	writeFile(t, filepath.Join(s.projectsDir, "p1", "project.json"), 50)

	result := s.FullUninstall(true)
	require.True(t, result.Success)

	assert.NoDirExists(t, s.modelsDir)
	assert.FileExists(t, filepath.Join(s.projectsDir, "p1", "project.json"))
}

func TestFullUninstall_RemovesEverything(t *testing.T) {
	s := newTestService(t)
	writeFile(t, filepath.Join(s.modelsDir, "ggml-base.bin"), 100)
	writeFile(t, filepath.Join(s.projectsDir, "p1", "project.json"), 50)

	result := s.FullUninstall(false)
	require.True(t, result.Success)

	assert.NoDirExists(t, s.modelsDir)
	assert.NoDirExists(t, s.projectsDir)
}
