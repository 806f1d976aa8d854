package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocaption/backend/internal/config"
	"github.com/autocaption/backend/internal/hardware"
	"github.com/autocaption/backend/internal/installer"
	"github.com/autocaption/backend/internal/jobs"
	"github.com/autocaption/backend/internal/project"
	"github.com/autocaption/backend/internal/transcribe"
	"github.com/autocaption/backend/internal/translate"
)

type stubEngine struct {
	gate   chan struct{} // when non-nil, Load blocks until closed
	chunks []transcribe.Chunk
}

func (s *stubEngine) Load(ctx context.Context, modelSize string) error {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *stubEngine) Transcribe(ctx context.Context, mediaPath, language string) (*transcribe.Result, error) {
	return &transcribe.Result{Language: "en", Chunks: s.chunks}, nil
}

type stubTranslator struct{}

func (stubTranslator) Load(ctx context.Context) error { return nil }

func (stubTranslator) TranslateText(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	return "[" + targetLang + "] " + text, nil
}

func end(v float64) *float64 { return &v }

func newTestServer(t *testing.T, engine transcribe.Engine) (*httptest.Server, *project.Store) {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		ProjectsDir: dir + "/projects",
		ModelsDir:   dir + "/models",
		TempDir:     dir + "/temp",
		StaticDir:   dir + "/static", // absent, so no file server
	}

	store, err := project.NewStore(cfg.ProjectsDir, nil)
	require.NoError(t, err)

	router := NewRouter(Deps{
		Config:      cfg,
		Store:       store,
		Registry:    jobs.NewRegistry(time.Hour),
		Transcriber: transcribe.NewRunner(engine),
		Translator:  translate.NewRunner(stubTranslator{}),
		Installer:   installer.NewService(dir, cfg.ModelsDir, cfg.ProjectsDir, "translator.gguf"),
		Hardware:    hardware.NewDetector(),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, store
}

func uploadVideo(t *testing.T, srv *httptest.Server, filename string) *http.Response {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("fake video bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/projects/upload", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func postJSON(t *testing.T, url string, payload interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func TestUploadCreatesProject(t *testing.T) {
	srv, store := newTestServer(t, &stubEngine{})

	resp := uploadVideo(t, srv, "my_holiday_video.mp4")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var p project.Project
	decodeBody(t, resp, &p)
	assert.Equal(t, "My Holiday Video", p.Name)
	assert.Equal(t, project.StatusCreated, p.Status)

	stored, err := store.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, stored.ID)
}

func TestUploadRejectsNonVideo(t *testing.T) {
	srv, _ := newTestServer(t, &stubEngine{})

	resp := uploadVideo(t, srv, "notes.txt")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetMissingProjectReturns404(t *testing.T) {
	srv, _ := newTestServer(t, &stubEngine{})

	resp, err := http.Get(srv.URL + "/api/projects/does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTranscribeFlow(t *testing.T) {
	engine := &stubEngine{chunks: []transcribe.Chunk{
		{Start: 0, End: end(2), Text: "hello"},
		{Start: 2, End: end(4), Text: "world"},
	}}
	srv, store := newTestServer(t, engine)

	resp := uploadVideo(t, srv, "clip.mp4")
	var p project.Project
	decodeBody(t, resp, &p)

	resp = postJSON(t, srv.URL+"/api/transcribe", map[string]string{
		"project_id": p.ID,
		"model_size": "base",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Poll until the background job persists the segments and writes the
	// SRT file, its last side effect.
	srtPath := filepath.Join(store.Dir(p.ID), "Clip.srt")
	require.Eventually(t, func() bool {
		stored, err := store.Get(p.ID)
		if err != nil || stored.Status != project.StatusTranscribed {
			return false
		}
		_, err = os.Stat(srtPath)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	resp, err := http.Get(srv.URL + "/api/transcribe/" + p.ID + "/progress")
	require.NoError(t, err)
	var snap jobs.Snapshot
	decodeBody(t, resp, &snap)
	assert.Equal(t, jobs.StatusComplete, snap.Status)
	assert.Equal(t, 100.0, snap.Progress)
	assert.Len(t, snap.Segments, 2)

	stored, err := store.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "base", stored.WhisperModel)
	assert.Equal(t, "en", stored.SourceLanguage)
	require.Len(t, stored.Segments, 2)
	assert.Equal(t, "hello", stored.Segments[0].Text)

	// The SRT export is auto-saved into the project directory.
	assert.FileExists(t, filepath.Join(store.Dir(p.ID), "Clip.srt"))
}

func TestTranscribeUnknownProjectReturns404(t *testing.T) {
	srv, _ := newTestServer(t, &stubEngine{})

	resp := postJSON(t, srv.URL+"/api/transcribe", map[string]string{"project_id": "nope"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTranscribeDuplicateReturns409(t *testing.T) {
	engine := &stubEngine{
		gate:   make(chan struct{}),
		chunks: []transcribe.Chunk{{Start: 0, End: end(1), Text: "hello"}},
	}
	srv, store := newTestServer(t, engine)

	resp := uploadVideo(t, srv, "clip.mp4")
	var p project.Project
	decodeBody(t, resp, &p)

	resp = postJSON(t, srv.URL+"/api/transcribe", map[string]string{"project_id": p.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/transcribe", map[string]string{"project_id": p.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Let the gated job finish, including its SRT auto-save, before the
	// test directory is torn down.
	close(engine.gate)
	srtPath := filepath.Join(store.Dir(p.ID), "Clip.srt")
	require.Eventually(t, func() bool {
		stored, err := store.Get(p.ID)
		if err != nil || stored.Status == project.StatusCreated {
			return false
		}
		_, err = os.Stat(srtPath)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
}

func TestTranscribeProgressNotStarted(t *testing.T) {
	srv, _ := newTestServer(t, &stubEngine{})

	resp, err := http.Get(srv.URL + "/api/transcribe/unknown/progress")
	require.NoError(t, err)
	var snap jobs.Snapshot
	decodeBody(t, resp, &snap)
	assert.Equal(t, jobs.StatusNotStarted, snap.Status)
	assert.NotNil(t, snap.Segments)
	assert.Empty(t, snap.Segments)
}

func TestTranscribeProgressFallsBackToPersisted(t *testing.T) {
	srv, store := newTestServer(t, &stubEngine{})

	resp := uploadVideo(t, srv, "clip.mp4")
	var p project.Project
	decodeBody(t, resp, &p)

	// Simulate a restart: segments on disk, nothing in the registry.
	_, err := store.SaveSegments(p.ID, []project.Segment{{ID: 1, Start: 0, End: 2, Text: "hello"}}, false)
	require.NoError(t, err)

	resp, err = http.Get(srv.URL + "/api/transcribe/" + p.ID + "/progress")
	require.NoError(t, err)
	var snap jobs.Snapshot
	decodeBody(t, resp, &snap)
	assert.Equal(t, jobs.StatusComplete, snap.Status)
	assert.Equal(t, 100.0, snap.Progress)
	assert.Len(t, snap.Segments, 1)
}

func TestTranslateRequiresSegments(t *testing.T) {
	srv, _ := newTestServer(t, &stubEngine{})

	resp := uploadVideo(t, srv, "clip.mp4")
	var p project.Project
	decodeBody(t, resp, &p)

	resp = postJSON(t, srv.URL+"/api/translate", map[string]string{
		"project_id":  p.ID,
		"target_lang": "spanish",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "No segments to translate. Run transcription first.", body["error"])
}

func TestTranslateFlow(t *testing.T) {
	srv, store := newTestServer(t, &stubEngine{})

	resp := uploadVideo(t, srv, "clip.mp4")
	var p project.Project
	decodeBody(t, resp, &p)

	_, err := store.SaveSegments(p.ID, []project.Segment{
		{ID: 1, Start: 0, End: 2, Text: "hello"},
	}, false)
	require.NoError(t, err)

	resp = postJSON(t, srv.URL+"/api/translate", map[string]string{
		"project_id":  p.ID,
		"target_lang": "spanish",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	srtPath := filepath.Join(store.Dir(p.ID), "Clip_spanish.srt")
	require.Eventually(t, func() bool {
		stored, err := store.Get(p.ID)
		if err != nil || stored.Status != project.StatusTranslated {
			return false
		}
		_, err = os.Stat(srtPath)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	stored, err := store.Get(p.ID)
	require.NoError(t, err)
	require.Len(t, stored.TranslatedSegments, 1)
	assert.Equal(t, "[spanish] hello", stored.TranslatedSegments[0].Text)
	assert.Equal(t, "hello", stored.TranslatedSegments[0].OriginalText)
	assert.Equal(t, "spanish", stored.TargetLanguage)
}

func TestSegmentUpdate(t *testing.T) {
	srv, store := newTestServer(t, &stubEngine{})

	resp := uploadVideo(t, srv, "clip.mp4")
	var p project.Project
	decodeBody(t, resp, &p)

	_, err := store.SaveSegments(p.ID, []project.Segment{
		{ID: 1, Start: 0, End: 2, Text: "helo"},
		{ID: 2, Start: 2, End: 4, Text: "world"},
	}, false)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/segments",
		strings.NewReader(fmt.Sprintf(`{"project_id": %q, "segment_id": 1, "text": "hello"}`, p.ID)))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stored, err := store.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", stored.Segments[0].Text)
	assert.Equal(t, "world", stored.Segments[1].Text)
}

func TestSegmentBulkUpdate(t *testing.T) {
	srv, store := newTestServer(t, &stubEngine{})

	resp := uploadVideo(t, srv, "clip.mp4")
	var p project.Project
	decodeBody(t, resp, &p)

	payload := fmt.Sprintf(`{"project_id": %q, "segments": [{"id": 1, "start": 0, "end": 2, "text": "replaced"}]}`, p.ID)
	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/segments/bulk", strings.NewReader(payload))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stored, err := store.Get(p.ID)
	require.NoError(t, err)
	require.Len(t, stored.Segments, 1)
	assert.Equal(t, "replaced", stored.Segments[0].Text)
}

func TestExportSRTDownload(t *testing.T) {
	srv, store := newTestServer(t, &stubEngine{})

	resp := uploadVideo(t, srv, "clip.mp4")
	var p project.Project
	decodeBody(t, resp, &p)

	_, err := store.SaveSegments(p.ID, []project.Segment{
		{ID: 1, Start: 0, End: 2.5, Text: "hello"},
	}, false)
	require.NoError(t, err)

	resp, err = http.Get(srv.URL + "/api/projects/" + p.ID + "/export/srt")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "subtitles.srt")

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "00:00:00,000 --> 00:00:02,500")
}

func TestBurnRejectsMalformedBody(t *testing.T) {
	srv, _ := newTestServer(t, &stubEngine{})

	resp := uploadVideo(t, srv, "clip.mp4")
	var p project.Project
	decodeBody(t, resp, &p)

	resp, err := http.Post(srv.URL+"/api/projects/"+p.ID+"/burn",
		"application/json", strings.NewReader(`{"translated":`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "invalid request body", body["error"])
}

func TestExportSRTEmptyReturns404(t *testing.T) {
	srv, _ := newTestServer(t, &stubEngine{})

	resp := uploadVideo(t, srv, "clip.mp4")
	var p project.Project
	decodeBody(t, resp, &p)

	resp, err := http.Get(srv.URL + "/api/projects/" + p.ID + "/export/srt")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteProject(t *testing.T) {
	srv, store := newTestServer(t, &stubEngine{})

	resp := uploadVideo(t, srv, "clip.mp4")
	var p project.Project
	decodeBody(t, resp, &p)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/projects/"+p.ID, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = store.Get(p.ID)
	assert.ErrorIs(t, err, project.ErrNotFound)
}

func TestListProjects(t *testing.T) {
	srv, _ := newTestServer(t, &stubEngine{})

	uploadVideo(t, srv, "first.mp4").Body.Close()
	uploadVideo(t, srv, "second.mp4").Body.Close()

	resp, err := http.Get(srv.URL + "/api/projects?limit=1")
	require.NoError(t, err)
	var entries []project.IndexEntry
	decodeBody(t, resp, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, "Second", entries[0].Name)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &stubEngine{})

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSystemStatusReportsMissingModels(t *testing.T) {
	srv, _ := newTestServer(t, &stubEngine{})

	resp, err := http.Get(srv.URL + "/api/system/status")
	require.NoError(t, err)
	var body struct {
		Ready      bool `json:"ready"`
		Components struct {
			WhisperModel struct {
				Installed bool `json:"installed"`
			} `json:"whisper_model"`
		} `json:"components"`
	}
	decodeBody(t, resp, &body)
	assert.False(t, body.Components.WhisperModel.Installed)
}

func TestUninstallInfo(t *testing.T) {
	srv, _ := newTestServer(t, &stubEngine{})
	uploadVideo(t, srv, "clip.mp4").Body.Close()

	resp, err := http.Get(srv.URL + "/api/uninstall/info")
	require.NoError(t, err)
	var info installer.StorageInfo
	decodeBody(t, resp, &info)
	assert.Greater(t, info.ProjectsBytes, int64(0))
}
