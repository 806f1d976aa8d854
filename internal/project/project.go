package project

import (
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Project statuses. Informational only: Segments/TranslatedSegments are the
// source of truth for what has actually completed.
const (
	StatusCreated     = "created"
	StatusTranscribed = "transcribed"
	StatusTranslated  = "translated"
)

// Segment is one timed subtitle cue. IDs are 1-based and order-significant;
// the id doubles as the SRT cue number.
type Segment struct {
	ID           int     `json:"id"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Text         string  `json:"text"`
	OriginalText string  `json:"original_text,omitempty"`
}

// Project is the full persisted record, one per uploaded video.
type Project struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	OriginalFilename   string    `json:"original_filename"`
	VideoPath          string    `json:"video_path"`
	ThumbnailPath      string    `json:"thumbnail_path,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	Segments           []Segment `json:"segments"`
	TranslatedSegments []Segment `json:"translated_segments,omitempty"`
	SourceLanguage     string    `json:"source_language,omitempty"`
	TargetLanguage     string    `json:"target_language,omitempty"`
	WhisperModel       string    `json:"whisper_model,omitempty"`
	Status             string    `json:"status"`
}

// IndexEntry is the compact summary kept in projects.json, newest first.
type IndexEntry struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ThumbnailPath string    `json:"thumbnail_path,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Status        string    `json:"status"`
}

var titleCaser = cases.Title(language.English)

// GenerateName derives a readable project name from the uploaded filename:
// extension stripped, separators replaced with spaces, title-cased, and
// truncated to 50 characters with an ellipsis.
func GenerateName(filename string) string {
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	name = titleCaser.String(name)

	if runes := []rune(name); len(runes) > 50 {
		name = string(runes[:47]) + "..."
	}
	return name
}
