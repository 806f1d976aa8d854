package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/autocaption/backend/internal/storage"
)

// ErrNotFound is returned when a project id has no directory on disk.
var ErrNotFound = errors.New("project not found")

// Thumbnailer generates a still image for a video. Failures are non-fatal
// at creation time: the project simply has no thumbnail.
type Thumbnailer func(ctx context.Context, videoPath, outputPath string) error

// Store persists one JSON file per project plus a shared index file.
// Per-project mutexes serialize writers so that concurrent requests cannot
// silently drop each other's changes.
type Store struct {
	dir       string
	indexPath string
	thumbnail Thumbnailer

	indexMu sync.Mutex
	locks   sync.Map // project id -> *sync.Mutex
}

func NewStore(dir string, thumbnail Thumbnailer) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create projects dir: %w", err)
	}

	s := &Store{
		dir:       dir,
		indexPath: filepath.Join(dir, "projects.json"),
		thumbnail: thumbnail,
	}

	if _, err := os.Stat(s.indexPath); os.IsNotExist(err) {
		if err := os.WriteFile(s.indexPath, []byte("[]"), 0644); err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	}

	return s, nil
}

func (s *Store) lock(id string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Dir returns the directory owned by the given project.
func (s *Store) Dir(id string) string {
	return filepath.Join(s.dir, id)
}

// Create copies the uploaded video into a new per-project directory,
// attempts thumbnail generation, writes project.json, and prepends a
// summary record to the index.
func (s *Store) Create(ctx context.Context, videoPath, originalFilename string) (*Project, error) {
	id := uuid.New().String()
	projectDir := s.Dir(id)
	if err := os.MkdirAll(projectDir, 0755); err != nil {
		return nil, fmt.Errorf("create project dir: %w", err)
	}

	ext := filepath.Ext(originalFilename)
	projectVideo := filepath.Join(projectDir, "video"+ext)
	if err := storage.CopyFile(videoPath, projectVideo); err != nil {
		os.RemoveAll(projectDir)
		return nil, fmt.Errorf("copy video: %w", err)
	}

	thumbnailPath := ""
	if s.thumbnail != nil {
		out := filepath.Join(projectDir, "thumbnail.jpg")
		if err := s.thumbnail(ctx, projectVideo, out); err != nil {
			log.Printf("[project] thumbnail generation failed for %s: %v", id, err)
		} else {
			thumbnailPath = out
		}
	}

	now := time.Now()
	p := &Project{
		ID:               id,
		Name:             GenerateName(originalFilename),
		OriginalFilename: originalFilename,
		VideoPath:        projectVideo,
		ThumbnailPath:    thumbnailPath,
		CreatedAt:        now,
		UpdatedAt:        now,
		Segments:         []Segment{},
		Status:           StatusCreated,
	}

	if err := s.writeProject(p); err != nil {
		os.RemoveAll(projectDir)
		return nil, err
	}

	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	index, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	index = append([]IndexEntry{{
		ID:            p.ID,
		Name:          p.Name,
		ThumbnailPath: p.ThumbnailPath,
		CreatedAt:     p.CreatedAt,
		Status:        p.Status,
	}}, index...)
	if err := s.writeIndex(index); err != nil {
		return nil, err
	}

	return p, nil
}

// Get loads a project by id.
func (s *Store) Get(id string) (*Project, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(id), "project.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode project %s: %w", id, err)
	}
	return &p, nil
}

// Update applies a mutation under the project's advisory lock, refreshes
// updated_at, and patches the index's cached name/status.
func (s *Store) Update(id string, apply func(*Project)) (*Project, error) {
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	p, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	apply(p)
	p.UpdatedAt = time.Now()

	if err := s.writeProject(p); err != nil {
		return nil, err
	}

	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	index, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	for i := range index {
		if index[i].ID == id {
			index[i].Name = p.Name
			index[i].Status = p.Status
			break
		}
	}
	if err := s.writeIndex(index); err != nil {
		return nil, err
	}

	return p, nil
}

// List returns up to limit index records, most recent first.
func (s *Store) List(limit int) ([]IndexEntry, error) {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	index, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(index) > limit {
		index = index[:limit]
	}
	return index, nil
}

// Delete removes the project directory and its index entry. Deleting an
// unknown id is not an error.
func (s *Store) Delete(id string) error {
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	if err := os.RemoveAll(s.Dir(id)); err != nil {
		return fmt.Errorf("remove project dir: %w", err)
	}

	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	index, err := s.readIndex()
	if err != nil {
		return err
	}
	kept := index[:0]
	for _, e := range index {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	return s.writeIndex(kept)
}

// SaveSegments stores a segment list on the project.
func (s *Store) SaveSegments(id string, segments []Segment, translated bool) (*Project, error) {
	return s.Update(id, func(p *Project) {
		if translated {
			p.TranslatedSegments = segments
		} else {
			p.Segments = segments
		}
	})
}

func (s *Store) writeProject(p *Project) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.Dir(p.ID), "project.json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *Store) readIndex() ([]IndexEntry, error) {
	data, err := os.ReadFile(s.indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []IndexEntry{}, nil
		}
		return nil, err
	}

	var index []IndexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	return index, nil
}

func (s *Store) writeIndex(index []IndexEntry) error {
	if index == nil {
		index = []IndexEntry{}
	}
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.indexPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.indexPath)
}
