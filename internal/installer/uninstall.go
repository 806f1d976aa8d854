package installer

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/autocaption/backend/internal/storage"
)

// StorageInfo breaks down how much disk the app is using.
type StorageInfo struct {
	ModelsBytes   int64 `json:"models_bytes"`
	ProjectsBytes int64 `json:"projects_bytes"`
	CacheBytes    int64 `json:"cache_bytes"`
	TotalBytes    int64 `json:"total_bytes"`
	ProjectCount  int   `json:"project_count"`
}

func (s *Service) cacheDir() string {
	return filepath.Join(s.baseDir, "cache")
}

// StorageUsage sizes the models, projects, and cache directories.
func (s *Service) StorageUsage() StorageInfo {
	info := StorageInfo{
		ModelsBytes:   storage.DirSize(s.modelsDir),
		ProjectsBytes: storage.DirSize(s.projectsDir),
		CacheBytes:    storage.DirSize(s.cacheDir()),
	}
	info.TotalBytes = info.ModelsBytes + info.ProjectsBytes + info.CacheBytes

	if entries, err := os.ReadDir(s.projectsDir); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				info.ProjectCount++
			}
		}
	}
	return info
}

// DeleteModels removes every downloaded model file.
func (s *Service) DeleteModels() Result {
	freed := storage.DirSize(s.modelsDir)
	if err := os.RemoveAll(s.modelsDir); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("deleting models: %v", err)}
	}
	log.Printf("[installer] deleted models (%d bytes)", freed)
	return Result{Success: true, Message: fmt.Sprintf("Deleted models, freed %d bytes", freed)}
}

// DeleteProjects removes all project data. This destroys user work.
func (s *Service) DeleteProjects() Result {
	freed := storage.DirSize(s.projectsDir)
	if err := os.RemoveAll(s.projectsDir); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("deleting projects: %v", err)}
	}
	log.Printf("[installer] deleted projects (%d bytes)", freed)
	return Result{Success: true, Message: fmt.Sprintf("Deleted projects, freed %d bytes", freed)}
}

// ClearCache removes temporary files.
func (s *Service) ClearCache() Result {
	freed := storage.DirSize(s.cacheDir())
	if err := os.RemoveAll(s.cacheDir()); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("clearing cache: %v", err)}
	}
	return Result{Success: true, Message: fmt.Sprintf("Cleared cache, freed %d bytes", freed)}
}

// FullUninstall removes models and cache, and projects too unless
// keepProjects is set.
func (s *Service) FullUninstall(keepProjects bool) Result {
	if r := s.DeleteModels(); !r.Success {
		return r
	}
	if r := s.ClearCache(); !r.Success {
		return r
	}
	if !keepProjects {
		if r := s.DeleteProjects(); !r.Success {
			return r
		}
	}

	msg := "Uninstalled models and cache"
	if !keepProjects {
		msg = "Uninstalled all application data"
	}
	return Result{Success: true, Message: msg}
}
