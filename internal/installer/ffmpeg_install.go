package installer

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const ffmpegWindowsURL = "https://github.com/BtbN/FFmpeg-Builds/releases/download/latest/ffmpeg-master-latest-win64-gpl.zip"

// InstallFFmpeg downloads a static ffmpeg build into baseDir/bin. Only
// implemented for Windows; other platforms get it from their package manager.
func (s *Service) InstallFFmpeg(ctx context.Context) Result {
	if status := s.CheckFFmpeg(ctx); status.Installed {
		return Result{Success: true, Message: "ffmpeg already installed", Path: status.Path}
	}

	if runtime.GOOS != "windows" {
		return Result{
			Success: false,
			Error:   "automatic ffmpeg install is only supported on Windows; use your package manager (apt, brew, etc.)",
		}
	}

	archive := filepath.Join(s.baseDir, "ffmpeg.zip")
	log.Printf("[installer] downloading ffmpeg from %s", ffmpegWindowsURL)
	if err := s.download(ctx, ffmpegWindowsURL, archive); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	defer os.Remove(archive)

	binDir := filepath.Join(s.baseDir, "bin")
	path, err := extractFFmpeg(archive, binDir)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true, Message: "ffmpeg installed", Path: path}
}

// extractFFmpeg pulls the executables out of the release zip, flattening the
// archive's bin/ directory into destDir.
func extractFFmpeg(archivePath, destDir string) (string, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening archive: %w", err)
	}
	defer reader.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("creating bin dir: %w", err)
	}

	var ffmpegPath string
	for _, f := range reader.File {
		name := filepath.Base(f.Name)
		if f.FileInfo().IsDir() || !strings.HasSuffix(strings.ToLower(name), ".exe") {
			continue
		}

		dest := filepath.Join(destDir, name)
		if err := extractFile(f, dest); err != nil {
			return "", err
		}
		if strings.EqualFold(name, "ffmpeg.exe") {
			ffmpegPath = dest
		}
	}

	if ffmpegPath == "" {
		return "", fmt.Errorf("archive did not contain ffmpeg.exe")
	}
	return ffmpegPath, nil
}

func extractFile(f *zip.File, dest string) error {
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening %s in archive: %w", f.Name, err)
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0755)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("extracting %s: %w", f.Name, err)
	}
	return nil
}
