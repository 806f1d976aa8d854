package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

const thumbnailTimeout = 30 * time.Second

// GenerateThumbnail extracts a single frame at one second in, scaled to
// 320px wide.
func GenerateThumbnail(ctx context.Context, inputPath, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, thumbnailTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-ss", "1.0",
		"-i", inputPath,
		"-vframes", "1",
		"-vf", "scale=320:-1",
		"-y",
		outputPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	if _, err := os.Stat(outputPath); err != nil {
		return fmt.Errorf("thumbnail not created: %w", err)
	}
	return nil
}
