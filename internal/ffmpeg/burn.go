package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const burnTimeout = time.Hour

// BurnOptions control the rendered subtitle style.
type BurnOptions struct {
	FontSize int
}

// BurnSubtitles renders an SRT file into the video stream, copying audio
// untouched.
func BurnSubtitles(ctx context.Context, videoPath, srtPath, outputPath string, opts BurnOptions) error {
	if opts.FontSize <= 0 {
		opts.FontSize = 24
	}

	// The subtitles filter parses its argument, so the path needs escaping.
	escaped := strings.ReplaceAll(srtPath, "\\", "/")
	escaped = strings.ReplaceAll(escaped, ":", "\\:")

	filter := fmt.Sprintf(
		"subtitles='%s':force_style='FontSize=%d,PrimaryColour=&H00FFFFFF,OutlineColour=&H00000000,BorderStyle=3,Outline=2'",
		escaped, opts.FontSize,
	)

	ctx, cancel := context.WithTimeout(ctx, burnTimeout)
	defer cancel()

	run := func(encoder string) ([]byte, error) {
		cmd := exec.CommandContext(ctx, "ffmpeg",
			"-hide_banner", "-loglevel", "error",
			"-i", videoPath,
			"-vf", filter,
			"-c:v", encoder,
			"-c:a", "copy",
			"-y",
			outputPath,
		)
		return cmd.CombinedOutput()
	}

	encoder := SelectH264Encoder()
	output, err := run(encoder)
	if err != nil && encoder != "libx264" {
		// Hardware encoders can be listed but unusable; retry in software.
		output, err = run("libx264")
	}
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
