package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

const extractTimeout = 5 * time.Minute

// ExtractAudio converts the input's audio track to a temporary WAV file,
// 16kHz mono PCM as required by whisper. The caller removes the file.
func ExtractAudio(ctx context.Context, videoPath string) (string, error) {
	tmpFile, err := os.CreateTemp("", "autocaption-audio-*.wav")
	if err != nil {
		return "", err
	}
	tmpFile.Close()

	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		tmpFile.Name(),
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(tmpFile.Name())
		return "", fmt.Errorf("ffmpeg: %s: %w", string(output), err)
	}

	return tmpFile.Name(), nil
}
