package ffmpeg

import (
	"context"
	"log"
	"os/exec"
	"strings"
	"sync"
	"time"
)

var (
	h264Encoder     string
	h264EncoderOnce sync.Once
)

// Hardware H.264 encoders in priority order. Availability in the encoder
// list does not guarantee a working device, so nvenc/vaapi failures still
// fall back to software at burn time.
var hwH264Encoders = []string{
	"h264_nvenc",
	"h264_videotoolbox",
	"h264_qsv",
	"h264_vaapi",
}

// SelectH264Encoder picks the best available H.264 encoder from ffmpeg's
// encoder list, preferring hardware. Detection runs once per process.
func SelectH264Encoder() string {
	h264EncoderOnce.Do(func() {
		h264Encoder = detectH264Encoder()
	})
	return h264Encoder
}

func detectH264Encoder() string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-encoders").Output()
	if err != nil {
		return "libx264"
	}

	available := string(out)
	for _, enc := range hwH264Encoders {
		if strings.Contains(available, " "+enc+" ") {
			log.Printf("[ffmpeg] using hardware encoder %s", enc)
			return enc
		}
	}
	return "libx264"
}
