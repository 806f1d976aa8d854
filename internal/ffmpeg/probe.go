package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const probeTimeout = 30 * time.Second

type probeResult struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeFormat struct {
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

type probeStream struct {
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	RFrameRate string `json:"r_frame_rate,omitempty"`
	SampleRate string `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

// VideoStreamInfo describes the first video stream of a file.
type VideoStreamInfo struct {
	Codec  string  `json:"codec"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FPS    float64 `json:"fps"`
}

// AudioStreamInfo describes the first audio stream of a file.
type AudioStreamInfo struct {
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// VideoInfo is the metadata surface returned by Probe.
type VideoInfo struct {
	Duration   float64          `json:"duration"`
	Size       int64            `json:"size"`
	BitRate    int64            `json:"bit_rate"`
	FormatName string           `json:"format_name"`
	Video      *VideoStreamInfo `json:"video"`
	Audio      *AudioStreamInfo `json:"audio"`
}

// Probe reads media metadata via ffprobe.
func Probe(ctx context.Context, filePath string) (*VideoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}

	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	duration, _ := strconv.ParseFloat(result.Format.Duration, 64)
	size, _ := strconv.ParseInt(result.Format.Size, 10, 64)
	bitRate, _ := strconv.ParseInt(result.Format.BitRate, 10, 64)

	info := &VideoInfo{
		Duration:   duration,
		Size:       size,
		BitRate:    bitRate,
		FormatName: result.Format.FormatName,
	}

	for _, s := range result.Streams {
		switch s.CodecType {
		case "video":
			if info.Video == nil {
				info.Video = &VideoStreamInfo{
					Codec:  s.CodecName,
					Width:  s.Width,
					Height: s.Height,
					FPS:    parseFrameRate(s.RFrameRate),
				}
			}
		case "audio":
			if info.Audio == nil {
				sampleRate, _ := strconv.Atoi(s.SampleRate)
				info.Audio = &AudioStreamInfo{
					Codec:      s.CodecName,
					SampleRate: sampleRate,
					Channels:   s.Channels,
				}
			}
		}
	}

	return info, nil
}

// parseFrameRate converts an ffprobe rational like "30000/1001" to a float.
func parseFrameRate(r string) float64 {
	num, den, ok := strings.Cut(r, "/")
	if !ok {
		f, _ := strconv.ParseFloat(r, 64)
		return f
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
