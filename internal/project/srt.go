package project

import (
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"unicode"
)

// FormatSRTTime renders seconds as HH:MM:SS,mmm. Milliseconds are
// truncated, not rounded: 3725.4 -> "01:02:05,400".
func FormatSRTTime(seconds float64) string {
	hours := int(seconds / 3600)
	minutes := int(math.Mod(seconds, 3600) / 60)
	secs := int(math.Mod(seconds, 60))
	millis := int(math.Mod(seconds, 1) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// ExportSRT renders segments as SRT cue blocks, numbered by segment id.
func ExportSRT(segments []Segment) string {
	var sb strings.Builder
	for _, seg := range segments {
		sb.WriteString(strconv.Itoa(seg.ID))
		sb.WriteString("\n")
		sb.WriteString(FormatSRTTime(seg.Start))
		sb.WriteString(" --> ")
		sb.WriteString(FormatSRTTime(seg.End))
		sb.WriteString("\n")
		sb.WriteString(seg.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

var srtTimestampRe = regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2}),(\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2}),(\d{3})`)

// ParseSRT parses SRT content back into segments.
func ParseSRT(content string) []Segment {
	var segments []Segment
	var current *Segment

	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)

		if line == "" {
			if current != nil && current.Text != "" {
				segments = append(segments, *current)
				current = nil
			}
			continue
		}

		if m := srtTimestampRe.FindStringSubmatch(line); m != nil {
			if current != nil && current.Text != "" {
				segments = append(segments, *current)
				current = nil
			}
			if current == nil {
				current = &Segment{ID: len(segments) + 1}
			}
			current.Start = parseSRTTime(m[1:5])
			current.End = parseSRTTime(m[5:9])
			continue
		}

		// A bare number before a timestamp line is the cue number.
		if n, err := strconv.Atoi(line); err == nil && current == nil {
			current = &Segment{ID: n}
			continue
		}

		if current != nil {
			if current.Text != "" {
				current.Text += "\n"
			}
			current.Text += line
		}
	}

	if current != nil && current.Text != "" {
		segments = append(segments, *current)
	}
	return segments
}

func parseSRTTime(parts []string) float64 {
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	s, _ := strconv.Atoi(parts[2])
	ms, _ := strconv.Atoi(parts[3])
	return float64(h*3600+m*60+s) + float64(ms)/1000.0
}

// SanitizeFilename strips everything except letters, digits, and spaces,
// trims trailing spaces, and replaces the remaining spaces with underscores.
func SanitizeFilename(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			sb.WriteRune(r)
		}
	}
	cleaned := strings.TrimRight(sb.String(), " ")
	return strings.ReplaceAll(cleaned, " ", "_")
}

// ExportSRT renders the project's segments (or translated segments) as SRT.
// Returns ErrNoSegments when the requested list is empty.
func (s *Store) ExportSRT(id string, translated bool) (string, error) {
	p, err := s.Get(id)
	if err != nil {
		return "", err
	}

	segments := p.Segments
	if translated {
		segments = p.TranslatedSegments
	}
	if len(segments) == 0 {
		return "", ErrNoSegments
	}

	return ExportSRT(segments), nil
}

// ErrNoSegments is returned when an export is requested but the segment
// list is empty.
var ErrNoSegments = fmt.Errorf("no segments to export")

// SRTFilename builds the on-disk export name for a project. Translated
// exports carry the target language name when known, otherwise a generic
// "_translated" suffix.
func SRTFilename(p *Project, translated bool) string {
	suffix := ""
	if translated {
		suffix = "_translated"
		if p.TargetLanguage != "" {
			suffix = "_" + p.TargetLanguage
		}
	}
	return SanitizeFilename(p.Name) + suffix + ".srt"
}

// SaveSRTFile writes the SRT export into the project directory and returns
// the file path.
func (s *Store) SaveSRTFile(id string, translated bool) (string, error) {
	content, err := s.ExportSRT(id, translated)
	if err != nil {
		return "", err
	}

	p, err := s.Get(id)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.Dir(id), SRTFilename(p, translated))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write srt: %w", err)
	}
	return path, nil
}

// OpenFolder opens the project directory in the platform file manager.
func (s *Store) OpenFolder(id string) error {
	dir := s.Dir(id)
	if _, err := os.Stat(dir); err != nil {
		return ErrNotFound
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("explorer", dir)
	case "darwin":
		cmd = exec.Command("open", dir)
	default:
		cmd = exec.Command("xdg-open", dir)
	}
	return cmd.Start()
}
