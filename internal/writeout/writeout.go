// Package writeout renders a summary and its sources to a dated text file.
package writeout

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
)

const (
	DefaultWidth   = 100
	maxFilenameLen = 80
	fallbackTopic  = "topic"
)

var (
	disallowedFilenameChars = regexp.MustCompile(`[^a-z0-9\-\s_]`)
	filenameSeparators      = regexp.MustCompile(`[\s_]+`)
)

// Format wraps paragraph to width columns, hard-breaking words longer than
// a line, and appends a "Sources:" block with one URL per line.
func Format(paragraph string, sources []string, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	text := strings.Join(strings.Fields(paragraph), " ")
	wrapped := wrap.String(wordwrap.String(text, width), width)

	lines := make([]string, 0, len(sources)+3)
	lines = append(lines, wrapped, "", "Sources:")
	lines = append(lines, sources...)
	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n"
}

// SanitizeFilename lowercases topic, drops everything but letters, digits,
// dashes, underscores and whitespace, joins word runs with "_" and caps the
// result at 80 characters.
func SanitizeFilename(topic string) string {
	name := strings.ToLower(strings.TrimSpace(topic))
	name = disallowedFilenameChars.ReplaceAllString(name, "")
	name = filenameSeparators.ReplaceAllString(name, "_")
	if len(name) > maxFilenameLen {
		name = name[:maxFilenameLen]
	}
	if name == "" {
		return fallbackTopic
	}
	return name
}

// Path is <dir>/<sanitized topic>_<YYYY-MM-DD>.txt.
func Path(dir, topic string, day time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.txt", SanitizeFilename(topic), day.Format(time.DateOnly)))
}

// Write renders the output file for topic under dir and returns its path.
func Write(dir, topic, paragraph string, sources []string, width int, day time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := Path(dir, topic, day)
	if err := os.WriteFile(path, []byte(Format(paragraph, sources, width)), 0o644); err != nil {
		return "", fmt.Errorf("write output file: %w", err)
	}
	return path, nil
}
