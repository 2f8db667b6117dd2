// Package output renders finished episodes as JSON or Markdown documents.
package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"podcast-agent/internal/config"
	"podcast-agent/internal/domain"
)

// DefaultDir is where documents go when no output path is given.
const DefaultDir = "output"

type metadataJSON struct {
	EpisodeID string `json:"episode_id,omitempty"`
	Host      string `json:"host"`
	Guest     string `json:"guest"`
	Theme     string `json:"theme"`
	Tone      string `json:"tone"`
	Language  string `json:"language"`
	Duration  string `json:"duration"`
	Model     string `json:"model"`
}

type turnJSON struct {
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

type documentJSON struct {
	Metadata     metadataJSON `json:"metadata"`
	CreatedAt    string       `json:"created_at"`
	Conversation []turnJSON   `json:"conversation"`
}

// Extension returns the file extension for a format.
func Extension(format string) string {
	if format == config.FormatMarkdown {
		return "md"
	}
	return "json"
}

// DefaultPath returns dir/podcast_YYYYMMDD_HHMMSS.<ext>.
func DefaultPath(dir, format string, now time.Time) string {
	if dir == "" {
		dir = DefaultDir
	}
	return filepath.Join(dir, fmt.Sprintf("podcast_%s.%s", now.Format("20060102_150405"), Extension(format)))
}

// WriteJSON writes the indented document with non-ASCII text kept as is.
func WriteJSON(w io.Writer, meta domain.EpisodeMetadata, turns []domain.TurnRecord) error {
	doc := documentJSON{
		Metadata: metadataJSON{
			EpisodeID: meta.EpisodeID,
			Host:      meta.Host,
			Guest:     meta.Guest,
			Theme:     meta.Theme,
			Tone:      meta.Tone,
			Language:  meta.Language,
			Duration:  meta.Duration,
			Model:     meta.Model,
		},
		CreatedAt:    meta.CreatedAt.Format(time.RFC3339),
		Conversation: make([]turnJSON, 0, len(turns)),
	}
	for _, turn := range turns {
		doc.Conversation = append(doc.Conversation, turnJSON{
			Speaker:   turn.Speaker,
			Text:      turn.Text,
			Timestamp: turn.CreatedAt.Format(time.RFC3339Nano),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("output: encode json: %w", err)
	}
	return nil
}

// WriteMarkdown writes a metadata list followed by one section per turn.
func WriteMarkdown(w io.Writer, meta domain.EpisodeMetadata, turns []domain.TurnRecord) error {
	bw := bufio.NewWriter(w)
	lines := []string{"# AI-Generated Podcast", "", "## Metadata", ""}
	for _, kv := range meta.Fields() {
		lines = append(lines, fmt.Sprintf("- **%s:** %s", kv[0], kv[1]))
	}
	lines = append(lines,
		fmt.Sprintf("- **Created At:** %s", meta.CreatedAt.Format(time.RFC3339)),
		"",
		"## Conversation",
		"",
	)
	for _, turn := range turns {
		speaker := turn.Speaker
		if strings.TrimSpace(speaker) == "" {
			speaker = "Unknown"
		}
		lines = append(lines, "### "+speaker, "", turn.Text, "")
	}
	if _, err := bw.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		return fmt.Errorf("output: write markdown: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("output: write markdown: %w", err)
	}
	return nil
}

// Save writes the episode to path in format, creating parent directories.
// An empty path selects DefaultPath. It returns the path written.
func Save(format, path string, meta domain.EpisodeMetadata, turns []domain.TurnRecord) (string, error) {
	if path == "" {
		path = DefaultPath(DefaultDir, format, meta.CreatedAt)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("output: create directory for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("output: create %s: %w", path, err)
	}
	write := WriteJSON
	if format == config.FormatMarkdown {
		write = WriteMarkdown
	}
	if err := write(f, meta, turns); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("output: close %s: %w", path, err)
	}
	return path, nil
}
