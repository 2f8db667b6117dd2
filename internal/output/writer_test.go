package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"podcast-agent/internal/config"
	"podcast-agent/internal/domain"
)

var createdAt = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func sampleEpisode() (domain.EpisodeMetadata, []domain.TurnRecord) {
	meta := domain.EpisodeMetadata{
		EpisodeID: "ep-1",
		Host:      "राहुल",
		Guest:     "Meera",
		Theme:     "AI & you",
		Tone:      "friendly",
		Language:  "Hindi",
		Duration:  domain.DurationLabel(10),
		Model:     "llama3",
		CreatedAt: createdAt,
	}
	turns := []domain.TurnRecord{
		{Speaker: "राहुल", Text: "नमस्ते <दोस्तों>", CreatedAt: createdAt},
		{Speaker: "Meera", Text: "", CreatedAt: createdAt.Add(time.Second)},
	}
	return meta, turns
}

func TestDefaultPath(t *testing.T) {
	require.Equal(t, filepath.Join("output", "podcast_20260314_092653.json"), DefaultPath("", config.FormatJSON, createdAt))
	require.Equal(t, filepath.Join("out", "podcast_20260314_092653.md"), DefaultPath("out", config.FormatMarkdown, createdAt))
}

func TestWriteJSON(t *testing.T) {
	meta, turns := sampleEpisode()
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, meta, turns))

	require.Contains(t, buf.String(), "नमस्ते <दोस्तों>", "text is written unescaped")
	require.Contains(t, buf.String(), "\n  \"metadata\"")

	var doc documentJSON
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Equal(t, "10 minutes", doc.Metadata.Duration)
	require.Equal(t, "2026-03-14T09:26:53Z", doc.CreatedAt)
	require.Len(t, doc.Conversation, 2)
	require.Equal(t, "Meera", doc.Conversation[1].Speaker)
	require.Empty(t, doc.Conversation[1].Text)
}

func TestWriteMarkdown(t *testing.T) {
	meta, turns := sampleEpisode()
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, meta, turns))

	want := strings.Join([]string{
		"# AI-Generated Podcast",
		"",
		"## Metadata",
		"",
		"- **host:** राहुल",
		"- **guest:** Meera",
		"- **theme:** AI & you",
		"- **tone:** friendly",
		"- **language:** Hindi",
		"- **duration:** 10 minutes",
		"- **model:** llama3",
		"- **Created At:** 2026-03-14T09:26:53Z",
		"",
		"## Conversation",
		"",
		"### राहुल",
		"",
		"नमस्ते <दोस्तों>",
		"",
		"### Meera",
		"",
		"",
		"",
	}, "\n") + "\n"
	require.Equal(t, want, buf.String())
}

func TestSave_CreatesDirectories(t *testing.T) {
	meta, turns := sampleEpisode()
	path := filepath.Join(t.TempDir(), "nested", "dir", "episode.md")

	written, err := Save(config.FormatMarkdown, path, meta, turns)
	require.NoError(t, err)
	require.Equal(t, path, written)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(raw), "# AI-Generated Podcast"))
}

func TestSave_DefaultsToJSON(t *testing.T) {
	meta, turns := sampleEpisode()
	path := filepath.Join(t.TempDir(), "episode.json")

	_, err := Save("", path, meta, turns)
	require.NoError(t, err)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, json.Valid(raw))
}
