package drafts

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/lernpack/pkg/lernpack/generate"
	"github.com/cognicore/lernpack/pkg/lernpack/internalerr"
)

func samplePack(id string) *generate.DraftPack {
	return &generate.DraftPack{
		ID:       id,
		Title:    "Government Office: Request",
		Level:    "A2",
		Scenario: "government_office",
		Register: "formal",
		Prompts: []generate.DraftPrompt{{
			ID:           "prompt-001",
			Text:         "Sie brauchen einen Termin im Bürgeramt.",
			GlossEN:      "I need an appointment at the office.",
			NaturalEN:    "I'd like to book an appointment.",
			SlotsChanged: []string{"subject", "verb"},
			Slots:        map[string][]string{"subject": {"Sie"}},
			StepID:       "schalter",
		}},
		IngestionMetadata: &generate.IngestionMetadata{
			Source:      "text",
			ChunkIDs:    []string{"abc123def0"},
			GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}
}

func TestWriteAndRead(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root)
	pack := samplePack("government_office_request_a2_1a2b3c4d")

	path, err := w.Write("berlin", pack)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "berlin", "drafts", "government_office", pack.ID+".json"), path)

	got, err := Read(path)
	require.NoError(t, err)
	pack.Prompts[0].StepID = ""
	assert.Equal(t, pack, got)

	files, err := w.List("berlin", "government_office")
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}

func TestWriteIsWriteOnce(t *testing.T) {
	w := NewWriter(t.TempDir())
	pack := samplePack("government_office_request_a2_1a2b3c4d")

	_, err := w.Write("berlin", pack)
	require.NoError(t, err)
	_, err = w.Write("berlin", pack)
	assert.True(t, errors.Is(err, internalerr.ErrDuplicate))
}

func TestWriteRejectsTraversal(t *testing.T) {
	w := NewWriter(t.TempDir())
	_, err := w.Write("../x", samplePack("p"))
	assert.True(t, errors.Is(err, internalerr.ErrInvalidInput))
}

func TestReadMissingAndMalformed(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "none.json"))
	assert.True(t, errors.Is(err, internalerr.ErrNotFound))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = Read(bad)
	assert.True(t, errors.Is(err, internalerr.ErrInvalidInput))

	files, err := NewWriter(t.TempDir()).List("berlin", "doctor")
	require.NoError(t, err)
	assert.Empty(t, files)
}
