package results

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalpipe/internal/model"
)

func TestFSSaveAndLoadStage(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFS(dir)
	require.NoError(t, err)

	in := []model.OCRResult{
		{Filename: "escritura.pdf", Path: "data/acme/escritura.pdf", Text: "texto"},
	}
	require.NoError(t, store.SaveStage(context.Background(), "acme", "ocr", in))

	// Canonical file name on disk.
	_, err = os.Stat(filepath.Join(dir, "acme_ocr_results.json"))
	require.NoError(t, err)

	var out []model.OCRResult
	require.NoError(t, store.LoadStage(context.Background(), "acme", "ocr", &out))
	assert.Equal(t, in, out)
}

func TestFSSaveOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFS(dir)
	require.NoError(t, err)

	require.NoError(t, store.SaveStage(context.Background(), "acme", "dates", map[string]int{"v": 1}))
	require.NoError(t, store.SaveStage(context.Background(), "acme", "dates", map[string]int{"v": 2}))

	var out map[string]int
	require.NoError(t, store.LoadStage(context.Background(), "acme", "dates", &out))
	assert.Equal(t, 2, out["v"])

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFSLoadMissingSnapshot(t *testing.T) {
	store, err := NewFS(t.TempDir())
	require.NoError(t, err)

	var out map[string]any
	err = store.LoadStage(context.Background(), "acme", "report", &out)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestFSDeleteStage(t *testing.T) {
	store, err := NewFS(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.SaveStage(context.Background(), "acme", "ocr", map[string]int{"v": 1}))
	require.NoError(t, store.DeleteStage(context.Background(), "acme", "ocr"))

	var out map[string]int
	assert.ErrorIs(t, store.LoadStage(context.Background(), "acme", "ocr", &out), ErrNoSnapshot)

	// Idempotent.
	assert.NoError(t, store.DeleteStage(context.Background(), "acme", "ocr"))
}
