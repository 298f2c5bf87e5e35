package tesseract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalpipe/internal/config"
	"legalpipe/internal/model"
)

func TestExtractTextMissingFile(t *testing.T) {
	e := New(config.OCRConfig{Languages: []string{"spa"}})
	_, err := e.ExtractText(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
	assert.ErrorIs(t, err, model.ErrInput)
}

func TestExtractTextUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.docx")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	e := New(config.OCRConfig{})
	_, err := e.ExtractText(context.Background(), path)
	assert.ErrorIs(t, err, model.ErrInput)
}

func TestExtractTextPlainTextPassthrough(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "escritura.txt")
	raw := "ESCRITURA PUBLICA  \r\nCONSTITUCION DE SOCIEDAD\n\n\n\nSantiago, quince de enero"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	e := New(config.OCRConfig{})
	got, err := e.ExtractText(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "ESCRITURA PUBLICA\nCONSTITUCION DE SOCIEDAD\n\nSantiago, quince de enero", got)
}

func TestCleanSoft(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trailing spaces", "hola  \nmundo\t", "hola\nmundo"},
		{"blank line runs", "a\n\n\n\n\nb", "a\n\nb"},
		{"windows endings", "a\r\nb", "a\nb"},
		{"outer whitespace", "\n\n  texto  \n\n", "texto"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanSoft(tt.in))
		})
	}
}
