// Package tesseract implements capability.TextExtractor with local OCR.
// PDFs are exploded into page images with pdfcpu, each image is recognized
// with Tesseract, and the page texts are concatenated in page order.
package tesseract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"legalpipe/internal/capability"
	"legalpipe/internal/config"
	"legalpipe/internal/model"
)

// Extractor is a Tesseract-backed text extractor. A fresh gosseract client is
// created per image; the factory indirection exists for tests.
type Extractor struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// New constructs an Extractor configured with the OCR languages.
func New(cfg config.OCRConfig) *Extractor {
	return &Extractor{
		languages:     cfg.Languages,
		clientFactory: gosseract.NewClient,
	}
}

var _ capability.TextExtractor = (*Extractor)(nil)

// ExtractText returns the recognized text of the document at path. Plain text
// files pass through unchanged; images are recognized directly; PDFs go
// through page-image extraction first. A missing or unsupported file is an
// input error; OCR failures are external service errors.
func (e *Extractor) ExtractText(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("document %s: %w", path, model.ErrInput)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, model.ErrInput)
		}
		return cleanSoft(string(data)), nil
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
		text, err := e.recognizeImage(ctx, path)
		if err != nil {
			return "", err
		}
		return cleanSoft(text), nil
	case ".pdf":
		text, err := e.recognizePDF(ctx, path)
		if err != nil {
			return "", err
		}
		return cleanSoft(text), nil
	default:
		return "", fmt.Errorf("unsupported document type %s: %w", filepath.Ext(path), model.ErrInput)
	}
}

func (e *Extractor) recognizeImage(ctx context.Context, path string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	c := e.clientFactory()
	defer c.Close()

	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return "", fmt.Errorf("set languages: %w: %v", model.ErrExternalService, err)
		}
	}
	if err := c.SetImage(path); err != nil {
		return "", fmt.Errorf("set image %s: %w: %v", path, model.ErrExternalService, err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize %s: %w: %v", path, model.ErrExternalService, err)
	}
	return text, nil
}

func (e *Extractor) recognizePDF(ctx context.Context, path string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "legalpipe-ocr-*")
	if err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := api.ExtractImagesFile(path, tmpDir, nil, nil); err != nil {
		return "", fmt.Errorf("extract page images from %s: %w: %v", path, model.ErrExternalService, err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return "", fmt.Errorf("list page images: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, ent := range entries {
		if !ent.IsDir() {
			names = append(names, ent.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%s has no extractable page images: %w", path, model.ErrInput)
	}
	// pdfcpu names images by page number; lexical order is page order for the
	// zero-padded names it emits.
	sort.Strings(names)

	var pages []string
	for _, name := range names {
		text, err := e.recognizeImage(ctx, filepath.Join(tmpDir, name))
		if err != nil {
			return "", err
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n"), nil
}

var multiBlank = regexp.MustCompile(`\n{3,}`)

// cleanSoft normalizes OCR output without touching the wording: line endings
// become \n, trailing whitespace per line is dropped, and runs of blank lines
// collapse to one.
func cleanSoft(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	s = strings.Join(lines, "\n")
	s = multiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
