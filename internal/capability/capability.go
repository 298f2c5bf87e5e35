// Package capability declares the external service interfaces the pipeline
// stages depend on: text extraction (OCR), structured extraction (LLM) and
// embedding persistence. Stages are written against these interfaces so
// backends can be swapped and tests can run on mocks.
package capability

import (
	"context"

	"legalpipe/internal/model"
)

// TextExtractor produces the raw text of a scanned document.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// StructuredExtractor turns raw document text into structured facts. Every
// method returns model.ErrParse (wrapped) when the backend's response cannot
// be decoded, so callers can retry the call.
type StructuredExtractor interface {
	// Classify assigns one of the known document classes.
	Classify(ctx context.Context, filename, text string) (model.Classification, error)
	// ExtractDates returns the document's dates in wire format, ordered by
	// relevance; the first entry is the primary date.
	ExtractDates(ctx context.Context, filename, text string) ([]string, error)
	// ExtractFields returns the flat field map used by comparison and report
	// aggregation (razon_social, capital, representante_legal, ...).
	ExtractFields(ctx context.Context, filename, text string, class model.Classification) (map[string]string, error)
	// VerifyPower checks one catalog power against one text chunk.
	VerifyPower(ctx context.Context, chunk string, f model.Facultad) (model.PowerFinding, error)
}

// EmbeddingStore persists document chunks for later retrieval. Upsert returns
// the number of chunks actually written; chunks whose stable id already exists
// are skipped, which is what makes re-runs idempotent.
type EmbeddingStore interface {
	Upsert(ctx context.Context, company string, chunks []model.Chunk) (int, error)
}
