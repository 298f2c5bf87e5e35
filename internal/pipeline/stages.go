package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"legalpipe/internal/comparison"
	"legalpipe/internal/config"
	"legalpipe/internal/legalization"
	"legalpipe/internal/model"
	"legalpipe/internal/report"
	"legalpipe/internal/versioning"
)

// Chunking parameters for the vectorized mode.
const (
	vectorChunkSize    = 1200
	vectorChunkOverlap = 150
)

var supportedExtensions = map[string]bool{
	".pdf": true, ".txt": true,
	".png": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true,
}

// stageOCR discovers the company's documents and extracts their text.
func (c *Controller) stageOCR(ctx context.Context, state *model.ProcessingState) (any, error) {
	dir := filepath.Join(c.cfg.DataDir, state.Company)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("company directory %s: %w", dir, model.ErrInput)
	}

	var names []string
	for _, ent := range entries {
		if ent.IsDir() || !supportedExtensions[strings.ToLower(filepath.Ext(ent.Name()))] {
			continue
		}
		names = append(names, ent.Name())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no documents found in %s: %w", dir, model.ErrInput)
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		var text string
		err := c.policy.Do(ctx, "ocr "+name, func(ctx context.Context) error {
			var terr error
			text, terr = c.text.ExtractText(ctx, path)
			return terr
		})
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", name, err)
		}
		state.Documents = append(state.Documents, model.Document{
			Filename:   name,
			SourcePath: path,
			RawText:    text,
		})
		state.OCR = append(state.OCR, model.OCRResult{Filename: name, Path: path, Text: text})
	}

	c.metrics.addDocuments(len(names))
	return state.OCR, nil
}

// stageDates asks the extractor for each document's dates.
func (c *Controller) stageDates(ctx context.Context, state *model.ProcessingState) (any, error) {
	for i := range state.Documents {
		d := &state.Documents[i]
		var fechas []string
		err := c.policy.Do(ctx, "dates "+d.Filename, func(ctx context.Context) error {
			var derr error
			fechas, derr = c.llm.ExtractDates(ctx, d.Filename, d.RawText)
			return derr
		})
		if err != nil {
			return nil, fmt.Errorf("dates for %s: %w", d.Filename, err)
		}
		d.ExtractedDates = fechas
		state.Dates = append(state.Dates, model.DateResult{Filename: d.Filename, Fechas: fechas})
	}
	return state.Dates, nil
}

// stageClassification classifies each document and extracts its field map.
func (c *Controller) stageClassification(ctx context.Context, state *model.ProcessingState) (any, error) {
	for i := range state.Documents {
		d := &state.Documents[i]

		var class model.Classification
		err := c.policy.Do(ctx, "classify "+d.Filename, func(ctx context.Context) error {
			var cerr error
			class, cerr = c.llm.Classify(ctx, d.Filename, d.RawText)
			return cerr
		})
		if err != nil {
			return nil, fmt.Errorf("classify %s: %w", d.Filename, err)
		}
		d.Classification = class

		var fields map[string]string
		err = c.policy.Do(ctx, "fields "+d.Filename, func(ctx context.Context) error {
			var ferr error
			fields, ferr = c.llm.ExtractFields(ctx, d.Filename, d.RawText, class)
			return ferr
		})
		if err != nil {
			return nil, fmt.Errorf("fields for %s: %w", d.Filename, err)
		}
		d.Fields = fields

		state.Classifications = append(state.Classifications, model.ClassificationResult{
			Filename:      d.Filename,
			Fecha:         d.PrimaryDate(),
			Clasificacion: class,
		})
	}
	return state.Classifications, nil
}

// stageVersioning builds the per-classification lineages. The snapshot keeps
// the classification grouping, one version sequence per class.
func (c *Controller) stageVersioning(ctx context.Context, state *model.ProcessingState) (any, error) {
	groups, err := versioning.Assign(state.Documents)
	if err != nil {
		return nil, err
	}
	state.Versioned = groups
	return groups, nil
}

// stageVectorization persists document chunks when the vectorized mode is
// active; in the two legacy modes it records a placeholder stating that the
// stage was skipped.
func (c *Controller) stageVectorization(ctx context.Context, state *model.ProcessingState) (any, error) {
	collection := "legal_" + state.Company

	if c.cfg.Mode != config.ModeVectorized {
		state.Vectorization = &model.VectorizationResult{
			Collection: collection,
			Modo:       string(c.cfg.Mode),
			Mensaje:    fmt.Sprintf("vectorizacion omitida en modo %s", c.cfg.Mode),
		}
		return state.Vectorization, nil
	}

	if c.embed == nil {
		return nil, fmt.Errorf("vectorized mode requires a configured database: %w", model.ErrInput)
	}

	var chunks []model.Chunk
	for _, vd := range versioning.Flatten(state.Versioned) {
		text := state.Documents[vd.DocIndex].RawText
		for i, content := range legalization.SplitChunks(text, vectorChunkSize, vectorChunkOverlap) {
			chunks = append(chunks, model.Chunk{
				StableID:      fmt.Sprintf("%s:%s:%d:%d", state.Company, vd.Filename, vd.Version, i),
				Filename:      vd.Filename,
				Version:       vd.Version,
				Fecha:         vd.Fecha,
				Clasificacion: vd.Clasificacion,
				Content:       content,
			})
		}
	}

	written, err := c.embed.Upsert(ctx, state.Company, chunks)
	if err != nil {
		return nil, fmt.Errorf("persist embeddings: %w: %v", model.ErrExternalService, err)
	}

	state.Vectorization = &model.VectorizationResult{
		Collection:           collection,
		DocumentosProcesados: len(state.Documents),
		TotalChunks:          len(chunks),
		Modo:                 string(config.ModeVectorized),
		Mensaje:              fmt.Sprintf("%d chunks nuevos de %d", written, len(chunks)),
	}
	return state.Vectorization, nil
}

// stageComparison diffs consecutive versions in every lineage. Like the
// versioning snapshot, the output maps each classification to its pairs.
func (c *Controller) stageComparison(ctx context.Context, state *model.ProcessingState) (any, error) {
	cmps, warnings := comparison.Compare(state.Documents, state.Versioned)
	state.Comparisons = cmps
	state.Warnings = append(state.Warnings, warnings...)
	return cmps, nil
}

// stageLegalization loads the powers catalog and scans the escritura lineage.
func (c *Controller) stageLegalization(ctx context.Context, state *model.ProcessingState) (any, error) {
	var catalog []model.Facultad
	if c.facultades != nil {
		var err error
		catalog, err = c.facultades.ListFacultades(ctx)
		if err != nil {
			return nil, fmt.Errorf("load powers catalog: %w: %v", model.ErrExternalService, err)
		}
	}

	engine := legalization.NewEngine(c.llm, c.policy)
	result, warnings, err := engine.Run(ctx, state.Documents, state.Versioned, catalog)
	if err != nil {
		return nil, err
	}
	state.Legalization = result
	state.Warnings = append(state.Warnings, warnings...)
	return result, nil
}

// stageReport builds the consolidated report.
func (c *Controller) stageReport(ctx context.Context, state *model.ProcessingState) (any, error) {
	rep, warnings := report.Build(state.Documents, state.Versioned, state.Legalization)
	state.Report = rep
	state.Warnings = append(state.Warnings, warnings...)
	return rep, nil
}
