// Package legalization extracts granted legal powers from the escritura
// lineage. Each version's text is chunked, chunks are prefiltered by the
// catalog anchors, and only surviving chunks go to the verification model.
// Findings are unioned across versions and deduplicated per (codigo, archivo).
package legalization

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"legalpipe/internal/capability"
	"legalpipe/internal/model"
	"legalpipe/internal/retry"
)

// Chunking parameters for power verification.
const (
	ChunkSize    = 1000
	ChunkOverlap = 120
)

// Engine runs the power extraction flow against a structured extractor.
type Engine struct {
	extractor capability.StructuredExtractor
	retry     retry.Policy
}

// NewEngine builds a legalization engine.
func NewEngine(extractor capability.StructuredExtractor, policy retry.Policy) *Engine {
	return &Engine{extractor: extractor, retry: policy}
}

// Run scans every escritura version for catalog powers. The base document of
// the result is the version-1 escritura; without an escritura lineage the
// result is empty and a warning is returned. An empty catalog likewise yields
// an empty result with a warning.
func (e *Engine) Run(ctx context.Context, docs []model.Document, groups map[model.Classification][]model.VersionedDocument, catalog []model.Facultad) (*model.LegalizationResult, []string, error) {
	result := &model.LegalizationResult{Poderes: []model.PowerEntry{}}
	var warnings []string

	escrituras := groups[model.ClassEscrituraPublica]
	if len(escrituras) == 0 {
		return result, []string{"legalizacion: no hay escrituras publicas en el expediente"}, nil
	}
	base := escrituras[0]
	result.DocumentoBase = &base

	if len(catalog) == 0 {
		return result, []string{"legalizacion: catalogo de facultades vacio, no se verifican poderes"}, nil
	}

	// keyed by (codigo, archivo); a later finding only replaces an earlier
	// one when its confidence is higher.
	found := make(map[string]*model.PowerEntry)

	for _, vd := range escrituras {
		text := docs[vd.DocIndex].RawText
		if strings.TrimSpace(text) == "" {
			warnings = append(warnings, fmt.Sprintf("legalizacion: %s no tiene texto, se omite", vd.Filename))
			continue
		}

		for _, chunk := range SplitChunks(text, ChunkSize, ChunkOverlap) {
			for _, fac := range catalog {
				if !containsAllAnchors(chunk, fac.Anclas) {
					continue
				}

				var finding model.PowerFinding
				err := e.retry.Do(ctx, "verify "+fac.Codigo, func(ctx context.Context) error {
					var verr error
					finding, verr = e.extractor.VerifyPower(ctx, chunk, fac)
					return verr
				})
				if err != nil {
					return nil, warnings, err
				}
				if !finding.Otorgado {
					continue
				}

				entry := model.PowerEntry{
					Grupo:         fac.Grupo,
					Codigo:        fac.Codigo,
					Nombre:        fac.Nombre,
					Descripcion:   fac.Descripcion,
					Actor:         finding.Actor,
					Limites:       finding.Limites,
					Restricciones: finding.Restricciones,
					Evidencia:     finding.Evidencia,
					Confianza:     finding.Confianza,
					Archivo:       vd.Filename,
					Fecha:         vd.Fecha,
					Version:       vd.Version,
				}
				key := fac.Codigo + "|" + vd.Filename
				if prev, ok := found[key]; !ok || confidenceRank(entry.Confianza) > confidenceRank(prev.Confianza) {
					found[key] = &entry
				}
			}
		}
	}

	for _, entry := range found {
		result.Poderes = append(result.Poderes, *entry)
	}
	sort.Slice(result.Poderes, func(a, b int) bool {
		if result.Poderes[a].Codigo != result.Poderes[b].Codigo {
			return result.Poderes[a].Codigo < result.Poderes[b].Codigo
		}
		return result.Poderes[a].Archivo < result.Poderes[b].Archivo
	})

	return result, warnings, nil
}

// SplitChunks slices text into overlapping windows. The last chunk may be
// shorter; an overlap >= size degrades to no overlap rather than looping.
func SplitChunks(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	step := size - overlap
	if step <= 0 {
		step = size
	}

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// containsAllAnchors reports whether every anchor matches the chunk. An
// anchor holds "variant|variant" alternatives; one matching variant satisfies
// the anchor. Matching is case-insensitive. No anchors means no prefilter.
func containsAllAnchors(chunk string, anchors []string) bool {
	lower := strings.ToLower(chunk)
	for _, anchor := range anchors {
		matched := false
		for _, variant := range strings.Split(anchor, "|") {
			variant = strings.TrimSpace(strings.ToLower(variant))
			if variant != "" && strings.Contains(lower, variant) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func confidenceRank(c string) int {
	switch strings.ToLower(c) {
	case "alta":
		return 3
	case "media":
		return 2
	case "baja":
		return 1
	default:
		return 0
	}
}
