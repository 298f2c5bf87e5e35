// Package versioning orders documents into per-classification lineages.
// Within a classification group versions are dense and 1-based, assigned by
// primary date ascending with the file name as tiebreak. The version-1
// document is the base of the lineage.
package versioning

import (
	"fmt"
	"sort"
	"time"

	"legalpipe/internal/model"
)

// Assign partitions the document arena by classification and numbers each
// group. Every document must carry a valid primary date; an undated or
// unparsable document aborts the whole stage.
func Assign(docs []model.Document) (map[model.Classification][]model.VersionedDocument, error) {
	groups := make(map[model.Classification][]model.VersionedDocument)

	for i := range docs {
		d := &docs[i]
		fecha := d.PrimaryDate()
		if fecha == "" {
			return nil, fmt.Errorf("document %s has no extractable date: %w", d.Filename, model.ErrVersioning)
		}
		if _, err := time.Parse(model.DateLayout, fecha); err != nil {
			return nil, fmt.Errorf("document %s has invalid date %q: %w", d.Filename, fecha, model.ErrVersioning)
		}

		class := d.Classification
		if class == "" {
			class = model.ClassOtros
		}
		groups[class] = append(groups[class], model.VersionedDocument{
			DocIndex:      i,
			Filename:      d.Filename,
			Fecha:         fecha,
			Clasificacion: class,
		})
	}

	for class, g := range groups {
		// Dates are ISO formatted, so lexical order is chronological order.
		sort.SliceStable(g, func(a, b int) bool {
			if g[a].Fecha != g[b].Fecha {
				return g[a].Fecha < g[b].Fecha
			}
			return g[a].Filename < g[b].Filename
		})
		for i := range g {
			g[i].Version = i + 1
			g[i].Base = i == 0
		}
		groups[class] = g
	}

	return groups, nil
}

// Flatten returns every versioned document across all groups, ordered by
// classification priority then version. This is the snapshot wire order.
func Flatten(groups map[model.Classification][]model.VersionedDocument) []model.VersionedDocument {
	classes := make([]model.Classification, 0, len(groups))
	for class := range groups {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(a, b int) bool {
		if classes[a].Priority() != classes[b].Priority() {
			return classes[a].Priority() < classes[b].Priority()
		}
		return classes[a] < classes[b]
	})

	var out []model.VersionedDocument
	for _, class := range classes {
		out = append(out, groups[class]...)
	}
	return out
}
