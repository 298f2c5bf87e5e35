// Package comparison computes structured diffs between consecutive versions
// of a document lineage. The diff is an exact field-level comparison over the
// extracted field maps; values that only differ in case, spacing or monetary
// punctuation count as equal.
package comparison

import (
	"fmt"
	"sort"
	"strings"

	"legalpipe/internal/model"
)

// Field-name prefixes mentioned first in the pair summary, most significant
// first. Prefix matching keeps variants like capital_suscrito under their
// category.
var summaryPriority = []string{
	"capital",
	"razon_social",
	"representante_legal",
	"administracion",
	"objeto_social",
	"domicilio",
}

// Compare produces the consecutive-pair comparisons for every group. A pair
// whose documents carry no extracted fields cannot be compared; that pair is
// skipped and reported in the returned warnings, without affecting the other
// pairs.
func Compare(docs []model.Document, groups map[model.Classification][]model.VersionedDocument) (map[model.Classification][]model.Comparison, []string) {
	out := make(map[model.Classification][]model.Comparison)
	var warnings []string

	for class, g := range groups {
		comparisons := make([]model.Comparison, 0, max(len(g)-1, 0))
		for i := 0; i+1 < len(g); i++ {
			a, b := g[i], g[i+1]
			if docs[a.DocIndex].Fields == nil || docs[b.DocIndex].Fields == nil {
				warnings = append(warnings, fmt.Sprintf(
					"%v: no se pudo comparar v%d y v%d (%s, %s): faltan campos extraidos: %v",
					model.ErrComparison, a.Version, b.Version, a.Filename, b.Filename, class))
				continue
			}

			cmp := model.Comparison{
				Group:       class,
				FromVersion: a.Version,
				ToVersion:   b.Version,
				SourceDocA:  a.DocIndex,
				SourceDocB:  b.DocIndex,
				FileA:       a.Filename,
				FileB:       b.Filename,
				FechaA:      a.Fecha,
				FechaB:      b.Fecha,
				Changes:     diffFields(docs[a.DocIndex].Fields, docs[b.DocIndex].Fields),
			}
			cmp.Narrative = narrate(cmp.Changes)
			cmp.Summary = summarize(cmp.Changes, a.Version, b.Version)
			comparisons = append(comparisons, cmp)
		}
		out[class] = comparisons
	}

	return out, warnings
}

// diffFields returns the field-level deltas between two extracted field maps,
// ordered by field name. An empty value on one side is an addition or removal.
func diffFields(old, new map[string]string) []model.FieldChange {
	keys := make(map[string]struct{}, len(old)+len(new))
	for k := range old {
		keys[k] = struct{}{}
	}
	for k := range new {
		keys[k] = struct{}{}
	}
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)

	var changes []model.FieldChange
	for _, k := range names {
		ov, nv := old[k], new[k]
		if equivalent(ov, nv) {
			continue
		}
		changes = append(changes, model.FieldChange{Field: k, OldValue: ov, NewValue: nv})
	}
	return changes
}

func narrate(changes []model.FieldChange) []string {
	out := make([]string, 0, len(changes))
	for _, c := range changes {
		switch {
		case c.OldValue == "":
			out = append(out, fmt.Sprintf("se agrega %s: %q", c.Field, c.NewValue))
		case c.NewValue == "":
			out = append(out, fmt.Sprintf("se elimina %s (antes %q)", c.Field, c.OldValue))
		default:
			out = append(out, fmt.Sprintf("%s cambia de %q a %q", c.Field, c.OldValue, c.NewValue))
		}
	}
	return out
}

func summarize(changes []model.FieldChange, from, to int) string {
	if len(changes) == 0 {
		return fmt.Sprintf("Sin cambios relevantes entre la version %d y la version %d.", from, to)
	}

	for _, prefix := range summaryPriority {
		for _, c := range changes {
			if !strings.HasPrefix(c.Field, prefix) {
				continue
			}
			head := fmt.Sprintf("Entre la version %d y la version %d se modifica %s de %q a %q",
				from, to, c.Field, c.OldValue, c.NewValue)
			if len(changes) > 1 {
				return fmt.Sprintf("%s, con %d cambios en total.", head, len(changes))
			}
			return head + "."
		}
	}
	return fmt.Sprintf("Entre la version %d y la version %d se registran %d cambios: %s.",
		from, to, len(changes), strings.Join(fieldNames(changes), ", "))
}

func fieldNames(changes []model.FieldChange) []string {
	names := make([]string, len(changes))
	for i, c := range changes {
		names[i] = c.Field
	}
	return names
}

// equivalent reports whether two field values carry the same information.
// Monetary values compare by their digit sequence, so "$1.000.000" equals
// "1000000"; everything else compares case- and whitespace-insensitively.
func equivalent(a, b string) bool {
	if da, aok := digits(a); aok {
		if db, bok := digits(b); bok {
			return da == db
		}
		return false
	}
	return canon(a) == canon(b)
}

func canon(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// digits extracts the digit sequence of a monetary-looking value. It reports
// false when the value contains anything beyond digits, separators and
// currency markers, or no digits at all.
func digits(s string) (string, bool) {
	var b strings.Builder
	seen := false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			seen = true
		case r == '.' || r == ',' || r == '$' || r == ' ':
		default:
			return "", false
		}
	}
	return b.String(), seen
}
