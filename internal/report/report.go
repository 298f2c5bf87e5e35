// Package report consolidates the run's extracted facts into the final
// seven-section report. Field resolution is deterministic: candidates are
// ordered by classification priority first and version (newest first) within
// the winning classification; the first candidate carrying the field wins and
// its file and version are recorded as provenance.
package report

import (
	"fmt"
	"sort"
	"strings"

	"legalpipe/internal/model"
)

// Section field lists. Legalization fields come only from the base escritura.
var (
	encabezadoFields     = []string{"razon_social", "rut", "tipo_sociedad"}
	constitucionFields   = []string{"fecha_constitucion", "notaria", "repertorio", "objeto_social", "domicilio", "duracion"}
	capitalSocialFields  = []string{"capital", "forma_de_pago_capital"}
	administracionFields = []string{"administracion", "representante_legal", "socios"}
	legalizacionFields   = []string{"notaria", "notario", "repertorio", "fojas", "numero", "anio"}
)

// candidate is one versioned document in resolution order.
type candidate struct {
	doc     *model.Document
	vd      model.VersionedDocument
	prio    int
	version int
}

// Build aggregates the report. It always completes: an unresolvable field is
// emitted with a null value and reported in the returned warnings. Building
// twice from the same inputs yields byte-identical JSON.
func Build(docs []model.Document, groups map[model.Classification][]model.VersionedDocument, leg *model.LegalizationResult) (*model.Report, []string) {
	cands := resolutionOrder(docs, groups)
	var warnings []string

	resolve := func(section string, fields []string, pool []candidate) model.Section {
		out := make(model.Section, len(fields))
		for _, field := range fields {
			fv, ok := lookup(pool, field)
			if !ok {
				warnings = append(warnings, fmt.Sprintf("%v: campo %s sin valor en la seccion %s", model.ErrReport, field, section))
			}
			out[field] = fv
		}
		return out
	}

	rep := &model.Report{
		Encabezado:     resolve("encabezado", encabezadoFields, cands),
		CapitalSocial:  resolve("capital_social", capitalSocialFields, cands),
		Administracion: resolve("administracion", administracionFields, cands),
	}

	// Constitution facts resolve across all documents, except the
	// constitution date which is the base escritura's own date.
	constitucion := resolve("constitucion", constitucionFields, cands)
	if base := baseEscritura(groups); base != nil {
		constitucion["fecha_constitucion"] = model.FieldValue{
			Valor:   ptr(base.Fecha),
			Archivo: base.Filename,
			Version: base.Version,
		}
		warnings = dropWarning(warnings, "fecha_constitucion")
	}
	rep.Constitucion = constitucion

	// Legalization fields only ever come from the base escritura.
	basePool := basePoolOf(docs, groups)
	rep.Legalizacion = resolve("legalizacion", legalizacionFields, basePool)

	rep.PoderesPersonarias.FacultadesEncontradas = []model.PowerEntry{}
	rep.Restricciones.RestriccionesEncontradas = []model.Restriction{}
	if leg != nil {
		rep.PoderesPersonarias.FacultadesEncontradas = append(rep.PoderesPersonarias.FacultadesEncontradas, leg.Poderes...)
		for _, p := range leg.Poderes {
			if p.Restricciones == "" {
				continue
			}
			rep.Restricciones.RestriccionesEncontradas = append(rep.Restricciones.RestriccionesEncontradas, model.Restriction{
				Descripcion:         p.Restricciones,
				FacultadesAfectadas: []string{p.Codigo},
				Archivo:             p.Archivo,
			})
		}
	}

	return rep, warnings
}

// resolutionOrder flattens the groups into the field resolution order:
// classification priority ascending, then version descending.
func resolutionOrder(docs []model.Document, groups map[model.Classification][]model.VersionedDocument) []candidate {
	var cands []candidate
	for class, g := range groups {
		for _, vd := range g {
			cands = append(cands, candidate{
				doc:     &docs[vd.DocIndex],
				vd:      vd,
				prio:    class.Priority(),
				version: vd.Version,
			})
		}
	}
	sort.SliceStable(cands, func(a, b int) bool {
		if cands[a].prio != cands[b].prio {
			return cands[a].prio < cands[b].prio
		}
		if cands[a].version != cands[b].version {
			return cands[a].version > cands[b].version
		}
		return cands[a].vd.Filename < cands[b].vd.Filename
	})
	return cands
}

func lookup(cands []candidate, field string) (model.FieldValue, bool) {
	for _, c := range cands {
		if v, ok := c.doc.Fields[field]; ok && v != "" {
			return model.FieldValue{Valor: ptr(v), Archivo: c.vd.Filename, Version: c.vd.Version}, true
		}
	}
	return model.FieldValue{}, false
}

func baseEscritura(groups map[model.Classification][]model.VersionedDocument) *model.VersionedDocument {
	g := groups[model.ClassEscrituraPublica]
	if len(g) == 0 {
		return nil
	}
	return &g[0]
}

func basePoolOf(docs []model.Document, groups map[model.Classification][]model.VersionedDocument) []candidate {
	base := baseEscritura(groups)
	if base == nil {
		return nil
	}
	return []candidate{{doc: &docs[base.DocIndex], vd: *base}}
}

// dropWarning removes the pending warning for a field that was later filled
// by a non-map source.
func dropWarning(warnings []string, field string) []string {
	out := warnings[:0]
	for _, w := range warnings {
		if !strings.Contains(w, "campo "+field+" ") {
			out = append(out, w)
		}
	}
	return out
}

func ptr(s string) *string { return &s }
