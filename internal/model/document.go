package model

// Classification is the legal document type assigned by the classification
// stage. The three named types drive the report resolution priority; anything
// the classifier cannot place lands in ClassOtros and never wins a conflict.
type Classification string

const (
	ClassEscrituraPublica Classification = "escritura_publica"
	ClassInscripcionCBR   Classification = "inscripcion_cbr"
	ClassPublicacionDO    Classification = "publicacion_diario_oficial"
	ClassOtros            Classification = "otros"
)

// DateLayout is the wire format for every date the pipeline emits.
const DateLayout = "2006-01-02"

// Priority returns the resolution rank of a classification; lower wins.
// escritura_publica > inscripcion_cbr > publicacion_diario_oficial > otros.
func (c Classification) Priority() int {
	switch c {
	case ClassEscrituraPublica:
		return 0
	case ClassInscripcionCBR:
		return 1
	case ClassPublicacionDO:
		return 2
	default:
		return 3
	}
}

// ParseClassification maps a classifier label onto the known enum, falling
// back to ClassOtros for anything unrecognized.
func ParseClassification(s string) Classification {
	switch Classification(s) {
	case ClassEscrituraPublica, ClassInscripcionCBR, ClassPublicacionDO:
		return Classification(s)
	default:
		return ClassOtros
	}
}

// Document is one scanned source file after OCR and classification. Documents
// live in the ProcessingState arena; downstream records reference them by
// index so comparisons and report provenance stay stable.
type Document struct {
	Filename       string            `json:"filename"`
	SourcePath     string            `json:"path"`
	RawText        string            `json:"-"`
	ExtractedDates []string          `json:"fechas,omitempty"`
	Classification Classification    `json:"clasificacion,omitempty"`
	Fields         map[string]string `json:"-"`
}

// PrimaryDate is the most relevant extracted date (first in relevance order),
// or "" when the document has none.
func (d *Document) PrimaryDate() string {
	if len(d.ExtractedDates) == 0 {
		return ""
	}
	return d.ExtractedDates[0]
}

// VersionedDocument is a Document with its chronological rank inside one
// classification group. Version numbers are dense and 1-based per group; the
// version-1 document is the base of the group's lineage.
type VersionedDocument struct {
	DocIndex      int            `json:"-"`
	Filename      string         `json:"filename"`
	Fecha         string         `json:"fecha"`
	Version       int            `json:"version"`
	Clasificacion Classification `json:"clasificacion"`
	Base          bool           `json:"-"`
}

// FieldChange is a single field-level delta between two consecutive versions.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"oldValue"`
	NewValue string `json:"newValue"`
}

// Comparison is the structured diff between versions n and n+1 of one
// classification group. It only ever relates consecutive versions.
type Comparison struct {
	Group       Classification `json:"clasificacion"`
	FromVersion int            `json:"de"`
	ToVersion   int            `json:"a"`
	SourceDocA  int            `json:"-"`
	SourceDocB  int            `json:"-"`
	FileA       string         `json:"archivo_v1"`
	FileB       string         `json:"archivo_vn"`
	FechaA      string         `json:"fecha_v1"`
	FechaB      string         `json:"fecha_vn"`
	Changes     []FieldChange  `json:"-"`
	Narrative   []string       `json:"cambios"`
	Summary     string         `json:"resumen"`
}
