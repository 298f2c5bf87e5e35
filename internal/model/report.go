package model

// FieldValue is a resolved report field with its provenance. A nil Valor means
// the field could not be resolved from any document; generation still
// completes and the gap is recorded as a ReportError warning.
type FieldValue struct {
	Valor   *string `json:"valor"`
	Archivo string  `json:"archivo,omitempty"`
	Version int     `json:"version,omitempty"`
}

// Section is one named block of the report: field name → resolved value.
type Section map[string]FieldValue

// PowerEntry is one granted legal power, annotated with the document it was
// found in. Entries are deduplicated on (Codigo, Archivo) only.
type PowerEntry struct {
	Grupo         string `json:"grupo"`
	Codigo        string `json:"codigo"`
	Nombre        string `json:"nombre"`
	Descripcion   string `json:"descripcion,omitempty"`
	Actor         string `json:"actor,omitempty"`
	Limites       string `json:"limites,omitempty"`
	Restricciones string `json:"restricciones,omitempty"`
	Evidencia     string `json:"evidencia,omitempty"`
	Confianza     string `json:"confianza,omitempty"`
	Archivo       string `json:"archivo"`
	Fecha         string `json:"fecha,omitempty"`
	Version       int    `json:"version,omitempty"`
}

// Restriction is an explicit limitation on one or more granted powers.
type Restriction struct {
	Descripcion         string   `json:"descripcion"`
	FacultadesAfectadas []string `json:"facultades_afectadas"`
	Archivo             string   `json:"archivo,omitempty"`
}

// Report is the consolidated seven-section legal report for one company run.
type Report struct {
	Encabezado         Section `json:"encabezado"`
	Constitucion       Section `json:"constitucion"`
	CapitalSocial      Section `json:"capital_social"`
	Administracion     Section `json:"administracion"`
	Legalizacion       Section `json:"legalizacion"`
	PoderesPersonarias struct {
		FacultadesEncontradas []PowerEntry `json:"facultades_encontradas"`
	} `json:"poderes_personarias"`
	Restricciones struct {
		RestriccionesEncontradas []Restriction `json:"restricciones_encontradas"`
	} `json:"restricciones"`
}

// Facultad is one row of the legal powers catalog. PalabrasClaves feed the
// verification prompt; Anclas are mandatory anchors, each possibly holding
// "variant|variant" alternatives, that a text chunk must contain before the
// expensive verification call is made.
type Facultad struct {
	Grupo          string
	Codigo         string
	Nombre         string
	Descripcion    string
	PalabrasClaves []string
	Anclas         []string
}

// PowerFinding is the verification verdict for one catalog code against one
// text chunk.
type PowerFinding struct {
	Otorgado      bool   `json:"otorgado"`
	Actor         string `json:"actor"`
	Limites       string `json:"limites"`
	Restricciones string `json:"restricciones"`
	Evidencia     string `json:"evidencia"`
	Confianza     string `json:"confianza"`
}

// LegalizationResult is the legalization stage output: the base escritura of
// the lineage plus every granted power found across its versions.
type LegalizationResult struct {
	DocumentoBase *VersionedDocument `json:"documento_base"`
	Poderes       []PowerEntry       `json:"poderes"`
}

// VectorizationResult is the vectorization stage snapshot. In the two
// observed modes it is a placeholder recording that the stage was skipped.
type VectorizationResult struct {
	Collection           string `json:"collection"`
	DocumentosProcesados int    `json:"documentos_procesados"`
	TotalChunks          int    `json:"total_chunks"`
	Modo                 string `json:"modo"`
	Mensaje              string `json:"mensaje"`
}

// Chunk is one embeddable slice of a document, keyed by a stable id derived
// from (filename, version, index) so re-runs upsert instead of duplicating.
type Chunk struct {
	StableID      string
	Filename      string
	Version       int
	Fecha         string
	Clasificacion Classification
	Content       string
}
