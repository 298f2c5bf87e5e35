package model

// RunState is the pipeline controller state machine.
type RunState string

const (
	RunPending   RunState = "pending"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
)

// RunStatus is an inspectable snapshot of one company run.
type RunStatus struct {
	RunID           string   `json:"run_id"`
	Company         string   `json:"company"`
	State           RunState `json:"state"`
	Stage           string   `json:"stage,omitempty"`
	CompletedStages []string `json:"completed_stages"`
	Reason          string   `json:"reason,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
}

// OCRResult is the ocr stage wire record for one document.
type OCRResult struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Text     string `json:"text"`
}

// DateResult is the date-extraction stage wire record. Fechas is ordered by
// relevance; the first entry is the document's primary date.
type DateResult struct {
	Filename string   `json:"filename"`
	Fechas   []string `json:"fechas"`
}

// ClassificationResult is the classification stage wire record.
type ClassificationResult struct {
	Filename      string         `json:"filename"`
	Fecha         string         `json:"fecha"`
	Clasificacion Classification `json:"clasificacion"`
}

// ProcessingState is the accumulator threaded through the stages of one
// company run. Each stage fills exactly one typed field; downstream stages
// read their predecessors' fields directly, so a missing dependency is a
// compile-time hole rather than an absent map key.
type ProcessingState struct {
	Company string

	// Documents is the arena; versioned documents and comparisons refer to
	// entries by index.
	Documents []Document

	OCR             []OCRResult
	Dates           []DateResult
	Classifications []ClassificationResult
	Vectorization   *VectorizationResult
	Versioned       map[Classification][]VersionedDocument
	Comparisons     map[Classification][]Comparison
	Legalization    *LegalizationResult
	Report          *Report

	// Warnings accumulates pair- and field-local errors (ErrComparison,
	// ErrReport) that do not abort the run.
	Warnings []string
}

// DocByFilename returns the arena index of the named document, or -1.
func (s *ProcessingState) DocByFilename(filename string) int {
	for i := range s.Documents {
		if s.Documents[i].Filename == filename {
			return i
		}
	}
	return -1
}
