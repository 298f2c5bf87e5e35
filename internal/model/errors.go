package model

import (
	"errors"
	"fmt"
)

// Error taxonomy. ErrInput, ErrExternalService and ErrVersioning abort the
// whole run; ErrParse is retried at the extraction call site before being
// escalated; ErrComparison and ErrReport are scoped to one pair or one field
// and are recorded as warnings without aborting their stage.
var (
	ErrInput           = errors.New("input error")
	ErrExternalService = errors.New("external service error")
	ErrParse           = errors.New("parse error")
	ErrVersioning      = errors.New("versioning error")
	ErrComparison      = errors.New("comparison error")
	ErrReport          = errors.New("report error")
)

// StageFailure carries the company, stage and (when known) document context
// of a fatal stage error.
type StageFailure struct {
	Company  string
	Stage    string
	Document string
	Err      error
}

func (f *StageFailure) Error() string {
	if f.Document != "" {
		return fmt.Sprintf("stage %s failed for %s (document %s): %v", f.Stage, f.Company, f.Document, f.Err)
	}
	return fmt.Sprintf("stage %s failed for %s: %v", f.Stage, f.Company, f.Err)
}

func (f *StageFailure) Unwrap() error { return f.Err }
