package repository

import (
	"context"

	"legalpipe/internal/model"
)

// FacultadRepository defines read access to the legal powers catalog.
// No business logic here, strictly persistence operations.
type FacultadRepository interface {
	// ListFacultades returns the whole catalog ordered by grupo, codigo.
	ListFacultades(ctx context.Context) ([]model.Facultad, error)
}
