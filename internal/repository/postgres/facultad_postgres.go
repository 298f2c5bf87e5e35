package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"legalpipe/internal/model"
	"legalpipe/internal/repository"
)

// FacultadPostgres is a PostgreSQL implementation of repository.FacultadRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type FacultadPostgres struct {
	db *sql.DB
}

// NewFacultadPostgres creates a new FacultadPostgres repository.
func NewFacultadPostgres(db *sql.DB) *FacultadPostgres {
	return &FacultadPostgres{db: db}
}

var _ repository.FacultadRepository = (*FacultadPostgres)(nil)

// ListFacultades returns the whole catalog. palabras_claves and anclas are
// stored as JSONB arrays and decoded into string slices.
func (r *FacultadPostgres) ListFacultades(ctx context.Context) ([]model.Facultad, error) {
	const q = `
		SELECT codigo, grupo, nombre, descripcion, palabras_claves, anclas
		FROM facultades
		ORDER BY grupo, codigo
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Facultad, 0)
	for rows.Next() {
		var (
			f              model.Facultad
			claves, anclas []byte
		)
		if err := rows.Scan(
			&f.Codigo,
			&f.Grupo,
			&f.Nombre,
			&f.Descripcion,
			&claves,
			&anclas,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(claves, &f.PalabrasClaves); err != nil {
			return nil, fmt.Errorf("decode palabras_claves for %s: %w", f.Codigo, err)
		}
		if err := json.Unmarshal(anclas, &f.Anclas); err != nil {
			return nil, fmt.Errorf("decode anclas for %s: %w", f.Codigo, err)
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
