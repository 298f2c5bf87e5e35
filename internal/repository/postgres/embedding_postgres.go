package postgres

import (
	"context"
	"database/sql"

	"legalpipe/internal/capability"
	"legalpipe/internal/model"
)

// EmbeddingPostgres persists document chunks in the document_embeddings table.
// The stable_id primary key plus ON CONFLICT DO NOTHING makes a re-run of the
// vectorization stage idempotent: only new chunks count as written.
type EmbeddingPostgres struct {
	db *sql.DB
}

// NewEmbeddingPostgres creates a new EmbeddingPostgres store.
func NewEmbeddingPostgres(db *sql.DB) *EmbeddingPostgres {
	return &EmbeddingPostgres{db: db}
}

var _ capability.EmbeddingStore = (*EmbeddingPostgres)(nil)

// Upsert inserts the chunks, skipping those whose stable id already exists,
// and returns the number actually written.
func (r *EmbeddingPostgres) Upsert(ctx context.Context, company string, chunks []model.Chunk) (int, error) {
	const q = `
		INSERT INTO document_embeddings (stable_id, company, filename, version, fecha, clasificacion, content)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (stable_id) DO NOTHING
	`
	written := 0
	for _, c := range chunks {
		var fecha any
		if c.Fecha != "" {
			fecha = c.Fecha
		}
		res, err := r.db.ExecContext(ctx, q,
			c.StableID,
			company,
			c.Filename,
			c.Version,
			fecha,
			string(c.Clasificacion),
			c.Content,
		)
		if err != nil {
			return written, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return written, err
		}
		written += int(n)
	}
	return written, nil
}
