package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_facultades",
		SQL: `CREATE TABLE IF NOT EXISTS facultades (
  codigo          TEXT        PRIMARY KEY,
  grupo           TEXT        NOT NULL,
  nombre          TEXT        NOT NULL,
  descripcion     TEXT        NOT NULL DEFAULT '',
  palabras_claves JSONB       NOT NULL DEFAULT '[]',
  anclas          JSONB       NOT NULL DEFAULT '[]',
  created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_facultades_grupo",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_facultades_grupo ON facultades (grupo);`,
	},
	{
		Name: "create_table_document_embeddings",
		SQL: `CREATE TABLE IF NOT EXISTS document_embeddings (
  stable_id     TEXT        PRIMARY KEY,
  company       TEXT        NOT NULL,
  filename      TEXT        NOT NULL,
  version       INT         NOT NULL CHECK (version >= 1),
  fecha         DATE,
  clasificacion TEXT        NOT NULL,
  content       TEXT        NOT NULL,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_embeddings_company",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_document_embeddings_company ON document_embeddings (company);`,
	},
	{
		Name: "seed_facultades_catalog",
		SQL: `INSERT INTO facultades (codigo, grupo, nombre, descripcion, palabras_claves, anclas) VALUES
  ('ADM-01', 'administracion', 'Administrar la sociedad', 'Facultad general de administracion de los negocios sociales', '["administrar","negocios sociales"]', '["administrar"]'),
  ('BAN-01', 'bancarias', 'Abrir cuentas corrientes', 'Apertura y cierre de cuentas corrientes bancarias', '["cuenta corriente","abrir"]', '["cuentas corrientes|cuenta corriente"]'),
  ('BAN-02', 'bancarias', 'Girar y sobregirar cuentas', 'Girar sobre cuentas corrientes y pactar sobregiros', '["girar","sobregiro"]', '["girar","cuentas corrientes|cuenta corriente"]'),
  ('CAM-01', 'titulos_credito', 'Suscribir letras y pagares', 'Aceptar, suscribir y endosar letras de cambio y pagares', '["letras de cambio","pagares"]', '["letras de cambio|letras","pagares|pagaré"]'),
  ('CON-01', 'contratacion', 'Celebrar contratos', 'Celebrar, modificar y poner termino a toda clase de contratos', '["celebrar contratos","contratos"]', '["contratos"]'),
  ('INM-01', 'bienes', 'Comprar y vender inmuebles', 'Adquirir y enajenar bienes raices', '["bienes raices","comprar","vender"]', '["bienes raíces|bienes raices|inmuebles"]'),
  ('JUD-01', 'judiciales', 'Representacion judicial', 'Representar a la sociedad en juicio con las facultades de ambos incisos del articulo septimo del Codigo de Procedimiento Civil', '["representacion judicial","juicio"]', '["juicio|judicial"]'),
  ('POD-01', 'delegacion', 'Delegar el poder', 'Delegar el poder en todo o en parte y revocar las delegaciones', '["delegar","revocar"]', '["delegar"]')
ON CONFLICT (codigo) DO NOTHING;`,
	},
}

// EnsureMigrated checks if the 'facultades' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.facultades') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		logJSON(loc, map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(loc, map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_start",
		"status":    "in_progress",
		"db_host":   dbHost,
	})

	for _, step := range steps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			logJSON(loc, map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logJSON(loc, map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
