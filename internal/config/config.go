package config

import (
	"os"
	"strconv"
	"strings"
)

// Mode is the vectorization operating mode. The EXTRACT_FROM_OCR toggle
// selects between ModeOCRDirect and ModeNoVectorization; both skip the
// embedding write (observed production behavior, kept until product clarifies
// the intent). PIPELINE_MODE=vectorizado opts into the branch that actually
// persists embeddings.
type Mode string

const (
	ModeOCRDirect       Mode = "OCR_DIRECTO"
	ModeNoVectorization Mode = "SIN_VECTORIZACION"
	ModeVectorized      Mode = "VECTORIZADO"
)

// DatabaseConfig holds PostgreSQL database connection settings. An empty Host
// disables the database; the legalization stage then runs with an empty
// powers catalog and records a warning.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// Enabled reports whether a database was configured at all.
func (c DatabaseConfig) Enabled() bool { return c.Host != "" }

// MinIOConfig holds object storage settings for MinIO. An empty Endpoint means
// stage snapshots are written to the local results directory instead.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether object storage was configured.
func (c MinIOConfig) Enabled() bool { return c.Endpoint != "" }

// VertexConfig holds Vertex AI settings for the structured extractor.
type VertexConfig struct {
	ProjectID string
	Region    string
	Model     string
}

// OCRConfig holds Tesseract settings for the text extractor.
type OCRConfig struct {
	Languages []string
}

// RetryConfig bounds every external OCR and LLM call.
type RetryConfig struct {
	MaxAttempts      int
	InitialBackoffMs int
	CallTimeoutSec   int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost    string
	Port       string
	DataDir    string
	ResultsDir string
	Mode       Mode
	Database   DatabaseConfig
	MinIO      MinIOConfig
	Vertex     VertexConfig
	OCR        OCRConfig
	Retry      RetryConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:    getEnv("APP_HOST", "localhost:8080"),
		Port:       getEnv("PORT", "8080"),
		DataDir:    getEnv("DATA_DIR", "data"),
		ResultsDir: getEnv("RESULTS_DIR", "results"),
		Mode:       loadMode(),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Vertex: VertexConfig{
			ProjectID: getEnv("VERTEX_PROJECT_ID", ""),
			Region:    getEnv("VERTEX_REGION", "us-central1"),
			Model:     getEnv("VERTEX_MODEL", "gemini-1.5-pro"),
		},
		OCR: OCRConfig{
			Languages: getEnvList("OCR_LANGUAGES", []string{"spa"}),
		},
		Retry: RetryConfig{
			MaxAttempts:      getEnvInt("RETRY_MAX_ATTEMPTS", 3),
			InitialBackoffMs: getEnvInt("RETRY_INITIAL_BACKOFF_MS", 1000),
			CallTimeoutSec:   getEnvInt("RETRY_CALL_TIMEOUT_SEC", 120),
		},
	}
}

// loadMode resolves the operating mode. PIPELINE_MODE takes precedence so the
// vectorized branch can be exercised without touching EXTRACT_FROM_OCR.
func loadMode() Mode {
	if strings.EqualFold(getEnv("PIPELINE_MODE", ""), "vectorizado") {
		return ModeVectorized
	}
	if getEnvBool("EXTRACT_FROM_OCR", true) {
		return ModeOCRDirect
	}
	return ModeNoVectorization
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
