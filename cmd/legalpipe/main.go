package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"

	"legalpipe/internal/capability"
	"legalpipe/internal/capability/tesseract"
	"legalpipe/internal/capability/vertex"
	"legalpipe/internal/config"
	"legalpipe/internal/database"
	"legalpipe/internal/database/migration"
	handlers "legalpipe/internal/http/handler"
	"legalpipe/internal/http/middleware"
	appotel "legalpipe/internal/otel"
	"legalpipe/internal/pipeline"
	"legalpipe/internal/repository"
	"legalpipe/internal/repository/postgres"
	"legalpipe/internal/results"
	"legalpipe/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := time.UTC
	ctx := context.Background()

	// Pipeline progress logs go to stdout as JSON lines, one per stage event.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	shutdownTracing, err := appotel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	switch os.Args[1] {
	case "run":
		if len(os.Args) != 3 {
			usage()
			os.Exit(2)
		}
		runCompany(ctx, cfg, loc, os.Args[2])
	case "serve":
		serve(ctx, cfg, loc)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  legalpipe run <company>   process one company's documents")
	fmt.Fprintln(os.Stderr, "  legalpipe serve           start the HTTP API")
}

// deps holds the wired pipeline dependencies and their cleanup.
type deps struct {
	db    *sql.DB
	store results.Store
	ctl   *pipeline.Controller
	close func()
}

func build(ctx context.Context, cfg *config.AppConfig, loc *time.Location, metrics *pipeline.Metrics) (*deps, error) {
	var (
		db         *sql.DB
		embed      capability.EmbeddingStore
		facultades repository.FacultadRepository
	)
	if cfg.Database.Enabled() {
		var err error
		db, err = database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		embed = postgres.NewEmbeddingPostgres(db)
		facultades = postgres.NewFacultadPostgres(db)
	}

	var store results.Store
	if cfg.MinIO.Enabled() {
		objStore, err := storage.NewMinIO(cfg.MinIO)
		if err != nil {
			if db != nil {
				db.Close()
			}
			return nil, fmt.Errorf("initialize object storage: %w", err)
		}
		store = results.NewObject(objStore)
	} else {
		var err error
		store, err = results.NewFS(cfg.ResultsDir)
		if err != nil {
			if db != nil {
				db.Close()
			}
			return nil, fmt.Errorf("initialize results directory: %w", err)
		}
	}

	llm, err := vertex.New(ctx, cfg.Vertex)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("initialize vertex client: %w", err)
	}

	text := tesseract.New(cfg.OCR)
	ctl := pipeline.New(cfg, store, text, llm, embed, facultades, metrics)

	return &deps{
		db:    db,
		store: store,
		ctl:   ctl,
		close: func() {
			llm.Close()
			if db != nil {
				db.Close()
			}
		},
	}, nil
}

// runCompany executes one synchronous pipeline run and prints the final
// status as JSON. A failed run exits non-zero after the snapshots of the
// completed stages have been persisted.
func runCompany(ctx context.Context, cfg *config.AppConfig, loc *time.Location, company string) {
	d, err := build(ctx, cfg, loc, nil)
	if err != nil {
		log.Fatalf("wiring failed: %v", err)
	}
	defer d.close()

	status, runErr := d.ctl.Run(ctx, company)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(status)

	if runErr != nil {
		log.Printf("run failed: %v", runErr)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.AppConfig, loc *time.Location) {
	reg := prometheus.NewRegistry()

	metrics, err := pipeline.NewMetrics(reg)
	if err != nil {
		log.Fatalf("failed to register pipeline metrics: %v", err)
	}

	d, err := build(ctx, cfg, loc, metrics)
	if err != nil {
		log.Fatalf("wiring failed: %v", err)
	}
	defer d.close()

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	// Span per request
	app.Use(otelfiber.Middleware())

	promMW, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatalf("failed to register http metrics: %v", err)
	}
	app.Use(promMW.Handler())

	handlers.RegisterRoutes(app, d.db, d.ctl, d.store, reg)

	addr := ":" + cfg.Port
	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
