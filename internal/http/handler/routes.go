package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"legalpipe/internal/pipeline"
	"legalpipe/internal/results"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Keep handlers minimal and free of business logic in this skeleton.
func RegisterRoutes(app *fiber.App, db *sql.DB, ctl *pipeline.Controller, store results.Store, gatherer prometheus.Gatherer) {
	// Serve OpenAPI spec and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	// Health endpoint: checks DB connectivity when a database is configured.
	app.Get("/health", func(c *fiber.Ctx) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
			}
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	// Backward-compatible simple liveness probe
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	// Prometheus metrics
	if gatherer != nil {
		metrics := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
		app.Get("/metrics", func(c *fiber.Ctx) error {
			metrics(c.Context())
			return nil
		})
	}

	// Trigger an asynchronous pipeline run for a company.
	app.Post("/runs/:company", func(c *fiber.Ctx) error {
		company := c.Params("company")
		status, err := ctl.Start(company)
		if err != nil {
			if errors.Is(err, pipeline.ErrRunInProgress) {
				return writeError(c, fiber.StatusConflict, "RUN_IN_PROGRESS", "a run is already in progress for this company")
			}
			return writeError(c, fiber.StatusBadRequest, "INVALID_COMPANY", "invalid company")
		}
		return c.Status(fiber.StatusAccepted).JSON(status)
	})

	// Latest run status for a company.
	app.Get("/runs/:company", func(c *fiber.Ctx) error {
		status, ok := ctl.Status(c.Params("company"))
		if !ok {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "no run found for this company")
		}
		return c.JSON(status)
	})

	// Persisted snapshot of one stage.
	app.Get("/runs/:company/stages/:stage", func(c *fiber.Ctx) error {
		stage := c.Params("stage")
		if !pipeline.KnownStage(stage) {
			return writeError(c, fiber.StatusBadRequest, "INVALID_STAGE", "unknown stage name")
		}
		return sendSnapshot(c, store, c.Params("company"), stage)
	})

	// Final report shortcut.
	app.Get("/runs/:company/report", func(c *fiber.Ctx) error {
		return sendSnapshot(c, store, c.Params("company"), pipeline.StageReport)
	})
}

func sendSnapshot(c *fiber.Ctx, store results.Store, company, stage string) error {
	var raw json.RawMessage
	if err := store.LoadStage(c.UserContext(), company, stage, &raw); err != nil {
		if errors.Is(err, results.ErrNoSnapshot) {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "no snapshot for this company and stage")
		}
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
	c.Type("json")
	return c.Send(raw)
}
