// Package pipeline orchestrates a company run through the processing stages.
// Stages execute in dependency order, each stage persists its full output as
// a snapshot before the next stage starts, and the first fatal stage error
// aborts the run while leaving the completed snapshots behind.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"legalpipe/internal/capability"
	"legalpipe/internal/config"
	"legalpipe/internal/model"
	"legalpipe/internal/repository"
	"legalpipe/internal/results"
	"legalpipe/internal/retry"
)

// Stage names, also the snapshot identifiers on disk.
const (
	StageOCR            = "ocr"
	StageDates          = "date"
	StageClassification = "classification"
	StageVersioning     = "versioning"
	StageVectorization  = "vectorization"
	StageComparison     = "comparison"
	StageLegalization   = "legalization"
	StageReport         = "report"
)

// stageOrder is a topological order of stageNeeds.
var stageOrder = []string{
	StageOCR,
	StageDates,
	StageClassification,
	StageVersioning,
	StageVectorization,
	StageComparison,
	StageLegalization,
	StageReport,
}

var stageNeeds = map[string][]string{
	StageOCR:            {},
	StageDates:          {StageOCR},
	StageClassification: {StageDates},
	StageVersioning:     {StageClassification},
	StageVectorization:  {StageVersioning},
	StageComparison:     {StageVersioning},
	StageLegalization:   {StageVersioning},
	StageReport:         {StageComparison, StageLegalization},
}

// ErrRunInProgress is returned when a run is triggered for a company that
// already has one pending or running.
var ErrRunInProgress = errors.New("run already in progress for company")

// ErrUnknownStage is returned for snapshot lookups of a stage name outside
// the pipeline.
var ErrUnknownStage = errors.New("unknown stage")

// Controller executes and tracks company runs. Runs for different companies
// may proceed concurrently; per company only one run is active at a time.
type Controller struct {
	cfg        *config.AppConfig
	store      results.Store
	text       capability.TextExtractor
	llm        capability.StructuredExtractor
	embed      capability.EmbeddingStore
	facultades repository.FacultadRepository
	policy     retry.Policy
	metrics    *Metrics
	tracer     trace.Tracer

	mu   sync.Mutex
	runs map[string]*model.RunStatus
}

// New wires a controller. embed and facultades may be nil when no database is
// configured; metrics may be nil.
func New(cfg *config.AppConfig, store results.Store, text capability.TextExtractor, llm capability.StructuredExtractor, embed capability.EmbeddingStore, facultades repository.FacultadRepository, metrics *Metrics) *Controller {
	return &Controller{
		cfg:        cfg,
		store:      store,
		text:       text,
		llm:        llm,
		embed:      embed,
		facultades: facultades,
		policy:     retry.FromConfig(cfg.Retry),
		metrics:    metrics,
		tracer:     otel.Tracer("legalpipe/internal/pipeline"),
		runs:       make(map[string]*model.RunStatus),
	}
}

// KnownStage reports whether name is a pipeline stage.
func KnownStage(name string) bool {
	_, ok := stageNeeds[name]
	return ok
}

// Stages returns the execution order.
func Stages() []string {
	out := make([]string, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// Run executes a full company run synchronously and returns its final status.
// The returned error, if any, is the failing stage's error wrapped with run
// context.
func (c *Controller) Run(ctx context.Context, company string) (model.RunStatus, error) {
	status, err := c.begin(company)
	if err != nil {
		return model.RunStatus{}, err
	}
	runErr := c.execute(ctx, status)
	c.metrics.observeRun(runErr)
	return c.snapshotStatus(company), runErr
}

// Start triggers an asynchronous run and returns its initial status. The run
// itself proceeds on a background context.
func (c *Controller) Start(company string) (model.RunStatus, error) {
	status, err := c.begin(company)
	if err != nil {
		return model.RunStatus{}, err
	}
	go func() {
		err := c.execute(context.Background(), status)
		c.metrics.observeRun(err)
	}()
	return c.snapshotStatus(company), nil
}

// Status returns the latest run status for a company.
func (c *Controller) Status(company string) (model.RunStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.runs[company]
	if !ok {
		return model.RunStatus{}, false
	}
	return copyStatus(st), true
}

func (c *Controller) begin(company string) (*model.RunStatus, error) {
	if company == "" {
		return nil, fmt.Errorf("company is required: %w", model.ErrInput)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.runs[company]; ok && (st.State == model.RunPending || st.State == model.RunRunning) {
		return nil, fmt.Errorf("%s: %w", company, ErrRunInProgress)
	}
	status := &model.RunStatus{
		RunID:           uuid.NewString(),
		Company:         company,
		State:           model.RunPending,
		CompletedStages: []string{},
	}
	c.runs[company] = status
	return status, nil
}

func (c *Controller) execute(ctx context.Context, status *model.RunStatus) error {
	company := status.Company
	runStart := time.Now()

	ctx, span := c.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(
			attribute.String("company", company),
			attribute.String("run_id", status.RunID),
		))
	defer span.End()

	c.transition(status, func(st *model.RunStatus) {
		st.State = model.RunRunning
	})
	slog.Info("pipeline run started", "company", company, "run_id", status.RunID)

	// Drop stale snapshots so a partial re-run can't be confused with the
	// previous run's leftovers.
	for _, stage := range stageOrder {
		if err := c.store.DeleteStage(ctx, company, stage); err != nil {
			return c.fail(status, span, &model.StageFailure{Company: company, Stage: stage, Err: err})
		}
	}

	state := &model.ProcessingState{Company: company}
	completed := make(map[string]bool, len(stageOrder))

	for _, stage := range stageOrder {
		for _, need := range stageNeeds[stage] {
			if !completed[need] {
				err := fmt.Errorf("stage %s started before its dependency %s completed", stage, need)
				return c.fail(status, span, &model.StageFailure{Company: company, Stage: stage, Err: err})
			}
		}

		c.transition(status, func(st *model.RunStatus) { st.Stage = stage })

		payload, err := c.runStage(ctx, stage, state)
		if err == nil {
			err = c.store.SaveStage(ctx, company, stage, payload)
		}
		if err != nil {
			return c.fail(status, span, &model.StageFailure{Company: company, Stage: stage, Err: err})
		}

		completed[stage] = true
		c.transition(status, func(st *model.RunStatus) {
			st.CompletedStages = append(st.CompletedStages, stage)
			st.Warnings = append([]string(nil), state.Warnings...)
		})
	}

	c.transition(status, func(st *model.RunStatus) {
		st.State = model.RunCompleted
		st.Stage = ""
	})
	slog.Info("pipeline run completed",
		"company", company,
		"run_id", status.RunID,
		"documents", len(state.Documents),
		"duration", time.Since(runStart).String())
	span.SetStatus(codes.Ok, "")
	return nil
}

func (c *Controller) runStage(ctx context.Context, stage string, state *model.ProcessingState) (payload any, err error) {
	ctx, span := c.tracer.Start(ctx, "pipeline.stage."+stage)
	start := time.Now()
	slog.Info("stage started", "company", state.Company, "stage", stage)
	defer func() {
		c.metrics.observeStage(stage, start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			slog.Info("stage completed",
				"company", state.Company,
				"stage", stage,
				"documents", len(state.Documents),
				"duration", time.Since(start).String())
		}
		span.End()
	}()

	switch stage {
	case StageOCR:
		return c.stageOCR(ctx, state)
	case StageDates:
		return c.stageDates(ctx, state)
	case StageClassification:
		return c.stageClassification(ctx, state)
	case StageVersioning:
		return c.stageVersioning(ctx, state)
	case StageVectorization:
		return c.stageVectorization(ctx, state)
	case StageComparison:
		return c.stageComparison(ctx, state)
	case StageLegalization:
		return c.stageLegalization(ctx, state)
	case StageReport:
		return c.stageReport(ctx, state)
	default:
		return nil, fmt.Errorf("%s: %w", stage, ErrUnknownStage)
	}
}

func (c *Controller) fail(status *model.RunStatus, span trace.Span, failure *model.StageFailure) error {
	slog.Error("pipeline stage failed",
		"company", failure.Company,
		"stage", failure.Stage,
		"error", failure.Err.Error())
	span.RecordError(failure)
	span.SetStatus(codes.Error, failure.Error())
	c.transition(status, func(st *model.RunStatus) {
		st.State = model.RunFailed
		st.Reason = failure.Error()
	})
	return failure
}

func (c *Controller) transition(status *model.RunStatus, apply func(*model.RunStatus)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	apply(status)
}

func (c *Controller) snapshotStatus(company string) model.RunStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.runs[company]; ok {
		return copyStatus(st)
	}
	return model.RunStatus{}
}

func copyStatus(st *model.RunStatus) model.RunStatus {
	out := *st
	out.CompletedStages = make([]string, len(st.CompletedStages))
	copy(out.CompletedStages, st.CompletedStages)
	out.Warnings = append([]string(nil), st.Warnings...)
	return out
}
