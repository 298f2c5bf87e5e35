package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"legalpipe/internal/capability/mocks"
	"legalpipe/internal/config"
	"legalpipe/internal/model"
	"legalpipe/internal/results"
	repomocks "legalpipe/internal/repository/mocks"
)

type fixture struct {
	cfg   *config.AppConfig
	store results.Store
	text  *mocks.MockTextExtractor
	llm   *mocks.MockStructuredExtractor
	embed *mocks.MockEmbeddingStore
}

func newFixture(t *testing.T, mode config.Mode, files map[string]string) *fixture {
	t.Helper()
	dataDir := t.TempDir()
	resultsDir := t.TempDir()

	companyDir := filepath.Join(dataDir, "acme")
	require.NoError(t, os.MkdirAll(companyDir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(companyDir, name), []byte(content), 0o644))
	}

	store, err := results.NewFS(resultsDir)
	require.NoError(t, err)

	return &fixture{
		cfg: &config.AppConfig{
			DataDir:    dataDir,
			ResultsDir: resultsDir,
			Mode:       mode,
			Retry:      config.RetryConfig{MaxAttempts: 1, InitialBackoffMs: 1, CallTimeoutSec: 5},
		},
		store: store,
		text:  new(mocks.MockTextExtractor),
		llm:   new(mocks.MockStructuredExtractor),
		embed: new(mocks.MockEmbeddingStore),
	}
}

func (f *fixture) controller() *Controller {
	return New(f.cfg, f.store, f.text, f.llm, f.embed, nil, nil)
}

func (f *fixture) stubHappyExtraction() {
	f.text.On("ExtractText", mock.Anything, mock.Anything).Return("texto de la escritura", nil)
	f.llm.On("ExtractDates", mock.Anything, mock.Anything, mock.Anything).Return([]string{"2020-01-15"}, nil)
	f.llm.On("Classify", mock.Anything, mock.Anything, mock.Anything).Return(model.ClassEscrituraPublica, nil)
	f.llm.On("ExtractFields", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(map[string]string{"razon_social": "Acme SpA", "capital": "1.000.000"}, nil)
}

func TestRunCompletesAllStages(t *testing.T) {
	f := newFixture(t, config.ModeOCRDirect, map[string]string{"constitucion.txt": "x"})
	f.stubHappyExtraction()

	ctl := f.controller()
	status, err := ctl.Run(context.Background(), "acme")
	require.NoError(t, err)

	assert.Equal(t, model.RunCompleted, status.State)
	assert.Equal(t, Stages(), status.CompletedStages)
	assert.NotEmpty(t, status.RunID)

	// Every stage left a snapshot behind.
	for _, stage := range Stages() {
		var out any
		assert.NoError(t, f.store.LoadStage(context.Background(), "acme", stage, &out), stage)
	}

	// No catalog configured: legalization warned instead of failing.
	joined := fmt.Sprint(status.Warnings)
	assert.Contains(t, joined, "catalogo")
}

func TestVersioningAndComparisonSnapshotsGroupByClassification(t *testing.T) {
	f := newFixture(t, config.ModeOCRDirect, map[string]string{"a.txt": "x", "b.txt": "y"})
	f.stubHappyExtraction()

	_, err := f.controller().Run(context.Background(), "acme")
	require.NoError(t, err)

	// Both snapshots are objects keyed by classification, not arrays.
	for _, stage := range []string{StageVersioning, StageComparison} {
		var raw json.RawMessage
		require.NoError(t, f.store.LoadStage(context.Background(), "acme", stage, &raw))
		assert.True(t, bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")), stage)
	}

	var versioned map[model.Classification][]model.VersionedDocument
	require.NoError(t, f.store.LoadStage(context.Background(), "acme", StageVersioning, &versioned))
	require.Len(t, versioned[model.ClassEscrituraPublica], 2)
	assert.Equal(t, 1, versioned[model.ClassEscrituraPublica][0].Version)
	assert.Equal(t, 2, versioned[model.ClassEscrituraPublica][1].Version)

	var cmps map[model.Classification][]model.Comparison
	require.NoError(t, f.store.LoadStage(context.Background(), "acme", StageComparison, &cmps))
	require.Len(t, cmps[model.ClassEscrituraPublica], 1)
	assert.Equal(t, 1, cmps[model.ClassEscrituraPublica][0].FromVersion)
	assert.Equal(t, 2, cmps[model.ClassEscrituraPublica][0].ToVersion)
}

func TestRunEmitsStageLogs(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	f := newFixture(t, config.ModeOCRDirect, map[string]string{"doc.txt": "x"})
	f.stubHappyExtraction()

	_, err := f.controller().Run(context.Background(), "acme")
	require.NoError(t, err)

	logs := buf.String()
	assert.Contains(t, logs, `"msg":"pipeline run started"`)
	assert.Contains(t, logs, `"msg":"stage completed"`)
	assert.Contains(t, logs, `"msg":"pipeline run completed"`)
	assert.Contains(t, logs, `"company":"acme"`)
	for _, stage := range Stages() {
		assert.Contains(t, logs, fmt.Sprintf(`"stage":%q`, stage))
	}
}

func TestDateStageSnapshotName(t *testing.T) {
	assert.Equal(t, "acme_date_results.json", results.SnapshotName("acme", StageDates))
}

func TestRunFailsFastAndKeepsEarlierSnapshots(t *testing.T) {
	f := newFixture(t, config.ModeOCRDirect, map[string]string{"constitucion.txt": "x"})
	f.text.On("ExtractText", mock.Anything, mock.Anything).Return("texto", nil)
	f.llm.On("ExtractDates", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("llm down: %w", model.ErrExternalService))

	ctl := f.controller()
	status, err := ctl.Run(context.Background(), "acme")
	require.Error(t, err)

	var failure *model.StageFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, StageDates, failure.Stage)
	assert.ErrorIs(t, err, model.ErrExternalService)

	assert.Equal(t, model.RunFailed, status.State)
	assert.Equal(t, []string{StageOCR}, status.CompletedStages)
	assert.Contains(t, status.Reason, "dates")

	// The ocr snapshot survives; the dates snapshot was never written.
	var ocr []model.OCRResult
	require.NoError(t, f.store.LoadStage(context.Background(), "acme", StageOCR, &ocr))
	var dates any
	assert.ErrorIs(t, f.store.LoadStage(context.Background(), "acme", StageDates, &dates), results.ErrNoSnapshot)

	// Classification was never reached.
	f.llm.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunMissingCompanyDirectory(t *testing.T) {
	f := newFixture(t, config.ModeOCRDirect, nil)

	ctl := f.controller()
	_, err := ctl.Run(context.Background(), "desconocida")
	require.Error(t, err)

	var failure *model.StageFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, StageOCR, failure.Stage)
	assert.ErrorIs(t, err, model.ErrInput)
}

func TestRunLegacyModeSkipsVectorization(t *testing.T) {
	f := newFixture(t, config.ModeNoVectorization, map[string]string{"doc.txt": "x"})
	f.stubHappyExtraction()

	ctl := f.controller()
	_, err := ctl.Run(context.Background(), "acme")
	require.NoError(t, err)

	var vec model.VectorizationResult
	require.NoError(t, f.store.LoadStage(context.Background(), "acme", StageVectorization, &vec))
	assert.Equal(t, "legal_acme", vec.Collection)
	assert.Equal(t, "SIN_VECTORIZACION", vec.Modo)
	assert.Zero(t, vec.TotalChunks)
	f.embed.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunVectorizedModePersistsChunks(t *testing.T) {
	f := newFixture(t, config.ModeVectorized, map[string]string{"doc.txt": "x"})
	f.stubHappyExtraction()
	f.embed.On("Upsert", mock.Anything, "acme", mock.MatchedBy(func(chunks []model.Chunk) bool {
		return len(chunks) == 1 && chunks[0].StableID == "acme:doc.txt:1:0" && chunks[0].Version == 1
	})).Return(1, nil)

	ctl := f.controller()
	_, err := ctl.Run(context.Background(), "acme")
	require.NoError(t, err)

	var vec model.VectorizationResult
	require.NoError(t, f.store.LoadStage(context.Background(), "acme", StageVectorization, &vec))
	assert.Equal(t, "VECTORIZADO", vec.Modo)
	assert.Equal(t, 1, vec.TotalChunks)
	f.embed.AssertExpectations(t)
}

func TestRunUsesCatalogWhenConfigured(t *testing.T) {
	f := newFixture(t, config.ModeOCRDirect, map[string]string{"doc.txt": "x"})
	f.text.On("ExtractText", mock.Anything, mock.Anything).Return("el gerente podra delegar el poder", nil)
	f.llm.On("ExtractDates", mock.Anything, mock.Anything, mock.Anything).Return([]string{"2020-01-15"}, nil)
	f.llm.On("Classify", mock.Anything, mock.Anything, mock.Anything).Return(model.ClassEscrituraPublica, nil)
	f.llm.On("ExtractFields", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(map[string]string{"razon_social": "Acme SpA"}, nil)
	f.llm.On("VerifyPower", mock.Anything, mock.Anything, mock.Anything).
		Return(model.PowerFinding{Otorgado: true, Confianza: "alta"}, nil)

	repo := new(repomocks.MockFacultadRepository)
	repo.On("ListFacultades", mock.Anything).Return([]model.Facultad{
		{Codigo: "POD-01", Grupo: "delegacion", Nombre: "Delegar el poder", Anclas: []string{"delegar"}},
	}, nil)

	ctl := New(f.cfg, f.store, f.text, f.llm, nil, repo, nil)
	_, err := ctl.Run(context.Background(), "acme")
	require.NoError(t, err)

	var leg model.LegalizationResult
	require.NoError(t, f.store.LoadStage(context.Background(), "acme", StageLegalization, &leg))
	require.Len(t, leg.Poderes, 1)
	assert.Equal(t, "POD-01", leg.Poderes[0].Codigo)
	repo.AssertExpectations(t)
}

func TestStartRejectsConcurrentRunForSameCompany(t *testing.T) {
	f := newFixture(t, config.ModeOCRDirect, map[string]string{"doc.txt": "x"})

	release := make(chan time.Time)
	f.text.On("ExtractText", mock.Anything, mock.Anything).WaitUntil(release).
		Return("", fmt.Errorf("interrumpido: %w", model.ErrInput))

	ctl := f.controller()
	first, err := ctl.Start("acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", first.Company)

	_, err = ctl.Start("acme")
	assert.ErrorIs(t, err, ErrRunInProgress)

	// A different company is independent.
	require.NoError(t, os.MkdirAll(filepath.Join(f.cfg.DataDir, "otra"), 0o755))
	_, err = ctl.Run(context.Background(), "otra")
	require.Error(t, err) // empty directory, but the run was admitted

	close(release)
	require.Eventually(t, func() bool {
		st, ok := ctl.Status("acme")
		return ok && st.State == model.RunFailed
	}, 5*time.Second, 10*time.Millisecond)

	// After the failure a new run can be admitted.
	_, err = ctl.Start("acme")
	assert.NoError(t, err)
}

func TestStatusUnknownCompany(t *testing.T) {
	f := newFixture(t, config.ModeOCRDirect, nil)
	_, ok := f.controller().Status("nadie")
	assert.False(t, ok)
}

func TestKnownStage(t *testing.T) {
	for _, stage := range Stages() {
		assert.True(t, KnownStage(stage))
	}
	assert.False(t, KnownStage("zanahoria"))
}
