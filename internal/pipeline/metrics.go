package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline collectors. A nil *Metrics is valid and records
// nothing, which keeps tests free of registry bookkeeping.
type Metrics struct {
	runsTotal      *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	documentsTotal prometheus.Counter
}

// NewMetrics creates and registers the pipeline collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_runs_total",
				Help: "Total number of pipeline runs by outcome.",
			},
			[]string{"outcome"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_stage_duration_seconds",
				Help:    "Wall time per pipeline stage.",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"stage", "outcome"},
		),
		documentsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pipeline_documents_total",
				Help: "Total number of documents ingested by the ocr stage.",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.runsTotal, m.stageDuration, m.documentsTotal} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeStage(stage string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.stageDuration.WithLabelValues(stage, outcome).Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeRun(err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.runsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) addDocuments(n int) {
	if m == nil {
		return
	}
	m.documentsTotal.Add(float64(n))
}
