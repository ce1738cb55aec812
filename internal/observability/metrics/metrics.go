package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "folio"

// Read sources recorded by the store.
const (
	SourceStored       = "stored"
	SourceSeedFirstRun = "seed_first_run"
	SourceSeedRecovery = "seed_recovered"
)

// Write results recorded by the store.
const (
	WriteResultOK    = "ok"
	WriteResultStale = "stale"
	WriteResultError = "error"
)

// Metrics holds the engine's instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	storeReads          *prometheus.CounterVec
	storeWrites         *prometheus.CounterVec
	storeDecodeFailures *prometheus.CounterVec
	storeWriteDuration  *prometheus.HistogramVec
	renderPages         prometheus.Counter
	renderDuration      prometheus.Histogram
	backups             *prometheus.CounterVec
}

// NewRegistry returns a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// New registers the engine instruments on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		storeReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_reads_total",
			Help:      "Collection loads by kind and where the data came from.",
		}, []string{"kind", "source"}),
		storeWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_writes_total",
			Help:      "Collection saves by kind and result.",
		}, []string{"kind", "result"}),
		storeDecodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_decode_failures_total",
			Help:      "Stored collections that could not be read and were replaced by seed data.",
		}, []string{"kind"}),
		storeWriteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_write_duration_seconds",
			Help:      "Latency of full-collection saves.",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"kind"}),
		renderPages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_pages_total",
			Help:      "PDF pages produced by the document renderer.",
		}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Latency of document rendering calls.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		backups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backups_total",
			Help:      "Backup and restore operations by result.",
		}, []string{"op", "result"}),
	}

	for _, c := range []prometheus.Collector{
		m.storeReads, m.storeWrites, m.storeDecodeFailures, m.storeWriteDuration,
		m.renderPages, m.renderDuration, m.backups,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ObserveRead(kind, source string) {
	if m == nil {
		return
	}
	m.storeReads.WithLabelValues(kind, source).Inc()
	if source == SourceSeedRecovery {
		m.storeDecodeFailures.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) ObserveWrite(kind, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.storeWrites.WithLabelValues(kind, result).Inc()
	m.storeWriteDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRender(pages int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.renderPages.Add(float64(pages))
	m.renderDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveBackup(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.backups.WithLabelValues(op, result).Inc()
}
