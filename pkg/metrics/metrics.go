package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var HistogramBuckets = []float64{
	// --- Fast responses (0 - 500ms) ---
	25, 50, 75, 100, 150, 200, 300, 400, 500,

	// --- Medium responses around 700ms (500ms - 2s) ---
	750, 1000, 1250, 1500, 1750, 2000,

	// --- Slow responses (2s - 15s) ---
	2500, 3000, 4000, 5000, 7500, 10000, 15000,

	// --- Extended range: covers 60000ms+ (15s - 75s) ---
	20000,  // 20s
	30000,  // 30s
	45000,  // 45s
	60000,  // 60s
	75000,  // 75s
	90000,  // 90s
	120000, // 120s
}

// Metric is a definition for the name, description, type, ID, and
// prometheus.Collector type (i.e. CounterVec, Summary, etc) of each metric
type Metric struct {
	MetricCollector prometheus.Collector
	ID              string
	Name            string
	Description     string
	Type            string
	Args            []string
}

// NewMetric associates prometheus.Collector based on Metric.Type
func NewMetric(m *Metric, subsystem string) prometheus.Collector {
	var metric prometheus.Collector
	switch m.Type {
	case "counter_vec":
		metric = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
			},
			m.Args,
		)
	case "counter":
		metric = prometheus.NewCounter(
			prometheus.CounterOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
			},
		)
	case "gauge_vec":
		metric = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
			},
			m.Args,
		)
	case "gauge":
		metric = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
			},
		)
	case "histogram_vec":
		metric = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
				Buckets:   HistogramBuckets,
			},
			m.Args,
		)
	case "histogram":
		metric = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
				Buckets:   HistogramBuckets,
			},
		)
	case "summary_vec":
		metric = prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
			},
			m.Args,
		)
	case "summary":
		metric = prometheus.NewSummary(
			prometheus.SummaryOpts{
				Subsystem: subsystem,
				Name:      m.Name,
				Help:      m.Description,
			},
		)
	}
	return metric
}

const (
	syncSubsystem = "donorsync"
)

var syncOutcome = &Metric{
	ID:          "syncOutcome",
	Name:        "sync_total",
	Description: "Donation sync attempts, partitioned by outcome status and donation kind.",
	Type:        "counter_vec",
	Args:        []string{"status", "kind"},
}

var crmCallDur = &Metric{
	ID:          "crmCallDur",
	Name:        "crm_call_ms",
	Description: "DonorPerfect API call latency in milliseconds.",
	Type:        "histogram_vec",
	Args:        []string{"action", "outcome"},
}

var backfillProcessed = &Metric{
	ID:          "backfillProcessed",
	Name:        "backfill_processed_total",
	Description: "Donations processed by backfill batches, partitioned by mode.",
	Type:        "counter_vec",
	Args:        []string{"mode"},
}

var syncMetrics = []*Metric{syncOutcome, crmCallDur, backfillProcessed}

var registerSyncOnce sync.Once

// registerSyncMetrics creates the sync collectors once per process. Collectors that
// fail to register stay usable, they are just not exported.
func registerSyncMetrics() {
	registerSyncOnce.Do(func() {
		for _, m := range syncMetrics {
			c := NewMetric(m, syncSubsystem)
			_ = prometheus.Register(c)
			m.MetricCollector = c
		}
	})
}

func ObserveSync(status, kind string) {
	registerSyncMetrics()
	syncOutcome.MetricCollector.(*prometheus.CounterVec).WithLabelValues(status, kind).Inc()
}

func ObserveCRMCall(action, outcome string, start time.Time) {
	registerSyncMetrics()
	crmCallDur.MetricCollector.(*prometheus.HistogramVec).WithLabelValues(action, outcome).Observe(MillisecondsSince(start))
}

func ObserveBackfill(dryRun bool, processed int) {
	registerSyncMetrics()
	mode := "run"
	if dryRun {
		mode = "preview"
	}
	backfillProcessed.MetricCollector.(*prometheus.CounterVec).WithLabelValues(mode).Add(float64(processed))
}

// MillisecondsSince returns elapsed wall time in fractional milliseconds.
func MillisecondsSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
