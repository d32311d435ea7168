package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var HistogramBuckets = []float64{
	// fast (0 - 500ms)
	25, 50, 75, 100, 150, 200, 300, 400, 500,
	// medium (500ms - 2s)
	750, 1000, 1250, 1500, 1750, 2000,
	// slow, mostly AI provider calls (2s - 90s)
	2500, 3000, 4000, 5000, 7500, 10000, 15000, 20000, 30000, 45000, 60000, 90000,
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
			prometheus.CounterOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description},
			m.Args,
		)
	case "counter":
		metric = prometheus.NewCounter(
			prometheus.CounterOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description},
		)
	case "histogram_vec":
		metric = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description, Buckets: HistogramBuckets},
			m.Args,
		)
	case "summary_vec":
		metric = prometheus.NewSummaryVec(
			prometheus.SummaryOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description},
			m.Args,
		)
	}
	return metric
}

const (
	RefererKey = "X-Referer"
)

// Ledger counters. Registered once on the default registry.
var (
	LedgerUsage = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resumely",
		Name:      "ledger_usage_total",
		Help:      "Usage record attempts partitioned by kind and result.",
	}, []string{"kind", "result"})

	PaymentVerification = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resumely",
		Name:      "payment_verification_total",
		Help:      "Payment verifications partitioned by result.",
	}, []string{"result"})

	GatedAction = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "resumely",
		Name:      "gated_action_dur_ms",
		Help:      "Gated action latency in milliseconds.",
		Buckets:   HistogramBuckets,
	}, []string{"action", "result"})
)

func init() {
	prometheus.MustRegister(LedgerUsage, PaymentVerification, GatedAction)
}

// ObserveUsage counts one usage attempt.
func ObserveUsage(kind, result string) {
	LedgerUsage.WithLabelValues(kind, result).Inc()
}

// ObserveVerification counts one payment verification outcome.
func ObserveVerification(result string) {
	PaymentVerification.WithLabelValues(result).Inc()
}

// ObserveGatedAction records the latency of an AI or download action.
func ObserveGatedAction(action, result string, start time.Time) {
	GatedAction.WithLabelValues(action, result).Observe(MillisecondsSince(start))
}

// MillisecondsSince returns the elapsed time since start in milliseconds.
func MillisecondsSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

func prometheusHandler() http.Handler {
	return promhttp.Handler()
}

// computeApproximateRequestSize mirrors the estimate used by promhttp.
func computeApproximateRequestSize(r *http.Request) int {
	s := 0
	if r.URL != nil {
		s = len(r.URL.String())
	}
	s += len(r.Method)
	s += len(r.Proto)
	for name, values := range r.Header {
		s += len(name)
		for _, value := range values {
			s += len(value)
		}
	}
	s += len(r.Host)
	if r.ContentLength != -1 {
		s += int(r.ContentLength)
	}
	return s
}
