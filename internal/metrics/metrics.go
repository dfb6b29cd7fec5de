// Registers:
//
//	#cryptotracker_fetch_success_total{source}
//	#cryptotracker_fetch_errors_total{source}
//	#cryptotracker_fetch_duration_seconds{source}
//	#cryptotracker_assets_current
//	#cryptotracker_field_parse_errors_total{field}
//	#cryptotracker_used_weight{window}
//	#cryptotracker_rate_limit_events_total{kind}
//	#go_* and process_* system metrics
//
// The dashboard server exposes them on /metrics through Handler.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch sources.
const (
	SourceTickers = "tickers"
	SourceChart   = "chart"
)

var (
	once             sync.Once
	registry         *prometheus.Registry
	fetchSuccess     *prometheus.CounterVec
	fetchErrors      *prometheus.CounterVec
	fetchDuration    *prometheus.HistogramVec
	assetsCurrent    prometheus.Gauge
	fieldParseErrors *prometheus.CounterVec
	usedWeight       *prometheus.GaugeVec
	rateLimitEvents  *prometheus.CounterVec
)

// Init registers the collectors. It is safe to call more than once.
func Init() {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		fetchSuccess = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptotracker_fetch_success_total",
				Help: "Number of successful exchange fetches",
			},
			[]string{"source"},
		)

		fetchErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptotracker_fetch_errors_total",
				Help: "Number of failed exchange fetches",
			},
			[]string{"source"},
		)

		fetchDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cryptotracker_fetch_duration_seconds",
				Help:    "Latency of exchange fetches",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		)

		assetsCurrent = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cryptotracker_assets_current",
			Help: "Number of assets in the collection currently served",
		})

		fieldParseErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptotracker_field_parse_errors_total",
				Help: "Numeric ticker fields that could not be parsed",
			},
			[]string{"field"},
		)

		usedWeight = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cryptotracker_used_weight",
				Help: "Request weight reported by the exchange",
			},
			[]string{"window"},
		)

		rateLimitEvents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptotracker_rate_limit_events_total",
				Help: "Rate limit and IP ban responses from the exchange",
			},
			[]string{"kind"},
		)

		registry.MustRegister(
			fetchSuccess,
			fetchErrors,
			fetchDuration,
			assetsCurrent,
			fieldParseErrors,
			usedWeight,
			rateLimitEvents,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}

// Handler serves the registered collectors in the Prometheus text format.
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// ObserveFetch records the outcome and latency of one exchange request.
func ObserveFetch(source string, duration time.Duration, err error) {
	if fetchSuccess == nil {
		return
	}
	fetchDuration.WithLabelValues(source).Observe(duration.Seconds())
	if err != nil {
		fetchErrors.WithLabelValues(source).Inc()
		return
	}
	fetchSuccess.WithLabelValues(source).Inc()
}

// SetAssetsCurrent records the size of the collection currently served.
func SetAssetsCurrent(n int) {
	if assetsCurrent != nil {
		assetsCurrent.Set(float64(n))
	}
}

// AddFieldParseError counts one unparseable value of field.
func AddFieldParseError(field string) {
	if fieldParseErrors != nil {
		fieldParseErrors.WithLabelValues(field).Inc()
	}
}

func setUsedWeight(window string, value float64) {
	if usedWeight != nil {
		usedWeight.WithLabelValues(window).Set(value)
	}
}

func incRateLimitEvent(kind string) {
	if rateLimitEvents != nil {
		rateLimitEvents.WithLabelValues(kind).Inc()
	}
}
