// Package metrics registers the Prometheus collectors of the generator
// and the dev server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RegionsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "casemap_regions_processed_total",
		Help: "Regions that received an allocation pass",
	})
	RegionsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "casemap_regions_skipped_total",
		Help: "Statistics rows without a matching feature or density table",
	})
	PointsGenerated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "casemap_points_generated_total",
		Help: "Point-events created",
	})
	DroppedUnits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "casemap_dropped_units_total",
		Help: "Outcome units that found no point left in their region",
	}, []string{"series"})
	NegativeUnits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "casemap_negative_units_total",
		Help: "Units from negative daily deltas treated as zero",
	})
	GenerateDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "casemap_generate_duration_ms",
		Help:    "Duration of one generation run in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})
	SourceFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "casemap_source_fetch_total",
		Help: "Data source fetches by scheme and result",
	}, []string{"scheme", "result"})
	SourceFetchDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "casemap_source_fetch_duration_ms",
		Help:    "Data source fetch duration in milliseconds",
		Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
	}, []string{"scheme"})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "casemap_cache_hits_total",
		Help: "Source cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "casemap_cache_misses_total",
		Help: "Source cache misses",
	})
	ClockTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "casemap_clock_time_days",
		Help: "Current simulation time in days",
	})
	WebsocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "casemap_websocket_clients",
		Help: "Connected /ws/time clients",
	})
)

func init() {
	prometheus.MustRegister(RegionsProcessed)
	prometheus.MustRegister(RegionsSkipped)
	prometheus.MustRegister(PointsGenerated)
	prometheus.MustRegister(DroppedUnits)
	prometheus.MustRegister(NegativeUnits)
	prometheus.MustRegister(GenerateDurationMs)
	prometheus.MustRegister(SourceFetchTotal)
	prometheus.MustRegister(SourceFetchDurationMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(ClockTime)
	prometheus.MustRegister(WebsocketClients)
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
