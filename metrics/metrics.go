package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LocationUpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parkspot_location_updates_total",
		Help: "Location updates by outcome (applied, suppressed, error, override)",
	}, []string{"outcome"})
	StaleResultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parkspot_stale_results_total",
		Help: "Asynchronous results dropped because their generation was superseded",
	}, []string{"kind"})
	EventQueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parkspot_event_queries_total",
		Help: "Event store bounding box queries by result",
	}, []string{"result"})
	PredictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parkspot_predictions_total",
		Help: "Prediction fetches by outcome (model, estimate, unavailable, timeout)",
	}, []string{"outcome"})
	PredictionDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "parkspot_prediction_duration_ms",
		Help:    "Prediction fetch duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000},
	})
	ReportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parkspot_reports_total",
		Help: "Parking report submissions by result",
	}, []string{"result"})
	GeocodeRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parkspot_geocode_requests_total",
		Help: "Geocoding lookups by provider and result",
	}, []string{"provider", "result"})
	GeocodeCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "parkspot_geocode_cache_hits_total",
		Help: "Geocoding lookups served from redis",
	})
)

func init() {
	prometheus.MustRegister(LocationUpdatesTotal)
	prometheus.MustRegister(StaleResultsTotal)
	prometheus.MustRegister(EventQueriesTotal)
	prometheus.MustRegister(PredictionsTotal)
	prometheus.MustRegister(PredictionDurationMs)
	prometheus.MustRegister(ReportsTotal)
	prometheus.MustRegister(GeocodeRequestsTotal)
	prometheus.MustRegister(GeocodeCacheHitsTotal)
}

// Handler exposes the registered metrics for scraping.
func Handler() http.Handler { return promhttp.Handler() }
