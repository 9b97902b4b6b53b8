package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Prediction metrics
	Predictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thermal_predictions_total",
			Help: "Total number of served predictions by comfort category",
		},
		[]string{"category"}, // category: cold|comfortable|hot
	)

	PredictionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thermal_prediction_errors_total",
			Help: "Total number of failed predictions",
		},
		[]string{"kind"}, // kind: validation|schema|internal
	)

	PredictionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "thermal_prediction_duration_seconds",
			Help:    "Prediction latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	// Air conditioner relay metrics
	AirconRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thermal_aircon_requests_total",
			Help: "Total number of relayed air conditioner requests",
		},
		[]string{"action", "status"}, // status: success|error
	)

	// HTTP metrics
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thermal_http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)
)

func init() {
	prometheus.MustRegister(Predictions)
	prometheus.MustRegister(PredictionErrors)
	prometheus.MustRegister(PredictionDuration)
	prometheus.MustRegister(AirconRequests)
	prometheus.MustRegister(HTTPRequests)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordPrediction records a served prediction
func RecordPrediction(category string, latency time.Duration) {
	Predictions.WithLabelValues(category).Inc()
	PredictionDuration.Observe(latency.Seconds())
}

// RecordPredictionError records a failed prediction
func RecordPredictionError(kind string) {
	PredictionErrors.WithLabelValues(kind).Inc()
}

// RecordAirconRequest records a relayed air conditioner call
func RecordAirconRequest(action string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	AirconRequests.WithLabelValues(action, status).Inc()
}

// RecordHTTPRequest records a finished HTTP request
func RecordHTTPRequest(route string, code int) {
	HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
