package api

import (
	"context"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"thermal-backend/internal/metrics"
	"thermal-backend/internal/models"
)

// Predictor serves temperature predictions
type Predictor interface {
	Predict(ctx context.Context, rec models.Record) (*models.Prediction, error)
	ModelInfo() models.ModelInfo
}

// Aircon relays air conditioner reads and commands
type Aircon interface {
	State(ctx context.Context) (*models.AirconStateResponse, error)
	Control(ctx context.Context, req models.ControlRequest) (*models.ControlResponse, error)
}

// RouterConfig holds HTTP surface options
type RouterConfig struct {
	AllowedOrigins []string
	AccessLog      io.Writer // nil disables access logging
}

// Router wires the HTTP handlers to their services. Either service may be
// nil, in which case its routes report it as unavailable.
type Router struct {
	predictor Predictor
	aircon    Aircon
	validate  *validator.Validate
}

// NewRouter builds the HTTP handler with CORS, access logging, and metrics
func NewRouter(predictor Predictor, aircon Aircon, config RouterConfig) http.Handler {
	r := &Router{
		predictor: predictor,
		aircon:    aircon,
		validate:  newValidator(),
	}

	router := mux.NewRouter()
	router.Use(instrument)

	router.HandleFunc("/health", r.health).Methods(http.MethodGet)
	router.HandleFunc("/model_info", r.modelInfo).Methods(http.MethodGet)
	router.HandleFunc("/predict", r.predict).Methods(http.MethodPost)
	router.HandleFunc("/air_conditioner/state", r.airconState).Methods(http.MethodGet)
	router.HandleFunc("/air_conditioner/control", r.airconControl).Methods(http.MethodPost)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	origins := config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedHeaders([]string{"content-type"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedOrigins(origins),
	)

	var h http.Handler = cors(router)
	if config.AccessLog != nil {
		h = handlers.LoggingHandler(config.AccessLog, h)
	}
	return h
}

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// statusRecorder captures the response code for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unknown"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		metrics.RecordHTTPRequest(route, rec.status)
	})
}
