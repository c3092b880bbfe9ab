// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	service "github.com/okian/examscore/internal/app"
	"github.com/okian/examscore/internal/domain/inputs"
	"github.com/okian/examscore/internal/domain/scoring"
)

// maxBodyBytes bounds request bodies on prediction routes.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Predict(ctx context.Context, raw inputs.Raw) (*service.Outcome, error)
	PredictBatch(ctx context.Context, batch []inputs.Raw) ([]service.BatchItem, error)
	ResetDefaults() (inputs.Raw, string)
	Schema() (service.Schema, error)
}

// Server wires HTTP routes for the prediction API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	predictHandler  *PredictHandler
	defaultsHandler *DefaultsHandler

	limiter        *rate.Limiter
	requestTimeout time.Duration
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithRateLimit applies a token bucket of rps requests per second with the
// given burst to prediction routes. Non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRequestTimeout bounds the time a single prediction may take.
func WithRequestTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		defaultsHandler: NewDefaultsHandler(deps),
		requestTimeout:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.predictHandler = NewPredictHandler(deps, s.requestTimeout)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/readyz", MetricsMiddleware(s.statsHandler.HandleReady, "readyz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/defaults", MetricsMiddleware(s.defaultsHandler.HandleDefaults, "defaults"))
	mux.HandleFunc("/api/schema", MetricsMiddleware(s.defaultsHandler.HandleSchema, "schema"))

	mux.HandleFunc("/predict", s.prediction(s.predictHandler.HandlePredictMarkup, "predict"))
	mux.HandleFunc("/api/predict", s.prediction(s.predictHandler.HandlePredict, "api_predict"))
	mux.HandleFunc("/api/predict/batch", s.prediction(s.predictHandler.HandlePredictBatch, "api_predict_batch"))
}

func (s *Server) prediction(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return MetricsMiddleware(RequestIDMiddleware(RateLimitMiddleware(next, s.limiter, endpoint)), endpoint)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func writeHTML(w http.ResponseWriter, status int, markup string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(markup))
}

// classify maps an error to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, inputs.ErrInvalidInput):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrBatchTooLarge):
		return http.StatusRequestEntityTooLarge, "batch_too_large"
	case errors.Is(err, ErrNotReady), errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "not_ready"
	case errors.Is(err, ErrPrediction), errors.Is(err, scoring.ErrPrediction):
		return http.StatusBadGateway, "prediction_failed"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
