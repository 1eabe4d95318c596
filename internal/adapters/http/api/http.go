// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/fundora/internal/adapters/http/auth"
	"github.com/okian/fundora/internal/adapters/mq/worker"
	"github.com/okian/fundora/internal/adapters/repository"
	"github.com/okian/fundora/internal/domain/collection"
	"github.com/okian/fundora/internal/domain/interaction"
	"github.com/okian/fundora/internal/domain/model"
	"github.com/okian/fundora/internal/domain/simulation"
	"github.com/okian/fundora/pkg/logger"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	// Entities returns every catalog subject enriched, in catalog order.
	Entities(ctx context.Context) ([]model.EnrichedEntity, error)
	// Entity returns one enriched subject or repository.ErrSubjectNotFound.
	Entity(ctx context.Context, id string) (model.EnrichedEntity, error)
	Analytics(ctx context.Context, id string) (model.SubjectAnalytics, error)

	// Record operations return a dispatch error (backpressure, stopped)
	// separately from the interaction outcome.
	RecordView(ctx context.Context, actorID, subjectID string, allowOwner bool) (interaction.Outcome, error)
	RecordComparison(ctx context.Context, actorID string, subjectIDs []string, window time.Duration) (interaction.Outcome, error)

	// Simulate runs a projection. ratePercent overrides the subject's rate;
	// subjectID may be empty.
	Simulate(ctx context.Context, principal float64, years int, ratePercent *float64, subjectID string) (simulation.Result, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps     Dependencies
	stats    *StatsHandler
	health   *HealthHandler
	resolver *auth.Resolver
	limiter  *rate.Limiter
	currency string
	logger   logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:     deps,
		stats:    NewStatsHandler(statsProvider),
		health:   NewHealthHandler(),
		currency: simulation.DefaultCurrency,
		logger:   logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.health.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.health.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.stats.HandleStats, "stats"))

	mux.HandleFunc("GET /startups", MetricsMiddleware(s.handleListStartups, "startups"))
	mux.HandleFunc("GET /startups/{id}", MetricsMiddleware(s.handleGetStartup, "startup"))
	mux.HandleFunc("GET /startups/{id}/analytics", MetricsMiddleware(s.handleAnalytics, "analytics"))

	mux.HandleFunc("POST /startups/{id}/views", MetricsMiddleware(s.handleRecordView, "views"))
	mux.HandleFunc("POST /comparisons", MetricsMiddleware(s.handleRecordComparison, "comparisons"))
	mux.HandleFunc("POST /simulations", MetricsMiddleware(s.handleSimulate, "simulations"))
}

// Handler returns the routed API wrapped in rate limiting and actor
// resolution. extra registers additional routes on the same mux.
func (s *Server) Handler(extra ...func(*http.ServeMux)) http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	for _, register := range extra {
		register(mux)
	}

	var h http.Handler = mux
	if s.resolver != nil {
		h = s.resolver.Middleware(h)
	}
	return RateLimitMiddleware(h, s.limiter, s.logger)
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

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// decodeBody reads a JSON request body of at most maxBodyBytes into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// statusForError maps domain and dispatch errors to an HTTP status and an
// error code.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrSubjectNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, worker.ErrBackpressure), errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, worker.ErrStopped), errors.Is(err, worker.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, collection.ErrInvalidFilter),
		errors.Is(err, collection.ErrUnknownSortKey),
		errors.Is(err, simulation.ErrInvalidPrincipal),
		errors.Is(err, simulation.ErrInvalidYears),
		errors.Is(err, simulation.ErrInvalidRate):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusForError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
	}
	writeError(w, status, code, err)
}
