// ABOUTME: HTTP API exposing the question pipeline, health and Prometheus metrics
// ABOUTME: Routes are registered on a gorilla/mux router
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/harper/electionrag/internal/models"
	"github.com/harper/electionrag/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 64 << 10

// Asker runs one question through the pipeline
type Asker interface {
	Run(ctx context.Context, question string) (*models.Result, error)
}

// AskRequest is the body of POST /v1/ask
type AskRequest struct {
	Question string `json:"question"`
}

// ErrorResponse is returned for every non-2xx answer
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server holds the handlers and their request metrics
type Server struct {
	asker    Asker
	gatherer prometheus.Gatherer
	log      *slog.Logger

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewServer creates handlers over asker. HTTP metrics are registered on reg, which also backs /metrics.
func NewServer(asker Asker, reg *prometheus.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	factory := promauto.With(reg)
	return &Server{
		asker:    asker,
		gatherer: reg,
		log:      logger,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "electionrag_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "electionrag_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"route"}),
	}
}

// Router returns the mux with every route registered
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/v1/ask", s.instrument("ask", s.handleAsk)).Methods(http.MethodPost)
	router.HandleFunc("/healthz", s.instrument("healthz", s.handleHealth)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return router
}

// HTTPServer wraps the router in an http.Server with conservative timeouts
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) int {
	var req AskRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return writeError(w, http.StatusBadRequest, "request body is empty")
		}
		return writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
	}
	if strings.TrimSpace(req.Question) == "" {
		return writeError(w, http.StatusBadRequest, "question is required")
	}

	res, err := s.asker.Run(r.Context(), req.Question)
	if err != nil {
		s.log.Error("ask failed", "error", err)
		return writeError(w, statusFor(err), err.Error())
	}
	return writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) int {
	return writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499
	case errors.Is(err, pipeline.ErrClassification),
		errors.Is(err, pipeline.ErrRetrieval),
		errors.Is(err, pipeline.ErrGeneration):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

type handler func(w http.ResponseWriter, r *http.Request) int

func (s *Server) instrument(route string, h handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		code := h(w, r)
		s.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
		s.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
	return code
}

func writeError(w http.ResponseWriter, code int, msg string) int {
	return writeJSON(w, code, ErrorResponse{Error: msg})
}
