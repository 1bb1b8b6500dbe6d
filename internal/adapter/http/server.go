package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/forecast-normalizer/internal/domain"
	"github.com/couchcryptid/forecast-normalizer/internal/source"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vmihailenco/msgpack/v5"
)

// maxPayloadBytes caps the size of a raw load accepted by /v1/normalize.
const maxPayloadBytes = 8 << 20

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// AllReady combines checkers into one that fails with the first error.
func AllReady(checkers ...ReadinessChecker) ReadinessChecker {
	return readinessChecks(checkers)
}

type readinessChecks []ReadinessChecker

func (rc readinessChecks) CheckReadiness(ctx context.Context) error {
	for _, c := range rc {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

// DatasetBuilder normalizes a raw load on demand.
type DatasetBuilder interface {
	Build(ctx context.Context, req domain.BuildRequest) (domain.Dataset, error)
}

// DatasetStore serves archived datasets.
type DatasetStore interface {
	Latest(ctx context.Context, profile string) (domain.Dataset, error)
	Get(ctx context.Context, id string) (domain.Dataset, error)
}

// Option configures optional server routes.
type Option func(*Server)

// WithDatasetStore enables the GET /v1/datasets routes backed by store.
func WithDatasetStore(store DatasetStore) Option {
	return func(s *Server) { s.store = store }
}

// Server exposes health, readiness, metrics and dataset HTTP endpoints.
type Server struct {
	httpServer *http.Server
	builder    DatasetBuilder
	store      DatasetStore
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /v1 dataset routes.
func NewServer(addr string, ready ReadinessChecker, builder DatasetBuilder, logger *slog.Logger, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		builder: builder,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/profiles", s.handleProfiles)
	mux.HandleFunc("POST /v1/normalize", s.handleNormalize)
	mux.HandleFunc("GET /v1/datasets/latest", s.handleLatest)
	mux.HandleFunc("GET /v1/datasets/{id}", s.handleDataset)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleProfiles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"profiles": domain.ProfileNames()})
}

// handleNormalize builds a dataset from the request body. Query parameters
// profile, format and mode override the service defaults.
func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if mode := q.Get("mode"); mode != "" {
		if _, err := domain.ParseErrorMode(mode); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ds, err := s.builder.Build(r.Context(), domain.BuildRequest{
		Profile: q.Get("profile"),
		Format:  q.Get("format"),
		Mode:    q.Get("mode"),
		Payload: payload,
	})
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("normalize failed", "error", err)
		}
		writeError(w, status, err)
		return
	}
	s.writeDataset(w, r, ds)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, errors.New("dataset archive not configured"))
		return
	}
	profile := r.URL.Query().Get("profile")
	if profile == "" {
		writeError(w, http.StatusBadRequest, errors.New("profile query parameter is required"))
		return
	}

	ds, err := s.store.Latest(r.Context(), profile)
	s.writeStored(w, r, ds, err, "profile", profile)
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, errors.New("dataset archive not configured"))
		return
	}
	id := r.PathValue("id")
	ds, err := s.store.Get(r.Context(), id)
	s.writeStored(w, r, ds, err, "id", id)
}

// writeStored writes the result of an archive lookup identified by key=value.
func (s *Server) writeStored(w http.ResponseWriter, r *http.Request, ds domain.Dataset, err error, key, value string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
		return
	case err != nil:
		s.logger.Error("dataset lookup failed", key, value, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeDataset(w, r, ds)
}

// writeDataset encodes ds as JSON, or as MessagePack when encoding=msgpack.
func (s *Server) writeDataset(w http.ResponseWriter, r *http.Request, ds domain.Dataset) {
	if r.URL.Query().Get("encoding") != "msgpack" {
		writeJSON(w, http.StatusOK, ds)
		return
	}
	w.Header().Set("Content-Type", "application/x-msgpack")
	w.WriteHeader(http.StatusOK)
	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(ds); err != nil {
		s.logger.Warn("msgpack encode failed", "id", ds.ID, "error", err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownProfile), errors.Is(err, source.ErrUnknownFormat):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoData), errors.Is(err, source.ErrUnreadable),
		errors.Is(err, domain.ErrMalformedField), errors.Is(err, domain.ErrOutOfOrder):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
