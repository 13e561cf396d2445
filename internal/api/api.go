package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/crev/internal/review"
	"github.com/joescharf/crev/internal/svcerr"
)

const (
	msgMissingEnv   = "Missing required environment variables"
	msgInternal     = "Internal server error"
	msgInvalidBody  = "invalid JSON body"
	msgBodyTooLarge = "request body too large"
	maxBodyBytes    = 1 << 20
	requestIDHeader = "X-Request-ID"
)

// Reviewer runs one review.
type Reviewer interface {
	Review(ctx context.Context, req review.Request) (*review.Response, error)
}

// Server provides the REST API handlers.
type Server struct {
	reviewer Reviewer
	logger   *slog.Logger
}

// NewServer creates a new API server.
// The reviewer may be nil when credentials are not configured; reviews then
// fail with a 500 while /health keeps answering.
func NewServer(rv Reviewer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{reviewer: rv, logger: logger}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /review", s.review)
	mux.HandleFunc("GET /health", s.health)

	return corsMiddleware(s.requestLog(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLog tags each request with a ULID and logs its outcome.
func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = ulid.Make().String()
		}
		w.Header().Set(requestIDHeader, id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) review(w http.ResponseWriter, r *http.Request) {
	if s.reviewer == nil {
		writeError(w, http.StatusInternalServerError, msgMissingEnv)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var body review.Request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return
		}
		writeError(w, http.StatusUnprocessableEntity, msgInvalidBody)
		return
	}

	resp, err := s.reviewer.Review(r.Context(), body)
	if err != nil {
		if se, ok := svcerr.As(err); ok {
			s.logger.Warn("review failed", "error", se.Error())
			writeError(w, http.StatusBadRequest, se.Message)
			return
		}
		s.logger.Error("review failed", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
