package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookshelf/internal/ratelimit"
	"bookshelf/internal/util"
	"bookshelf/pkg/domain"
	"bookshelf/services/book/internal/app"
)

const (
	welcomeMessage      = "Welcome to my RESTful API"
	defaultMaxBodyBytes = 1 << 20
	healthTimeout       = 2 * time.Second
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
	// Limiter throttles POST, PUT and DELETE per client IP. Nil disables it.
	Limiter        *ratelimit.FixedWindowLimiter
	TrustedProxies *util.TrustedProxies
	MaxBodyBytes   int64
}

// Server exposes HTTP endpoints for the book service.
type Server struct {
	app            *app.App
	limiter        *ratelimit.FixedWindowLimiter
	trustedProxies *util.TrustedProxies
	mux            *http.ServeMux
	maxBodyBytes   int64
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server: app is required")
	}
	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	s := &Server{
		app:            cfg.App,
		limiter:        cfg.Limiter,
		trustedProxies: cfg.TrustedProxies,
		mux:            http.NewServeMux(),
		maxBodyBytes:   maxBodyBytes,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("book", util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	// books
	s.mux.HandleFunc("GET /books", s.handleListBooks)
	s.mux.HandleFunc("POST /books", s.withWriteLimit(s.handleCreateBook))
	s.mux.HandleFunc("GET /books/{id}", s.handleGetBook)
	s.mux.HandleFunc("PUT /books/{id}", s.withWriteLimit(s.handleUpdateBook))
	s.mux.HandleFunc("DELETE /books/{id}", s.withWriteLimit(s.handleDeleteBook))
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, welcomeMessage)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()
	if err := s.app.Ping(ctx); err != nil {
		util.LoggerFromContext(r.Context()).Warn("store ping failed", "err", err)
		writeError(w, r, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.app.ListBooks(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.ToWireList(books))
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	payload, ok := s.readPayload(w, r)
	if !ok {
		return
	}
	book, err := s.app.CreateBook(r.Context(), payload)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, domain.ToWire(book))
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	book, err := s.app.GetBook(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.ToWire(book))
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	// A malformed id is reported before the body is read or validated.
	if _, err := domain.ParseID(id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	payload, ok := s.readPayload(w, r)
	if !ok {
		return
	}
	book, err := s.app.UpdateBook(r.Context(), id, payload)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.ToWire(book))
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := s.app.DeleteBook(r.Context(), r.PathValue("id")); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readPayload returns the raw JSON body. A request that does not declare a
// JSON content type carries no payload, which the schema then rejects.
func (s *Server) readPayload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return nil, true
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	return body, true
}

func (s *Server) withWriteLimit(next http.HandlerFunc) http.HandlerFunc {
	if s.limiter == nil {
		return next
	}
	retryAfter := strconv.Itoa(int(s.limiter.Window().Seconds()))
	return func(w http.ResponseWriter, r *http.Request) {
		key := util.ClientIP(r, s.trustedProxies)
		if s.limiter.Allow(r.Context(), key) {
			next(w, r)
			return
		}
		util.LoggerFromContext(r.Context()).Warn("write rate limited", "client_ip", key, "method", r.Method)
		w.Header().Set("Retry-After", retryAfter)
		writeError(w, r, http.StatusTooManyRequests, "too many write requests")
	}
}

// writeAppError is the single place app errors become HTTP responses.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var invalidID *domain.InvalidIDError
	var invalid *app.ValidationError
	switch {
	case errors.As(err, &invalidID):
		writeError(w, r, http.StatusBadRequest, invalidID.Error())
	case errors.As(err, &invalid):
		writeError(w, r, http.StatusBadRequest, invalid.Error())
	case errors.Is(err, app.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
	default:
		util.LoggerFromContext(r.Context()).Error("store operation failed",
			"method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      errorCodeForBook(status, msg),
		RequestID: util.RequestIDFromRequest(r),
	})
}

func errorCodeForBook(status int, msg string) string {
	message := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case strings.HasPrefix(message, "invalidid:"):
		return "BOOK_INVALID_ID"
	case strings.HasPrefix(message, "validationerror:"):
		return "BOOK_VALIDATION_ERROR"
	case message == "request body too large":
		return "BOOK_BODY_TOO_LARGE"
	case message == "invalid request body":
		return "BOOK_INVALID_REQUEST"
	}

	switch status {
	case http.StatusBadRequest:
		return "BOOK_INVALID_REQUEST"
	case http.StatusRequestEntityTooLarge:
		return "BOOK_BODY_TOO_LARGE"
	case http.StatusTooManyRequests:
		return "SYSTEM_RATE_LIMITED"
	case http.StatusServiceUnavailable:
		return "SYSTEM_UNAVAILABLE"
	default:
		return "SYSTEM_INTERNAL_ERROR"
	}
}
