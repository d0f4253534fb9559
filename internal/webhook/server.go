package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/mattjoyce/openphone-gw/internal/ingest"
	"github.com/mattjoyce/openphone-gw/internal/log"
)

// Server represents the webhook HTTP server.
type Server struct {
	config   Config
	ingestor IngestService
	logger   *slog.Logger
	server   *http.Server
}

// New creates a new webhook server instance.
func New(config Config, ingestor IngestService, logger *slog.Logger) *Server {
	if config.MaxBodySize == 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}

	return &Server{
		config:   config,
		ingestor: ingestor,
		logger:   logger,
	}
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting",
		"listen", s.config.Listen,
		"signature_verification", s.config.Secret != "",
	)

	// Run server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/webhook/openphone", s.handleWebhook)

	return r
}

// loggingMiddleware logs HTTP requests (excludes payloads).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// recoverer turns handler panics into the generic JSON 500 response.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil && rvr != http.ErrAbortHandler {
				s.logger.Error("panic in webhook handler",
					"path", r.URL.Path,
					"panic", rvr,
				)
				s.respondError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// handleHealth reports liveness. It does not consult the backing store, so
// probes keep answering while the store is down.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// handleWebhook handles incoming webhook POST requests.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.WithDelivery(uuid.NewString())

	// Enforce body size limit
	limitedReader := io.LimitReader(r.Body, s.config.MaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		logger.Error("failed to read webhook body", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Check if body exceeded limit
	if int64(len(body)) > s.config.MaxBodySize {
		s.respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}

	logger.Info("Received webhook", "payload", string(body))

	// Verification runs only when the provider sent a signature; a missing
	// header passes through even with a secret configured.
	signature := r.Header.Get(SignatureHeader)
	if signature != "" && !Verify(body, signature, s.config.Secret) {
		logger.Warn("webhook signature verification failed")
		s.respondError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		logger.Error("failed to parse webhook payload", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	result, err := s.ingestor.Process(ctx, event.Type, event.Data)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrMissingPhoneNumber):
			logger.Warn("webhook payload missing phone number")
			s.respondError(w, http.StatusBadRequest, "Missing required phone number data")
		case errors.Is(err, ingest.ErrContactUpsert):
			logger.Error("contact upsert failed", "error", err)
			s.respondError(w, http.StatusInternalServerError, "Failed to upsert contact")
		case errors.Is(err, ingest.ErrCommunicationInsert):
			logger.Error("communication insert failed", "error", err)
			s.respondError(w, http.StatusInternalServerError, "Failed to insert communication")
		default:
			logger.Error("webhook processing failed", "error", err)
			s.respondError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	logger.Debug("webhook delivery complete",
		"contact_id", result.ContactID,
		"communication_type", result.CommunicationType,
	)

	s.respondJSON(w, http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Webhook processed successfully",
	})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}
