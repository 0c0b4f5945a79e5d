// Package server provides the HTTP REST API for the candidate matcher.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/candidate-matcher/internal/candidates"
	"github.com/jonathan/candidate-matcher/internal/config"
	"github.com/jonathan/candidate-matcher/internal/fetch"
	"github.com/jonathan/candidate-matcher/internal/logger"
	"github.com/jonathan/candidate-matcher/internal/pipeline"
	"github.com/jonathan/candidate-matcher/internal/server/middleware"
	"github.com/jonathan/candidate-matcher/internal/server/ratelimit"
	"github.com/jonathan/candidate-matcher/internal/session"
	"github.com/jonathan/candidate-matcher/internal/types"
)

// Sessions is the conversation API the server exposes.
type Sessions interface {
	Send(ctx context.Context, conversationID *uuid.UUID, text string, onProgress pipeline.ProgressCallback) (*session.SendResult, error)
	SendFeedback(ctx context.Context, conversationID uuid.UUID, text string) (*session.FeedbackResult, error)
	ReviewSelection(ctx context.Context, conversationID uuid.UUID, selected []uuid.UUID, notes string) (*types.Message, error)
	State(ctx context.Context, id uuid.UUID) (session.State, error)
	SetFeedbackMode(ctx context.Context, id uuid.UUID, on bool) (session.State, error)
	Create(ctx context.Context, title string) (*types.Conversation, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Conversation, error)
	List(ctx context.Context) ([]types.Conversation, error)
	Rename(ctx context.Context, id uuid.UUID, title string) (*types.Conversation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Messages(ctx context.Context, id uuid.UUID) ([]types.Message, error)
}

// Candidates is the candidate pool API the server exposes.
type Candidates interface {
	Add(ctx context.Context, in candidates.NewCandidate) (*types.Candidate, error)
	Update(ctx context.Context, id uuid.UUID, patch types.CandidatePatch) (*types.Candidate, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Candidate, error)
	List(ctx context.Context) ([]types.Candidate, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Similar(ctx context.Context, id uuid.UUID, k int) ([]types.ScoredCandidate, error)
}

// JobReviewer gives advice on a job description.
type JobReviewer interface {
	ReviewJobDescription(ctx context.Context, description string) string
}

// Postings downloads job postings by URL. Optional.
type Postings interface {
	JobPosting(ctx context.Context, rawURL string) (*fetch.Posting, error)
}

// Pinger reports backend health. Optional.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services behind the routes.
type Deps struct {
	Sessions   Sessions
	Candidates Candidates
	Reviewer   JobReviewer
	Postings   Postings
	Health     Pinger
}

// Config holds server configuration.
type Config struct {
	Port      int
	RateLimit config.RateLimitConfig
	Auth      config.JWTConfig
}

// Server represents the HTTP server.
type Server struct {
	httpServer  *http.Server
	deps        Deps
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	log         *zap.Logger
}

// New creates a server. Bearer auth is required when cfg.Auth has a secret.
func New(cfg Config, deps Deps, log *zap.Logger) (*Server, error) {
	if deps.Sessions == nil || deps.Candidates == nil || deps.Reviewer == nil {
		return nil, errors.New("server: sessions, candidates and reviewer are required")
	}

	s := &Server{
		deps: deps,
		log:  logger.Named(log, "server"),
		rateLimiter: ratelimit.NewLimiter(ratelimit.NewConfig(
			cfg.RateLimit.Enabled,
			cfg.RateLimit.RequestsPerSecond,
			cfg.RateLimit.Burst,
			cfg.RateLimit.Whitelist,
			cfg.RateLimit.Blacklist,
		)),
	}
	if cfg.Auth.Enabled() {
		s.jwtService = NewJWTService(cfg.Auth)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // pipeline runs stream for minutes
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Conversations
	mux.HandleFunc("GET /conversations", s.handleListConversations)
	mux.HandleFunc("POST /conversations", s.handleCreateConversation)
	mux.HandleFunc("GET /conversations/{id}", s.handleGetConversation)
	mux.HandleFunc("PATCH /conversations/{id}", s.handleRenameConversation)
	mux.HandleFunc("DELETE /conversations/{id}", s.handleDeleteConversation)
	mux.HandleFunc("GET /conversations/{id}/messages", s.handleListMessages)
	mux.HandleFunc("GET /conversations/{id}/state", s.handleGetState)
	mux.HandleFunc("PUT /conversations/{id}/feedback-mode", s.handleSetFeedbackMode)
	mux.HandleFunc("POST /conversations/{id}/feedback", s.handleFeedback)
	mux.HandleFunc("POST /conversations/{id}/selection-review", s.handleSelectionReview)

	// Messages
	mux.HandleFunc("POST /messages", s.handleSendMessage)
	mux.HandleFunc("POST /messages/stream", s.handleSendMessageStream)

	// Job descriptions
	mux.HandleFunc("POST /job-descriptions/review", s.handleReviewJobDescription)
	if s.deps.Postings != nil {
		mux.HandleFunc("POST /job-postings/fetch", s.handleFetchJobPosting)
	}

	// Candidates
	mux.HandleFunc("GET /candidates", s.handleListCandidates)
	mux.HandleFunc("POST /candidates", s.handleCreateCandidate)
	mux.HandleFunc("GET /candidates/{id}", s.handleGetCandidate)
	mux.HandleFunc("PATCH /candidates/{id}", s.handleUpdateCandidate)
	mux.HandleFunc("DELETE /candidates/{id}", s.handleDeleteCandidate)
	mux.HandleFunc("GET /candidates/{id}/similar", s.handleSimilarCandidates)

	var h http.Handler = mux
	if s.jwtService != nil {
		h = middleware.AuthMiddleware(s.jwtService, "/health")(h)
	}
	return s.withRateLimit(s.withLogging(s.withCORS(h)))
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", s.httpServer.Addr), zap.Bool("auth", s.jwtService != nil))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	defer s.rateLimiter.Stop()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects clients that exhausted their bucket.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code for request logs. It forwards
// Flush so SSE keeps working behind it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		if err := s.deps.Health.Ping(r.Context()); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID uses the remote IP; forwarded headers are not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}
	if info.RetryAfter > 0 {
		secs := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	s.log.Warn("rate limit exceeded",
		zap.String("client", s.extractClientID(r)),
		zap.String("path", r.URL.Path),
		zap.Int("limit", info.Limit))
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
