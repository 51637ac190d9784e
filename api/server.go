// Package api provides the HTTP surface of the scoring service: the
// /score contract, the inert /learn acknowledgement, and liveness.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/eddiguesti/jengu-sub009/internal/market"
	"github.com/eddiguesti/jengu-sub009/internal/observability"
	"github.com/eddiguesti/jengu-sub009/internal/outcome"
	"github.com/eddiguesti/jengu-sub009/internal/pricing"
)

// Config holds server configuration.
type Config struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	MaxRequestSize int64
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:           ":8080",
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		RequestTimeout: 10 * time.Second,
		MaxRequestSize: 1 * 1024 * 1024, // 1MB; a scoring request is small
	}
}

// Server wires the engine to its collaborators. The market provider
// and outcome store are optional; when absent the corresponding
// behavior degrades to caller-supplied data and plain acknowledgement.
type Server struct {
	httpServer *http.Server
	engine     *pricing.Engine
	market     market.Provider
	outcomes   *outcome.Store
	metrics    *observability.Metrics
	config     *Config
	log        zerolog.Logger
}

// NewServer creates the HTTP server around a constructed engine.
func NewServer(engine *pricing.Engine, config *Config, log zerolog.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	return &Server{
		engine:  engine,
		metrics: observability.NewMetrics(),
		config:  config,
		log:     log,
	}
}

// WithMarket attaches a competitor rate provider used to pre-fetch
// percentiles when the caller omits market data.
func (s *Server) WithMarket(p market.Provider) *Server {
	s.market = p
	return s
}

// WithOutcomes attaches the booking-outcome sink behind /learn.
func (s *Server) WithOutcomes(store *outcome.Store) *Server {
	s.outcomes = store
	return s
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.config.RequestTimeout))
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Get("/health/live", s.handleHealth)
	r.Get("/health/ready", s.handleReady)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Post("/score", s.handleScore)
	r.Post("/learn", s.handleLearn)

	return r
}

// Start runs the server until SIGINT/SIGTERM, then drains.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.config.Addr).Msg("scoring API listening")
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-quit:
		s.log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// =============================================================================
// HEALTH
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if s.market != nil {
		if err := s.market.Ping(ctx); err != nil {
			s.jsonError(w, http.StatusServiceUnavailable, "rate store not ready", "")
			return
		}
	}
	if s.outcomes != nil {
		if err := s.outcomes.Ping(ctx); err != nil {
			s.jsonError(w, http.StatusServiceUnavailable, "outcome store not ready", "")
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ready"})
}

// =============================================================================
// SCORE
// =============================================================================

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)

	var req pricing.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.ObserveScore("rejected", time.Since(start))
		s.jsonError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "")
		return
	}

	s.prefetchMarket(r.Context(), &req)

	result, err := s.engine.Score(req)
	if err != nil {
		s.metrics.ObserveScore("rejected", time.Since(start))
		s.rejectInvalid(w, err)
		return
	}

	if result.Fallback() {
		s.metrics.ObserveScore("fallback", time.Since(start))
	} else {
		s.metrics.ObserveScore("ok", time.Since(start))
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// prefetchMarket fills in competitor percentiles from the rate store
// when the caller supplied none. The engine itself never performs I/O;
// this is the collaborator boundary. Fetch failures only mean the
// competitor-dependent stages fall back to their defaults.
func (s *Server) prefetchMarket(ctx context.Context, req *pricing.Request) {
	if s.market == nil || req.Market != nil || req.Entity.PropertyID == "" {
		return
	}
	stay, err := time.Parse("2006-01-02", req.StayDate)
	if err != nil {
		if stay, err = time.Parse(time.RFC3339, req.StayDate); err != nil {
			return // validation will reject it with a proper error
		}
	}

	pcts, err := s.market.Percentiles(ctx, req.Entity.PropertyID, stay)
	if err != nil {
		s.log.Warn().Err(err).Str("property", req.Entity.PropertyID).Msg("competitor percentile fetch failed")
		return
	}
	if pcts == nil {
		return
	}
	req.Market = &pricing.Market{
		CompPriceP10: &pcts.P10,
		CompPriceP50: &pcts.P50,
		CompPriceP90: &pcts.P90,
	}
}

func (s *Server) rejectInvalid(w http.ResponseWriter, err error) {
	perr := pricing.AsError(err)
	status := http.StatusBadRequest
	if !pricing.IsInvalidInput(err) {
		status = http.StatusInternalServerError
	}
	s.jsonError(w, status, perr.Message, perr.Code)
}

// =============================================================================
// LEARN
// =============================================================================

// handleLearn accepts booking-outcome batches for the future
// online-learning extension. It is inert with respect to scoring:
// batches are optionally persisted and always acknowledged, and
// nothing on the pricing path reads them.
func (s *Server) handleLearn(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)

	var batch outcome.Batch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid batch body: "+err.Error(), "")
		return
	}

	resp := map[string]any{
		"status":   "accepted",
		"received": len(batch.Outcomes),
	}
	if s.outcomes != nil {
		id, err := s.outcomes.InsertBatch(r.Context(), batch)
		if err != nil {
			// Acknowledge anyway; the endpoint's contract is accept-and-ack.
			s.log.Warn().Err(err).Msg("outcome batch persistence failed")
		} else {
			resp["batch_id"] = id.String()
		}
	}
	s.metrics.ObserveLearn()
	s.jsonResponse(w, http.StatusAccepted, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message, code string) {
	body := map[string]string{"error": message}
	if code != "" {
		body["code"] = code
	}
	s.jsonResponse(w, status, body)
}
