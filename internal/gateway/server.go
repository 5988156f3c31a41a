// Package gateway exposes reliable submission over HTTP for callers that do
// not link the client library directly.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-chi/jwtauth/v5"

	"github.com/meridianledger/meridian-go/internal/journal"
	"github.com/meridianledger/meridian-go/pkg/config"
	"github.com/meridianledger/meridian-go/pkg/errors"
	"github.com/meridianledger/meridian-go/pkg/health"
	"github.com/meridianledger/meridian-go/pkg/logging"
	"github.com/meridianledger/meridian-go/pkg/metrics"
	"github.com/meridianledger/meridian-go/pkg/rpc"
	"github.com/meridianledger/meridian-go/pkg/submit"
	"github.com/meridianledger/meridian-go/pkg/transaction"
)

// Server is the gateway HTTP server.
type Server struct {
	config           *config.Config
	router           *chi.Mux
	client           rpc.Client
	submitter        *submit.Submitter
	journal          *journal.RedisJournal
	tokenAuth        *jwtauth.JWTAuth
	server           *http.Server
	logger           *logging.Logger
	metricsCollector *metrics.Metrics
	healthRegistry   *health.Registry
}

// NewServer creates a new gateway server.
func NewServer(cfg *config.Config, client rpc.Client, submitter *submit.Submitter, jnl *journal.RedisJournal, logger *logging.Logger, m *metrics.Metrics) *Server {
	r := chi.NewRouter()

	var tokenAuth *jwtauth.JWTAuth
	if cfg.Auth.JWTSecret != "" {
		tokenAuth = jwtauth.New("HS256", []byte(cfg.Auth.JWTSecret), nil)
	}

	s := &Server{
		config:           cfg,
		router:           r,
		client:           client,
		submitter:        submitter,
		journal:          jnl,
		tokenAuth:        tokenAuth,
		logger:           logger,
		metricsCollector: m,
		healthRegistry:   health.NewRegistry(logger),
		server: &http.Server{
			Addr:    ":" + cfg.API.Port,
			Handler: r,
		},
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.setupHealthChecks()

	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(MetricsMiddleware(s.metricsCollector, "gateway"))
	s.router.Use(middleware.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.API.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.router.Use(httprate.LimitByIP(s.config.API.RateLimit, s.config.API.RateWindow))
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.healthRegistry.Handler().ServeHTTP)
	s.router.Get("/metrics", s.metricsCollector.Handler().ServeHTTP)

	s.router.Route("/api/"+s.config.API.Version, func(r chi.Router) {
		if s.tokenAuth != nil {
			r.Use(jwtauth.Verifier(s.tokenAuth))
			r.Use(jwtauth.Authenticator)
		}

		r.Post("/transactions", s.handleSubmit)
		r.Get("/transactions/{hash}", s.handleLookup)
		r.Get("/ledger/validated", s.handleValidatedLedger)
	})
}

// setupHealthChecks configures health checks for the server.
func (s *Server) setupHealthChecks() {
	s.healthRegistry.Register("node", health.NodeChecker(s.config.Node.URL, func(ctx context.Context) error {
		_, err := submit.GetLatestValidatedLedgerSequence(ctx, s.client)
		return err
	}))

	if s.journal != nil {
		s.healthRegistry.Register("redis", health.RedisChecker(s.config.Redis.Address, func(ctx context.Context) error {
			return s.journal.Ping(ctx)
		}))
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("Gateway listening", "port", s.config.API.Port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// handleSubmit accepts a signed transaction and blocks until its outcome is
// final.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	tx, err := decodeTransaction(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	hash, err := tx.Hash()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	// Finality is immutable: an already-journaled hash short-circuits.
	if s.journal != nil {
		if existing, err := s.journal.Lookup(r.Context(), hash); err == nil && existing != nil {
			s.respondJSON(w, outcomeStatusCode(existing.Status), existing)
			return
		}
	}

	snapshot, err := s.submitter.SubmitAndWait(r.Context(), tx)

	var outcome *journal.Outcome
	if err == nil {
		outcome = &journal.Outcome{
			Hash:         snapshot.Hash,
			Status:       journal.StatusValidated,
			ExpiryHeight: snapshot.ExpiryHeight,
			Result:       snapshot.Result,
		}
	} else {
		outcome = journal.OutcomeFromError(hash, err)
		if outcome == nil {
			s.respondError(w, errorStatusCode(err), err)
			return
		}
	}

	if s.journal != nil {
		if err := s.journal.Record(r.Context(), outcome); err != nil {
			s.logger.Error("Failed to journal outcome", "hash", hash, "error", err)
		}
	}

	s.respondJSON(w, outcomeStatusCode(outcome.Status), outcome)
}

// handleLookup fetches a transaction's current status by hash.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")

	resp, err := submit.GetTransactionFromHash(r.Context(), s.client, hash, nil)
	if err != nil {
		if errors.HasCode(err, errors.RPCErrRequestFailed) {
			s.respondError(w, http.StatusNotFound, err)
			return
		}
		s.respondError(w, errorStatusCode(err), err)
		return
	}

	s.respondJSON(w, http.StatusOK, resp.Result)
}

// handleValidatedLedger returns the latest validated ledger height.
func (s *Server) handleValidatedLedger(w http.ResponseWriter, r *http.Request) {
	height, err := submit.GetLatestValidatedLedgerSequence(r.Context(), s.client)
	if err != nil {
		s.respondError(w, errorStatusCode(err), err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"ledger_index": height,
	})
}

func decodeTransaction(r *http.Request) (*transaction.Transaction, error) {
	defer r.Body.Close()
	var tx transaction.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		return nil, errors.NewTransactionError(errors.TransactionErrSerialization,
			"invalid transaction payload", err)
	}
	return &tx, nil
}

// outcomeStatusCode maps a final outcome to an HTTP status.
func outcomeStatusCode(status string) int {
	switch status {
	case journal.StatusValidated:
		return http.StatusOK
	case journal.StatusRejected:
		return http.StatusUnprocessableEntity
	case journal.StatusExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// errorStatusCode maps non-final errors to an HTTP status.
func errorStatusCode(err error) int {
	switch {
	case errors.HasCode(err, errors.SubmissionErrMissingExpiry),
		errors.HasCode(err, errors.RPCErrInvalidRequest),
		errors.HasCode(err, errors.TransactionErrSerialization),
		errors.HasCode(err, errors.TransactionErrMissingField),
		errors.HasCode(err, errors.TransactionErrInvalidSignature):
		return http.StatusBadRequest
	case errors.IsInfrastructure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	s.respondJSON(w, status, map[string]string{"error": err.Error()})
}
