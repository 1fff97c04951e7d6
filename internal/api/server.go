// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wallet-taxscan/internal/analyzer"
	"github.com/wallet-taxscan/internal/logging"
	"github.com/wallet-taxscan/internal/service"
	"github.com/wallet-taxscan/internal/tax"
)

// TaxServiceInterface defines the calculation operations the server needs,
// kept as an interface for handler tests.
type TaxServiceInterface interface {
	Calculate(ctx context.Context, req service.CalculationRequest) (*service.CalculationResult, error)
	Analyze(ctx context.Context, req service.AnalysisRequest) (*analyzer.Analysis, error)
	Regions() []tax.Region
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	taxService TaxServiceInterface
	config     *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, taxService TaxServiceInterface) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		taxService: taxService,
		config:     config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)

	// mux answers a known path with the wrong verb with 404 by default;
	// report it as 405 with the standard error envelope instead.
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("method %s is not allowed for %s", r.Method, r.URL.Path), nil)
	})

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// API v1 routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Report endpoints
	api.HandleFunc("/reports", s.handleCalculateReport).Methods("POST")
	api.HandleFunc("/reports/csv", s.handleExportCSV).Methods("POST")
	api.HandleFunc("/reports/narrative", s.handleExportNarrative).Methods("POST")

	// Analysis endpoint
	api.HandleFunc("/analysis", s.handleAnalyzeWallet).Methods("POST")

	// Region endpoint
	api.HandleFunc("/regions", s.handleListRegions).Methods("GET")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "wallet-taxscan",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.Infof("Starting API server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}
