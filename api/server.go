package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/xstocklabs/xvault/api/handlers"
	"github.com/xstocklabs/xvault/api/middleware"
	"github.com/xstocklabs/xvault/api/types"
	"github.com/xstocklabs/xvault/metrics"
)

// Server represents the API server
type Server struct {
	httpServer *http.Server
	config     *Config

	// Services
	vaultService types.VaultService

	// Handlers
	vaultHandler *handlers.VaultHandler

	// Rate limiter
	rateLimiter *middleware.RateLimiter
}

// Config contains server configuration
type Config struct {
	Host             string
	Port             int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	DisableRateLimit bool // For testing purposes
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// NewServer creates a new API server backed by the standalone in-memory
// vault service
func NewServer(config *Config) *Server {
	return NewServerWithService(config, NewStandaloneVaultService())
}

// NewServerWithService creates a new API server with a custom vault service
func NewServerWithService(config *Config, vaultSvc types.VaultService) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	rateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())

	s := &Server{
		config:       config,
		vaultService: vaultSvc,
		rateLimiter:  rateLimiter,
	}

	if config.DisableRateLimit {
		s.vaultHandler = handlers.NewVaultHandler(s.vaultService)
	} else {
		s.vaultHandler = handlers.NewVaultHandlerWithLimiter(s.vaultService, rateLimiter)
	}

	return s
}

// Start starts the API server
func (s *Server) Start() error {
	router := mux.NewRouter()

	// Health check (support both /health and /v1/health for compatibility)
	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.HandleFunc("/v1/health", s.handleHealth).Methods("GET")

	// Prometheus metrics
	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	// Vault endpoints
	s.vaultHandler.RegisterRoutes(router)

	// Apply middleware chain: CORS -> Metrics -> RateLimit -> Handler
	var handler http.Handler = metricsMiddleware(router)
	if !s.config.DisableRateLimit {
		handler = middleware.RateLimitMiddleware(s.rateLimiter)(handler)
	}
	handler = corsMiddleware(handler)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	log.Printf("API server starting on %s", addr)
	log.Printf("Vault endpoints enabled: /v1/vault/vaults, /v1/vault/deposit, /v1/vault/withdrawal/*")
	if s.config.DisableRateLimit {
		log.Printf("Rate limiting DISABLED (for testing)")
	} else {
		log.Printf("Rate limiting enabled: %d req/s per IP", middleware.DefaultRateLimitConfig().IPRequestsPerSecond)
	}
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"warning":   "This API uses in-memory storage. For production, connect to a running Cosmos chain.",
	})
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func metricsMiddleware(next http.Handler) http.Handler {
	collector := metrics.GetCollector()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		collector.RecordAPIRequest(r.Method, r.URL.Path, fmt.Sprintf("%d", rec.status), timer.ElapsedMs())
	})
}
