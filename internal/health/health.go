package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/avolkhov/newspulse/internal/adapters/database"
	redisAdapter "github.com/avolkhov/newspulse/internal/adapters/redis"
	"github.com/avolkhov/newspulse/pkg/logger"
)

// Server provides health check HTTP endpoints for K8s
type Server struct {
	server    *http.Server
	db        *database.DB
	redis     *redisAdapter.Client
	ready     bool
	readyMu   sync.RWMutex
	startTime time.Time
}

// HealthStatus represents system health
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ReadinessStatus represents system readiness
type ReadinessStatus struct {
	Ready     bool              `json:"ready"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// NewServer creates new health check server
func NewServer(port string, db *database.DB, redis *redisAdapter.Client) *Server {
	mux := http.NewServeMux()

	s := &Server{
		server: &http.Server{
			Addr:         ":" + port,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		db:        db,
		redis:     redis,
		startTime: time.Now(),
	}

	mux.HandleFunc("/health", s.handleHealth)   // Liveness probe
	mux.HandleFunc("/ready", s.handleReadiness) // Readiness probe
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReadiness)

	return s
}

// Start starts the health check server
func (s *Server) Start() error {
	logger.Info("health check server starting",
		zap.String("addr", s.server.Addr),
	)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("stopping health check server...")
	return s.server.Shutdown(ctx)
}

// SetReady marks the service as ready
func (s *Server) SetReady(ready bool) {
	s.readyMu.Lock()
	defer s.readyMu.Unlock()
	s.ready = ready

	if ready {
		logger.Info("✅ service marked as READY")
	} else {
		logger.Warn("⚠️ service marked as NOT READY")
	}
}

// handleHealth handles liveness probe - returns 200 while the process
// is alive, even if dependencies are down
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	}

	if r.URL.Query().Get("verbose") == "true" {
		status.Checks = s.dependencyChecks()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status)
}

// handleReadiness handles readiness probe - returns 200 only when
// startup has completed and dependencies respond
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	s.readyMu.RLock()
	ready := s.ready
	s.readyMu.RUnlock()

	checks := s.dependencyChecks()
	for _, v := range checks {
		if v != "healthy" {
			ready = false
		}
	}

	status := ReadinessStatus{
		Ready:     ready,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	w.Header().Set("Content-Type", "application/json")
	if ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}

func (s *Server) dependencyChecks() map[string]string {
	checks := make(map[string]string)

	if err := s.db.Health(); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
	} else {
		checks["database"] = "healthy"
	}

	if err := s.redis.Health(); err != nil {
		checks["redis"] = "unhealthy: " + err.Error()
	} else {
		checks["redis"] = "healthy"
	}

	return checks
}
