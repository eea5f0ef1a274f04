// Package server exposes the ETL control plane over HTTP: health and
// status probes plus the service-function endpoints that the warehouse
// calls with its row-envelope format.
package server

import (
	"context"
	"net/http"
	"time"

	"canvasetl/internal/etl"
	"canvasetl/internal/observability"
	"canvasetl/internal/warehouse"
)

const Version = "1.0.0"

// Server wires the dispatcher and warehouse session behind an HTTP
// listener.
type Server struct {
	dispatcher *etl.Dispatcher
	exec       warehouse.Executor
	metrics    *observability.Registry
	log        *observability.Logger

	httpServer *http.Server
}

func New(addr string, dispatcher *etl.Dispatcher, exec warehouse.Executor, metrics *observability.Registry, log *observability.Logger) *Server {
	if log == nil {
		log = observability.GetDefaultLogger()
	}
	if metrics == nil {
		metrics = observability.NewRegistry()
	}

	s := &Server{
		dispatcher: dispatcher,
		exec:       exec,
		metrics:    metrics,
		log:        log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.requireMethod(http.MethodGet, s.handleHealth))
	mux.HandleFunc("/status", s.handleStatusDispatch)
	mux.HandleFunc("/metrics", s.requireMethod(http.MethodGet, s.handleMetrics))
	mux.HandleFunc("/run_etl", s.requireMethod(http.MethodPost, s.handleRunETL))
	mux.HandleFunc("/transform", s.requireMethod(http.MethodPost, s.handleTransform))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.countRequests(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // synchronous full-refresh runs are slow
		IdleTimeout:  2 * time.Minute,
	}

	return s
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.InfoWithFields("HTTP server listening", map[string]interface{}{
			"addr": s.httpServer.Addr,
		})
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// handleStatusDispatch splits /status by method: GET is the plain
// monitoring probe, POST is the warehouse service-function form.
func (s *Server) handleStatusDispatch(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleStatus(w, r)
	case http.MethodPost:
		s.handleStatusEnvelope(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) requireMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	total := s.metrics.Counter("http_requests_total", "Total HTTP requests served")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		total.Inc()
		next.ServeHTTP(w, r)
	})
}
