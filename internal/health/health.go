// Package health provides the liveness and readiness endpoints.
//
// Docker and Kubernetes use /healthz to monitor the daemon's liveness and
// /readyz to decide when to route traffic. Both report basic process
// statistics; /readyz additionally runs any registered dependency checks
// (the shared Redis voice cache, when enabled).
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// Server is a lightweight HTTP server that exposes /healthz and /readyz.
type Server struct {
	port    int
	started time.Time
	ready   atomic.Bool

	mu     sync.Mutex
	checks map[string]Check
	server *http.Server
}

// New creates a new health check server.
func New(port int) *Server {
	return &Server{port: port, started: time.Now(), checks: make(map[string]Check)}
}

// SetReady marks the daemon as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// AddCheck registers a readiness check under name.
func (s *Server) AddCheck(name string, c Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = c
}

// Report is the JSON body of both endpoints.
type Report struct {
	Status        string            `json:"status"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	RSSBytes      uint64            `json:"rss_bytes,omitempty"`
	HostMemUsed   float64           `json:"host_mem_used_percent,omitempty"`
	Checks        map[string]string `json:"checks,omitempty"`
}

// Handler returns the routed mux. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		rep := s.baseReport()
		if !s.ready.Load() {
			rep.Status = "not_ready"
			writeReport(w, http.StatusServiceUnavailable, rep)
			return
		}
		writeReport(w, http.StatusOK, rep)
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		rep := s.baseReport()
		if !s.ready.Load() {
			rep.Status = "not_ready"
			writeReport(w, http.StatusServiceUnavailable, rep)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		code := http.StatusOK
		for name, check := range s.snapshotChecks() {
			if rep.Checks == nil {
				rep.Checks = make(map[string]string)
			}
			if err := check(ctx); err != nil {
				rep.Checks[name] = err.Error()
				rep.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			rep.Checks[name] = "ok"
		}
		writeReport(w, code, rep)
	})

	return mux
}

// ListenAndServe starts the health check HTTP server.
// It blocks until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	slog.Info("health server listening", "port", s.port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

func (s *Server) snapshotChecks() map[string]Check {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Check, len(s.checks))
	for k, v := range s.checks {
		out[k] = v
	}
	return out
}

func (s *Server) baseReport() Report {
	rep := Report{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			rep.RSSBytes = mi.RSS
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		rep.HostMemUsed = vm.UsedPercent
	}
	return rep
}

func writeReport(w http.ResponseWriter, code int, rep Report) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(rep)
}
