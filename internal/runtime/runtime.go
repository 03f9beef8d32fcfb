// Package runtime serves health, readiness, metrics and session status for
// long-lived stream sessions.
package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loqalabs/loqa-transcribe/internal/config"
)

// SessionStatus is the snapshot served on /status.
type SessionStatus struct {
	SessionID     string `json:"session_id"`
	State         string `json:"state"`
	DroppedFrames int64  `json:"dropped_frames"`
	Segments      int    `json:"segments"`
	BusConnected  bool   `json:"bus_connected"`
}

// StatusFunc reports the current session state.
type StatusFunc func() SessionStatus

type Runtime struct {
	cfg        config.HTTPConfig
	logger     *slog.Logger
	metrics    http.Handler
	status     StatusFunc
	httpServer *http.Server
	listener   net.Listener
	ready      atomic.Bool
	wg         sync.WaitGroup
}

// New builds a runtime. metrics may be nil when the Prometheus exporter is
// unavailable; status may be nil before a session exists.
func New(cfg config.HTTPConfig, metrics http.Handler, status StatusFunc, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "runtime")),
		metrics: metrics,
		status:  status,
	}
}

// Start binds the listener and serves in the background until ctx is done
// or Shutdown is called.
func (r *Runtime) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	mux.HandleFunc("/status", r.handleStatus)
	if r.metrics != nil {
		mux.Handle("/metrics", r.metrics)
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.Bind, r.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	r.listener = ln
	r.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		<-ctx.Done()
		r.shutdown()
	}()

	r.logger.Info("runtime started", slog.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or "" before Start.
func (r *Runtime) Addr() string {
	if r.listener == nil {
		return ""
	}
	return r.listener.Addr().String()
}

// SetReady sets what /readyz reports.
func (r *Runtime) SetReady(ready bool) { r.ready.Store(ready) }

// Wait blocks until the server has stopped.
func (r *Runtime) Wait() { r.wg.Wait() }

func (r *Runtime) shutdown() {
	r.ready.Store(false)
	r.logger.Info("runtime stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

func (r *Runtime) handleStatus(w http.ResponseWriter, _ *http.Request) {
	if r.status == nil {
		http.Error(w, "no session", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(r.status()); err != nil {
		r.logger.Warn("encode status failed", slog.String("error", err.Error()))
	}
}
