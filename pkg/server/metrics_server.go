// Package server exposes run metrics over HTTP while a detection runs.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-anomaly/pkg/health"
	"github.com/dd0wney/cluso-anomaly/pkg/logging"
	"github.com/dd0wney/cluso-anomaly/pkg/metrics"
)

// MetricsServer serves /metrics and /healthz with graceful shutdown.
type MetricsServer struct {
	server       *http.Server
	registry     *metrics.Registry
	health       *health.Checker
	listener     net.Listener
	logger       logging.Logger
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	done         chan error
}

// Option configures a MetricsServer.
type Option func(*MetricsServer)

// WithHealth answers /healthz with the checks of c.
func WithHealth(c *health.Checker) Option {
	return func(ms *MetricsServer) { ms.health = c }
}

// NewMetricsServer creates a server for registry on addr.
func NewMetricsServer(addr string, registry *metrics.Registry, logger logging.Logger, opts ...Option) *MetricsServer {
	ms := &MetricsServer{
		registry:   registry,
		logger:     logging.OrDefault(logger).With(logging.Component("metrics_server")),
		shutdownCh: make(chan struct{}),
		done:       make(chan error, 1),
	}
	for _, opt := range opts {
		opt(ms)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", ms.handleHealth)

	ms.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return ms
}

// Start binds the listener and serves in the background.
func (ms *MetricsServer) Start() error {
	ln, err := net.Listen("tcp", ms.server.Addr)
	if err != nil {
		return err
	}
	ms.listener = ln
	ms.logger.Info("serving metrics", logging.String("addr", ln.Addr().String()))

	go func() {
		err := ms.server.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		ms.done <- err
	}()
	return nil
}

// Addr returns the bound address, or "" before Start.
func (ms *MetricsServer) Addr() string {
	if ms.listener == nil {
		return ""
	}
	return ms.listener.Addr().String()
}

func (ms *MetricsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if ms.IsShuttingDown() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	ms.registry.UpdateSystemMetrics()
	if ms.health != nil {
		ms.health.Handler()(w, r)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Shutdown drains connections within timeout and waits for Serve to return.
func (ms *MetricsServer) Shutdown(timeout time.Duration) error {
	var err error
	ms.shutdownOnce.Do(func() {
		close(ms.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err = ms.server.Shutdown(ctx); err != nil {
			ms.logger.Error("metrics server shutdown failed", logging.Error(err))
			return
		}
		if ms.listener != nil {
			err = <-ms.done
		}
	})
	return err
}

// IsShuttingDown returns true if shutdown has been initiated
func (ms *MetricsServer) IsShuttingDown() bool {
	select {
	case <-ms.shutdownCh:
		return true
	default:
		return false
	}
}
