// Package runtime owns process-level concerns: OpenTelemetry setup
// and the optional health/metrics HTTP listener.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/minutelabs/minuted/internal/config"
)

type Runtime struct {
	cfg            config.Config
	logger         *slog.Logger
	httpServer     *http.Server
	telemetryClose func(context.Context) error
	wg             sync.WaitGroup
}

// Start initializes telemetry and, when a Prometheus bind address is
// configured, serves /healthz and /metrics in the background until
// Shutdown is called.
func Start(cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	r := &Runtime{cfg: cfg, logger: logger}

	shutdownTelemetry, metricHandler, err := setupTelemetry(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}
	r.telemetryClose = shutdownTelemetry

	if bind := cfg.Telemetry.PrometheusBind; bind != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", handleHealth)
		if metricHandler != nil {
			mux.Handle("/metrics", metricHandler)
		}

		r.httpServer = &http.Server{
			Addr:              bind,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				r.logger.Error("http server failed", slog.String("error", err.Error()))
			}
		}()
		r.logger.Info("metrics listener started", slog.String("addr", bind))
	}

	return r, nil
}

// Shutdown stops the HTTP listener and flushes telemetry.
func (r *Runtime) Shutdown(ctx context.Context) {
	if r == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if r.httpServer != nil {
		if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Error("http shutdown error", slog.String("error", err.Error()))
		}
		r.wg.Wait()
	}
	if r.telemetryClose != nil {
		if err := r.telemetryClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
