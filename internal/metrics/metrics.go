// Package metrics exposes Prometheus instrumentation for ingestion runs.
package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FilesScanned counts filesystem entries accepted by the tree walk.
	FilesScanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "repograph_files_scanned_total",
		Help: "Files accepted by the repository tree walk.",
	})

	// FilesHashed counts files whose content digest was computed.
	FilesHashed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "repograph_files_hashed_total",
		Help: "Files hashed during ingestion.",
	})

	// FilesChanged counts files whose stored digest differed from disk.
	FilesChanged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "repograph_files_changed_total",
		Help: "Files detected as new or modified against the graph.",
	})

	// EdgesMerged counts containment edges merged into the graph.
	EdgesMerged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "repograph_edges_merged_total",
		Help: "Containment edges merged into the graph.",
	})

	// Runs counts completed sync runs by outcome.
	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repograph_sync_runs_total",
		Help: "Sync runs by outcome.",
	}, []string{"outcome"})

	// SyncDuration observes wall-clock time of full sync runs.
	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "repograph_sync_duration_seconds",
		Help:    "Wall-clock duration of sync runs.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})
)

// Serve exposes /metrics on addr until ctx is cancelled, then shuts the
// listener down gracefully.
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() {
		logger.Info("metrics.http.start", "addr", addr, "path", "/metrics")
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
