// Package metrics exposes Prometheus collectors for the proxy and a
// standalone metrics listener, kept separate from the API server so that
// scrapes never compete with API traffic.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// UnsealAttempts counts keystore unseal calls by outcome.
	// Outcomes: "success", "wrong_passphrase", "no_key", "backend_unavailable", "error".
	UnsealAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keystore_unseal_attempts_total",
		Help: "Number of keystore unseal attempts by outcome.",
	}, []string{"outcome"})

	// CreateKeyAttempts counts keystore create-key calls by outcome.
	// Outcomes: "success", "key_exists", "backend_unavailable", "error".
	CreateKeyAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keystore_create_key_attempts_total",
		Help: "Number of keystore create-key attempts by outcome.",
	}, []string{"outcome"})

	// UnsealedAt records when the session transitioned to unsealed.
	// Zero while the proxy is still sealed.
	UnsealedAt = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "session_unsealed_timestamp_seconds",
		Help: "Unix timestamp of the sealed to unsealed transition, 0 if sealed.",
	})

	// AuthFailures counts rejected bearer tokens.
	AuthFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_token_failures_total",
		Help: "Number of requests rejected due to a missing or invalid auth token.",
	})
)

// MarkUnsealed records the transition time on the UnsealedAt gauge.
func MarkUnsealed() {
	UnsealedAt.Set(float64(time.Now().Unix()))
}

// MetricsServer serves the Prometheus scrape endpoint.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server listening on addr. The name is kept for
// log correlation and future per-service registries.
func New(name, addr string) (*MetricsServer, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &MetricsServer{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}, nil
}

// ListenAndServe blocks serving scrapes until Shutdown is called.
func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics listener.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
