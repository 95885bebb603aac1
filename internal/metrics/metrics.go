// Package metrics exposes Prometheus collectors for the face loop and the
// mouth feed.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	Ticks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cortexface_ticks_total",
			Help: "Total number of simulation ticks",
		},
	)

	FrameDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cortexface_frame_seconds",
			Help:    "Time spent ticking, drawing and presenting one frame",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .02, .033, .05, .1},
		},
	)

	MouthOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cortexface_mouth_open",
			Help: "Last mouth opening applied to the face, 0 to 1",
		},
	)

	FeedMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cortexface_feed_messages_total",
			Help: "Messages received from the mouth feed",
		},
		[]string{"topic"},
	)

	FeedConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cortexface_feed_connected",
			Help: "1 while the mouth feed websocket is connected",
		},
	)

	InvariantFaults = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cortexface_invariant_faults_total",
			Help: "Frames whose composited state had to be sanitized",
		},
	)
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Route mounts an extra handler next to /metrics.
type Route struct {
	Pattern string
	Handler http.Handler
}

// Serve exposes /metrics and routes on addr until ctx ends. An empty addr
// disables the server and returns nil immediately.
func Serve(ctx context.Context, addr string, logger zerolog.Logger, routes ...Route) error {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	for _, r := range routes {
		mux.Handle(r.Pattern, r.Handler)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info().Str("addr", addr).Msg("Starting metrics server")

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
