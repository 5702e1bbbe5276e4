package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// Logger is a no-op until Init swaps in the production logger, packages can
// log through it unconditionally.
var Logger *zap.Logger = zap.NewNop()

var (
	verdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_verdicts_total",
			Help: "Total number of moderation verdicts issued",
		},
		[]string{"category", "outcome"},
	)

	evaluateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warden_evaluate_duration_seconds",
			Help:    "Time spent evaluating content events",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(verdictsTotal)
	prometheus.MustRegister(evaluateDuration)
}

// Init replaces the no-op logger, wires the tracer provider and exposes the
// metrics endpoint. The server shuts down with the passed context.
func Init(ctx context.Context, metricsAddr string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	Logger = logger

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: metricsAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		_ = tp.Shutdown(shutdownCtx)
		_ = Logger.Sync()
	}()

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server failed")
		}
	}()

	return nil
}

func RecordVerdict(category, outcome string) {
	verdictsTotal.WithLabelValues(category, outcome).Inc()
}

// StartEvaluation returns a closure that records the elapsed time under the
// given status label.
func StartEvaluation() func(status string) {
	start := time.Now()
	return func(status string) {
		evaluateDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}
}
