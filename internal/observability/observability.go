package observability

import (
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/YuTeChang/VibeBadminton-sub000/stats"

// Observability bundles what every module receives.
type Observability struct {
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  StatsMetrics
	Tracer   trace.Tracer
}

// Config selects the logger format and level.
type Config struct {
	ServiceName string
	Environment string
	JSONLogs    bool
	Debug       bool
}

// New builds the logger, a fresh prometheus registry and the global tracer.
func New(cfg Config) Observability {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.JSONLogs {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler).With(
		slog.String("service", cfg.ServiceName),
		slog.String("env", cfg.Environment),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return Observability{
		Logger:   logger,
		Registry: registry,
		Metrics:  NewPrometheusMetrics(registry, "stats"),
		Tracer:   otel.Tracer(tracerName),
	}
}

// NewNoop is used by tests and one-shot CLI commands.
func NewNoop() Observability {
	return Observability{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics: NoOpMetrics{},
		Tracer:  noop.NewTracerProvider().Tracer("noop"),
	}
}
