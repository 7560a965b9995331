package statsrouter

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	statsevents "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/events"
	statshandlers "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/infrastructure/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

const (
	TestEnvironmentFlag  = "APP_ENV"
	TestEnvironmentValue = "test"
)

// StatsRouter binds stats topics to their handlers.
type StatsRouter struct {
	logger         *slog.Logger
	Router         *message.Router
	subscriber     message.Subscriber
	publisher      message.Publisher
	tracer         trace.Tracer
	metrics        statshandlers.Metrics
	metricsBuilder *metrics.PrometheusMetricsBuilder
	metricsEnabled bool
	maxRetries     int
}

// NewStatsRouter creates a new instance of the router.
func NewStatsRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	publisher message.Publisher,
	tracer trace.Tracer,
	handlerMetrics statshandlers.Metrics,
	prometheusRegistry *prometheus.Registry,
) *StatsRouter {
	inTestEnv := os.Getenv(TestEnvironmentFlag) == TestEnvironmentValue

	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if prometheusRegistry != nil && !inTestEnv {
		builder := metrics.NewPrometheusMetricsBuilder(prometheusRegistry, "stats", "")
		metricsBuilder = &builder
	}

	return &StatsRouter{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		publisher:      NewTopicPublisher(publisher),
		tracer:         tracer,
		metrics:        handlerMetrics,
		metricsBuilder: metricsBuilder,
		metricsEnabled: metricsBuilder != nil,
		maxRetries:     3,
	}
}

// Configure sets up the middlewares and registers the stats handlers.
func (r *StatsRouter) Configure(routerCtx context.Context, handlers statshandlers.Handlers) error {
	if r.metricsEnabled {
		r.logger.Info("Adding Prometheus router metrics middleware for Stats")
		r.metricsBuilder.AddPrometheusRouterMetrics(r.Router)
	}

	r.Router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Retry{
			MaxRetries:      r.maxRetries,
			InitialInterval: 100 * time.Millisecond,
			Multiplier:      2,
			MaxInterval:     2 * time.Second,
			Logger:          watermill.NewSlogLogger(r.logger),
		}.Middleware,
		middleware.Recoverer,
	)

	return r.RegisterHandlers(routerCtx, handlers)
}

// handlerDeps provides a scannable structure for the registerHandler helper.
type handlerDeps struct {
	router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    statshandlers.Metrics
}

// registerHandler is a generic helper to reduce boilerplate when adding topics to the router.
func registerHandler[T any](
	deps handlerDeps,
	topic string,
	handler func(context.Context, *T) ([]statshandlers.Result, error),
) {
	handlerName := "stats." + topic
	deps.router.AddHandler(
		handlerName,
		topic,
		deps.subscriber,
		"",
		deps.publisher,
		statshandlers.WrapTyped(handlerName, deps.logger, deps.tracer, deps.metrics, handler),
	)
}

// RegisterHandlers binds specific event topics to their corresponding handler logic.
func (r *StatsRouter) RegisterHandlers(ctx context.Context, handlers statshandlers.Handlers) error {
	r.logger.InfoContext(ctx, "Registering Stats Event Handlers")

	deps := handlerDeps{
		router:     r.Router,
		subscriber: r.subscriber,
		publisher:  r.publisher,
		logger:     r.logger,
		tracer:     r.tracer,
		metrics:    r.metrics,
	}

	registerHandler(deps, statsevents.ResultRecordedV1, handlers.HandleResultRecorded)
	registerHandler(deps, statsevents.ResultReversedV1, handlers.HandleResultReversed)
	registerHandler(deps, statsevents.ResultReplacedV1, handlers.HandleResultReplaced)
	registerHandler(deps, statsevents.RecalculateRequestedV1, handlers.HandleRecalculateRequested)

	return nil
}

// Close stops the router and cleans up resources.
func (r *StatsRouter) Close() error {
	return r.Router.Close()
}
