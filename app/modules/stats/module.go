package stats

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	statsservice "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/application"
	statshandlers "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/infrastructure/handlers"
	statsqueue "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/infrastructure/queue"
	statsdb "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/infrastructure/repositories"
	statsrouter "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/infrastructure/router"
	"github.com/YuTeChang/VibeBadminton-sub000/config"
	"github.com/YuTeChang/VibeBadminton-sub000/internal/observability"
	"github.com/uptrace/bun"
)

// EventBus is what the module needs from the message transport.
type EventBus interface {
	message.Publisher
	message.Subscriber
}

// Module represents the stats module.
type Module struct {
	StatsService *statsservice.StatsService
	QueueService *statsqueue.Service
	StatsRouter  *statsrouter.StatsRouter
	cancelFunc   context.CancelFunc
	obs          observability.Observability
}

// NewStatsModule wires the service, its recalculation queue and the event router.
func NewStatsModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Observability,
	db *bun.DB,
	repo statsdb.Repository,
	eventBus EventBus,
	router *message.Router,
) (*Module, error) {
	logger := obs.Logger
	logger.InfoContext(ctx, "stats.NewStatsModule called")

	// The queue runs service recalculations, so the scheduler is attached after both exist.
	statsService := statsservice.NewStatsService(repo, nil, nil, logger, obs.Metrics, obs.Tracer, db)

	queueService, err := statsqueue.NewService(ctx, db, logger, cfg.Postgres.DSN, obs.Metrics, statsService, repo, eventBus, statsqueue.Options{
		Workers:       cfg.Recalculation.QueueWorkers,
		SweepInterval: cfg.Recalculation.SweepInterval,
		JobTimeout:    cfg.Recalculation.JobTimeout,
		Migrate:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create stats queue service: %w", err)
	}
	statsService.SetScheduler(queueService)

	handlers := statshandlers.NewStatsHandlers(
		statsService,
		queueService,
		statshandlers.NewGroupLimiter(cfg.Recalculation.RatePerMinute),
		logger,
	)

	statsRouter := statsrouter.NewStatsRouter(logger, router, eventBus, eventBus, obs.Tracer, obs.Metrics, obs.Registry)
	if err := statsRouter.Configure(ctx, handlers); err != nil {
		return nil, fmt.Errorf("failed to configure stats router: %w", err)
	}

	return &Module{
		StatsService: statsService,
		QueueService: queueService,
		StatsRouter:  statsRouter,
		obs:          obs,
	}, nil
}

// Run starts the queue and blocks until ctx is canceled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	logger := m.obs.Logger
	logger.InfoContext(ctx, "Starting stats module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if err := m.QueueService.Start(ctx); err != nil {
		logger.ErrorContext(ctx, "Stats queue failed to start", "error", err)
		return
	}

	<-ctx.Done()
	logger.Info("Stats module goroutine stopped")
}

// HealthCheck reports whether the queue can reach its tables.
func (m *Module) HealthCheck(ctx context.Context) error {
	return m.QueueService.HealthCheck(ctx)
}

// Close stops the stats module and cleans up resources.
func (m *Module) Close(ctx context.Context) error {
	logger := m.obs.Logger
	logger.Info("Stopping stats module")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	if err := m.QueueService.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop stats queue: %w", err)
	}

	logger.Info("Stats module stopped")
	return nil
}
