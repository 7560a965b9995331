package statsqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	statsservice "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/application"
	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/riverqueue/river/rivertype"
	"github.com/uptrace/bun"
)

const metricsService = "river"

// Metrics interface (satisfied by observability.StatsMetrics)
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
}

// QueueService interface defines the contract for stats background jobs
type QueueService interface {
	statsservice.RecalculationScheduler
	// ListGroupJobs returns the recalculation jobs of one group (for operators)
	ListGroupJobs(ctx context.Context, groupID statsdomain.GroupID) ([]JobInfo, error)
	// HealthCheck verifies the queue service is healthy
	HealthCheck(ctx context.Context) error
	// Start starts the queue service
	Start(ctx context.Context) error
	// Stop stops the queue service
	Stop(ctx context.Context) error
}

// Ensure Service implements QueueService
var _ QueueService = (*Service)(nil)

// inserter is the part of the River client used for scheduling.
type inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// Options tunes the queue.
type Options struct {
	// Workers is the concurrency of the stats queue.
	Workers int
	// SweepInterval schedules the drift sweep. Zero disables it.
	SweepInterval time.Duration
	// JobTimeout bounds one recalculation.
	JobTimeout time.Duration
	// Migrate runs River's own schema migrations before the client is built.
	Migrate bool
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.JobTimeout <= 0 {
		o.JobTimeout = 5 * time.Minute
	}
	return o
}

// Service runs stats recalculations on River
type Service struct {
	client   *river.Client[pgx.Tx]
	inserter inserter
	pool     *pgxpool.Pool
	logger   *slog.Logger
	db       *bun.DB
	metrics  Metrics
}

// NewService creates a new River-based queue service for stats recalculations
func NewService(
	ctx context.Context,
	bunDB *bun.DB,
	logger *slog.Logger,
	dsn string,
	metrics Metrics,
	recalculator Recalculator,
	groups GroupLister,
	publisher message.Publisher,
	opts Options,
) (*Service, error) {
	opts = opts.withDefaults()
	ctxLogger := logger.With(
		slog.String("operation", "new_stats_queue_service"),
		slog.String("component", "river_queue"),
	)

	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_service", metricsService)

	ctxLogger.Info("Initializing stats queue service")

	// River requires pgx, not database/sql
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		ctxLogger.Error("Failed to parse DSN for River", slog.Any("error", err))
		metrics.RecordOperationFailure(ctx, "initialize_service", metricsService)
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		ctxLogger.Error("Failed to create pgx pool for River", slog.Any("error", err))
		metrics.RecordOperationFailure(ctx, "initialize_service", metricsService)
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		ctxLogger.Error("Failed to ping database for River", slog.Any("error", err))
		metrics.RecordOperationFailure(ctx, "initialize_service", metricsService)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if opts.Migrate {
		if err := Migrate(ctx, pool); err != nil {
			pool.Close()
			ctxLogger.Error("Failed to run River migrations", slog.Any("error", err))
			metrics.RecordOperationFailure(ctx, "initialize_service", metricsService)
			return nil, err
		}
	}

	service := &Service{
		pool:    pool,
		logger:  ctxLogger,
		db:      bunDB,
		metrics: metrics,
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewRecalculateGroupWorker(ctxLogger, recalculator, publisher, opts.JobTimeout))
	river.AddWorker(workers, NewDriftSweepWorker(ctxLogger, groups, service))

	var periodic []*river.PeriodicJob
	if opts.SweepInterval > 0 {
		periodic = append(periodic, river.NewPeriodicJob(
			river.PeriodicInterval(opts.SweepInterval),
			func() (river.JobArgs, *river.InsertOpts) {
				return DriftSweepJob{}, &river.InsertOpts{Queue: QueueName}
			},
			&river.PeriodicJobOpts{},
		))
	}

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
			QueueName:          {MaxWorkers: opts.Workers},
		},
		Workers:      workers,
		PeriodicJobs: periodic,
		Logger:       logger,
	})
	if err != nil {
		pool.Close()
		ctxLogger.Error("Failed to create River client", slog.Any("error", err))
		metrics.RecordOperationFailure(ctx, "initialize_service", metricsService)
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}
	service.client = riverClient
	service.inserter = riverClient

	metrics.RecordOperationSuccess(ctx, "initialize_service", metricsService)
	metrics.RecordOperationDuration(ctx, "initialize_service", metricsService, time.Since(start))

	ctxLogger.Info("Stats queue service initialized successfully",
		slog.Int("workers", opts.Workers),
		slog.Duration("sweep_interval", opts.SweepInterval),
	)
	return service, nil
}

// Migrate brings River's tables up to date.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("failed to create River migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		return fmt.Errorf("failed to run River migrations: %w", err)
	}
	return nil
}

// Start starts the River queue service
func (s *Service) Start(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "start_service", metricsService)

	s.logger.Info("Starting stats queue service")

	if err := s.client.Start(ctx); err != nil {
		s.logger.Error("Failed to start River client", slog.Any("error", err))
		s.metrics.RecordOperationFailure(ctx, "start_service", metricsService)
		return fmt.Errorf("failed to start River client: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "start_service", metricsService)
	s.metrics.RecordOperationDuration(ctx, "start_service", metricsService, time.Since(start))

	s.logger.Info("Stats queue service started successfully")
	return nil
}

// Stop stops the River queue service and releases its pool
func (s *Service) Stop(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "stop_service", metricsService)

	s.logger.Info("Stopping stats queue service")
	defer s.pool.Close()

	if err := s.client.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop River client", slog.Any("error", err))
		s.metrics.RecordOperationFailure(ctx, "stop_service", metricsService)
		return fmt.Errorf("failed to stop River client: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "stop_service", metricsService)
	s.metrics.RecordOperationDuration(ctx, "stop_service", metricsService, time.Since(start))

	s.logger.Info("Stats queue service stopped successfully")
	return nil
}

// ScheduleRecalculation enqueues a RecalculateGroupJob. Identical pending jobs are
// collapsed by River; a request that collides with a running job queues a follow-up.
func (s *Service) ScheduleRecalculation(ctx context.Context, groupID statsdomain.GroupID, reason string) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "schedule_recalculation", metricsService)

	ctxLogger := s.logger.With(
		slog.String("group_id", string(groupID)),
		slog.String("reason", reason),
		slog.String("operation", "schedule_recalculation"),
	)

	if groupID == "" {
		s.metrics.RecordOperationFailure(ctx, "schedule_recalculation", metricsService)
		return statsservice.ErrInvalidGroup
	}
	if reason == "" {
		reason = ReasonRequested
	}

	job := RecalculateGroupJob{GroupID: groupID, Reason: reason}
	jobResult, err := s.inserter.Insert(ctx, job, recalculationInsertOpts())
	if err == nil && jobResult.UniqueSkippedAsDuplicate && jobResult.Job.State == rivertype.JobStateRunning {
		// The running replay may already have read the log; queue one more behind it.
		job.AfterJobID = jobResult.Job.ID
		jobResult, err = s.inserter.Insert(ctx, job, recalculationInsertOpts())
	}
	if err != nil {
		ctxLogger.Error("Failed to schedule recalculation job", slog.Any("error", err))
		s.metrics.RecordOperationFailure(ctx, "schedule_recalculation", metricsService)
		return fmt.Errorf("failed to schedule recalculation job: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "schedule_recalculation", metricsService)
	s.metrics.RecordOperationDuration(ctx, "schedule_recalculation", metricsService, time.Since(start))

	ctxLogger.Info("Recalculation job scheduled",
		slog.Int64("job_id", jobResult.Job.ID),
		slog.Int64("after_job_id", job.AfterJobID),
		slog.Bool("duplicate", jobResult.UniqueSkippedAsDuplicate),
	)
	return nil
}

// recalculationInsertOpts collapses identical jobs. River requires running in the
// unique states, so a request made during a run is handled by a follow-up job.
func recalculationInsertOpts() *river.InsertOpts {
	return &river.InsertOpts{
		Queue: QueueName,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable,
				rivertype.JobStatePending,
				rivertype.JobStateRetryable,
				rivertype.JobStateRunning,
				rivertype.JobStateScheduled,
			},
		},
	}
}

// ListGroupJobs returns recalculation jobs of a group, newest first
func (s *Service) ListGroupJobs(ctx context.Context, groupID statsdomain.GroupID) ([]JobInfo, error) {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "list_group_jobs", metricsService)

	type riverJobRow struct {
		ID          int64          `bun:"id"`
		Kind        string         `bun:"kind"`
		State       string         `bun:"state"`
		Args        map[string]any `bun:"args,type:jsonb"`
		CreatedAt   time.Time      `bun:"created_at"`
		Attempt     int16          `bun:"attempt"`
		MaxAttempts int16          `bun:"max_attempts"`
	}

	var jobs []riverJobRow
	err := s.db.NewSelect().
		Table("river_job").
		Column("id", "kind", "state", "args", "created_at", "attempt", "max_attempts").
		Where("kind = ?", RecalculateGroupJob{}.Kind()).
		Where("args->>'group_id' = ?", string(groupID)).
		Order("created_at DESC").
		Limit(50).
		Scan(ctx, &jobs)
	if err != nil {
		s.logger.Error("Failed to query recalculation jobs", slog.String("group_id", string(groupID)), slog.Any("error", err))
		s.metrics.RecordOperationFailure(ctx, "list_group_jobs", metricsService)
		return nil, fmt.Errorf("failed to query recalculation jobs: %w", err)
	}

	result := make([]JobInfo, len(jobs))
	for i, job := range jobs {
		reason, _ := job.Args["reason"].(string)
		result[i] = JobInfo{
			ID:          job.ID,
			Kind:        job.Kind,
			GroupID:     string(groupID),
			Reason:      reason,
			State:       job.State,
			CreatedAt:   job.CreatedAt.Format(time.RFC3339),
			Attempt:     int(job.Attempt),
			MaxAttempts: int(job.MaxAttempts),
		}
	}

	s.metrics.RecordOperationSuccess(ctx, "list_group_jobs", metricsService)
	s.metrics.RecordOperationDuration(ctx, "list_group_jobs", metricsService, time.Since(start))
	return result, nil
}

// HealthCheck verifies the queue service is healthy
func (s *Service) HealthCheck(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "health_check", metricsService)

	if s.client == nil {
		s.metrics.RecordOperationFailure(ctx, "health_check", metricsService)
		return errors.New("river client is nil")
	}

	var count int
	err := s.db.NewSelect().
		Table("river_job").
		ColumnExpr("COUNT(*)").
		Where("queue = ?", QueueName).
		Where("state IN (?)", bun.In([]string{"available", "running", "retryable"})).
		Scan(ctx, &count)
	if err != nil {
		s.logger.Error("Queue service health check failed", slog.Any("error", err))
		s.metrics.RecordOperationFailure(ctx, "health_check", metricsService)
		return fmt.Errorf("queue service health check failed: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "health_check", metricsService)
	s.metrics.RecordOperationDuration(ctx, "health_check", metricsService, time.Since(start))

	s.logger.Debug("Queue service health check passed", slog.Int("pending_jobs", count))
	return nil
}
