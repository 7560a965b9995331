package statsservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	statsdb "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/infrastructure/repositories"
	"github.com/YuTeChang/VibeBadminton-sub000/internal/observability"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const serviceLabel = "stats"

// StatsService implements the Service interface.
type StatsService struct {
	repo      statsdb.Repository
	resolver  Resolver
	scheduler RecalculationScheduler
	logger    *slog.Logger
	metrics   observability.StatsMetrics
	tracer    trace.Tracer
	db        *bun.DB
}

var _ Service = (*StatsService)(nil)

// NewStatsService creates a new StatsService. A nil resolver defaults to name matching.
func NewStatsService(
	repo statsdb.Repository,
	resolver Resolver,
	scheduler RecalculationScheduler,
	logger *slog.Logger,
	metrics observability.StatsMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *StatsService {
	if resolver == nil {
		resolver = NewNameMatchResolver(repo, logger)
	}
	return &StatsService{
		repo:      repo,
		resolver:  resolver,
		scheduler: scheduler,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
		db:        db,
	}
}

// SetScheduler wires the recalculation queue once it exists. The queue needs the
// service to run its jobs, so the two are built in two steps.
func (s *StatsService) SetScheduler(scheduler RecalculationScheduler) {
	s.scheduler = scheduler
}

// withTelemetry wraps a service operation with tracing, metrics, logging and panic recovery.
func withTelemetry[T any](
	s *StatsService,
	ctx context.Context,
	operationName string,
	groupID statsdomain.GroupID,
	op func(ctx context.Context) (T, error),
) (result T, err error) {
	ctx, span := s.tracer.Start(ctx, operationName, trace.WithAttributes(
		attribute.String("operation", operationName),
		attribute.String("group_id", string(groupID)),
	))
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName, serviceLabel)

	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, serviceLabel, time.Since(startTime))
	}()

	s.logger.InfoContext(ctx, operationName+" triggered",
		slog.String("operation", operationName),
		slog.String("group_id", string(groupID)),
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				slog.String("group_id", string(groupID)),
				slog.Any("error", err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName, serviceLabel)
			span.RecordError(err)
			span.SetStatus(codes.Error, "panic")
			var zero T
			result = zero
		}
	}()

	if groupID == "" {
		s.metrics.RecordOperationFailure(ctx, operationName, serviceLabel)
		return result, fmt.Errorf("%s: %w", operationName, ErrInvalidGroup)
	}

	result, err = op(ctx)
	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			slog.String("operation", operationName),
			slog.String("group_id", string(groupID)),
			slog.Any("error", wrappedErr),
		)
		s.metrics.RecordOperationFailure(ctx, operationName, serviceLabel)
		span.RecordError(wrappedErr)
		span.SetStatus(codes.Error, wrappedErr.Error())
		return result, wrappedErr
	}

	s.logger.InfoContext(ctx, operationName+" completed successfully",
		slog.String("operation", operationName),
		slog.String("group_id", string(groupID)),
	)
	s.metrics.RecordOperationSuccess(ctx, operationName, serviceLabel)
	return result, nil
}

// runInTx runs fn in one transaction, or directly when the service has no database.
func runInTx[T any](
	s *StatsService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (T, error),
) (T, error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result T
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})
	return result, err
}

// conn returns db, the service's database, or nil when neither is set.
func (s *StatsService) conn(db bun.IDB) bun.IDB {
	if db != nil {
		return db
	}
	if s.db != nil {
		return s.db
	}
	return nil
}

// withKeyLock serializes writers of one aggregate key. Inside an outer transaction
// the work runs as a savepoint so a failure only discards this entity.
func (s *StatsService) withKeyLock(
	ctx context.Context,
	db bun.IDB,
	groupID statsdomain.GroupID,
	key string,
	fn func(ctx context.Context, db bun.IDB) error,
) error {
	db = s.conn(db)
	if db == nil {
		if err := s.repo.AcquireKeyLock(ctx, nil, groupID, key); err != nil {
			return err
		}
		return fn(ctx, nil)
	}
	return db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.AcquireKeyLock(ctx, tx, groupID, key); err != nil {
			return err
		}
		return fn(ctx, tx)
	})
}

// withGroupWriteLock runs fn on one dedicated connection that holds the group's
// recalculation lock in shared mode. RecalculateGroup takes the same lock exclusively,
// so a rebuild never starts between a live write and the aggregate updates it causes.
func withGroupWriteLock[T any](
	s *StatsService,
	ctx context.Context,
	groupID statsdomain.GroupID,
	fn func(ctx context.Context, db bun.IDB) (T, error),
) (T, error) {
	var zero T
	if s.db == nil {
		if err := s.repo.AcquireSharedKeyLock(ctx, nil, groupID, recalculateLockKey); err != nil {
			return zero, err
		}
		defer s.releaseGroupWriteLock(ctx, nil, groupID)
		return fn(ctx, nil)
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return zero, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if err := s.repo.AcquireSharedKeyLock(ctx, &conn, groupID, recalculateLockKey); err != nil {
		return zero, err
	}
	defer s.releaseGroupWriteLock(ctx, &conn, groupID)
	return fn(ctx, &conn)
}

// releaseGroupWriteLock must run even when ctx is done: the lock outlives the request
// on a pooled connection otherwise.
func (s *StatsService) releaseGroupWriteLock(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) {
	if err := s.repo.ReleaseSharedKeyLock(context.WithoutCancel(ctx), db, groupID, recalculateLockKey); err != nil {
		s.logger.ErrorContext(ctx, "Failed to release group write lock",
			slog.String("group_id", string(groupID)),
			slog.Any("error", err),
		)
	}
}

// scheduleRecalculation asks the queue for a rebuild. Errors are logged only.
func (s *StatsService) scheduleRecalculation(ctx context.Context, groupID statsdomain.GroupID, reason string) bool {
	if s.scheduler == nil {
		s.logger.WarnContext(ctx, "No recalculation scheduler configured; aggregates may drift until a manual recalculation",
			slog.String("group_id", string(groupID)),
			slog.String("reason", reason),
		)
		return false
	}
	if err := s.scheduler.ScheduleRecalculation(ctx, groupID, reason); err != nil {
		s.logger.ErrorContext(ctx, "Failed to schedule recalculation",
			slog.String("group_id", string(groupID)),
			slog.String("reason", reason),
			slog.Any("error", err),
		)
		return false
	}
	s.logger.InfoContext(ctx, "Recalculation scheduled",
		slog.String("group_id", string(groupID)),
		slog.String("reason", reason),
	)
	return true
}

func playerLockKey(id statsdomain.PlayerID) string {
	return "player:" + string(id)
}

func partnershipLockKey(key statsdomain.PartnershipKey) string {
	return "partnership:" + string(key)
}

func matchupLockKey(key statsdomain.MatchupKey) string {
	return "matchup:" + key.String()
}

const recalculateLockKey = "recalculate"
