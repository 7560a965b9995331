package statsqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	statsservice "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/application"
	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	statsevents "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/events"
	"github.com/riverqueue/river"
	"github.com/uptrace/bun"
)

// Recalculator runs a full replay of one group.
type Recalculator interface {
	RecalculateGroup(ctx context.Context, groupID statsdomain.GroupID) (statsservice.RecalculationSummary, error)
}

// GroupLister lists the groups that have at least one stored result.
type GroupLister interface {
	ListGroupsWithResults(ctx context.Context, db bun.IDB) ([]statsdomain.GroupID, error)
}

// RecalculateGroupWorker executes RecalculateGroupJob.
type RecalculateGroupWorker struct {
	river.WorkerDefaults[RecalculateGroupJob]
	logger       *slog.Logger
	recalculator Recalculator
	publisher    message.Publisher
	timeout      time.Duration
}

// NewRecalculateGroupWorker creates a worker. A nil publisher disables result events.
func NewRecalculateGroupWorker(logger *slog.Logger, recalculator Recalculator, publisher message.Publisher, timeout time.Duration) *RecalculateGroupWorker {
	return &RecalculateGroupWorker{
		logger:       logger,
		recalculator: recalculator,
		publisher:    publisher,
		timeout:      timeout,
	}
}

// Timeout bounds a single replay.
func (w *RecalculateGroupWorker) Timeout(*river.Job[RecalculateGroupJob]) time.Duration {
	return w.timeout
}

// Work replays the group and announces the outcome.
func (w *RecalculateGroupWorker) Work(ctx context.Context, job *river.Job[RecalculateGroupJob]) error {
	args := job.Args
	logger := w.logger.With(
		slog.String("operation", "recalculate_group_job"),
		slog.String("group_id", string(args.GroupID)),
		slog.String("reason", args.Reason),
		slog.Int64("job_id", job.ID),
		slog.Int("attempt", job.Attempt),
	)

	if args.GroupID == "" {
		logger.Error("Recalculation job has no group id, cancelling")
		return river.JobCancel(statsservice.ErrInvalidGroup)
	}

	logger.Info("Processing recalculation job")

	summary, err := w.recalculator.RecalculateGroup(ctx, args.GroupID)
	if err != nil {
		logger.Error("Recalculation failed", slog.Any("error", err))
		w.publish(ctx, logger, statsevents.RecalculateFailedV1, args.GroupID, statsevents.RecalculateFailedPayloadV1{
			GroupID: args.GroupID,
			Reason:  args.Reason,
			Error:   err.Error(),
			Attempt: job.Attempt,
		})
		return fmt.Errorf("recalculate group %s: %w", args.GroupID, err)
	}

	w.publish(ctx, logger, statsevents.GroupRecalculatedV1, args.GroupID, statsevents.GroupRecalculatedPayloadV1{
		GroupID:        args.GroupID,
		Reason:         args.Reason,
		PlayersReset:   summary.PlayersReset,
		GamesProcessed: summary.GamesProcessed,
		GamesSkipped:   summary.GamesSkipped,
		PlayersUpdated: summary.PlayersUpdated,
		CompletedAt:    time.Now().UTC(),
	})

	logger.Info("Recalculation job completed",
		slog.Int("games_processed", summary.GamesProcessed),
		slog.Int("players_updated", summary.PlayersUpdated),
	)
	return nil
}

// publish is best effort. The replay already committed, so a lost event must not retry it.
func (w *RecalculateGroupWorker) publish(ctx context.Context, logger *slog.Logger, topic string, groupID statsdomain.GroupID, payload any) {
	if w.publisher == nil {
		return
	}
	msg, err := statsevents.NewMessage(nil, topic, string(groupID), payload)
	if err != nil {
		logger.Error("Failed to build event", slog.String("topic", topic), slog.Any("error", err))
		return
	}
	msg.SetContext(ctx)
	if err := w.publisher.Publish(topic, msg); err != nil {
		logger.Error("Failed to publish event", slog.String("topic", topic), slog.Any("error", err))
	}
}

// DriftSweepWorker executes DriftSweepJob.
type DriftSweepWorker struct {
	river.WorkerDefaults[DriftSweepJob]
	logger    *slog.Logger
	groups    GroupLister
	scheduler statsservice.RecalculationScheduler
}

// NewDriftSweepWorker creates a worker that schedules through scheduler.
func NewDriftSweepWorker(logger *slog.Logger, groups GroupLister, scheduler statsservice.RecalculationScheduler) *DriftSweepWorker {
	return &DriftSweepWorker{logger: logger, groups: groups, scheduler: scheduler}
}

// Work enqueues a recalculation for every group with results. Scheduling errors are
// collected so one bad group does not hide the rest.
func (w *DriftSweepWorker) Work(ctx context.Context, job *river.Job[DriftSweepJob]) error {
	logger := w.logger.With(
		slog.String("operation", "drift_sweep_job"),
		slog.Int64("job_id", job.ID),
	)

	groupIDs, err := w.groups.ListGroupsWithResults(ctx, nil)
	if err != nil {
		logger.Error("Failed to list groups for drift sweep", slog.Any("error", err))
		return fmt.Errorf("list groups: %w", err)
	}

	failed := 0
	for _, groupID := range groupIDs {
		if err := w.scheduler.ScheduleRecalculation(ctx, groupID, ReasonDriftSweep); err != nil {
			failed++
			logger.Error("Failed to schedule drift recalculation",
				slog.String("group_id", string(groupID)),
				slog.Any("error", err),
			)
		}
	}

	logger.Info("Drift sweep completed",
		slog.Int("groups", len(groupIDs)),
		slog.Int("failed", failed),
	)
	if failed > 0 {
		return fmt.Errorf("drift sweep: %d of %d groups could not be scheduled", failed, len(groupIDs))
	}
	return nil
}
