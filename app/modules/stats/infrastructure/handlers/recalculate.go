package statshandlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	statsservice "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/application"
	statsevents "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/events"
)

// HandleRecalculateRequested queues a replay unless the group asked too recently.
func (h *StatsHandlers) HandleRecalculateRequested(ctx context.Context, payload *statsevents.RecalculateRequestedPayloadV1) ([]Result, error) {
	groupID := payload.GroupID
	ctxLogger := h.logger.With(
		slog.String("group_id", string(groupID)),
		slog.String("reason", payload.Reason),
	)
	ctxLogger.InfoContext(ctx, "Received RecalculateRequested event")

	if groupID == "" {
		ctxLogger.WarnContext(ctx, "Ignoring recalculation request without a group")
		return nil, nil
	}

	release, retryAfter, allowed := h.limiter.Reserve(groupID)
	if !allowed {
		ctxLogger.InfoContext(ctx, "Recalculation request throttled", slog.Duration("retry_after", retryAfter))
		return []Result{{
			Topic:   statsevents.RecalculateThrottledV1,
			GroupID: string(groupID),
			Payload: statsevents.RecalculateThrottledPayloadV1{
				GroupID:    groupID,
				Reason:     payload.Reason,
				RetryAfter: retryAfter,
			},
		}}, nil
	}

	if err := h.scheduler.ScheduleRecalculation(ctx, groupID, payload.Reason); err != nil {
		if errors.Is(err, statsservice.ErrInvalidGroup) {
			return nil, nil
		}
		// The retry should not be throttled by the attempt that failed.
		release()
		return nil, fmt.Errorf("failed to schedule recalculation: %w", err)
	}

	ctxLogger.InfoContext(ctx, "Recalculation scheduled")
	return nil, nil
}
