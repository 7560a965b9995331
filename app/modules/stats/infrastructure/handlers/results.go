package statshandlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	statsservice "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/application"
	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	statsevents "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/events"
)

// HandleResultRecorded applies the recorded result and reports the outcome.
func (h *StatsHandlers) HandleResultRecorded(ctx context.Context, payload *statsevents.ResultRecordedPayloadV1) ([]Result, error) {
	groupID := payload.GroupID
	h.logger.InfoContext(ctx, "Received ResultRecorded event",
		slog.String("group_id", string(groupID)),
		slog.String("result_id", string(payload.Result.ID)),
	)

	outcome, err := h.engine.ApplyResult(ctx, groupID, payload.Result.ToDomain(groupID))
	if err != nil {
		if errors.Is(err, statsservice.ErrInvalidGroup) {
			h.logger.WarnContext(ctx, "Ignoring result without a group", slog.String("result_id", string(payload.Result.ID)))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to apply result: %w", err)
	}

	return []Result{appliedResult(groupID, outcome)}, nil
}

// HandleResultReversed removes a deleted result's contribution. Nothing is published.
func (h *StatsHandlers) HandleResultReversed(ctx context.Context, payload *statsevents.ResultReversedPayloadV1) ([]Result, error) {
	groupID := payload.GroupID
	h.logger.InfoContext(ctx, "Received ResultReversed event",
		slog.String("group_id", string(groupID)),
		slog.String("result_id", string(payload.Previous.ID)),
	)

	outcome, err := h.engine.ReverseResult(ctx, groupID, payload.Previous.ToDomain(groupID))
	if err != nil {
		if errors.Is(err, statsservice.ErrInvalidGroup) {
			h.logger.WarnContext(ctx, "Ignoring reversal without a group", slog.String("result_id", string(payload.Previous.ID)))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to reverse result: %w", err)
	}

	h.logger.InfoContext(ctx, "Result reversed",
		slog.String("group_id", string(groupID)),
		slog.String("skipped", string(outcome.Skipped)),
		slog.Bool("historical", outcome.Historical),
		slog.Int("failures", len(outcome.Failures)),
	)
	return nil, nil
}

// HandleResultReplaced reverses the previous version before applying the update.
func (h *StatsHandlers) HandleResultReplaced(ctx context.Context, payload *statsevents.ResultReplacedPayloadV1) ([]Result, error) {
	groupID := payload.GroupID
	h.logger.InfoContext(ctx, "Received ResultReplaced event",
		slog.String("group_id", string(groupID)),
		slog.String("result_id", string(payload.Updated.ID)),
	)

	if payload.Previous.ID != payload.Updated.ID {
		h.logger.WarnContext(ctx, "Ignoring replacement of a different result",
			slog.String("previous_id", string(payload.Previous.ID)),
			slog.String("updated_id", string(payload.Updated.ID)),
		)
		return nil, nil
	}

	if _, err := h.engine.ReverseResult(ctx, groupID, payload.Previous.ToDomain(groupID)); err != nil {
		if errors.Is(err, statsservice.ErrInvalidGroup) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to reverse previous version: %w", err)
	}

	outcome, err := h.engine.ApplyResult(ctx, groupID, payload.Updated.ToDomain(groupID))
	if err != nil {
		// The reverse already committed. Retrying would reverse twice, so fall back
		// to a replay instead.
		h.logger.ErrorContext(ctx, "Apply after reverse failed, scheduling recalculation", slog.Any("error", err))
		if schedErr := h.scheduler.ScheduleRecalculation(ctx, groupID, "replace_apply_failed"); schedErr != nil {
			return nil, fmt.Errorf("failed to apply updated result: %w", errors.Join(err, schedErr))
		}
		return nil, nil
	}

	return []Result{appliedResult(groupID, outcome)}, nil
}

func appliedResult(groupID statsdomain.GroupID, outcome statsservice.ApplyOutcome) Result {
	return Result{
		Topic:   statsevents.ResultAppliedV1,
		GroupID: string(groupID),
		Payload: statsevents.ResultAppliedPayloadV1{
			GroupID:                groupID,
			ResultID:               outcome.ResultID,
			Skipped:                outcome.Skipped,
			PlayersUpdated:         outcome.PlayersUpdated,
			PartnershipsUpdated:    outcome.PartnershipsUpdated,
			FailedEntities:         len(outcome.Failures),
			RecalculationScheduled: outcome.RecalculationScheduled,
		},
	}
}
