package statshandlers

import (
	"context"

	statsservice "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/application"
	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	statsevents "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/events"
)

// Handlers defines the interface for stats event handlers.
type Handlers interface {
	// HandleResultRecorded applies a result that is already in the result log.
	HandleResultRecorded(ctx context.Context, payload *statsevents.ResultRecordedPayloadV1) ([]Result, error)

	// HandleResultReversed removes a deleted result from the aggregates.
	HandleResultReversed(ctx context.Context, payload *statsevents.ResultReversedPayloadV1) ([]Result, error)

	// HandleResultReplaced reverses the previous version and applies the new one.
	HandleResultReplaced(ctx context.Context, payload *statsevents.ResultReplacedPayloadV1) ([]Result, error)

	// HandleRecalculateRequested queues a replay, subject to the per-group rate.
	HandleRecalculateRequested(ctx context.Context, payload *statsevents.RecalculateRequestedPayloadV1) ([]Result, error)
}

// Engine is the part of the stats service the handlers drive.
type Engine interface {
	ApplyResult(ctx context.Context, groupID statsdomain.GroupID, result statsdomain.GameResult) (statsservice.ApplyOutcome, error)
	ReverseResult(ctx context.Context, groupID statsdomain.GroupID, previous statsdomain.GameResult) (statsservice.ReverseOutcome, error)
}
