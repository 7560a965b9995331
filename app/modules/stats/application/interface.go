package statsservice

import (
	"context"
	"io"
	"time"

	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
)

// Service defines the contract of the rating and statistics engine.
type Service interface {
	// --- ENGINE ---

	// ApplyResult folds one completed result into the group's aggregates. Store
	// failures of single entities are reported in the outcome, never as an error.
	ApplyResult(ctx context.Context, groupID statsdomain.GroupID, result statsdomain.GameResult) (ApplyOutcome, error)

	// ReverseResult removes the countable contribution of a previously applied result.
	// Ratings and streaks are left as last computed.
	ReverseResult(ctx context.Context, groupID statsdomain.GroupID, previous statsdomain.GameResult) (ReverseOutcome, error)

	// RecalculateGroup resets the group and replays every completed result in creation order.
	RecalculateGroup(ctx context.Context, groupID statsdomain.GroupID) (RecalculationSummary, error)

	// --- RESULT LOG ---

	RecordResult(ctx context.Context, groupID statsdomain.GroupID, result statsdomain.GameResult) (statsdomain.GameResult, ApplyOutcome, error)
	ReplaceResult(ctx context.Context, groupID statsdomain.GroupID, updated statsdomain.GameResult) (ReplaceOutcome, error)
	DeleteResult(ctx context.Context, groupID statsdomain.GroupID, resultID statsdomain.ResultID) (ReverseOutcome, error)

	// --- READS ---

	GetPlayerStats(ctx context.Context, groupID statsdomain.GroupID, playerID statsdomain.PlayerID) (PlayerStats, error)
	GetPartnershipStats(ctx context.Context, groupID statsdomain.GroupID, a, b statsdomain.PlayerID) (PartnershipStats, error)
	GetHeadToHead(ctx context.Context, groupID statsdomain.GroupID, teamA, teamB [2]statsdomain.PlayerID) (HeadToHead, error)
	GetLeaderboard(ctx context.Context, groupID statsdomain.GroupID) ([]PlayerStats, error)
	GetRatingHistory(ctx context.Context, groupID statsdomain.GroupID, playerID statsdomain.PlayerID, since time.Time) ([]RatingPoint, error)

	// --- REPORTS ---

	RatingHistoryChart(ctx context.Context, groupID statsdomain.GroupID, playerID statsdomain.PlayerID, since time.Time) ([]byte, error)
	ExportStandingsWorkbook(ctx context.Context, groupID statsdomain.GroupID, w io.Writer) error
}

// RecalculationScheduler queues an asynchronous RecalculateGroup.
type RecalculationScheduler interface {
	ScheduleRecalculation(ctx context.Context, groupID statsdomain.GroupID, reason string) error
}
