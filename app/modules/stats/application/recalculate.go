package statsservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	"github.com/uptrace/bun"
)

// RecalculateGroup rebuilds every aggregate of the group from the result log.
//
// The reset and the replay run in one transaction under the group lock held
// exclusively, so a failure leaves the previous aggregates in place and a retry always
// starts from a clean slate. Live writers hold the same lock shared and wait for the
// rebuild to commit.
func (s *StatsService) RecalculateGroup(ctx context.Context, groupID statsdomain.GroupID) (RecalculationSummary, error) {
	return withTelemetry(s, ctx, "RecalculateGroup", groupID, func(ctx context.Context) (RecalculationSummary, error) {
		start := time.Now()
		summary, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (RecalculationSummary, error) {
			return s.recalculateInTx(ctx, db, groupID)
		})
		if err != nil {
			return RecalculationSummary{GroupID: groupID}, err
		}
		s.metrics.RecordRecalculation(ctx, summary.GamesProcessed, time.Since(start))
		return summary, nil
	})
}

func (s *StatsService) recalculateInTx(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) (RecalculationSummary, error) {
	summary := RecalculationSummary{GroupID: groupID}

	if err := s.repo.AcquireKeyLock(ctx, db, groupID, recalculateLockKey); err != nil {
		return summary, err
	}

	// Resetting
	playersReset, err := s.repo.ResetGroupPlayers(ctx, db, groupID)
	if err != nil {
		return summary, fmt.Errorf("reset players: %w", err)
	}
	summary.PlayersReset = playersReset
	if _, err := s.repo.ResetGroupPartnerships(ctx, db, groupID); err != nil {
		return summary, fmt.Errorf("reset partnerships: %w", err)
	}
	if _, err := s.repo.DeleteGroupMatchups(ctx, db, groupID); err != nil {
		return summary, fmt.Errorf("reset matchups: %w", err)
	}
	if err := s.repo.DeleteGroupRatingHistory(ctx, db, groupID); err != nil {
		return summary, fmt.Errorf("reset rating history: %w", err)
	}
	if err := s.repo.DeleteGroupAppliedResults(ctx, db, groupID); err != nil {
		return summary, fmt.Errorf("reset applied markers: %w", err)
	}

	// Replaying
	games, err := s.repo.ListCompletedResults(ctx, db, groupID)
	if err != nil {
		return summary, fmt.Errorf("list results: %w", err)
	}

	updated := make(map[statsdomain.PlayerID]struct{})
	for _, game := range games {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		outcome, err := s.applyResult(ctx, db, groupID, game.ToDomain(), true)
		if err != nil {
			return summary, fmt.Errorf("replay result %s: %w", game.ID, err)
		}
		summary.GamesProcessed++
		if !outcome.Applied() {
			summary.GamesSkipped++
		}
		for _, id := range outcome.PlayersUpdated {
			updated[id] = struct{}{}
		}
	}
	summary.PlayersUpdated = len(updated)

	s.logger.InfoContext(ctx, "Group recalculated",
		slog.String("group_id", string(groupID)),
		slog.Int("players_reset", summary.PlayersReset),
		slog.Int("games_processed", summary.GamesProcessed),
		slog.Int("games_skipped", summary.GamesSkipped),
		slog.Int("players_updated", summary.PlayersUpdated),
	)
	return summary, nil
}
