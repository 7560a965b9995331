package statsservice

import (
	"context"
	"errors"
	"log/slog"

	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	statsdb "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/infrastructure/repositories"
	"github.com/uptrace/bun"
)

// ReverseResult subtracts the countable part of a previously applied result. When a
// newer completed result exists the streaks and ratings of the group are stale, so
// a recalculation is scheduled.
func (s *StatsService) ReverseResult(ctx context.Context, groupID statsdomain.GroupID, previous statsdomain.GameResult) (ReverseOutcome, error) {
	return withTelemetry(s, ctx, "ReverseResult", groupID, func(ctx context.Context) (ReverseOutcome, error) {
		return withGroupWriteLock(s, ctx, groupID, func(ctx context.Context, db bun.IDB) (ReverseOutcome, error) {
			return s.reverseResult(ctx, db, groupID, previous), nil
		})
	})
}

// reverseResult undoes only the version that was applied, against the players
// recorded in its applied marker.
func (s *StatsService) reverseResult(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, previous statsdomain.GameResult) ReverseOutcome {
	outcome := ReverseOutcome{ResultID: previous.ID}

	if reason := previous.Applicability(); reason != statsdomain.SkipNone {
		outcome.Skipped = reason
		s.recordSkip(ctx, groupID, previous.ID, reason)
		return outcome
	}

	applied, err := s.repo.DeleteAppliedResult(ctx, s.conn(db), groupID, previous.ID, statsdomain.ComputeProcessingHash(previous))
	switch {
	case errors.Is(err, statsdb.ErrNotFound):
		outcome.Skipped = statsdomain.SkipNotApplied
		s.recordSkip(ctx, groupID, previous.ID, outcome.Skipped)
		return outcome
	case err != nil:
		outcome.Failures = append(outcome.Failures, EntityFailure{Entity: "applied_result", Key: string(previous.ID), Error: err.Error()})
		s.metrics.RecordEntityFailure(ctx, "applied_result")
		outcome.RecalculationScheduled = s.scheduleRecalculation(ctx, groupID, "applied_marker_failed")
		return outcome
	}

	resolved := statsdomain.ResolvedResult{Result: previous}
	resolved.TeamA, resolved.TeamB = applied.Teams()

	fail := func(entity, key string, err error) {
		s.logger.ErrorContext(ctx, "Aggregate reverse failed",
			slog.String("group_id", string(groupID)),
			slog.String("result_id", string(previous.ID)),
			slog.String("entity", entity),
			slog.String("key", key),
			slog.Any("error", err),
		)
		s.metrics.RecordEntityFailure(ctx, entity)
		outcome.Failures = append(outcome.Failures, EntityFailure{Entity: entity, Key: key, Error: err.Error()})
	}

	outA, outB := previous.Outcomes()
	sides := []struct {
		players []statsdomain.PlayerID
		outcome statsdomain.Outcome
	}{
		{resolved.TeamA, outA},
		{resolved.TeamB, outB},
	}
	for _, side := range sides {
		for _, id := range side.players {
			if err := s.reversePlayer(ctx, db, groupID, id, side.outcome); err != nil {
				fail("player", string(id), err)
				continue
			}
			outcome.PlayersReversed = append(outcome.PlayersReversed, id)
		}
	}

	if previous.Format() == statsdomain.FormatDoubles {
		keyA, keyB := resolved.PartnershipKeys()
		for _, p := range []struct {
			key     statsdomain.PartnershipKey
			outcome statsdomain.Outcome
		}{{keyA, outA}, {keyB, outB}} {
			found, err := s.reversePartnership(ctx, db, groupID, p.key, p.outcome)
			if err != nil {
				fail("partnership", string(p.key), err)
				continue
			}
			if found {
				outcome.PartnershipsReversed = append(outcome.PartnershipsReversed, p.key)
			}
		}

		key, swapped := statsdomain.NewMatchupKey(keyA, keyB)
		side1Won := statsdomain.Side1Won(outA.Won, swapped)
		err := s.withKeyLock(ctx, db, groupID, matchupLockKey(key), func(ctx context.Context, tx bun.IDB) error {
			return s.repo.DecrementMatchup(ctx, tx, groupID, key, side1Won)
		})
		switch {
		case err == nil:
			outcome.MatchupReversed = true
		case errors.Is(err, statsdb.ErrNoRowsAffected):
			// The pair never reached the ledger; nothing to undo.
		default:
			fail("matchup", key.String(), err)
		}
	}

	newer, err := s.repo.CountCompletedResultsAfter(ctx, s.conn(db), groupID, previous.CreatedAt, previous.ID)
	if err != nil {
		fail("result_log", string(previous.ID), err)
	} else {
		outcome.Historical = newer > 0
	}

	switch {
	case len(outcome.Failures) > 0:
		outcome.RecalculationScheduled = s.scheduleRecalculation(ctx, groupID, "reverse_partial_failure")
	case outcome.Historical:
		outcome.RecalculationScheduled = s.scheduleRecalculation(ctx, groupID, "historical_reverse")
	}
	return outcome
}

func (s *StatsService) reversePlayer(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, id statsdomain.PlayerID, o statsdomain.Outcome) error {
	return s.withKeyLock(ctx, db, groupID, playerLockKey(id), func(ctx context.Context, tx bun.IDB) error {
		player, err := s.repo.GetGroupPlayerForUpdate(ctx, tx, groupID, id)
		if err != nil {
			return err
		}
		player.SetAggregate(player.Aggregate().Reverse(o))
		return s.repo.UpdatePlayerAggregate(ctx, tx, player)
	})
}

func (s *StatsService) reversePartnership(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key statsdomain.PartnershipKey, o statsdomain.Outcome) (found bool, err error) {
	err = s.withKeyLock(ctx, db, groupID, partnershipLockKey(key), func(ctx context.Context, tx bun.IDB) error {
		p, err := s.repo.GetPartnershipForUpdate(ctx, tx, groupID, key)
		if err != nil || p == nil {
			return err
		}
		found = true
		p.SetAggregate(p.Aggregate().Reverse(o))
		return s.repo.UpsertPartnership(ctx, tx, p)
	})
	return found, err
}
