package statsservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	statsdb "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/infrastructure/repositories"
	"github.com/uptrace/bun"
)

// ApplyResult folds one result into the aggregates of the group.
func (s *StatsService) ApplyResult(ctx context.Context, groupID statsdomain.GroupID, result statsdomain.GameResult) (ApplyOutcome, error) {
	return withTelemetry(s, ctx, "ApplyResult", groupID, func(ctx context.Context) (ApplyOutcome, error) {
		return withGroupWriteLock(s, ctx, groupID, func(ctx context.Context, db bun.IDB) (ApplyOutcome, error) {
			return s.applyResult(ctx, db, groupID, result, false)
		})
	})
}

// applyResult is shared by live updates and replay. In replay mode the first store
// failure aborts with an error; in live mode failures are collected and a
// recalculation is scheduled.
//
// Each applied result is claimed with an applied marker before any aggregate write.
// A second apply of the same version is skipped, and reverse reads the marker.
func (s *StatsService) applyResult(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, result statsdomain.GameResult, replay bool) (ApplyOutcome, error) {
	outcome := ApplyOutcome{ResultID: result.ID}
	if !replay {
		defer func() {
			if r := recover(); r != nil {
				// The marker may already be written; only a rebuild can repair the rest.
				s.scheduleRecalculation(ctx, groupID, "apply_panic")
				panic(r)
			}
		}()
	}

	resolved, reason, err := s.resolveResult(ctx, db, groupID, result)
	if err != nil {
		if replay {
			return outcome, err
		}
		outcome.Failures = append(outcome.Failures, EntityFailure{Entity: "identity", Key: string(result.ID), Error: err.Error()})
		s.metrics.RecordEntityFailure(ctx, "identity")
		outcome.RecalculationScheduled = s.scheduleRecalculation(ctx, groupID, "identity_resolution_failed")
		return outcome, nil
	}
	if reason != statsdomain.SkipNone {
		outcome.Skipped = reason
		s.recordSkip(ctx, groupID, result.ID, reason)
		return outcome, nil
	}

	snap, reason, err := s.snapshot(ctx, db, groupID, resolved)
	if err != nil {
		if replay {
			return outcome, err
		}
		outcome.Failures = append(outcome.Failures, EntityFailure{Entity: "snapshot", Key: string(result.ID), Error: err.Error()})
		s.metrics.RecordEntityFailure(ctx, "snapshot")
		outcome.RecalculationScheduled = s.scheduleRecalculation(ctx, groupID, "snapshot_failed")
		return outcome, nil
	}
	if reason != statsdomain.SkipNone {
		outcome.Skipped = reason
		s.recordSkip(ctx, groupID, result.ID, reason)
		return outcome, nil
	}

	claimed, err := s.repo.InsertAppliedResult(ctx, s.conn(db), statsdb.NewAppliedResult(groupID, resolved))
	if err != nil {
		if replay {
			return outcome, fmt.Errorf("applied marker: %w", err)
		}
		outcome.Failures = append(outcome.Failures, EntityFailure{Entity: "applied_result", Key: string(result.ID), Error: err.Error()})
		s.metrics.RecordEntityFailure(ctx, "applied_result")
		outcome.RecalculationScheduled = s.scheduleRecalculation(ctx, groupID, "applied_marker_failed")
		return outcome, nil
	}
	if !claimed {
		outcome.Skipped = statsdomain.SkipAlreadyApplied
		s.recordSkip(ctx, groupID, result.ID, outcome.Skipped)
		return outcome, nil
	}

	plan := statsdomain.BuildPlan(resolved, snap)
	at := result.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	fail := func(entity, key string, err error) error {
		s.logger.ErrorContext(ctx, "Aggregate write failed",
			slog.String("group_id", string(groupID)),
			slog.String("result_id", string(result.ID)),
			slog.String("entity", entity),
			slog.String("key", key),
			slog.Any("error", err),
		)
		s.metrics.RecordEntityFailure(ctx, entity)
		outcome.Failures = append(outcome.Failures, EntityFailure{Entity: entity, Key: key, Error: err.Error()})
		if replay {
			return fmt.Errorf("%s %s: %w", entity, key, err)
		}
		return nil
	}

	var history []statsdb.RatingHistory
	for _, u := range plan.Players {
		before, after, err := s.applyPlayer(ctx, db, groupID, u)
		if err != nil {
			if ferr := fail("player", string(u.PlayerID), err); ferr != nil {
				return outcome, ferr
			}
			continue
		}
		outcome.PlayersUpdated = append(outcome.PlayersUpdated, u.PlayerID)
		history = append(history, statsdb.RatingHistory{
			GroupID:      groupID,
			PlayerID:     u.PlayerID,
			ResultID:     result.ID,
			RatingBefore: before,
			RatingAfter:  after,
			CreatedAt:    at,
		})
	}

	for _, u := range plan.Partnerships {
		if err := s.applyPartnership(ctx, db, groupID, u); err != nil {
			if ferr := fail("partnership", string(u.Key), err); ferr != nil {
				return outcome, ferr
			}
			continue
		}
		outcome.PartnershipsUpdated = append(outcome.PartnershipsUpdated, u.Key)
	}

	if plan.Matchup != nil {
		m := plan.Matchup
		err := s.withKeyLock(ctx, db, groupID, matchupLockKey(m.Key), func(ctx context.Context, tx bun.IDB) error {
			return s.repo.IncrementMatchup(ctx, tx, groupID, m.Key, m.Side1Won)
		})
		if err != nil {
			if ferr := fail("matchup", m.Key.String(), err); ferr != nil {
				return outcome, ferr
			}
		} else {
			outcome.MatchupUpdated = true
		}
	}

	if err := s.repo.InsertRatingHistory(ctx, s.conn(db), history); err != nil {
		if ferr := fail("rating_history", string(result.ID), err); ferr != nil {
			return outcome, ferr
		}
	}

	if len(outcome.Failures) > 0 && !replay {
		outcome.RecalculationScheduled = s.scheduleRecalculation(ctx, groupID, "apply_partial_failure")
	}

	s.logger.DebugContext(ctx, "Result applied",
		slog.String("group_id", string(groupID)),
		slog.String("result_id", string(result.ID)),
		slog.Int("players_updated", len(outcome.PlayersUpdated)),
		slog.Int("failures", len(outcome.Failures)),
	)
	return outcome, nil
}

func (s *StatsService) applyPlayer(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, u statsdomain.PlayerUpdate) (before, after int, err error) {
	err = s.withKeyLock(ctx, db, groupID, playerLockKey(u.PlayerID), func(ctx context.Context, tx bun.IDB) error {
		player, err := s.repo.GetGroupPlayerForUpdate(ctx, tx, groupID, u.PlayerID)
		if err != nil {
			return err
		}
		before = player.Rating
		player.SetAggregate(player.Aggregate().Apply(u.Outcome, u.Rate(player.Rating)))
		after = player.Rating
		return s.repo.UpdatePlayerAggregate(ctx, tx, player)
	})
	return before, after, err
}

func (s *StatsService) applyPartnership(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, u statsdomain.PartnershipUpdate) error {
	return s.withKeyLock(ctx, db, groupID, partnershipLockKey(u.Key), func(ctx context.Context, tx bun.IDB) error {
		p, err := s.repo.GetPartnershipForUpdate(ctx, tx, groupID, u.Key)
		if err != nil {
			return err
		}
		if p == nil {
			p1, p2 := u.Key.Players()
			p = &statsdb.Partnership{GroupID: groupID, Key: u.Key, Player1ID: p1, Player2ID: p2}
			p.SetAggregate(statsdomain.DefaultAggregate())
		}
		p.SetAggregate(p.Aggregate().Apply(u.Outcome, u.Rate(p.Rating)))
		return s.repo.UpsertPartnership(ctx, tx, p)
	})
}

// resolveResult checks applicability and maps both rosters to group players.
// Any unresolved member makes the whole result invisible to aggregates.
func (s *StatsService) resolveResult(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, result statsdomain.GameResult) (statsdomain.ResolvedResult, statsdomain.SkipReason, error) {
	resolved := statsdomain.ResolvedResult{Result: result}
	if reason := result.Applicability(); reason != statsdomain.SkipNone {
		return resolved, reason, nil
	}

	resolveTeam := func(refs []statsdomain.SessionPlayerID) ([]statsdomain.PlayerID, bool, error) {
		ids := make([]statsdomain.PlayerID, 0, len(refs))
		allResolved := true
		for _, ref := range refs {
			id, ok, err := s.resolver.Resolve(ctx, s.conn(db), groupID, ref)
			if err != nil {
				return nil, false, fmt.Errorf("resolve %s: %w", ref, err)
			}
			if !ok {
				// Keep going so every resolvable member still gets its link persisted.
				allResolved = false
				s.logger.InfoContext(ctx, "Roster member has no linkable identity",
					slog.String("group_id", string(groupID)),
					slog.String("result_id", string(result.ID)),
					slog.String("session_player_id", string(ref)),
				)
				continue
			}
			ids = append(ids, id)
		}
		return ids, allResolved, nil
	}

	teamA, okA, err := resolveTeam(result.TeamA)
	if err != nil {
		return resolved, statsdomain.SkipNone, err
	}
	teamB, okB, err := resolveTeam(result.TeamB)
	if err != nil {
		return resolved, statsdomain.SkipNone, err
	}
	if !okA || !okB {
		return resolved, statsdomain.SkipUnresolvedIdentity, nil
	}

	resolved.TeamA, resolved.TeamB = teamA, teamB
	if resolved.HasDuplicatePlayer() {
		return resolved, statsdomain.SkipDuplicatePlayer, nil
	}
	return resolved, statsdomain.SkipNone, nil
}

// snapshot reads every participant's rating before any write of the result.
func (s *StatsService) snapshot(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, r statsdomain.ResolvedResult) (statsdomain.Snapshot, statsdomain.SkipReason, error) {
	snap := statsdomain.Snapshot{
		Players:      make(map[statsdomain.PlayerID]int, len(r.TeamA)+len(r.TeamB)),
		Partnerships: map[statsdomain.PartnershipKey]int{},
	}
	for _, id := range append(append([]statsdomain.PlayerID{}, r.TeamA...), r.TeamB...) {
		player, err := s.repo.GetGroupPlayer(ctx, s.conn(db), groupID, id)
		if err != nil {
			if errors.Is(err, statsdb.ErrNotFound) {
				// Linked to a player outside this group.
				return snap, statsdomain.SkipUnresolvedIdentity, nil
			}
			return snap, statsdomain.SkipNone, err
		}
		snap.Players[id] = player.Rating
	}

	if r.Result.Format() == statsdomain.FormatDoubles {
		keyA, keyB := r.PartnershipKeys()
		for _, key := range []statsdomain.PartnershipKey{keyA, keyB} {
			p, err := s.repo.GetPartnership(ctx, s.conn(db), groupID, key)
			if err != nil {
				return snap, statsdomain.SkipNone, err
			}
			if p != nil {
				snap.Partnerships[key] = p.Rating
			}
		}
	}
	return snap, statsdomain.SkipNone, nil
}

func (s *StatsService) recordSkip(ctx context.Context, groupID statsdomain.GroupID, resultID statsdomain.ResultID, reason statsdomain.SkipReason) {
	s.metrics.RecordResultSkipped(ctx, string(reason))
	s.logger.InfoContext(ctx, "Result skipped for aggregates",
		slog.String("group_id", string(groupID)),
		slog.String("result_id", string(resultID)),
		slog.String("reason", string(reason)),
	)
}
