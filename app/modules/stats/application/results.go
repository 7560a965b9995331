package statsservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	statsdb "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/infrastructure/repositories"
	"github.com/uptrace/bun"
)

// The result log write is the primary operation of these methods. Aggregate updates
// that follow are best-effort and never turn a successful write into an error.

// RecordResult appends a result to the log and applies it.
func (s *StatsService) RecordResult(ctx context.Context, groupID statsdomain.GroupID, result statsdomain.GameResult) (statsdomain.GameResult, ApplyOutcome, error) {
	type recorded struct {
		result  statsdomain.GameResult
		outcome ApplyOutcome
	}
	out, err := withTelemetry(s, ctx, "RecordResult", groupID, func(ctx context.Context) (recorded, error) {
		return withGroupWriteLock(s, ctx, groupID, func(ctx context.Context, db bun.IDB) (recorded, error) {
			if err := s.checkSessionGroup(ctx, db, groupID, result.SessionID); err != nil {
				return recorded{}, err
			}

			game := statsdb.GameFromDomain(result)
			if err := s.repo.InsertResult(ctx, db, game); err != nil {
				return recorded{}, err
			}
			stored := game.ToDomain()
			stored.GroupID = groupID

			outcome, err := s.applyResult(ctx, db, groupID, stored, false)
			if err != nil {
				s.logger.ErrorContext(ctx, "Apply after record failed",
					slog.String("group_id", string(groupID)),
					slog.String("result_id", string(stored.ID)),
					slog.Any("error", err),
				)
			}
			return recorded{result: stored, outcome: outcome}, nil
		})
	})
	return out.result, out.outcome, err
}

// ReplaceResult rewrites a result, then reverses the old version and applies the new one.
func (s *StatsService) ReplaceResult(ctx context.Context, groupID statsdomain.GroupID, updated statsdomain.GameResult) (ReplaceOutcome, error) {
	return withTelemetry(s, ctx, "ReplaceResult", groupID, func(ctx context.Context) (ReplaceOutcome, error) {
		return withGroupWriteLock(s, ctx, groupID, func(ctx context.Context, db bun.IDB) (ReplaceOutcome, error) {
			existing, err := s.loadResult(ctx, db, groupID, updated.ID)
			if err != nil {
				return ReplaceOutcome{}, err
			}

			updated.GroupID = groupID
			updated.SessionID = existing.SessionID
			updated.CreatedAt = existing.CreatedAt
			if err := s.repo.UpdateResult(ctx, db, statsdb.GameFromDomain(updated)); err != nil {
				if errors.Is(err, statsdb.ErrNotFound) {
					return ReplaceOutcome{}, ErrResultNotFound
				}
				return ReplaceOutcome{}, err
			}

			var out ReplaceOutcome
			out.Reverse = s.reverseResult(ctx, db, groupID, existing)
			out.Apply, err = s.applyResult(ctx, db, groupID, updated, false)
			if err != nil {
				s.logger.ErrorContext(ctx, "Apply after replace failed",
					slog.String("group_id", string(groupID)),
					slog.String("result_id", string(updated.ID)),
					slog.Any("error", err),
				)
			}
			return out, nil
		})
	})
}

// DeleteResult removes a result from the log and reverses its contribution.
func (s *StatsService) DeleteResult(ctx context.Context, groupID statsdomain.GroupID, resultID statsdomain.ResultID) (ReverseOutcome, error) {
	return withTelemetry(s, ctx, "DeleteResult", groupID, func(ctx context.Context) (ReverseOutcome, error) {
		return withGroupWriteLock(s, ctx, groupID, func(ctx context.Context, db bun.IDB) (ReverseOutcome, error) {
			existing, err := s.loadResult(ctx, db, groupID, resultID)
			if err != nil {
				return ReverseOutcome{}, err
			}
			if err := s.repo.DeleteResult(ctx, db, resultID); err != nil {
				if errors.Is(err, statsdb.ErrNotFound) {
					return ReverseOutcome{}, ErrResultNotFound
				}
				return ReverseOutcome{}, err
			}
			return s.reverseResult(ctx, db, groupID, existing), nil
		})
	})
}

// checkSessionGroup rejects results whose session belongs to another group.
func (s *StatsService) checkSessionGroup(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, sessionID statsdomain.SessionID) error {
	session, err := s.repo.GetSession(ctx, db, sessionID)
	if err != nil {
		if errors.Is(err, statsdb.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return err
	}
	if session.GroupID != groupID {
		return fmt.Errorf("%w: session %s", ErrGroupMismatch, sessionID)
	}
	return nil
}

func (s *StatsService) loadResult(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, id statsdomain.ResultID) (statsdomain.GameResult, error) {
	game, err := s.repo.GetResult(ctx, db, id)
	if err != nil {
		if errors.Is(err, statsdb.ErrNotFound) {
			return statsdomain.GameResult{}, ErrResultNotFound
		}
		return statsdomain.GameResult{}, err
	}
	if game.GroupID != groupID {
		return statsdomain.GameResult{}, fmt.Errorf("%w: %s", ErrGroupMismatch, id)
	}
	return game.ToDomain(), nil
}
