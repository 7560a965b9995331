package statsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	"github.com/uptrace/bun"
)

func (r *Impl) selectGames(db bun.IDB) *bun.SelectQuery {
	return r.conn(db).NewSelect().
		Model((*Game)(nil)).
		ColumnExpr("g.*").
		ColumnExpr("s.group_id").
		Join("JOIN sessions AS s ON s.id = g.session_id")
}

// GetResult returns ErrNotFound when the result is not in the log.
func (r *Impl) GetResult(ctx context.Context, db bun.IDB, id statsdomain.ResultID) (*Game, error) {
	game := new(Game)
	err := r.selectGames(db).
		Where("g.id = ?", id).
		Scan(ctx, game)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("statsdb.GetResult: %w", err)
	}
	return game, nil
}

// ListCompletedResults orders by creation time with the id as tie-break so replay
// order is stable.
func (r *Impl) ListCompletedResults(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) ([]Game, error) {
	var games []Game
	err := r.selectGames(db).
		Where("s.group_id = ?", groupID).
		Where("g.winning_team IN (?)", bun.In([]statsdomain.Team{statsdomain.TeamA, statsdomain.TeamB})).
		Order("g.created_at ASC", "g.id ASC").
		Scan(ctx, &games)
	if err != nil {
		return nil, fmt.Errorf("statsdb.ListCompletedResults: %w", err)
	}
	return games, nil
}

func (r *Impl) CountCompletedResultsAfter(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, createdAt time.Time, excludeID statsdomain.ResultID) (int, error) {
	count, err := r.conn(db).NewSelect().
		Model((*Game)(nil)).
		Join("JOIN sessions AS s ON s.id = g.session_id").
		Where("s.group_id = ?", groupID).
		Where("g.winning_team IN (?)", bun.In([]statsdomain.Team{statsdomain.TeamA, statsdomain.TeamB})).
		Where("g.id <> ?", excludeID).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("g.created_at > ?", createdAt).
				WhereOr("g.created_at = ? AND g.id > ?", createdAt, excludeID)
		}).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("statsdb.CountCompletedResultsAfter: %w", err)
	}
	return count, nil
}

func (r *Impl) ListGroupsWithResults(ctx context.Context, db bun.IDB) ([]statsdomain.GroupID, error) {
	var groups []statsdomain.GroupID
	err := r.conn(db).NewSelect().
		Model((*Session)(nil)).
		ColumnExpr("DISTINCT s.group_id").
		Where("EXISTS (SELECT 1 FROM games AS g WHERE g.session_id = s.id)").
		Order("s.group_id ASC").
		Scan(ctx, &groups)
	if err != nil {
		return nil, fmt.Errorf("statsdb.ListGroupsWithResults: %w", err)
	}
	return groups, nil
}

func (r *Impl) InsertResult(ctx context.Context, db bun.IDB, game *Game) error {
	if _, err := r.conn(db).NewInsert().Model(game).Exec(ctx); err != nil {
		return fmt.Errorf("statsdb.InsertResult: %w", err)
	}
	return nil
}

// UpdateResult rewrites winner, rosters and scores. The creation time is kept so
// the result keeps its place in replay order.
func (r *Impl) UpdateResult(ctx context.Context, db bun.IDB, game *Game) error {
	res, err := r.conn(db).NewUpdate().
		Model(game).
		Column("team_a", "team_b", "winning_team", "team_a_score", "team_b_score").
		Where("g.id = ?", game.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("statsdb.UpdateResult: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Impl) DeleteResult(ctx context.Context, db bun.IDB, id statsdomain.ResultID) error {
	res, err := r.conn(db).NewDelete().
		Model((*Game)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("statsdb.DeleteResult: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
