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

var aggregateColumns = []string{
	"rating", "wins", "losses", "total_games",
	"current_streak", "best_win_streak", "points_for", "points_against",
}

func (r *Impl) selectGroupPlayer(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, playerID statsdomain.PlayerID, lock bool) (*GroupPlayer, error) {
	player := new(GroupPlayer)
	q := r.conn(db).NewSelect().
		Model(player).
		Where("gp.group_id = ?", groupID).
		Where("gp.id = ?", playerID)
	if lock {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return player, nil
}

// GetGroupPlayer returns ErrNotFound when the player is not part of the group.
func (r *Impl) GetGroupPlayer(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, playerID statsdomain.PlayerID) (*GroupPlayer, error) {
	player, err := r.selectGroupPlayer(ctx, db, groupID, playerID, false)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("statsdb.GetGroupPlayer: %w", err)
	}
	return player, err
}

func (r *Impl) GetGroupPlayerForUpdate(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, playerID statsdomain.PlayerID) (*GroupPlayer, error) {
	player, err := r.selectGroupPlayer(ctx, db, groupID, playerID, true)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("statsdb.GetGroupPlayerForUpdate: %w", err)
	}
	return player, err
}

// UpdatePlayerAggregate writes the aggregate columns of one player.
func (r *Impl) UpdatePlayerAggregate(ctx context.Context, db bun.IDB, player *GroupPlayer) error {
	res, err := r.conn(db).NewUpdate().
		Model(player).
		Column(aggregateColumns...).
		Column("updated_at").
		Where("gp.group_id = ?", player.GroupID).
		Where("gp.id = ?", player.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("statsdb.UpdatePlayerAggregate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// ResetGroupPlayers puts every player of the group back to defaults and returns
// how many rows were reset.
func (r *Impl) ResetGroupPlayers(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) (int, error) {
	res, err := r.conn(db).NewUpdate().
		Model((*GroupPlayer)(nil)).
		Set("rating = ?", statsdomain.DefaultRating).
		Set("wins = 0, losses = 0, total_games = 0").
		Set("current_streak = 0, best_win_streak = 0").
		Set("points_for = 0, points_against = 0").
		Set("updated_at = ?", time.Now().UTC()).
		Where("group_id = ?", groupID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("statsdb.ResetGroupPlayers: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ListLeaderboard orders players by rating, then wins, then name.
func (r *Impl) ListLeaderboard(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) ([]GroupPlayer, error) {
	var players []GroupPlayer
	err := r.conn(db).NewSelect().
		Model(&players).
		Where("gp.group_id = ?", groupID).
		Order("gp.rating DESC", "gp.wins DESC", "gp.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("statsdb.ListLeaderboard: %w", err)
	}
	return players, nil
}

func (r *Impl) selectPartnership(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key statsdomain.PartnershipKey, lock bool) (*Partnership, error) {
	p := new(Partnership)
	q := r.conn(db).NewSelect().
		Model(p).
		Where("pt.group_id = ?", groupID).
		Where("pt.partnership_key = ?", key)
	if lock {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *Impl) GetPartnership(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key statsdomain.PartnershipKey) (*Partnership, error) {
	p, err := r.selectPartnership(ctx, db, groupID, key, false)
	if err != nil {
		return nil, fmt.Errorf("statsdb.GetPartnership: %w", err)
	}
	return p, nil
}

func (r *Impl) GetPartnershipForUpdate(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key statsdomain.PartnershipKey) (*Partnership, error) {
	p, err := r.selectPartnership(ctx, db, groupID, key, true)
	if err != nil {
		return nil, fmt.Errorf("statsdb.GetPartnershipForUpdate: %w", err)
	}
	return p, nil
}

// UpsertPartnership creates the pair on first use and overwrites its aggregates after.
func (r *Impl) UpsertPartnership(ctx context.Context, db bun.IDB, p *Partnership) error {
	p.UpdatedAt = time.Now().UTC()
	q := r.conn(db).NewInsert().
		Model(p).
		On("CONFLICT (group_id, partnership_key) DO UPDATE")
	for _, col := range aggregateColumns {
		q = q.Set(col + " = EXCLUDED." + col)
	}
	if _, err := q.Set("updated_at = EXCLUDED.updated_at").Exec(ctx); err != nil {
		return fmt.Errorf("statsdb.UpsertPartnership: %w", err)
	}
	return nil
}

func (r *Impl) ResetGroupPartnerships(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) (int, error) {
	res, err := r.conn(db).NewUpdate().
		Model((*Partnership)(nil)).
		Set("rating = ?", statsdomain.DefaultRating).
		Set("wins = 0, losses = 0, total_games = 0").
		Set("current_streak = 0, best_win_streak = 0").
		Set("points_for = 0, points_against = 0").
		Set("updated_at = ?", time.Now().UTC()).
		Where("group_id = ?", groupID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("statsdb.ResetGroupPartnerships: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *Impl) ListPartnerships(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) ([]Partnership, error) {
	var out []Partnership
	err := r.conn(db).NewSelect().
		Model(&out).
		Where("pt.group_id = ?", groupID).
		Order("pt.rating DESC", "pt.partnership_key ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("statsdb.ListPartnerships: %w", err)
	}
	return out, nil
}
