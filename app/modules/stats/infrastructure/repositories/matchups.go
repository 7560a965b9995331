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

func (r *Impl) GetMatchup(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key statsdomain.MatchupKey) (*Matchup, error) {
	m := new(Matchup)
	err := r.conn(db).NewSelect().
		Model(m).
		Where("mu.group_id = ?", groupID).
		Where("mu.side1_key = ?", key.Side1).
		Where("mu.side2_key = ?", key.Side2).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("statsdb.GetMatchup: %w", err)
	}
	return m, nil
}

// IncrementMatchup adds one result to the ledger in a single statement.
func (r *Impl) IncrementMatchup(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key statsdomain.MatchupKey, side1Won bool) error {
	m := &Matchup{
		GroupID:    groupID,
		Side1Key:   key.Side1,
		Side2Key:   key.Side2,
		TotalGames: 1,
		UpdatedAt:  time.Now().UTC(),
	}
	if side1Won {
		m.Side1Wins = 1
	} else {
		m.Side2Wins = 1
	}
	_, err := r.conn(db).NewInsert().
		Model(m).
		On("CONFLICT (group_id, side1_key, side2_key) DO UPDATE").
		Set("side1_wins = mu.side1_wins + EXCLUDED.side1_wins").
		Set("side2_wins = mu.side2_wins + EXCLUDED.side2_wins").
		Set("total_games = mu.total_games + 1").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("statsdb.IncrementMatchup: %w", err)
	}
	return nil
}

// DecrementMatchup removes one result, never going below zero.
func (r *Impl) DecrementMatchup(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key statsdomain.MatchupKey, side1Won bool) error {
	column := "side2_wins"
	if side1Won {
		column = "side1_wins"
	}
	res, err := r.conn(db).NewUpdate().
		Model((*Matchup)(nil)).
		Set("? = GREATEST(? - 1, 0)", bun.Ident(column), bun.Ident(column)).
		Set("total_games = GREATEST(total_games - 1, 0)").
		Set("updated_at = ?", time.Now().UTC()).
		Where("group_id = ?", groupID).
		Where("side1_key = ?", key.Side1).
		Where("side2_key = ?", key.Side2).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("statsdb.DecrementMatchup: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

func (r *Impl) DeleteGroupMatchups(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) (int, error) {
	res, err := r.conn(db).NewDelete().
		Model((*Matchup)(nil)).
		Where("group_id = ?", groupID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("statsdb.DeleteGroupMatchups: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
