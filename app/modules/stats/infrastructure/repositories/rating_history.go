package statsdb

import (
	"context"
	"fmt"
	"time"

	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	"github.com/uptrace/bun"
)

func (r *Impl) InsertRatingHistory(ctx context.Context, db bun.IDB, entries []RatingHistory) error {
	if len(entries) == 0 {
		return nil
	}
	if _, err := r.conn(db).NewInsert().Model(&entries).Exec(ctx); err != nil {
		return fmt.Errorf("statsdb.InsertRatingHistory: %w", err)
	}
	return nil
}

// ListRatingHistory returns a player's entries oldest first. A zero since returns all.
func (r *Impl) ListRatingHistory(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, playerID statsdomain.PlayerID, since time.Time) ([]RatingHistory, error) {
	var history []RatingHistory
	q := r.conn(db).NewSelect().
		Model(&history).
		Where("rh.group_id = ?", groupID).
		Where("rh.player_id = ?", playerID)
	if !since.IsZero() {
		q = q.Where("rh.created_at >= ?", since)
	}
	if err := q.Order("rh.created_at ASC", "rh.id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("statsdb.ListRatingHistory: %w", err)
	}
	return history, nil
}

func (r *Impl) DeleteGroupRatingHistory(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) error {
	_, err := r.conn(db).NewDelete().
		Model((*RatingHistory)(nil)).
		Where("group_id = ?", groupID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("statsdb.DeleteGroupRatingHistory: %w", err)
	}
	return nil
}
