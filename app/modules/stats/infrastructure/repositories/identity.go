package statsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	"github.com/uptrace/bun"
)

// GetSessionPlayer returns ErrNotFound when the mapping does not exist.
func (r *Impl) GetSessionPlayer(ctx context.Context, db bun.IDB, id statsdomain.SessionPlayerID) (*SessionPlayer, error) {
	sp := new(SessionPlayer)
	err := r.conn(db).NewSelect().
		Model(sp).
		Where("sp.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("statsdb.GetSessionPlayer: %w", err)
	}
	return sp, nil
}

func (r *Impl) ListGroupPlayers(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) ([]GroupPlayer, error) {
	var players []GroupPlayer
	err := r.conn(db).NewSelect().
		Model(&players).
		Where("gp.group_id = ?", groupID).
		Order("gp.created_at ASC", "gp.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("statsdb.ListGroupPlayers: %w", err)
	}
	return players, nil
}

// LinkSessionPlayer stores the resolved group player on a session mapping.
// An existing link is never overwritten.
func (r *Impl) LinkSessionPlayer(ctx context.Context, db bun.IDB, id statsdomain.SessionPlayerID, playerID statsdomain.PlayerID) error {
	res, err := r.conn(db).NewUpdate().
		Model((*SessionPlayer)(nil)).
		Set("group_player_id = ?", playerID).
		Where("id = ?", id).
		Where("group_player_id IS NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("statsdb.LinkSessionPlayer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// GetSession returns ErrNotFound when the session does not exist.
func (r *Impl) GetSession(ctx context.Context, db bun.IDB, id statsdomain.SessionID) (*Session, error) {
	session := new(Session)
	err := r.conn(db).NewSelect().
		Model(session).
		Where("s.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("statsdb.GetSession: %w", err)
	}
	return session, nil
}
