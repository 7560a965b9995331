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

// Resolver maps a session-scoped roster entry to a durable group player.
// ok is false when the entry cannot be resolved; that is not an error.
type Resolver interface {
	Resolve(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, ref statsdomain.SessionPlayerID) (id statsdomain.PlayerID, ok bool, err error)
}

// LinkOnlyResolver trusts stored links and nothing else.
type LinkOnlyResolver struct {
	repo statsdb.IdentityRepository
}

func NewLinkOnlyResolver(repo statsdb.IdentityRepository) *LinkOnlyResolver {
	return &LinkOnlyResolver{repo: repo}
}

func (r *LinkOnlyResolver) Resolve(ctx context.Context, db bun.IDB, _ statsdomain.GroupID, ref statsdomain.SessionPlayerID) (statsdomain.PlayerID, bool, error) {
	sp, err := r.repo.GetSessionPlayer(ctx, db, ref)
	if err != nil {
		if errors.Is(err, statsdb.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if sp.GroupPlayerID == "" {
		return "", false, nil
	}
	return sp.GroupPlayerID, true, nil
}

// NameMatchResolver uses the stored link first, then a case-insensitive trimmed
// name match against the group's players. A name match is persisted as a link.
type NameMatchResolver struct {
	repo   statsdb.IdentityRepository
	logger *slog.Logger
}

func NewNameMatchResolver(repo statsdb.IdentityRepository, logger *slog.Logger) *NameMatchResolver {
	return &NameMatchResolver{repo: repo, logger: logger}
}

func (r *NameMatchResolver) Resolve(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, ref statsdomain.SessionPlayerID) (statsdomain.PlayerID, bool, error) {
	sp, err := r.repo.GetSessionPlayer(ctx, db, ref)
	if err != nil {
		if errors.Is(err, statsdb.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if sp.GroupPlayerID != "" {
		return sp.GroupPlayerID, true, nil
	}

	players, err := r.repo.ListGroupPlayers(ctx, db, groupID)
	if err != nil {
		return "", false, err
	}

	var match *statsdb.GroupPlayer
	for i := range players {
		if !statsdomain.NamesMatch(players[i].Name, sp.Name) {
			continue
		}
		if match != nil {
			// Two players share the name; linking either would be a guess.
			r.logger.WarnContext(ctx, "Ambiguous name match, leaving session player unlinked",
				slog.String("group_id", string(groupID)),
				slog.String("session_player_id", string(ref)),
				slog.String("name", sp.Name),
			)
			return "", false, nil
		}
		match = &players[i]
	}
	if match == nil {
		return "", false, nil
	}

	if err := r.repo.LinkSessionPlayer(ctx, db, ref, match.ID); err != nil && !errors.Is(err, statsdb.ErrNoRowsAffected) {
		return "", false, fmt.Errorf("persist link for %s: %w", ref, err)
	}
	r.logger.InfoContext(ctx, "Auto-linked session player by name",
		slog.String("group_id", string(groupID)),
		slog.String("session_player_id", string(ref)),
		slog.String("player_id", string(match.ID)),
	)
	return match.ID, true, nil
}
