package statsservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	statsdb "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/infrastructure/repositories"
)

// GetPlayerStats returns the aggregate of one group player.
func (s *StatsService) GetPlayerStats(ctx context.Context, groupID statsdomain.GroupID, playerID statsdomain.PlayerID) (PlayerStats, error) {
	return withTelemetry(s, ctx, "GetPlayerStats", groupID, func(ctx context.Context) (PlayerStats, error) {
		player, err := s.repo.GetGroupPlayer(ctx, nil, groupID, playerID)
		if err != nil {
			if errors.Is(err, statsdb.ErrNotFound) {
				return PlayerStats{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
			}
			return PlayerStats{}, err
		}
		return playerStats(*player), nil
	})
}

// GetPartnershipStats returns the aggregate of a pair in either order. A pair that
// never played together reports the default rating and zero counts.
func (s *StatsService) GetPartnershipStats(ctx context.Context, groupID statsdomain.GroupID, a, b statsdomain.PlayerID) (PartnershipStats, error) {
	return withTelemetry(s, ctx, "GetPartnershipStats", groupID, func(ctx context.Context) (PartnershipStats, error) {
		key := statsdomain.NewPartnershipKey(a, b)
		p, err := s.repo.GetPartnership(ctx, nil, groupID, key)
		if err != nil {
			return PartnershipStats{}, err
		}
		if p == nil {
			p1, p2 := key.Players()
			p = &statsdb.Partnership{GroupID: groupID, Key: key, Player1ID: p1, Player2ID: p2}
			p.SetAggregate(statsdomain.DefaultAggregate())
		}
		return partnershipStats(*p), nil
	})
}

// GetHeadToHead returns the matchup between two teams, oriented the way the caller
// passed them.
func (s *StatsService) GetHeadToHead(ctx context.Context, groupID statsdomain.GroupID, teamA, teamB [2]statsdomain.PlayerID) (HeadToHead, error) {
	return withTelemetry(s, ctx, "GetHeadToHead", groupID, func(ctx context.Context) (HeadToHead, error) {
		keyA := statsdomain.NewPartnershipKey(teamA[0], teamA[1])
		keyB := statsdomain.NewPartnershipKey(teamB[0], teamB[1])
		h2h := HeadToHead{TeamA: keyA, TeamB: keyB}

		key, swapped := statsdomain.NewMatchupKey(keyA, keyB)
		m, err := s.repo.GetMatchup(ctx, nil, groupID, key)
		if err != nil {
			return h2h, err
		}
		if m == nil {
			return h2h, nil
		}

		h2h.TeamAWins, h2h.TeamBWins = m.Side1Wins, m.Side2Wins
		if swapped {
			h2h.TeamAWins, h2h.TeamBWins = m.Side2Wins, m.Side1Wins
		}
		h2h.TotalGames = m.TotalGames
		return h2h, nil
	})
}

// GetLeaderboard returns the group's players by rating, highest first.
func (s *StatsService) GetLeaderboard(ctx context.Context, groupID statsdomain.GroupID) ([]PlayerStats, error) {
	return withTelemetry(s, ctx, "GetLeaderboard", groupID, func(ctx context.Context) ([]PlayerStats, error) {
		players, err := s.repo.ListLeaderboard(ctx, nil, groupID)
		if err != nil {
			return nil, err
		}
		out := make([]PlayerStats, 0, len(players))
		for _, p := range players {
			out = append(out, playerStats(p))
		}
		return out, nil
	})
}

// GetRatingHistory returns a player's rating changes since the given time, oldest first.
func (s *StatsService) GetRatingHistory(ctx context.Context, groupID statsdomain.GroupID, playerID statsdomain.PlayerID, since time.Time) ([]RatingPoint, error) {
	return withTelemetry(s, ctx, "GetRatingHistory", groupID, func(ctx context.Context) ([]RatingPoint, error) {
		return s.ratingHistory(ctx, groupID, playerID, since)
	})
}

func (s *StatsService) ratingHistory(ctx context.Context, groupID statsdomain.GroupID, playerID statsdomain.PlayerID, since time.Time) ([]RatingPoint, error) {
	entries, err := s.repo.ListRatingHistory(ctx, nil, groupID, playerID, since)
	if err != nil {
		return nil, err
	}
	points := make([]RatingPoint, 0, len(entries))
	for _, e := range entries {
		points = append(points, RatingPoint{
			ResultID:     e.ResultID,
			RatingBefore: e.RatingBefore,
			RatingAfter:  e.RatingAfter,
			At:           e.CreatedAt,
		})
	}
	return points, nil
}

func playerStats(p statsdb.GroupPlayer) PlayerStats {
	agg := p.Aggregate()
	return PlayerStats{
		PlayerID:      p.ID,
		Name:          p.Name,
		Rating:        agg.Rating,
		Wins:          agg.Wins,
		Losses:        agg.Losses,
		TotalGames:    agg.TotalGames,
		WinRate:       agg.WinRate(),
		CurrentStreak: agg.CurrentStreak,
		BestWinStreak: agg.BestWinStreak,
		PointsFor:     agg.PointsFor,
		PointsAgainst: agg.PointsAgainst,
	}
}

func partnershipStats(p statsdb.Partnership) PartnershipStats {
	agg := p.Aggregate()
	return PartnershipStats{
		Key:           p.Key,
		Player1ID:     p.Player1ID,
		Player2ID:     p.Player2ID,
		Rating:        agg.Rating,
		Wins:          agg.Wins,
		Losses:        agg.Losses,
		TotalGames:    agg.TotalGames,
		WinRate:       agg.WinRate(),
		CurrentStreak: agg.CurrentStreak,
		BestWinStreak: agg.BestWinStreak,
		PointsFor:     agg.PointsFor,
		PointsAgainst: agg.PointsAgainst,
	}
}
