package statsdb

import (
	"context"
	"time"

	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AggregateColumns are the counters shared by players and partnerships.
type AggregateColumns struct {
	Rating        int `bun:"rating,notnull,default:1500"`
	Wins          int `bun:"wins,notnull,default:0"`
	Losses        int `bun:"losses,notnull,default:0"`
	TotalGames    int `bun:"total_games,notnull,default:0"`
	CurrentStreak int `bun:"current_streak,notnull,default:0"`
	BestWinStreak int `bun:"best_win_streak,notnull,default:0"`
	PointsFor     int `bun:"points_for,notnull,default:0"`
	PointsAgainst int `bun:"points_against,notnull,default:0"`
}

// Aggregate converts the columns to the domain value.
func (c AggregateColumns) Aggregate() statsdomain.Aggregate {
	return statsdomain.Aggregate(c)
}

// SetAggregate overwrites the columns from the domain value.
func (c *AggregateColumns) SetAggregate(a statsdomain.Aggregate) {
	*c = AggregateColumns(a)
}

// GroupPlayer is a durable player identity within a group.
type GroupPlayer struct {
	bun.BaseModel `bun:"table:group_players,alias:gp"`

	ID      statsdomain.PlayerID `bun:"id,pk"`
	GroupID statsdomain.GroupID  `bun:"group_id,notnull"`
	Name    string               `bun:"name,notnull"`
	AggregateColumns

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

var _ bun.BeforeAppendModelHook = (*GroupPlayer)(nil)

func (p *GroupPlayer) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery:
		if p.ID == "" {
			p.ID = statsdomain.PlayerID(uuid.NewString())
		}
		if p.Rating == 0 {
			p.Rating = statsdomain.DefaultRating
		}
	case *bun.UpdateQuery:
		p.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// Partnership is a rated unordered pair of players.
type Partnership struct {
	bun.BaseModel `bun:"table:partnerships,alias:pt"`

	GroupID   statsdomain.GroupID        `bun:"group_id,pk"`
	Key       statsdomain.PartnershipKey `bun:"partnership_key,pk"`
	Player1ID statsdomain.PlayerID       `bun:"player1_id,notnull"`
	Player2ID statsdomain.PlayerID       `bun:"player2_id,notnull"`
	AggregateColumns

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Matchup counts results between two partnerships in canonical order.
type Matchup struct {
	bun.BaseModel `bun:"table:partnership_matchups,alias:mu"`

	GroupID    statsdomain.GroupID        `bun:"group_id,pk"`
	Side1Key   statsdomain.PartnershipKey `bun:"side1_key,pk"`
	Side2Key   statsdomain.PartnershipKey `bun:"side2_key,pk"`
	Side1Wins  int                        `bun:"side1_wins,notnull,default:0"`
	Side2Wins  int                        `bun:"side2_wins,notnull,default:0"`
	TotalGames int                        `bun:"total_games,notnull,default:0"`

	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Counts converts the row to the domain value.
func (m Matchup) Counts() statsdomain.Matchup {
	return statsdomain.Matchup{Side1Wins: m.Side1Wins, Side2Wins: m.Side2Wins, TotalGames: m.TotalGames}
}

// Session is a played session of a group.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID        statsdomain.SessionID `bun:"id,pk"`
	GroupID   statsdomain.GroupID   `bun:"group_id,notnull"`
	Name      string                `bun:"name"`
	PlayedOn  time.Time             `bun:"played_on,nullzero"`
	CreatedAt time.Time             `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// SessionPlayer maps a session-scoped roster entry to a group player.
type SessionPlayer struct {
	bun.BaseModel `bun:"table:session_players,alias:sp"`

	ID            statsdomain.SessionPlayerID `bun:"id,pk"`
	SessionID     statsdomain.SessionID       `bun:"session_id,notnull"`
	Name          string                      `bun:"name,notnull"`
	GroupPlayerID statsdomain.PlayerID        `bun:"group_player_id,nullzero"`
}

// Game is one entry of the result log.
type Game struct {
	bun.BaseModel `bun:"table:games,alias:g"`

	ID          statsdomain.ResultID  `bun:"id,pk"`
	SessionID   statsdomain.SessionID `bun:"session_id,notnull"`
	GameNumber  int                   `bun:"game_number,notnull"`
	TeamA       []string              `bun:"team_a,array,notnull"`
	TeamB       []string              `bun:"team_b,array,notnull"`
	WinningTeam statsdomain.Team      `bun:"winning_team,nullzero"`
	TeamAScore  *int                  `bun:"team_a_score"`
	TeamBScore  *int                  `bun:"team_b_score"`
	CreatedAt   time.Time             `bun:"created_at,nullzero,notnull,default:current_timestamp"`

	// Filled from the session join; not a column of games.
	GroupID statsdomain.GroupID `bun:"group_id,scanonly"`
}

var _ bun.BeforeAppendModelHook = (*Game)(nil)

func (g *Game) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && g.ID == "" {
		g.ID = statsdomain.ResultID(uuid.NewString())
	}
	return nil
}

// ToDomain converts the row to a domain result.
func (g Game) ToDomain() statsdomain.GameResult {
	return statsdomain.GameResult{
		ID:          g.ID,
		GroupID:     g.GroupID,
		SessionID:   g.SessionID,
		GameNumber:  g.GameNumber,
		TeamA:       toSessionPlayerIDs(g.TeamA),
		TeamB:       toSessionPlayerIDs(g.TeamB),
		WinningTeam: g.WinningTeam,
		TeamAScore:  g.TeamAScore,
		TeamBScore:  g.TeamBScore,
		CreatedAt:   g.CreatedAt,
	}
}

// GameFromDomain converts a domain result to a row.
func GameFromDomain(r statsdomain.GameResult) *Game {
	return &Game{
		ID:          r.ID,
		SessionID:   r.SessionID,
		GameNumber:  r.GameNumber,
		TeamA:       fromSessionPlayerIDs(r.TeamA),
		TeamB:       fromSessionPlayerIDs(r.TeamB),
		WinningTeam: r.WinningTeam,
		TeamAScore:  r.TeamAScore,
		TeamBScore:  r.TeamBScore,
		CreatedAt:   r.CreatedAt,
	}
}

func toSessionPlayerIDs(ids []string) []statsdomain.SessionPlayerID {
	out := make([]statsdomain.SessionPlayerID, len(ids))
	for i, id := range ids {
		out[i] = statsdomain.SessionPlayerID(id)
	}
	return out
}

func fromSessionPlayerIDs(ids []statsdomain.SessionPlayerID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// RatingHistory records a player's rating change for one result.
type RatingHistory struct {
	bun.BaseModel `bun:"table:rating_history,alias:rh"`

	ID           int64                `bun:"id,pk,autoincrement"`
	GroupID      statsdomain.GroupID  `bun:"group_id,notnull"`
	PlayerID     statsdomain.PlayerID `bun:"player_id,notnull"`
	ResultID     statsdomain.ResultID `bun:"result_id,notnull"`
	RatingBefore int                  `bun:"rating_before,notnull"`
	RatingAfter  int                  `bun:"rating_after,notnull"`
	CreatedAt    time.Time            `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// AppliedResult records the version of a result that reached the aggregates and the
// players it was resolved to at that time. Reverse reads it instead of resolving again.
type AppliedResult struct {
	bun.BaseModel `bun:"table:applied_results,alias:ar"`

	GroupID        statsdomain.GroupID  `bun:"group_id,pk"`
	ResultID       statsdomain.ResultID `bun:"result_id,pk"`
	ProcessingHash string               `bun:"processing_hash,notnull"`
	TeamA          []string             `bun:"team_a,array,notnull"`
	TeamB          []string             `bun:"team_b,array,notnull"`
	AppliedAt      time.Time            `bun:"applied_at,nullzero,notnull,default:current_timestamp"`
}

// Teams returns the recorded rosters as group player ids.
func (a AppliedResult) Teams() (teamA, teamB []statsdomain.PlayerID) {
	return toPlayerIDs(a.TeamA), toPlayerIDs(a.TeamB)
}

// NewAppliedResult builds the marker of a resolved result.
func NewAppliedResult(groupID statsdomain.GroupID, r statsdomain.ResolvedResult) *AppliedResult {
	return &AppliedResult{
		GroupID:        groupID,
		ResultID:       r.Result.ID,
		ProcessingHash: statsdomain.ComputeProcessingHash(r.Result),
		TeamA:          fromPlayerIDs(r.TeamA),
		TeamB:          fromPlayerIDs(r.TeamB),
	}
}

func toPlayerIDs(ids []string) []statsdomain.PlayerID {
	out := make([]statsdomain.PlayerID, len(ids))
	for i, id := range ids {
		out[i] = statsdomain.PlayerID(id)
	}
	return out
}

func fromPlayerIDs(ids []statsdomain.PlayerID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
