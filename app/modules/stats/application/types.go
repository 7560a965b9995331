package statsservice

import (
	"time"

	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
)

// EntityFailure is one aggregate write that was abandoned.
type EntityFailure struct {
	Entity string `json:"entity"`
	Key    string `json:"key"`
	Error  string `json:"error"`
}

// ApplyOutcome reports what ApplyResult changed.
type ApplyOutcome struct {
	ResultID               statsdomain.ResultID         `json:"result_id"`
	Skipped                statsdomain.SkipReason       `json:"skipped,omitempty"`
	PlayersUpdated         []statsdomain.PlayerID       `json:"players_updated,omitempty"`
	PartnershipsUpdated    []statsdomain.PartnershipKey `json:"partnerships_updated,omitempty"`
	MatchupUpdated         bool                         `json:"matchup_updated"`
	Failures               []EntityFailure              `json:"failures,omitempty"`
	RecalculationScheduled bool                         `json:"recalculation_scheduled"`
}

// Applied reports whether the result reached the aggregate store.
func (o ApplyOutcome) Applied() bool {
	return o.Skipped == statsdomain.SkipNone
}

// ReverseOutcome reports what ReverseResult changed.
type ReverseOutcome struct {
	ResultID               statsdomain.ResultID         `json:"result_id"`
	Skipped                statsdomain.SkipReason       `json:"skipped,omitempty"`
	PlayersReversed        []statsdomain.PlayerID       `json:"players_reversed,omitempty"`
	PartnershipsReversed   []statsdomain.PartnershipKey `json:"partnerships_reversed,omitempty"`
	MatchupReversed        bool                         `json:"matchup_reversed"`
	Historical             bool                         `json:"historical"`
	Failures               []EntityFailure              `json:"failures,omitempty"`
	RecalculationScheduled bool                         `json:"recalculation_scheduled"`
}

// ReplaceOutcome combines the reverse of the old version and the apply of the new one.
type ReplaceOutcome struct {
	Reverse ReverseOutcome `json:"reverse"`
	Apply   ApplyOutcome   `json:"apply"`
}

// RecalculationSummary is returned by RecalculateGroup.
type RecalculationSummary struct {
	GroupID        statsdomain.GroupID `json:"group_id"`
	PlayersReset   int                 `json:"players_reset"`
	GamesProcessed int                 `json:"games_processed"`
	GamesSkipped   int                 `json:"games_skipped"`
	PlayersUpdated int                 `json:"players_updated"`
}

// PlayerStats is the read model of one player.
type PlayerStats struct {
	PlayerID      statsdomain.PlayerID `json:"player_id"`
	Name          string               `json:"name"`
	Rating        int                  `json:"rating"`
	Wins          int                  `json:"wins"`
	Losses        int                  `json:"losses"`
	TotalGames    int                  `json:"total_games"`
	WinRate       float64              `json:"win_rate"`
	CurrentStreak int                  `json:"current_streak"`
	BestWinStreak int                  `json:"best_win_streak"`
	PointsFor     int                  `json:"points_for"`
	PointsAgainst int                  `json:"points_against"`
}

// PointDifferential is points scored minus points conceded.
func (p PlayerStats) PointDifferential() int {
	return p.PointsFor - p.PointsAgainst
}

// PartnershipStats is the read model of one partnership.
type PartnershipStats struct {
	Key           statsdomain.PartnershipKey `json:"key"`
	Player1ID     statsdomain.PlayerID       `json:"player1_id"`
	Player2ID     statsdomain.PlayerID       `json:"player2_id"`
	Rating        int                        `json:"rating"`
	Wins          int                        `json:"wins"`
	Losses        int                        `json:"losses"`
	TotalGames    int                        `json:"total_games"`
	WinRate       float64                    `json:"win_rate"`
	CurrentStreak int                        `json:"current_streak"`
	BestWinStreak int                        `json:"best_win_streak"`
	PointsFor     int                        `json:"points_for"`
	PointsAgainst int                        `json:"points_against"`
}

// HeadToHead is a matchup seen from the caller's team order.
type HeadToHead struct {
	TeamA      statsdomain.PartnershipKey `json:"team_a"`
	TeamB      statsdomain.PartnershipKey `json:"team_b"`
	TeamAWins  int                        `json:"team_a_wins"`
	TeamBWins  int                        `json:"team_b_wins"`
	TotalGames int                        `json:"total_games"`
}

// RatingPoint is one entry of a player's rating history.
type RatingPoint struct {
	ResultID     statsdomain.ResultID `json:"result_id"`
	RatingBefore int                  `json:"rating_before"`
	RatingAfter  int                  `json:"rating_after"`
	At           time.Time            `json:"at"`
}
