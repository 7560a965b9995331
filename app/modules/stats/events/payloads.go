package statsevents

import (
	"time"

	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
)

// GameResultV1 is the wire form of one result log entry.
type GameResultV1 struct {
	ID          statsdomain.ResultID          `json:"id"`
	SessionID   statsdomain.SessionID         `json:"session_id"`
	GameNumber  int                           `json:"game_number"`
	TeamA       []statsdomain.SessionPlayerID `json:"team_a"`
	TeamB       []statsdomain.SessionPlayerID `json:"team_b"`
	WinningTeam statsdomain.Team              `json:"winning_team,omitempty"`
	TeamAScore  *int                          `json:"team_a_score,omitempty"`
	TeamBScore  *int                          `json:"team_b_score,omitempty"`
	CreatedAt   time.Time                     `json:"created_at"`
}

// NewGameResultV1 converts a domain result into its wire form.
func NewGameResultV1(r statsdomain.GameResult) GameResultV1 {
	return GameResultV1{
		ID:          r.ID,
		SessionID:   r.SessionID,
		GameNumber:  r.GameNumber,
		TeamA:       r.TeamA,
		TeamB:       r.TeamB,
		WinningTeam: r.WinningTeam,
		TeamAScore:  r.TeamAScore,
		TeamBScore:  r.TeamBScore,
		CreatedAt:   r.CreatedAt,
	}
}

// ToDomain converts the wire form back into a domain result of the given group.
func (g GameResultV1) ToDomain(groupID statsdomain.GroupID) statsdomain.GameResult {
	return statsdomain.GameResult{
		ID:          g.ID,
		GroupID:     groupID,
		SessionID:   g.SessionID,
		GameNumber:  g.GameNumber,
		TeamA:       g.TeamA,
		TeamB:       g.TeamB,
		WinningTeam: g.WinningTeam,
		TeamAScore:  g.TeamAScore,
		TeamBScore:  g.TeamBScore,
		CreatedAt:   g.CreatedAt,
	}
}

// ResultRecordedPayloadV1 is published on ResultRecordedV1.
type ResultRecordedPayloadV1 struct {
	GroupID statsdomain.GroupID `json:"group_id"`
	Result  GameResultV1        `json:"result"`
}

// ResultReversedPayloadV1 is published on ResultReversedV1.
type ResultReversedPayloadV1 struct {
	GroupID  statsdomain.GroupID `json:"group_id"`
	Previous GameResultV1        `json:"previous"`
}

// ResultReplacedPayloadV1 is published on ResultReplacedV1.
type ResultReplacedPayloadV1 struct {
	GroupID  statsdomain.GroupID `json:"group_id"`
	Previous GameResultV1        `json:"previous"`
	Updated  GameResultV1        `json:"updated"`
}

// RecalculateRequestedPayloadV1 is published on RecalculateRequestedV1.
type RecalculateRequestedPayloadV1 struct {
	GroupID statsdomain.GroupID `json:"group_id"`
	Reason  string              `json:"reason,omitempty"`
}

// ResultAppliedPayloadV1 reports what an apply changed.
type ResultAppliedPayloadV1 struct {
	GroupID                statsdomain.GroupID          `json:"group_id"`
	ResultID               statsdomain.ResultID         `json:"result_id"`
	Skipped                statsdomain.SkipReason       `json:"skipped,omitempty"`
	PlayersUpdated         []statsdomain.PlayerID       `json:"players_updated,omitempty"`
	PartnershipsUpdated    []statsdomain.PartnershipKey `json:"partnerships_updated,omitempty"`
	FailedEntities         int                          `json:"failed_entities,omitempty"`
	RecalculationScheduled bool                         `json:"recalculation_scheduled"`
}

// GroupRecalculatedPayloadV1 is published after a successful replay.
type GroupRecalculatedPayloadV1 struct {
	GroupID        statsdomain.GroupID `json:"group_id"`
	Reason         string              `json:"reason,omitempty"`
	PlayersReset   int                 `json:"players_reset"`
	GamesProcessed int                 `json:"games_processed"`
	GamesSkipped   int                 `json:"games_skipped"`
	PlayersUpdated int                 `json:"players_updated"`
	CompletedAt    time.Time           `json:"completed_at"`
}

// RecalculateFailedPayloadV1 is published when a replay returns an error.
type RecalculateFailedPayloadV1 struct {
	GroupID statsdomain.GroupID `json:"group_id"`
	Reason  string              `json:"reason,omitempty"`
	Error   string              `json:"error"`
	Attempt int                 `json:"attempt"`
}

// RecalculateThrottledPayloadV1 is published when a request exceeds the group's rate.
type RecalculateThrottledPayloadV1 struct {
	GroupID    statsdomain.GroupID `json:"group_id"`
	Reason     string              `json:"reason,omitempty"`
	RetryAfter time.Duration       `json:"retry_after"`
}
