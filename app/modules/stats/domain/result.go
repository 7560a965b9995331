package statsdomain

import "time"

type (
	GroupID         string
	PlayerID        string
	SessionID       string
	SessionPlayerID string
	ResultID        string
)

// Team names one side of a result.
type Team string

const (
	TeamUnset Team = ""
	TeamA     Team = "A"
	TeamB     Team = "B"
)

// Format is the roster shape of a result.
type Format int

const (
	FormatUnsupported Format = iota
	FormatSingles
	FormatDoubles
)

func (f Format) String() string {
	switch f {
	case FormatSingles:
		return "singles"
	case FormatDoubles:
		return "doubles"
	default:
		return "unsupported"
	}
}

// GameResult is one entry of the result log. Rosters hold session player references.
type GameResult struct {
	ID          ResultID
	GroupID     GroupID
	SessionID   SessionID
	GameNumber  int
	TeamA       []SessionPlayerID
	TeamB       []SessionPlayerID
	WinningTeam Team
	TeamAScore  *int
	TeamBScore  *int
	CreatedAt   time.Time
}

// IsCompleted reports whether the result has a winner. Scheduled games have none.
func (r GameResult) IsCompleted() bool {
	return r.WinningTeam == TeamA || r.WinningTeam == TeamB
}

// Format classifies the rosters. Only 1v1 and 2v2 are rated.
func (r GameResult) Format() Format {
	switch {
	case len(r.TeamA) == 1 && len(r.TeamB) == 1:
		return FormatSingles
	case len(r.TeamA) == 2 && len(r.TeamB) == 2:
		return FormatDoubles
	default:
		return FormatUnsupported
	}
}

// Outcomes returns the outcome as seen by team A and team B.
func (r GameResult) Outcomes() (teamA, teamB Outcome) {
	teamAWon := r.WinningTeam == TeamA
	teamA = Outcome{Won: teamAWon}
	teamB = Outcome{Won: !teamAWon}
	if r.TeamAScore != nil && r.TeamBScore != nil {
		a, b := *r.TeamAScore, *r.TeamBScore
		teamA.HasScore, teamA.PointsFor, teamA.PointsAgainst = true, a, b
		teamB.HasScore, teamB.PointsFor, teamB.PointsAgainst = true, b, a
	}
	return teamA, teamB
}

// SkipReason explains why a result does not touch aggregates.
type SkipReason string

const (
	SkipNone               SkipReason = ""
	SkipNotCompleted       SkipReason = "not_completed"
	SkipUnsupportedRoster  SkipReason = "unsupported_roster"
	SkipUnresolvedIdentity SkipReason = "unresolved_identity"
	SkipDuplicatePlayer    SkipReason = "duplicate_player"
	// SkipAlreadyApplied marks a redelivered apply of a result version already counted.
	SkipAlreadyApplied SkipReason = "already_applied"
	// SkipNotApplied marks a reverse of a result version that never reached aggregates.
	SkipNotApplied SkipReason = "not_applied"
)

// Applicability returns the reason a result is skipped before identity resolution,
// or SkipNone when it should be applied.
func (r GameResult) Applicability() SkipReason {
	if !r.IsCompleted() {
		return SkipNotCompleted
	}
	if r.Format() == FormatUnsupported {
		return SkipUnsupportedRoster
	}
	return SkipNone
}
