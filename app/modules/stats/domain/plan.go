package statsdomain

// ResolvedResult is a completed result whose rosters are mapped to durable players.
type ResolvedResult struct {
	Result GameResult
	TeamA  []PlayerID
	TeamB  []PlayerID
}

// Snapshot holds the ratings read before any write of the same result.
type Snapshot struct {
	Players      map[PlayerID]int
	Partnerships map[PartnershipKey]int
}

func (s Snapshot) player(id PlayerID) int {
	if r, ok := s.Players[id]; ok {
		return r
	}
	return DefaultRating
}

func (s Snapshot) partnership(key PartnershipKey) int {
	if r, ok := s.Partnerships[key]; ok {
		return r
	}
	return DefaultRating
}

// PlayerUpdate describes the change of one player. Rate is evaluated against the
// player's locked row so concurrent writers never lose each other's counters.
type PlayerUpdate struct {
	PlayerID       PlayerID
	Outcome        Outcome
	Doubles        bool
	OpponentRating int
	TeamDelta      float64
}

// Rate returns the player's new rating given the current stored one.
func (u PlayerUpdate) Rate(current int) int {
	if u.Doubles {
		return ApplyDelta(current, u.TeamDelta)
	}
	return NewRating(current, u.OpponentRating, u.Outcome.Won)
}

// PartnershipUpdate describes the change of one partnership.
type PartnershipUpdate struct {
	Key            PartnershipKey
	Outcome        Outcome
	OpponentRating int
}

// Rate returns the partnership's new rating given the current stored one.
func (u PartnershipUpdate) Rate(current int) int {
	return NewRating(current, u.OpponentRating, u.Outcome.Won)
}

// MatchupUpdate describes the ledger write of a doubles result.
type MatchupUpdate struct {
	Key      MatchupKey
	Swapped  bool
	Side1Won bool
}

// Plan is every entity write produced by one result.
type Plan struct {
	Players      []PlayerUpdate
	Partnerships []PartnershipUpdate
	Matchup      *MatchupUpdate
}

// HasDuplicatePlayer reports whether a player appears more than once across both rosters.
func (r ResolvedResult) HasDuplicatePlayer() bool {
	seen := make(map[PlayerID]struct{}, len(r.TeamA)+len(r.TeamB))
	for _, id := range append(append([]PlayerID{}, r.TeamA...), r.TeamB...) {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}

// PartnershipKeys returns the keys of both teams of a doubles result.
func (r ResolvedResult) PartnershipKeys() (teamA, teamB PartnershipKey) {
	return NewPartnershipKey(r.TeamA[0], r.TeamA[1]), NewPartnershipKey(r.TeamB[0], r.TeamB[1])
}

// BuildPlan computes every entity update of a resolved result from one snapshot.
func BuildPlan(r ResolvedResult, snap Snapshot) Plan {
	outA, outB := r.Result.Outcomes()

	if r.Result.Format() == FormatSingles {
		a, b := r.TeamA[0], r.TeamB[0]
		return Plan{Players: []PlayerUpdate{
			{PlayerID: a, Outcome: outA, OpponentRating: snap.player(b)},
			{PlayerID: b, Outcome: outB, OpponentRating: snap.player(a)},
		}}
	}

	ratingsA := []int{snap.player(r.TeamA[0]), snap.player(r.TeamA[1])}
	ratingsB := []int{snap.player(r.TeamB[0]), snap.player(r.TeamB[1])}
	deltaA := TeamDelta(ratingsA, ratingsB, outA.Won)
	deltaB := TeamDelta(ratingsB, ratingsA, outB.Won)

	plan := Plan{}
	for _, id := range r.TeamA {
		plan.Players = append(plan.Players, PlayerUpdate{PlayerID: id, Outcome: outA, Doubles: true, TeamDelta: deltaA})
	}
	for _, id := range r.TeamB {
		plan.Players = append(plan.Players, PlayerUpdate{PlayerID: id, Outcome: outB, Doubles: true, TeamDelta: deltaB})
	}

	keyA, keyB := r.PartnershipKeys()
	plan.Partnerships = []PartnershipUpdate{
		{Key: keyA, Outcome: outA, OpponentRating: snap.partnership(keyB)},
		{Key: keyB, Outcome: outB, OpponentRating: snap.partnership(keyA)},
	}

	key, swapped := NewMatchupKey(keyA, keyB)
	plan.Matchup = &MatchupUpdate{Key: key, Swapped: swapped, Side1Won: Side1Won(outA.Won, swapped)}
	return plan
}
