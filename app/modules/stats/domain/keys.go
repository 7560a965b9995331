package statsdomain

import "strings"

const keySeparator = "|"

// PartnershipKey identifies an unordered pair of players. The smaller id always
// comes first, so (A,B) and (B,A) produce the same key.
type PartnershipKey string

// NewPartnershipKey builds the canonical key for two players.
func NewPartnershipKey(a, b PlayerID) PartnershipKey {
	if b < a {
		a, b = b, a
	}
	return PartnershipKey(string(a) + keySeparator + string(b))
}

// Players splits the key back into its two player ids in canonical order.
func (k PartnershipKey) Players() (PlayerID, PlayerID) {
	first, second, _ := strings.Cut(string(k), keySeparator)
	return PlayerID(first), PlayerID(second)
}

func (k PartnershipKey) String() string { return string(k) }

// MatchupKey identifies an unordered pair of partnerships in canonical order.
type MatchupKey struct {
	Side1 PartnershipKey
	Side2 PartnershipKey
}

// NewMatchupKey orders two partnership keys by comparing their concatenations.
// swapped reports whether teamA ended up as Side2.
func NewMatchupKey(teamA, teamB PartnershipKey) (key MatchupKey, swapped bool) {
	forward := string(teamA) + "~" + string(teamB)
	backward := string(teamB) + "~" + string(teamA)
	if backward < forward {
		return MatchupKey{Side1: teamB, Side2: teamA}, true
	}
	return MatchupKey{Side1: teamA, Side2: teamB}, false
}

func (k MatchupKey) String() string {
	return string(k.Side1) + "~" + string(k.Side2)
}

// Side1Won maps a raw team outcome onto the canonical sides.
func Side1Won(teamAWon, swapped bool) bool {
	return teamAWon != swapped
}
