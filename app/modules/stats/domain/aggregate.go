package statsdomain

// Aggregate holds the running counters shared by players and partnerships.
type Aggregate struct {
	Rating        int
	Wins          int
	Losses        int
	TotalGames    int
	CurrentStreak int
	BestWinStreak int
	PointsFor     int
	PointsAgainst int
}

// DefaultAggregate is the state every entity is reset to.
func DefaultAggregate() Aggregate {
	return Aggregate{Rating: DefaultRating}
}

// Outcome is one side's view of a completed result.
type Outcome struct {
	Won           bool
	HasScore      bool
	PointsFor     int
	PointsAgainst int
}

// Apply records the outcome and sets the already computed rating.
func (a Aggregate) Apply(o Outcome, newRating int) Aggregate {
	if o.Won {
		a.Wins++
	} else {
		a.Losses++
	}
	a.TotalGames++
	a.Rating = newRating
	a.CurrentStreak = NextStreak(a.CurrentStreak, o.Won)
	if a.CurrentStreak > a.BestWinStreak {
		a.BestWinStreak = a.CurrentStreak
	}
	if o.HasScore {
		a.PointsFor += o.PointsFor
		a.PointsAgainst += o.PointsAgainst
	}
	return a
}

// Reverse undoes the countable part of Apply. Rating and streaks are left as they are.
func (a Aggregate) Reverse(o Outcome) Aggregate {
	if o.Won {
		a.Wins = floorZero(a.Wins - 1)
	} else {
		a.Losses = floorZero(a.Losses - 1)
	}
	a.TotalGames = floorZero(a.TotalGames - 1)
	if o.HasScore {
		a.PointsFor = floorZero(a.PointsFor - o.PointsFor)
		a.PointsAgainst = floorZero(a.PointsAgainst - o.PointsAgainst)
	}
	return a
}

// WinRate returns wins over total games, or 0 before the first game.
func (a Aggregate) WinRate() float64 {
	if a.TotalGames == 0 {
		return 0
	}
	return float64(a.Wins) / float64(a.TotalGames)
}

// NextStreak extends a same-direction streak or restarts it at +1 / -1.
func NextStreak(current int, won bool) int {
	switch {
	case won && current > 0:
		return current + 1
	case won:
		return 1
	case current < 0:
		return current - 1
	default:
		return -1
	}
}

// Matchup counts results between two partnerships in canonical order.
type Matchup struct {
	Side1Wins  int
	Side2Wins  int
	TotalGames int
}

// Apply adds one result.
func (m Matchup) Apply(side1Won bool) Matchup {
	if side1Won {
		m.Side1Wins++
	} else {
		m.Side2Wins++
	}
	m.TotalGames++
	return m
}

// Reverse removes one result.
func (m Matchup) Reverse(side1Won bool) Matchup {
	if side1Won {
		m.Side1Wins = floorZero(m.Side1Wins - 1)
	} else {
		m.Side2Wins = floorZero(m.Side2Wins - 1)
	}
	m.TotalGames = floorZero(m.TotalGames - 1)
	return m
}

func floorZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
