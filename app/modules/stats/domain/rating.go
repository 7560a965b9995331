package statsdomain

import "math"

const (
	// DefaultRating is the rating every player and partnership starts from.
	DefaultRating = 1500
	// RatingFloor is the lowest rating any update can produce.
	RatingFloor = 100
	// KFactor bounds the swing of a single result.
	KFactor = 32
)

// ExpectedScore returns the probability that a side rated a beats a side rated b.
func ExpectedScore(a, b float64) float64 {
	return 1 / (1 + math.Pow(10, (b-a)/400))
}

// NewRating returns the updated rating after one result against opponent.
func NewRating(current, opponent int, won bool) int {
	return clampRating(math.Round(rawRating(float64(current), float64(opponent), won)))
}

// TeamRating is the mean of the members' ratings, or DefaultRating for an empty roster.
func TeamRating(ratings ...int) float64 {
	if len(ratings) == 0 {
		return DefaultRating
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return float64(sum) / float64(len(ratings))
}

// TeamDelta runs the rating formula on two team ratings and returns the change
// of the first team. Every member of that team receives exactly this change.
func TeamDelta(team, opponent []int, won bool) float64 {
	old := TeamRating(team...)
	updated := math.Round(rawRating(old, TeamRating(opponent...), won))
	return updated - old
}

// ApplyDelta adds a team delta to a member's personal rating.
func ApplyDelta(current int, delta float64) int {
	return clampRating(math.Round(float64(current) + delta))
}

func rawRating(current, opponent float64, won bool) float64 {
	actual := 0.0
	if won {
		actual = 1
	}
	return current + KFactor*(actual-ExpectedScore(current, opponent))
}

func clampRating(r float64) int {
	if r < RatingFloor {
		return RatingFloor
	}
	return int(r)
}
