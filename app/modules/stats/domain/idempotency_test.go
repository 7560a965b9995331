package statsdomain

import "testing"

func TestComputeProcessingHash(t *testing.T) {
	score := func(v int) *int { return &v }
	base := GameResult{
		ID:          "r1",
		TeamA:       []SessionPlayerID{"a1", "a2"},
		TeamB:       []SessionPlayerID{"b1", "b2"},
		WinningTeam: TeamA,
		TeamAScore:  score(21),
		TeamBScore:  score(17),
	}
	baseHash := ComputeProcessingHash(base)

	reordered := base
	reordered.TeamA = []SessionPlayerID{"a2", "a1"}
	if got := ComputeProcessingHash(reordered); got != baseHash {
		t.Errorf("roster order changed the hash")
	}

	tests := []struct {
		name   string
		mutate func(r *GameResult)
	}{
		{"winner flipped", func(r *GameResult) { r.WinningTeam = TeamB }},
		{"score changed", func(r *GameResult) { r.TeamBScore = score(19) }},
		{"score removed", func(r *GameResult) { r.TeamAScore, r.TeamBScore = nil, nil }},
		{"player swapped across teams", func(r *GameResult) {
			r.TeamA = []SessionPlayerID{"a1", "b1"}
			r.TeamB = []SessionPlayerID{"a2", "b2"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed := base
			tt.mutate(&changed)
			if ComputeProcessingHash(changed) == baseHash {
				t.Errorf("hash did not change")
			}
		})
	}
}
