package testutils

import (
	"context"
	"fmt"
	"testing"
	"time"

	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	statsdb "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/infrastructure/repositories"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TestDataGenerator provides methods to create test data for integration tests
type TestDataGenerator struct {
	faker *gofakeit.Faker
	seed  uint64
}

// NewTestDataGenerator creates a new test data generator with optional seed
func NewTestDataGenerator(seed ...uint64) *TestDataGenerator {
	s := uint64(time.Now().UnixNano())
	if len(seed) > 0 {
		s = seed[0]
	}
	return &TestDataGenerator{faker: gofakeit.New(s), seed: s}
}

// Seed returns the seed, for reproducing a failing run.
func (g *TestDataGenerator) Seed() uint64 {
	return g.seed
}

// Roster is a seeded session with its group players and session entries.
type Roster struct {
	GroupID        statsdomain.GroupID
	SessionID      statsdomain.SessionID
	Players        []statsdomain.PlayerID
	SessionPlayers []statsdomain.SessionPlayerID
	Names          []string
}

// SeedRoster inserts a group with n uniquely named players and one session where
// every player appears. linked controls whether the session entries carry an
// explicit link or must be resolved by name.
func (g *TestDataGenerator) SeedRoster(t *testing.T, ctx context.Context, db bun.IDB, n int, linked bool) Roster {
	t.Helper()

	roster := Roster{
		GroupID:   statsdomain.GroupID("group-" + uuid.NewString()[:8]),
		SessionID: statsdomain.SessionID(uuid.NewString()),
	}

	session := &statsdb.Session{
		ID:       roster.SessionID,
		GroupID:  roster.GroupID,
		Name:     g.faker.Company() + " night",
		PlayedOn: time.Now().UTC().Truncate(24 * time.Hour),
	}
	if _, err := db.NewInsert().Model(session).Exec(ctx); err != nil {
		t.Fatalf("Failed to insert session: %v", err)
	}

	seen := make(map[string]bool)
	for len(roster.Players) < n {
		name := g.faker.FirstName()
		if seen[name] {
			continue
		}
		seen[name] = true

		player := &statsdb.GroupPlayer{GroupID: roster.GroupID, Name: name}
		if _, err := db.NewInsert().Model(player).Exec(ctx); err != nil {
			t.Fatalf("Failed to insert group player %s: %v", name, err)
		}

		entry := &statsdb.SessionPlayer{
			ID:        statsdomain.SessionPlayerID(uuid.NewString()),
			SessionID: roster.SessionID,
			// Session rosters are typed by hand.
			Name: fmt.Sprintf("  %s ", name),
		}
		if linked {
			entry.GroupPlayerID = player.ID
		}
		if _, err := db.NewInsert().Model(entry).Exec(ctx); err != nil {
			t.Fatalf("Failed to insert session player %s: %v", name, err)
		}

		roster.Players = append(roster.Players, player.ID)
		roster.SessionPlayers = append(roster.SessionPlayers, entry.ID)
		roster.Names = append(roster.Names, name)
	}
	return roster
}

// Result builds an unsaved completed result between two rosters of session entries.
func (g *TestDataGenerator) Result(r Roster, gameNumber int, teamA, teamB []statsdomain.SessionPlayerID, winner statsdomain.Team) statsdomain.GameResult {
	return statsdomain.GameResult{
		GroupID:     r.GroupID,
		SessionID:   r.SessionID,
		GameNumber:  gameNumber,
		TeamA:       teamA,
		TeamB:       teamB,
		WinningTeam: winner,
	}
}

// RandomResult picks a random singles or doubles result from the roster, with
// a random winner and, half of the time, a score.
func (g *TestDataGenerator) RandomResult(r Roster, gameNumber int) statsdomain.GameResult {
	picks := append([]statsdomain.SessionPlayerID{}, r.SessionPlayers...)
	g.faker.ShuffleAnySlice(picks)

	size := 1
	if len(picks) >= 4 && g.faker.Bool() {
		size = 2
	}
	winner := statsdomain.TeamA
	if g.faker.Bool() {
		winner = statsdomain.TeamB
	}
	result := g.Result(r, gameNumber, picks[:size], picks[size:2*size], winner)

	if g.faker.Bool() {
		high, low := 21, g.faker.Number(0, 19)
		if winner == statsdomain.TeamA {
			result.TeamAScore, result.TeamBScore = &high, &low
		} else {
			result.TeamAScore, result.TeamBScore = &low, &high
		}
	}
	return result
}
