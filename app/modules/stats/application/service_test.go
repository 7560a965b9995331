package statsservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	statsdb "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/infrastructure/repositories"
	"github.com/YuTeChang/VibeBadminton-sub000/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"
)

const testGroup statsdomain.GroupID = "group-1"

type fixture struct {
	repo      *FakeRepository
	scheduler *FakeScheduler
	svc       *StatsService
	session   statsdomain.SessionID

	alice, bob, carol, dave         statsdomain.PlayerID
	aliceSP, bobSP, carolSP, daveSP statsdomain.SessionPlayerID
}

func newTestService(repo *FakeRepository, scheduler RecalculationScheduler) *StatsService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracer := noop.NewTracerProvider().Tracer("test")
	return NewStatsService(repo, nil, scheduler, logger, observability.NoOpMetrics{}, tracer, nil)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := NewFakeRepository()
	scheduler := &FakeScheduler{}
	f := &fixture{
		repo:      repo,
		scheduler: scheduler,
		svc:       newTestService(repo, scheduler),
	}
	f.session = repo.AddSession(testGroup)
	f.alice = repo.AddPlayer(testGroup, "Alice")
	f.bob = repo.AddPlayer(testGroup, "Bob")
	f.carol = repo.AddPlayer(testGroup, "Carol")
	f.dave = repo.AddPlayer(testGroup, "Dave")
	f.aliceSP = repo.AddSessionPlayer(f.session, "Alice", f.alice)
	f.bobSP = repo.AddSessionPlayer(f.session, "Bob", f.bob)
	f.carolSP = repo.AddSessionPlayer(f.session, "Carol", f.carol)
	f.daveSP = repo.AddSessionPlayer(f.session, "Dave", f.dave)
	return f
}

func intPtr(v int) *int { return &v }

func (f *fixture) result(teamA, teamB []statsdomain.SessionPlayerID, winner statsdomain.Team) statsdomain.GameResult {
	return statsdomain.GameResult{
		GroupID:     testGroup,
		SessionID:   f.session,
		TeamA:       teamA,
		TeamB:       teamB,
		WinningTeam: winner,
	}
}

func (f *fixture) record(t *testing.T, r statsdomain.GameResult) (statsdomain.GameResult, ApplyOutcome) {
	t.Helper()
	stored, outcome, err := f.svc.RecordResult(context.Background(), testGroup, r)
	require.NoError(t, err)
	return stored, outcome
}

func countCalls(trace []string, step string) int {
	n := 0
	for _, s := range trace {
		if s == step {
			n++
		}
	}
	return n
}

func TestStatsService_ApplyResult_Singles(t *testing.T) {
	f := newFixture(t)
	r := f.result([]statsdomain.SessionPlayerID{f.aliceSP}, []statsdomain.SessionPlayerID{f.bobSP}, statsdomain.TeamA)
	r.TeamAScore, r.TeamBScore = intPtr(21), intPtr(15)

	_, outcome := f.record(t, r)

	require.True(t, outcome.Applied())
	assert.ElementsMatch(t, []statsdomain.PlayerID{f.alice, f.bob}, outcome.PlayersUpdated)
	assert.Empty(t, outcome.PartnershipsUpdated)
	assert.False(t, outcome.MatchupUpdated)
	assert.Empty(t, outcome.Failures)

	alice := f.repo.Player(testGroup, f.alice)
	assert.Equal(t, statsdomain.Aggregate{
		Rating: 1516, Wins: 1, TotalGames: 1, CurrentStreak: 1, BestWinStreak: 1, PointsFor: 21, PointsAgainst: 15,
	}, alice.Aggregate())

	bob := f.repo.Player(testGroup, f.bob)
	assert.Equal(t, statsdomain.Aggregate{
		Rating: 1484, Losses: 1, TotalGames: 1, CurrentStreak: -1, PointsFor: 15, PointsAgainst: 21,
	}, bob.Aggregate())

	history, err := f.svc.GetRatingHistory(context.Background(), testGroup, f.alice, time.Time{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 1500, history[0].RatingBefore)
	assert.Equal(t, 1516, history[0].RatingAfter)
}

func TestStatsService_ApplyResult_Doubles(t *testing.T) {
	f := newFixture(t)
	r := f.result(
		[]statsdomain.SessionPlayerID{f.aliceSP, f.bobSP},
		[]statsdomain.SessionPlayerID{f.carolSP, f.daveSP},
		statsdomain.TeamA,
	)

	_, outcome := f.record(t, r)

	require.True(t, outcome.Applied())
	assert.Len(t, outcome.PlayersUpdated, 4)
	assert.Len(t, outcome.PartnershipsUpdated, 2)
	assert.True(t, outcome.MatchupUpdated)

	for _, id := range []statsdomain.PlayerID{f.alice, f.bob} {
		assert.Equal(t, 1516, f.repo.Player(testGroup, id).Rating)
	}
	for _, id := range []statsdomain.PlayerID{f.carol, f.dave} {
		assert.Equal(t, 1484, f.repo.Player(testGroup, id).Rating)
	}

	winners, ok := f.repo.StoredPartnership(testGroup, statsdomain.NewPartnershipKey(f.bob, f.alice))
	require.True(t, ok)
	assert.Equal(t, 1516, winners.Rating)
	assert.Equal(t, 1, winners.Wins)

	losers, ok := f.repo.StoredPartnership(testGroup, statsdomain.NewPartnershipKey(f.carol, f.dave))
	require.True(t, ok)
	assert.Equal(t, 1484, losers.Rating)
	assert.Equal(t, -1, losers.CurrentStreak)
}

func TestStatsService_ApplyResult_TeammatesShareDelta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Give alice and bob different ratings through singles first.
	f.record(t, f.result([]statsdomain.SessionPlayerID{f.aliceSP}, []statsdomain.SessionPlayerID{f.carolSP}, statsdomain.TeamA))
	f.record(t, f.result([]statsdomain.SessionPlayerID{f.bobSP}, []statsdomain.SessionPlayerID{f.daveSP}, statsdomain.TeamB))

	before := map[statsdomain.PlayerID]int{}
	for _, id := range []statsdomain.PlayerID{f.alice, f.bob, f.carol, f.dave} {
		before[id] = f.repo.Player(testGroup, id).Rating
	}
	require.NotEqual(t, before[f.alice], before[f.bob])

	_, _, err := f.svc.RecordResult(ctx, testGroup, f.result(
		[]statsdomain.SessionPlayerID{f.aliceSP, f.bobSP},
		[]statsdomain.SessionPlayerID{f.carolSP, f.daveSP},
		statsdomain.TeamB,
	))
	require.NoError(t, err)

	deltaAlice := f.repo.Player(testGroup, f.alice).Rating - before[f.alice]
	deltaBob := f.repo.Player(testGroup, f.bob).Rating - before[f.bob]
	deltaCarol := f.repo.Player(testGroup, f.carol).Rating - before[f.carol]
	deltaDave := f.repo.Player(testGroup, f.dave).Rating - before[f.dave]

	assert.Equal(t, deltaAlice, deltaBob)
	assert.Equal(t, deltaCarol, deltaDave)
	assert.Negative(t, deltaAlice)
	assert.Positive(t, deltaCarol)
}

func TestStatsService_HeadToHead_Orientation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ab := []statsdomain.SessionPlayerID{f.aliceSP, f.bobSP}
	cd := []statsdomain.SessionPlayerID{f.carolSP, f.daveSP}

	// Two wins for alice+bob, one recorded from the other side's perspective.
	f.record(t, f.result(ab, cd, statsdomain.TeamA))
	f.record(t, f.result(cd, ab, statsdomain.TeamB))
	f.record(t, f.result(cd, ab, statsdomain.TeamA))

	forward, err := f.svc.GetHeadToHead(ctx, testGroup, [2]statsdomain.PlayerID{f.alice, f.bob}, [2]statsdomain.PlayerID{f.carol, f.dave})
	require.NoError(t, err)
	assert.Equal(t, 2, forward.TeamAWins)
	assert.Equal(t, 1, forward.TeamBWins)
	assert.Equal(t, 3, forward.TotalGames)

	backward, err := f.svc.GetHeadToHead(ctx, testGroup, [2]statsdomain.PlayerID{f.dave, f.carol}, [2]statsdomain.PlayerID{f.bob, f.alice})
	require.NoError(t, err)
	assert.Equal(t, 1, backward.TeamAWins)
	assert.Equal(t, 2, backward.TeamBWins)
	assert.Equal(t, 3, backward.TotalGames)

	key, _ := statsdomain.NewMatchupKey(statsdomain.NewPartnershipKey(f.alice, f.bob), statsdomain.NewPartnershipKey(f.carol, f.dave))
	m, ok := f.repo.StoredMatchup(testGroup, key)
	require.True(t, ok)
	assert.Equal(t, 3, m.TotalGames)
	assert.Equal(t, m.TotalGames, m.Side1Wins+m.Side2Wins)
}

func TestStatsService_GetHeadToHead_NeverMet(t *testing.T) {
	f := newFixture(t)
	h2h, err := f.svc.GetHeadToHead(context.Background(), testGroup, [2]statsdomain.PlayerID{f.alice, f.bob}, [2]statsdomain.PlayerID{f.carol, f.dave})
	require.NoError(t, err)
	assert.Zero(t, h2h.TotalGames)
	assert.Zero(t, h2h.TeamAWins)
}

func TestStatsService_ApplyResult_Skips(t *testing.T) {
	tests := []struct {
		name   string
		build  func(f *fixture) statsdomain.GameResult
		reason statsdomain.SkipReason
	}{
		{
			name: "scheduled game has no winner",
			build: func(f *fixture) statsdomain.GameResult {
				return f.result([]statsdomain.SessionPlayerID{f.aliceSP}, []statsdomain.SessionPlayerID{f.bobSP}, statsdomain.TeamUnset)
			},
			reason: statsdomain.SkipNotCompleted,
		},
		{
			name: "two against one",
			build: func(f *fixture) statsdomain.GameResult {
				return f.result([]statsdomain.SessionPlayerID{f.aliceSP, f.bobSP}, []statsdomain.SessionPlayerID{f.carolSP}, statsdomain.TeamA)
			},
			reason: statsdomain.SkipUnsupportedRoster,
		},
		{
			name: "unknown roster member",
			build: func(f *fixture) statsdomain.GameResult {
				stranger := f.repo.AddSessionPlayer(f.session, "Stranger", "")
				return f.result([]statsdomain.SessionPlayerID{f.aliceSP, stranger}, []statsdomain.SessionPlayerID{f.carolSP, f.daveSP}, statsdomain.TeamA)
			},
			reason: statsdomain.SkipUnresolvedIdentity,
		},
		{
			name: "roster entry missing from the session",
			build: func(f *fixture) statsdomain.GameResult {
				return f.result([]statsdomain.SessionPlayerID{"ghost"}, []statsdomain.SessionPlayerID{f.bobSP}, statsdomain.TeamB)
			},
			reason: statsdomain.SkipUnresolvedIdentity,
		},
		{
			name: "linked to a player of another group",
			build: func(f *fixture) statsdomain.GameResult {
				outsider := f.repo.AddPlayer("group-2", "Eve")
				eve := f.repo.AddSessionPlayer(f.session, "Eve", outsider)
				return f.result([]statsdomain.SessionPlayerID{eve}, []statsdomain.SessionPlayerID{f.bobSP}, statsdomain.TeamA)
			},
			reason: statsdomain.SkipUnresolvedIdentity,
		},
		{
			name: "same player on both sides",
			build: func(f *fixture) statsdomain.GameResult {
				again := f.repo.AddSessionPlayer(f.session, "Alice (again)", f.alice)
				return f.result([]statsdomain.SessionPlayerID{f.aliceSP, f.bobSP}, []statsdomain.SessionPlayerID{again, f.daveSP}, statsdomain.TeamA)
			},
			reason: statsdomain.SkipDuplicatePlayer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			players, pairs := f.repo.Snapshot(testGroup)

			outcome, err := f.svc.ApplyResult(context.Background(), testGroup, tt.build(f))
			require.NoError(t, err)
			assert.Equal(t, tt.reason, outcome.Skipped)
			assert.False(t, outcome.Applied())

			afterPlayers, afterPairs := f.repo.Snapshot(testGroup)
			assert.Equal(t, players, afterPlayers)
			assert.Equal(t, pairs, afterPairs)
			assert.Zero(t, countCalls(f.repo.Trace(), "UpdatePlayerAggregate"))
			assert.Zero(t, countCalls(f.repo.Trace(), "IncrementMatchup"))
		})
	}
}

func TestStatsService_ApplyResult_UnresolvedKeepsResolvableLinks(t *testing.T) {
	f := newFixture(t)
	erin := f.repo.AddPlayer(testGroup, "Erin")
	erinSP := f.repo.AddSessionPlayer(f.session, "  ERIN ", "")
	stranger := f.repo.AddSessionPlayer(f.session, "Stranger", "")

	outcome, err := f.svc.ApplyResult(context.Background(), testGroup, f.result(
		[]statsdomain.SessionPlayerID{erinSP, stranger},
		[]statsdomain.SessionPlayerID{f.carolSP, f.daveSP},
		statsdomain.TeamA,
	))
	require.NoError(t, err)
	assert.Equal(t, statsdomain.SkipUnresolvedIdentity, outcome.Skipped)
	assert.Equal(t, erin, f.repo.Link(erinSP))
	assert.Empty(t, f.repo.Link(stranger))
}

func TestStatsService_ApplyResult_PartialFailureContinues(t *testing.T) {
	f := newFixture(t)
	failing := statsdomain.NewPartnershipKey(f.alice, f.bob)
	f.repo.UpsertPartnershipFunc = func(_ context.Context, _ bun.IDB, p *statsdb.Partnership) error {
		if p.Key == failing {
			return errors.New("connection reset")
		}
		return nil
	}

	outcome, err := f.svc.ApplyResult(context.Background(), testGroup, f.result(
		[]statsdomain.SessionPlayerID{f.aliceSP, f.bobSP},
		[]statsdomain.SessionPlayerID{f.carolSP, f.daveSP},
		statsdomain.TeamA,
	))
	require.NoError(t, err)

	require.Len(t, outcome.Failures, 1)
	assert.Equal(t, "partnership", outcome.Failures[0].Entity)
	assert.Equal(t, string(failing), outcome.Failures[0].Key)
	assert.Len(t, outcome.PlayersUpdated, 4)
	assert.Equal(t, []statsdomain.PartnershipKey{statsdomain.NewPartnershipKey(f.carol, f.dave)}, outcome.PartnershipsUpdated)
	assert.True(t, outcome.MatchupUpdated)
	assert.True(t, outcome.RecalculationScheduled)
	assert.Equal(t, []string{"apply_partial_failure"}, f.scheduler.Reasons())

	_, ok := f.repo.StoredPartnership(testGroup, failing)
	assert.False(t, ok)
}

func TestStatsService_ApplyResult_SchedulerFailureIsReported(t *testing.T) {
	f := newFixture(t)
	f.scheduler.ScheduleRecalculationFunc = func(context.Context, statsdomain.GroupID, string) error {
		return errors.New("queue down")
	}
	f.repo.IncrementMatchupFunc = func(context.Context, bun.IDB, statsdomain.GroupID, statsdomain.MatchupKey, bool) error {
		return errors.New("deadlock detected")
	}

	outcome, err := f.svc.ApplyResult(context.Background(), testGroup, f.result(
		[]statsdomain.SessionPlayerID{f.aliceSP, f.bobSP},
		[]statsdomain.SessionPlayerID{f.carolSP, f.daveSP},
		statsdomain.TeamB,
	))
	require.NoError(t, err)
	assert.False(t, outcome.MatchupUpdated)
	assert.False(t, outcome.RecalculationScheduled)
	assert.Len(t, outcome.Failures, 1)
}

func TestStatsService_ApplyResult_InvalidGroup(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ApplyResult(context.Background(), "", statsdomain.GameResult{})
	require.ErrorIs(t, err, ErrInvalidGroup)
}

func TestStatsService_ApplyThenReverse_RestoresCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.result(
		[]statsdomain.SessionPlayerID{f.aliceSP, f.bobSP},
		[]statsdomain.SessionPlayerID{f.carolSP, f.daveSP},
		statsdomain.TeamA,
	)
	r.TeamAScore, r.TeamBScore = intPtr(21), intPtr(19)
	stored, _ := f.record(t, r)

	outcome, err := f.svc.DeleteResult(ctx, testGroup, stored.ID)
	require.NoError(t, err)
	assert.Len(t, outcome.PlayersReversed, 4)
	assert.Len(t, outcome.PartnershipsReversed, 2)
	assert.True(t, outcome.MatchupReversed)
	assert.False(t, outcome.Historical)
	assert.Empty(t, f.scheduler.Reasons())

	for _, id := range []statsdomain.PlayerID{f.alice, f.bob, f.carol, f.dave} {
		agg := f.repo.Player(testGroup, id).Aggregate()
		assert.Zero(t, agg.Wins)
		assert.Zero(t, agg.Losses)
		assert.Zero(t, agg.TotalGames)
		assert.Zero(t, agg.PointsFor)
		assert.Zero(t, agg.PointsAgainst)
	}
	// Ratings are not rolled back by a reverse.
	assert.Equal(t, 1516, f.repo.Player(testGroup, f.alice).Rating)

	h2h, err := f.svc.GetHeadToHead(ctx, testGroup, [2]statsdomain.PlayerID{f.alice, f.bob}, [2]statsdomain.PlayerID{f.carol, f.dave})
	require.NoError(t, err)
	assert.Zero(t, h2h.TotalGames)
}

func TestStatsService_ReverseResult_NeverAppliedIsSkipped(t *testing.T) {
	f := newFixture(t)
	outcome, err := f.svc.ReverseResult(context.Background(), testGroup, f.result(
		[]statsdomain.SessionPlayerID{f.aliceSP, f.bobSP},
		[]statsdomain.SessionPlayerID{f.carolSP, f.daveSP},
		statsdomain.TeamA,
	))
	require.NoError(t, err)
	assert.Equal(t, statsdomain.SkipNotApplied, outcome.Skipped)
	assert.False(t, outcome.MatchupReversed)
	assert.Empty(t, outcome.PlayersReversed)
	assert.Empty(t, outcome.Failures)
	assert.Zero(t, countCalls(f.repo.Trace(), "UpdatePlayerAggregate"))

	agg := f.repo.Player(testGroup, f.alice).Aggregate()
	assert.Equal(t, statsdomain.DefaultAggregate(), agg)
}

func TestStatsService_DeleteResult_SkippedResultLeavesOthersIntact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.record(t, f.result([]statsdomain.SessionPlayerID{f.aliceSP}, []statsdomain.SessionPlayerID{f.bobSP}, statsdomain.TeamA))

	zedSP := f.repo.AddSessionPlayer(f.session, "Zed", "")
	skipped, outcome := f.record(t, f.result([]statsdomain.SessionPlayerID{zedSP}, []statsdomain.SessionPlayerID{f.bobSP}, statsdomain.TeamA))
	require.Equal(t, statsdomain.SkipUnresolvedIdentity, outcome.Skipped)

	// Zed becomes matchable only after the result was skipped.
	f.repo.AddPlayer(testGroup, "zed")
	bobBefore := f.repo.Player(testGroup, f.bob).Aggregate()

	reversed, err := f.svc.DeleteResult(ctx, testGroup, skipped.ID)
	require.NoError(t, err)
	assert.Equal(t, statsdomain.SkipNotApplied, reversed.Skipped)
	assert.Empty(t, reversed.PlayersReversed)
	assert.False(t, reversed.RecalculationScheduled)

	assert.Equal(t, bobBefore, f.repo.Player(testGroup, f.bob).Aggregate())
	assert.Equal(t, 1, bobBefore.Losses)
	assert.Empty(t, f.repo.Link(zedSP))
}

func TestStatsService_DeleteResult_ReversesPlayersRecordedAtApply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stored, _ := f.record(t, f.result([]statsdomain.SessionPlayerID{f.aliceSP}, []statsdomain.SessionPlayerID{f.bobSP}, statsdomain.TeamA))
	marker, ok := f.repo.AppliedMarker(testGroup, stored.ID)
	require.True(t, ok)
	teamA, teamB := marker.Teams()
	assert.Equal(t, []statsdomain.PlayerID{f.alice}, teamA)
	assert.Equal(t, []statsdomain.PlayerID{f.bob}, teamB)

	outcome, err := f.svc.DeleteResult(ctx, testGroup, stored.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []statsdomain.PlayerID{f.alice, f.bob}, outcome.PlayersReversed)
	assert.Zero(t, countCalls(f.repo.Trace(), "LinkSessionPlayer"))

	_, ok = f.repo.AppliedMarker(testGroup, stored.ID)
	assert.False(t, ok)
}

func TestStatsService_RedeliveredWritesAreSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stored, _ := f.record(t, f.result([]statsdomain.SessionPlayerID{f.aliceSP}, []statsdomain.SessionPlayerID{f.bobSP}, statsdomain.TeamA))

	again, err := f.svc.ApplyResult(ctx, testGroup, stored)
	require.NoError(t, err)
	assert.Equal(t, statsdomain.SkipAlreadyApplied, again.Skipped)
	assert.Equal(t, 1, f.repo.Player(testGroup, f.alice).Wins)
	assert.Equal(t, 1, f.repo.Player(testGroup, f.alice).TotalGames)

	updated := stored
	updated.WinningTeam = statsdomain.TeamB
	_, err = f.svc.ReplaceResult(ctx, testGroup, updated)
	require.NoError(t, err)

	// A second delivery of the same replacement: the old version is gone and the
	// new one is already counted.
	reversed, err := f.svc.ReverseResult(ctx, testGroup, stored)
	require.NoError(t, err)
	assert.Equal(t, statsdomain.SkipNotApplied, reversed.Skipped)
	applied, err := f.svc.ApplyResult(ctx, testGroup, updated)
	require.NoError(t, err)
	assert.Equal(t, statsdomain.SkipAlreadyApplied, applied.Skipped)

	alice := f.repo.Player(testGroup, f.alice).Aggregate()
	assert.Equal(t, 0, alice.Wins)
	assert.Equal(t, 1, alice.Losses)
	assert.Equal(t, 1, alice.TotalGames)
}

func TestStatsService_ApplyResult_MarkerFailureSchedulesRecalculation(t *testing.T) {
	f := newFixture(t)
	f.repo.InsertAppliedResultFunc = func(context.Context, bun.IDB, *statsdb.AppliedResult) (bool, error) {
		return false, errors.New("connection reset")
	}

	outcome, err := f.svc.ApplyResult(context.Background(), testGroup, f.result(
		[]statsdomain.SessionPlayerID{f.aliceSP}, []statsdomain.SessionPlayerID{f.bobSP}, statsdomain.TeamA,
	))
	require.NoError(t, err)
	require.Len(t, outcome.Failures, 1)
	assert.Equal(t, "applied_result", outcome.Failures[0].Entity)
	assert.Empty(t, outcome.PlayersUpdated)
	assert.Equal(t, []string{"applied_marker_failed"}, f.scheduler.Reasons())
	assert.Zero(t, countCalls(f.repo.Trace(), "UpdatePlayerAggregate"))
}

func TestStatsService_DeleteResult_HistoricalSchedulesRecalculation(t *testing.T) {
	f := newFixture(t)
	first, _ := f.record(t, f.result([]statsdomain.SessionPlayerID{f.aliceSP}, []statsdomain.SessionPlayerID{f.bobSP}, statsdomain.TeamA))
	f.record(t, f.result([]statsdomain.SessionPlayerID{f.aliceSP}, []statsdomain.SessionPlayerID{f.bobSP}, statsdomain.TeamB))

	outcome, err := f.svc.DeleteResult(context.Background(), testGroup, first.ID)
	require.NoError(t, err)
	assert.True(t, outcome.Historical)
	assert.True(t, outcome.RecalculationScheduled)
	assert.Equal(t, []string{"historical_reverse"}, f.scheduler.Reasons())
}

func TestStatsService_DeleteResult_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.DeleteResult(ctx, testGroup, "missing")
	require.ErrorIs(t, err, ErrResultNotFound)

	stored, _ := f.record(t, f.result([]statsdomain.SessionPlayerID{f.aliceSP}, []statsdomain.SessionPlayerID{f.bobSP}, statsdomain.TeamA))
	_, err = f.svc.DeleteResult(ctx, "group-2", stored.ID)
	require.ErrorIs(t, err, ErrGroupMismatch)
}

func TestStatsService_ReplaceResult_FlipsWinner(t *testing.T) {
	f := newFixture(t)
	stored, _ := f.record(t, f.result([]statsdomain.SessionPlayerID{f.aliceSP}, []statsdomain.SessionPlayerID{f.bobSP}, statsdomain.TeamA))

	updated := stored
	updated.WinningTeam = statsdomain.TeamB
	out, err := f.svc.ReplaceResult(context.Background(), testGroup, updated)
	require.NoError(t, err)
	assert.Len(t, out.Reverse.PlayersReversed, 2)
	assert.True(t, out.Apply.Applied())

	alice := f.repo.Player(testGroup, f.alice).Aggregate()
	bob := f.repo.Player(testGroup, f.bob).Aggregate()
	assert.Equal(t, 0, alice.Wins)
	assert.Equal(t, 1, alice.Losses)
	assert.Equal(t, 1, alice.TotalGames)
	assert.Equal(t, 1, bob.Wins)
	assert.Equal(t, 0, bob.Losses)
	assert.Equal(t, 1, bob.TotalGames)

	game, err := f.repo.GetResult(context.Background(), nil, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, statsdomain.TeamB, game.WinningTeam)
	assert.Equal(t, stored.CreatedAt, game.CreatedAt)
}

func TestStatsService_ReplaceResult_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ReplaceResult(context.Background(), testGroup, statsdomain.GameResult{ID: "missing"})
	require.ErrorIs(t, err, ErrResultNotFound)
}

func TestStatsService_RecordResult_InsertFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.InsertResultFunc = func(context.Context, bun.IDB, *statsdb.Game) error {
		return errors.New("disk full")
	}
	_, _, err := f.svc.RecordResult(context.Background(), testGroup, f.result(
		[]statsdomain.SessionPlayerID{f.aliceSP}, []statsdomain.SessionPlayerID{f.bobSP}, statsdomain.TeamA,
	))
	require.Error(t, err)
	assert.Zero(t, countCalls(f.repo.Trace(), "UpdatePlayerAggregate"))
}

func TestStatsService_RecordResult_RejectsForeignSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	otherSession := f.repo.AddSession("group-2")
	amy := f.repo.AddSessionPlayer(otherSession, "Alice", "")
	ben := f.repo.AddSessionPlayer(otherSession, "Bob", "")
	foreign := statsdomain.GameResult{
		SessionID:   otherSession,
		TeamA:       []statsdomain.SessionPlayerID{amy},
		TeamB:       []statsdomain.SessionPlayerID{ben},
		WinningTeam: statsdomain.TeamA,
	}

	_, _, err := f.svc.RecordResult(ctx, testGroup, foreign)
	require.ErrorIs(t, err, ErrGroupMismatch)

	missing := foreign
	missing.SessionID = "no-such-session"
	_, _, err = f.svc.RecordResult(ctx, testGroup, missing)
	require.ErrorIs(t, err, ErrSessionNotFound)

	assert.Zero(t, countCalls(f.repo.Trace(), "InsertResult"))
	assert.Equal(t, statsdomain.DefaultAggregate(), f.repo.Player(testGroup, f.alice).Aggregate())
}

func TestStatsService_RecordResult_HoldsGroupWriteLockThroughApply(t *testing.T) {
	f := newFixture(t)
	var heldDuringApply []int
	f.repo.UpdatePlayerAggregateFunc = func(context.Context, bun.IDB, *statsdb.GroupPlayer) error {
		heldDuringApply = append(heldDuringApply, f.repo.HeldSharedLocks(testGroup, recalculateLockKey))
		return nil
	}

	f.record(t, f.result([]statsdomain.SessionPlayerID{f.aliceSP}, []statsdomain.SessionPlayerID{f.bobSP}, statsdomain.TeamA))

	assert.Equal(t, []int{1, 1}, heldDuringApply)
	assert.Zero(t, f.repo.HeldSharedLocks(testGroup, recalculateLockKey))

	trace := f.repo.Trace()
	acquire := slices.Index(trace, "AcquireSharedKeyLock")
	insert := slices.Index(trace, "InsertResult")
	release := slices.Index(trace, "ReleaseSharedKeyLock")
	require.NotEqual(t, -1, acquire)
	assert.Less(t, acquire, insert)
	assert.Less(t, insert, release)
	assert.Equal(t, len(trace)-1, release)
}
