package statsservice

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	statsdb "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Stats Repo
// ------------------------

// FakeRepository is an in-memory statsdb.Repository. Any ...Func field that is set
// replaces the in-memory behavior of that method, which is how tests inject failures.
type FakeRepository struct {
	mu    sync.Mutex
	trace []string

	sessions       map[statsdomain.SessionID]statsdomain.GroupID
	sessionPlayers map[statsdomain.SessionPlayerID]statsdb.SessionPlayer
	players        map[statsdomain.GroupID]map[statsdomain.PlayerID]statsdb.GroupPlayer
	partnerships   map[statsdomain.GroupID]map[statsdomain.PartnershipKey]statsdb.Partnership
	matchups       map[statsdomain.GroupID]map[statsdomain.MatchupKey]statsdb.Matchup
	games          map[statsdomain.ResultID]statsdb.Game
	history        []statsdb.RatingHistory
	applied        map[statsdomain.GroupID]map[statsdomain.ResultID]statsdb.AppliedResult
	sharedLocks    map[string]int
	clock          time.Time

	AcquireKeyLockFunc             func(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key string) error
	GetSessionPlayerFunc           func(ctx context.Context, db bun.IDB, id statsdomain.SessionPlayerID) (*statsdb.SessionPlayer, error)
	LinkSessionPlayerFunc          func(ctx context.Context, db bun.IDB, id statsdomain.SessionPlayerID, playerID statsdomain.PlayerID) error
	GetGroupPlayerFunc             func(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, playerID statsdomain.PlayerID) (*statsdb.GroupPlayer, error)
	UpdatePlayerAggregateFunc      func(ctx context.Context, db bun.IDB, player *statsdb.GroupPlayer) error
	ResetGroupPlayersFunc          func(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) (int, error)
	UpsertPartnershipFunc          func(ctx context.Context, db bun.IDB, p *statsdb.Partnership) error
	IncrementMatchupFunc           func(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key statsdomain.MatchupKey, side1Won bool) error
	ListCompletedResultsFunc       func(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) ([]statsdb.Game, error)
	CountCompletedResultsAfterFunc func(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, createdAt time.Time, excludeID statsdomain.ResultID) (int, error)
	InsertResultFunc               func(ctx context.Context, db bun.IDB, game *statsdb.Game) error
	InsertRatingHistoryFunc        func(ctx context.Context, db bun.IDB, entries []statsdb.RatingHistory) error
	InsertAppliedResultFunc        func(ctx context.Context, db bun.IDB, applied *statsdb.AppliedResult) (bool, error)
}

// NewFakeRepository initializes an empty store.
func NewFakeRepository() *FakeRepository {
	return &FakeRepository{
		trace:          []string{},
		sessions:       map[statsdomain.SessionID]statsdomain.GroupID{},
		sessionPlayers: map[statsdomain.SessionPlayerID]statsdb.SessionPlayer{},
		players:        map[statsdomain.GroupID]map[statsdomain.PlayerID]statsdb.GroupPlayer{},
		partnerships:   map[statsdomain.GroupID]map[statsdomain.PartnershipKey]statsdb.Partnership{},
		matchups:       map[statsdomain.GroupID]map[statsdomain.MatchupKey]statsdb.Matchup{},
		games:          map[statsdomain.ResultID]statsdb.Game{},
		applied:        map[statsdomain.GroupID]map[statsdomain.ResultID]statsdb.AppliedResult{},
		sharedLocks:    map[string]int{},
		clock:          time.Date(2026, 1, 1, 18, 0, 0, 0, time.UTC),
	}
}

var _ statsdb.Repository = (*FakeRepository)(nil)

// Trace returns the sequence of method calls made to the fake.
func (f *FakeRepository) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeRepository) record(step string) {
	f.mu.Lock()
	f.trace = append(f.trace, step)
	f.mu.Unlock()
}

// --- Seeding helpers ---

// AddPlayer creates a group player with default aggregates.
func (f *FakeRepository) AddPlayer(groupID statsdomain.GroupID, name string) statsdomain.PlayerID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := statsdomain.PlayerID(uuid.NewString())
	p := statsdb.GroupPlayer{ID: id, GroupID: groupID, Name: name}
	p.SetAggregate(statsdomain.DefaultAggregate())
	if f.players[groupID] == nil {
		f.players[groupID] = map[statsdomain.PlayerID]statsdb.GroupPlayer{}
	}
	f.players[groupID][id] = p
	return id
}

// AddSession registers a session of the group.
func (f *FakeRepository) AddSession(groupID statsdomain.GroupID) statsdomain.SessionID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := statsdomain.SessionID(uuid.NewString())
	f.sessions[id] = groupID
	return id
}

// AddSessionPlayer registers a roster entry, linked when playerID is not empty.
func (f *FakeRepository) AddSessionPlayer(sessionID statsdomain.SessionID, name string, playerID statsdomain.PlayerID) statsdomain.SessionPlayerID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := statsdomain.SessionPlayerID(uuid.NewString())
	f.sessionPlayers[id] = statsdb.SessionPlayer{ID: id, SessionID: sessionID, Name: name, GroupPlayerID: playerID}
	return id
}

// Player returns the stored aggregate of a player.
func (f *FakeRepository) Player(groupID statsdomain.GroupID, id statsdomain.PlayerID) statsdb.GroupPlayer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.players[groupID][id]
}

// StoredPartnership returns the stored partnership and whether it exists.
func (f *FakeRepository) StoredPartnership(groupID statsdomain.GroupID, key statsdomain.PartnershipKey) (statsdb.Partnership, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.partnerships[groupID][key]
	return p, ok
}

// StoredMatchup returns the stored ledger entry and whether it exists.
func (f *FakeRepository) StoredMatchup(groupID statsdomain.GroupID, key statsdomain.MatchupKey) (statsdb.Matchup, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matchups[groupID][key]
	return m, ok
}

// Link returns the group player a session entry is linked to.
func (f *FakeRepository) Link(id statsdomain.SessionPlayerID) statsdomain.PlayerID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessionPlayers[id].GroupPlayerID
}

// Snapshot returns every player and partnership of the group, for comparisons.
func (f *FakeRepository) Snapshot(groupID statsdomain.GroupID) (map[statsdomain.PlayerID]statsdomain.Aggregate, map[statsdomain.PartnershipKey]statsdomain.Aggregate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	players := map[statsdomain.PlayerID]statsdomain.Aggregate{}
	for id, p := range f.players[groupID] {
		players[id] = p.Aggregate()
	}
	pairs := map[statsdomain.PartnershipKey]statsdomain.Aggregate{}
	for key, p := range f.partnerships[groupID] {
		pairs[key] = p.Aggregate()
	}
	return players, pairs
}

// AppliedMarker returns the applied marker of a result and whether it exists.
func (f *FakeRepository) AppliedMarker(groupID statsdomain.GroupID, id statsdomain.ResultID) (statsdb.AppliedResult, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.applied[groupID][id]
	return a, ok
}

// HeldSharedLocks returns how many shared locks are currently held on group+key.
func (f *FakeRepository) HeldSharedLocks(groupID statsdomain.GroupID, key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sharedLocks[string(groupID)+":"+key]
}

func (f *FakeRepository) groupOf(sessionID statsdomain.SessionID) statsdomain.GroupID {
	return f.sessions[sessionID]
}

// --- Repository Interface Implementation ---

func (f *FakeRepository) AcquireKeyLock(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key string) error {
	f.record("AcquireKeyLock")
	if f.AcquireKeyLockFunc != nil {
		return f.AcquireKeyLockFunc(ctx, db, groupID, key)
	}
	return nil
}

func (f *FakeRepository) AcquireSharedKeyLock(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key string) error {
	f.record("AcquireSharedKeyLock")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sharedLocks[string(groupID)+":"+key]++
	return nil
}

func (f *FakeRepository) ReleaseSharedKeyLock(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key string) error {
	f.record("ReleaseSharedKeyLock")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sharedLocks[string(groupID)+":"+key]--
	return nil
}

func (f *FakeRepository) GetSession(ctx context.Context, db bun.IDB, id statsdomain.SessionID) (*statsdb.Session, error) {
	f.record("GetSession")
	f.mu.Lock()
	defer f.mu.Unlock()
	groupID, ok := f.sessions[id]
	if !ok {
		return nil, statsdb.ErrNotFound
	}
	return &statsdb.Session{ID: id, GroupID: groupID}, nil
}

func (f *FakeRepository) GetSessionPlayer(ctx context.Context, db bun.IDB, id statsdomain.SessionPlayerID) (*statsdb.SessionPlayer, error) {
	f.record("GetSessionPlayer")
	if f.GetSessionPlayerFunc != nil {
		return f.GetSessionPlayerFunc(ctx, db, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	sp, ok := f.sessionPlayers[id]
	if !ok {
		return nil, statsdb.ErrNotFound
	}
	return &sp, nil
}

func (f *FakeRepository) ListGroupPlayers(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) ([]statsdb.GroupPlayer, error) {
	f.record("ListGroupPlayers")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]statsdb.GroupPlayer, 0, len(f.players[groupID]))
	for _, p := range f.players[groupID] {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b statsdb.GroupPlayer) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (f *FakeRepository) LinkSessionPlayer(ctx context.Context, db bun.IDB, id statsdomain.SessionPlayerID, playerID statsdomain.PlayerID) error {
	f.record("LinkSessionPlayer")
	if f.LinkSessionPlayerFunc != nil {
		return f.LinkSessionPlayerFunc(ctx, db, id, playerID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	sp, ok := f.sessionPlayers[id]
	if !ok || sp.GroupPlayerID != "" {
		return statsdb.ErrNoRowsAffected
	}
	sp.GroupPlayerID = playerID
	f.sessionPlayers[id] = sp
	return nil
}

func (f *FakeRepository) getPlayer(groupID statsdomain.GroupID, playerID statsdomain.PlayerID) (*statsdb.GroupPlayer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[groupID][playerID]
	if !ok {
		return nil, statsdb.ErrNotFound
	}
	return &p, nil
}

func (f *FakeRepository) GetGroupPlayer(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, playerID statsdomain.PlayerID) (*statsdb.GroupPlayer, error) {
	f.record("GetGroupPlayer")
	if f.GetGroupPlayerFunc != nil {
		return f.GetGroupPlayerFunc(ctx, db, groupID, playerID)
	}
	return f.getPlayer(groupID, playerID)
}

func (f *FakeRepository) GetGroupPlayerForUpdate(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, playerID statsdomain.PlayerID) (*statsdb.GroupPlayer, error) {
	f.record("GetGroupPlayerForUpdate")
	return f.getPlayer(groupID, playerID)
}

func (f *FakeRepository) UpdatePlayerAggregate(ctx context.Context, db bun.IDB, player *statsdb.GroupPlayer) error {
	f.record("UpdatePlayerAggregate")
	if f.UpdatePlayerAggregateFunc != nil {
		if err := f.UpdatePlayerAggregateFunc(ctx, db, player); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.players[player.GroupID][player.ID]; !ok {
		return statsdb.ErrNoRowsAffected
	}
	f.players[player.GroupID][player.ID] = *player
	return nil
}

func (f *FakeRepository) ResetGroupPlayers(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) (int, error) {
	f.record("ResetGroupPlayers")
	if f.ResetGroupPlayersFunc != nil {
		return f.ResetGroupPlayersFunc(ctx, db, groupID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, p := range f.players[groupID] {
		p.SetAggregate(statsdomain.DefaultAggregate())
		f.players[groupID][id] = p
	}
	return len(f.players[groupID]), nil
}

func (f *FakeRepository) ListLeaderboard(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) ([]statsdb.GroupPlayer, error) {
	f.record("ListLeaderboard")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]statsdb.GroupPlayer, 0, len(f.players[groupID]))
	for _, p := range f.players[groupID] {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b statsdb.GroupPlayer) int {
		if c := cmp.Compare(b.Rating, a.Rating); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Wins, a.Wins); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (f *FakeRepository) getPartnership(groupID statsdomain.GroupID, key statsdomain.PartnershipKey) *statsdb.Partnership {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.partnerships[groupID][key]
	if !ok {
		return nil
	}
	return &p
}

func (f *FakeRepository) GetPartnership(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key statsdomain.PartnershipKey) (*statsdb.Partnership, error) {
	f.record("GetPartnership")
	return f.getPartnership(groupID, key), nil
}

func (f *FakeRepository) GetPartnershipForUpdate(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key statsdomain.PartnershipKey) (*statsdb.Partnership, error) {
	f.record("GetPartnershipForUpdate")
	return f.getPartnership(groupID, key), nil
}

func (f *FakeRepository) UpsertPartnership(ctx context.Context, db bun.IDB, p *statsdb.Partnership) error {
	f.record("UpsertPartnership")
	if f.UpsertPartnershipFunc != nil {
		if err := f.UpsertPartnershipFunc(ctx, db, p); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.partnerships[p.GroupID] == nil {
		f.partnerships[p.GroupID] = map[statsdomain.PartnershipKey]statsdb.Partnership{}
	}
	f.partnerships[p.GroupID][p.Key] = *p
	return nil
}

func (f *FakeRepository) ResetGroupPartnerships(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) (int, error) {
	f.record("ResetGroupPartnerships")
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, p := range f.partnerships[groupID] {
		p.SetAggregate(statsdomain.DefaultAggregate())
		f.partnerships[groupID][key] = p
	}
	return len(f.partnerships[groupID]), nil
}

func (f *FakeRepository) ListPartnerships(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) ([]statsdb.Partnership, error) {
	f.record("ListPartnerships")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]statsdb.Partnership, 0, len(f.partnerships[groupID]))
	for _, p := range f.partnerships[groupID] {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b statsdb.Partnership) int {
		if c := cmp.Compare(b.Rating, a.Rating); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return out, nil
}

func (f *FakeRepository) GetMatchup(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key statsdomain.MatchupKey) (*statsdb.Matchup, error) {
	f.record("GetMatchup")
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matchups[groupID][key]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (f *FakeRepository) IncrementMatchup(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key statsdomain.MatchupKey, side1Won bool) error {
	f.record("IncrementMatchup")
	if f.IncrementMatchupFunc != nil {
		if err := f.IncrementMatchupFunc(ctx, db, groupID, key, side1Won); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.matchups[groupID] == nil {
		f.matchups[groupID] = map[statsdomain.MatchupKey]statsdb.Matchup{}
	}
	m, ok := f.matchups[groupID][key]
	if !ok {
		m = statsdb.Matchup{GroupID: groupID, Side1Key: key.Side1, Side2Key: key.Side2}
	}
	counts := m.Counts().Apply(side1Won)
	m.Side1Wins, m.Side2Wins, m.TotalGames = counts.Side1Wins, counts.Side2Wins, counts.TotalGames
	f.matchups[groupID][key] = m
	return nil
}

func (f *FakeRepository) DecrementMatchup(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key statsdomain.MatchupKey, side1Won bool) error {
	f.record("DecrementMatchup")
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matchups[groupID][key]
	if !ok {
		return statsdb.ErrNoRowsAffected
	}
	counts := m.Counts().Reverse(side1Won)
	m.Side1Wins, m.Side2Wins, m.TotalGames = counts.Side1Wins, counts.Side2Wins, counts.TotalGames
	f.matchups[groupID][key] = m
	return nil
}

func (f *FakeRepository) DeleteGroupMatchups(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) (int, error) {
	f.record("DeleteGroupMatchups")
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.matchups[groupID])
	delete(f.matchups, groupID)
	return n, nil
}

func (f *FakeRepository) GetResult(ctx context.Context, db bun.IDB, id statsdomain.ResultID) (*statsdb.Game, error) {
	f.record("GetResult")
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.games[id]
	if !ok {
		return nil, statsdb.ErrNotFound
	}
	g.GroupID = f.groupOf(g.SessionID)
	return &g, nil
}

func (f *FakeRepository) completed(groupID statsdomain.GroupID) []statsdb.Game {
	var out []statsdb.Game
	for _, g := range f.games {
		if f.groupOf(g.SessionID) != groupID || g.WinningTeam == statsdomain.TeamUnset {
			continue
		}
		g.GroupID = groupID
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b statsdb.Game) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (f *FakeRepository) ListCompletedResults(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) ([]statsdb.Game, error) {
	f.record("ListCompletedResults")
	if f.ListCompletedResultsFunc != nil {
		return f.ListCompletedResultsFunc(ctx, db, groupID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed(groupID), nil
}

func (f *FakeRepository) CountCompletedResultsAfter(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, createdAt time.Time, excludeID statsdomain.ResultID) (int, error) {
	f.record("CountCompletedResultsAfter")
	if f.CountCompletedResultsAfterFunc != nil {
		return f.CountCompletedResultsAfterFunc(ctx, db, groupID, createdAt, excludeID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, g := range f.completed(groupID) {
		if g.ID == excludeID {
			continue
		}
		if g.CreatedAt.After(createdAt) || (g.CreatedAt.Equal(createdAt) && g.ID > excludeID) {
			n++
		}
	}
	return n, nil
}

func (f *FakeRepository) ListGroupsWithResults(ctx context.Context, db bun.IDB) ([]statsdomain.GroupID, error) {
	f.record("ListGroupsWithResults")
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[statsdomain.GroupID]struct{}{}
	var out []statsdomain.GroupID
	for _, g := range f.games {
		group := f.groupOf(g.SessionID)
		if _, ok := seen[group]; ok {
			continue
		}
		seen[group] = struct{}{}
		out = append(out, group)
	}
	slices.Sort(out)
	return out, nil
}

// InsertResult assigns an id and a strictly increasing creation time when missing.
func (f *FakeRepository) InsertResult(ctx context.Context, db bun.IDB, game *statsdb.Game) error {
	f.record("InsertResult")
	if f.InsertResultFunc != nil {
		return f.InsertResultFunc(ctx, db, game)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if game.ID == "" {
		game.ID = statsdomain.ResultID(uuid.NewString())
	}
	if game.CreatedAt.IsZero() {
		f.clock = f.clock.Add(time.Minute)
		game.CreatedAt = f.clock
	}
	f.games[game.ID] = *game
	return nil
}

func (f *FakeRepository) UpdateResult(ctx context.Context, db bun.IDB, game *statsdb.Game) error {
	f.record("UpdateResult")
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.games[game.ID]
	if !ok {
		return statsdb.ErrNotFound
	}
	existing.TeamA, existing.TeamB = game.TeamA, game.TeamB
	existing.WinningTeam = game.WinningTeam
	existing.TeamAScore, existing.TeamBScore = game.TeamAScore, game.TeamBScore
	f.games[game.ID] = existing
	return nil
}

func (f *FakeRepository) DeleteResult(ctx context.Context, db bun.IDB, id statsdomain.ResultID) error {
	f.record("DeleteResult")
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.games[id]; !ok {
		return statsdb.ErrNotFound
	}
	delete(f.games, id)
	return nil
}

func (f *FakeRepository) InsertRatingHistory(ctx context.Context, db bun.IDB, entries []statsdb.RatingHistory) error {
	f.record("InsertRatingHistory")
	if f.InsertRatingHistoryFunc != nil {
		return f.InsertRatingHistoryFunc(ctx, db, entries)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, entries...)
	return nil
}

func (f *FakeRepository) ListRatingHistory(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, playerID statsdomain.PlayerID, since time.Time) ([]statsdb.RatingHistory, error) {
	f.record("ListRatingHistory")
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []statsdb.RatingHistory
	for _, h := range f.history {
		if h.GroupID != groupID || h.PlayerID != playerID {
			continue
		}
		if !since.IsZero() && h.CreatedAt.Before(since) {
			continue
		}
		out = append(out, h)
	}
	slices.SortStableFunc(out, func(a, b statsdb.RatingHistory) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (f *FakeRepository) DeleteGroupRatingHistory(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) error {
	f.record("DeleteGroupRatingHistory")
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.history[:0]
	for _, h := range f.history {
		if h.GroupID != groupID {
			kept = append(kept, h)
		}
	}
	f.history = kept
	return nil
}

func (f *FakeRepository) InsertAppliedResult(ctx context.Context, db bun.IDB, applied *statsdb.AppliedResult) (bool, error) {
	f.record("InsertAppliedResult")
	if f.InsertAppliedResultFunc != nil {
		return f.InsertAppliedResultFunc(ctx, db, applied)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applied[applied.GroupID] == nil {
		f.applied[applied.GroupID] = map[statsdomain.ResultID]statsdb.AppliedResult{}
	}
	if _, ok := f.applied[applied.GroupID][applied.ResultID]; ok {
		return false, nil
	}
	f.applied[applied.GroupID][applied.ResultID] = *applied
	return true, nil
}

func (f *FakeRepository) DeleteAppliedResult(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, resultID statsdomain.ResultID, processingHash string) (*statsdb.AppliedResult, error) {
	f.record("DeleteAppliedResult")
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.applied[groupID][resultID]
	if !ok || a.ProcessingHash != processingHash {
		return nil, statsdb.ErrNotFound
	}
	delete(f.applied[groupID], resultID)
	return &a, nil
}

func (f *FakeRepository) DeleteGroupAppliedResults(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) error {
	f.record("DeleteGroupAppliedResults")
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.applied, groupID)
	return nil
}

// ------------------------
// Fake Scheduler
// ------------------------

type scheduledRecalculation struct {
	GroupID statsdomain.GroupID
	Reason  string
}

// FakeScheduler records recalculation requests.
type FakeScheduler struct {
	mu       sync.Mutex
	requests []scheduledRecalculation

	ScheduleRecalculationFunc func(ctx context.Context, groupID statsdomain.GroupID, reason string) error
}

var _ RecalculationScheduler = (*FakeScheduler)(nil)

func (f *FakeScheduler) ScheduleRecalculation(ctx context.Context, groupID statsdomain.GroupID, reason string) error {
	f.mu.Lock()
	f.requests = append(f.requests, scheduledRecalculation{GroupID: groupID, Reason: reason})
	f.mu.Unlock()
	if f.ScheduleRecalculationFunc != nil {
		return f.ScheduleRecalculationFunc(ctx, groupID, reason)
	}
	return nil
}

// Reasons returns the reason of every request in order.
func (f *FakeScheduler) Reasons() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, r.Reason)
	}
	return out
}
