package statsdb

import (
	"context"
	"time"

	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	"github.com/uptrace/bun"
)

// Every method takes a bun.IDB so callers can run it inside their own transaction.
// A nil db falls back to the repository's connection.

// LockRepository serializes writers of one aggregate key.
type LockRepository interface {
	// AcquireKeyLock takes a transaction-scoped advisory lock on group+key.
	AcquireKeyLock(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key string) error
	// AcquireSharedKeyLock takes a session-scoped shared advisory lock on group+key.
	AcquireSharedKeyLock(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key string) error
	ReleaseSharedKeyLock(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key string) error
}

// IdentityRepository backs the identity resolver.
type IdentityRepository interface {
	GetSession(ctx context.Context, db bun.IDB, id statsdomain.SessionID) (*Session, error)
	GetSessionPlayer(ctx context.Context, db bun.IDB, id statsdomain.SessionPlayerID) (*SessionPlayer, error)
	ListGroupPlayers(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) ([]GroupPlayer, error)
	LinkSessionPlayer(ctx context.Context, db bun.IDB, id statsdomain.SessionPlayerID, playerID statsdomain.PlayerID) error
}

// AggregateRepository reads and writes player and partnership aggregates.
type AggregateRepository interface {
	GetGroupPlayer(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, playerID statsdomain.PlayerID) (*GroupPlayer, error)
	// GetGroupPlayerForUpdate locks the row until the surrounding transaction ends.
	GetGroupPlayerForUpdate(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, playerID statsdomain.PlayerID) (*GroupPlayer, error)
	UpdatePlayerAggregate(ctx context.Context, db bun.IDB, player *GroupPlayer) error
	ResetGroupPlayers(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) (int, error)
	ListLeaderboard(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) ([]GroupPlayer, error)

	// GetPartnership returns nil, nil when the pair has no record yet.
	GetPartnership(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key statsdomain.PartnershipKey) (*Partnership, error)
	GetPartnershipForUpdate(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key statsdomain.PartnershipKey) (*Partnership, error)
	UpsertPartnership(ctx context.Context, db bun.IDB, partnership *Partnership) error
	ResetGroupPartnerships(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) (int, error)
	ListPartnerships(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) ([]Partnership, error)
}

// MatchupRepository is the head-to-head ledger.
type MatchupRepository interface {
	// GetMatchup returns nil, nil when the two partnerships never met.
	GetMatchup(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key statsdomain.MatchupKey) (*Matchup, error)
	IncrementMatchup(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key statsdomain.MatchupKey, side1Won bool) error
	DecrementMatchup(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key statsdomain.MatchupKey, side1Won bool) error
	DeleteGroupMatchups(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) (int, error)
}

// ResultLogRepository reads and writes the result log.
type ResultLogRepository interface {
	GetResult(ctx context.Context, db bun.IDB, id statsdomain.ResultID) (*Game, error)
	// ListCompletedResults returns the group's results that have a winner, oldest first.
	ListCompletedResults(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) ([]Game, error)
	// CountCompletedResultsAfter counts completed results created after the given result.
	CountCompletedResultsAfter(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, createdAt time.Time, excludeID statsdomain.ResultID) (int, error)
	ListGroupsWithResults(ctx context.Context, db bun.IDB) ([]statsdomain.GroupID, error)
	InsertResult(ctx context.Context, db bun.IDB, game *Game) error
	UpdateResult(ctx context.Context, db bun.IDB, game *Game) error
	DeleteResult(ctx context.Context, db bun.IDB, id statsdomain.ResultID) error
}

// RatingHistoryRepository records per-result rating changes.
type RatingHistoryRepository interface {
	InsertRatingHistory(ctx context.Context, db bun.IDB, entries []RatingHistory) error
	ListRatingHistory(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, playerID statsdomain.PlayerID, since time.Time) ([]RatingHistory, error)
	DeleteGroupRatingHistory(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) error
}

// AppliedResultRepository tracks which version of each result the aggregates hold.
type AppliedResultRepository interface {
	InsertAppliedResult(ctx context.Context, db bun.IDB, applied *AppliedResult) (bool, error)
	DeleteAppliedResult(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, resultID statsdomain.ResultID, processingHash string) (*AppliedResult, error)
	DeleteGroupAppliedResults(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) error
}

// Repository is the full storage surface of the stats module.
type Repository interface {
	LockRepository
	IdentityRepository
	AggregateRepository
	MatchupRepository
	ResultLogRepository
	RatingHistoryRepository
	AppliedResultRepository
}
