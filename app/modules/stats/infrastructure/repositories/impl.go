package statsdb

import (
	"context"
	"fmt"

	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	"github.com/uptrace/bun"
)

// Impl implements Repository on top of bun.
type Impl struct {
	db bun.IDB
}

var _ Repository = (*Impl)(nil)

// NewRepository creates a stats repository.
func NewRepository(db bun.IDB) *Impl {
	return &Impl{db: db}
}

func (r *Impl) conn(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// AcquireKeyLock takes pg_advisory_xact_lock on "group:key". It only has an effect
// inside a transaction and is released on commit or rollback.
func (r *Impl) AcquireKeyLock(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key string) error {
	lockKey := string(groupID) + ":" + key
	if _, err := r.conn(db).NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", lockKey).Exec(ctx); err != nil {
		return fmt.Errorf("statsdb.AcquireKeyLock(%s): %w", lockKey, err)
	}
	return nil
}

// AcquireSharedKeyLock takes pg_advisory_lock_shared on "group:key". The lock is
// session scoped: db must be a dedicated connection and the caller must release it
// on the same connection. It conflicts with AcquireKeyLock on the same key.
func (r *Impl) AcquireSharedKeyLock(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key string) error {
	lockKey := string(groupID) + ":" + key
	if _, err := r.conn(db).NewRaw("SELECT pg_advisory_lock_shared(hashtext(?))", lockKey).Exec(ctx); err != nil {
		return fmt.Errorf("statsdb.AcquireSharedKeyLock(%s): %w", lockKey, err)
	}
	return nil
}

func (r *Impl) ReleaseSharedKeyLock(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, key string) error {
	lockKey := string(groupID) + ":" + key
	if _, err := r.conn(db).NewRaw("SELECT pg_advisory_unlock_shared(hashtext(?))", lockKey).Exec(ctx); err != nil {
		return fmt.Errorf("statsdb.ReleaseSharedKeyLock(%s): %w", lockKey, err)
	}
	return nil
}
