package statsdb

import (
	"context"
	"fmt"

	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	"github.com/uptrace/bun"
)

// InsertAppliedResult claims a result for the aggregates. It reports false when the
// group already holds a marker for the result id.
func (r *Impl) InsertAppliedResult(ctx context.Context, db bun.IDB, applied *AppliedResult) (bool, error) {
	res, err := r.conn(db).NewInsert().
		Model(applied).
		On("CONFLICT (group_id, result_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("statsdb.InsertAppliedResult: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("statsdb.InsertAppliedResult: %w", err)
	}
	return n == 1, nil
}

// DeleteAppliedResult removes and returns the marker of the given result version.
// It returns ErrNotFound when that version was never applied.
func (r *Impl) DeleteAppliedResult(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID, resultID statsdomain.ResultID, processingHash string) (*AppliedResult, error) {
	var deleted []AppliedResult
	_, err := r.conn(db).NewDelete().
		Model(&deleted).
		Where("group_id = ?", groupID).
		Where("result_id = ?", resultID).
		Where("processing_hash = ?", processingHash).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("statsdb.DeleteAppliedResult: %w", err)
	}
	if len(deleted) == 0 {
		return nil, ErrNotFound
	}
	return &deleted[0], nil
}

func (r *Impl) DeleteGroupAppliedResults(ctx context.Context, db bun.IDB, groupID statsdomain.GroupID) error {
	_, err := r.conn(db).NewDelete().
		Model((*AppliedResult)(nil)).
		Where("group_id = ?", groupID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("statsdb.DeleteGroupAppliedResults: %w", err)
	}
	return nil
}
