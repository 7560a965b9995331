package statshandlers

import (
	"context"

	statsservice "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/application"
	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
)

// FakeEngine implements Engine for handler testing.
type FakeEngine struct {
	trace []string

	ApplyResultFunc   func(ctx context.Context, groupID statsdomain.GroupID, result statsdomain.GameResult) (statsservice.ApplyOutcome, error)
	ReverseResultFunc func(ctx context.Context, groupID statsdomain.GroupID, previous statsdomain.GameResult) (statsservice.ReverseOutcome, error)
}

var _ Engine = (*FakeEngine)(nil)

func (f *FakeEngine) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeEngine) Trace() []string {
	return f.trace
}

func (f *FakeEngine) ApplyResult(ctx context.Context, groupID statsdomain.GroupID, result statsdomain.GameResult) (statsservice.ApplyOutcome, error) {
	f.record("ApplyResult:" + string(result.ID))
	if f.ApplyResultFunc != nil {
		return f.ApplyResultFunc(ctx, groupID, result)
	}
	return statsservice.ApplyOutcome{ResultID: result.ID}, nil
}

func (f *FakeEngine) ReverseResult(ctx context.Context, groupID statsdomain.GroupID, previous statsdomain.GameResult) (statsservice.ReverseOutcome, error) {
	f.record("ReverseResult:" + string(previous.ID))
	if f.ReverseResultFunc != nil {
		return f.ReverseResultFunc(ctx, groupID, previous)
	}
	return statsservice.ReverseOutcome{ResultID: previous.ID}, nil
}

// FakeScheduler implements statsservice.RecalculationScheduler.
type FakeScheduler struct {
	trace []string

	ScheduleRecalculationFunc func(ctx context.Context, groupID statsdomain.GroupID, reason string) error
}

var _ statsservice.RecalculationScheduler = (*FakeScheduler)(nil)

func (f *FakeScheduler) ScheduleRecalculation(ctx context.Context, groupID statsdomain.GroupID, reason string) error {
	f.trace = append(f.trace, string(groupID)+":"+reason)
	if f.ScheduleRecalculationFunc != nil {
		return f.ScheduleRecalculationFunc(ctx, groupID, reason)
	}
	return nil
}

func (f *FakeScheduler) Trace() []string {
	return f.trace
}
