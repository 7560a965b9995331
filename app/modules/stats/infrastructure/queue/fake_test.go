package statsqueue

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	statsservice "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/application"
	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/uptrace/bun"
)

type FakeRecalculator struct {
	RecalculateGroupFunc func(ctx context.Context, groupID statsdomain.GroupID) (statsservice.RecalculationSummary, error)
	calls                []statsdomain.GroupID
}

var _ Recalculator = (*FakeRecalculator)(nil)

func (f *FakeRecalculator) RecalculateGroup(ctx context.Context, groupID statsdomain.GroupID) (statsservice.RecalculationSummary, error) {
	f.calls = append(f.calls, groupID)
	if f.RecalculateGroupFunc != nil {
		return f.RecalculateGroupFunc(ctx, groupID)
	}
	return statsservice.RecalculationSummary{GroupID: groupID}, nil
}

type FakeGroupLister struct {
	ListGroupsWithResultsFunc func(ctx context.Context, db bun.IDB) ([]statsdomain.GroupID, error)
}

var _ GroupLister = (*FakeGroupLister)(nil)

func (f *FakeGroupLister) ListGroupsWithResults(ctx context.Context, db bun.IDB) ([]statsdomain.GroupID, error) {
	if f.ListGroupsWithResultsFunc != nil {
		return f.ListGroupsWithResultsFunc(ctx, db)
	}
	return nil, nil
}

type FakeScheduler struct {
	ScheduleRecalculationFunc func(ctx context.Context, groupID statsdomain.GroupID, reason string) error
	groups                    []statsdomain.GroupID
}

var _ statsservice.RecalculationScheduler = (*FakeScheduler)(nil)

func (f *FakeScheduler) ScheduleRecalculation(ctx context.Context, groupID statsdomain.GroupID, reason string) error {
	f.groups = append(f.groups, groupID)
	if f.ScheduleRecalculationFunc != nil {
		return f.ScheduleRecalculationFunc(ctx, groupID, reason)
	}
	return nil
}

// FakePublisher keeps every published message per topic.
type FakePublisher struct {
	mu        sync.Mutex
	PublishFn func(topic string, msgs ...*message.Message) error
	messages  map[string][]*message.Message
}

var _ message.Publisher = (*FakePublisher)(nil)

func (f *FakePublisher) Publish(topic string, msgs ...*message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishFn != nil {
		if err := f.PublishFn(topic, msgs...); err != nil {
			return err
		}
	}
	if f.messages == nil {
		f.messages = make(map[string][]*message.Message)
	}
	f.messages[topic] = append(f.messages[topic], msgs...)
	return nil
}

func (f *FakePublisher) Close() error { return nil }

func (f *FakePublisher) Messages(topic string) []*message.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*message.Message(nil), f.messages[topic]...)
}

type FakeInserter struct {
	InsertFunc func(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
	inserted   []river.JobArgs
	opts       []*river.InsertOpts
}

var _ inserter = (*FakeInserter)(nil)

func (f *FakeInserter) Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	f.inserted = append(f.inserted, args)
	f.opts = append(f.opts, opts)
	if f.InsertFunc != nil {
		return f.InsertFunc(ctx, args, opts)
	}
	return &rivertype.JobInsertResult{Job: &rivertype.JobRow{ID: int64(len(f.inserted))}}, nil
}
