package statsrouter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	statsevents "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/events"
	statshandlers "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/infrastructure/handlers"
	"github.com/YuTeChang/VibeBadminton-sub000/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type fakeHandlers struct {
	recorded chan *statsevents.ResultRecordedPayloadV1
	attempts int
	failOnce bool
}

var _ statshandlers.Handlers = (*fakeHandlers)(nil)

func (f *fakeHandlers) HandleResultRecorded(_ context.Context, p *statsevents.ResultRecordedPayloadV1) ([]statshandlers.Result, error) {
	f.attempts++
	if f.failOnce && f.attempts == 1 {
		return nil, context.DeadlineExceeded
	}
	f.recorded <- p
	return []statshandlers.Result{{
		Topic:   statsevents.ResultAppliedV1,
		GroupID: string(p.GroupID),
		Payload: statsevents.ResultAppliedPayloadV1{GroupID: p.GroupID, ResultID: p.Result.ID},
	}}, nil
}

func (f *fakeHandlers) HandleResultReversed(context.Context, *statsevents.ResultReversedPayloadV1) ([]statshandlers.Result, error) {
	return nil, nil
}

func (f *fakeHandlers) HandleResultReplaced(context.Context, *statsevents.ResultReplacedPayloadV1) ([]statshandlers.Result, error) {
	return nil, nil
}

func (f *fakeHandlers) HandleRecalculateRequested(context.Context, *statsevents.RecalculateRequestedPayloadV1) ([]statshandlers.Result, error) {
	return nil, nil
}

func startRouter(t *testing.T, handlers statshandlers.Handlers) *gochannel.GoChannel {
	t.Helper()
	t.Setenv(TestEnvironmentFlag, TestEnvironmentValue)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	wmLogger := watermill.NewSlogLogger(logger)
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, wmLogger)

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: time.Second}, wmLogger)
	require.NoError(t, err)

	r := NewStatsRouter(logger, router, pubSub, pubSub, noop.NewTracerProvider().Tracer("test"), observability.NoOpMetrics{}, nil)
	r.maxRetries = 2
	require.NoError(t, r.Configure(context.Background(), handlers))

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = router.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = r.Close()
		_ = pubSub.Close()
	})

	select {
	case <-router.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}
	return pubSub
}

func publishRecorded(t *testing.T, pub message.Publisher) {
	t.Helper()
	body, err := json.Marshal(statsevents.ResultRecordedPayloadV1{
		GroupID: "group-1",
		Result:  statsevents.GameResultV1{ID: "r-1", WinningTeam: statsdomain.TeamA},
	})
	require.NoError(t, err)
	require.NoError(t, pub.Publish(statsevents.ResultRecordedV1, message.NewMessage(watermill.NewUUID(), body)))
}

func awaitApplied(t *testing.T, applied <-chan *message.Message) {
	t.Helper()
	select {
	case msg := <-applied:
		msg.Ack()
		var payload statsevents.ResultAppliedPayloadV1
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		assert.Equal(t, statsdomain.ResultID("r-1"), payload.ResultID)
		assert.NotEmpty(t, msg.Metadata.Get("correlation_id"))
	case <-time.After(5 * time.Second):
		t.Fatal("no applied event published")
	}
}

func TestStatsRouter_RoutesRecordedToApplied(t *testing.T) {
	handlers := &fakeHandlers{recorded: make(chan *statsevents.ResultRecordedPayloadV1, 1)}
	pubSub := startRouter(t, handlers)

	applied, err := pubSub.Subscribe(context.Background(), statsevents.ResultAppliedV1)
	require.NoError(t, err)

	publishRecorded(t, pubSub)
	awaitApplied(t, applied)
}

func TestStatsRouter_RetriesFailedHandler(t *testing.T) {
	handlers := &fakeHandlers{recorded: make(chan *statsevents.ResultRecordedPayloadV1, 1), failOnce: true}
	pubSub := startRouter(t, handlers)

	applied, err := pubSub.Subscribe(context.Background(), statsevents.ResultAppliedV1)
	require.NoError(t, err)

	publishRecorded(t, pubSub)
	awaitApplied(t, applied)
	assert.Equal(t, 2, handlers.attempts)
}

func TestGetPublishTopic(t *testing.T) {
	msg := message.NewMessage("m-1", nil)
	assert.Equal(t, "fallback", getPublishTopic(msg, "fallback"))

	msg.Metadata.Set(statsevents.TopicMetadataKey, statsevents.GroupRecalculatedV1)
	assert.Equal(t, statsevents.GroupRecalculatedV1, getPublishTopic(msg, "fallback"))
}

func TestTopicPublisher_RejectsMessagesWithoutTopic(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	err := NewTopicPublisher(pubSub).Publish("", message.NewMessage("m-1", nil))
	assert.Error(t, err)
}
