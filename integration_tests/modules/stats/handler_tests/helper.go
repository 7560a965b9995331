package statshandlerintegrationtests

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats"
	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	statsevents "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/events"
	statsdb "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/infrastructure/repositories"
	"github.com/YuTeChang/VibeBadminton-sub000/integration_tests/testutils"
	"github.com/YuTeChang/VibeBadminton-sub000/internal/eventbus"
	"github.com/YuTeChang/VibeBadminton-sub000/internal/observability"
)

type HandlerTestDeps struct {
	Ctx    context.Context
	Env    *testutils.TestEnvironment
	Module *stats.Module
	Repo   *statsdb.Impl
	Gen    *testutils.TestDataGenerator
}

// SetupTestStatsHandlers runs the full stats module (router and queue) against
// the shared containers. The module gets its own event bus so closing its router
// leaves the shared bus usable for the test's own subscriptions.
func SetupTestStatsHandlers(t *testing.T) HandlerTestDeps {
	t.Helper()

	env := testutils.GetOrCreateTestEnv(t)
	env.Reset(t)

	ctx, cancel := context.WithCancel(env.Ctx)

	bus, err := eventbus.NewEventBus(ctx, eventbus.Config{
		URL:           env.Config.NATS.URL,
		StreamName:    env.Config.NATS.StreamName,
		DurablePrefix: env.Config.NATS.DurablePrefix,
		AckWait:       5 * time.Second,
	}, env.Logger)
	if err != nil {
		cancel()
		t.Fatalf("Failed to create module event bus: %v", err)
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 5 * time.Second}, watermill.NewSlogLogger(env.Logger))
	if err != nil {
		cancel()
		t.Fatalf("Failed to create router: %v", err)
	}

	obs := observability.NewNoop()
	repo := statsdb.NewRepository(env.DB)
	module, err := stats.NewStatsModule(ctx, env.Config, obs, env.DB, repo, bus, router)
	if err != nil {
		cancel()
		t.Fatalf("Failed to create stats module: %v", err)
	}

	go func() {
		if err := router.Run(ctx); err != nil {
			t.Logf("router stopped: %v", err)
		}
	}()
	select {
	case <-router.Running():
	case <-time.After(15 * time.Second):
		cancel()
		t.Fatal("router did not start")
	}
	go module.Run(ctx, nil)

	t.Cleanup(func() {
		cancel()
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		_ = router.Close()
		if err := module.Close(closeCtx); err != nil {
			t.Logf("module close: %v", err)
		}
		_ = bus.Close()
	})

	return HandlerTestDeps{
		Ctx:    ctx,
		Env:    env,
		Module: module,
		Repo:   repo,
		Gen:    testutils.NewTestDataGenerator(),
	}
}

// subscribe opens a subscription before anything is published on topic.
func subscribe(t *testing.T, deps HandlerTestDeps, topic string) <-chan *message.Message {
	t.Helper()
	msgs, err := deps.Env.EventBus.Subscribe(deps.Ctx, topic)
	if err != nil {
		t.Fatalf("Failed to subscribe to %s: %v", topic, err)
	}
	return msgs
}

// waitForGroup decodes the first message on msgs that belongs to groupID.
// Messages of other groups, left over from earlier tests, are acked and skipped.
func waitForGroup[T any](t *testing.T, msgs <-chan *message.Message, groupID statsdomain.GroupID, timeout time.Duration) T {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				t.Fatal("subscription closed")
			}
			msg.Ack()
			if msg.Metadata.Get(statsevents.GroupIDMetadataKey) != string(groupID) {
				continue
			}
			var payload T
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				t.Fatalf("Failed to decode payload: %v", err)
			}
			return payload
		case <-deadline:
			t.Fatalf("no message for group %s within %s", groupID, timeout)
		}
	}
}

func publish(t *testing.T, deps HandlerTestDeps, topic string, groupID statsdomain.GroupID, payload any) {
	t.Helper()
	msg, err := statsevents.NewMessage(nil, topic, string(groupID), payload)
	if err != nil {
		t.Fatalf("Failed to build message: %v", err)
	}
	if err := deps.Env.EventBus.Publish(topic, msg); err != nil {
		t.Fatalf("Failed to publish to %s: %v", topic, err)
	}
}
