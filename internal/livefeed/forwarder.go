package livefeed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	statsevents "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/events"
)

// frame is what a watcher receives for each event.
type frame struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Forward subscribes to every outbound stats topic and hands each message to
// the hub. It returns once all subscriptions are open; delivery stops with ctx.
func (h *Hub) Forward(ctx context.Context, sub message.Subscriber) error {
	for _, topic := range statsevents.OutboundTopics() {
		msgs, err := sub.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("failed to subscribe live feed to %s: %w", topic, err)
		}
		go h.pump(ctx, topic, msgs)
	}
	return nil
}

func (h *Hub) pump(ctx context.Context, topic string, msgs <-chan *message.Message) {
	for msg := range msgs {
		groupID := msg.Metadata.Get(statsevents.GroupIDMetadataKey)
		if groupID == "" || h.Watchers(groupID) == 0 {
			msg.Ack()
			continue
		}
		data, err := encodeFrame(topic, msg.Payload)
		if err != nil {
			h.logger.Warn("Dropping undecodable live feed event", "topic", topic, "error", err)
			msg.Ack()
			continue
		}
		if err := h.Publish(ctx, Event{GroupID: groupID, Data: data}); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	}
}

func encodeFrame(topic string, payload []byte) ([]byte, error) {
	return json.Marshal(frame{Topic: topic, Payload: payload})
}
