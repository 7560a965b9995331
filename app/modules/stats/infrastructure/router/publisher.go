package statsrouter

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	statsevents "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/events"
)

// TopicPublisher sends each message to the topic named in its metadata, falling
// back to the topic the router passes in.
type TopicPublisher struct {
	next message.Publisher
}

// NewTopicPublisher wraps next.
func NewTopicPublisher(next message.Publisher) *TopicPublisher {
	return &TopicPublisher{next: next}
}

func (p *TopicPublisher) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		target := getPublishTopic(msg, topic)
		if target == "" {
			return fmt.Errorf("message %s has no destination topic", msg.UUID)
		}
		if err := p.next.Publish(target, msg); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; the wrapped publisher is owned by the event bus.
func (p *TopicPublisher) Close() error { return nil }

func getPublishTopic(msg *message.Message, fallback string) string {
	if topic := msg.Metadata.Get(statsevents.TopicMetadataKey); topic != "" {
		return topic
	}
	return fallback
}
