package statsevents

import (
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// Metadata keys set on every stats message.
const (
	TopicMetadataKey   = "topic"
	GroupIDMetadataKey = "group_id"
)

// NewMessage marshals payload into a message bound for topic. When parent is not
// nil its correlation id is carried over.
func NewMessage(parent *message.Message, topic, groupID string, payload any) (*message.Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), body)
	msg.Metadata.Set(TopicMetadataKey, topic)
	msg.Metadata.Set(GroupIDMetadataKey, groupID)

	correlationID := ""
	if parent != nil {
		correlationID = middleware.MessageCorrelationID(parent)
		msg.SetContext(parent.Context())
	}
	if correlationID == "" {
		correlationID = watermill.NewUUID()
	}
	middleware.SetCorrelationID(correlationID, msg)

	return msg, nil
}

// Decode unmarshals a message body into payload.
func Decode(msg *message.Message, payload any) error {
	if err := json.Unmarshal(msg.Payload, payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload of message %s: %w", msg.UUID, err)
	}
	return nil
}
