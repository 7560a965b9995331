package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Config describes the NATS connection and the stream that carries stats events.
type Config struct {
	URL string
	// StreamName is the JetStream stream holding every subject under SubjectPrefix.
	StreamName    string
	SubjectPrefix string
	// DurablePrefix names the durable consumers so restarts resume where they left off.
	DurablePrefix string
	AckWait       time.Duration
	MaxAge        time.Duration
}

func (c Config) withDefaults() Config {
	if c.StreamName == "" {
		c.StreamName = "STATS"
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = "stats"
	}
	if c.DurablePrefix == "" {
		c.DurablePrefix = "statsd"
	}
	if c.AckWait <= 0 {
		c.AckWait = 30 * time.Second
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 7 * 24 * time.Hour
	}
	return c
}

// EventBus is a watermill publisher and subscriber backed by NATS JetStream.
type EventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	js         jetstream.JetStream
	natsConn   *nc.Conn
	logger     *slog.Logger
	config     Config
}

var (
	_ message.Publisher  = (*EventBus)(nil)
	_ message.Subscriber = (*EventBus)(nil)
)

// NewEventBus connects to NATS, makes sure the stream exists and builds the
// watermill publisher and subscriber on top of it.
func NewEventBus(ctx context.Context, cfg Config, logger *slog.Logger) (*EventBus, error) {
	cfg = cfg.withDefaults()
	options := connectOptions(logger)

	natsConn, err := nc.Connect(cfg.URL, options...)
	if err != nil {
		logger.Error("Failed to connect to NATS", slog.Any("error", err))
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(natsConn)
	if err != nil {
		natsConn.Close()
		logger.Error("Failed to initialize JetStream", slog.Any("error", err))
		return nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}

	if err := EnsureStream(ctx, js, cfg, logger); err != nil {
		natsConn.Close()
		return nil, err
	}

	wmLogger := watermill.NewSlogLogger(logger)
	marshaler := &nats.NATSMarshaler{}

	publisher, err := nats.NewPublisher(
		nats.PublisherConfig{
			URL:               cfg.URL,
			NatsOptions:       options,
			Marshaler:         marshaler,
			SubjectCalculator: nats.DefaultSubjectCalculator,
			JetStream: nats.JetStreamConfig{
				AutoProvision: false,
				TrackMsgId:    true,
			},
		},
		wmLogger,
	)
	if err != nil {
		natsConn.Close()
		logger.Error("Failed to create Watermill publisher", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create Watermill publisher: %w", err)
	}

	subscriber, err := nats.NewSubscriber(
		nats.SubscriberConfig{
			URL:               cfg.URL,
			NatsOptions:       options,
			Unmarshaler:       marshaler,
			AckWaitTimeout:    cfg.AckWait,
			CloseTimeout:      30 * time.Second,
			SubjectCalculator: nats.DefaultSubjectCalculator,
			JetStream: nats.JetStreamConfig{
				AutoProvision:     false,
				DurablePrefix:     cfg.DurablePrefix,
				DurableCalculator: DurableName,
				SubscribeOptions: []nc.SubOpt{
					nc.DeliverAll(),
					nc.AckExplicit(),
				},
			},
		},
		wmLogger,
	)
	if err != nil {
		natsConn.Close()
		_ = publisher.Close()
		logger.Error("Failed to create Watermill subscriber", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create Watermill subscriber: %w", err)
	}

	logger.Info("Event bus connected",
		slog.String("url", natsConn.ConnectedUrlRedacted()),
		slog.String("stream", cfg.StreamName),
	)

	return &EventBus{
		publisher:  publisher,
		subscriber: subscriber,
		js:         js,
		natsConn:   natsConn,
		logger:     logger,
		config:     cfg,
	}, nil
}

func connectOptions(logger *slog.Logger) []nc.Option {
	return []nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.MaxReconnects(-1),
		nc.ReconnectWait(2 * time.Second),
		nc.Timeout(30 * time.Second),
		nc.ErrorHandler(func(_ *nc.Conn, s *nc.Subscription, err error) {
			if s != nil {
				logger.Error("Error in NATS subscription", slog.String("subject", s.Subject), slog.Any("error", err))
				return
			}
			logger.Error("Error in NATS connection", slog.Any("error", err))
		}),
	}
}

// DurableName builds a consumer name from prefix and topic. JetStream rejects dots
// in durable names, so they become underscores.
func DurableName(prefix, topic string) string {
	if prefix == "" {
		return ""
	}
	r := strings.NewReplacer(".", "_", "*", "all", ">", "rest", " ", "_")
	return prefix + "_" + r.Replace(topic)
}

// Publish implements message.Publisher.
func (eb *EventBus) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		if msg.UUID == "" {
			msg.UUID = watermill.NewUUID()
		}
	}
	if err := eb.publisher.Publish(topic, messages...); err != nil {
		eb.logger.Error("Failed to publish message", slog.String("topic", topic), slog.Any("error", err))
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	eb.logger.Debug("Published messages", slog.String("topic", topic), slog.Int("count", len(messages)))
	return nil
}

// Subscribe implements message.Subscriber.
func (eb *EventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	eb.logger.Info("Subscribing to topic", slog.String("topic", topic))
	messages, err := eb.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}
	return messages, nil
}

// HealthCheck reports whether the NATS connection is usable.
func (eb *EventBus) HealthCheck(ctx context.Context) error {
	if eb.natsConn == nil || !eb.natsConn.IsConnected() {
		return errors.New("nats connection is not established")
	}
	if _, err := eb.js.Stream(ctx, eb.config.StreamName); err != nil {
		return fmt.Errorf("stream %s unavailable: %w", eb.config.StreamName, err)
	}
	return nil
}

// Close closes all NATS and Watermill resources.
func (eb *EventBus) Close() error {
	var errs []error
	if eb.subscriber != nil {
		if err := eb.subscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close subscriber: %w", err))
		}
	}
	if eb.publisher != nil {
		if err := eb.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close publisher: %w", err))
		}
	}
	if eb.natsConn != nil {
		eb.natsConn.Close()
	}
	return errors.Join(errs...)
}
