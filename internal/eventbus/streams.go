package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"
)

// EnsureStream creates the stats stream, or widens an existing one so it covers
// every subject under the configured prefix.
func EnsureStream(ctx context.Context, js jetstream.JetStream, cfg Config, logger *slog.Logger) error {
	cfg = cfg.withDefaults()
	subject := cfg.SubjectPrefix + ".>"

	stream, err := js.Stream(ctx, cfg.StreamName)
	if errors.Is(err, jetstream.ErrStreamNotFound) {
		_, err = js.CreateStream(ctx, jetstream.StreamConfig{
			Name:      cfg.StreamName,
			Subjects:  []string{subject},
			Retention: jetstream.LimitsPolicy,
			Storage:   jetstream.FileStorage,
			MaxAge:    cfg.MaxAge,
		})
		if err != nil {
			logger.Error("Failed to create JetStream stream", slog.String("stream", cfg.StreamName), slog.Any("error", err))
			return fmt.Errorf("failed to create stream %s: %w", cfg.StreamName, err)
		}
		logger.Info("Created JetStream stream", slog.String("stream", cfg.StreamName), slog.String("subject", subject))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check stream %s: %w", cfg.StreamName, err)
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get stream info: %w", err)
	}
	for _, existing := range info.Config.Subjects {
		if existing == subject {
			return nil
		}
	}

	info.Config.Subjects = append(info.Config.Subjects, subject)
	if _, err := js.UpdateStream(ctx, info.Config); err != nil {
		return fmt.Errorf("failed to update stream with new subject: %w", err)
	}
	logger.Info("Stream updated with new subject", slog.String("stream", cfg.StreamName), slog.String("subject", subject))
	return nil
}
