package statshandlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	statsevents "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Result is one outbound event produced by a handler.
type Result struct {
	Topic   string
	GroupID string
	Payload any
}

// Metrics records handler outcomes.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
}

const metricsService = "stats_handlers"

// WrapTyped turns a typed handler into a watermill handler. The payload is decoded
// from JSON; a body that cannot be decoded is logged and acknowledged, since
// redelivering it can never succeed. Returned results become messages that carry
// their destination in the "topic" metadata key.
func WrapTyped[T any](
	handlerName string,
	logger *slog.Logger,
	tracer trace.Tracer,
	metrics Metrics,
	handle func(ctx context.Context, payload *T) ([]Result, error),
) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		ctx, span := tracer.Start(msg.Context(), handlerName, trace.WithAttributes(
			attribute.String("message.uuid", msg.UUID),
			attribute.String("correlation_id", middleware.MessageCorrelationID(msg)),
		))
		defer span.End()

		start := time.Now()
		metrics.RecordOperationAttempt(ctx, handlerName, metricsService)
		defer func() {
			metrics.RecordOperationDuration(ctx, handlerName, metricsService, time.Since(start))
		}()

		ctxLogger := logger.With(
			slog.String("handler", handlerName),
			slog.String("message_id", msg.UUID),
			slog.String("correlation_id", middleware.MessageCorrelationID(msg)),
		)

		payload := new(T)
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			ctxLogger.ErrorContext(ctx, "Dropping message with undecodable payload", slog.Any("error", err))
			span.SetStatus(codes.Error, "undecodable payload")
			metrics.RecordOperationFailure(ctx, handlerName, metricsService)
			return nil, nil
		}

		results, err := handle(ctx, payload)
		if err != nil {
			ctxLogger.ErrorContext(ctx, "Handler failed", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.RecordOperationFailure(ctx, handlerName, metricsService)
			return nil, fmt.Errorf("%s: %w", handlerName, err)
		}

		out := make([]*message.Message, 0, len(results))
		for _, r := range results {
			m, err := statsevents.NewMessage(msg, r.Topic, r.GroupID, r.Payload)
			if err != nil {
				metrics.RecordOperationFailure(ctx, handlerName, metricsService)
				return nil, err
			}
			out = append(out, m)
		}

		metrics.RecordOperationSuccess(ctx, handlerName, metricsService)
		return out, nil
	}
}
