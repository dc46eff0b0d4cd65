package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/compstaff/compstaff/app/observability/attr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MetadataTopic names the metadata key carrying a produced message's
// destination topic.
const MetadataTopic = "topic"

// Result is one outgoing message produced by a typed handler.
type Result struct {
	Topic    string
	Payload  any
	Metadata map[string]string
}

// NewMessage marshals payload as JSON and tags the message with topic and the
// correlation id found on ctx.
func NewMessage(ctx context.Context, topic string, payload any) (*message.Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload for %s: %w", topic, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), body)
	msg.Metadata.Set(MetadataTopic, topic)
	if id := attr.CorrelationID(ctx); id != "" {
		middleware.SetCorrelationID(id, msg)
	}
	return msg, nil
}

// WrapTransformingTyped adapts a handler over a JSON payload of type T into a
// Watermill handler. Messages that do not decode are logged and acknowledged.
func WrapTransformingTyped[T any](
	handlerName string,
	logger *slog.Logger,
	tracer trace.Tracer,
	handler func(ctx context.Context, payload *T) ([]Result, error),
) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		ctx := msg.Context()
		if id := middleware.MessageCorrelationID(msg); id != "" {
			ctx = attr.WithCorrelationID(ctx, id)
		}

		ctx, span := tracer.Start(ctx, handlerName, trace.WithAttributes(
			attribute.String("message_id", msg.UUID),
		))
		defer span.End()

		payload := new(T)
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			logger.ErrorContext(ctx, "Dropping message with undecodable payload",
				attr.ExtractCorrelationID(ctx),
				attr.String("handler", handlerName),
				attr.String("message_id", msg.UUID),
				attr.Error(err),
			)
			span.RecordError(err)
			return nil, nil
		}

		results, err := handler(ctx, payload)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		out := make([]*message.Message, 0, len(results))
		for _, r := range results {
			m, err := NewMessage(ctx, r.Topic, r.Payload)
			if err != nil {
				return nil, err
			}
			for k, v := range r.Metadata {
				m.Metadata.Set(k, v)
			}
			out = append(out, m)
		}
		return out, nil
	}
}

// TopicPublisher publishes every message to the topic named in its metadata,
// ignoring the topic the router passes in.
type TopicPublisher struct {
	message.Publisher
	Logger *slog.Logger
}

func (p TopicPublisher) Publish(_ string, messages ...*message.Message) error {
	for _, m := range messages {
		topic := m.Metadata.Get(MetadataTopic)
		if topic == "" {
			p.Logger.Error("Message has no destination topic, dropping",
				attr.String("message_id", m.UUID),
				attr.CorrelationIDFromMsg(m),
			)
			continue
		}
		if err := p.Publisher.Publish(topic, m); err != nil {
			return fmt.Errorf("failed to publish to %s: %w", topic, err)
		}
	}
	return nil
}
