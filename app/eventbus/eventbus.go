// Package eventbus provides the Watermill publisher/subscriber pair the
// service uses for events and commands, backed by NATS JetStream in
// production and by Go channels in tests and single-process runs.
package eventbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventBus publishes and subscribes Watermill messages.
type EventBus interface {
	message.Publisher
	message.Subscriber
}

// NATSEventBus is an EventBus over NATS JetStream.
type NATSEventBus struct {
	publisher  *nats.Publisher
	subscriber *nats.Subscriber
	natsConn   *nc.Conn
	js         jetstream.JetStream
	logger     *slog.Logger
}

// NewEventBus connects to NATS, makes sure the service streams exist and
// returns a bus whose subscribers share the queue group of appType.
func NewEventBus(ctx context.Context, natsURL string, logger *slog.Logger, appType string) (*NATSEventBus, error) {
	natsConn, err := nc.Connect(natsURL, nc.RetryOnFailedConnect(true))
	if err != nil {
		logger.Error("Failed to connect to NATS", slog.Any("error", err))
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(natsConn)
	if err != nil {
		natsConn.Close()
		return nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}

	if err := InitializeStreams(ctx, js, logger); err != nil {
		natsConn.Close()
		return nil, err
	}

	wmLogger := watermill.NewSlogLogger(logger)
	marshaler := &nats.NATSMarshaler{}

	publisher, err := nats.NewPublisher(
		nats.PublisherConfig{
			URL:       natsURL,
			Marshaler: marshaler,
			NatsOptions: []nc.Option{
				nc.RetryOnFailedConnect(true),
			},
		},
		wmLogger,
	)
	if err != nil {
		natsConn.Close()
		return nil, fmt.Errorf("failed to create Watermill publisher: %w", err)
	}

	subscriber, err := nats.NewSubscriber(
		nats.SubscriberConfig{
			URL:              natsURL,
			QueueGroupPrefix: appType,
			Unmarshaler:      marshaler,
			NatsOptions: []nc.Option{
				nc.RetryOnFailedConnect(true),
			},
		},
		wmLogger,
	)
	if err != nil {
		natsConn.Close()
		publisher.Close()
		return nil, fmt.Errorf("failed to create Watermill subscriber: %w", err)
	}

	logger.InfoContext(ctx, "Event bus connected", slog.String("url", natsURL), slog.String("app_type", appType))

	return &NATSEventBus{
		publisher:  publisher,
		subscriber: subscriber,
		natsConn:   natsConn,
		js:         js,
		logger:     logger,
	}, nil
}

func (eb *NATSEventBus) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		if msg.UUID == "" {
			msg.UUID = watermill.NewUUID()
		}
		eb.logger.Debug("Publishing message",
			slog.String("topic", topic),
			slog.String("message_id", msg.UUID),
		)
	}
	if err := eb.publisher.Publish(topic, messages...); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (eb *NATSEventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	eb.logger.InfoContext(ctx, "Subscribing to topic", slog.String("topic", topic))
	return eb.subscriber.Subscribe(ctx, topic)
}

// Close closes the publisher, the subscriber and the NATS connection.
func (eb *NATSEventBus) Close() error {
	if err := eb.publisher.Close(); err != nil {
		eb.logger.Error("Error closing NATS publisher", slog.Any("error", err))
	}
	if err := eb.subscriber.Close(); err != nil {
		eb.logger.Error("Error closing NATS subscriber", slog.Any("error", err))
	}
	eb.natsConn.Close()
	return nil
}

var _ EventBus = (*NATSEventBus)(nil)
