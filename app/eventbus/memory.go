package eventbus

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// NewInMemoryEventBus returns an EventBus that delivers messages between
// goroutines of this process only.
func NewInMemoryEventBus(logger *slog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewSlogLogger(logger),
	)
}

var _ EventBus = (*gochannel.GoChannel)(nil)
