// Package attr holds the slog attribute helpers used across the service.
package attr

import (
	"context"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

type correlationIDKey struct{}

// WithCorrelationID stores a correlation id on the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID returns the correlation id stored on ctx, if any.
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// ExtractCorrelationID returns the context's correlation id as an attribute.
func ExtractCorrelationID(ctx context.Context) slog.Attr {
	return slog.String("correlation_id", CorrelationID(ctx))
}

// CorrelationIDFromMsg returns the message's correlation id as an attribute.
func CorrelationIDFromMsg(msg *message.Message) slog.Attr {
	if msg == nil {
		return slog.String("correlation_id", "")
	}
	return slog.String("correlation_id", msg.Metadata.Get(middleware.CorrelationIDMetadataKey))
}

func String(key, value string) slog.Attr { return slog.String(key, value) }

func Int(key string, value int) slog.Attr { return slog.Int(key, value) }

func Int64(key string, value int64) slog.Attr { return slog.Int64(key, value) }

func Bool(key string, value bool) slog.Attr { return slog.Bool(key, value) }

func Float(key string, value float64) slog.Attr { return slog.Float64(key, value) }

func Any(key string, value any) slog.Attr { return slog.Any(key, value) }

func Time(key string, value time.Time) slog.Attr { return slog.Time(key, value) }

func Duration(key string, value time.Duration) slog.Attr { return slog.Duration(key, value) }

// Error renders err under the "error" key; nil renders as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

func CompetitionID(id string) slog.Attr { return slog.String("competition_id", id) }

func RoundCode(code string) slog.Attr { return slog.String("round_code", code) }

func RegistrantID(id int) slog.Attr { return slog.Int("registrant_id", id) }

func ActivityID(id int) slog.Attr { return slog.Int("activity_id", id) }

func GeneratorID(id string) slog.Attr { return slog.String("generator_id", id) }
