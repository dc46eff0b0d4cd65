package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"
)

// StreamConfigs are the JetStream streams the service publishes into.
var StreamConfigs = []jetstream.StreamConfig{
	{
		Name:     "competition",
		Subjects: []string{"competition.>"},
	},
}

// InitializeStreams creates any missing stream and adds subjects missing from
// existing ones.
func InitializeStreams(ctx context.Context, js jetstream.JetStream, logger *slog.Logger) error {
	for _, cfg := range StreamConfigs {
		stream, err := js.Stream(ctx, cfg.Name)
		if errors.Is(err, jetstream.ErrStreamNotFound) {
			if _, err := js.CreateStream(ctx, cfg); err != nil {
				logger.Error("Failed to create JetStream stream", slog.String("stream", cfg.Name), slog.Any("error", err))
				return fmt.Errorf("failed to create stream %s: %w", cfg.Name, err)
			}
			logger.Info("Created JetStream stream", slog.String("stream", cfg.Name))
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to check stream %s: %w", cfg.Name, err)
		}

		info, err := stream.Info(ctx)
		if err != nil {
			return fmt.Errorf("failed to get stream info for %s: %w", cfg.Name, err)
		}
		missing := missingSubjects(info.Config.Subjects, cfg.Subjects)
		if len(missing) == 0 {
			continue
		}
		info.Config.Subjects = append(info.Config.Subjects, missing...)
		if _, err := js.UpdateStream(ctx, info.Config); err != nil {
			return fmt.Errorf("failed to update stream %s: %w", cfg.Name, err)
		}
		logger.Info("Stream updated with new subjects", slog.String("stream", cfg.Name), slog.Any("subjects", missing))
	}
	return nil
}

func missingSubjects(have, want []string) []string {
	present := make(map[string]bool, len(have))
	for _, s := range have {
		present[s] = true
	}
	var out []string
	for _, s := range want {
		if !present[s] {
			out = append(out, s)
		}
	}
	return out
}
