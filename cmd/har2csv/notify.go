package main

import (
	"context"
	"log/slog"

	"github.com/MikeSquared-Agency/har2csv/internal/hermes"
	"github.com/MikeSquared-Agency/har2csv/internal/pipeline"
	"github.com/MikeSquared-Agency/har2csv/internal/slack"
)

// newRunner wires the optional NATS and Slack integrations into a runner.
// The returned cleanup closes whatever was opened.
func newRunner(ctx context.Context, marker string) (*pipeline.Runner, func()) {
	cleanup := func() {}

	// NATS/Hermes (optional)
	var publisher pipeline.Publisher
	if cfg.NatsURL != "" {
		hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Warn("failed to connect to NATS, running without events", "error", err)
		} else {
			slog.Info("NATS connected", "url", cfg.NatsURL)
			publisher = hermesClient
			cleanup = hermesClient.Close
		}
	}

	// Slack poster (optional, summaries are logged otherwise)
	var poster pipeline.Poster
	if cfg.SlackToken != "" && cfg.SlackChannel != "" {
		poster = slack.NewPoster(cfg.SlackToken, cfg.SlackChannel, slog.Default())
		slog.Info("slack poster ready", "channel", cfg.SlackChannel)
	}

	return pipeline.NewRunner(pipeline.Config{Marker: marker}, publisher, poster, slog.Default()), cleanup
}
