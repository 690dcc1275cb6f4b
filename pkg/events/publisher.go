package events

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.uber.org/multierr"
)

const publisherLogPrefix = "events:publisher"

// EventPublisher publishes whitelist change events.
type EventPublisher interface {
	PublishWhitelistChanged(ctx context.Context, event *WhitelistChangedEvent) error
}

// PublisherFunc adapts a function to EventPublisher.
type PublisherFunc func(ctx context.Context, event *WhitelistChangedEvent) error

// PublishWhitelistChanged calls f.
func (f PublisherFunc) PublishWhitelistChanged(ctx context.Context, event *WhitelistChangedEvent) error {
	return f(ctx, event)
}

// NoOpPublisher discards events.
type NoOpPublisher struct{}

func (NoOpPublisher) PublishWhitelistChanged(context.Context, *WhitelistChangedEvent) error {
	return nil
}

// LogPublisher writes every event to the default slog logger at info level.
type LogPublisher struct{}

func (LogPublisher) PublishWhitelistChanged(_ context.Context, event *WhitelistChangedEvent) error {
	msg := fmt.Sprintf("%s - whitelist of product %d changed via %s: %s", publisherLogPrefix,
		event.ProductID, event.Source, strings.Join(event.Artifacts, ", "))
	if event.SCMURL != "" {
		msg += fmt.Sprintf(" (%s@%s)", event.SCMURL, event.Revision)
	}
	slog.Info(msg)
	return nil
}

// MultiPublisher publishes to every publisher in order. One failing publisher does not stop
// the others; all errors are returned together.
type MultiPublisher []EventPublisher

func (m MultiPublisher) PublishWhitelistChanged(ctx context.Context, event *WhitelistChangedEvent) error {
	var errs error
	for _, p := range m {
		errs = multierr.Append(errs, p.PublishWhitelistChanged(ctx, event))
	}
	return errs
}
