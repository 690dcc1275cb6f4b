package events

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/matejonnet/dependency-analysis/pkg/commsutil"
)

const commsPublisherLogPrefix = "events:comms_publisher"

// CommsPublisherOpts configures CommsPublisher. Nil or zero values use defaults.
type CommsPublisherOpts struct {
	// ChangeSubject overrides the base change event subject (CHANGE_EVENT_SUBJECT).
	ChangeSubject string
}

// CommsPublisher publishes whitelist change events to COMMS subjects.
type CommsPublisher struct {
	nc            *comms.Conn
	changeSubject string
}

// NewCommsPublisher creates a new CommsPublisher. Pass nil for opts to use defaults.
func NewCommsPublisher(nc *comms.Conn, opts *CommsPublisherOpts) *CommsPublisher {
	subject := commsutil.SubjectChangeEvent
	if opts != nil && opts.ChangeSubject != "" {
		subject = opts.ChangeSubject
	}
	return &CommsPublisher{nc: nc, changeSubject: subject}
}

// PublishWhitelistChanged publishes the event to the per-product subject and to the base subject.
func (p *CommsPublisher) PublishWhitelistChanged(_ context.Context, event *WhitelistChangedEvent) error {
	data, err := commsutil.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", commsPublisherLogPrefix, err)
	}

	for _, subject := range []string{commsutil.BuildChangeSubject(p.changeSubject, event.ProductID), p.changeSubject} {
		if err := p.nc.Publish(subject, data); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, subject, err))
			return fmt.Errorf("%s - publish to %s: %w", commsPublisherLogPrefix, subject, err)
		}
	}

	slog.Debug(fmt.Sprintf("%s - Published whitelist change for product %d (%d artifacts)", commsPublisherLogPrefix, event.ProductID, len(event.Artifacts)))
	return nil
}
