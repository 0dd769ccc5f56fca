package infrastructure

import (
	"context"

	"cardex/domain/events"
	"cardex/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// NATSTransactionalPublisher holds events until flush so nothing leaves the
// process before the database transaction that produced it has committed
type NATSTransactionalPublisher struct {
	realPublisher interfaces.EventPublisher
	pending       []events.Event
}

// NewNATSTransactionalPublisher creates a new transactional publisher
func NewNATSTransactionalPublisher(realPublisher interfaces.EventPublisher) *NATSTransactionalPublisher {
	return &NATSTransactionalPublisher{
		realPublisher: realPublisher,
		pending:       make([]events.Event, 0),
	}
}

// Publish stores an event in the pending queue without publishing it
func (p *NATSTransactionalPublisher) Publish(event events.Event) error {
	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"pendingCount": len(p.pending),
	}).Debug("Buffered event pending transaction commit")

	p.pending = append(p.pending, event)
	return nil
}

// Flush publishes all pending events; called after a successful commit.
// A single failing event is logged and skipped so it cannot block the rest.
func (p *NATSTransactionalPublisher) Flush(ctx context.Context) error {
	for _, event := range p.pending {
		if err := p.realPublisher.Publish(event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Failed to publish event during flush")
		}
	}

	p.pending = p.pending[:0]
	return nil
}

// Discard drops all pending events; called on rollback
func (p *NATSTransactionalPublisher) Discard() {
	if len(p.pending) > 0 {
		log.WithFields(log.Fields{
			"discardedEventCount": len(p.pending),
		}).Debug("Discarded pending events after rollback")
	}

	p.pending = p.pending[:0]
}
