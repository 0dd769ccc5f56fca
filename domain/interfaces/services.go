package interfaces

import (
	"context"

	"cardex/domain/events"
)

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher buffers events during a transaction and
// publishes them only after the transaction commits
type TransactionalEventPublisher interface {
	EventPublisher

	// Flush publishes all buffered events; called after a successful commit
	Flush(ctx context.Context) error

	// Discard drops all buffered events; called on rollback
	Discard()
}
