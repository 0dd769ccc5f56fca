package repository

import (
	"cardex/application"
	"cardex/database"
	"cardex/domain/events"
	"cardex/domain/interfaces"
)

// noopPublisher drops events; repository tests assert on rows, not events
type noopPublisher struct{}

func (noopPublisher) Publish(event events.Event) error { return nil }

// NewTestUnitOfWorkFactory creates a unit of work factory for tests with a
// no-op event publisher
func NewTestUnitOfWorkFactory(db *database.DB) *unitOfWorkFactory {
	return NewUnitOfWorkFactory(db, noopPublisher{})
}

// CreateTestUnitOfWork creates a unit of work for testing with the provided
// event publisher
func CreateTestUnitOfWork(db *database.DB, eventBus interfaces.EventPublisher) application.UnitOfWork {
	return NewUnitOfWorkFactory(db, eventBus).Create()
}
