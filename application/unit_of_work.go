package application

import (
	"context"

	"cardex/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	UserRepository() interfaces.UserRepository
	CoinTransactionRepository() interfaces.CoinTransactionRepository
	CardRepository() interfaces.CardRepository
	CollectionRepository() interfaces.CollectionRepository
	ExchangeRequestRepository() interfaces.ExchangeRequestRepository
	ExchangeRecordRepository() interfaces.ExchangeRecordRepository
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create creates a new UnitOfWork instance
	Create() UnitOfWork
}
