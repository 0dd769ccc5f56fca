package repository

import (
	"context"
	"fmt"

	"cardex/application"
	"cardex/database"
	"cardex/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the application.UnitOfWork interface
type unitOfWork struct {
	db       *database.DB
	tx       pgx.Tx
	ctx      context.Context
	eventBus interfaces.EventPublisher

	userRepo       *UserRepository
	coinTxRepo     *CoinTransactionRepository
	cardRepo       *CardRepository
	collectionRepo *CollectionRepository
	exchangeRepo   *ExchangeRequestRepository
	recordRepo     *ExchangeRecordRepository
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus interfaces.EventPublisher
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory. Units of work hand
// the given publisher to domain services as their event bus.
func NewUnitOfWorkFactory(db *database.DB, eventBus interfaces.EventPublisher) *unitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

// Create creates a new UnitOfWork with the factory's event publisher
func (f *unitOfWorkFactory) Create() application.UnitOfWork {
	return f.CreateWithPublisher(f.eventBus)
}

// CreateWithPublisher creates a new UnitOfWork with a specific event
// publisher, used by the infrastructure layer to inject a per-transaction
// buffering publisher
func (f *unitOfWorkFactory) CreateWithPublisher(eventBus interfaces.EventPublisher) application.UnitOfWork {
	return &unitOfWork{
		db:       f.db,
		eventBus: eventBus,
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.userRepo = newUserRepository(tx)
	u.coinTxRepo = newCoinTransactionRepository(tx)
	u.cardRepo = newCardRepository(tx)
	u.collectionRepo = newCollectionRepository(tx)
	u.exchangeRepo = newExchangeRequestRepository(tx)
	u.recordRepo = newExchangeRecordRepository(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil
	return nil
}

// Rollback rolls back the transaction. Rolling back an already committed
// unit of work is a no-op, so callers can defer it unconditionally.
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil
	return nil
}

// UserRepository returns the user repository for this unit of work
func (u *unitOfWork) UserRepository() interfaces.UserRepository {
	if u.userRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.userRepo
}

// CoinTransactionRepository returns the coin transaction repository for this unit of work
func (u *unitOfWork) CoinTransactionRepository() interfaces.CoinTransactionRepository {
	if u.coinTxRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.coinTxRepo
}

// CardRepository returns the card repository for this unit of work
func (u *unitOfWork) CardRepository() interfaces.CardRepository {
	if u.cardRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.cardRepo
}

// CollectionRepository returns the collection repository for this unit of work
func (u *unitOfWork) CollectionRepository() interfaces.CollectionRepository {
	if u.collectionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.collectionRepo
}

// ExchangeRequestRepository returns the exchange request repository for this unit of work
func (u *unitOfWork) ExchangeRequestRepository() interfaces.ExchangeRequestRepository {
	if u.exchangeRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.exchangeRepo
}

// ExchangeRecordRepository returns the exchange record repository for this unit of work
func (u *unitOfWork) ExchangeRecordRepository() interfaces.ExchangeRecordRepository {
	if u.recordRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.recordRepo
}

// EventBus returns the event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.eventBus == nil {
		panic("event publisher not configured")
	}
	return u.eventBus
}
