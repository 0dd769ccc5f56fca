package infrastructure

import (
	"context"

	"cardex/application"
	"cardex/domain/interfaces"
)

// unitOfWork wraps the repository UnitOfWork and ties event publishing to the
// transaction outcome: flush after commit, discard on rollback
type unitOfWork struct {
	inner                  application.UnitOfWork
	transactionalPublisher *NATSTransactionalPublisher
	ctx                    context.Context
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	u.ctx = ctx
	return u.inner.Begin(ctx)
}

// Commit commits the transaction and flushes buffered events on success.
// Publishing is best-effort after commit; its errors are not surfaced because
// the database state is already final.
func (u *unitOfWork) Commit() error {
	if err := u.inner.Commit(); err != nil {
		return err
	}

	_ = u.transactionalPublisher.Flush(u.ctx)
	return nil
}

// Rollback discards buffered events and rolls the transaction back
func (u *unitOfWork) Rollback() error {
	u.transactionalPublisher.Discard()
	return u.inner.Rollback()
}

func (u *unitOfWork) UserRepository() interfaces.UserRepository {
	return u.inner.UserRepository()
}

func (u *unitOfWork) CoinTransactionRepository() interfaces.CoinTransactionRepository {
	return u.inner.CoinTransactionRepository()
}

func (u *unitOfWork) CardRepository() interfaces.CardRepository {
	return u.inner.CardRepository()
}

func (u *unitOfWork) CollectionRepository() interfaces.CollectionRepository {
	return u.inner.CollectionRepository()
}

func (u *unitOfWork) ExchangeRequestRepository() interfaces.ExchangeRequestRepository {
	return u.inner.ExchangeRequestRepository()
}

func (u *unitOfWork) ExchangeRecordRepository() interfaces.ExchangeRecordRepository {
	return u.inner.ExchangeRecordRepository()
}

// EventBus returns the transactional event publisher
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	return u.transactionalPublisher
}
