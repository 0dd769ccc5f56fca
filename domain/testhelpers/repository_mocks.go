package testhelpers

import (
	"context"
	"time"

	"cardex/domain/entities"
	"cardex/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, username string, initialBalance int64) (*entities.User, error) {
	args := m.Called(ctx, username, initialBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) Credit(ctx context.Context, userID int64, amount int64) (int64, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) Debit(ctx context.Context, userID int64, amount int64) (int64, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) IncrementExchangeCount(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockCoinTransactionRepository is a mock implementation of CoinTransactionRepository
type MockCoinTransactionRepository struct {
	mock.Mock
}

func (m *MockCoinTransactionRepository) Record(ctx context.Context, tx *entities.CoinTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockCoinTransactionRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*entities.CoinTransaction, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.CoinTransaction), args.Error(1)
}

func (m *MockCoinTransactionRepository) GetByExchange(ctx context.Context, exchangeID int64) ([]*entities.CoinTransaction, error) {
	args := m.Called(ctx, exchangeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.CoinTransaction), args.Error(1)
}

// MockCardRepository is a mock implementation of CardRepository
type MockCardRepository struct {
	mock.Mock
}

func (m *MockCardRepository) GetByID(ctx context.Context, id int64) (*entities.Card, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Card), args.Error(1)
}

func (m *MockCardRepository) IncrementExchangeCount(ctx context.Context, cardID int64) error {
	args := m.Called(ctx, cardID)
	return args.Error(0)
}

// MockCollectionRepository is a mock implementation of CollectionRepository
type MockCollectionRepository struct {
	mock.Mock
}

func (m *MockCollectionRepository) HasCollected(ctx context.Context, userID, cardID int64) (bool, error) {
	args := m.Called(ctx, userID, cardID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCollectionRepository) Grant(ctx context.Context, userID, cardID int64) error {
	args := m.Called(ctx, userID, cardID)
	return args.Error(0)
}

// MockExchangeRequestRepository is a mock implementation of ExchangeRequestRepository
type MockExchangeRequestRepository struct {
	mock.Mock
}

func (m *MockExchangeRequestRepository) Create(ctx context.Context, req *entities.ExchangeRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockExchangeRequestRepository) GetByID(ctx context.Context, id int64) (*entities.ExchangeRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ExchangeRequest), args.Error(1)
}

func (m *MockExchangeRequestRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.ExchangeRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ExchangeRequest), args.Error(1)
}

func (m *MockExchangeRequestRepository) HasPendingForCard(ctx context.Context, requesterID, cardID int64) (bool, error) {
	args := m.Called(ctx, requesterID, cardID)
	return args.Bool(0), args.Error(1)
}

func (m *MockExchangeRequestRepository) TransitionFromPending(ctx context.Context, id int64, to entities.ExchangeStatus) (bool, error) {
	args := m.Called(ctx, id, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockExchangeRequestRepository) ListPendingByOwner(ctx context.Context, ownerID int64, now time.Time) ([]*entities.ExchangeRequest, error) {
	args := m.Called(ctx, ownerID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ExchangeRequest), args.Error(1)
}

func (m *MockExchangeRequestRepository) ListByRequester(ctx context.Context, requesterID int64) ([]*entities.ExchangeRequest, error) {
	args := m.Called(ctx, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ExchangeRequest), args.Error(1)
}

func (m *MockExchangeRequestRepository) ListExpiredPendingIDs(ctx context.Context, now time.Time) ([]int64, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// MockExchangeRecordRepository is a mock implementation of ExchangeRecordRepository
type MockExchangeRecordRepository struct {
	mock.Mock
}

func (m *MockExchangeRecordRepository) Create(ctx context.Context, rec *entities.ExchangeRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockExchangeRecordRepository) GetHistoryPage(ctx context.Context, userID int64, limit, offset int) (*entities.ExchangeHistoryPage, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ExchangeHistoryPage), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// NoopEventPublisher swallows every event; for tests that do not assert on them
type NoopEventPublisher struct{}

func (NoopEventPublisher) Publish(event events.Event) error {
	return nil
}
