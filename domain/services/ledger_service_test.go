package services

import (
	"context"
	"testing"

	"cardex/domain/apperror"
	"cardex/domain/entities"
	"cardex/domain/events"
	"cardex/domain/interfaces"
	"cardex/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLedgerService_AddCoins(t *testing.T) {
	ctx := context.Background()
	exchangeID := int64(42)

	t.Run("credits balance and records entry", func(t *testing.T) {
		userRepo := new(testhelpers.MockUserRepository)
		txRepo := new(testhelpers.MockCoinTransactionRepository)
		eventBus := new(testhelpers.MockEventPublisher)
		service := NewLedgerService(userRepo, txRepo, eventBus)

		userRepo.On("Credit", ctx, int64(1), int64(25)).Return(int64(125), nil)
		txRepo.On("Record", ctx, mock.MatchedBy(func(tx *entities.CoinTransaction) bool {
			return tx.UserID == 1 &&
				tx.Amount == 25 &&
				tx.Reason == entities.CoinReasonCardExchanged &&
				tx.ReferenceID != nil && *tx.ReferenceID == exchangeID &&
				tx.BalanceAfter == 125
		})).Return(nil)
		eventBus.On("Publish", mock.MatchedBy(func(e events.Event) bool {
			bc, ok := e.(events.BalanceChangeEvent)
			return ok && bc.UserID == 1 && bc.OldBalance == 100 && bc.NewBalance == 125
		})).Return(nil)

		balance, err := service.AddCoins(ctx, 1, 25, entities.CoinReasonCardExchanged, &exchangeID)

		require.NoError(t, err)
		assert.Equal(t, int64(125), balance)
		userRepo.AssertExpectations(t)
		txRepo.AssertExpectations(t)
		eventBus.AssertExpectations(t)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		userRepo := new(testhelpers.MockUserRepository)
		txRepo := new(testhelpers.MockCoinTransactionRepository)
		service := NewLedgerService(userRepo, txRepo, testhelpers.NoopEventPublisher{})

		_, err := service.AddCoins(ctx, 1, 0, entities.CoinReasonDailyLogin, nil)

		assert.Equal(t, apperror.CodeInvalidAmount, apperror.CodeOf(err))
		userRepo.AssertNotCalled(t, "Credit")
	})

	t.Run("maps missing user to not found", func(t *testing.T) {
		userRepo := new(testhelpers.MockUserRepository)
		txRepo := new(testhelpers.MockCoinTransactionRepository)
		service := NewLedgerService(userRepo, txRepo, testhelpers.NoopEventPublisher{})

		userRepo.On("Credit", ctx, int64(99), int64(10)).Return(int64(0), interfaces.ErrUserNotFound)

		_, err := service.AddCoins(ctx, 99, 10, entities.CoinReasonDailyLogin, nil)

		assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
		txRepo.AssertNotCalled(t, "Record")
	})
}

func TestLedgerService_DeductCoins(t *testing.T) {
	ctx := context.Background()
	exchangeID := int64(7)

	t.Run("debits balance and records signed entry", func(t *testing.T) {
		userRepo := new(testhelpers.MockUserRepository)
		txRepo := new(testhelpers.MockCoinTransactionRepository)
		service := NewLedgerService(userRepo, txRepo, testhelpers.NoopEventPublisher{})

		userRepo.On("Debit", ctx, int64(1), int64(30)).Return(int64(70), nil)
		txRepo.On("Record", ctx, mock.MatchedBy(func(tx *entities.CoinTransaction) bool {
			return tx.Amount == -30 &&
				tx.Reason == entities.CoinReasonExchangePurchase &&
				tx.BalanceAfter == 70
		})).Return(nil)

		balance, err := service.DeductCoins(ctx, 1, 30, entities.CoinReasonExchangePurchase, &exchangeID)

		require.NoError(t, err)
		assert.Equal(t, int64(70), balance)
		txRepo.AssertExpectations(t)
	})

	t.Run("maps insufficient balance without recording", func(t *testing.T) {
		userRepo := new(testhelpers.MockUserRepository)
		txRepo := new(testhelpers.MockCoinTransactionRepository)
		service := NewLedgerService(userRepo, txRepo, testhelpers.NoopEventPublisher{})

		userRepo.On("Debit", ctx, int64(1), int64(500)).Return(int64(0), interfaces.ErrInsufficientBalance)

		_, err := service.DeductCoins(ctx, 1, 500, entities.CoinReasonExchangePurchase, &exchangeID)

		assert.Equal(t, apperror.CodeInsufficientBalance, apperror.CodeOf(err))
		assert.True(t, apperror.IsInsufficientBalance(err))
		txRepo.AssertNotCalled(t, "Record")
	})

	t.Run("rejects negative amount", func(t *testing.T) {
		userRepo := new(testhelpers.MockUserRepository)
		txRepo := new(testhelpers.MockCoinTransactionRepository)
		service := NewLedgerService(userRepo, txRepo, testhelpers.NoopEventPublisher{})

		_, err := service.DeductCoins(ctx, 1, -5, entities.CoinReasonExchangePurchase, nil)

		assert.Equal(t, apperror.CodeInvalidAmount, apperror.CodeOf(err))
		userRepo.AssertNotCalled(t, "Debit")
	})
}

func TestLedgerService_GetBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("returns stored balance", func(t *testing.T) {
		userRepo := new(testhelpers.MockUserRepository)
		service := NewLedgerService(userRepo, new(testhelpers.MockCoinTransactionRepository), testhelpers.NoopEventPublisher{})

		userRepo.On("GetByID", ctx, int64(1)).Return(&entities.User{ID: 1, CoinBalance: 140}, nil)

		balance, err := service.GetBalance(ctx, 1)

		require.NoError(t, err)
		assert.Equal(t, int64(140), balance)
	})

	t.Run("missing user is not found", func(t *testing.T) {
		userRepo := new(testhelpers.MockUserRepository)
		service := NewLedgerService(userRepo, new(testhelpers.MockCoinTransactionRepository), testhelpers.NoopEventPublisher{})

		userRepo.On("GetByID", ctx, int64(9)).Return(nil, nil)

		_, err := service.GetBalance(ctx, 9)

		assert.True(t, apperror.IsNotFound(err))
	})
}
