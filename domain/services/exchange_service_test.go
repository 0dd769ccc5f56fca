package services

import (
	"context"
	"testing"
	"time"

	"cardex/domain/apperror"
	"cardex/domain/entities"
	"cardex/domain/interfaces"
	"cardex/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type exchangeServiceFixture struct {
	exchangeRepo   *testhelpers.MockExchangeRequestRepository
	recordRepo     *testhelpers.MockExchangeRecordRepository
	cardRepo       *testhelpers.MockCardRepository
	collectionRepo *testhelpers.MockCollectionRepository
	userRepo       *testhelpers.MockUserRepository
	txRepo         *testhelpers.MockCoinTransactionRepository

	service *ExchangeService
	now     time.Time
}

func newExchangeServiceFixture() *exchangeServiceFixture {
	f := &exchangeServiceFixture{
		exchangeRepo:   new(testhelpers.MockExchangeRequestRepository),
		recordRepo:     new(testhelpers.MockExchangeRecordRepository),
		cardRepo:       new(testhelpers.MockCardRepository),
		collectionRepo: new(testhelpers.MockCollectionRepository),
		userRepo:       new(testhelpers.MockUserRepository),
		txRepo:         new(testhelpers.MockCoinTransactionRepository),
		now:            time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.service = NewExchangeService(
		f.exchangeRepo,
		f.recordRepo,
		f.cardRepo,
		f.collectionRepo,
		f.userRepo,
		f.txRepo,
		testhelpers.NoopEventPublisher{},
		72*time.Hour,
	)
	f.service.now = func() time.Time { return f.now }
	return f
}

func (f *exchangeServiceFixture) assertExpectations(t *testing.T) {
	f.exchangeRepo.AssertExpectations(t)
	f.recordRepo.AssertExpectations(t)
	f.cardRepo.AssertExpectations(t)
	f.collectionRepo.AssertExpectations(t)
	f.userRepo.AssertExpectations(t)
	f.txRepo.AssertExpectations(t)
}

// pendingRequest returns a request created one hour ago against card 5,
// requester 1, owner 2, still a long way from its deadline
func (f *exchangeServiceFixture) pendingRequest() *entities.ExchangeRequest {
	return &entities.ExchangeRequest{
		ID:          10,
		RequesterID: 1,
		CardID:      5,
		OwnerID:     2,
		CoinAmount:  12,
		Status:      entities.ExchangeStatusPending,
		ExpiresAt:   f.now.Add(71 * time.Hour),
		CreatedAt:   f.now.Add(-time.Hour),
	}
}

func TestExchangeService_CreateRequest(t *testing.T) {
	ctx := context.Background()

	card := &entities.Card{
		ID:        5,
		OwnerID:   2,
		BasePrice: 10,
		LikeCount: 25,
	}

	t.Run("creates pending request and escrows live price", func(t *testing.T) {
		f := newExchangeServiceFixture()

		f.cardRepo.On("GetByID", ctx, int64(5)).Return(card, nil)
		f.exchangeRepo.On("HasPendingForCard", ctx, int64(1), int64(5)).Return(false, nil)
		f.collectionRepo.On("HasCollected", ctx, int64(1), int64(5)).Return(false, nil)
		f.exchangeRepo.On("Create", ctx, mock.MatchedBy(func(req *entities.ExchangeRequest) bool {
			return req.RequesterID == 1 &&
				req.CardID == 5 &&
				req.OwnerID == 2 &&
				req.CoinAmount == 12 &&
				req.Status == entities.ExchangeStatusPending &&
				req.ExpiresAt.Equal(f.now.Add(72*time.Hour))
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*entities.ExchangeRequest).ID = 10
		}).Return(nil)
		f.userRepo.On("Debit", ctx, int64(1), int64(12)).Return(int64(88), nil)
		f.txRepo.On("Record", ctx, mock.MatchedBy(func(tx *entities.CoinTransaction) bool {
			return tx.Amount == -12 &&
				tx.Reason == entities.CoinReasonExchangePurchase &&
				tx.ReferenceID != nil && *tx.ReferenceID == 10
		})).Return(nil)

		req, err := f.service.CreateRequest(ctx, 1, 5)

		require.NoError(t, err)
		assert.Equal(t, int64(10), req.ID)
		assert.Equal(t, int64(12), req.CoinAmount)
		f.assertExpectations(t)
	})

	t.Run("missing card is not found", func(t *testing.T) {
		f := newExchangeServiceFixture()
		f.cardRepo.On("GetByID", ctx, int64(5)).Return(nil, nil)

		_, err := f.service.CreateRequest(ctx, 1, 5)

		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("rejects exchanging own card", func(t *testing.T) {
		f := newExchangeServiceFixture()
		f.cardRepo.On("GetByID", ctx, int64(5)).Return(card, nil)

		_, err := f.service.CreateRequest(ctx, 2, 5)

		assert.True(t, apperror.IsConflict(err))
		f.exchangeRepo.AssertNotCalled(t, "Create")
	})

	t.Run("rejects duplicate pending request", func(t *testing.T) {
		f := newExchangeServiceFixture()
		f.cardRepo.On("GetByID", ctx, int64(5)).Return(card, nil)
		f.exchangeRepo.On("HasPendingForCard", ctx, int64(1), int64(5)).Return(true, nil)

		_, err := f.service.CreateRequest(ctx, 1, 5)

		assert.True(t, apperror.IsConflict(err))
		f.exchangeRepo.AssertNotCalled(t, "Create")
	})

	t.Run("rejects already collected card", func(t *testing.T) {
		f := newExchangeServiceFixture()
		f.cardRepo.On("GetByID", ctx, int64(5)).Return(card, nil)
		f.exchangeRepo.On("HasPendingForCard", ctx, int64(1), int64(5)).Return(false, nil)
		f.collectionRepo.On("HasCollected", ctx, int64(1), int64(5)).Return(true, nil)

		_, err := f.service.CreateRequest(ctx, 1, 5)

		assert.True(t, apperror.IsConflict(err))
		f.exchangeRepo.AssertNotCalled(t, "Create")
	})

	t.Run("insufficient balance surfaces from escrow debit", func(t *testing.T) {
		f := newExchangeServiceFixture()
		f.cardRepo.On("GetByID", ctx, int64(5)).Return(card, nil)
		f.exchangeRepo.On("HasPendingForCard", ctx, int64(1), int64(5)).Return(false, nil)
		f.collectionRepo.On("HasCollected", ctx, int64(1), int64(5)).Return(false, nil)
		f.exchangeRepo.On("Create", ctx, mock.Anything).Return(nil)
		f.userRepo.On("Debit", ctx, int64(1), int64(12)).Return(int64(0), interfaces.ErrInsufficientBalance)

		_, err := f.service.CreateRequest(ctx, 1, 5)

		assert.True(t, apperror.IsInsufficientBalance(err))
		f.txRepo.AssertNotCalled(t, "Record")
	})
}

func TestExchangeService_CalculatePrice(t *testing.T) {
	ctx := context.Background()

	t.Run("returns breakdown for card", func(t *testing.T) {
		f := newExchangeServiceFixture()
		f.cardRepo.On("GetByID", ctx, int64(5)).Return(&entities.Card{
			ID:            5,
			BasePrice:     10,
			LikeCount:     25,
			ExchangeCount: 1,
		}, nil)

		price, err := f.service.CalculatePrice(ctx, 5)

		require.NoError(t, err)
		assert.Equal(t, int64(4), price.PopularityBonus)
		assert.Equal(t, int64(14), price.FinalPrice)
	})

	t.Run("missing card is not found", func(t *testing.T) {
		f := newExchangeServiceFixture()
		f.cardRepo.On("GetByID", ctx, int64(5)).Return(nil, nil)

		_, err := f.service.CalculatePrice(ctx, 5)

		assert.True(t, apperror.IsNotFound(err))
	})
}

func TestExchangeService_Accept(t *testing.T) {
	ctx := context.Background()

	t.Run("settles escrow and completes the exchange", func(t *testing.T) {
		f := newExchangeServiceFixture()
		req := f.pendingRequest()

		f.exchangeRepo.On("GetByIDForUpdate", ctx, int64(10)).Return(req, nil)
		f.exchangeRepo.On("TransitionFromPending", ctx, int64(10), entities.ExchangeStatusAccepted).Return(true, nil)
		f.userRepo.On("Credit", ctx, int64(2), int64(12)).Return(int64(112), nil)
		f.txRepo.On("Record", ctx, mock.MatchedBy(func(tx *entities.CoinTransaction) bool {
			return tx.UserID == 2 && tx.Amount == 12 && tx.Reason == entities.CoinReasonCardExchanged
		})).Return(nil)
		f.collectionRepo.On("Grant", ctx, int64(1), int64(5)).Return(nil)
		f.cardRepo.On("IncrementExchangeCount", ctx, int64(5)).Return(nil)
		f.userRepo.On("IncrementExchangeCount", ctx, int64(2)).Return(nil)
		f.userRepo.On("IncrementExchangeCount", ctx, int64(1)).Return(nil)
		f.recordRepo.On("Create", ctx, mock.MatchedBy(func(rec *entities.ExchangeRecord) bool {
			return rec.ExchangeRequestID == 10 &&
				rec.CardID == 5 &&
				rec.FromUserID == 2 &&
				rec.ToUserID == 1 &&
				rec.CoinAmount == 12
		})).Return(nil)
		f.userRepo.On("GetByID", ctx, int64(1)).Return(&entities.User{ID: 1, CoinBalance: 88}, nil)

		result, err := f.service.Accept(ctx, 10, 2)

		require.NoError(t, err)
		assert.Equal(t, int64(10), result.ExchangeID)
		assert.Equal(t, int64(88), result.RequesterNewBalance)
		assert.Equal(t, int64(112), result.OwnerNewBalance)
		f.assertExpectations(t)
	})

	t.Run("only the owner can accept", func(t *testing.T) {
		f := newExchangeServiceFixture()
		f.exchangeRepo.On("GetByIDForUpdate", ctx, int64(10)).Return(f.pendingRequest(), nil)

		_, err := f.service.Accept(ctx, 10, 3)

		assert.True(t, apperror.IsForbidden(err))
		f.exchangeRepo.AssertNotCalled(t, "TransitionFromPending")
	})

	t.Run("resolved request cannot be accepted again", func(t *testing.T) {
		f := newExchangeServiceFixture()
		req := f.pendingRequest()
		req.Status = entities.ExchangeStatusRejected
		f.exchangeRepo.On("GetByIDForUpdate", ctx, int64(10)).Return(req, nil)

		_, err := f.service.Accept(ctx, 10, 2)

		assert.True(t, apperror.IsInvalidState(err))
		f.userRepo.AssertNotCalled(t, "Credit")
	})

	t.Run("overdue request is force-expired and refunded", func(t *testing.T) {
		f := newExchangeServiceFixture()
		req := f.pendingRequest()
		req.ExpiresAt = f.now.Add(-time.Minute)

		f.exchangeRepo.On("GetByIDForUpdate", ctx, int64(10)).Return(req, nil)
		f.exchangeRepo.On("TransitionFromPending", ctx, int64(10), entities.ExchangeStatusExpired).Return(true, nil)
		f.userRepo.On("Credit", ctx, int64(1), int64(12)).Return(int64(100), nil)
		f.txRepo.On("Record", ctx, mock.MatchedBy(func(tx *entities.CoinTransaction) bool {
			return tx.UserID == 1 && tx.Amount == 12 && tx.Reason == entities.CoinReasonExchangeRefund
		})).Return(nil)

		_, err := f.service.Accept(ctx, 10, 2)

		assert.ErrorIs(t, err, ErrRequestExpired)
		f.collectionRepo.AssertNotCalled(t, "Grant")
		f.assertExpectations(t)
	})

	t.Run("losing the resolution race touches no balances", func(t *testing.T) {
		f := newExchangeServiceFixture()
		f.exchangeRepo.On("GetByIDForUpdate", ctx, int64(10)).Return(f.pendingRequest(), nil)
		f.exchangeRepo.On("TransitionFromPending", ctx, int64(10), entities.ExchangeStatusAccepted).Return(false, nil)

		_, err := f.service.Accept(ctx, 10, 2)

		assert.True(t, apperror.IsInvalidState(err))
		f.userRepo.AssertNotCalled(t, "Credit")
		f.recordRepo.AssertNotCalled(t, "Create")
	})
}

func TestExchangeService_RejectAndCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("reject refunds the requester", func(t *testing.T) {
		f := newExchangeServiceFixture()
		f.exchangeRepo.On("GetByIDForUpdate", ctx, int64(10)).Return(f.pendingRequest(), nil)
		f.exchangeRepo.On("TransitionFromPending", ctx, int64(10), entities.ExchangeStatusRejected).Return(true, nil)
		f.userRepo.On("Credit", ctx, int64(1), int64(12)).Return(int64(100), nil)
		f.txRepo.On("Record", ctx, mock.MatchedBy(func(tx *entities.CoinTransaction) bool {
			return tx.UserID == 1 && tx.Amount == 12 && tx.Reason == entities.CoinReasonExchangeRefund
		})).Return(nil)

		refunded, err := f.service.Reject(ctx, 10, 2)

		require.NoError(t, err)
		assert.Equal(t, int64(12), refunded)
		f.assertExpectations(t)
	})

	t.Run("only the owner can reject", func(t *testing.T) {
		f := newExchangeServiceFixture()
		f.exchangeRepo.On("GetByIDForUpdate", ctx, int64(10)).Return(f.pendingRequest(), nil)

		_, err := f.service.Reject(ctx, 10, 1)

		assert.True(t, apperror.IsForbidden(err))
	})

	t.Run("cancel refunds the requester", func(t *testing.T) {
		f := newExchangeServiceFixture()
		f.exchangeRepo.On("GetByIDForUpdate", ctx, int64(10)).Return(f.pendingRequest(), nil)
		f.exchangeRepo.On("TransitionFromPending", ctx, int64(10), entities.ExchangeStatusCancelled).Return(true, nil)
		f.userRepo.On("Credit", ctx, int64(1), int64(12)).Return(int64(100), nil)
		f.txRepo.On("Record", ctx, mock.Anything).Return(nil)

		refunded, err := f.service.Cancel(ctx, 10, 1)

		require.NoError(t, err)
		assert.Equal(t, int64(12), refunded)
		f.assertExpectations(t)
	})

	t.Run("only the requester can cancel", func(t *testing.T) {
		f := newExchangeServiceFixture()
		f.exchangeRepo.On("GetByIDForUpdate", ctx, int64(10)).Return(f.pendingRequest(), nil)

		_, err := f.service.Cancel(ctx, 10, 2)

		assert.True(t, apperror.IsForbidden(err))
		f.userRepo.AssertNotCalled(t, "Credit")
	})

	t.Run("overdue request expires instead of rejecting", func(t *testing.T) {
		f := newExchangeServiceFixture()
		req := f.pendingRequest()
		req.ExpiresAt = f.now.Add(-time.Second)

		f.exchangeRepo.On("GetByIDForUpdate", ctx, int64(10)).Return(req, nil)
		f.exchangeRepo.On("TransitionFromPending", ctx, int64(10), entities.ExchangeStatusExpired).Return(true, nil)
		f.userRepo.On("Credit", ctx, int64(1), int64(12)).Return(int64(100), nil)
		f.txRepo.On("Record", ctx, mock.Anything).Return(nil)

		refunded, err := f.service.Reject(ctx, 10, 2)

		assert.ErrorIs(t, err, ErrRequestExpired)
		assert.Equal(t, int64(12), refunded)
		f.exchangeRepo.AssertNotCalled(t, "TransitionFromPending", ctx, int64(10), entities.ExchangeStatusRejected)
	})
}

func TestExchangeService_Expire(t *testing.T) {
	ctx := context.Background()

	t.Run("expires overdue pending request and refunds", func(t *testing.T) {
		f := newExchangeServiceFixture()
		req := f.pendingRequest()
		req.ExpiresAt = f.now.Add(-time.Hour)

		f.exchangeRepo.On("GetByIDForUpdate", ctx, int64(10)).Return(req, nil)
		f.exchangeRepo.On("TransitionFromPending", ctx, int64(10), entities.ExchangeStatusExpired).Return(true, nil)
		f.userRepo.On("Credit", ctx, int64(1), int64(12)).Return(int64(100), nil)
		f.txRepo.On("Record", ctx, mock.Anything).Return(nil)

		refunded, err := f.service.Expire(ctx, 10)

		require.NoError(t, err)
		assert.Equal(t, int64(12), refunded)
		f.assertExpectations(t)
	})

	t.Run("request before its deadline cannot be expired", func(t *testing.T) {
		f := newExchangeServiceFixture()
		f.exchangeRepo.On("GetByIDForUpdate", ctx, int64(10)).Return(f.pendingRequest(), nil)

		_, err := f.service.Expire(ctx, 10)

		assert.True(t, apperror.IsInvalidState(err))
		f.userRepo.AssertNotCalled(t, "Credit")
	})

	t.Run("resolved request cannot be expired", func(t *testing.T) {
		f := newExchangeServiceFixture()
		req := f.pendingRequest()
		req.Status = entities.ExchangeStatusAccepted
		f.exchangeRepo.On("GetByIDForUpdate", ctx, int64(10)).Return(req, nil)

		_, err := f.service.Expire(ctx, 10)

		assert.True(t, apperror.IsInvalidState(err))
	})
}

func TestExchangeService_GetExchangeHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("pages are one-based", func(t *testing.T) {
		f := newExchangeServiceFixture()
		page := &entities.ExchangeHistoryPage{TotalCount: 45}
		f.recordRepo.On("GetHistoryPage", ctx, int64(1), HistoryPageSize, 20).Return(page, nil)

		got, err := f.service.GetExchangeHistory(ctx, 1, 2)

		require.NoError(t, err)
		assert.Equal(t, int64(45), got.TotalCount)
	})

	t.Run("page below one clamps to the first", func(t *testing.T) {
		f := newExchangeServiceFixture()
		f.recordRepo.On("GetHistoryPage", ctx, int64(1), HistoryPageSize, 0).Return(&entities.ExchangeHistoryPage{}, nil)

		_, err := f.service.GetExchangeHistory(ctx, 1, 0)

		require.NoError(t, err)
		f.recordRepo.AssertExpectations(t)
	})
}
