package services

import (
	"context"
	"errors"
	"fmt"

	"cardex/domain/apperror"
	"cardex/domain/entities"
	"cardex/domain/events"
	"cardex/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// LedgerService is the only component allowed to mutate coin balances. Every
// mutation is an atomic balance update plus an appended transaction log entry
// whose balance_after matches the stored balance; callers must run it inside
// a unit of work so the pair commits or rolls back together.
type LedgerService struct {
	userRepo interfaces.UserRepository
	txRepo   interfaces.CoinTransactionRepository
	eventBus interfaces.EventPublisher
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	userRepo interfaces.UserRepository,
	txRepo interfaces.CoinTransactionRepository,
	eventBus interfaces.EventPublisher,
) *LedgerService {
	return &LedgerService{
		userRepo: userRepo,
		txRepo:   txRepo,
		eventBus: eventBus,
	}
}

// AddCoins atomically increments the user's balance and logs the transaction.
// Returns the new balance.
func (s *LedgerService) AddCoins(ctx context.Context, userID, amount int64, reason entities.CoinReason, referenceID *int64) (int64, error) {
	if amount <= 0 {
		return 0, apperror.Newf(apperror.CodeInvalidAmount, "credit amount must be positive, got %d", amount)
	}

	newBalance, err := s.userRepo.Credit(ctx, userID, amount)
	if err != nil {
		if errors.Is(err, interfaces.ErrUserNotFound) {
			return 0, apperror.Newf(apperror.CodeNotFound, "user %d not found", userID)
		}
		return 0, apperror.Wrap(apperror.CodeInternal, err, "failed to credit coins")
	}

	if err := s.record(ctx, userID, amount, reason, referenceID, newBalance); err != nil {
		return 0, err
	}

	return newBalance, nil
}

// DeductCoins atomically checks the balance covers amount, decrements it and
// logs the transaction. Returns the new balance; on insufficient balance
// nothing changes.
func (s *LedgerService) DeductCoins(ctx context.Context, userID, amount int64, reason entities.CoinReason, referenceID *int64) (int64, error) {
	if amount <= 0 {
		return 0, apperror.Newf(apperror.CodeInvalidAmount, "debit amount must be positive, got %d", amount)
	}

	newBalance, err := s.userRepo.Debit(ctx, userID, amount)
	if err != nil {
		if errors.Is(err, interfaces.ErrInsufficientBalance) {
			return 0, apperror.Newf(apperror.CodeInsufficientBalance, "user %d cannot cover %d coins", userID, amount)
		}
		if errors.Is(err, interfaces.ErrUserNotFound) {
			return 0, apperror.Newf(apperror.CodeNotFound, "user %d not found", userID)
		}
		return 0, apperror.Wrap(apperror.CodeInternal, err, "failed to deduct coins")
	}

	if err := s.record(ctx, userID, -amount, reason, referenceID, newBalance); err != nil {
		return 0, err
	}

	return newBalance, nil
}

// GetBalance returns the user's current coin balance
func (s *LedgerService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return 0, apperror.Wrap(apperror.CodeInternal, err, "failed to get user")
	}
	if user == nil {
		return 0, apperror.Newf(apperror.CodeNotFound, "user %d not found", userID)
	}
	return user.CoinBalance, nil
}

// GetTransactions returns the user's most recent ledger entries, newest first
func (s *LedgerService) GetTransactions(ctx context.Context, userID int64, limit int) ([]*entities.CoinTransaction, error) {
	txs, err := s.txRepo.GetByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, err, "failed to get coin transactions")
	}
	return txs, nil
}

func (s *LedgerService) record(ctx context.Context, userID, amount int64, reason entities.CoinReason, referenceID *int64, balanceAfter int64) error {
	entry := &entities.CoinTransaction{
		UserID:       userID,
		Amount:       amount,
		Reason:       reason,
		ReferenceID:  referenceID,
		BalanceAfter: balanceAfter,
	}
	if err := entry.Validate(); err != nil {
		return apperror.Wrap(apperror.CodeInternal, err, "inconsistent ledger entry")
	}
	if err := s.txRepo.Record(ctx, entry); err != nil {
		return apperror.Wrap(apperror.CodeInternal, err, "failed to record coin transaction")
	}

	log.WithFields(log.Fields{
		"userId":       userID,
		"amount":       amount,
		"reason":       reason,
		"balanceAfter": balanceAfter,
	}).Debug("Recorded coin transaction")

	if err := s.eventBus.Publish(events.BalanceChangeEvent{
		UserID:       userID,
		OldBalance:   balanceAfter - amount,
		NewBalance:   balanceAfter,
		ChangeAmount: amount,
		Reason:       reason,
		ReferenceID:  referenceID,
	}); err != nil {
		return fmt.Errorf("failed to publish balance change event: %w", err)
	}

	return nil
}
