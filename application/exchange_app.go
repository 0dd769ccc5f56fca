package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cardex/domain/entities"
	"cardex/domain/services"
	"cardex/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// ExchangeApp is the operation surface of the exchange subsystem. Outer
// layers (HTTP handlers, CLI, the expiration worker) call it; each call runs
// in its own unit of work and commits or rolls back as a whole.
type ExchangeApp struct {
	uowFactory       UnitOfWorkFactory
	startingBalance  int64
	expirationWindow time.Duration
}

// NewExchangeApp creates a new ExchangeApp
func NewExchangeApp(uowFactory UnitOfWorkFactory, startingBalance int64, expirationWindow time.Duration) *ExchangeApp {
	return &ExchangeApp{
		uowFactory:       uowFactory,
		startingBalance:  startingBalance,
		expirationWindow: expirationWindow,
	}
}

func (a *ExchangeApp) exchangeService(uow UnitOfWork) *services.ExchangeService {
	return services.NewExchangeService(
		uow.ExchangeRequestRepository(),
		uow.ExchangeRecordRepository(),
		uow.CardRepository(),
		uow.CollectionRepository(),
		uow.UserRepository(),
		uow.CoinTransactionRepository(),
		uow.EventBus(),
		a.expirationWindow,
	)
}

func (a *ExchangeApp) ledgerService(uow UnitOfWork) *services.LedgerService {
	return services.NewLedgerService(
		uow.UserRepository(),
		uow.CoinTransactionRepository(),
		uow.EventBus(),
	)
}

// CreateUser registers a user and grants the configured starting balance,
// logged as the first entry of their ledger
func (a *ExchangeApp) CreateUser(ctx context.Context, username string) (*entities.User, error) {
	uow := a.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().Create(ctx, username, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if a.startingBalance > 0 {
		balance, err := a.ledgerService(uow).AddCoins(ctx, user.ID, a.startingBalance, entities.CoinReasonInitial, nil)
		if err != nil {
			return nil, err
		}
		user.CoinBalance = balance
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, nil
}

// CreateExchangeRequest creates a pending exchange request for the card,
// escrowing its live price from the requester
func (a *ExchangeApp) CreateExchangeRequest(ctx context.Context, requesterID, cardID int64) (*entities.ExchangeRequest, error) {
	uow := a.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	req, err := a.exchangeService(uow).CreateRequest(ctx, requesterID, cardID)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	observability.GetMetrics().RecordExchangeRequestCreated(req.CoinAmount)
	return req, nil
}

// AcceptExchange resolves a pending request in the owner's favor. When the
// request turns out to be past its deadline, the force-expiry and refund are
// committed before the expired error is returned; rolling them back would
// leave the overdue request pending with the requester's coins still held.
func (a *ExchangeApp) AcceptExchange(ctx context.Context, exchangeID, ownerID int64) (*entities.ExchangeResult, error) {
	uow := a.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	result, err := a.exchangeService(uow).Accept(ctx, exchangeID, ownerID)
	if err != nil {
		if errors.Is(err, services.ErrRequestExpired) {
			if cerr := uow.Commit(); cerr != nil {
				return nil, fmt.Errorf("failed to commit expiry: %w", cerr)
			}
			observability.GetMetrics().RecordExchangeResolution(observability.OutcomeExpired, 0)
		}
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	observability.GetMetrics().RecordExchangeResolution(observability.OutcomeAccepted, result.CoinAmount)
	return result, nil
}

// RejectExchange resolves a pending request against the requester, refunding
// the escrow. Owner-only; lazy expiry commits as in AcceptExchange.
func (a *ExchangeApp) RejectExchange(ctx context.Context, exchangeID, ownerID int64) error {
	return a.resolve(ctx, observability.OutcomeRejected, func(svc *services.ExchangeService) (int64, error) {
		return svc.Reject(ctx, exchangeID, ownerID)
	})
}

// CancelExchange withdraws a pending request, refunding the escrow.
// Requester-only; lazy expiry commits as in AcceptExchange.
func (a *ExchangeApp) CancelExchange(ctx context.Context, exchangeID, requesterID int64) error {
	return a.resolve(ctx, observability.OutcomeCancelled, func(svc *services.ExchangeService) (int64, error) {
		return svc.Cancel(ctx, exchangeID, requesterID)
	})
}

func (a *ExchangeApp) resolve(ctx context.Context, outcome string, op func(*services.ExchangeService) (int64, error)) error {
	uow := a.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	refunded, err := op(a.exchangeService(uow))
	if err != nil {
		if errors.Is(err, services.ErrRequestExpired) {
			if cerr := uow.Commit(); cerr != nil {
				return fmt.Errorf("failed to commit expiry: %w", cerr)
			}
			observability.GetMetrics().RecordExchangeResolution(observability.OutcomeExpired, refunded)
		}
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	observability.GetMetrics().RecordExchangeResolution(outcome, refunded)
	return nil
}

// CalculateExchangePrice returns the current price breakdown for a card
func (a *ExchangeApp) CalculateExchangePrice(ctx context.Context, cardID int64) (*entities.ExchangePrice, error) {
	uow := a.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return a.exchangeService(uow).CalculatePrice(ctx, cardID)
}

// GetPendingRequests returns requests awaiting the owner's decision
func (a *ExchangeApp) GetPendingRequests(ctx context.Context, ownerID int64) ([]*entities.ExchangeRequest, error) {
	uow := a.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return a.exchangeService(uow).GetPendingRequests(ctx, ownerID)
}

// GetSentRequests returns every request the user has created
func (a *ExchangeApp) GetSentRequests(ctx context.Context, requesterID int64) ([]*entities.ExchangeRequest, error) {
	uow := a.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return a.exchangeService(uow).GetSentRequests(ctx, requesterID)
}

// GetExchangeHistory returns one page of the user's completed exchanges
func (a *ExchangeApp) GetExchangeHistory(ctx context.Context, userID int64, page int) (*entities.ExchangeHistoryPage, error) {
	uow := a.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return a.exchangeService(uow).GetExchangeHistory(ctx, userID, page)
}

// GetBalance returns the user's current coin balance
func (a *ExchangeApp) GetBalance(ctx context.Context, userID int64) (int64, error) {
	uow := a.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return a.ledgerService(uow).GetBalance(ctx, userID)
}

// GetCoinTransactions returns the user's most recent ledger entries
func (a *ExchangeApp) GetCoinTransactions(ctx context.Context, userID int64, limit int) ([]*entities.CoinTransaction, error) {
	uow := a.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return a.ledgerService(uow).GetTransactions(ctx, userID, limit)
}

// RunExpirationSweep finds overdue pending requests and expires each in its
// own transaction, so one failure never blocks the rest of the batch
func (a *ExchangeApp) RunExpirationSweep(ctx context.Context) (*entities.ExpirationSweepResult, error) {
	ids, err := a.listExpiredPendingIDs(ctx)
	if err != nil {
		return nil, err
	}

	result := &entities.ExpirationSweepResult{TotalFound: len(ids)}
	if len(ids) == 0 {
		return result, nil
	}

	log.WithFields(log.Fields{"count": len(ids)}).Info("Found expired exchange requests to process")

	for _, id := range ids {
		refunded, err := a.expireOne(ctx, id)
		if err != nil {
			// The request may have been resolved between the candidate scan
			// and this transaction; count it and keep sweeping
			log.WithFields(log.Fields{
				"exchangeId": id,
				"error":      err,
			}).Error("Failed to expire exchange request")
			result.FailedCount++
			continue
		}
		result.ProcessedCount++
		result.TotalRefundedAmount += refunded
	}

	log.WithFields(log.Fields{
		"totalFound":    result.TotalFound,
		"processed":     result.ProcessedCount,
		"failed":        result.FailedCount,
		"totalRefunded": result.TotalRefundedAmount,
	}).Info("Completed expiration sweep")

	return result, nil
}

// listExpiredPendingIDs scans candidates in a throwaway transaction that is
// rolled back immediately, releasing the scan locks before per-request work
func (a *ExchangeApp) listExpiredPendingIDs(ctx context.Context) ([]int64, error) {
	uow := a.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	ids, err := uow.ExchangeRequestRepository().ListExpiredPendingIDs(ctx, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list expired requests: %w", err)
	}

	return ids, nil
}

func (a *ExchangeApp) expireOne(ctx context.Context, exchangeID int64) (int64, error) {
	uow := a.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	refunded, err := a.exchangeService(uow).Expire(ctx, exchangeID)
	if err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	observability.GetMetrics().RecordExchangeResolution(observability.OutcomeExpired, refunded)
	return refunded, nil
}
