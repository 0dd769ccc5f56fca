package services

import (
	"context"
	"time"

	"cardex/domain/apperror"
	"cardex/domain/entities"
	"cardex/domain/events"
	"cardex/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// ErrRequestExpired is returned when a resolution attempt finds the request
// past its deadline. The request has already been force-expired and refunded
// by the time the caller sees this error; the state it reports is final, not
// retryable.
var ErrRequestExpired = apperror.New(apperror.CodeInvalidState, "exchange request has expired")

// HistoryPageSize is the number of exchange records per history page
const HistoryPageSize = 20

// ExchangeService orchestrates the exchange request state machine:
// Pending -> {Accepted, Rejected, Cancelled, Expired}, each request resolved
// exactly once. All methods must run inside a single unit of work; the
// conditional pending transition is the arbiter between concurrent resolvers,
// and the ledger is touched only after winning it.
type ExchangeService struct {
	exchangeRepo   interfaces.ExchangeRequestRepository
	recordRepo     interfaces.ExchangeRecordRepository
	cardRepo       interfaces.CardRepository
	collectionRepo interfaces.CollectionRepository
	userRepo       interfaces.UserRepository
	ledger         *LedgerService
	pricing        *PriceCalculator
	eventBus       interfaces.EventPublisher

	expirationWindow time.Duration
	now              func() time.Time
}

// NewExchangeService creates a new ExchangeService
func NewExchangeService(
	exchangeRepo interfaces.ExchangeRequestRepository,
	recordRepo interfaces.ExchangeRecordRepository,
	cardRepo interfaces.CardRepository,
	collectionRepo interfaces.CollectionRepository,
	userRepo interfaces.UserRepository,
	txRepo interfaces.CoinTransactionRepository,
	eventBus interfaces.EventPublisher,
	expirationWindow time.Duration,
) *ExchangeService {
	return &ExchangeService{
		exchangeRepo:     exchangeRepo,
		recordRepo:       recordRepo,
		cardRepo:         cardRepo,
		collectionRepo:   collectionRepo,
		userRepo:         userRepo,
		ledger:           NewLedgerService(userRepo, txRepo, eventBus),
		pricing:          NewPriceCalculator(),
		eventBus:         eventBus,
		expirationWindow: expirationWindow,
		now:              time.Now,
	}
}

// CreateRequest creates a pending exchange request, escrowing the live price
// from the requester. The request insert and the escrow debit share the
// caller's transaction, so an insufficient balance leaves no request behind.
func (s *ExchangeService) CreateRequest(ctx context.Context, requesterID, cardID int64) (*entities.ExchangeRequest, error) {
	card, err := s.cardRepo.GetByID(ctx, cardID)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, err, "failed to get card")
	}
	if card == nil {
		return nil, apperror.Newf(apperror.CodeNotFound, "card %d not found", cardID)
	}

	if card.IsOwnedBy(requesterID) {
		return nil, apperror.New(apperror.CodeConflict, "cannot exchange your own card")
	}

	hasPending, err := s.exchangeRepo.HasPendingForCard(ctx, requesterID, cardID)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, err, "failed to check pending requests")
	}
	if hasPending {
		return nil, apperror.New(apperror.CodeConflict, "a pending exchange request for this card already exists")
	}

	collected, err := s.collectionRepo.HasCollected(ctx, requesterID, cardID)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, err, "failed to check collection")
	}
	if collected {
		return nil, apperror.New(apperror.CodeConflict, "card already collected")
	}

	price := s.pricing.Calculate(card)
	if price.FinalPrice <= 0 {
		return nil, apperror.Newf(apperror.CodeInvalidAmount, "computed price %d is not positive", price.FinalPrice)
	}

	req := &entities.ExchangeRequest{
		RequesterID: requesterID,
		CardID:      cardID,
		OwnerID:     card.OwnerID,
		CoinAmount:  price.FinalPrice,
		Status:      entities.ExchangeStatusPending,
		ExpiresAt:   s.now().Add(s.expirationWindow),
	}
	if err := s.exchangeRepo.Create(ctx, req); err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, err, "failed to create exchange request")
	}

	// Escrow: the request row now exists, so the debit references it. A
	// failure here rolls the insert back with the rest of the transaction.
	if _, err := s.ledger.DeductCoins(ctx, requesterID, price.FinalPrice, entities.CoinReasonExchangePurchase, &req.ID); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"exchangeId":  req.ID,
		"requesterId": requesterID,
		"cardId":      cardID,
		"coinAmount":  req.CoinAmount,
		"expiresAt":   req.ExpiresAt,
	}).Info("Created exchange request")

	if err := s.eventBus.Publish(events.ExchangeStateChangeEvent{
		ExchangeID:  req.ID,
		CardID:      req.CardID,
		RequesterID: req.RequesterID,
		OwnerID:     req.OwnerID,
		CoinAmount:  req.CoinAmount,
		NewStatus:   entities.ExchangeStatusPending,
	}); err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, err, "failed to publish exchange event")
	}

	return req, nil
}

// CalculatePrice returns the current price breakdown for a card
func (s *ExchangeService) CalculatePrice(ctx context.Context, cardID int64) (*entities.ExchangePrice, error) {
	card, err := s.cardRepo.GetByID(ctx, cardID)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, err, "failed to get card")
	}
	if card == nil {
		return nil, apperror.Newf(apperror.CodeNotFound, "card %d not found", cardID)
	}
	return s.pricing.Calculate(card), nil
}

// Accept resolves a pending request in the owner's favor: the escrowed coins
// go to the owner, the requester gains the card, and a history record is
// written. A request past its deadline is force-expired instead and
// ErrRequestExpired is returned; that refund must still be committed.
func (s *ExchangeService) Accept(ctx context.Context, exchangeID, actingOwnerID int64) (*entities.ExchangeResult, error) {
	req, err := s.loadForResolution(ctx, exchangeID)
	if err != nil {
		return nil, err
	}

	if !req.IsOwner(actingOwnerID) {
		return nil, apperror.New(apperror.CodeForbidden, "only the card owner can accept this exchange request")
	}
	if !req.IsPending() {
		return nil, apperror.Newf(apperror.CodeInvalidState, "cannot accept exchange request with status %s", req.Status)
	}

	// Lazy expiry: the deadline is enforced on every access, not just by the
	// reaper. The refund happens here as a side effect and is final.
	if req.IsExpiredAt(s.now()) {
		if _, err := s.expireResolved(ctx, req); err != nil {
			return nil, err
		}
		return nil, ErrRequestExpired
	}

	if err := s.transition(ctx, req, entities.ExchangeStatusAccepted); err != nil {
		return nil, err
	}

	ownerBalance, err := s.ledger.AddCoins(ctx, req.OwnerID, req.CoinAmount, entities.CoinReasonCardExchanged, &req.ID)
	if err != nil {
		return nil, err
	}

	if err := s.collectionRepo.Grant(ctx, req.RequesterID, req.CardID); err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, err, "failed to grant collection")
	}
	if err := s.cardRepo.IncrementExchangeCount(ctx, req.CardID); err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, err, "failed to increment card exchange count")
	}
	if err := s.userRepo.IncrementExchangeCount(ctx, req.OwnerID); err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, err, "failed to increment owner exchange count")
	}
	if err := s.userRepo.IncrementExchangeCount(ctx, req.RequesterID); err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, err, "failed to increment requester exchange count")
	}

	if err := s.recordRepo.Create(ctx, &entities.ExchangeRecord{
		ExchangeRequestID: req.ID,
		CardID:            req.CardID,
		FromUserID:        req.OwnerID,
		ToUserID:          req.RequesterID,
		CoinAmount:        req.CoinAmount,
	}); err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, err, "failed to create exchange record")
	}

	// Coins were escrowed at creation, so the requester's balance is
	// unchanged by acceptance; report it as it stands.
	requesterBalance, err := s.ledger.GetBalance(ctx, req.RequesterID)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"exchangeId": req.ID,
		"cardId":     req.CardID,
		"ownerId":    req.OwnerID,
		"coinAmount": req.CoinAmount,
	}).Info("Exchange request accepted")

	if err := s.eventBus.Publish(events.ExchangeCompletedEvent{
		ExchangeID: req.ID,
		CardID:     req.CardID,
		FromUserID: req.OwnerID,
		ToUserID:   req.RequesterID,
		CoinAmount: req.CoinAmount,
	}); err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, err, "failed to publish exchange event")
	}

	return &entities.ExchangeResult{
		ExchangeID:          req.ID,
		CardID:              req.CardID,
		CoinAmount:          req.CoinAmount,
		RequesterNewBalance: requesterBalance,
		OwnerNewBalance:     ownerBalance,
	}, nil
}

// Reject resolves a pending request against the requester: the escrowed coins
// return to them and the request becomes rejected. Owner-only; returns the
// refunded amount.
func (s *ExchangeService) Reject(ctx context.Context, exchangeID, actingOwnerID int64) (int64, error) {
	return s.resolveWithRefund(ctx, exchangeID, entities.ExchangeStatusRejected, func(req *entities.ExchangeRequest) error {
		if !req.IsOwner(actingOwnerID) {
			return apperror.New(apperror.CodeForbidden, "only the card owner can reject this exchange request")
		}
		return nil
	})
}

// Cancel withdraws a pending request: the escrowed coins return to the
// requester and the request becomes cancelled. Requester-only; returns the
// refunded amount.
func (s *ExchangeService) Cancel(ctx context.Context, exchangeID, actingRequesterID int64) (int64, error) {
	return s.resolveWithRefund(ctx, exchangeID, entities.ExchangeStatusCancelled, func(req *entities.ExchangeRequest) error {
		if !req.IsRequester(actingRequesterID) {
			return apperror.New(apperror.CodeForbidden, "only the requester can cancel this exchange request")
		}
		return nil
	})
}

// Expire force-expires an overdue pending request, refunding the requester.
// System-invoked (no caller identity); returns the refunded amount.
func (s *ExchangeService) Expire(ctx context.Context, exchangeID int64) (int64, error) {
	req, err := s.loadForResolution(ctx, exchangeID)
	if err != nil {
		return 0, err
	}
	if !req.IsPending() {
		return 0, apperror.Newf(apperror.CodeInvalidState, "cannot expire exchange request with status %s", req.Status)
	}
	if !req.IsExpiredAt(s.now()) {
		return 0, apperror.Newf(apperror.CodeInvalidState, "exchange request %d has not reached its deadline", req.ID)
	}
	return s.expireResolved(ctx, req)
}

// GetPendingRequests returns requests awaiting the owner's decision,
// excluding ones already past their deadline
func (s *ExchangeService) GetPendingRequests(ctx context.Context, ownerID int64) ([]*entities.ExchangeRequest, error) {
	reqs, err := s.exchangeRepo.ListPendingByOwner(ctx, ownerID, s.now())
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, err, "failed to list pending requests")
	}
	return reqs, nil
}

// GetSentRequests returns every request the user has created, in any status
func (s *ExchangeService) GetSentRequests(ctx context.Context, requesterID int64) ([]*entities.ExchangeRequest, error) {
	reqs, err := s.exchangeRepo.ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, err, "failed to list sent requests")
	}
	return reqs, nil
}

// GetExchangeHistory returns one page of completed exchanges where the user
// was either party. Pages are 1-based.
func (s *ExchangeService) GetExchangeHistory(ctx context.Context, userID int64, page int) (*entities.ExchangeHistoryPage, error) {
	if page < 1 {
		page = 1
	}
	history, err := s.recordRepo.GetHistoryPage(ctx, userID, HistoryPageSize, (page-1)*HistoryPageSize)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, err, "failed to get exchange history")
	}
	return history, nil
}

// loadForResolution fetches the request under its row lock so concurrent
// reaper passes skip it while this transaction decides its fate
func (s *ExchangeService) loadForResolution(ctx context.Context, exchangeID int64) (*entities.ExchangeRequest, error) {
	req, err := s.exchangeRepo.GetByIDForUpdate(ctx, exchangeID)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, err, "failed to get exchange request")
	}
	if req == nil {
		return nil, apperror.Newf(apperror.CodeNotFound, "exchange request %d not found", exchangeID)
	}
	return req, nil
}

func (s *ExchangeService) resolveWithRefund(ctx context.Context, exchangeID int64, to entities.ExchangeStatus, authorize func(*entities.ExchangeRequest) error) (int64, error) {
	req, err := s.loadForResolution(ctx, exchangeID)
	if err != nil {
		return 0, err
	}
	if err := authorize(req); err != nil {
		return 0, err
	}
	if !req.IsPending() {
		return 0, apperror.Newf(apperror.CodeInvalidState, "cannot resolve exchange request with status %s", req.Status)
	}
	if req.IsExpiredAt(s.now()) {
		refunded, err := s.expireResolved(ctx, req)
		if err != nil {
			return 0, err
		}
		return refunded, ErrRequestExpired
	}

	if err := s.transition(ctx, req, to); err != nil {
		return 0, err
	}
	if _, err := s.ledger.AddCoins(ctx, req.RequesterID, req.CoinAmount, entities.CoinReasonExchangeRefund, &req.ID); err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"exchangeId": req.ID,
		"status":     to,
		"refunded":   req.CoinAmount,
	}).Info("Exchange request resolved with refund")

	return req.CoinAmount, nil
}

// expireResolved transitions an already-loaded pending request to expired and
// refunds the requester. Shared by the reaper path and lazy expiry.
func (s *ExchangeService) expireResolved(ctx context.Context, req *entities.ExchangeRequest) (int64, error) {
	if err := s.transition(ctx, req, entities.ExchangeStatusExpired); err != nil {
		return 0, err
	}
	if _, err := s.ledger.AddCoins(ctx, req.RequesterID, req.CoinAmount, entities.CoinReasonExchangeRefund, &req.ID); err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"exchangeId":  req.ID,
		"requesterId": req.RequesterID,
		"refunded":    req.CoinAmount,
	}).Info("Exchange request expired and refunded")

	return req.CoinAmount, nil
}

// transition performs the conditional pending->terminal update. Losing the
// conditional update means another resolver won; no ledger mutation follows.
func (s *ExchangeService) transition(ctx context.Context, req *entities.ExchangeRequest, to entities.ExchangeStatus) error {
	ok, err := s.exchangeRepo.TransitionFromPending(ctx, req.ID, to)
	if err != nil {
		return apperror.Wrap(apperror.CodeInternal, err, "failed to transition exchange request")
	}
	if !ok {
		return apperror.Newf(apperror.CodeInvalidState, "exchange request %d was resolved concurrently", req.ID)
	}

	oldStatus := req.Status
	req.Status = to

	if err := s.eventBus.Publish(events.ExchangeStateChangeEvent{
		ExchangeID:  req.ID,
		CardID:      req.CardID,
		RequesterID: req.RequesterID,
		OwnerID:     req.OwnerID,
		CoinAmount:  req.CoinAmount,
		OldStatus:   oldStatus,
		NewStatus:   to,
	}); err != nil {
		return apperror.Wrap(apperror.CodeInternal, err, "failed to publish exchange event")
	}

	return nil
}
