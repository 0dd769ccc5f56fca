package interfaces

import (
	"context"
	"errors"
	"time"

	"cardex/domain/entities"
)

// Sentinel errors returned by balance mutators. The service layer maps these
// onto the caller-visible taxonomy.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// UserRepository owns user rows and their coin balances
type UserRepository interface {
	// GetByID retrieves a user by ID, returning (nil, nil) if absent
	GetByID(ctx context.Context, id int64) (*entities.User, error)

	// Create creates a new user with the given initial balance
	Create(ctx context.Context, username string, initialBalance int64) (*entities.User, error)

	// Credit atomically adds amount (> 0) to the user's balance and returns
	// the new balance. Returns ErrUserNotFound if the user does not exist.
	Credit(ctx context.Context, userID int64, amount int64) (int64, error)

	// Debit atomically subtracts amount (> 0) from the user's balance if the
	// balance covers it, returning the new balance. Returns
	// ErrInsufficientBalance when it does not, ErrUserNotFound when the user
	// is absent; no state changes in either case.
	Debit(ctx context.Context, userID int64, amount int64) (int64, error)

	// IncrementExchangeCount bumps the user's completed-exchange counter
	IncrementExchangeCount(ctx context.Context, userID int64) error
}

// CoinTransactionRepository owns the append-only coin transaction log
type CoinTransactionRepository interface {
	// Record appends a ledger entry, populating ID and CreatedAt
	Record(ctx context.Context, tx *entities.CoinTransaction) error

	// GetByUser returns the most recent entries for a user, newest first
	GetByUser(ctx context.Context, userID int64, limit int) ([]*entities.CoinTransaction, error)

	// GetByExchange returns all entries referencing an exchange request
	GetByExchange(ctx context.Context, exchangeID int64) ([]*entities.CoinTransaction, error)
}

// CardRepository is the card directory consumed by the exchange flow
type CardRepository interface {
	// GetByID retrieves a non-deleted card, returning (nil, nil) if absent
	GetByID(ctx context.Context, id int64) (*entities.Card, error)

	// IncrementExchangeCount bumps the card's exchange counter
	IncrementExchangeCount(ctx context.Context, cardID int64) error
}

// CollectionRepository records which users have unlocked which cards
type CollectionRepository interface {
	// HasCollected checks whether the user already holds the card
	HasCollected(ctx context.Context, userID, cardID int64) (bool, error)

	// Grant unlocks the card for the user; granting twice is a no-op
	Grant(ctx context.Context, userID, cardID int64) error
}

// ExchangeRequestRepository owns exchange request rows
type ExchangeRequestRepository interface {
	// Create inserts a pending request, populating ID and timestamps
	Create(ctx context.Context, req *entities.ExchangeRequest) error

	// GetByID retrieves a request by ID, returning (nil, nil) if absent
	GetByID(ctx context.Context, id int64) (*entities.ExchangeRequest, error)

	// GetByIDForUpdate retrieves a request and takes its row lock so a
	// concurrent reaper pass skips it while this transaction resolves it
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.ExchangeRequest, error)

	// HasPendingForCard checks for an existing pending request by the
	// requester for the card
	HasPendingForCard(ctx context.Context, requesterID, cardID int64) (bool, error)

	// TransitionFromPending conditionally moves the request out of pending.
	// Returns false if the request was not pending, in which case the caller
	// lost the resolution race and must not touch the ledger.
	TransitionFromPending(ctx context.Context, id int64, to entities.ExchangeStatus) (bool, error)

	// ListPendingByOwner returns pending, not-yet-expired requests for cards
	// the user owns, newest first
	ListPendingByOwner(ctx context.Context, ownerID int64, now time.Time) ([]*entities.ExchangeRequest, error)

	// ListByRequester returns all requests the user has sent, newest first
	ListByRequester(ctx context.Context, requesterID int64) ([]*entities.ExchangeRequest, error)

	// ListExpiredPendingIDs returns IDs of pending requests past their
	// deadline, skipping rows locked by concurrent resolvers
	ListExpiredPendingIDs(ctx context.Context, now time.Time) ([]int64, error)
}

// ExchangeRecordRepository owns the completed-exchange history
type ExchangeRecordRepository interface {
	// Create inserts a history record, populating ID and CompletedAt
	Create(ctx context.Context, rec *entities.ExchangeRecord) error

	// GetHistoryPage returns one page of records where the user is either
	// party, newest first, with the total count for pagination
	GetHistoryPage(ctx context.Context, userID int64, limit, offset int) (*entities.ExchangeHistoryPage, error)
}
