package entities

import "time"

// ExchangeStatus represents the state of an exchange request
type ExchangeStatus string

const (
	ExchangeStatusPending   ExchangeStatus = "pending"
	ExchangeStatusAccepted  ExchangeStatus = "accepted"
	ExchangeStatusRejected  ExchangeStatus = "rejected"
	ExchangeStatusCancelled ExchangeStatus = "cancelled"
	ExchangeStatusExpired   ExchangeStatus = "expired"
)

// IsTerminal returns true if the status has no outgoing transition
func (s ExchangeStatus) IsTerminal() bool {
	return s == ExchangeStatusAccepted ||
		s == ExchangeStatusRejected ||
		s == ExchangeStatusCancelled ||
		s == ExchangeStatusExpired
}

// CanResolve returns true if a terminal transition out of this status is allowed
func (s ExchangeStatus) CanResolve() bool {
	return s == ExchangeStatusPending
}

// String returns the string representation of the status
func (s ExchangeStatus) String() string {
	return string(s)
}

// ExchangeRequest represents a requester's offer to buy a card from its owner.
// While pending, exactly CoinAmount coins are held in escrow: debited from the
// requester and not yet credited to anyone. CoinAmount is fixed at creation.
type ExchangeRequest struct {
	ID          int64          `db:"id"`
	RequesterID int64          `db:"requester_id"`
	CardID      int64          `db:"card_id"`
	OwnerID     int64          `db:"owner_id"`
	CoinAmount  int64          `db:"coin_amount"`
	Status      ExchangeStatus `db:"status"`
	ExpiresAt   time.Time      `db:"expires_at"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// IsPending checks if the request is still awaiting resolution
func (r *ExchangeRequest) IsPending() bool {
	return r.Status == ExchangeStatusPending
}

// IsExpiredAt checks if the request's deadline has passed at the given time
func (r *ExchangeRequest) IsExpiredAt(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// IsActionableAt checks if the request can still be resolved interactively:
// pending and not past its deadline
func (r *ExchangeRequest) IsActionableAt(now time.Time) bool {
	return r.IsPending() && !r.IsExpiredAt(now)
}

// IsOwner checks whether the given user is the card owner on this request
func (r *ExchangeRequest) IsOwner(userID int64) bool {
	return r.OwnerID == userID
}

// IsRequester checks whether the given user created this request
func (r *ExchangeRequest) IsRequester(userID int64) bool {
	return r.RequesterID == userID
}

// ExchangeResult is returned after a successful accept
type ExchangeResult struct {
	ExchangeID          int64
	CardID              int64
	CoinAmount          int64
	RequesterNewBalance int64
	OwnerNewBalance     int64
}

// ExpirationSweepResult summarizes one reaper run
type ExpirationSweepResult struct {
	TotalFound          int
	ProcessedCount      int
	FailedCount         int
	TotalRefundedAmount int64
}

// AllSuccessful returns true if every found request was processed
func (r *ExpirationSweepResult) AllSuccessful() bool {
	return r.FailedCount == 0
}

// HasProcessed returns true if at least one request was expired and refunded
func (r *ExpirationSweepResult) HasProcessed() bool {
	return r.ProcessedCount > 0
}
