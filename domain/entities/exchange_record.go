package entities

import "time"

// ExchangeDirection says whether the viewing user sent or received the card
type ExchangeDirection string

const (
	ExchangeDirectionSent     ExchangeDirection = "sent"
	ExchangeDirectionReceived ExchangeDirection = "received"
)

// ExchangeRecord is the canonical history entry for a completed exchange,
// created only on accept and immutable afterwards.
type ExchangeRecord struct {
	ID                int64     `db:"id"`
	ExchangeRequestID int64     `db:"exchange_request_id"`
	CardID            int64     `db:"card_id"`
	FromUserID        int64     `db:"from_user_id"` // card owner
	ToUserID          int64     `db:"to_user_id"`   // requester
	CoinAmount        int64     `db:"coin_amount"`
	CompletedAt       time.Time `db:"completed_at"`
}

// DirectionFor returns the exchange direction from the viewer's perspective
func (r *ExchangeRecord) DirectionFor(viewerID int64) ExchangeDirection {
	if r.FromUserID == viewerID {
		return ExchangeDirectionSent
	}
	return ExchangeDirectionReceived
}

// CounterpartyFor returns the other party's user ID from the viewer's perspective
func (r *ExchangeRecord) CounterpartyFor(viewerID int64) int64 {
	if r.FromUserID == viewerID {
		return r.ToUserID
	}
	return r.FromUserID
}

// ExchangeHistoryPage is one page of a user's exchange history
type ExchangeHistoryPage struct {
	Records    []*ExchangeRecord
	TotalCount int64
}
