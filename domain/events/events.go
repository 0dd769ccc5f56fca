package events

import "cardex/domain/entities"

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange       EventType = "balance_change"
	EventTypeExchangeStateChange EventType = "exchange_state_change"
	EventTypeExchangeCompleted   EventType = "exchange_completed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a coin balance change that occurred
type BalanceChangeEvent struct {
	UserID       int64
	OldBalance   int64
	NewBalance   int64
	ChangeAmount int64
	Reason       entities.CoinReason
	ReferenceID  *int64
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// ExchangeStateChangeEvent represents an exchange request state transition
type ExchangeStateChangeEvent struct {
	ExchangeID  int64
	CardID      int64
	RequesterID int64
	OwnerID     int64
	CoinAmount  int64
	OldStatus   entities.ExchangeStatus
	NewStatus   entities.ExchangeStatus
}

func (e ExchangeStateChangeEvent) Type() EventType {
	return EventTypeExchangeStateChange
}

// ExchangeCompletedEvent represents a successfully accepted exchange
type ExchangeCompletedEvent struct {
	ExchangeID int64
	CardID     int64
	FromUserID int64
	ToUserID   int64
	CoinAmount int64
}

func (e ExchangeCompletedEvent) Type() EventType {
	return EventTypeExchangeCompleted
}
