package entities

import (
	"errors"
	"time"
)

// CoinReason represents why a coin transaction happened
type CoinReason string

// All coin transaction reasons supported by the system
const (
	CoinReasonCardCreated      CoinReason = "card_created"
	CoinReasonCardExchanged    CoinReason = "card_exchanged"
	CoinReasonDailyLogin       CoinReason = "daily_login"
	CoinReasonExchangePurchase CoinReason = "exchange_purchase"
	CoinReasonExchangeRefund   CoinReason = "exchange_refund"
	CoinReasonInitial          CoinReason = "initial"
)

// IsExchangeRelated returns true if the reason ties the transaction to an exchange request
func (r CoinReason) IsExchangeRelated() bool {
	return r == CoinReasonExchangePurchase ||
		r == CoinReasonExchangeRefund ||
		r == CoinReasonCardExchanged
}

// IsRefund returns true if the transaction returns escrowed coins to the requester
func (r CoinReason) IsRefund() bool {
	return r == CoinReasonExchangeRefund
}

// String returns the string representation of the reason
func (r CoinReason) String() string {
	return string(r)
}

// CoinTransaction is an append-only ledger entry. For any user the
// balance_after of the most recent entry equals the stored coin_balance.
type CoinTransaction struct {
	ID           int64      `db:"id"`
	UserID       int64      `db:"user_id"`
	Amount       int64      `db:"amount"` // signed: negative for debits
	Reason       CoinReason `db:"reason"`
	ReferenceID  *int64     `db:"reference_id"` // exchange request this entry belongs to, if any
	BalanceAfter int64      `db:"balance_after"`
	CreatedAt    time.Time  `db:"created_at"`
}

// IsDebit returns true if the entry removed coins from the balance
func (t *CoinTransaction) IsDebit() bool {
	return t.Amount < 0
}

// IsCredit returns true if the entry added coins to the balance
func (t *CoinTransaction) IsCredit() bool {
	return t.Amount > 0
}

// Validate performs basic consistency checks on the entry
func (t *CoinTransaction) Validate() error {
	if t.Amount == 0 {
		return errors.New("transaction amount cannot be zero")
	}
	if t.BalanceAfter < 0 {
		return errors.New("balance after transaction cannot be negative")
	}
	return nil
}
