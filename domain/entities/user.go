package entities

import (
	"errors"
	"time"
)

// User represents an account holding a coin balance.
// The balance is mutated only through the ledger; callers never set it directly.
type User struct {
	ID            int64     `db:"id"`
	Username      string    `db:"username"`
	CoinBalance   int64     `db:"coin_balance"`
	ExchangeCount int64     `db:"exchange_count"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// CanAfford checks if the user has sufficient balance for an amount
func (u *User) CanAfford(amount int64) bool {
	return u.CoinBalance >= amount
}

// ValidateAmount checks if an amount is valid (positive and affordable)
func (u *User) ValidateAmount(amount int64) error {
	if amount <= 0 {
		return errors.New("amount must be positive")
	}
	if !u.CanAfford(amount) {
		return errors.New("insufficient coin balance")
	}
	return nil
}
