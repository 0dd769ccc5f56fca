package entities

import "time"

// Card represents a collectible card. Card content CRUD lives outside this
// subsystem; the exchange flow only reads ownership, pricing counters and the
// deletion flag, and bumps the exchange counter on accept.
type Card struct {
	ID            int64     `db:"id"`
	OwnerID       int64     `db:"owner_id"`
	Title         string    `db:"title"`
	BasePrice     int64     `db:"base_price"`
	LikeCount     int64     `db:"like_count"`
	ExchangeCount int64     `db:"exchange_count"`
	IsDeleted     bool      `db:"is_deleted"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// IsOwnedBy checks whether the given user owns this card
func (c *Card) IsOwnedBy(userID int64) bool {
	return c.OwnerID == userID
}

// CardCollection records that a user has unlocked a card.
// Grants are idempotent: (user_id, card_id) is unique.
type CardCollection struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	CardID      int64     `db:"card_id"`
	CollectedAt time.Time `db:"collected_at"`
}
