package repository

import (
	"context"
	"fmt"

	"cardex/database"
	"cardex/domain/entities"

	"github.com/jackc/pgx/v5"
)

// CardRepository implements the CardRepository interface
type CardRepository struct {
	q Queryable
}

// NewCardRepository creates a new card repository
func NewCardRepository(db *database.DB) *CardRepository {
	return &CardRepository{q: db.Pool}
}

func newCardRepository(tx Queryable) *CardRepository {
	return &CardRepository{q: tx}
}

// GetByID retrieves a non-deleted card by ID
func (r *CardRepository) GetByID(ctx context.Context, id int64) (*entities.Card, error) {
	query := `
		SELECT id, owner_id, title, base_price, like_count, exchange_count, is_deleted, created_at, updated_at
		FROM cards
		WHERE id = $1 AND NOT is_deleted
	`

	var card entities.Card
	err := r.q.QueryRow(ctx, query, id).Scan(
		&card.ID,
		&card.OwnerID,
		&card.Title,
		&card.BasePrice,
		&card.LikeCount,
		&card.ExchangeCount,
		&card.IsDeleted,
		&card.CreatedAt,
		&card.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card %d: %w", id, err)
	}

	return &card, nil
}

// IncrementExchangeCount bumps the card's exchange counter
func (r *CardRepository) IncrementExchangeCount(ctx context.Context, cardID int64) error {
	query := `
		UPDATE cards
		SET exchange_count = exchange_count + 1, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query, cardID)
	if err != nil {
		return fmt.Errorf("failed to increment exchange count for card %d: %w", cardID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("card %d not found", cardID)
	}

	return nil
}
