package repository

import (
	"context"
	"fmt"

	"cardex/database"
)

// CollectionRepository implements the CollectionRepository interface
type CollectionRepository struct {
	q Queryable
}

// NewCollectionRepository creates a new collection repository
func NewCollectionRepository(db *database.DB) *CollectionRepository {
	return &CollectionRepository{q: db.Pool}
}

func newCollectionRepository(tx Queryable) *CollectionRepository {
	return &CollectionRepository{q: tx}
}

// HasCollected checks whether the user already holds the card
func (r *CollectionRepository) HasCollected(ctx context.Context, userID, cardID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM card_collections
			WHERE user_id = $1 AND card_id = $2
		)
	`

	var collected bool
	err := r.q.QueryRow(ctx, query, userID, cardID).Scan(&collected)
	if err != nil {
		return false, fmt.Errorf("failed to check collection for user %d card %d: %w", userID, cardID, err)
	}

	return collected, nil
}

// Grant unlocks the card for the user. Granting an already held card is a
// no-op, backed by the unique (user_id, card_id) constraint.
func (r *CollectionRepository) Grant(ctx context.Context, userID, cardID int64) error {
	query := `
		INSERT INTO card_collections (user_id, card_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, card_id) DO NOTHING
	`

	if _, err := r.q.Exec(ctx, query, userID, cardID); err != nil {
		return fmt.Errorf("failed to grant card %d to user %d: %w", cardID, userID, err)
	}

	return nil
}
