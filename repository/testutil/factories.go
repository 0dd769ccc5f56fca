package testutil

import (
	"context"
	"testing"
	"time"

	"cardex/database"
	"cardex/domain/entities"

	"github.com/stretchr/testify/require"
)

// InsertTestUser inserts a user row directly and returns it
func InsertTestUser(t *testing.T, db *database.DB, username string, balance int64) *entities.User {
	user := &entities.User{
		Username:    username,
		CoinBalance: balance,
	}
	err := db.QueryRow(context.Background(), `
		INSERT INTO users (username, coin_balance)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`, username, balance).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	require.NoError(t, err)
	return user
}

// InsertTestCard inserts a card row directly and returns it
func InsertTestCard(t *testing.T, db *database.DB, ownerID int64, title string, basePrice int64) *entities.Card {
	card := &entities.Card{
		OwnerID:   ownerID,
		Title:     title,
		BasePrice: basePrice,
	}
	err := db.QueryRow(context.Background(), `
		INSERT INTO cards (owner_id, title, base_price)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, ownerID, title, basePrice).Scan(&card.ID, &card.CreatedAt, &card.UpdatedAt)
	require.NoError(t, err)
	return card
}

// InsertTestExchangeRequest inserts a pending exchange request expiring in
// the given duration (negative for an already overdue request)
func InsertTestExchangeRequest(t *testing.T, db *database.DB, requesterID, cardID, ownerID, amount int64, expiresIn time.Duration) *entities.ExchangeRequest {
	req := &entities.ExchangeRequest{
		RequesterID: requesterID,
		CardID:      cardID,
		OwnerID:     ownerID,
		CoinAmount:  amount,
		Status:      entities.ExchangeStatusPending,
		ExpiresAt:   time.Now().UTC().Add(expiresIn),
	}
	err := db.QueryRow(context.Background(), `
		INSERT INTO exchange_requests (requester_id, card_id, owner_id, coin_amount, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, req.RequesterID, req.CardID, req.OwnerID, req.CoinAmount, req.Status, req.ExpiresAt).
		Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	require.NoError(t, err)
	return req
}
