package repository

import (
	"context"
	"fmt"

	"cardex/database"
	"cardex/domain/entities"
	"cardex/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// UserRepository implements the UserRepository interface
type UserRepository struct {
	q Queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

func newUserRepository(tx Queryable) *UserRepository {
	return &UserRepository{q: tx}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	query := `
		SELECT id, username, coin_balance, exchange_count, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user entities.User
	err := r.q.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.CoinBalance,
		&user.ExchangeCount,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}

	return &user, nil
}

// Create creates a new user with the given initial balance
func (r *UserRepository) Create(ctx context.Context, username string, initialBalance int64) (*entities.User, error) {
	query := `
		INSERT INTO users (username, coin_balance)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`

	user := &entities.User{
		Username:    username,
		CoinBalance: initialBalance,
	}
	err := r.q.QueryRow(ctx, query, username, initialBalance).Scan(
		&user.ID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", username, err)
	}

	return user, nil
}

// Credit atomically adds amount to the user's balance
func (r *UserRepository) Credit(ctx context.Context, userID int64, amount int64) (int64, error) {
	query := `
		UPDATE users
		SET coin_balance = coin_balance + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING coin_balance
	`

	var newBalance int64
	err := r.q.QueryRow(ctx, query, amount, userID).Scan(&newBalance)
	if err == pgx.ErrNoRows {
		return 0, interfaces.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to credit user %d: %w", userID, err)
	}

	return newBalance, nil
}

// Debit atomically subtracts amount from the user's balance. The balance
// check and the decrement are a single guarded update so concurrent debits
// cannot drive the balance negative.
func (r *UserRepository) Debit(ctx context.Context, userID int64, amount int64) (int64, error) {
	query := `
		UPDATE users
		SET coin_balance = coin_balance - $1, updated_at = NOW()
		WHERE id = $2 AND coin_balance >= $1
		RETURNING coin_balance
	`

	var newBalance int64
	err := r.q.QueryRow(ctx, query, amount, userID).Scan(&newBalance)
	if err == nil {
		return newBalance, nil
	}
	if err != pgx.ErrNoRows {
		return 0, fmt.Errorf("failed to debit user %d: %w", userID, err)
	}

	// Guard failed: distinguish a missing user from a short balance
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("failed to check user %d: %w", userID, err)
	}
	if !exists {
		return 0, interfaces.ErrUserNotFound
	}
	return 0, interfaces.ErrInsufficientBalance
}

// IncrementExchangeCount bumps the user's completed-exchange counter
func (r *UserRepository) IncrementExchangeCount(ctx context.Context, userID int64) error {
	query := `
		UPDATE users
		SET exchange_count = exchange_count + 1, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to increment exchange count for user %d: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return interfaces.ErrUserNotFound
	}

	return nil
}
