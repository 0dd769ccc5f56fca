package repository

import (
	"context"
	"fmt"

	"cardex/database"
	"cardex/domain/entities"

	"github.com/jackc/pgx/v5"
)

// CoinTransactionRepository implements the CoinTransactionRepository interface
type CoinTransactionRepository struct {
	q Queryable
}

// NewCoinTransactionRepository creates a new coin transaction repository
func NewCoinTransactionRepository(db *database.DB) *CoinTransactionRepository {
	return &CoinTransactionRepository{q: db.Pool}
}

func newCoinTransactionRepository(tx Queryable) *CoinTransactionRepository {
	return &CoinTransactionRepository{q: tx}
}

// Record appends a ledger entry
func (r *CoinTransactionRepository) Record(ctx context.Context, tx *entities.CoinTransaction) error {
	query := `
		INSERT INTO coin_transactions (user_id, amount, reason, reference_id, balance_after)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		tx.UserID,
		tx.Amount,
		tx.Reason,
		tx.ReferenceID,
		tx.BalanceAfter,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record coin transaction for user %d: %w", tx.UserID, err)
	}

	return nil
}

// GetByUser returns the most recent entries for a user, newest first
func (r *CoinTransactionRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*entities.CoinTransaction, error) {
	query := `
		SELECT id, user_id, amount, reason, reference_id, balance_after, created_at
		FROM coin_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get coin transactions for user %d: %w", userID, err)
	}
	defer rows.Close()

	return scanCoinTransactions(rows)
}

// GetByExchange returns all entries referencing an exchange request
func (r *CoinTransactionRepository) GetByExchange(ctx context.Context, exchangeID int64) ([]*entities.CoinTransaction, error) {
	query := `
		SELECT id, user_id, amount, reason, reference_id, balance_after, created_at
		FROM coin_transactions
		WHERE reference_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.q.Query(ctx, query, exchangeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get coin transactions for exchange %d: %w", exchangeID, err)
	}
	defer rows.Close()

	return scanCoinTransactions(rows)
}

func scanCoinTransactions(rows pgx.Rows) ([]*entities.CoinTransaction, error) {
	var txs []*entities.CoinTransaction
	for rows.Next() {
		var tx entities.CoinTransaction
		err := rows.Scan(
			&tx.ID,
			&tx.UserID,
			&tx.Amount,
			&tx.Reason,
			&tx.ReferenceID,
			&tx.BalanceAfter,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coin transaction: %w", err)
		}
		txs = append(txs, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate coin transactions: %w", err)
	}

	return txs, nil
}
