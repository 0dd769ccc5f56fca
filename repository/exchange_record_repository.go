package repository

import (
	"context"
	"fmt"

	"cardex/database"
	"cardex/domain/entities"
)

// ExchangeRecordRepository implements the ExchangeRecordRepository interface
type ExchangeRecordRepository struct {
	q Queryable
}

// NewExchangeRecordRepository creates a new exchange record repository
func NewExchangeRecordRepository(db *database.DB) *ExchangeRecordRepository {
	return &ExchangeRecordRepository{q: db.Pool}
}

func newExchangeRecordRepository(tx Queryable) *ExchangeRecordRepository {
	return &ExchangeRecordRepository{q: tx}
}

// Create inserts a history record
func (r *ExchangeRecordRepository) Create(ctx context.Context, rec *entities.ExchangeRecord) error {
	query := `
		INSERT INTO exchange_records (exchange_request_id, card_id, from_user_id, to_user_id, coin_amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, completed_at
	`

	err := r.q.QueryRow(ctx, query,
		rec.ExchangeRequestID,
		rec.CardID,
		rec.FromUserID,
		rec.ToUserID,
		rec.CoinAmount,
	).Scan(&rec.ID, &rec.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to create exchange record for request %d: %w", rec.ExchangeRequestID, err)
	}

	return nil
}

// GetHistoryPage returns one page of records where the user is either party,
// newest first, together with the total count for pagination
func (r *ExchangeRecordRepository) GetHistoryPage(ctx context.Context, userID int64, limit, offset int) (*entities.ExchangeHistoryPage, error) {
	query := `
		SELECT id, exchange_request_id, card_id, from_user_id, to_user_id, coin_amount, completed_at,
			COUNT(*) OVER() AS total_count
		FROM exchange_records
		WHERE from_user_id = $1 OR to_user_id = $1
		ORDER BY completed_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.q.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange history for user %d: %w", userID, err)
	}
	defer rows.Close()

	page := &entities.ExchangeHistoryPage{}
	for rows.Next() {
		var rec entities.ExchangeRecord
		err := rows.Scan(
			&rec.ID,
			&rec.ExchangeRequestID,
			&rec.CardID,
			&rec.FromUserID,
			&rec.ToUserID,
			&rec.CoinAmount,
			&rec.CompletedAt,
			&page.TotalCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exchange record: %w", err)
		}
		page.Records = append(page.Records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exchange records: %w", err)
	}

	// An offset past the end returns no rows; the count still matters, so
	// fetch it separately in that case
	if len(page.Records) == 0 {
		countQuery := `
			SELECT COUNT(*) FROM exchange_records
			WHERE from_user_id = $1 OR to_user_id = $1
		`
		if err := r.q.QueryRow(ctx, countQuery, userID).Scan(&page.TotalCount); err != nil {
			return nil, fmt.Errorf("failed to count exchange records for user %d: %w", userID, err)
		}
	}

	return page, nil
}
