package repository

import (
	"context"
	"fmt"
	"time"

	"cardex/database"
	"cardex/domain/entities"

	"github.com/jackc/pgx/v5"
)

// ExchangeRequestRepository implements the ExchangeRequestRepository interface
type ExchangeRequestRepository struct {
	q Queryable
}

// NewExchangeRequestRepository creates a new exchange request repository
func NewExchangeRequestRepository(db *database.DB) *ExchangeRequestRepository {
	return &ExchangeRequestRepository{q: db.Pool}
}

func newExchangeRequestRepository(tx Queryable) *ExchangeRequestRepository {
	return &ExchangeRequestRepository{q: tx}
}

const exchangeRequestColumns = `id, requester_id, card_id, owner_id, coin_amount, status, expires_at, created_at, updated_at`

// Create inserts a pending request
func (r *ExchangeRequestRepository) Create(ctx context.Context, req *entities.ExchangeRequest) error {
	query := `
		INSERT INTO exchange_requests (requester_id, card_id, owner_id, coin_amount, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		req.RequesterID,
		req.CardID,
		req.OwnerID,
		req.CoinAmount,
		req.Status,
		req.ExpiresAt,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create exchange request: %w", err)
	}

	return nil
}

// GetByID retrieves a request by ID
func (r *ExchangeRequestRepository) GetByID(ctx context.Context, id int64) (*entities.ExchangeRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM exchange_requests WHERE id = $1`, exchangeRequestColumns)
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate retrieves a request and takes its row lock. Holders of the
// lock serialize against each other and against the reaper's SKIP LOCKED scan.
func (r *ExchangeRequestRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.ExchangeRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM exchange_requests WHERE id = $1 FOR UPDATE`, exchangeRequestColumns)
	return r.getOne(ctx, query, id)
}

func (r *ExchangeRequestRepository) getOne(ctx context.Context, query string, id int64) (*entities.ExchangeRequest, error) {
	var req entities.ExchangeRequest
	err := r.q.QueryRow(ctx, query, id).Scan(
		&req.ID,
		&req.RequesterID,
		&req.CardID,
		&req.OwnerID,
		&req.CoinAmount,
		&req.Status,
		&req.ExpiresAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange request %d: %w", id, err)
	}

	return &req, nil
}

// HasPendingForCard checks for an existing pending request by the requester
// for the card
func (r *ExchangeRequestRepository) HasPendingForCard(ctx context.Context, requesterID, cardID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM exchange_requests
			WHERE requester_id = $1 AND card_id = $2 AND status = 'pending'
		)
	`

	var exists bool
	err := r.q.QueryRow(ctx, query, requesterID, cardID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check pending requests for card %d: %w", cardID, err)
	}

	return exists, nil
}

// TransitionFromPending conditionally moves the request out of pending. The
// status predicate makes the update the single arbiter between concurrent
// resolvers: exactly one caller sees true for any given request.
func (r *ExchangeRequestRepository) TransitionFromPending(ctx context.Context, id int64, to entities.ExchangeStatus) (bool, error) {
	query := `
		UPDATE exchange_requests
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.q.Exec(ctx, query, id, to)
	if err != nil {
		return false, fmt.Errorf("failed to transition exchange request %d to %s: %w", id, to, err)
	}

	return result.RowsAffected() > 0, nil
}

// ListPendingByOwner returns pending requests for cards the user owns that
// have not yet passed their deadline, newest first
func (r *ExchangeRequestRepository) ListPendingByOwner(ctx context.Context, ownerID int64, now time.Time) ([]*entities.ExchangeRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM exchange_requests
		WHERE owner_id = $1 AND status = 'pending' AND expires_at > $2
		ORDER BY created_at DESC
	`, exchangeRequestColumns)

	rows, err := r.q.Query(ctx, query, ownerID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests for owner %d: %w", ownerID, err)
	}
	defer rows.Close()

	return scanExchangeRequests(rows)
}

// ListByRequester returns all requests the user has sent, newest first
func (r *ExchangeRequestRepository) ListByRequester(ctx context.Context, requesterID int64) ([]*entities.ExchangeRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM exchange_requests
		WHERE requester_id = $1
		ORDER BY created_at DESC
	`, exchangeRequestColumns)

	rows, err := r.q.Query(ctx, query, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests for requester %d: %w", requesterID, err)
	}
	defer rows.Close()

	return scanExchangeRequests(rows)
}

// ListExpiredPendingIDs returns IDs of pending requests past their deadline.
// SKIP LOCKED leaves out rows a concurrent resolver holds, so the reaper
// never queues behind an in-flight accept or reject.
func (r *ExchangeRequestRepository) ListExpiredPendingIDs(ctx context.Context, now time.Time) ([]int64, error) {
	query := `
		SELECT id FROM exchange_requests
		WHERE status = 'pending' AND expires_at < $1
		ORDER BY expires_at ASC
		FOR UPDATE SKIP LOCKED
	`

	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired pending requests: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan exchange request id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expired pending requests: %w", err)
	}

	return ids, nil
}

func scanExchangeRequests(rows pgx.Rows) ([]*entities.ExchangeRequest, error) {
	var reqs []*entities.ExchangeRequest
	for rows.Next() {
		var req entities.ExchangeRequest
		err := rows.Scan(
			&req.ID,
			&req.RequesterID,
			&req.CardID,
			&req.OwnerID,
			&req.CoinAmount,
			&req.Status,
			&req.ExpiresAt,
			&req.CreatedAt,
			&req.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exchange request: %w", err)
		}
		reqs = append(reqs, &req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exchange requests: %w", err)
	}

	return reqs, nil
}
