package repository

import (
	"context"
	"fmt"
	"time"

	"quizhouse/database"
	"quizhouse/models"

	"github.com/jackc/pgx/v5"
)

// WagerRepository implements the WagerRepository interface
type WagerRepository struct {
	q queryable
}

// NewWagerRepository creates a new wager repository
func NewWagerRepository(db *database.DB) *WagerRepository {
	return &WagerRepository{q: db.Pool}
}

// newWagerRepositoryWithTx creates a new wager repository with a transaction
func newWagerRepositoryWithTx(tx queryable) *WagerRepository {
	return &WagerRepository{q: tx}
}

// Create inserts a new wager and populates ID and PlacedAt
func (r *WagerRepository) Create(ctx context.Context, wager *models.Wager) error {
	query := `
		INSERT INTO wagers (user_id, question_id, amount, status, debit_transaction_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, placed_at
	`

	err := r.q.QueryRow(ctx, query,
		wager.UserID,
		wager.QuestionID,
		wager.Amount,
		wager.Status,
		wager.DebitTransactionID,
	).Scan(&wager.ID, &wager.PlacedAt)
	if err != nil {
		return fmt.Errorf("failed to create wager for user %s: %w", wager.UserID, err)
	}

	return nil
}

// GetByID retrieves a wager, or nil if it does not exist
func (r *WagerRepository) GetByID(ctx context.Context, id int64) (*models.Wager, error) {
	query := `
		SELECT id, user_id, question_id, amount, status,
			debit_transaction_id, credit_transaction_id, placed_at, settled_at
		FROM wagers
		WHERE id = $1
	`

	wager, err := scanWager(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wager %d: %w", id, err)
	}

	return wager, nil
}

// Settle transitions a placed wager to its settled status. The placed guard
// in the WHERE clause makes settlement exactly-once under concurrent calls.
func (r *WagerRepository) Settle(ctx context.Context, id int64, status models.WagerStatus, creditTransactionID *int64, settledAt time.Time) (bool, error) {
	query := `
		UPDATE wagers
		SET status = $1, credit_transaction_id = $2, settled_at = $3
		WHERE id = $4 AND status = 'placed'
	`

	result, err := r.q.Exec(ctx, query, status, creditTransactionID, settledAt, id)
	if err != nil {
		return false, fmt.Errorf("failed to settle wager %d: %w", id, err)
	}

	return result.RowsAffected() > 0, nil
}

// ListByUser returns the user's wagers, newest first
func (r *WagerRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Wager, error) {
	query := `
		SELECT id, user_id, question_id, amount, status,
			debit_transaction_id, credit_transaction_id, placed_at, settled_at
		FROM wagers
		WHERE user_id = $1
		ORDER BY placed_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list wagers for user %s: %w", userID, err)
	}
	defer rows.Close()

	var wagers []*models.Wager
	for rows.Next() {
		wager, err := scanWager(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wager: %w", err)
		}
		wagers = append(wagers, wager)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wagers: %w", err)
	}

	return wagers, nil
}

func scanWager(row pgx.Row) (*models.Wager, error) {
	var wager models.Wager
	err := row.Scan(
		&wager.ID,
		&wager.UserID,
		&wager.QuestionID,
		&wager.Amount,
		&wager.Status,
		&wager.DebitTransactionID,
		&wager.CreditTransactionID,
		&wager.PlacedAt,
		&wager.SettledAt,
	)
	if err != nil {
		return nil, err
	}
	return &wager, nil
}
