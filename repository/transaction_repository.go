package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quizhouse/database"
	"quizhouse/models"

	"github.com/jackc/pgx/v5"
)

// TransactionRepository implements the TransactionRepository interface
type TransactionRepository struct {
	q queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

// newTransactionRepositoryWithTx creates a new transaction repository with a transaction
func newTransactionRepositoryWithTx(tx queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

// Append inserts a new ledger entry and populates ID and CreatedAt
func (r *TransactionRepository) Append(ctx context.Context, transaction *models.Transaction) error {
	details := transaction.Details
	if details == nil {
		details = map[string]any{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction details: %w", err)
	}

	query := `
		INSERT INTO transactions (reference, user_id, type, amount, status, details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		transaction.Reference,
		transaction.UserID,
		transaction.Type,
		transaction.Amount,
		transaction.Status,
		detailsJSON,
	).Scan(&transaction.ID, &transaction.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append transaction for user %s: %w", transaction.UserID, err)
	}

	return nil
}

// GetByReference retrieves a transaction by its external reference, or nil
// if it does not exist
func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	query := `
		SELECT id, reference, user_id, type, amount, status, details, decided_at, created_at
		FROM transactions
		WHERE reference = $1
	`

	transaction, err := scanTransaction(r.q.QueryRow(ctx, query, reference))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", reference, err)
	}

	return transaction, nil
}

// MarkDecided transitions a pending transaction to its final status. The
// pending guard in the WHERE clause makes concurrent decisions settle the
// entry exactly once.
func (r *TransactionRepository) MarkDecided(ctx context.Context, id int64, status models.TransactionStatus, decidedAt time.Time) (bool, error) {
	query := `
		UPDATE transactions
		SET status = $1, decided_at = $2
		WHERE id = $3 AND status = 'pending'
	`

	result, err := r.q.Exec(ctx, query, status, decidedAt, id)
	if err != nil {
		return false, fmt.Errorf("failed to decide transaction %d: %w", id, err)
	}

	return result.RowsAffected() > 0, nil
}

// ListByUser returns the user's transactions, newest first
func (r *TransactionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	query := `
		SELECT id, reference, user_id, type, amount, status, details, decided_at, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for user %s: %w", userID, err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListPending returns pending transactions of the given type, oldest first
func (r *TransactionRepository) ListPending(ctx context.Context, transactionType models.TransactionType) ([]*models.Transaction, error) {
	query := `
		SELECT id, reference, user_id, type, amount, status, details, decided_at, created_at
		FROM transactions
		WHERE status = 'pending' AND type = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.q.Query(ctx, query, transactionType)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending %s transactions: %w", transactionType, err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var transaction models.Transaction
	var detailsJSON []byte

	err := row.Scan(
		&transaction.ID,
		&transaction.Reference,
		&transaction.UserID,
		&transaction.Type,
		&transaction.Amount,
		&transaction.Status,
		&detailsJSON,
		&transaction.DecidedAt,
		&transaction.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(detailsJSON) > 0 {
		if err := json.Unmarshal(detailsJSON, &transaction.Details); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction details: %w", err)
		}
	}

	return &transaction, nil
}

func collectTransactions(rows pgx.Rows) ([]*models.Transaction, error) {
	var transactions []*models.Transaction
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, transaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, nil
}
