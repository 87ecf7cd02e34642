package repository

import (
	"context"
	"fmt"
	"time"

	"quizhouse/database"
	"quizhouse/models"
)

// BlockRepository implements the BlockRepository interface
type BlockRepository struct {
	q queryable
}

// NewBlockRepository creates a new block repository
func NewBlockRepository(db *database.DB) *BlockRepository {
	return &BlockRepository{q: db.Pool}
}

// newBlockRepositoryWithTx creates a new block repository with a transaction
func newBlockRepositoryWithTx(tx queryable) *BlockRepository {
	return &BlockRepository{q: tx}
}

// Create inserts a new block and populates ID and BlockedAt
func (r *BlockRepository) Create(ctx context.Context, block *models.Block) error {
	query := `
		INSERT INTO blocks (user_id, reason, duration_ms, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, blocked_at
	`

	err := r.q.QueryRow(ctx, query,
		block.UserID,
		block.Reason,
		block.Duration.Milliseconds(),
		block.Status,
	).Scan(&block.ID, &block.BlockedAt)
	if err != nil {
		return fmt.Errorf("failed to create block for user %s: %w", block.UserID, err)
	}

	return nil
}

// ActiveByUser returns the user's active block records, newest first.
// Records past their expiry are still returned; callers decide with
// Block.InForce.
func (r *BlockRepository) ActiveByUser(ctx context.Context, userID string) ([]*models.Block, error) {
	query := `
		SELECT id, user_id, reason, blocked_at, duration_ms, status, unblocked_at
		FROM blocks
		WHERE user_id = $1 AND status = 'active'
		ORDER BY blocked_at DESC, id DESC
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active blocks for user %s: %w", userID, err)
	}
	defer rows.Close()

	var blocks []*models.Block
	for rows.Next() {
		var block models.Block
		var durationMs int64
		err := rows.Scan(
			&block.ID,
			&block.UserID,
			&block.Reason,
			&block.BlockedAt,
			&durationMs,
			&block.Status,
			&block.UnblockedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}
		block.Duration = time.Duration(durationMs) * time.Millisecond
		blocks = append(blocks, &block)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate blocks: %w", err)
	}

	return blocks, nil
}

// DeactivateAll marks all of the user's active blocks inactive
func (r *BlockRepository) DeactivateAll(ctx context.Context, userID string, unblockedAt time.Time) (int, error) {
	query := `
		UPDATE blocks
		SET status = 'inactive', unblocked_at = $1
		WHERE user_id = $2 AND status = 'active'
	`

	result, err := r.q.Exec(ctx, query, unblockedAt, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate blocks for user %s: %w", userID, err)
	}

	return int(result.RowsAffected()), nil
}
