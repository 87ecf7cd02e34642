package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quizhouse/database"
	"quizhouse/models"
	"quizhouse/service"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// TaskCompletionRepository implements the TaskCompletionRepository interface
type TaskCompletionRepository struct {
	q queryable
}

// NewTaskCompletionRepository creates a new task completion repository
func NewTaskCompletionRepository(db *database.DB) *TaskCompletionRepository {
	return &TaskCompletionRepository{q: db.Pool}
}

// newTaskCompletionRepositoryWithTx creates a new task completion repository with a transaction
func newTaskCompletionRepositoryWithTx(tx queryable) *TaskCompletionRepository {
	return &TaskCompletionRepository{q: tx}
}

// Create inserts a new claim. The (task_id, user_id) unique constraint
// turns a duplicate claim into ALREADY_SUBMITTED even under concurrent
// submissions.
func (r *TaskCompletionRepository) Create(ctx context.Context, completion *models.TaskCompletion) error {
	proof := completion.Proof
	if proof == nil {
		proof = map[string]any{}
	}
	proofJSON, err := json.Marshal(proof)
	if err != nil {
		return fmt.Errorf("failed to marshal proof: %w", err)
	}

	query := `
		INSERT INTO task_completions (task_id, user_id, reward, status, proof)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, submitted_at
	`

	err = r.q.QueryRow(ctx, query,
		completion.TaskID,
		completion.UserID,
		completion.Reward,
		completion.Status,
		proofJSON,
	).Scan(&completion.ID, &completion.SubmittedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.NewError(service.CodeAlreadySubmitted,
				"user %s already submitted task %s", completion.UserID, completion.TaskID)
		}
		return fmt.Errorf("failed to create task completion for user %s: %w", completion.UserID, err)
	}

	return nil
}

// GetByID retrieves a claim, or nil if it does not exist
func (r *TaskCompletionRepository) GetByID(ctx context.Context, id int64) (*models.TaskCompletion, error) {
	query := `
		SELECT id, task_id, user_id, reward, status, proof, reject_reason, submitted_at, decided_at
		FROM task_completions
		WHERE id = $1
	`

	completion, err := scanTaskCompletion(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task completion %d: %w", id, err)
	}

	return completion, nil
}

// Decide transitions a pending claim to approved or rejected. Returns false
// if the claim was not pending.
func (r *TaskCompletionRepository) Decide(ctx context.Context, id int64, status models.TaskCompletionStatus, reason *string, decidedAt time.Time) (bool, error) {
	query := `
		UPDATE task_completions
		SET status = $1, reject_reason = $2, decided_at = $3
		WHERE id = $4 AND status = 'pending'
	`

	result, err := r.q.Exec(ctx, query, status, reason, decidedAt, id)
	if err != nil {
		return false, fmt.Errorf("failed to decide task completion %d: %w", id, err)
	}

	return result.RowsAffected() > 0, nil
}

// ListPending returns claims awaiting review, oldest first
func (r *TaskCompletionRepository) ListPending(ctx context.Context, limit int) ([]*models.TaskCompletion, error) {
	query := `
		SELECT id, task_id, user_id, reward, status, proof, reject_reason, submitted_at, decided_at
		FROM task_completions
		WHERE status = 'pending'
		ORDER BY submitted_at ASC, id ASC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending task completions: %w", err)
	}
	defer rows.Close()

	var completions []*models.TaskCompletion
	for rows.Next() {
		completion, err := scanTaskCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task completion: %w", err)
		}
		completions = append(completions, completion)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task completions: %w", err)
	}

	return completions, nil
}

func scanTaskCompletion(row pgx.Row) (*models.TaskCompletion, error) {
	var completion models.TaskCompletion
	var proofJSON []byte

	err := row.Scan(
		&completion.ID,
		&completion.TaskID,
		&completion.UserID,
		&completion.Reward,
		&completion.Status,
		&proofJSON,
		&completion.RejectReason,
		&completion.SubmittedAt,
		&completion.DecidedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(proofJSON) > 0 {
		if err := json.Unmarshal(proofJSON, &completion.Proof); err != nil {
			return nil, fmt.Errorf("failed to unmarshal proof: %w", err)
		}
	}

	return &completion, nil
}
