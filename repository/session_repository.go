package repository

import (
	"context"
	"fmt"
	"time"

	"quizhouse/database"
	"quizhouse/models"

	"github.com/jackc/pgx/v5"
)

// SessionRepository implements the SessionRepository interface
type SessionRepository struct {
	q queryable
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{q: db.Pool}
}

// newSessionRepositoryWithTx creates a new session repository with a transaction
func newSessionRepositoryWithTx(tx queryable) *SessionRepository {
	return &SessionRepository{q: tx}
}

// Start inserts a new session and populates ID and StartedAt
func (r *SessionRepository) Start(ctx context.Context, session *models.QuizSession) error {
	query := `
		INSERT INTO quiz_sessions (user_id, difficulty)
		VALUES ($1, $2)
		RETURNING id, started_at
	`

	err := r.q.QueryRow(ctx, query, session.UserID, session.Difficulty).
		Scan(&session.ID, &session.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to start session for user %s: %w", session.UserID, err)
	}

	return nil
}

// GetByID retrieves a session, or nil if it does not exist
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*models.QuizSession, error) {
	query := `
		SELECT id, user_id, difficulty, score, started_at, completed_at
		FROM quiz_sessions
		WHERE id = $1
	`

	session, err := scanSession(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %d: %w", id, err)
	}

	return session, nil
}

// Complete records the score. Returns false if the session does not exist
// or was already completed.
func (r *SessionRepository) Complete(ctx context.Context, id int64, score int, completedAt time.Time) (bool, error) {
	query := `
		UPDATE quiz_sessions
		SET score = $1, completed_at = $2
		WHERE id = $3 AND completed_at IS NULL
	`

	result, err := r.q.Exec(ctx, query, score, completedAt, id)
	if err != nil {
		return false, fmt.Errorf("failed to complete session %d: %w", id, err)
	}

	return result.RowsAffected() > 0, nil
}

// LastByUser returns the user's most recent session, or nil if none
func (r *SessionRepository) LastByUser(ctx context.Context, userID string) (*models.QuizSession, error) {
	query := `
		SELECT id, user_id, difficulty, score, started_at, completed_at
		FROM quiz_sessions
		WHERE user_id = $1
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`

	session, err := scanSession(r.q.QueryRow(ctx, query, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last session for user %s: %w", userID, err)
	}

	return session, nil
}

// CountSince counts sessions started at or after the given time
func (r *SessionRepository) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM quiz_sessions
		WHERE user_id = $1 AND started_at >= $2
	`

	var count int
	if err := r.q.QueryRow(ctx, query, userID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sessions for user %s: %w", userID, err)
	}

	return count, nil
}

// ListSince returns sessions started at or after the given time, newest first
func (r *SessionRepository) ListSince(ctx context.Context, userID string, since time.Time) ([]*models.QuizSession, error) {
	query := `
		SELECT id, user_id, difficulty, score, started_at, completed_at
		FROM quiz_sessions
		WHERE user_id = $1 AND started_at >= $2
		ORDER BY started_at DESC, id DESC
	`

	rows, err := r.q.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions for user %s: %w", userID, err)
	}
	defer rows.Close()

	var sessions []*models.QuizSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, nil
}

func scanSession(row pgx.Row) (*models.QuizSession, error) {
	var session models.QuizSession
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Difficulty,
		&session.Score,
		&session.StartedAt,
		&session.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
