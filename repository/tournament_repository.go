package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quizhouse/database"
	"quizhouse/models"
	"quizhouse/service"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const tournamentColumns = `
	id, name, entry_fee, max_participants, pool, status,
	creator_id, winner_id, winner_payout, platform_fee,
	created_at, completed_at`

// TournamentRepository implements the TournamentRepository interface
type TournamentRepository struct {
	q queryable
}

// NewTournamentRepository creates a new tournament repository
func NewTournamentRepository(db *database.DB) *TournamentRepository {
	return &TournamentRepository{q: db.Pool}
}

// newTournamentRepositoryWithTx creates a new tournament repository with a transaction
func newTournamentRepositoryWithTx(tx queryable) *TournamentRepository {
	return &TournamentRepository{q: tx}
}

func scanTournament(row pgx.Row) (*models.Tournament, error) {
	var tournament models.Tournament
	err := row.Scan(
		&tournament.ID,
		&tournament.Name,
		&tournament.EntryFee,
		&tournament.MaxParticipants,
		&tournament.Pool,
		&tournament.Status,
		&tournament.CreatorID,
		&tournament.WinnerID,
		&tournament.WinnerPayout,
		&tournament.PlatformFee,
		&tournament.CreatedAt,
		&tournament.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tournament, nil
}

// Create inserts a new tournament and populates ID and CreatedAt
func (r *TournamentRepository) Create(ctx context.Context, tournament *models.Tournament) error {
	query := `
		INSERT INTO tournaments (name, entry_fee, max_participants, pool, status, creator_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		tournament.Name,
		tournament.EntryFee,
		tournament.MaxParticipants,
		tournament.Pool,
		tournament.Status,
		tournament.CreatorID,
	).Scan(&tournament.ID, &tournament.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create tournament %q: %w", tournament.Name, err)
	}

	return nil
}

// GetByID retrieves a tournament, or nil if it does not exist
func (r *TournamentRepository) GetByID(ctx context.Context, id int64) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	tournament, err := scanTournament(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}

	return tournament, nil
}

// GetForUpdate retrieves a tournament with a row lock. Joins and completion
// run against this lock so capacity checks and state transitions serialize.
func (r *TournamentRepository) GetForUpdate(ctx context.Context, id int64) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1 FOR UPDATE`

	tournament, err := scanTournament(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock tournament %d: %w", id, err)
	}

	return tournament, nil
}

// GetDetail retrieves a tournament with its participants in join order
func (r *TournamentRepository) GetDetail(ctx context.Context, id int64) (*models.TournamentDetail, error) {
	tournament, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tournament == nil {
		return nil, nil
	}

	query := `
		SELECT tournament_id, user_id, joined_at
		FROM tournament_participants
		WHERE tournament_id = $1
		ORDER BY joined_at ASC, user_id ASC
	`

	rows, err := r.q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants for tournament %d: %w", id, err)
	}
	defer rows.Close()

	var participants []*models.TournamentParticipant
	for rows.Next() {
		var participant models.TournamentParticipant
		if err := rows.Scan(&participant.TournamentID, &participant.UserID, &participant.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, &participant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return &models.TournamentDetail{
		Tournament:   tournament,
		Participants: participants,
	}, nil
}

// AddParticipant inserts a participant row, failing with ALREADY_JOINED on
// a duplicate entry
func (r *TournamentRepository) AddParticipant(ctx context.Context, participant *models.TournamentParticipant) error {
	query := `
		INSERT INTO tournament_participants (tournament_id, user_id)
		VALUES ($1, $2)
		RETURNING joined_at
	`

	err := r.q.QueryRow(ctx, query, participant.TournamentID, participant.UserID).Scan(&participant.JoinedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.NewError(service.CodeAlreadyJoined,
				"user %s already joined tournament %d", participant.UserID, participant.TournamentID)
		}
		return fmt.Errorf("failed to add participant to tournament %d: %w", participant.TournamentID, err)
	}

	return nil
}

// AddToPool increments the escrow pool and returns the new total
func (r *TournamentRepository) AddToPool(ctx context.Context, id int64, amount int64) (int64, error) {
	query := `
		UPDATE tournaments
		SET pool = pool + $1
		WHERE id = $2
		RETURNING pool
	`

	var pool int64
	err := r.q.QueryRow(ctx, query, amount, id).Scan(&pool)
	if err == pgx.ErrNoRows {
		return 0, service.NewError(service.CodeNotFound, "tournament %d not found", id)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add to pool of tournament %d: %w", id, err)
	}

	return pool, nil
}

// SetStatus transitions the tournament between lifecycle states. Returns
// false if the tournament was not in the expected state.
func (r *TournamentRepository) SetStatus(ctx context.Context, id int64, from, to models.TournamentStatus) (bool, error) {
	query := `
		UPDATE tournaments
		SET status = $1
		WHERE id = $2 AND status = $3
	`

	result, err := r.q.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, fmt.Errorf("failed to transition tournament %d to %s: %w", id, to, err)
	}

	return result.RowsAffected() > 0, nil
}

// Complete records the prize distribution. The active guard makes
// completion exactly-once.
func (r *TournamentRepository) Complete(ctx context.Context, id int64, winnerID string, payout, fee int64, completedAt time.Time) (bool, error) {
	query := `
		UPDATE tournaments
		SET status = 'completed',
			winner_id = $1,
			winner_payout = $2,
			platform_fee = $3,
			completed_at = $4
		WHERE id = $5 AND status = 'active'
	`

	result, err := r.q.Exec(ctx, query, winnerID, payout, fee, completedAt, id)
	if err != nil {
		return false, fmt.Errorf("failed to complete tournament %d: %w", id, err)
	}

	return result.RowsAffected() > 0, nil
}

// ListByStatus returns tournaments in the given state, newest first
func (r *TournamentRepository) ListByStatus(ctx context.Context, status models.TournamentStatus, limit int) ([]*models.Tournament, error) {
	query := `
		SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE status = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s tournaments: %w", status, err)
	}
	defer rows.Close()

	var tournaments []*models.Tournament
	for rows.Next() {
		tournament, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", err)
		}
		tournaments = append(tournaments, tournament)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tournaments: %w", err)
	}

	return tournaments, nil
}
