package models

import (
	"time"
)

// TournamentStatus represents the lifecycle of a tournament
type TournamentStatus string

const (
	TournamentStatusOpen      TournamentStatus = "open"
	TournamentStatusActive    TournamentStatus = "active"
	TournamentStatusCompleted TournamentStatus = "completed"
	TournamentStatusCancelled TournamentStatus = "cancelled"
)

// Tournament pools entry fees in escrow until completion. Pool must equal
// entry fee × participant count until the prize is distributed; afterwards
// winner payout + platform fee must equal the pool.
type Tournament struct {
	ID              int64            `db:"id"`
	Name            string           `db:"name"`
	EntryFee        int64            `db:"entry_fee"`
	MaxParticipants int              `db:"max_participants"`
	Pool            int64            `db:"pool"`
	Status          TournamentStatus `db:"status"`
	CreatorID       string           `db:"creator_id"`
	WinnerID        *string          `db:"winner_id"`
	WinnerPayout    *int64           `db:"winner_payout"`
	PlatformFee     *int64           `db:"platform_fee"`
	CreatedAt       time.Time        `db:"created_at"`
	CompletedAt     *time.Time       `db:"completed_at"`
}

// TournamentParticipant is one entry in the ordered participant set.
type TournamentParticipant struct {
	TournamentID int64     `db:"tournament_id"`
	UserID       string    `db:"user_id"`
	JoinedAt     time.Time `db:"joined_at"`
}

// TournamentDetail bundles a tournament with its participants.
type TournamentDetail struct {
	Tournament   *Tournament
	Participants []*TournamentParticipant
}

// HasParticipant reports whether the user has joined.
func (d *TournamentDetail) HasParticipant(userID string) bool {
	for _, p := range d.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// IsOpen reports whether the tournament still accepts entries.
func (t *Tournament) IsOpen() bool {
	return t.Status == TournamentStatusOpen
}

// TournamentResult is returned to the caller after completion.
type TournamentResult struct {
	Tournament   *Tournament
	WinnerID     string
	WinnerPayout int64
	PlatformFee  int64
}
