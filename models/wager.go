package models

import (
	"time"
)

// WagerStatus represents the state of a single-question wager
type WagerStatus string

const (
	WagerStatusPlaced      WagerStatus = "placed"
	WagerStatusSettledWon  WagerStatus = "settled_won"
	WagerStatusSettledLost WagerStatus = "settled_lost"
)

// Wager is a stake placed against one quiz question. The stake is debited at
// placement; settlement happens at most once and credits stake × multiplier
// on a win, nothing on a loss.
type Wager struct {
	ID                  int64       `db:"id"`
	UserID              string      `db:"user_id"`
	QuestionID          string      `db:"question_id"`
	Amount              int64       `db:"amount"`
	Status              WagerStatus `db:"status"`
	DebitTransactionID  *int64      `db:"debit_transaction_id"`
	CreditTransactionID *int64      `db:"credit_transaction_id"`
	PlacedAt            time.Time   `db:"placed_at"`
	SettledAt           *time.Time  `db:"settled_at"`
}

// IsSettled reports whether the wager has already been resolved.
func (w *Wager) IsSettled() bool {
	return w.Status != WagerStatusPlaced
}

// WagerResult is returned to the caller after settlement.
type WagerResult struct {
	WagerID    int64
	Won        bool
	Amount     int64
	WinAmount  int64
	NewBalance int64
}
