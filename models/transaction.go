package models

import (
	"time"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeDeposit          TransactionType = "deposit"
	TransactionTypeWithdrawal       TransactionType = "withdrawal"
	TransactionTypeWagerDebit       TransactionType = "wager_debit"
	TransactionTypeWagerCredit      TransactionType = "wager_credit"
	TransactionTypeTournamentStake  TransactionType = "tournament_stake"
	TransactionTypeTournamentPrize  TransactionType = "tournament_prize"
	TransactionTypeTournamentRefund TransactionType = "tournament_refund"
	TransactionTypeTaskReward       TransactionType = "task_reward"
	TransactionTypeFee              TransactionType = "fee"
)

// TransactionStatus tracks the approval workflow for deposits and withdrawals.
// Every other transaction type is written as completed.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusRejected  TransactionStatus = "rejected"
)

// Transaction is an immutable ledger entry. Amount is signed: debits are
// negative, credits positive. Only Status (and DecidedAt) may change after
// insert, and only for the pending deposit/withdrawal workflows.
type Transaction struct {
	ID        int64             `db:"id"`
	Reference string            `db:"reference"` // uuid handed to external callers
	UserID    string            `db:"user_id"`
	Type      TransactionType   `db:"type"`
	Amount    int64             `db:"amount"`
	Status    TransactionStatus `db:"status"`
	Details   map[string]any    `db:"details"`
	DecidedAt *time.Time        `db:"decided_at"`
	CreatedAt time.Time         `db:"created_at"`
}

// IsPending reports whether the transaction still awaits an admin decision.
func (t *Transaction) IsPending() bool {
	return t.Status == TransactionStatusPending
}
