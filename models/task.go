package models

import (
	"time"
)

// TaskCompletionStatus is the three-state review machine for task proofs
type TaskCompletionStatus string

const (
	TaskCompletionPending  TaskCompletionStatus = "pending"
	TaskCompletionApproved TaskCompletionStatus = "approved"
	TaskCompletionRejected TaskCompletionStatus = "rejected"
)

// TaskCompletion is a user's claim on a task reward, awaiting admin review.
// Approval issues the reward through the ledger; rejection credits nothing.
type TaskCompletion struct {
	ID           int64                `db:"id"`
	TaskID       string               `db:"task_id"`
	UserID       string               `db:"user_id"`
	Reward       int64                `db:"reward"`
	Status       TaskCompletionStatus `db:"status"`
	Proof        map[string]any       `db:"proof"`
	RejectReason *string              `db:"reject_reason"`
	SubmittedAt  time.Time            `db:"submitted_at"`
	DecidedAt    *time.Time           `db:"decided_at"`
}

// TaskRewardResult is returned after an approval credits the reward.
type TaskRewardResult struct {
	CompletionID int64
	UserID       string
	BaseReward   int64
	Multiplier   float64
	PaidReward   int64
	NewBalance   int64
}
