package models

import (
	"time"
)

// BlockStatus represents whether a block record is still in force
type BlockStatus string

const (
	BlockStatusActive   BlockStatus = "active"
	BlockStatusInactive BlockStatus = "inactive"
)

// Block denies wagering actions for a user. Created by gate heuristics or
// admin action; cleared by admin action or by expiry of its duration.
type Block struct {
	ID          int64         `db:"id"`
	UserID      string        `db:"user_id"`
	Reason      string        `db:"reason"`
	BlockedAt   time.Time     `db:"blocked_at"`
	Duration    time.Duration `db:"duration_ms"`
	Status      BlockStatus   `db:"status"`
	UnblockedAt *time.Time    `db:"unblocked_at"`
}

// InForce reports whether the block still denies actions at the given time.
// An active record past its expiry no longer denies.
func (b *Block) InForce(now time.Time) bool {
	if b.Status != BlockStatusActive {
		return false
	}
	if b.Duration <= 0 {
		return true // indefinite
	}
	return now.Before(b.BlockedAt.Add(b.Duration))
}
