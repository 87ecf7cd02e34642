package models

import (
	"time"
)

// Difficulty levels for quiz sessions
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ValidDifficulty reports whether d is one of the known levels.
func ValidDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// QuizSession records one quiz run. The security gate's hourly-quota,
// spacing and pattern checks read these records; nothing else mutates them.
type QuizSession struct {
	ID          int64      `db:"id"`
	UserID      string     `db:"user_id"`
	Difficulty  Difficulty `db:"difficulty"`
	Score       *int       `db:"score"` // 0-100, set on completion
	StartedAt   time.Time  `db:"started_at"`
	CompletedAt *time.Time `db:"completed_at"`
}

// DurationOf returns how long the session ran, or zero if unfinished.
func (s *QuizSession) DurationOf() time.Duration {
	if s.CompletedAt == nil {
		return 0
	}
	return s.CompletedAt.Sub(s.StartedAt)
}
