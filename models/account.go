package models

import (
	"time"
)

// Account represents a user's balance record. PlayableBalance is the only
// spendable pool; BonusBalance stays locked until the first approved deposit.
type Account struct {
	UserID            string    `db:"user_id"`
	PlayableBalance   int64     `db:"playable_balance"`
	BonusBalance      int64     `db:"bonus_balance"`
	TotalDeposited    int64     `db:"total_deposited"`
	TotalWithdrawn    int64     `db:"total_withdrawn"`
	TotalEarned       int64     `db:"total_earned"`
	DailyQuizCount    int       `db:"daily_quiz_count"`
	DailyCountDate    time.Time `db:"daily_count_date"`
	MaxDailyQuizzes   int       `db:"max_daily_quizzes"`
	QuestionsAnswered int       `db:"questions_answered"`
	QuizzesWon        int       `db:"quizzes_won"`
	Level             int       `db:"level"`
	WithdrawalEnabled bool      `db:"withdrawal_enabled"`
	HasDeposited      bool      `db:"has_deposited"`
	Deactivated       bool      `db:"deactivated"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// AvailableBalance is the derived total the user sees: spendable funds plus
// locked bonus.
func (a *Account) AvailableBalance() int64 {
	return a.PlayableBalance + a.BonusBalance
}

// WinRate returns the historical quiz win rate as a percentage.
func (a *Account) WinRate() float64 {
	if a.QuestionsAnswered == 0 {
		return 0
	}
	return float64(a.QuizzesWon) / float64(a.QuestionsAnswered) * 100
}

// BalanceSnapshot is returned to callers of balance queries.
type BalanceSnapshot struct {
	UserID           string
	PlayableBalance  int64
	BonusBalance     int64
	AvailableBalance int64
	TotalDeposited   int64
	TotalWithdrawn   int64
	TotalEarned      int64
}
