package repository

import (
	"context"
	"fmt"
	"time"

	"quizhouse/database"
	"quizhouse/models"
	"quizhouse/service"

	"github.com/jackc/pgx/v5"
)

const accountColumns = `
	user_id, playable_balance, bonus_balance,
	total_deposited, total_withdrawn, total_earned,
	daily_quiz_count, daily_count_date, max_daily_quizzes,
	questions_answered, quizzes_won, level,
	withdrawal_enabled, has_deposited, deactivated,
	created_at, updated_at`

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.UserID,
		&account.PlayableBalance,
		&account.BonusBalance,
		&account.TotalDeposited,
		&account.TotalWithdrawn,
		&account.TotalEarned,
		&account.DailyQuizCount,
		&account.DailyCountDate,
		&account.MaxDailyQuizzes,
		&account.QuestionsAnswered,
		&account.QuizzesWon,
		&account.Level,
		&account.WithdrawalEnabled,
		&account.HasDeposited,
		&account.Deactivated,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Create creates a new account with the locked starting bonus
func (r *AccountRepository) Create(ctx context.Context, userID string, startingBonus int64, maxDailyQuizzes int) (*models.Account, error) {
	query := `
		INSERT INTO accounts (user_id, bonus_balance, max_daily_quizzes)
		VALUES ($1, $2, $3)
		RETURNING ` + accountColumns

	account, err := scanAccount(r.q.QueryRow(ctx, query, userID, startingBonus, maxDailyQuizzes))
	if err != nil {
		return nil, fmt.Errorf("failed to create account for user %s: %w", userID, err)
	}

	return account, nil
}

// Get retrieves an account by user ID, or nil if it does not exist
func (r *AccountRepository) Get(ctx context.Context, userID string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1`

	account, err := scanAccount(r.q.QueryRow(ctx, query, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account for user %s: %w", userID, err)
	}

	return account, nil
}

// AddPlayable credits the playable balance and returns the new balance
func (r *AccountRepository) AddPlayable(ctx context.Context, userID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE accounts
		SET playable_balance = playable_balance + $1, updated_at = NOW()
		WHERE user_id = $2
		RETURNING playable_balance
	`

	var newBalance int64
	err := r.q.QueryRow(ctx, query, amount, userID).Scan(&newBalance)
	if err == pgx.ErrNoRows {
		return 0, service.NewError(service.CodeNotFound, "account %s not found", userID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add balance for user %s: %w", userID, err)
	}

	return newBalance, nil
}

// DeductPlayable deducts from the playable balance atomically, failing if
// the balance cannot cover the amount. The guard is in the WHERE clause so
// concurrent spends can never drive the balance negative.
func (r *AccountRepository) DeductPlayable(ctx context.Context, userID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE accounts
		SET playable_balance = playable_balance - $1, updated_at = NOW()
		WHERE user_id = $2 AND playable_balance >= $1
		RETURNING playable_balance
	`

	var newBalance int64
	err := r.q.QueryRow(ctx, query, amount, userID).Scan(&newBalance)
	if err == pgx.ErrNoRows {
		return 0, r.deductFailure(ctx, userID, amount)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to deduct balance for user %s: %w", userID, err)
	}

	return newBalance, nil
}

// deductFailure distinguishes a missing account from insufficient funds
// after a conditional deduction matched no row.
func (r *AccountRepository) deductFailure(ctx context.Context, userID string, amount int64) error {
	account, err := r.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check account: %w", err)
	}
	if account == nil {
		return service.NewError(service.CodeNotFound, "account %s not found", userID)
	}
	return service.NewError(service.CodeInsufficientFunds,
		"insufficient balance: have %d, need %d", account.PlayableBalance, amount)
}

// ApplyDeposit credits an approved deposit and unlocks the bonus on the
// first one. A single statement keeps credit, totals bump and bonus fold
// atomic under concurrent approvals.
func (r *AccountRepository) ApplyDeposit(ctx context.Context, userID string, amount int64) (int64, int64, error) {
	if amount <= 0 {
		return 0, 0, fmt.Errorf("amount must be positive")
	}

	// The unlocked amount cannot be read back from the row once it is
	// zeroed, so capture the pre-update state in a locking CTE.
	query := `
		WITH before AS (
			SELECT user_id, bonus_balance, has_deposited
			FROM accounts WHERE user_id = $2 FOR UPDATE
		)
		UPDATE accounts a
		SET playable_balance = a.playable_balance + $1
				+ CASE WHEN before.has_deposited THEN 0 ELSE before.bonus_balance END,
			bonus_balance = CASE WHEN before.has_deposited THEN a.bonus_balance ELSE 0 END,
			total_deposited = a.total_deposited + $1,
			has_deposited = TRUE,
			updated_at = NOW()
		FROM before
		WHERE a.user_id = before.user_id
		RETURNING a.playable_balance,
			CASE WHEN before.has_deposited THEN 0 ELSE before.bonus_balance END
	`

	var newBalance, unlocked int64
	err := r.q.QueryRow(ctx, query, amount, userID).Scan(&newBalance, &unlocked)
	if err == pgx.ErrNoRows {
		return 0, 0, service.NewError(service.CodeNotFound, "account %s not found", userID)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("failed to apply deposit for user %s: %w", userID, err)
	}

	return newBalance, unlocked, nil
}

// DeductForWithdrawal debits the playable balance and bumps total_withdrawn
// in one conditional statement
func (r *AccountRepository) DeductForWithdrawal(ctx context.Context, userID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE accounts
		SET playable_balance = playable_balance - $1,
			total_withdrawn = total_withdrawn + $1,
			updated_at = NOW()
		WHERE user_id = $2 AND playable_balance >= $1
		RETURNING playable_balance
	`

	var newBalance int64
	err := r.q.QueryRow(ctx, query, amount, userID).Scan(&newBalance)
	if err == pgx.ErrNoRows {
		return 0, r.deductFailure(ctx, userID, amount)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to deduct withdrawal for user %s: %w", userID, err)
	}

	return newBalance, nil
}

// RefundWithdrawal reverses a rejected withdrawal
func (r *AccountRepository) RefundWithdrawal(ctx context.Context, userID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE accounts
		SET playable_balance = playable_balance + $1,
			total_withdrawn = total_withdrawn - $1,
			updated_at = NOW()
		WHERE user_id = $2
		RETURNING playable_balance
	`

	var newBalance int64
	err := r.q.QueryRow(ctx, query, amount, userID).Scan(&newBalance)
	if err == pgx.ErrNoRows {
		return 0, service.NewError(service.CodeNotFound, "account %s not found", userID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to refund withdrawal for user %s: %w", userID, err)
	}

	return newBalance, nil
}

// AddEarned credits winnings and bumps total_earned
func (r *AccountRepository) AddEarned(ctx context.Context, userID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE accounts
		SET playable_balance = playable_balance + $1,
			total_earned = total_earned + $1,
			updated_at = NOW()
		WHERE user_id = $2
		RETURNING playable_balance
	`

	var newBalance int64
	err := r.q.QueryRow(ctx, query, amount, userID).Scan(&newBalance)
	if err == pgx.ErrNoRows {
		return 0, service.NewError(service.CodeNotFound, "account %s not found", userID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add earnings for user %s: %w", userID, err)
	}

	return newBalance, nil
}

// BumpDailyCount increments the daily quiz counter for the given day. A
// stale daily_count_date resets the counter first, so the rollover and the
// increment stay atomic.
func (r *AccountRepository) BumpDailyCount(ctx context.Context, userID string, day time.Time) (int, error) {
	query := `
		UPDATE accounts
		SET daily_quiz_count = CASE WHEN daily_count_date = $1::date
				THEN daily_quiz_count + 1 ELSE 1 END,
			daily_count_date = $1::date,
			updated_at = NOW()
		WHERE user_id = $2
		RETURNING daily_quiz_count
	`

	var count int
	err := r.q.QueryRow(ctx, query, day, userID).Scan(&count)
	if err == pgx.ErrNoRows {
		return 0, service.NewError(service.CodeNotFound, "account %s not found", userID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to bump daily count for user %s: %w", userID, err)
	}

	return count, nil
}

// RecordAnswer bumps the lifetime answer counters
func (r *AccountRepository) RecordAnswer(ctx context.Context, userID string, won bool) error {
	query := `
		UPDATE accounts
		SET questions_answered = questions_answered + 1,
			quizzes_won = quizzes_won + CASE WHEN $1 THEN 1 ELSE 0 END,
			updated_at = NOW()
		WHERE user_id = $2
	`

	result, err := r.q.Exec(ctx, query, won, userID)
	if err != nil {
		return fmt.Errorf("failed to record answer for user %s: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return service.NewError(service.CodeNotFound, "account %s not found", userID)
	}

	return nil
}

// SetDeactivated toggles the account's deactivated flag
func (r *AccountRepository) SetDeactivated(ctx context.Context, userID string, deactivated bool) error {
	query := `
		UPDATE accounts
		SET deactivated = $1, updated_at = NOW()
		WHERE user_id = $2
	`

	result, err := r.q.Exec(ctx, query, deactivated, userID)
	if err != nil {
		return fmt.Errorf("failed to set deactivated for user %s: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return service.NewError(service.CodeNotFound, "account %s not found", userID)
	}

	return nil
}
