package service

import (
	"context"
	"time"

	"quizhouse/events"
	"quizhouse/models"
)

// AccountRepository manages account balance records. Balance mutations are
// single conditional statements so concurrent spends can never drive
// playable_balance negative; methods that deduct return a coded
// INSUFFICIENT_FUNDS or NOT_FOUND error when the condition fails.
type AccountRepository interface {
	// Create inserts a new account with the locked starting bonus.
	Create(ctx context.Context, userID string, startingBonus int64, maxDailyQuizzes int) (*models.Account, error)

	// Get retrieves an account, or nil if it does not exist.
	Get(ctx context.Context, userID string) (*models.Account, error)

	// AddPlayable credits the playable balance and returns the new balance.
	AddPlayable(ctx context.Context, userID string, amount int64) (int64, error)

	// DeductPlayable atomically debits the playable balance, failing with
	// INSUFFICIENT_FUNDS if the balance would go negative.
	DeductPlayable(ctx context.Context, userID string, amount int64) (int64, error)

	// ApplyDeposit credits an approved deposit, bumps total_deposited, and
	// folds any locked bonus into the playable balance on the first deposit.
	// Returns the new playable balance and the bonus amount unlocked.
	ApplyDeposit(ctx context.Context, userID string, amount int64) (int64, int64, error)

	// DeductForWithdrawal debits the playable balance and bumps
	// total_withdrawn in one statement.
	DeductForWithdrawal(ctx context.Context, userID string, amount int64) (int64, error)

	// RefundWithdrawal reverses a rejected withdrawal: credits the amount
	// back and decrements total_withdrawn.
	RefundWithdrawal(ctx context.Context, userID string, amount int64) (int64, error)

	// AddEarned credits winnings or rewards and bumps total_earned.
	AddEarned(ctx context.Context, userID string, amount int64) (int64, error)

	// BumpDailyCount increments the daily quiz counter for the given day,
	// resetting it first if the stored date is older. Returns the new count.
	BumpDailyCount(ctx context.Context, userID string, day time.Time) (int, error)

	// RecordAnswer bumps questions_answered and, on a win, quizzes_won.
	RecordAnswer(ctx context.Context, userID string, won bool) error

	// SetDeactivated toggles the account's deactivated flag.
	SetDeactivated(ctx context.Context, userID string, deactivated bool) error
}

// TransactionRepository manages the append-only transaction log.
type TransactionRepository interface {
	// Append inserts a new transaction and populates ID and CreatedAt.
	Append(ctx context.Context, transaction *models.Transaction) error

	// GetByReference retrieves a transaction by its external uuid reference,
	// or nil if it does not exist.
	GetByReference(ctx context.Context, reference string) (*models.Transaction, error)

	// MarkDecided transitions a pending transaction to completed or rejected.
	// Returns false if the transaction was not pending (already decided or
	// decided concurrently).
	MarkDecided(ctx context.Context, id int64, status models.TransactionStatus, decidedAt time.Time) (bool, error)

	// ListByUser returns the user's transactions, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Transaction, error)

	// ListPending returns pending transactions of the given type, oldest
	// first, for the admin review queue.
	ListPending(ctx context.Context, transactionType models.TransactionType) ([]*models.Transaction, error)
}

// WagerRepository manages single-question wager records.
type WagerRepository interface {
	// Create inserts a new wager and populates ID and PlacedAt.
	Create(ctx context.Context, wager *models.Wager) error

	// GetByID retrieves a wager, or nil if it does not exist.
	GetByID(ctx context.Context, id int64) (*models.Wager, error)

	// Settle transitions a placed wager to its settled status. Returns false
	// if the wager was already settled, which makes settlement exactly-once
	// under concurrent calls.
	Settle(ctx context.Context, id int64, status models.WagerStatus, creditTransactionID *int64, settledAt time.Time) (bool, error)

	// ListByUser returns the user's wagers, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Wager, error)
}

// TournamentRepository manages tournaments and their participant sets.
type TournamentRepository interface {
	// Create inserts a new tournament and populates ID and CreatedAt.
	Create(ctx context.Context, tournament *models.Tournament) error

	// GetByID retrieves a tournament, or nil if it does not exist.
	GetByID(ctx context.Context, id int64) (*models.Tournament, error)

	// GetForUpdate retrieves a tournament with a row lock, serializing
	// concurrent joins and completion against each other.
	GetForUpdate(ctx context.Context, id int64) (*models.Tournament, error)

	// GetDetail retrieves a tournament with its participants in join order.
	GetDetail(ctx context.Context, id int64) (*models.TournamentDetail, error)

	// AddParticipant inserts a participant row. Fails with ALREADY_JOINED on
	// a duplicate entry.
	AddParticipant(ctx context.Context, participant *models.TournamentParticipant) error

	// AddToPool increments the escrow pool and returns the new pool total.
	AddToPool(ctx context.Context, id int64, amount int64) (int64, error)

	// SetStatus transitions the tournament between lifecycle states. Returns
	// false if the tournament was not in the expected state.
	SetStatus(ctx context.Context, id int64, from, to models.TournamentStatus) (bool, error)

	// Complete records the prize distribution and moves the tournament to
	// completed. Returns false if it was not active.
	Complete(ctx context.Context, id int64, winnerID string, payout, fee int64, completedAt time.Time) (bool, error)

	// ListByStatus returns tournaments in the given state, newest first.
	ListByStatus(ctx context.Context, status models.TournamentStatus, limit int) ([]*models.Tournament, error)
}

// BlockRepository manages wagering block records.
type BlockRepository interface {
	// Create inserts a new block and populates ID and BlockedAt.
	Create(ctx context.Context, block *models.Block) error

	// ActiveByUser returns the user's active block records, newest first.
	// Expiry is not evaluated here; callers check Block.InForce.
	ActiveByUser(ctx context.Context, userID string) ([]*models.Block, error)

	// DeactivateAll marks all of the user's active blocks inactive and
	// returns how many were cleared.
	DeactivateAll(ctx context.Context, userID string, unblockedAt time.Time) (int, error)
}

// SessionRepository manages quiz session records.
type SessionRepository interface {
	// Start inserts a new session and populates ID and StartedAt.
	Start(ctx context.Context, session *models.QuizSession) error

	// GetByID retrieves a session, or nil if it does not exist.
	GetByID(ctx context.Context, id int64) (*models.QuizSession, error)

	// Complete records the score and completion time. Returns false if the
	// session does not exist or was already completed.
	Complete(ctx context.Context, id int64, score int, completedAt time.Time) (bool, error)

	// LastByUser returns the user's most recent session, or nil if none.
	LastByUser(ctx context.Context, userID string) (*models.QuizSession, error)

	// CountSince counts sessions started at or after the given time.
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)

	// ListSince returns sessions started at or after the given time, newest
	// first, for the behaviour pattern checks.
	ListSince(ctx context.Context, userID string, since time.Time) ([]*models.QuizSession, error)
}

// TaskCompletionRepository manages task reward claims.
type TaskCompletionRepository interface {
	// Create inserts a new claim and populates ID and SubmittedAt. Fails
	// with ALREADY_SUBMITTED if the user already claimed the task.
	Create(ctx context.Context, completion *models.TaskCompletion) error

	// GetByID retrieves a claim, or nil if it does not exist.
	GetByID(ctx context.Context, id int64) (*models.TaskCompletion, error)

	// Decide transitions a pending claim to approved or rejected. Returns
	// false if the claim was not pending.
	Decide(ctx context.Context, id int64, status models.TaskCompletionStatus, reason *string, decidedAt time.Time) (bool, error)

	// ListPending returns pending claims, oldest first.
	ListPending(ctx context.Context, limit int) ([]*models.TaskCompletion, error)
}

// EventPublisher stashes events for emission after the enclosing unit of
// work commits.
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork represents one database transaction with its associated
// repositories and transactional event bus. Events published through the
// bus are emitted only after Commit; Rollback discards them.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	AccountRepository() AccountRepository
	TransactionRepository() TransactionRepository
	WagerRepository() WagerRepository
	TournamentRepository() TournamentRepository
	BlockRepository() BlockRepository
	SessionRepository() SessionRepository
	TaskCompletionRepository() TaskCompletionRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work.
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// LedgerService is the single entry point for money movement: deposits,
// withdrawals, manual adjustments, and balance queries.
type LedgerService interface {
	// GetOrCreateAccount fetches the account, creating it with the locked
	// starting bonus on first contact.
	GetOrCreateAccount(ctx context.Context, userID string) (*models.Account, error)

	// CheckBalance returns the account's balance snapshot.
	CheckBalance(ctx context.Context, userID string) (*models.BalanceSnapshot, error)

	// History returns the user's transaction log, newest first.
	History(ctx context.Context, userID string, limit int) ([]*models.Transaction, error)

	// Credit adds funds with an arbitrary transaction type (admin
	// adjustments, promotional credits).
	Credit(ctx context.Context, userID string, amount int64, transactionType models.TransactionType, details map[string]any) (*models.Transaction, error)

	// Debit removes funds, failing with INSUFFICIENT_FUNDS when the playable
	// balance cannot cover the amount.
	Debit(ctx context.Context, userID string, amount int64, transactionType models.TransactionType, details map[string]any) (*models.Transaction, error)

	// RequestDeposit records a pending deposit awaiting admin approval. No
	// balance changes until approval.
	RequestDeposit(ctx context.Context, userID string, amount int64, details map[string]any) (*models.Transaction, error)

	// ApproveDeposit completes a pending deposit: credits the balance, bumps
	// totals, and unlocks the bonus on the first approved deposit.
	ApproveDeposit(ctx context.Context, reference string) (*models.Transaction, error)

	// RejectDeposit rejects a pending deposit. No balance changes.
	RejectDeposit(ctx context.Context, reference string) (*models.Transaction, error)

	// RequestWithdrawal debits the amount immediately and records a pending
	// withdrawal awaiting admin payout.
	RequestWithdrawal(ctx context.Context, userID string, amount int64, details map[string]any) (*models.Transaction, error)

	// ApproveWithdrawal completes a pending withdrawal after payout.
	ApproveWithdrawal(ctx context.Context, reference string) (*models.Transaction, error)

	// RejectWithdrawal rejects a pending withdrawal and refunds the held
	// amount back to the playable balance.
	RejectWithdrawal(ctx context.Context, reference string) (*models.Transaction, error)

	// PendingReview returns pending transactions of the given type for the
	// admin queue.
	PendingReview(ctx context.Context, transactionType models.TransactionType) ([]*models.Transaction, error)
}

// WagerService places and settles single-question wagers.
type WagerService interface {
	// PlaceWager validates the stake against the betting limits and the
	// security gate, debits it, and records the wager.
	PlaceWager(ctx context.Context, userID, questionID string, amount int64) (*models.Wager, error)

	// SettleWager resolves a placed wager exactly once: draws the outcome,
	// credits stake times multiplier on a win, and returns the result.
	SettleWager(ctx context.Context, wagerID int64) (*models.WagerResult, error)

	// WagerHistory returns the user's wagers, newest first.
	WagerHistory(ctx context.Context, userID string, limit int) ([]*models.Wager, error)
}

// SecurityService is the fraud and rate-limit gate in front of quiz and
// wagering actions, plus the session bookkeeping those checks read.
type SecurityService interface {
	// AllowSessionStart runs the full gate: block, daily quota, hourly
	// quota, spacing, behaviour patterns, difficulty gating. Returns nil
	// when allowed, or the first failing check's coded error.
	AllowSessionStart(ctx context.Context, userID string, difficulty models.Difficulty) error

	// AllowWager checks only whether the user is blocked.
	AllowWager(ctx context.Context, userID string) error

	// StartSession runs AllowSessionStart, bumps the daily counter, and
	// records the session.
	StartSession(ctx context.Context, userID string, difficulty models.Difficulty) (*models.QuizSession, error)

	// CompleteSession records the session score.
	CompleteSession(ctx context.Context, sessionID int64, score int) error

	// AllowAnswer feeds one answer timing into the rapid-answer detector and
	// records the answer aggregates. Crossing the strike threshold denies
	// the answer and blocks the user; the session and question identify the
	// offending answer in the block record.
	AllowAnswer(ctx context.Context, sessionID int64, userID, questionID string, answerTime time.Duration, correct bool) error

	// RewardMultiplier returns the trust multiplier applied to task rewards.
	RewardMultiplier(ctx context.Context, userID string) (float64, error)

	// BlockUser creates an active block. A zero duration blocks indefinitely.
	BlockUser(ctx context.Context, userID, reason string, duration time.Duration) error

	// UnblockUser clears the user's active blocks.
	UnblockUser(ctx context.Context, userID string) error

	// IsBlocked reports whether a block is currently in force.
	IsBlocked(ctx context.Context, userID string) (bool, error)
}

// TournamentService manages tournament escrow from creation to payout.
type TournamentService interface {
	// Create opens a tournament and enters the creator, debiting their
	// entry fee into the pool.
	Create(ctx context.Context, creatorID, name string, entryFee int64, maxParticipants int) (*models.Tournament, error)

	// Join debits the entry fee into the pool and adds the participant.
	// Filling the last slot moves the tournament to active.
	Join(ctx context.Context, tournamentID int64, userID string) (*models.Tournament, error)

	// Complete distributes the pool: platform fee to the fee account, the
	// remainder to the winner.
	Complete(ctx context.Context, tournamentID int64, winnerID string) (*models.TournamentResult, error)

	// Cancel refunds every participant's entry fee and closes the
	// tournament. Only open tournaments can be cancelled.
	Cancel(ctx context.Context, tournamentID int64) (*models.Tournament, error)

	// ListOpen returns tournaments currently accepting entries.
	ListOpen(ctx context.Context) ([]*models.Tournament, error)

	// Get returns a tournament with its participants.
	Get(ctx context.Context, tournamentID int64) (*models.TournamentDetail, error)
}

// TaskService manages task reward claims and their review workflow.
type TaskService interface {
	// Submit records a claim with its proof, awaiting admin review.
	Submit(ctx context.Context, userID, taskID string, reward int64, proof map[string]any) (*models.TaskCompletion, error)

	// Approve approves a pending claim and credits reward times the user's
	// trust multiplier.
	Approve(ctx context.Context, completionID int64) (*models.TaskRewardResult, error)

	// Reject rejects a pending claim with a reason. Nothing is credited.
	Reject(ctx context.Context, completionID int64, reason string) (*models.TaskCompletion, error)

	// ListPending returns claims awaiting review, oldest first.
	ListPending(ctx context.Context, limit int) ([]*models.TaskCompletion, error)
}
