package service

import (
	"context"
	"fmt"
	"time"

	"quizhouse/config"
	"quizhouse/database"
	"quizhouse/events"
	"quizhouse/models"

	log "github.com/sirupsen/logrus"
)

const defaultHistoryLimit = 50

// maxTxAttempts bounds retries of transient storage faults
const maxTxAttempts = 3

type ledgerService struct {
	uowFactory UnitOfWorkFactory
	cfg        *config.Config
}

// NewLedgerService creates a new ledger service
func NewLedgerService(uowFactory UnitOfWorkFactory, cfg *config.Config) LedgerService {
	return &ledgerService{
		uowFactory: uowFactory,
		cfg:        cfg,
	}
}

// withRetry re-runs op on transient storage faults. Each attempt runs in its
// own unit of work, so a retried attempt starts from clean state.
func withRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = op()
		if err == nil || !database.IsRetryable(err) {
			return err
		}
		log.WithFields(log.Fields{
			"attempt": attempt,
		}).WithError(err).Warn("Retrying after transient storage fault")
	}
	return err
}

func (s *ledgerService) GetOrCreateAccount(ctx context.Context, userID string) (*models.Account, error) {
	if account, err := s.getAccount(ctx, userID); err != nil {
		return nil, err
	} else if account != nil {
		return account, nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	account, err := uow.AccountRepository().Create(ctx, userID, s.cfg.StartingBonus, s.cfg.MaxDailyQuizzes)
	if err != nil {
		// Lost a creation race; fall back to the row the winner inserted
		if existing, getErr := s.getAccount(ctx, userID); getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	uow.EventBus().Publish(events.AccountCreatedEvent{
		UserID:       userID,
		BonusGranted: s.cfg.StartingBonus,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return account, nil
}

func (s *ledgerService) getAccount(ctx context.Context, userID string) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

func (s *ledgerService) CheckBalance(ctx context.Context, userID string) (*models.BalanceSnapshot, error) {
	account, err := s.getAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, NewError(CodeNotFound, "account %s not found", userID)
	}

	return &models.BalanceSnapshot{
		UserID:           account.UserID,
		PlayableBalance:  account.PlayableBalance,
		BonusBalance:     account.BonusBalance,
		AvailableBalance: account.AvailableBalance(),
		TotalDeposited:   account.TotalDeposited,
		TotalWithdrawn:   account.TotalWithdrawn,
		TotalEarned:      account.TotalEarned,
	}, nil
}

func (s *ledgerService) History(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	transactions, err := uow.TransactionRepository().ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return transactions, nil
}

func (s *ledgerService) Credit(ctx context.Context, userID string, amount int64, transactionType models.TransactionType, details map[string]any) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, NewError(CodeInvalidAmount, "credit amount must be positive")
	}

	var transaction *models.Transaction
	err := withRetry(ctx, func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		newBalance, err := uow.AccountRepository().AddPlayable(ctx, userID, amount)
		if err != nil {
			return err
		}

		transaction = &models.Transaction{
			UserID:  userID,
			Type:    transactionType,
			Amount:  amount,
			Details: details,
		}
		if err := recordTransaction(ctx, uow, transaction); err != nil {
			return err
		}
		publishBalanceChange(uow, userID, newBalance, amount, transactionType)

		return uow.Commit()
	})
	if err != nil {
		return nil, err
	}

	return transaction, nil
}

func (s *ledgerService) Debit(ctx context.Context, userID string, amount int64, transactionType models.TransactionType, details map[string]any) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, NewError(CodeInvalidAmount, "debit amount must be positive")
	}

	var transaction *models.Transaction
	err := withRetry(ctx, func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		newBalance, err := uow.AccountRepository().DeductPlayable(ctx, userID, amount)
		if err != nil {
			return err
		}

		transaction = &models.Transaction{
			UserID:  userID,
			Type:    transactionType,
			Amount:  -amount,
			Details: details,
		}
		if err := recordTransaction(ctx, uow, transaction); err != nil {
			return err
		}
		publishBalanceChange(uow, userID, newBalance, -amount, transactionType)

		return uow.Commit()
	})
	if err != nil {
		return nil, err
	}

	return transaction, nil
}

func (s *ledgerService) RequestDeposit(ctx context.Context, userID string, amount int64, details map[string]any) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, NewError(CodeInvalidAmount, "deposit amount must be positive")
	}
	if amount < s.cfg.MinDeposit {
		return nil, NewError(CodeBelowMinimum, "minimum deposit is %d", s.cfg.MinDeposit)
	}

	// First contact through a deposit creates the account
	if _, err := s.GetOrCreateAccount(ctx, userID); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// Pending until an admin approves; no balance changes yet
	transaction := &models.Transaction{
		UserID:  userID,
		Type:    models.TransactionTypeDeposit,
		Amount:  amount,
		Status:  models.TransactionStatusPending,
		Details: details,
	}
	if err := recordTransaction(ctx, uow, transaction); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return transaction, nil
}

func (s *ledgerService) ApproveDeposit(ctx context.Context, reference string) (*models.Transaction, error) {
	var transaction *models.Transaction
	err := withRetry(ctx, func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		var err error
		transaction, err = s.pendingByReference(ctx, uow, reference, models.TransactionTypeDeposit)
		if err != nil {
			return err
		}

		now := time.Now()
		decided, err := uow.TransactionRepository().MarkDecided(ctx, transaction.ID, models.TransactionStatusCompleted, now)
		if err != nil {
			return err
		}
		if !decided {
			return NewError(CodeNotPending, "deposit %s already decided", reference)
		}

		newBalance, unlocked, err := uow.AccountRepository().ApplyDeposit(ctx, transaction.UserID, transaction.Amount)
		if err != nil {
			return err
		}

		transaction.Status = models.TransactionStatusCompleted
		transaction.DecidedAt = &now

		publishBalanceChange(uow, transaction.UserID, newBalance, transaction.Amount+unlocked, models.TransactionTypeDeposit)
		uow.EventBus().Publish(events.DepositApprovedEvent{
			UserID:        transaction.UserID,
			Reference:     transaction.Reference,
			Amount:        transaction.Amount,
			BonusUnlocked: unlocked,
		})

		if err := uow.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}

		log.WithFields(log.Fields{
			"userID":    transaction.UserID,
			"reference": reference,
			"amount":    transaction.Amount,
			"unlocked":  unlocked,
		}).Info("Deposit approved")

		return nil
	})
	if err != nil {
		return nil, err
	}

	return transaction, nil
}

func (s *ledgerService) RejectDeposit(ctx context.Context, reference string) (*models.Transaction, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	transaction, err := s.pendingByReference(ctx, uow, reference, models.TransactionTypeDeposit)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	decided, err := uow.TransactionRepository().MarkDecided(ctx, transaction.ID, models.TransactionStatusRejected, now)
	if err != nil {
		return nil, err
	}
	if !decided {
		return nil, NewError(CodeNotPending, "deposit %s already decided", reference)
	}

	transaction.Status = models.TransactionStatusRejected
	transaction.DecidedAt = &now

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return transaction, nil
}

func (s *ledgerService) RequestWithdrawal(ctx context.Context, userID string, amount int64, details map[string]any) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, NewError(CodeInvalidAmount, "withdrawal amount must be positive")
	}
	if amount < s.cfg.MinWithdrawal {
		return nil, NewError(CodeBelowMinimum, "minimum withdrawal is %d", s.cfg.MinWithdrawal)
	}

	var transaction *models.Transaction
	err := withRetry(ctx, func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		account, err := uow.AccountRepository().Get(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get account: %w", err)
		}
		if account == nil {
			return NewError(CodeNotFound, "account %s not found", userID)
		}
		if !account.WithdrawalEnabled {
			return NewError(CodeNotActive, "withdrawals are disabled for this account")
		}

		// Funds are held immediately; rejection refunds them
		newBalance, err := uow.AccountRepository().DeductForWithdrawal(ctx, userID, amount)
		if err != nil {
			return err
		}

		transaction = &models.Transaction{
			UserID:  userID,
			Type:    models.TransactionTypeWithdrawal,
			Amount:  -amount,
			Status:  models.TransactionStatusPending,
			Details: details,
		}
		if err := recordTransaction(ctx, uow, transaction); err != nil {
			return err
		}
		publishBalanceChange(uow, userID, newBalance, -amount, models.TransactionTypeWithdrawal)

		return uow.Commit()
	})
	if err != nil {
		return nil, err
	}

	return transaction, nil
}

func (s *ledgerService) ApproveWithdrawal(ctx context.Context, reference string) (*models.Transaction, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	transaction, err := s.pendingByReference(ctx, uow, reference, models.TransactionTypeWithdrawal)
	if err != nil {
		return nil, err
	}

	// Funds were already held at request time; approval just finalizes
	now := time.Now()
	decided, err := uow.TransactionRepository().MarkDecided(ctx, transaction.ID, models.TransactionStatusCompleted, now)
	if err != nil {
		return nil, err
	}
	if !decided {
		return nil, NewError(CodeNotPending, "withdrawal %s already decided", reference)
	}

	transaction.Status = models.TransactionStatusCompleted
	transaction.DecidedAt = &now

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":    transaction.UserID,
		"reference": reference,
		"amount":    -transaction.Amount,
	}).Info("Withdrawal approved")

	return transaction, nil
}

func (s *ledgerService) RejectWithdrawal(ctx context.Context, reference string) (*models.Transaction, error) {
	var transaction *models.Transaction
	err := withRetry(ctx, func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		var err error
		transaction, err = s.pendingByReference(ctx, uow, reference, models.TransactionTypeWithdrawal)
		if err != nil {
			return err
		}

		now := time.Now()
		decided, err := uow.TransactionRepository().MarkDecided(ctx, transaction.ID, models.TransactionStatusRejected, now)
		if err != nil {
			return err
		}
		if !decided {
			return NewError(CodeNotPending, "withdrawal %s already decided", reference)
		}

		// Return the held funds through a reversing ledger entry
		amount := -transaction.Amount
		newBalance, err := uow.AccountRepository().RefundWithdrawal(ctx, transaction.UserID, amount)
		if err != nil {
			return err
		}

		reversal := &models.Transaction{
			UserID: transaction.UserID,
			Type:   models.TransactionTypeWithdrawal,
			Amount: amount,
			Details: map[string]any{
				"reversal_of": transaction.Reference,
			},
		}
		if err := recordTransaction(ctx, uow, reversal); err != nil {
			return err
		}

		transaction.Status = models.TransactionStatusRejected
		transaction.DecidedAt = &now

		publishBalanceChange(uow, transaction.UserID, newBalance, amount, models.TransactionTypeWithdrawal)

		return uow.Commit()
	})
	if err != nil {
		return nil, err
	}

	return transaction, nil
}

func (s *ledgerService) PendingReview(ctx context.Context, transactionType models.TransactionType) ([]*models.Transaction, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	transactions, err := uow.TransactionRepository().ListPending(ctx, transactionType)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending transactions: %w", err)
	}

	return transactions, nil
}

// pendingByReference loads a transaction by reference and checks it is a
// pending entry of the expected type.
func (s *ledgerService) pendingByReference(ctx context.Context, uow UnitOfWork, reference string, transactionType models.TransactionType) (*models.Transaction, error) {
	transaction, err := uow.TransactionRepository().GetByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	if transaction == nil || transaction.Type != transactionType {
		return nil, NewError(CodeNotFound, "%s %s not found", transactionType, reference)
	}
	if !transaction.IsPending() {
		return nil, NewError(CodeNotPending, "%s %s already decided", transactionType, reference)
	}
	return transaction, nil
}
