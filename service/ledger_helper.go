package service

import (
	"context"
	"fmt"

	"quizhouse/events"
	"quizhouse/models"

	"github.com/google/uuid"
)

// recordTransaction appends a ledger entry, assigning the external reference
// and default status. This is the single entry point for writing to the
// transaction log.
func recordTransaction(ctx context.Context, uow UnitOfWork, transaction *models.Transaction) error {
	if transaction.Reference == "" {
		transaction.Reference = uuid.NewString()
	}
	if transaction.Status == "" {
		transaction.Status = models.TransactionStatusCompleted
	}

	if err := uow.TransactionRepository().Append(ctx, transaction); err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}

	return nil
}

// publishBalanceChange emits a balance change event through the unit of
// work's transactional bus; it reaches subscribers only after commit.
func publishBalanceChange(uow UnitOfWork, userID string, newBalance, changeAmount int64, transactionType models.TransactionType) {
	uow.EventBus().Publish(events.BalanceChangeEvent{
		UserID:          userID,
		NewBalance:      newBalance,
		ChangeAmount:    changeAmount,
		TransactionType: transactionType,
	})
}
