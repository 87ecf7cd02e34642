package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"quizhouse/config"
	"quizhouse/events"
	"quizhouse/models"
)

type wagerService struct {
	uowFactory UnitOfWorkFactory
	cfg        *config.Config
	gate       SecurityService
}

// NewWagerService creates a new wager service
func NewWagerService(uowFactory UnitOfWorkFactory, cfg *config.Config, gate SecurityService) WagerService {
	return &wagerService{
		uowFactory: uowFactory,
		cfg:        cfg,
		gate:       gate,
	}
}

func (s *wagerService) PlaceWager(ctx context.Context, userID, questionID string, amount int64) (*models.Wager, error) {
	if amount < s.cfg.MinBet || amount > s.cfg.MaxBet {
		return nil, NewError(CodeInvalidAmount, "bet must be between %d and %d", s.cfg.MinBet, s.cfg.MaxBet)
	}
	if questionID == "" {
		return nil, NewError(CodeInvalidAmount, "question id is required")
	}

	// Gate denial passes through unmodified, before any money moves
	if err := s.gate.AllowWager(ctx, userID); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	newBalance, err := uow.AccountRepository().DeductPlayable(ctx, userID, amount)
	if err != nil {
		return nil, err
	}

	debit := &models.Transaction{
		UserID: userID,
		Type:   models.TransactionTypeWagerDebit,
		Amount: -amount,
		Details: map[string]any{
			"question_id": questionID,
		},
	}
	if err := recordTransaction(ctx, uow, debit); err != nil {
		return nil, err
	}
	publishBalanceChange(uow, userID, newBalance, -amount, models.TransactionTypeWagerDebit)

	wager := &models.Wager{
		UserID:             userID,
		QuestionID:         questionID,
		Amount:             amount,
		Status:             models.WagerStatusPlaced,
		DebitTransactionID: &debit.ID,
	}
	if err := uow.WagerRepository().Create(ctx, wager); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return wager, nil
}

func (s *wagerService) SettleWager(ctx context.Context, wagerID int64) (*models.WagerResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wager, err := uow.WagerRepository().GetByID(ctx, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wager: %w", err)
	}
	if wager == nil {
		return nil, NewError(CodeNotFound, "wager %d not found", wagerID)
	}
	if wager.IsSettled() {
		return nil, NewError(CodeAlreadySettled, "wager %d already settled", wagerID)
	}

	// Outcome is a house-edge draw, independent of quiz correctness
	won := rand.Float64() < s.cfg.WinRate

	var winAmount, newBalance int64
	var creditTransactionID *int64
	status := models.WagerStatusSettledLost

	if won {
		status = models.WagerStatusSettledWon
		winAmount = int64(float64(wager.Amount) * s.cfg.WinMultiplier)

		newBalance, err = uow.AccountRepository().AddEarned(ctx, wager.UserID, winAmount)
		if err != nil {
			return nil, err
		}

		credit := &models.Transaction{
			UserID: wager.UserID,
			Type:   models.TransactionTypeWagerCredit,
			Amount: winAmount,
			Details: map[string]any{
				"wager_id":    wager.ID,
				"question_id": wager.QuestionID,
			},
		}
		if err := recordTransaction(ctx, uow, credit); err != nil {
			return nil, err
		}
		creditTransactionID = &credit.ID
		publishBalanceChange(uow, wager.UserID, newBalance, winAmount, models.TransactionTypeWagerCredit)
	} else {
		account, err := uow.AccountRepository().Get(ctx, wager.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to get account: %w", err)
		}
		if account == nil {
			return nil, NewError(CodeNotFound, "account %s not found", wager.UserID)
		}
		newBalance = account.PlayableBalance
	}

	// The placed guard makes settlement exactly-once; a lost race rolls the
	// credit back with the transaction.
	settled, err := uow.WagerRepository().Settle(ctx, wager.ID, status, creditTransactionID, time.Now())
	if err != nil {
		return nil, err
	}
	if !settled {
		return nil, NewError(CodeAlreadySettled, "wager %d already settled", wagerID)
	}

	uow.EventBus().Publish(events.WagerSettledEvent{
		WagerID:   wager.ID,
		UserID:    wager.UserID,
		Amount:    wager.Amount,
		Won:       won,
		WinAmount: winAmount,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.WagerResult{
		WagerID:    wager.ID,
		Won:        won,
		Amount:     wager.Amount,
		WinAmount:  winAmount,
		NewBalance: newBalance,
	}, nil
}

func (s *wagerService) WagerHistory(ctx context.Context, userID string, limit int) ([]*models.Wager, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wagers, err := uow.WagerRepository().ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list wagers: %w", err)
	}

	return wagers, nil
}
