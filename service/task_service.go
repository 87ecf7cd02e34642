package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"quizhouse/events"
	"quizhouse/models"

	log "github.com/sirupsen/logrus"
)

type taskService struct {
	uowFactory UnitOfWorkFactory
	gate       SecurityService
}

// NewTaskService creates a new task reward service
func NewTaskService(uowFactory UnitOfWorkFactory, gate SecurityService) TaskService {
	return &taskService{
		uowFactory: uowFactory,
		gate:       gate,
	}
}

func (s *taskService) Submit(ctx context.Context, userID, taskID string, reward int64, proof map[string]any) (*models.TaskCompletion, error) {
	if reward <= 0 {
		return nil, NewError(CodeInvalidAmount, "reward must be positive")
	}
	if taskID == "" {
		return nil, NewError(CodeInvalidAmount, "task id is required")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	account, err := uow.AccountRepository().Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, NewError(CodeNotFound, "account %s not found", userID)
	}

	completion := &models.TaskCompletion{
		TaskID: taskID,
		UserID: userID,
		Reward: reward,
		Status: models.TaskCompletionPending,
		Proof:  proof,
	}
	if err := uow.TaskCompletionRepository().Create(ctx, completion); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return completion, nil
}

func (s *taskService) Approve(ctx context.Context, completionID int64) (*models.TaskRewardResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	completion, err := uow.TaskCompletionRepository().GetByID(ctx, completionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task completion: %w", err)
	}
	if completion == nil {
		return nil, NewError(CodeNotFound, "task completion %d not found", completionID)
	}

	// Low-trust users get a discounted payout
	multiplier, err := s.gate.RewardMultiplier(ctx, completion.UserID)
	if err != nil {
		return nil, err
	}
	paidReward := int64(math.Round(float64(completion.Reward) * multiplier))

	decided, err := uow.TaskCompletionRepository().Decide(ctx, completionID, models.TaskCompletionApproved, nil, time.Now())
	if err != nil {
		return nil, err
	}
	if !decided {
		return nil, NewError(CodeNotPending, "task completion %d already decided", completionID)
	}

	newBalance, err := uow.AccountRepository().AddEarned(ctx, completion.UserID, paidReward)
	if err != nil {
		return nil, err
	}

	transaction := &models.Transaction{
		UserID: completion.UserID,
		Type:   models.TransactionTypeTaskReward,
		Amount: paidReward,
		Details: map[string]any{
			"task_id":       completion.TaskID,
			"completion_id": completion.ID,
			"base_reward":   completion.Reward,
			"multiplier":    multiplier,
		},
	}
	if err := recordTransaction(ctx, uow, transaction); err != nil {
		return nil, err
	}
	publishBalanceChange(uow, completion.UserID, newBalance, paidReward, models.TransactionTypeTaskReward)

	uow.EventBus().Publish(events.TaskRewardedEvent{
		UserID:       completion.UserID,
		CompletionID: completion.ID,
		PaidReward:   paidReward,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":       completion.UserID,
		"completionID": completionID,
		"paidReward":   paidReward,
		"multiplier":   multiplier,
	}).Info("Task reward approved")

	return &models.TaskRewardResult{
		CompletionID: completion.ID,
		UserID:       completion.UserID,
		BaseReward:   completion.Reward,
		Multiplier:   multiplier,
		PaidReward:   paidReward,
		NewBalance:   newBalance,
	}, nil
}

func (s *taskService) Reject(ctx context.Context, completionID int64, reason string) (*models.TaskCompletion, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	completion, err := uow.TaskCompletionRepository().GetByID(ctx, completionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task completion: %w", err)
	}
	if completion == nil {
		return nil, NewError(CodeNotFound, "task completion %d not found", completionID)
	}

	now := time.Now()
	decided, err := uow.TaskCompletionRepository().Decide(ctx, completionID, models.TaskCompletionRejected, &reason, now)
	if err != nil {
		return nil, err
	}
	if !decided {
		return nil, NewError(CodeNotPending, "task completion %d already decided", completionID)
	}

	completion.Status = models.TaskCompletionRejected
	completion.RejectReason = &reason
	completion.DecidedAt = &now

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return completion, nil
}

func (s *taskService) ListPending(ctx context.Context, limit int) ([]*models.TaskCompletion, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	completions, err := uow.TaskCompletionRepository().ListPending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending completions: %w", err)
	}

	return completions, nil
}
