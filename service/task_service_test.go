package service

import (
	"context"
	"testing"

	"quizhouse/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestTaskService_Submit(t *testing.T) {
	ctx := context.Background()

	mockAccountRepo := new(MockAccountRepository)
	mockTaskRepo := new(MockTaskCompletionRepository)
	mockUoW, mockFactory := newMockUow(mockAccountRepo, mockTaskRepo)
	mockUoW.On("Commit").Return(nil)

	service := NewTaskService(mockFactory, new(MockSecurityService))

	mockAccountRepo.On("Get", ctx, "user-1").Return(&models.Account{UserID: "user-1"}, nil)
	mockTaskRepo.On("Create", ctx, mock.MatchedBy(func(c *models.TaskCompletion) bool {
		return c.TaskID == "daily-login" &&
			c.UserID == "user-1" &&
			c.Reward == 250 &&
			c.Status == models.TaskCompletionPending
	})).Return(nil)

	completion, err := service.Submit(ctx, "user-1", "daily-login", 250, map[string]any{"streak": 4})

	assert.NoError(t, err)
	assert.Equal(t, models.TaskCompletionPending, completion.Status)

	mockTaskRepo.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
}

func TestTaskService_Submit_RequiresAccount(t *testing.T) {
	ctx := context.Background()

	mockAccountRepo := new(MockAccountRepository)
	mockTaskRepo := new(MockTaskCompletionRepository)
	mockUoW, mockFactory := newMockUow(mockAccountRepo, mockTaskRepo)

	service := NewTaskService(mockFactory, new(MockSecurityService))

	mockAccountRepo.On("Get", ctx, "ghost").Return(nil, nil)

	_, err := service.Submit(ctx, "ghost", "daily-login", 250, nil)

	assert.Equal(t, CodeNotFound, ErrorCode(err))
	mockTaskRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestTaskService_Submit_Validation(t *testing.T) {
	ctx := context.Background()

	_, mockFactory := newMockUow()
	service := NewTaskService(mockFactory, new(MockSecurityService))

	_, err := service.Submit(ctx, "user-1", "daily-login", 0, nil)
	assert.Equal(t, CodeInvalidAmount, ErrorCode(err))

	_, err = service.Submit(ctx, "user-1", "", 250, nil)
	assert.Equal(t, CodeInvalidAmount, ErrorCode(err))
}

func TestTaskService_Approve_DiscountsLowTrustPayout(t *testing.T) {
	ctx := context.Background()

	mockAccountRepo := new(MockAccountRepository)
	mockTransactionRepo := new(MockTransactionRepository)
	mockTaskRepo := new(MockTaskCompletionRepository)
	mockUoW, mockFactory := newMockUow(mockAccountRepo, mockTransactionRepo, mockTaskRepo)
	mockUoW.On("Commit").Return(nil)

	gate := new(MockSecurityService)
	gate.On("RewardMultiplier", ctx, "user-1").Return(0.8, nil)

	service := NewTaskService(mockFactory, gate)

	mockTaskRepo.On("GetByID", ctx, int64(3)).Return(&models.TaskCompletion{
		ID:     3,
		TaskID: "daily-login",
		UserID: "user-1",
		Reward: 250,
		Status: models.TaskCompletionPending,
	}, nil)
	mockTaskRepo.On("Decide", ctx, int64(3), models.TaskCompletionApproved, (*string)(nil), mock.AnythingOfType("time.Time")).
		Return(true, nil)
	// 250 × 0.8 = 200 paid out
	mockAccountRepo.On("AddEarned", ctx, "user-1", int64(200)).Return(int64(10200), nil)
	mockTransactionRepo.On("Append", ctx, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.Type == models.TransactionTypeTaskReward &&
			tx.Amount == 200 &&
			tx.Details["base_reward"] == int64(250) &&
			tx.Details["multiplier"] == 0.8
	})).Return(nil)

	result, err := service.Approve(ctx, 3)

	assert.NoError(t, err)
	assert.Equal(t, int64(250), result.BaseReward)
	assert.Equal(t, 0.8, result.Multiplier)
	assert.Equal(t, int64(200), result.PaidReward)
	assert.Equal(t, int64(10200), result.NewBalance)

	mockAccountRepo.AssertExpectations(t)
	mockTaskRepo.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
}

func TestTaskService_Approve_AlreadyDecided(t *testing.T) {
	ctx := context.Background()

	mockAccountRepo := new(MockAccountRepository)
	mockTaskRepo := new(MockTaskCompletionRepository)
	mockUoW, mockFactory := newMockUow(mockAccountRepo, mockTaskRepo)

	gate := new(MockSecurityService)
	gate.On("RewardMultiplier", ctx, "user-1").Return(1.0, nil)

	service := NewTaskService(mockFactory, gate)

	mockTaskRepo.On("GetByID", ctx, int64(3)).Return(&models.TaskCompletion{
		ID:     3,
		UserID: "user-1",
		Reward: 250,
		Status: models.TaskCompletionApproved,
	}, nil)
	mockTaskRepo.On("Decide", ctx, int64(3), models.TaskCompletionApproved, (*string)(nil), mock.AnythingOfType("time.Time")).
		Return(false, nil)

	_, err := service.Approve(ctx, 3)

	assert.Equal(t, CodeNotPending, ErrorCode(err))
	mockAccountRepo.AssertNotCalled(t, "AddEarned", mock.Anything, mock.Anything, mock.Anything)
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestTaskService_Reject(t *testing.T) {
	ctx := context.Background()

	mockTaskRepo := new(MockTaskCompletionRepository)
	mockUoW, mockFactory := newMockUow(mockTaskRepo)
	mockUoW.On("Commit").Return(nil)

	service := NewTaskService(mockFactory, new(MockSecurityService))

	mockTaskRepo.On("GetByID", ctx, int64(3)).Return(&models.TaskCompletion{
		ID:     3,
		UserID: "user-1",
		Reward: 250,
		Status: models.TaskCompletionPending,
	}, nil)
	mockTaskRepo.On("Decide", ctx, int64(3), models.TaskCompletionRejected,
		mock.MatchedBy(func(reason *string) bool { return reason != nil && *reason == "proof does not match" }),
		mock.AnythingOfType("time.Time")).Return(true, nil)

	completion, err := service.Reject(ctx, 3, "proof does not match")

	assert.NoError(t, err)
	assert.Equal(t, models.TaskCompletionRejected, completion.Status)
	assert.Equal(t, "proof does not match", *completion.RejectReason)
	assert.NotNil(t, completion.DecidedAt)

	mockTaskRepo.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
}

func TestTaskService_Reject_Missing(t *testing.T) {
	ctx := context.Background()

	mockTaskRepo := new(MockTaskCompletionRepository)
	_, mockFactory := newMockUow(mockTaskRepo)

	service := NewTaskService(mockFactory, new(MockSecurityService))

	mockTaskRepo.On("GetByID", ctx, int64(404)).Return(nil, nil)

	_, err := service.Reject(ctx, 404, "whatever")
	assert.Equal(t, CodeNotFound, ErrorCode(err))
}
