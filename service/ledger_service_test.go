package service

import (
	"context"
	"testing"
	"time"

	"quizhouse/config"
	"quizhouse/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func testConfig() *config.Config {
	return &config.Config{
		MinBet:             10,
		MaxBet:             1000,
		WinRate:            0.4,
		WinMultiplier:      2.0,
		MinDeposit:         100,
		MinWithdrawal:      1000,
		StartingBonus:      5000,
		MaxDailyQuizzes:    10,
		MaxHourlyQuizzes:   3,
		MinSessionSpacing:  30 * time.Second,
		RapidAnswerTime:    2 * time.Second,
		RapidAnswerWindow:  60 * time.Second,
		RapidAnswerStrikes: 3,
		BlockCacheTTL:      30 * time.Second,
		DefaultBlockTime:   24 * time.Hour,
		TournamentFeeRate:  0.20,
		TournamentCacheTTL: 30 * time.Second,
		FeeAccountID:       "system:fees",
	}
}

func newMockUow(repos ...any) (*MockUnitOfWork, *MockUnitOfWorkFactory) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)

	var accountRepo AccountRepository
	var transactionRepo TransactionRepository
	var wagerRepo WagerRepository
	var tournamentRepo TournamentRepository
	var blockRepo BlockRepository
	var sessionRepo SessionRepository
	var taskRepo TaskCompletionRepository
	for _, repo := range repos {
		switch r := repo.(type) {
		case *MockAccountRepository:
			accountRepo = r
		case *MockTransactionRepository:
			transactionRepo = r
		case *MockWagerRepository:
			wagerRepo = r
		case *MockTournamentRepository:
			tournamentRepo = r
		case *MockBlockRepository:
			blockRepo = r
		case *MockSessionRepository:
			sessionRepo = r
		case *MockTaskCompletionRepository:
			taskRepo = r
		}
	}
	mockUoW.SetRepositories(accountRepo, transactionRepo, wagerRepo, tournamentRepo, blockRepo, sessionRepo, taskRepo)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", mock.Anything).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	return mockUoW, mockFactory
}

func TestLedgerService_Credit(t *testing.T) {
	ctx := context.Background()

	mockAccountRepo := new(MockAccountRepository)
	mockTransactionRepo := new(MockTransactionRepository)
	mockUoW, mockFactory := newMockUow(mockAccountRepo, mockTransactionRepo)
	mockUoW.On("Commit").Return(nil)

	service := NewLedgerService(mockFactory, testConfig())

	mockAccountRepo.On("AddPlayable", ctx, "user-1", int64(500)).Return(int64(1500), nil)
	mockTransactionRepo.On("Append", ctx, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.UserID == "user-1" &&
			tx.Type == models.TransactionTypeTaskReward &&
			tx.Amount == 500 &&
			tx.Status == models.TransactionStatusCompleted &&
			tx.Reference != ""
	})).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Transaction).ID = 42
	})

	transaction, err := service.Credit(ctx, "user-1", 500, models.TransactionTypeTaskReward, nil)

	assert.NoError(t, err)
	assert.NotNil(t, transaction)
	assert.Equal(t, int64(42), transaction.ID)
	assert.Equal(t, int64(500), transaction.Amount)

	mockAccountRepo.AssertExpectations(t)
	mockTransactionRepo.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
}

func TestLedgerService_Credit_InvalidAmount(t *testing.T) {
	ctx := context.Background()

	_, mockFactory := newMockUow()
	service := NewLedgerService(mockFactory, testConfig())

	_, err := service.Credit(ctx, "user-1", 0, models.TransactionTypeTaskReward, nil)
	assert.Error(t, err)
	assert.Equal(t, CodeInvalidAmount, ErrorCode(err))
}

func TestLedgerService_Debit_InsufficientFunds(t *testing.T) {
	ctx := context.Background()

	mockAccountRepo := new(MockAccountRepository)
	mockUoW, mockFactory := newMockUow(mockAccountRepo)

	service := NewLedgerService(mockFactory, testConfig())

	mockAccountRepo.On("DeductPlayable", ctx, "user-1", int64(9999)).
		Return(int64(0), NewError(CodeInsufficientFunds, "insufficient balance: have 100, need 9999"))

	_, err := service.Debit(ctx, "user-1", 9999, models.TransactionTypeWagerDebit, nil)

	assert.Error(t, err)
	assert.Equal(t, CodeInsufficientFunds, ErrorCode(err))
	mockUoW.AssertNotCalled(t, "Commit")
	mockAccountRepo.AssertExpectations(t)
}

func TestLedgerService_RequestDeposit_BelowMinimum(t *testing.T) {
	ctx := context.Background()

	_, mockFactory := newMockUow()
	service := NewLedgerService(mockFactory, testConfig())

	_, err := service.RequestDeposit(ctx, "user-1", 50, nil)

	assert.Error(t, err)
	assert.Equal(t, CodeBelowMinimum, ErrorCode(err))
}

func TestLedgerService_RequestDeposit_IsBalanceInert(t *testing.T) {
	ctx := context.Background()

	mockAccountRepo := new(MockAccountRepository)
	mockTransactionRepo := new(MockTransactionRepository)
	mockUoW, mockFactory := newMockUow(mockAccountRepo, mockTransactionRepo)
	mockUoW.On("Commit").Return(nil)

	service := NewLedgerService(mockFactory, testConfig())

	mockAccountRepo.On("Get", ctx, "user-1").Return(&models.Account{
		UserID:          "user-1",
		PlayableBalance: 1000,
	}, nil)
	mockTransactionRepo.On("Append", ctx, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.UserID == "user-1" &&
			tx.Type == models.TransactionTypeDeposit &&
			tx.Amount == 2000 &&
			tx.Status == models.TransactionStatusPending &&
			tx.Reference != ""
	})).Return(nil)

	transaction, err := service.RequestDeposit(ctx, "user-1", 2000, nil)

	assert.NoError(t, err)
	assert.Equal(t, models.TransactionStatusPending, transaction.Status)

	// Nothing moves until an admin approves
	mockAccountRepo.AssertNotCalled(t, "ApplyDeposit", mock.Anything, mock.Anything, mock.Anything)
	mockAccountRepo.AssertNotCalled(t, "AddPlayable", mock.Anything, mock.Anything, mock.Anything)
	mockAccountRepo.AssertNotCalled(t, "DeductPlayable", mock.Anything, mock.Anything, mock.Anything)

	mockAccountRepo.AssertExpectations(t)
	mockTransactionRepo.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
}

func TestLedgerService_ApproveDeposit_UnlocksBonus(t *testing.T) {
	ctx := context.Background()

	mockAccountRepo := new(MockAccountRepository)
	mockTransactionRepo := new(MockTransactionRepository)
	mockUoW, mockFactory := newMockUow(mockAccountRepo, mockTransactionRepo)
	mockUoW.On("Commit").Return(nil)

	service := NewLedgerService(mockFactory, testConfig())

	pending := &models.Transaction{
		ID:        7,
		Reference: "ref-1",
		UserID:    "user-1",
		Type:      models.TransactionTypeDeposit,
		Amount:    2000,
		Status:    models.TransactionStatusPending,
	}
	mockTransactionRepo.On("GetByReference", ctx, "ref-1").Return(pending, nil)
	mockTransactionRepo.On("MarkDecided", ctx, int64(7), models.TransactionStatusCompleted, mock.AnythingOfType("time.Time")).
		Return(true, nil)
	// First approved deposit folds the locked 5000 bonus into playable
	mockAccountRepo.On("ApplyDeposit", ctx, "user-1", int64(2000)).Return(int64(7000), int64(5000), nil)

	transaction, err := service.ApproveDeposit(ctx, "ref-1")

	assert.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCompleted, transaction.Status)
	assert.NotNil(t, transaction.DecidedAt)

	mockAccountRepo.AssertExpectations(t)
	mockTransactionRepo.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
}

func TestLedgerService_ApproveDeposit_AlreadyDecided(t *testing.T) {
	ctx := context.Background()

	mockTransactionRepo := new(MockTransactionRepository)
	mockUoW, mockFactory := newMockUow(mockTransactionRepo)

	service := NewLedgerService(mockFactory, testConfig())

	decided := &models.Transaction{
		ID:        7,
		Reference: "ref-1",
		UserID:    "user-1",
		Type:      models.TransactionTypeDeposit,
		Amount:    2000,
		Status:    models.TransactionStatusCompleted,
	}
	mockTransactionRepo.On("GetByReference", ctx, "ref-1").Return(decided, nil)

	_, err := service.ApproveDeposit(ctx, "ref-1")

	assert.Error(t, err)
	assert.Equal(t, CodeNotPending, ErrorCode(err))
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestLedgerService_RejectWithdrawal_RefundsHeldFunds(t *testing.T) {
	ctx := context.Background()

	mockAccountRepo := new(MockAccountRepository)
	mockTransactionRepo := new(MockTransactionRepository)
	mockUoW, mockFactory := newMockUow(mockAccountRepo, mockTransactionRepo)
	mockUoW.On("Commit").Return(nil)

	service := NewLedgerService(mockFactory, testConfig())

	pending := &models.Transaction{
		ID:        11,
		Reference: "ref-2",
		UserID:    "user-1",
		Type:      models.TransactionTypeWithdrawal,
		Amount:    -2000,
		Status:    models.TransactionStatusPending,
	}
	mockTransactionRepo.On("GetByReference", ctx, "ref-2").Return(pending, nil)
	mockTransactionRepo.On("MarkDecided", ctx, int64(11), models.TransactionStatusRejected, mock.AnythingOfType("time.Time")).
		Return(true, nil)
	mockAccountRepo.On("RefundWithdrawal", ctx, "user-1", int64(2000)).Return(int64(5000), nil)
	// The refund leaves a reversing entry pointing at the rejected request
	mockTransactionRepo.On("Append", ctx, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.UserID == "user-1" &&
			tx.Type == models.TransactionTypeWithdrawal &&
			tx.Amount == 2000 &&
			tx.Details["reversal_of"] == "ref-2"
	})).Return(nil)

	transaction, err := service.RejectWithdrawal(ctx, "ref-2")

	assert.NoError(t, err)
	assert.Equal(t, models.TransactionStatusRejected, transaction.Status)

	mockAccountRepo.AssertExpectations(t)
	mockTransactionRepo.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
}

func TestLedgerService_RequestWithdrawal_DisabledAccount(t *testing.T) {
	ctx := context.Background()

	mockAccountRepo := new(MockAccountRepository)
	_, mockFactory := newMockUow(mockAccountRepo)

	service := NewLedgerService(mockFactory, testConfig())

	account := &models.Account{
		UserID:            "user-1",
		PlayableBalance:   50000,
		WithdrawalEnabled: false,
	}
	mockAccountRepo.On("Get", ctx, "user-1").Return(account, nil)

	_, err := service.RequestWithdrawal(ctx, "user-1", 2000, nil)

	assert.Error(t, err)
	assert.Equal(t, CodeNotActive, ErrorCode(err))
}
