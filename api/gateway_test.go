package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizhouse/config"
	"quizhouse/models"
	"quizhouse/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func gatewayConfig() *config.Config {
	return &config.Config{
		MinBet:        10,
		MaxBet:        1000,
		WinRate:       0.4,
		WinMultiplier: 2.0,
		MinDeposit:    100,
		MinWithdrawal: 1000,
		StartingBonus: 5000,
	}
}

func TestGateway_PlaceWager_BlockedUserIsDeniedWithoutDebit(t *testing.T) {
	ctx := context.Background()

	mockAccountRepo := new(service.MockAccountRepository)
	mockUoW := new(service.MockUnitOfWork)
	mockUoW.SetRepositories(mockAccountRepo, nil, nil, nil, nil, nil, nil)
	mockFactory := new(service.MockUnitOfWorkFactory)
	mockFactory.On("Create").Return(mockUoW)

	gate := new(service.MockSecurityService)
	gate.On("AllowWager", mock.Anything, "user-1").
		Return(service.NewError(service.CodeUserBlocked, "user is blocked from wagering"))

	wagers := service.NewWagerService(mockFactory, gatewayConfig(), gate)
	gateway := NewGateway(nil, wagers, gate, nil, nil)

	result := gateway.PlaceWager(ctx, "user-1", "q-1", 100)

	assert.False(t, result.Success)
	assert.Equal(t, service.CodeUserBlocked, result.Code)
	assert.Nil(t, result.Data)

	// The denial happened before any money moved
	mockAccountRepo.AssertNotCalled(t, "DeductPlayable", mock.Anything, mock.Anything, mock.Anything)
	mockUoW.AssertNotCalled(t, "Begin", mock.Anything)
}

func TestGateway_CheckBalance(t *testing.T) {
	ctx := context.Background()

	mockAccountRepo := new(service.MockAccountRepository)
	mockUoW := new(service.MockUnitOfWork)
	mockUoW.SetRepositories(mockAccountRepo, nil, nil, nil, nil, nil, nil)
	mockFactory := new(service.MockUnitOfWorkFactory)
	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", mock.Anything).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	ledger := service.NewLedgerService(mockFactory, gatewayConfig())
	gateway := NewGateway(ledger, nil, nil, nil, nil)

	mockAccountRepo.On("Get", ctx, "user-1").Return(&models.Account{
		UserID:          "user-1",
		PlayableBalance: 2500,
		BonusBalance:    5000,
	}, nil)

	result := gateway.CheckBalance(ctx, "user-1")

	assert.True(t, result.Success)
	assert.Empty(t, result.Code)
	snapshot, ok := result.Data.(*models.BalanceSnapshot)
	assert.True(t, ok)
	assert.Equal(t, int64(2500), snapshot.PlayableBalance)
}

func TestGateway_UnexpectedFaultBecomesInternalError(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(service.MockUnitOfWork)
	mockUoW.SetRepositories(nil, nil, nil, nil, nil, nil, nil)
	mockFactory := new(service.MockUnitOfWorkFactory)
	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", mock.Anything).Return(errors.New("connection refused"))

	ledger := service.NewLedgerService(mockFactory, gatewayConfig())
	gateway := NewGateway(ledger, nil, nil, nil, nil)

	result := gateway.CheckBalance(ctx, "user-1")

	assert.False(t, result.Success)
	assert.Equal(t, service.CodeInternalError, result.Code)
	// The storage fault is not leaked to the caller
	assert.Equal(t, "internal error", result.Message)
}

func TestGateway_SecurityDenialCodesPassThrough(t *testing.T) {
	ctx := context.Background()

	gate := new(service.MockSecurityService)
	gate.On("AllowSessionStart", mock.Anything, "user-1", models.DifficultyHard).
		Return(service.NewError(service.CodeLevelRestriction, "hard difficulty requires level 5"))
	gate.On("AllowAnswer", mock.Anything, int64(11), "user-1", "q-3", 500*time.Millisecond, true).
		Return(service.NewError(service.CodeRapidAnswers, "answers submitted too quickly"))

	gateway := NewGateway(nil, nil, gate, nil, nil)

	result := gateway.AllowSessionStart(ctx, "user-1", models.DifficultyHard)
	assert.False(t, result.Success)
	assert.Equal(t, service.CodeLevelRestriction, result.Code)

	result = gateway.AllowAnswer(ctx, 11, "user-1", "q-3", 500*time.Millisecond, true)
	assert.False(t, result.Success)
	assert.Equal(t, service.CodeRapidAnswers, result.Code)
}
