package testutil

import (
	"time"

	"quizhouse/models"

	"github.com/google/uuid"
)

// CreateTestAccount creates a test account with default values
func CreateTestAccount(userID string) *models.Account {
	now := time.Now()
	return &models.Account{
		UserID:          userID,
		PlayableBalance: 10000,
		BonusBalance:    5000,
		MaxDailyQuizzes: 10,
		Level:           1,
		DailyCountDate:  now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// CreateTestTransaction creates a completed test ledger entry
func CreateTestTransaction(userID string, transactionType models.TransactionType, amount int64) *models.Transaction {
	return &models.Transaction{
		Reference: uuid.NewString(),
		UserID:    userID,
		Type:      transactionType,
		Amount:    amount,
		Status:    models.TransactionStatusCompleted,
		Details: map[string]any{
			"test": true,
		},
		CreatedAt: time.Now(),
	}
}

// CreateTestPendingTransaction creates a pending test ledger entry
func CreateTestPendingTransaction(userID string, transactionType models.TransactionType, amount int64) *models.Transaction {
	transaction := CreateTestTransaction(userID, transactionType, amount)
	transaction.Status = models.TransactionStatusPending
	return transaction
}

// CreateTestWager creates a placed test wager
func CreateTestWager(userID, questionID string, amount int64) *models.Wager {
	return &models.Wager{
		UserID:     userID,
		QuestionID: questionID,
		Amount:     amount,
		Status:     models.WagerStatusPlaced,
		PlacedAt:   time.Now(),
	}
}

// CreateTestTournament creates an open test tournament
func CreateTestTournament(creatorID, name string, entryFee int64, maxParticipants int) *models.Tournament {
	return &models.Tournament{
		Name:            name,
		EntryFee:        entryFee,
		MaxParticipants: maxParticipants,
		Status:          models.TournamentStatusOpen,
		CreatorID:       creatorID,
		CreatedAt:       time.Now(),
	}
}

// CreateTestBlock creates an active test block
func CreateTestBlock(userID, reason string, duration time.Duration) *models.Block {
	return &models.Block{
		UserID:    userID,
		Reason:    reason,
		Duration:  duration,
		Status:    models.BlockStatusActive,
		BlockedAt: time.Now(),
	}
}

// CreateTestSession creates an uncompleted test quiz session
func CreateTestSession(userID string, difficulty models.Difficulty) *models.QuizSession {
	return &models.QuizSession{
		UserID:     userID,
		Difficulty: difficulty,
		StartedAt:  time.Now(),
	}
}

// CreateTestTaskCompletion creates a pending test task claim
func CreateTestTaskCompletion(userID, taskID string, reward int64) *models.TaskCompletion {
	return &models.TaskCompletion{
		TaskID: taskID,
		UserID: userID,
		Reward: reward,
		Status: models.TaskCompletionPending,
		Proof: map[string]any{
			"screenshot": "https://example.com/proof.png",
		},
		SubmittedAt: time.Now(),
	}
}
