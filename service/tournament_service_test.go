package service

import (
	"context"
	"testing"

	"quizhouse/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func openTournament(id int64) *models.Tournament {
	return &models.Tournament{
		ID:              id,
		Name:            "friday night trivia",
		EntryFee:        500,
		MaxParticipants: 4,
		Pool:            500,
		Status:          models.TournamentStatusOpen,
		CreatorID:       "creator",
	}
}

func detailWith(t *models.Tournament, userIDs ...string) *models.TournamentDetail {
	detail := &models.TournamentDetail{Tournament: t}
	for _, userID := range userIDs {
		detail.Participants = append(detail.Participants, &models.TournamentParticipant{
			TournamentID: t.ID,
			UserID:       userID,
		})
	}
	return detail
}

func TestTournamentService_Create_CreatorSeedsPool(t *testing.T) {
	ctx := context.Background()

	mockAccountRepo := new(MockAccountRepository)
	mockTransactionRepo := new(MockTransactionRepository)
	mockTournamentRepo := new(MockTournamentRepository)
	mockUoW, mockFactory := newMockUow(mockAccountRepo, mockTransactionRepo, mockTournamentRepo)
	mockUoW.On("Commit").Return(nil)

	service := NewTournamentService(mockFactory, testConfig())

	mockTournamentRepo.On("Create", ctx, mock.MatchedBy(func(tr *models.Tournament) bool {
		return tr.Name == "friday night trivia" &&
			tr.EntryFee == 500 &&
			tr.Status == models.TournamentStatusOpen &&
			tr.CreatorID == "creator"
	})).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Tournament).ID = 9
	})
	mockAccountRepo.On("DeductPlayable", ctx, "creator", int64(500)).Return(int64(9500), nil)
	mockTransactionRepo.On("Append", ctx, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.UserID == "creator" &&
			tx.Type == models.TransactionTypeTournamentStake &&
			tx.Amount == -500
	})).Return(nil)
	mockTournamentRepo.On("AddParticipant", ctx, mock.MatchedBy(func(p *models.TournamentParticipant) bool {
		return p.TournamentID == 9 && p.UserID == "creator"
	})).Return(nil)
	mockTournamentRepo.On("AddToPool", ctx, int64(9), int64(500)).Return(int64(500), nil)

	tournament, err := service.Create(ctx, "creator", "friday night trivia", 500, 4)

	assert.NoError(t, err)
	assert.Equal(t, int64(9), tournament.ID)
	assert.Equal(t, int64(500), tournament.Pool)

	mockAccountRepo.AssertExpectations(t)
	mockTournamentRepo.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
}

func TestTournamentService_Create_Validation(t *testing.T) {
	ctx := context.Background()

	_, mockFactory := newMockUow()
	service := NewTournamentService(mockFactory, testConfig())

	_, err := service.Create(ctx, "creator", "x", 0, 4)
	assert.Equal(t, CodeInvalidAmount, ErrorCode(err))

	_, err = service.Create(ctx, "creator", "x", 500, 1)
	assert.Equal(t, CodeInvalidAmount, ErrorCode(err))

	_, err = service.Create(ctx, "creator", "", 500, 4)
	assert.Equal(t, CodeInvalidAmount, ErrorCode(err))
}

func TestTournamentService_Join_FillingLastSlotStartsIt(t *testing.T) {
	ctx := context.Background()

	mockAccountRepo := new(MockAccountRepository)
	mockTransactionRepo := new(MockTransactionRepository)
	mockTournamentRepo := new(MockTournamentRepository)
	mockUoW, mockFactory := newMockUow(mockAccountRepo, mockTransactionRepo, mockTournamentRepo)
	mockUoW.On("Commit").Return(nil)

	service := NewTournamentService(mockFactory, testConfig())

	tournament := openTournament(9)
	tournament.Pool = 1500
	mockTournamentRepo.On("GetForUpdate", ctx, int64(9)).Return(tournament, nil)
	mockTournamentRepo.On("GetDetail", ctx, int64(9)).
		Return(detailWith(tournament, "creator", "player-1", "player-2"), nil)
	mockAccountRepo.On("DeductPlayable", ctx, "player-3", int64(500)).Return(int64(4500), nil)
	mockTransactionRepo.On("Append", ctx, mock.Anything).Return(nil)
	mockTournamentRepo.On("AddParticipant", ctx, mock.Anything).Return(nil)
	mockTournamentRepo.On("AddToPool", ctx, int64(9), int64(500)).Return(int64(2000), nil)
	mockTournamentRepo.On("SetStatus", ctx, int64(9), models.TournamentStatusOpen, models.TournamentStatusActive).
		Return(true, nil)

	joined, err := service.Join(ctx, 9, "player-3")

	assert.NoError(t, err)
	assert.Equal(t, models.TournamentStatusActive, joined.Status)
	assert.Equal(t, int64(2000), joined.Pool)

	mockTournamentRepo.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
}

func TestTournamentService_Join_Denials(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate join", func(t *testing.T) {
		mockTournamentRepo := new(MockTournamentRepository)
		mockUoW, mockFactory := newMockUow(mockTournamentRepo)

		service := NewTournamentService(mockFactory, testConfig())

		tournament := openTournament(9)
		mockTournamentRepo.On("GetForUpdate", ctx, int64(9)).Return(tournament, nil)
		mockTournamentRepo.On("GetDetail", ctx, int64(9)).
			Return(detailWith(tournament, "creator", "player-1"), nil)

		_, err := service.Join(ctx, 9, "player-1")
		assert.Equal(t, CodeAlreadyJoined, ErrorCode(err))
		mockUoW.AssertNotCalled(t, "Commit")
	})

	t.Run("full tournament", func(t *testing.T) {
		mockTournamentRepo := new(MockTournamentRepository)
		_, mockFactory := newMockUow(mockTournamentRepo)

		service := NewTournamentService(mockFactory, testConfig())

		tournament := openTournament(9)
		tournament.MaxParticipants = 2
		mockTournamentRepo.On("GetForUpdate", ctx, int64(9)).Return(tournament, nil)
		mockTournamentRepo.On("GetDetail", ctx, int64(9)).
			Return(detailWith(tournament, "creator", "player-1"), nil)

		_, err := service.Join(ctx, 9, "player-2")
		assert.Equal(t, CodeTournamentFull, ErrorCode(err))
	})

	t.Run("not open", func(t *testing.T) {
		mockTournamentRepo := new(MockTournamentRepository)
		_, mockFactory := newMockUow(mockTournamentRepo)

		service := NewTournamentService(mockFactory, testConfig())

		tournament := openTournament(9)
		tournament.Status = models.TournamentStatusActive
		mockTournamentRepo.On("GetForUpdate", ctx, int64(9)).Return(tournament, nil)

		_, err := service.Join(ctx, 9, "player-1")
		assert.Equal(t, CodeNotOpen, ErrorCode(err))
	})

	t.Run("missing tournament", func(t *testing.T) {
		mockTournamentRepo := new(MockTournamentRepository)
		_, mockFactory := newMockUow(mockTournamentRepo)

		service := NewTournamentService(mockFactory, testConfig())

		mockTournamentRepo.On("GetForUpdate", ctx, int64(404)).Return(nil, nil)

		_, err := service.Join(ctx, 404, "player-1")
		assert.Equal(t, CodeNotFound, ErrorCode(err))
	})
}

func TestTournamentService_Complete_SplitsPool(t *testing.T) {
	ctx := context.Background()

	mockAccountRepo := new(MockAccountRepository)
	mockTransactionRepo := new(MockTransactionRepository)
	mockTournamentRepo := new(MockTournamentRepository)
	mockUoW, mockFactory := newMockUow(mockAccountRepo, mockTransactionRepo, mockTournamentRepo)
	mockUoW.On("Commit").Return(nil)

	service := NewTournamentService(mockFactory, testConfig())

	tournament := openTournament(9)
	tournament.Status = models.TournamentStatusActive
	tournament.Pool = 1000
	mockTournamentRepo.On("GetForUpdate", ctx, int64(9)).Return(tournament, nil)
	mockTournamentRepo.On("GetDetail", ctx, int64(9)).
		Return(detailWith(tournament, "creator", "player-1"), nil)
	// 20% fee: 1000 splits into 800 payout and 200 fee
	mockTournamentRepo.On("Complete", ctx, int64(9), "player-1", int64(800), int64(200), mock.AnythingOfType("time.Time")).
		Return(true, nil)
	mockAccountRepo.On("AddEarned", ctx, "player-1", int64(800)).Return(int64(10800), nil)
	mockTransactionRepo.On("Append", ctx, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.UserID == "player-1" &&
			tx.Type == models.TransactionTypeTournamentPrize &&
			tx.Amount == 800
	})).Return(nil)
	// Fee account exists already; just gets credited
	mockAccountRepo.On("Get", ctx, "system:fees").Return(&models.Account{UserID: "system:fees"}, nil)
	mockAccountRepo.On("AddPlayable", ctx, "system:fees", int64(200)).Return(int64(200), nil)
	mockTransactionRepo.On("Append", ctx, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.UserID == "system:fees" &&
			tx.Type == models.TransactionTypeFee &&
			tx.Amount == 200
	})).Return(nil)

	result, err := service.Complete(ctx, 9, "player-1")

	assert.NoError(t, err)
	assert.Equal(t, "player-1", result.WinnerID)
	assert.Equal(t, int64(800), result.WinnerPayout)
	assert.Equal(t, int64(200), result.PlatformFee)
	assert.Equal(t, models.TournamentStatusCompleted, result.Tournament.Status)

	mockAccountRepo.AssertExpectations(t)
	mockTournamentRepo.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
}

func TestTournamentService_Complete_Guards(t *testing.T) {
	ctx := context.Background()

	t.Run("already completed", func(t *testing.T) {
		mockTournamentRepo := new(MockTournamentRepository)
		_, mockFactory := newMockUow(mockTournamentRepo)

		service := NewTournamentService(mockFactory, testConfig())

		tournament := openTournament(9)
		tournament.Status = models.TournamentStatusCompleted
		mockTournamentRepo.On("GetForUpdate", ctx, int64(9)).Return(tournament, nil)

		_, err := service.Complete(ctx, 9, "player-1")
		assert.Equal(t, CodeAlreadyCompleted, ErrorCode(err))
	})

	t.Run("still open", func(t *testing.T) {
		mockTournamentRepo := new(MockTournamentRepository)
		_, mockFactory := newMockUow(mockTournamentRepo)

		service := NewTournamentService(mockFactory, testConfig())

		mockTournamentRepo.On("GetForUpdate", ctx, int64(9)).Return(openTournament(9), nil)

		_, err := service.Complete(ctx, 9, "player-1")
		assert.Equal(t, CodeNotActive, ErrorCode(err))
	})

	t.Run("winner not a participant", func(t *testing.T) {
		mockTournamentRepo := new(MockTournamentRepository)
		mockUoW, mockFactory := newMockUow(mockTournamentRepo)

		service := NewTournamentService(mockFactory, testConfig())

		tournament := openTournament(9)
		tournament.Status = models.TournamentStatusActive
		mockTournamentRepo.On("GetForUpdate", ctx, int64(9)).Return(tournament, nil)
		mockTournamentRepo.On("GetDetail", ctx, int64(9)).
			Return(detailWith(tournament, "creator", "player-1"), nil)

		_, err := service.Complete(ctx, 9, "outsider")
		assert.Equal(t, CodeNotParticipant, ErrorCode(err))
		mockUoW.AssertNotCalled(t, "Commit")
	})

	t.Run("concurrent completion loses race", func(t *testing.T) {
		mockTournamentRepo := new(MockTournamentRepository)
		mockUoW, mockFactory := newMockUow(mockTournamentRepo)

		service := NewTournamentService(mockFactory, testConfig())

		tournament := openTournament(9)
		tournament.Status = models.TournamentStatusActive
		tournament.Pool = 1000
		mockTournamentRepo.On("GetForUpdate", ctx, int64(9)).Return(tournament, nil)
		mockTournamentRepo.On("GetDetail", ctx, int64(9)).
			Return(detailWith(tournament, "creator", "player-1"), nil)
		mockTournamentRepo.On("Complete", ctx, int64(9), "player-1", int64(800), int64(200), mock.AnythingOfType("time.Time")).
			Return(false, nil)

		_, err := service.Complete(ctx, 9, "player-1")
		assert.Equal(t, CodeAlreadyCompleted, ErrorCode(err))
		mockUoW.AssertNotCalled(t, "Commit")
	})
}

func TestTournamentService_Cancel_RefundsAllParticipants(t *testing.T) {
	ctx := context.Background()

	mockAccountRepo := new(MockAccountRepository)
	mockTransactionRepo := new(MockTransactionRepository)
	mockTournamentRepo := new(MockTournamentRepository)
	mockUoW, mockFactory := newMockUow(mockAccountRepo, mockTransactionRepo, mockTournamentRepo)
	mockUoW.On("Commit").Return(nil)

	service := NewTournamentService(mockFactory, testConfig())

	tournament := openTournament(9)
	tournament.Pool = 1000
	mockTournamentRepo.On("GetForUpdate", ctx, int64(9)).Return(tournament, nil)
	mockTournamentRepo.On("GetDetail", ctx, int64(9)).
		Return(detailWith(tournament, "creator", "player-1"), nil)
	mockAccountRepo.On("AddPlayable", ctx, "creator", int64(500)).Return(int64(10000), nil)
	mockAccountRepo.On("AddPlayable", ctx, "player-1", int64(500)).Return(int64(5000), nil)
	mockTransactionRepo.On("Append", ctx, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.Type == models.TransactionTypeTournamentRefund && tx.Amount == 500
	})).Return(nil).Times(2)
	mockTournamentRepo.On("SetStatus", ctx, int64(9), models.TournamentStatusOpen, models.TournamentStatusCancelled).
		Return(true, nil)

	cancelled, err := service.Cancel(ctx, 9)

	assert.NoError(t, err)
	assert.Equal(t, models.TournamentStatusCancelled, cancelled.Status)

	mockAccountRepo.AssertExpectations(t)
	mockTransactionRepo.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
}

func TestTournamentService_Cancel_ActiveTournament(t *testing.T) {
	ctx := context.Background()

	mockTournamentRepo := new(MockTournamentRepository)
	mockUoW, mockFactory := newMockUow(mockTournamentRepo)

	service := NewTournamentService(mockFactory, testConfig())

	tournament := openTournament(9)
	tournament.Status = models.TournamentStatusActive
	mockTournamentRepo.On("GetForUpdate", ctx, int64(9)).Return(tournament, nil)

	_, err := service.Cancel(ctx, 9)

	assert.Equal(t, CodeNotOpen, ErrorCode(err))
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestTournamentService_ListOpen_CachesListing(t *testing.T) {
	ctx := context.Background()

	mockTournamentRepo := new(MockTournamentRepository)
	_, mockFactory := newMockUow(mockTournamentRepo)

	service := NewTournamentService(mockFactory, testConfig())

	open := []*models.Tournament{openTournament(9)}
	mockTournamentRepo.On("ListByStatus", ctx, models.TournamentStatusOpen, defaultHistoryLimit).
		Return(open, nil).Once()

	first, err := service.ListOpen(ctx)
	assert.NoError(t, err)
	assert.Len(t, first, 1)

	// Second call inside the TTL is served from the cache
	second, err := service.ListOpen(ctx)
	assert.NoError(t, err)
	assert.Len(t, second, 1)

	mockTournamentRepo.AssertExpectations(t)
}
