package repository

import (
	"context"
	"testing"
	"time"

	"quizhouse/models"
	"quizhouse/repository/testutil"
	"quizhouse/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTournamentFixtures(t *testing.T) (*TournamentRepository, *AccountRepository, context.Context) {
	testDB := testutil.SetupTestDatabase(t)

	tournamentRepo := NewTournamentRepository(testDB.DB)
	accountRepo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	for _, userID := range []string{"creator", "player-1", "player-2"} {
		_, err := accountRepo.Create(ctx, userID, 0, 10)
		require.NoError(t, err)
	}

	return tournamentRepo, accountRepo, ctx
}

func TestTournamentRepository_Lifecycle(t *testing.T) {
	repo, _, ctx := setupTournamentFixtures(t)

	tournament := testutil.CreateTestTournament("creator", "Friday Night Trivia", 500, 2)
	require.NoError(t, repo.Create(ctx, tournament))
	assert.NotZero(t, tournament.ID)

	t.Run("get by id", func(t *testing.T) {
		got, err := repo.GetByID(ctx, tournament.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Friday Night Trivia", got.Name)
		assert.Equal(t, models.TournamentStatusOpen, got.Status)
		assert.Equal(t, int64(0), got.Pool)
	})

	t.Run("missing tournament returns nil", func(t *testing.T) {
		got, err := repo.GetByID(ctx, 99999)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("participants and pool", func(t *testing.T) {
		require.NoError(t, repo.AddParticipant(ctx, &models.TournamentParticipant{
			TournamentID: tournament.ID,
			UserID:       "creator",
		}))
		pool, err := repo.AddToPool(ctx, tournament.ID, 500)
		require.NoError(t, err)
		assert.Equal(t, int64(500), pool)

		require.NoError(t, repo.AddParticipant(ctx, &models.TournamentParticipant{
			TournamentID: tournament.ID,
			UserID:       "player-1",
		}))
		pool, err = repo.AddToPool(ctx, tournament.ID, 500)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), pool)

		detail, err := repo.GetDetail(ctx, tournament.ID)
		require.NoError(t, err)
		require.NotNil(t, detail)
		assert.Len(t, detail.Participants, 2)
		assert.True(t, detail.HasParticipant("player-1"))
		assert.False(t, detail.HasParticipant("player-2"))
	})

	t.Run("duplicate join is rejected", func(t *testing.T) {
		err := repo.AddParticipant(ctx, &models.TournamentParticipant{
			TournamentID: tournament.ID,
			UserID:       "player-1",
		})
		require.Error(t, err)
		assert.Equal(t, service.CodeAlreadyJoined, service.ErrorCode(err))
	})

	t.Run("status transitions guard current state", func(t *testing.T) {
		ok, err := repo.SetStatus(ctx, tournament.ID, models.TournamentStatusOpen, models.TournamentStatusActive)
		require.NoError(t, err)
		assert.True(t, ok)

		// Already active, open->active no longer matches
		ok, err = repo.SetStatus(ctx, tournament.ID, models.TournamentStatusOpen, models.TournamentStatusActive)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("completion is exactly-once", func(t *testing.T) {
		now := time.Now()

		ok, err := repo.Complete(ctx, tournament.ID, "player-1", 800, 200, now)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.Complete(ctx, tournament.ID, "creator", 800, 200, now)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := repo.GetByID(ctx, tournament.ID)
		require.NoError(t, err)
		require.NotNil(t, got.WinnerID)
		assert.Equal(t, "player-1", *got.WinnerID)
		assert.Equal(t, int64(800), *got.WinnerPayout)
		assert.Equal(t, int64(200), *got.PlatformFee)
		assert.Equal(t, models.TournamentStatusCompleted, got.Status)
	})
}

func TestTournamentRepository_ListByStatus(t *testing.T) {
	repo, _, ctx := setupTournamentFixtures(t)

	for _, name := range []string{"First", "Second"} {
		tournament := testutil.CreateTestTournament("creator", name, 500, 4)
		require.NoError(t, repo.Create(ctx, tournament))
	}
	closed := testutil.CreateTestTournament("creator", "Closed", 500, 4)
	require.NoError(t, repo.Create(ctx, closed))
	ok, err := repo.SetStatus(ctx, closed.ID, models.TournamentStatusOpen, models.TournamentStatusCancelled)
	require.NoError(t, err)
	require.True(t, ok)

	open, err := repo.ListByStatus(ctx, models.TournamentStatusOpen, 10)
	require.NoError(t, err)
	require.Len(t, open, 2)
	for _, tournament := range open {
		assert.True(t, tournament.IsOpen())
	}
}
