package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"quizhouse/config"
	"quizhouse/events"
	"quizhouse/models"

	log "github.com/sirupsen/logrus"
)

const minTournamentParticipants = 2

type tournamentService struct {
	uowFactory UnitOfWorkFactory
	cfg        *config.Config

	mu          sync.Mutex
	openCache   []*models.Tournament
	openExpires time.Time
}

// NewTournamentService creates a new tournament service
func NewTournamentService(uowFactory UnitOfWorkFactory, cfg *config.Config) TournamentService {
	return &tournamentService{
		uowFactory: uowFactory,
		cfg:        cfg,
	}
}

func (s *tournamentService) Create(ctx context.Context, creatorID, name string, entryFee int64, maxParticipants int) (*models.Tournament, error) {
	if entryFee <= 0 {
		return nil, NewError(CodeInvalidAmount, "entry fee must be positive")
	}
	if maxParticipants < minTournamentParticipants {
		return nil, NewError(CodeInvalidAmount, "tournament needs at least %d participants", minTournamentParticipants)
	}
	if name == "" {
		return nil, NewError(CodeInvalidAmount, "tournament name is required")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	tournament := &models.Tournament{
		Name:            name,
		EntryFee:        entryFee,
		MaxParticipants: maxParticipants,
		Status:          models.TournamentStatusOpen,
		CreatorID:       creatorID,
	}
	if err := uow.TournamentRepository().Create(ctx, tournament); err != nil {
		return nil, err
	}

	// The creator enters immediately; their fee seeds the pool
	if err := s.enterTournament(ctx, uow, tournament, creatorID); err != nil {
		return nil, err
	}
	tournament.Pool = entryFee

	uow.EventBus().Publish(events.TournamentCreatedEvent{
		TournamentID: tournament.ID,
		Name:         tournament.Name,
		EntryFee:     tournament.EntryFee,
		CreatorID:    creatorID,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.invalidateOpenCache()

	return tournament, nil
}

func (s *tournamentService) Join(ctx context.Context, tournamentID int64, userID string) (*models.Tournament, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// Row lock serializes concurrent joins against capacity and state
	tournament, err := uow.TournamentRepository().GetForUpdate(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament == nil {
		return nil, NewError(CodeNotFound, "tournament %d not found", tournamentID)
	}
	if !tournament.IsOpen() {
		return nil, NewError(CodeNotOpen, "tournament %d is not accepting entries", tournamentID)
	}

	detail, err := uow.TournamentRepository().GetDetail(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if detail.HasParticipant(userID) {
		return nil, NewError(CodeAlreadyJoined, "user %s already joined tournament %d", userID, tournamentID)
	}
	if len(detail.Participants) >= tournament.MaxParticipants {
		return nil, NewError(CodeTournamentFull, "tournament %d is full", tournamentID)
	}

	if err := s.enterTournament(ctx, uow, tournament, userID); err != nil {
		return nil, err
	}
	tournament.Pool += tournament.EntryFee

	// Filling the last slot starts the tournament
	if len(detail.Participants)+1 == tournament.MaxParticipants {
		ok, err := uow.TournamentRepository().SetStatus(ctx, tournamentID, models.TournamentStatusOpen, models.TournamentStatusActive)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, NewError(CodeNotOpen, "tournament %d is not accepting entries", tournamentID)
		}
		tournament.Status = models.TournamentStatusActive
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.invalidateOpenCache()

	return tournament, nil
}

// enterTournament debits the entry fee into escrow and records the
// participant. Caller holds the tournament row lock.
func (s *tournamentService) enterTournament(ctx context.Context, uow UnitOfWork, tournament *models.Tournament, userID string) error {
	newBalance, err := uow.AccountRepository().DeductPlayable(ctx, userID, tournament.EntryFee)
	if err != nil {
		return err
	}

	stake := &models.Transaction{
		UserID: userID,
		Type:   models.TransactionTypeTournamentStake,
		Amount: -tournament.EntryFee,
		Details: map[string]any{
			"tournament_id": tournament.ID,
		},
	}
	if err := recordTransaction(ctx, uow, stake); err != nil {
		return err
	}
	publishBalanceChange(uow, userID, newBalance, -tournament.EntryFee, models.TransactionTypeTournamentStake)

	if err := uow.TournamentRepository().AddParticipant(ctx, &models.TournamentParticipant{
		TournamentID: tournament.ID,
		UserID:       userID,
	}); err != nil {
		return err
	}

	if _, err := uow.TournamentRepository().AddToPool(ctx, tournament.ID, tournament.EntryFee); err != nil {
		return err
	}

	return nil
}

func (s *tournamentService) Complete(ctx context.Context, tournamentID int64, winnerID string) (*models.TournamentResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	tournament, err := uow.TournamentRepository().GetForUpdate(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament == nil {
		return nil, NewError(CodeNotFound, "tournament %d not found", tournamentID)
	}
	switch tournament.Status {
	case models.TournamentStatusActive:
		// proceed
	case models.TournamentStatusCompleted:
		return nil, NewError(CodeAlreadyCompleted, "tournament %d already completed", tournamentID)
	default:
		return nil, NewError(CodeNotActive, "tournament %d is not active", tournamentID)
	}

	detail, err := uow.TournamentRepository().GetDetail(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if !detail.HasParticipant(winnerID) {
		return nil, NewError(CodeNotParticipant, "user %s is not a participant of tournament %d", winnerID, tournamentID)
	}

	// The fee stays inside the ledger: pool = payout + fee, credited to the
	// winner and the system fee account respectively.
	platformFee := int64(math.Round(float64(tournament.Pool) * s.cfg.TournamentFeeRate))
	payout := tournament.Pool - platformFee

	now := time.Now()
	completed, err := uow.TournamentRepository().Complete(ctx, tournamentID, winnerID, payout, platformFee, now)
	if err != nil {
		return nil, err
	}
	if !completed {
		return nil, NewError(CodeAlreadyCompleted, "tournament %d already completed", tournamentID)
	}

	newBalance, err := uow.AccountRepository().AddEarned(ctx, winnerID, payout)
	if err != nil {
		return nil, err
	}
	prize := &models.Transaction{
		UserID: winnerID,
		Type:   models.TransactionTypeTournamentPrize,
		Amount: payout,
		Details: map[string]any{
			"tournament_id": tournamentID,
		},
	}
	if err := recordTransaction(ctx, uow, prize); err != nil {
		return nil, err
	}
	publishBalanceChange(uow, winnerID, newBalance, payout, models.TransactionTypeTournamentPrize)

	if platformFee > 0 {
		if err := s.creditFeeAccount(ctx, uow, tournamentID, platformFee); err != nil {
			return nil, err
		}
	}

	tournament.Status = models.TournamentStatusCompleted
	tournament.WinnerID = &winnerID
	tournament.WinnerPayout = &payout
	tournament.PlatformFee = &platformFee
	tournament.CompletedAt = &now

	uow.EventBus().Publish(events.TournamentCompletedEvent{
		TournamentID: tournamentID,
		WinnerID:     winnerID,
		WinnerPayout: payout,
		PlatformFee:  platformFee,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"tournamentID": tournamentID,
		"winnerID":     winnerID,
		"payout":       payout,
		"platformFee":  platformFee,
	}).Info("Tournament completed")

	return &models.TournamentResult{
		Tournament:   tournament,
		WinnerID:     winnerID,
		WinnerPayout: payout,
		PlatformFee:  platformFee,
	}, nil
}

// creditFeeAccount moves the platform fee to the reserved system account,
// creating it on first use.
func (s *tournamentService) creditFeeAccount(ctx context.Context, uow UnitOfWork, tournamentID, platformFee int64) error {
	feeAccount, err := uow.AccountRepository().Get(ctx, s.cfg.FeeAccountID)
	if err != nil {
		return fmt.Errorf("failed to get fee account: %w", err)
	}
	if feeAccount == nil {
		if _, err := uow.AccountRepository().Create(ctx, s.cfg.FeeAccountID, 0, 0); err != nil {
			return fmt.Errorf("failed to create fee account: %w", err)
		}
	}

	newBalance, err := uow.AccountRepository().AddPlayable(ctx, s.cfg.FeeAccountID, platformFee)
	if err != nil {
		return err
	}

	fee := &models.Transaction{
		UserID: s.cfg.FeeAccountID,
		Type:   models.TransactionTypeFee,
		Amount: platformFee,
		Details: map[string]any{
			"tournament_id": tournamentID,
		},
	}
	if err := recordTransaction(ctx, uow, fee); err != nil {
		return err
	}
	publishBalanceChange(uow, s.cfg.FeeAccountID, newBalance, platformFee, models.TransactionTypeFee)

	return nil
}

func (s *tournamentService) Cancel(ctx context.Context, tournamentID int64) (*models.Tournament, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	tournament, err := uow.TournamentRepository().GetForUpdate(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament == nil {
		return nil, NewError(CodeNotFound, "tournament %d not found", tournamentID)
	}
	if !tournament.IsOpen() {
		return nil, NewError(CodeNotOpen, "only open tournaments can be cancelled")
	}

	detail, err := uow.TournamentRepository().GetDetail(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	// Every participant gets their entry fee back from escrow
	for _, participant := range detail.Participants {
		newBalance, err := uow.AccountRepository().AddPlayable(ctx, participant.UserID, tournament.EntryFee)
		if err != nil {
			return nil, err
		}
		refund := &models.Transaction{
			UserID: participant.UserID,
			Type:   models.TransactionTypeTournamentRefund,
			Amount: tournament.EntryFee,
			Details: map[string]any{
				"tournament_id": tournamentID,
			},
		}
		if err := recordTransaction(ctx, uow, refund); err != nil {
			return nil, err
		}
		publishBalanceChange(uow, participant.UserID, newBalance, tournament.EntryFee, models.TransactionTypeTournamentRefund)
	}

	ok, err := uow.TournamentRepository().SetStatus(ctx, tournamentID, models.TournamentStatusOpen, models.TournamentStatusCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewError(CodeNotOpen, "only open tournaments can be cancelled")
	}
	tournament.Status = models.TournamentStatusCancelled

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.invalidateOpenCache()

	return tournament, nil
}

// ListOpen serves from a short-TTL cache. The cache is advisory only: joins
// re-check state under a row lock, so a stale listing can never move money.
func (s *tournamentService) ListOpen(ctx context.Context) ([]*models.Tournament, error) {
	s.mu.Lock()
	if time.Now().Before(s.openExpires) && s.openCache != nil {
		cached := s.openCache
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	tournaments, err := uow.TournamentRepository().ListByStatus(ctx, models.TournamentStatusOpen, defaultHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list open tournaments: %w", err)
	}

	s.mu.Lock()
	s.openCache = tournaments
	s.openExpires = time.Now().Add(s.cfg.TournamentCacheTTL)
	s.mu.Unlock()

	return tournaments, nil
}

func (s *tournamentService) Get(ctx context.Context, tournamentID int64) (*models.TournamentDetail, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	detail, err := uow.TournamentRepository().GetDetail(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, NewError(CodeNotFound, "tournament %d not found", tournamentID)
	}

	return detail, nil
}

func (s *tournamentService) invalidateOpenCache() {
	s.mu.Lock()
	s.openCache = nil
	s.openExpires = time.Time{}
	s.mu.Unlock()
}
