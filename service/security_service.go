package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quizhouse/config"
	"quizhouse/events"
	"quizhouse/models"

	log "github.com/sirupsen/logrus"
)

// Behaviour pattern thresholds. Evaluated over the user's ten most recent
// sessions and lifetime aggregates.
const (
	patternWindowSessions = 10
	fastCompletionCutoff  = 30 * time.Second
	maxFastCompletions    = 3
	maxPerfectScores      = 3
	maxNearPerfectScores  = 5
	nearPerfectScore      = 95
	highWinRatePercent    = 95.0
	highWinRateMinAnswers = 50
	newPlayerAnswerFloor  = 10
	hardDifficultyLevel   = 5
)

type blockCacheEntry struct {
	blocked bool
	expires time.Time
}

type securityService struct {
	uowFactory UnitOfWorkFactory
	cfg        *config.Config

	mu         sync.Mutex
	blockCache map[string]blockCacheEntry
	rapid      map[string][]time.Time
}

// NewSecurityService creates a new security gate service
func NewSecurityService(uowFactory UnitOfWorkFactory, cfg *config.Config) SecurityService {
	return &securityService{
		uowFactory: uowFactory,
		cfg:        cfg,
		blockCache: make(map[string]blockCacheEntry),
		rapid:      make(map[string][]time.Time),
	}
}

// AllowSessionStart runs the gate checks in order and returns the first
// failure. The order is part of the contract: callers and support tooling
// rely on a blocked user always seeing USER_BLOCKED, never a quota message.
func (s *securityService) AllowSessionStart(ctx context.Context, userID string, difficulty models.Difficulty) error {
	if !models.ValidDifficulty(difficulty) {
		return NewError(CodeInvalidDifficulty, "unknown difficulty %q", difficulty)
	}

	blocked, err := s.IsBlocked(ctx, userID)
	if err != nil {
		return err
	}
	if blocked {
		return NewError(CodeUserBlocked, "user is blocked from playing")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return NewError(CodeNotFound, "account %s not found", userID)
	}

	now := time.Now()

	// Daily quota. A counter carried over from a previous day counts as zero.
	dailyCount := account.DailyQuizCount
	if !sameDay(account.DailyCountDate, now) {
		dailyCount = 0
	}
	if dailyCount >= account.MaxDailyQuizzes {
		return NewError(CodeDailyLimitReached, "daily limit of %d quizzes reached", account.MaxDailyQuizzes)
	}

	hourlyCount, err := uow.SessionRepository().CountSince(ctx, userID, now.Add(-time.Hour))
	if err != nil {
		return fmt.Errorf("failed to count recent sessions: %w", err)
	}
	if hourlyCount >= s.cfg.MaxHourlyQuizzes {
		return NewError(CodeHourlyLimitReached, "hourly limit of %d quizzes reached", s.cfg.MaxHourlyQuizzes)
	}

	lastSession, err := uow.SessionRepository().LastByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get last session: %w", err)
	}
	if lastSession != nil && now.Sub(lastSession.StartedAt) < s.cfg.MinSessionSpacing {
		return NewError(CodeSessionSpacing, "wait %s between quizzes", s.cfg.MinSessionSpacing)
	}

	recent, err := uow.SessionRepository().ListSince(ctx, userID, now.Add(-24*time.Hour))
	if err != nil {
		return fmt.Errorf("failed to list recent sessions: %w", err)
	}
	if err := checkBehaviourPatterns(account, recent); err != nil {
		return err
	}

	// Difficulty gating
	if account.QuestionsAnswered < newPlayerAnswerFloor && difficulty != models.DifficultyEasy {
		return NewError(CodeDifficultyRestriction, "answer %d questions on easy before harder difficulties", newPlayerAnswerFloor)
	}
	if difficulty == models.DifficultyHard && account.Level < hardDifficultyLevel {
		return NewError(CodeLevelRestriction, "hard difficulty requires level %d", hardDifficultyLevel)
	}

	return nil
}

// checkBehaviourPatterns flags statistically implausible play over the ten
// most recent sessions and the lifetime win rate.
func checkBehaviourPatterns(account *models.Account, recent []*models.QuizSession) error {
	if len(recent) > patternWindowSessions {
		recent = recent[:patternWindowSessions]
	}

	var fastCompletions, perfectScores, nearPerfect int
	for _, session := range recent {
		if d := session.DurationOf(); d > 0 && d < fastCompletionCutoff {
			fastCompletions++
		}
		if session.Score != nil {
			if *session.Score == 100 {
				perfectScores++
			}
			if *session.Score >= nearPerfectScore {
				nearPerfect++
			}
		}
	}

	switch {
	case fastCompletions >= maxFastCompletions:
		return NewError(CodeSuspiciousActivity, "too many rapid completions")
	case perfectScores >= maxPerfectScores:
		return NewError(CodeSuspiciousActivity, "too many perfect scores")
	case nearPerfect >= maxNearPerfectScores:
		return NewError(CodeSuspiciousActivity, "score pattern flagged for review")
	}

	if account.QuestionsAnswered > highWinRateMinAnswers && account.WinRate() > highWinRatePercent {
		return NewError(CodeHighWinRate, "win rate flagged for review")
	}

	return nil
}

func (s *securityService) AllowWager(ctx context.Context, userID string) error {
	blocked, err := s.IsBlocked(ctx, userID)
	if err != nil {
		return err
	}
	if blocked {
		return NewError(CodeUserBlocked, "user is blocked from wagering")
	}
	return nil
}

func (s *securityService) StartSession(ctx context.Context, userID string, difficulty models.Difficulty) (*models.QuizSession, error) {
	if err := s.AllowSessionStart(ctx, userID, difficulty); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := uow.AccountRepository().BumpDailyCount(ctx, userID, time.Now()); err != nil {
		return nil, err
	}

	session := &models.QuizSession{
		UserID:     userID,
		Difficulty: difficulty,
	}
	if err := uow.SessionRepository().Start(ctx, session); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return session, nil
}

func (s *securityService) CompleteSession(ctx context.Context, sessionID int64, score int) error {
	if score < 0 || score > 100 {
		return NewError(CodeInvalidAmount, "score must be between 0 and 100")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	completed, err := uow.SessionRepository().Complete(ctx, sessionID, score, time.Now())
	if err != nil {
		return err
	}
	if !completed {
		session, err := uow.SessionRepository().GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return NewError(CodeNotFound, "session %d not found", sessionID)
		}
		return NewError(CodeAlreadyCompleted, "session %d already completed", sessionID)
	}

	return uow.Commit()
}

// AllowAnswer runs the rapid-answer detector before recording the answer.
// Three sub-threshold answers inside the trailing window deny the answer and
// escalate to a persisted block.
func (s *securityService) AllowAnswer(ctx context.Context, sessionID int64, userID, questionID string, answerTime time.Duration, correct bool) error {
	if err := s.AllowWager(ctx, userID); err != nil {
		return err
	}

	if answerTime < s.cfg.RapidAnswerTime && s.recordRapidStrike(userID) {
		reason := fmt.Sprintf("rapid answer pattern (session %d, question %s)", sessionID, questionID)
		if err := s.BlockUser(ctx, userID, reason, s.cfg.DefaultBlockTime); err != nil {
			return err
		}
		return NewError(CodeRapidAnswers, "answers submitted too quickly")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.AccountRepository().RecordAnswer(ctx, userID, correct); err != nil {
		return err
	}

	return uow.Commit()
}

// recordRapidStrike adds a strike for the user and reports whether the
// strike count within the trailing window reached the threshold.
func (s *securityService) recordRapidStrike(userID string) bool {
	now := time.Now()
	cutoff := now.Add(-s.cfg.RapidAnswerWindow)

	s.mu.Lock()
	defer s.mu.Unlock()

	strikes := s.rapid[userID]
	kept := strikes[:0]
	for _, strike := range strikes {
		if strike.After(cutoff) {
			kept = append(kept, strike)
		}
	}
	kept = append(kept, now)
	s.rapid[userID] = kept

	return len(kept) >= s.cfg.RapidAnswerStrikes
}

func (s *securityService) RewardMultiplier(ctx context.Context, userID string) (float64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().Get(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return 0, NewError(CodeNotFound, "account %s not found", userID)
	}

	winRate := account.WinRate()
	switch {
	case account.QuestionsAnswered > 50 && winRate > 95:
		return 0.5, nil
	case account.QuestionsAnswered > 20 && winRate > 90:
		return 0.8, nil
	default:
		return 1.0, nil
	}
}

func (s *securityService) BlockUser(ctx context.Context, userID, reason string, duration time.Duration) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	block := &models.Block{
		UserID:   userID,
		Reason:   reason,
		Duration: duration,
		Status:   models.BlockStatusActive,
	}
	if err := uow.BlockRepository().Create(ctx, block); err != nil {
		return err
	}

	uow.EventBus().Publish(events.UserBlockedEvent{
		UserID: userID,
		Reason: reason,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.cacheBlockState(userID, true)

	log.WithFields(log.Fields{
		"userID":   userID,
		"reason":   reason,
		"duration": duration,
	}).Warn("User blocked")

	return nil
}

func (s *securityService) UnblockUser(ctx context.Context, userID string) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	cleared, err := uow.BlockRepository().DeactivateAll(ctx, userID, time.Now())
	if err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.cacheBlockState(userID, false)

	log.WithFields(log.Fields{
		"userID":  userID,
		"cleared": cleared,
	}).Info("User unblocked")

	return nil
}

// IsBlocked consults a short-TTL cache in front of the block table. The
// database is always the source of truth; the cache only bounds read load
// and survives nothing across restarts.
func (s *securityService) IsBlocked(ctx context.Context, userID string) (bool, error) {
	now := time.Now()

	s.mu.Lock()
	entry, ok := s.blockCache[userID]
	s.mu.Unlock()
	if ok && now.Before(entry.expires) {
		return entry.blocked, nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	blocks, err := uow.BlockRepository().ActiveByUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to list blocks: %w", err)
	}

	blocked := false
	for _, block := range blocks {
		if block.InForce(now) {
			blocked = true
			break
		}
	}

	s.cacheBlockState(userID, blocked)

	return blocked, nil
}

func (s *securityService) cacheBlockState(userID string, blocked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blockCache[userID] = blockCacheEntry{
		blocked: blocked,
		expires: time.Now().Add(s.cfg.BlockCacheTTL),
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
