package service

import (
	"context"
	"time"

	"quizhouse/events"
	"quizhouse/models"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, userID string, startingBonus int64, maxDailyQuizzes int) (*models.Account, error) {
	args := m.Called(ctx, userID, startingBonus, maxDailyQuizzes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) Get(ctx context.Context, userID string) (*models.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) AddPlayable(ctx context.Context, userID string, amount int64) (int64, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) DeductPlayable(ctx context.Context, userID string, amount int64) (int64, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) ApplyDeposit(ctx context.Context, userID string, amount int64) (int64, int64, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockAccountRepository) DeductForWithdrawal(ctx context.Context, userID string, amount int64) (int64, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) RefundWithdrawal(ctx context.Context, userID string, amount int64) (int64, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) AddEarned(ctx context.Context, userID string, amount int64) (int64, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) BumpDailyCount(ctx context.Context, userID string, day time.Time) (int, error) {
	args := m.Called(ctx, userID, day)
	return args.Int(0), args.Error(1)
}

func (m *MockAccountRepository) RecordAnswer(ctx context.Context, userID string, won bool) error {
	args := m.Called(ctx, userID, won)
	return args.Error(0)
}

func (m *MockAccountRepository) SetDeactivated(ctx context.Context, userID string, deactivated bool) error {
	args := m.Called(ctx, userID, deactivated)
	return args.Error(0)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Append(ctx context.Context, transaction *models.Transaction) error {
	args := m.Called(ctx, transaction)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) MarkDecided(ctx context.Context, id int64, status models.TransactionStatus, decidedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, status, decidedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListPending(ctx context.Context, transactionType models.TransactionType) ([]*models.Transaction, error) {
	args := m.Called(ctx, transactionType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

// MockWagerRepository is a mock implementation of WagerRepository
type MockWagerRepository struct {
	mock.Mock
}

func (m *MockWagerRepository) Create(ctx context.Context, wager *models.Wager) error {
	args := m.Called(ctx, wager)
	return args.Error(0)
}

func (m *MockWagerRepository) GetByID(ctx context.Context, id int64) (*models.Wager, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wager), args.Error(1)
}

func (m *MockWagerRepository) Settle(ctx context.Context, id int64, status models.WagerStatus, creditTransactionID *int64, settledAt time.Time) (bool, error) {
	args := m.Called(ctx, id, status, creditTransactionID, settledAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockWagerRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Wager, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Wager), args.Error(1)
}

// MockTournamentRepository is a mock implementation of TournamentRepository
type MockTournamentRepository struct {
	mock.Mock
}

func (m *MockTournamentRepository) Create(ctx context.Context, tournament *models.Tournament) error {
	args := m.Called(ctx, tournament)
	return args.Error(0)
}

func (m *MockTournamentRepository) GetByID(ctx context.Context, id int64) (*models.Tournament, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tournament), args.Error(1)
}

func (m *MockTournamentRepository) GetForUpdate(ctx context.Context, id int64) (*models.Tournament, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tournament), args.Error(1)
}

func (m *MockTournamentRepository) GetDetail(ctx context.Context, id int64) (*models.TournamentDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TournamentDetail), args.Error(1)
}

func (m *MockTournamentRepository) AddParticipant(ctx context.Context, participant *models.TournamentParticipant) error {
	args := m.Called(ctx, participant)
	return args.Error(0)
}

func (m *MockTournamentRepository) AddToPool(ctx context.Context, id int64, amount int64) (int64, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTournamentRepository) SetStatus(ctx context.Context, id int64, from, to models.TournamentStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockTournamentRepository) Complete(ctx context.Context, id int64, winnerID string, payout, fee int64, completedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, winnerID, payout, fee, completedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockTournamentRepository) ListByStatus(ctx context.Context, status models.TournamentStatus, limit int) ([]*models.Tournament, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Tournament), args.Error(1)
}

// MockBlockRepository is a mock implementation of BlockRepository
type MockBlockRepository struct {
	mock.Mock
}

func (m *MockBlockRepository) Create(ctx context.Context, block *models.Block) error {
	args := m.Called(ctx, block)
	return args.Error(0)
}

func (m *MockBlockRepository) ActiveByUser(ctx context.Context, userID string) ([]*models.Block, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Block), args.Error(1)
}

func (m *MockBlockRepository) DeactivateAll(ctx context.Context, userID string, unblockedAt time.Time) (int, error) {
	args := m.Called(ctx, userID, unblockedAt)
	return args.Int(0), args.Error(1)
}

// MockSessionRepository is a mock implementation of SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Start(ctx context.Context, session *models.QuizSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id int64) (*models.QuizSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuizSession), args.Error(1)
}

func (m *MockSessionRepository) Complete(ctx context.Context, id int64, score int, completedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, score, completedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionRepository) LastByUser(ctx context.Context, userID string) (*models.QuizSession, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuizSession), args.Error(1)
}

func (m *MockSessionRepository) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	args := m.Called(ctx, userID, since)
	return args.Int(0), args.Error(1)
}

func (m *MockSessionRepository) ListSince(ctx context.Context, userID string, since time.Time) ([]*models.QuizSession, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.QuizSession), args.Error(1)
}

// MockTaskCompletionRepository is a mock implementation of TaskCompletionRepository
type MockTaskCompletionRepository struct {
	mock.Mock
}

func (m *MockTaskCompletionRepository) Create(ctx context.Context, completion *models.TaskCompletion) error {
	args := m.Called(ctx, completion)
	return args.Error(0)
}

func (m *MockTaskCompletionRepository) GetByID(ctx context.Context, id int64) (*models.TaskCompletion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TaskCompletion), args.Error(1)
}

func (m *MockTaskCompletionRepository) Decide(ctx context.Context, id int64, status models.TaskCompletionStatus, reason *string, decidedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, status, reason, decidedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockTaskCompletionRepository) ListPending(ctx context.Context, limit int) ([]*models.TaskCompletion, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TaskCompletion), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// NoopEventPublisher swallows events for tests that don't assert on them
type NoopEventPublisher struct{}

func (NoopEventPublisher) Publish(event events.Event) {}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories are
// set directly with SetRepositories rather than mocked getters.
type MockUnitOfWork struct {
	mock.Mock

	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	wagerRepo       WagerRepository
	tournamentRepo  TournamentRepository
	blockRepo       BlockRepository
	sessionRepo     SessionRepository
	taskRepo        TaskCompletionRepository
	eventBus        EventPublisher
}

// SetRepositories wires the repositories the test cares about. Nil slots are
// replaced with zero-value mocks so getters never return nil.
func (m *MockUnitOfWork) SetRepositories(
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	wagerRepo WagerRepository,
	tournamentRepo TournamentRepository,
	blockRepo BlockRepository,
	sessionRepo SessionRepository,
	taskRepo TaskCompletionRepository,
) {
	if accountRepo == nil {
		accountRepo = new(MockAccountRepository)
	}
	if transactionRepo == nil {
		transactionRepo = new(MockTransactionRepository)
	}
	if wagerRepo == nil {
		wagerRepo = new(MockWagerRepository)
	}
	if tournamentRepo == nil {
		tournamentRepo = new(MockTournamentRepository)
	}
	if blockRepo == nil {
		blockRepo = new(MockBlockRepository)
	}
	if sessionRepo == nil {
		sessionRepo = new(MockSessionRepository)
	}
	if taskRepo == nil {
		taskRepo = new(MockTaskCompletionRepository)
	}
	m.accountRepo = accountRepo
	m.transactionRepo = transactionRepo
	m.wagerRepo = wagerRepo
	m.tournamentRepo = tournamentRepo
	m.blockRepo = blockRepo
	m.sessionRepo = sessionRepo
	m.taskRepo = taskRepo
	m.eventBus = NoopEventPublisher{}
}

// SetEventBus overrides the default no-op publisher.
func (m *MockUnitOfWork) SetEventBus(bus EventPublisher) {
	m.eventBus = bus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository {
	return m.accountRepo
}

func (m *MockUnitOfWork) TransactionRepository() TransactionRepository {
	return m.transactionRepo
}

func (m *MockUnitOfWork) WagerRepository() WagerRepository {
	return m.wagerRepo
}

func (m *MockUnitOfWork) TournamentRepository() TournamentRepository {
	return m.tournamentRepo
}

func (m *MockUnitOfWork) BlockRepository() BlockRepository {
	return m.blockRepo
}

func (m *MockUnitOfWork) SessionRepository() SessionRepository {
	return m.sessionRepo
}

func (m *MockUnitOfWork) TaskCompletionRepository() TaskCompletionRepository {
	return m.taskRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockSecurityService is a mock implementation of SecurityService
type MockSecurityService struct {
	mock.Mock
}

func (m *MockSecurityService) AllowSessionStart(ctx context.Context, userID string, difficulty models.Difficulty) error {
	args := m.Called(ctx, userID, difficulty)
	return args.Error(0)
}

func (m *MockSecurityService) AllowWager(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockSecurityService) StartSession(ctx context.Context, userID string, difficulty models.Difficulty) (*models.QuizSession, error) {
	args := m.Called(ctx, userID, difficulty)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuizSession), args.Error(1)
}

func (m *MockSecurityService) CompleteSession(ctx context.Context, sessionID int64, score int) error {
	args := m.Called(ctx, sessionID, score)
	return args.Error(0)
}

func (m *MockSecurityService) AllowAnswer(ctx context.Context, sessionID int64, userID, questionID string, answerTime time.Duration, correct bool) error {
	args := m.Called(ctx, sessionID, userID, questionID, answerTime, correct)
	return args.Error(0)
}

func (m *MockSecurityService) RewardMultiplier(ctx context.Context, userID string) (float64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockSecurityService) BlockUser(ctx context.Context, userID, reason string, duration time.Duration) error {
	args := m.Called(ctx, userID, reason, duration)
	return args.Error(0)
}

func (m *MockSecurityService) UnblockUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockSecurityService) IsBlocked(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}
