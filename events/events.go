package events

import (
	"context"
	"sync"

	"quizhouse/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange       EventType = "balance_change"
	EventTypeAccountCreated      EventType = "account_created"
	EventTypeDepositApproved     EventType = "deposit_approved"
	EventTypeWagerSettled        EventType = "wager_settled"
	EventTypeTournamentCreated   EventType = "tournament_created"
	EventTypeTournamentCompleted EventType = "tournament_completed"
	EventTypeUserBlocked         EventType = "user_blocked"
	EventTypeTaskRewarded        EventType = "task_rewarded"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	UserID          string
	NewBalance      int64
	ChangeAmount    int64
	TransactionType models.TransactionType
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// AccountCreatedEvent represents a new account creation
type AccountCreatedEvent struct {
	UserID       string
	BonusGranted int64
}

func (e AccountCreatedEvent) Type() EventType {
	return EventTypeAccountCreated
}

// DepositApprovedEvent fires when an admin approves a pending deposit
type DepositApprovedEvent struct {
	UserID        string
	Reference     string
	Amount        int64
	BonusUnlocked int64
}

func (e DepositApprovedEvent) Type() EventType {
	return EventTypeDepositApproved
}

// WagerSettledEvent represents a wager that was settled
type WagerSettledEvent struct {
	WagerID   int64
	UserID    string
	Amount    int64
	Won       bool
	WinAmount int64
}

func (e WagerSettledEvent) Type() EventType {
	return EventTypeWagerSettled
}

// TournamentCreatedEvent announces a new open tournament
type TournamentCreatedEvent struct {
	TournamentID int64
	Name         string
	EntryFee     int64
	CreatorID    string
}

func (e TournamentCreatedEvent) Type() EventType {
	return EventTypeTournamentCreated
}

// TournamentCompletedEvent announces the prize distribution
type TournamentCompletedEvent struct {
	TournamentID int64
	WinnerID     string
	WinnerPayout int64
	PlatformFee  int64
}

func (e TournamentCompletedEvent) Type() EventType {
	return EventTypeTournamentCompleted
}

// UserBlockedEvent fires when the gate or an admin blocks a user
type UserBlockedEvent struct {
	UserID string
	Reason string
}

func (e UserBlockedEvent) Type() EventType {
	return EventTypeUserBlocked
}

// TaskRewardedEvent fires when an approved task credits a reward
type TaskRewardedEvent struct {
	UserID       string
	CompletionID int64
	PaidReward   int64
}

func (e TaskRewardedEvent) Type() EventType {
	return EventTypeTaskRewarded
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching. Handlers run
// asynchronously and never block the publisher; this is the delivery
// mechanism behind the fire-and-forget notification sink.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking the caller
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus stashes events published during a unit of work and
// flushes them to the underlying bus only after the database commit.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush is called after a successful DB commit.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	// Events are processed independently of the transaction lifecycle,
	// so emission uses a background context.
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard is called after a rollback to clear stashed events.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
