// Package api exposes the service layer to UI and admin callers as a
// structured-result facade. No error crosses this boundary: expected
// failures carry their stable code, anything else is logged and collapsed
// to INTERNAL_ERROR.
package api

import (
	"context"
	"time"

	"quizhouse/models"
	"quizhouse/service"

	log "github.com/sirupsen/logrus"
)

// Result is the envelope every gateway operation returns.
type Result struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Gateway fronts the ledger, wager, security, tournament and task services.
type Gateway struct {
	ledger      service.LedgerService
	wagers      service.WagerService
	security    service.SecurityService
	tournaments service.TournamentService
	tasks       service.TaskService
}

// NewGateway creates the facade over the given services.
func NewGateway(
	ledger service.LedgerService,
	wagers service.WagerService,
	security service.SecurityService,
	tournaments service.TournamentService,
	tasks service.TaskService,
) *Gateway {
	return &Gateway{
		ledger:      ledger,
		wagers:      wagers,
		security:    security,
		tournaments: tournaments,
		tasks:       tasks,
	}
}

func ok(data any) Result {
	return Result{Success: true, Data: data}
}

// fail converts an error into a failed Result. Coded service errors pass
// through with their code; everything else is an infrastructure fault.
func fail(operation string, err error) Result {
	if svcErr := service.AsError(err); svcErr != nil {
		return Result{Success: false, Code: svcErr.Code, Message: svcErr.Message}
	}

	log.WithFields(log.Fields{
		"operation": operation,
		"error":     err,
	}).Error("Gateway operation failed")

	return Result{
		Success: false,
		Code:    service.CodeInternalError,
		Message: "internal error",
	}
}

func wrap(operation string, data any, err error) Result {
	if err != nil {
		return fail(operation, err)
	}
	return ok(data)
}

// --- Balance ledger ---

func (g *Gateway) CheckBalance(ctx context.Context, userID string) Result {
	snapshot, err := g.ledger.CheckBalance(ctx, userID)
	return wrap("checkBalance", snapshot, err)
}

func (g *Gateway) History(ctx context.Context, userID string, limit int) Result {
	transactions, err := g.ledger.History(ctx, userID, limit)
	return wrap("history", transactions, err)
}

func (g *Gateway) RequestDeposit(ctx context.Context, userID string, amount int64, details map[string]any) Result {
	transaction, err := g.ledger.RequestDeposit(ctx, userID, amount, details)
	return wrap("requestDeposit", transaction, err)
}

func (g *Gateway) ApproveDeposit(ctx context.Context, reference string) Result {
	transaction, err := g.ledger.ApproveDeposit(ctx, reference)
	return wrap("approveDeposit", transaction, err)
}

func (g *Gateway) RejectDeposit(ctx context.Context, reference string) Result {
	transaction, err := g.ledger.RejectDeposit(ctx, reference)
	return wrap("rejectDeposit", transaction, err)
}

func (g *Gateway) RequestWithdrawal(ctx context.Context, userID string, amount int64, details map[string]any) Result {
	transaction, err := g.ledger.RequestWithdrawal(ctx, userID, amount, details)
	return wrap("requestWithdrawal", transaction, err)
}

func (g *Gateway) ApproveWithdrawal(ctx context.Context, reference string) Result {
	transaction, err := g.ledger.ApproveWithdrawal(ctx, reference)
	return wrap("approveWithdrawal", transaction, err)
}

func (g *Gateway) RejectWithdrawal(ctx context.Context, reference string) Result {
	transaction, err := g.ledger.RejectWithdrawal(ctx, reference)
	return wrap("rejectWithdrawal", transaction, err)
}

func (g *Gateway) PendingReview(ctx context.Context, transactionType models.TransactionType) Result {
	transactions, err := g.ledger.PendingReview(ctx, transactionType)
	return wrap("pendingReview", transactions, err)
}

// --- Wagering ---

func (g *Gateway) PlaceWager(ctx context.Context, userID, questionID string, amount int64) Result {
	wager, err := g.wagers.PlaceWager(ctx, userID, questionID, amount)
	return wrap("placeWager", wager, err)
}

func (g *Gateway) SettleWager(ctx context.Context, wagerID int64) Result {
	result, err := g.wagers.SettleWager(ctx, wagerID)
	return wrap("settleWager", result, err)
}

func (g *Gateway) WagerHistory(ctx context.Context, userID string, limit int) Result {
	wagers, err := g.wagers.WagerHistory(ctx, userID, limit)
	return wrap("wagerHistory", wagers, err)
}

// --- Security gate ---

func (g *Gateway) AllowSessionStart(ctx context.Context, userID string, difficulty models.Difficulty) Result {
	if err := g.security.AllowSessionStart(ctx, userID, difficulty); err != nil {
		return fail("allowSessionStart", err)
	}
	return ok(nil)
}

func (g *Gateway) StartSession(ctx context.Context, userID string, difficulty models.Difficulty) Result {
	session, err := g.security.StartSession(ctx, userID, difficulty)
	return wrap("startSession", session, err)
}

func (g *Gateway) CompleteSession(ctx context.Context, sessionID int64, score int) Result {
	if err := g.security.CompleteSession(ctx, sessionID, score); err != nil {
		return fail("completeSession", err)
	}
	return ok(nil)
}

func (g *Gateway) AllowAnswer(ctx context.Context, sessionID int64, userID, questionID string, answerTime time.Duration, correct bool) Result {
	if err := g.security.AllowAnswer(ctx, sessionID, userID, questionID, answerTime, correct); err != nil {
		return fail("allowAnswer", err)
	}
	return ok(nil)
}

func (g *Gateway) BlockUser(ctx context.Context, userID, reason string, duration time.Duration) Result {
	if err := g.security.BlockUser(ctx, userID, reason, duration); err != nil {
		return fail("blockUser", err)
	}
	return ok(nil)
}

func (g *Gateway) UnblockUser(ctx context.Context, userID string) Result {
	if err := g.security.UnblockUser(ctx, userID); err != nil {
		return fail("unblockUser", err)
	}
	return ok(nil)
}

// --- Tournaments ---

func (g *Gateway) CreateTournament(ctx context.Context, creatorID, name string, entryFee int64, maxParticipants int) Result {
	tournament, err := g.tournaments.Create(ctx, creatorID, name, entryFee, maxParticipants)
	return wrap("createTournament", tournament, err)
}

func (g *Gateway) JoinTournament(ctx context.Context, tournamentID int64, userID string) Result {
	tournament, err := g.tournaments.Join(ctx, tournamentID, userID)
	return wrap("joinTournament", tournament, err)
}

func (g *Gateway) CompleteTournament(ctx context.Context, tournamentID int64, winnerID string) Result {
	result, err := g.tournaments.Complete(ctx, tournamentID, winnerID)
	return wrap("completeTournament", result, err)
}

func (g *Gateway) CancelTournament(ctx context.Context, tournamentID int64) Result {
	tournament, err := g.tournaments.Cancel(ctx, tournamentID)
	return wrap("cancelTournament", tournament, err)
}

func (g *Gateway) ListOpenTournaments(ctx context.Context) Result {
	tournaments, err := g.tournaments.ListOpen(ctx)
	return wrap("listOpenTournaments", tournaments, err)
}

func (g *Gateway) GetTournament(ctx context.Context, tournamentID int64) Result {
	detail, err := g.tournaments.Get(ctx, tournamentID)
	return wrap("getTournament", detail, err)
}

// --- Task rewards ---

func (g *Gateway) SubmitTask(ctx context.Context, userID, taskID string, reward int64, proof map[string]any) Result {
	completion, err := g.tasks.Submit(ctx, userID, taskID, reward, proof)
	return wrap("submitTask", completion, err)
}

func (g *Gateway) ApproveTask(ctx context.Context, completionID int64) Result {
	result, err := g.tasks.Approve(ctx, completionID)
	return wrap("approveTask", result, err)
}

func (g *Gateway) RejectTask(ctx context.Context, completionID int64, reason string) Result {
	completion, err := g.tasks.Reject(ctx, completionID, reason)
	return wrap("rejectTask", completion, err)
}

func (g *Gateway) PendingTasks(ctx context.Context, limit int) Result {
	completions, err := g.tasks.ListPending(ctx, limit)
	return wrap("pendingTasks", completions, err)
}
