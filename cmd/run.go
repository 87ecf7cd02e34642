package cmd

import (
	"context"
	"fmt"
	"time"

	"quizhouse/api"
	"quizhouse/config"
	"quizhouse/database"
	"quizhouse/events"
	"quizhouse/repository"
	"quizhouse/service"

	log "github.com/sirupsen/logrus"
)

// App bundles the wired services behind the gateway. UI and admin layers
// embed the App and talk to it through App.Gateway only.
type App struct {
	Gateway *api.Gateway

	db *database.DB
}

// New connects to the database and wires the full service stack.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established")

	eventBus := events.NewBus()
	events.RegisterNotifications(eventBus, events.LogNotificationSink{})

	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	securityService := service.NewSecurityService(uowFactory, cfg)
	ledgerService := service.NewLedgerService(uowFactory, cfg)
	wagerService := service.NewWagerService(uowFactory, cfg, securityService)
	tournamentService := service.NewTournamentService(uowFactory, cfg)
	taskService := service.NewTaskService(uowFactory, securityService)

	return &App{
		Gateway: api.NewGateway(ledgerService, wagerService, securityService, tournamentService, taskService),
		db:      db,
	}, nil
}

// Close releases the App's resources.
func (a *App) Close() {
	log.Info("Closing database connection...")
	a.db.Close()
}

// Run starts the application and blocks until the context is cancelled.
func Run(ctx context.Context) error {
	log.Info("Starting quizhouse...")

	cfg := config.Get()

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"environment": cfg.Environment,
	}).Info("quizhouse is running")

	<-ctx.Done()

	log.Info("Shutting down...")
	app.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	select {
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Info("Shutdown completed")
	}

	return nil
}
