package main

import (
	"context"
	"log"

	"finlink/internal/domain/notification"
	"finlink/internal/domain/sync"
	"finlink/internal/infrastructure/aggregator"
	"finlink/internal/infrastructure/crypto"
	"finlink/internal/infrastructure/firebase"
	"finlink/internal/infrastructure/postgres"
	httphandlers "finlink/internal/interfaces/http"
	"finlink/internal/interfaces/scheduler"
	"finlink/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	SyncHandler         *httphandlers.SyncHandler
	AccountHandler      *httphandlers.AccountHandler
	TransactionHandler  *httphandlers.TransactionHandler
	NotificationHandler *httphandlers.NotificationHandler

	// Sync engine (for the scheduler job provider)
	Orchestrator *sync.Orchestrator

	// Shared worker pool: login syncs and the periodic sweep both run here.
	WorkerPool *scheduler.WorkerPool
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	// Connect to database
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	// Initialize encryptor for credentials at rest
	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		return nil, err
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(db, encryptor)
	transactionRepo := postgres.NewTransactionRepository(db)
	tokenRepo := postgres.NewTokenRepository(db)
	userDirectory := postgres.NewUserDirectory(db)

	// Initialize aggregation provider client
	providerClient := aggregator.NewClient(aggregator.Config{
		BaseURL: cfg.Aggregator.BaseURL,
		Timeout: cfg.Aggregator.Timeout,
	})

	// Initialize push messaging when Firebase credentials are configured;
	// without them reconnect prompts are log-only.
	var notificationService *notification.Service
	if cfg.Firebase.CredentialsFile != "" {
		fcmClient, err := firebase.NewClient(ctx, cfg.Firebase.CredentialsFile, tokenRepo.DeactivateToken)
		if err != nil {
			return nil, err
		}
		notificationService = notification.NewService(tokenRepo, fcmClient)
		log.Println("Firebase messaging initialized")
	} else {
		notificationService = notification.NewService(tokenRepo, nil)
		log.Println("Firebase credentials not configured, push delivery disabled")
	}

	// Assemble the sync engine
	reconciler := sync.NewBalanceReconciler(providerClient, accountRepo)
	ingester := sync.NewTransactionIngester(providerClient, transactionRepo)
	unit := sync.NewAccountSyncUnit(reconciler, ingester, accountRepo, notificationService)
	orchestrator := sync.NewOrchestrator(unit, accountRepo, userDirectory, sync.Config{
		Concurrency: cfg.Sync.Concurrency,
		WindowDays:  cfg.Sync.WindowDays,
	})

	workerPool := scheduler.NewWorkerPool(cfg.Scheduler.WorkerCount, cfg.Scheduler.JobDelay, cfg.Scheduler.QueueSize)

	return &Dependencies{
		DB:                  db,
		SyncHandler:         httphandlers.NewSyncHandler(orchestrator, workerPool),
		AccountHandler:      httphandlers.NewAccountHandler(accountRepo),
		TransactionHandler:  httphandlers.NewTransactionHandler(transactionRepo, accountRepo),
		NotificationHandler: httphandlers.NewNotificationHandler(notificationService),
		Orchestrator:        orchestrator,
		WorkerPool:          workerPool,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
