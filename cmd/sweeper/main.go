package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"monetra/internal/amqp"
	"monetra/internal/codec"
	"monetra/internal/config"
	"monetra/internal/database"
	"monetra/internal/logger"
	"monetra/internal/models"
	"monetra/internal/push"
	"monetra/internal/services"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Named("sweeper")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	db := dbManager.DB()
	fieldCodec := codec.New(cfg.EncryptionKey)
	pusher := push.NewFCMPusher(cfg.FCMCredentialsPath)

	notificationService := services.NewNotificationService(db, pusher)
	budgetService := services.NewBudgetService(db, fieldCodec, notificationService)

	var dispatcher services.BudgetAlertDispatcher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("failed to connect to AMQP: %w", err)
		}
		defer client.Close()
		dispatcher = services.NewQueueDispatcher(client)
	} else {
		dispatcher = services.NewAsyncDispatcher(budgetService)
	}

	walletService := services.NewWalletService(db, fieldCodec)
	aggregateService := services.NewAggregateService(db, fieldCodec)
	transactionService := services.NewTransactionService(db, fieldCodec, walletService, aggregateService, dispatcher)
	recurringService := services.NewRecurringService(db, fieldCodec, transactionService, notificationService)

	scheduler := cron.New()

	_, err = scheduler.AddFunc(cfg.SweepSchedule, func() {
		processed, err := recurringService.ProcessDueTransactions(time.Now())
		if err != nil {
			log.Errorw("recurring sweep failed", "error", err)
			return
		}
		log.Infow("recurring sweep finished", "processed", processed)

		evaluated, err := budgetService.EvaluateAllUsers()
		if err != nil {
			log.Errorw("budget sweep failed", "error", err)
			return
		}
		log.Infow("budget sweep finished", "evaluated", evaluated)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	_, err = scheduler.AddFunc(cfg.ReconcileSchedule, func() {
		reconcileAll(db, walletService, log)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reconciliation: %w", err)
	}

	scheduler.Start()
	log.Infow("sweeper started",
		"sweep_schedule", cfg.SweepSchedule,
		"reconcile_schedule", cfg.ReconcileSchedule,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	<-scheduler.Stop().Done()
	return nil
}

// reconcileAll recomputes wallet balances from the transaction log for
// every user that owns at least one wallet.
func reconcileAll(db *gorm.DB, wallets services.WalletServicer, log *zap.SugaredLogger) {
	var userIDs []string
	if err := db.Model(&models.Wallet{}).Distinct("user_id").Pluck("user_id", &userIDs).Error; err != nil {
		log.Errorw("failed to list users for reconciliation", "error", err)
		return
	}

	repaired := 0
	for _, userID := range userIDs {
		results, err := wallets.Reconcile(userID)
		if err != nil {
			log.Errorw("reconciliation failed", "user_id", userID, "error", err)
			continue
		}
		for _, r := range results {
			if r.Repaired {
				repaired++
			}
		}
	}
	log.Infow("reconciliation finished", "users", len(userIDs), "repaired", repaired)
}
