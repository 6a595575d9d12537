package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"monetra/internal/amqp"
	"monetra/internal/codec"
	"monetra/internal/config"
	"monetra/internal/database"
	"monetra/internal/logger"
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
	log := logger.Named("worker")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.AMQPURL == "" {
		return fmt.Errorf("AMQP_URL is required for the worker")
	}

	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	db := dbManager.DB()
	fieldCodec := codec.New(cfg.EncryptionKey)
	pusher := push.NewFCMPusher(cfg.FCMCredentialsPath)

	notificationService := services.NewNotificationService(db, pusher)
	budgetService := services.NewBudgetService(db, fieldCodec, notificationService)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("failed to connect to AMQP: %w", err)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("worker started", "queue", cfg.AMQPQueue)

	err = client.ConsumeBudgetChecks(ctx, func(msg *amqp.BudgetCheckMessage) error {
		return budgetService.EvaluateBudgetAlerts(msg.UserID)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume failed: %w", err)
	}

	log.Info("shutting down")
	return nil
}
