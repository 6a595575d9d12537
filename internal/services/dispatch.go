package services

import (
	"context"

	"monetra/internal/amqp"
	"monetra/internal/logger"
)

// asyncDispatcher runs budget-alert evaluation on a detached goroutine.
// It is the default when no message queue is configured. Panics and
// errors are contained and logged; the triggering ledger write has
// already committed by the time Dispatch runs.
type asyncDispatcher struct {
	budgets BudgetServicer
}

// NewAsyncDispatcher creates an in-process BudgetAlertDispatcher.
func NewAsyncDispatcher(budgets BudgetServicer) BudgetAlertDispatcher {
	return &asyncDispatcher{budgets: budgets}
}

func (d *asyncDispatcher) Dispatch(userID string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Named("dispatch").Errorw("budget evaluation panicked", "user_id", userID, "panic", r)
			}
		}()
		if err := d.budgets.EvaluateBudgetAlerts(userID); err != nil {
			logger.Named("dispatch").Errorw("budget evaluation failed", "user_id", userID, "error", err)
		}
	}()
}

// queueDispatcher publishes budget-check messages to the AMQP queue; a
// separate worker process consumes them and runs the evaluator.
type queueDispatcher struct {
	client *amqp.Client
}

// NewQueueDispatcher creates a queue-backed BudgetAlertDispatcher.
func NewQueueDispatcher(client *amqp.Client) BudgetAlertDispatcher {
	return &queueDispatcher{client: client}
}

func (d *queueDispatcher) Dispatch(userID string) {
	if err := d.client.PublishBudgetCheck(context.Background(), userID); err != nil {
		logger.Named("dispatch").Errorw("failed to publish budget check", "user_id", userID, "error", err)
	}
}
