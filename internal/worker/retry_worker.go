// Package worker drains due retry tasks and re-drives stuck attempts through
// the flow engine.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adetunji-o/relaypay/internal/application"
	"github.com/adetunji-o/relaypay/internal/application/flows"
	"github.com/adetunji-o/relaypay/internal/connector"
	"github.com/adetunji-o/relaypay/internal/domain"
	"github.com/adetunji-o/relaypay/internal/infrastructure/postgres"
)

// BusinessStatusCompleted marks a task whose attempt reached a terminal
// status before the retry budget ran out.
const BusinessStatusCompleted = "COMPLETED"

type RetryWorker struct {
	tasks     *postgres.ProcessTrackerRepository
	attempts  application.AttemptRepository
	intents   application.IntentRepository
	configs   application.ConfigRepository
	engine    *flows.Engine
	scheduler application.RetryScheduler
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewRetryWorker(
	tasks *postgres.ProcessTrackerRepository,
	attempts application.AttemptRepository,
	intents application.IntentRepository,
	configs application.ConfigRepository,
	engine *flows.Engine,
	scheduler application.RetryScheduler,
	interval time.Duration,
	batchSize int,
	logger *slog.Logger,
) *RetryWorker {
	return &RetryWorker{
		tasks:     tasks,
		attempts:  attempts,
		intents:   intents,
		configs:   configs,
		engine:    engine,
		scheduler: scheduler,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (w *RetryWorker) Start(ctx context.Context) {
	w.logger.Info("retry worker started", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("retry worker stopping")
			return
		case <-ticker.C:
			if err := w.processDueTasks(ctx); err != nil {
				w.logger.Error("retry processing failed", "error", err)
			}
		}
	}
}

func (w *RetryWorker) processDueTasks(ctx context.Context) error {
	tasks, err := w.tasks.FindDueTasks(ctx, time.Now().UTC(), w.batchSize)
	if err != nil {
		return fmt.Errorf("query due tasks: %w", err)
	}

	var processed int
	for _, task := range tasks {
		if err := w.retryAttempt(ctx, task); err != nil {
			w.logger.Error("retry failed",
				"task_id", task.ID,
				"attempt_id", task.AttemptID,
				"category", application.CategorizeError(err),
				"error", err)
		} else {
			processed++
		}
	}

	if processed > 0 {
		w.logger.Info("processed due retry tasks", "count", processed)
	}

	return nil
}

// retryAttempt syncs one stuck attempt against its connector. A settled
// attempt finishes the task; otherwise the engine either settles it now or
// pushes the task back onto the tracker with the next schedule time.
func (w *RetryWorker) retryAttempt(ctx context.Context, task *application.ProcessTrackerTask) error {
	attempt, err := w.attempts.FindAttemptByID(ctx, task.AttemptID)
	if err != nil {
		return err
	}

	if attempt.Status.IsTerminal() {
		return w.scheduler.FinishProcessWithBusinessStatus(ctx, task, BusinessStatusCompleted)
	}

	intent, err := w.intents.FindIntentByID(ctx, attempt.PaymentID)
	if err != nil {
		return err
	}

	auth, err := application.LoadConnectorAuth(ctx, w.configs, attempt.MerchantID, attempt.Connector)
	if err != nil {
		return err
	}

	rd := connector.NewRouterData(
		connector.FlowPSync,
		attempt.MerchantID,
		attempt.PaymentID,
		attempt.ID,
		attempt.Connector,
		auth,
		connector.RequestData{
			AmountMinor:            attempt.AmountMinor,
			Currency:               attempt.Currency,
			ConnectorTransactionID: connectorTransactionID(attempt),
		},
	)

	if _, err := w.engine.ExecutePayment(ctx, intent, attempt, rd, connector.CallConnectorActionTrigger, task); err != nil {
		return err
	}

	if attempt.Status.IsTerminal() {
		if err := w.scheduler.FinishProcessWithBusinessStatus(ctx, task, BusinessStatusCompleted); err != nil {
			return err
		}
		w.logger.Info("stuck attempt settled",
			"attempt_id", attempt.ID,
			"status", attempt.Status)
	}

	return nil
}

func connectorTransactionID(attempt *domain.PaymentAttempt) string {
	if attempt.ConnectorTransactionID == nil {
		return ""
	}
	return *attempt.ConnectorTransactionID
}
