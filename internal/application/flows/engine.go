// Package flows drives the per-flow RouterData pipeline: resolve the
// connector integration, acquire an access token when the connector needs
// one, run pre/post tasks, execute the wire call, fold the response into the
// attempt state machine and hand retries to the scheduler.
package flows

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/adetunji-o/relaypay/internal/application"
	"github.com/adetunji-o/relaypay/internal/connector"
	"github.com/adetunji-o/relaypay/internal/domain"
	"github.com/adetunji-o/relaypay/internal/telemetry"
)

// BusinessStatusRetriesExceeded marks a process-tracker task whose retry
// budget ran out.
const BusinessStatusRetriesExceeded = "RETRIES_EXCEEDED"

const taskNamePaymentRetry = "payment_retry"

type Engine struct {
	registry  *connector.Registry
	wire      application.WireClient
	tokens    application.TokenCache
	attempts  application.AttemptRepository
	intents   application.IntentRepository
	refunds   application.RefundRepository
	scheduler application.RetryScheduler
	locks     application.ResourceLock
	metrics   *telemetry.Metrics
	logger    *slog.Logger
	clock     func() time.Time
}

func NewEngine(
	registry *connector.Registry,
	wire application.WireClient,
	tokens application.TokenCache,
	attempts application.AttemptRepository,
	intents application.IntentRepository,
	refunds application.RefundRepository,
	scheduler application.RetryScheduler,
	locks application.ResourceLock,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		registry:  registry,
		wire:      wire,
		tokens:    tokens,
		attempts:  attempts,
		intents:   intents,
		refunds:   refunds,
		scheduler: scheduler,
		locks:     locks,
		metrics:   metrics,
		logger:    logger,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the engine clock. Tests use it to pin "now".
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// DecideFlows runs the pipeline for one RouterData. Stages are strictly
// sequential and short-circuit on the first failure. Connector-side failures
// land in the RouterData response slot; only infrastructure trouble comes
// back as a Go error.
func (e *Engine) DecideFlows(ctx context.Context, rd *connector.RouterData, action connector.CallConnectorAction) (*connector.RouterData, error) {
	integ, err := e.registry.Resolve(rd.Connector, rd.Flow)
	if err != nil {
		return nil, err
	}

	tokenRes, err := e.AddAccessToken(ctx, rd)
	if err != nil {
		return nil, err
	}
	if !UpdateRouterDataWithAccessTokenResult(rd, tokenRes) {
		e.logger.Warn("access token acquisition failed, aborting connector call",
			"merchant_id", rd.MerchantID,
			"connector", rd.Connector,
			"flow", rd.Flow)
		return rd, nil
	}

	completedPreTasks := false
	if pre, ok := integ.(connector.PreProcessor); ok {
		if err := pre.PreProcess(ctx, rd, e.wire.Send); err != nil {
			return nil, err
		}
		completedPreTasks = true
	}

	req, err := e.buildFlowSpecificConnectorRequest(ctx, integ, rd, action)
	if err != nil {
		return nil, err
	}
	if req == nil {
		// Status-only path: no wire call, response slot untouched.
		e.logger.Debug("connector call skipped",
			"connector", rd.Connector,
			"flow", rd.Flow,
			"completed_pretasks", completedPreTasks)
		return rd, nil
	}

	start := e.clock()
	resp, err := e.wire.Send(ctx, *req)
	e.metrics.WireRequestDuration.
		WithLabelValues(rd.Connector, string(rd.Flow)).
		Observe(e.clock().Sub(start).Seconds())
	if err != nil {
		rd.SetError(connector.ConnectionErrorResponse(err))
		return rd, nil
	}

	switch {
	case resp.StatusCode >= 500:
		rd.SetError(integ.Get5xxErrorResponse(resp))
	case resp.StatusCode >= 400:
		rd.SetError(integ.GetErrorResponse(resp))
	default:
		data, err := integ.HandleResponse(ctx, rd, resp)
		if err != nil {
			return nil, err
		}
		rd.SetResponse(data)

		if ic := CheckIntegrity(rd); ic != nil {
			rd.IntegrityCheck = ic
			e.logger.Warn("integrity check failed",
				"connector", rd.Connector,
				"flow", rd.Flow,
				"fields", ic.FieldNames,
				"connector_transaction_id", ic.ConnectorTransactionID)
		}
	}

	if post, ok := integ.(connector.PostProcessor); ok {
		if err := post.PostProcess(ctx, rd, e.wire.Send); err != nil {
			return nil, err
		}
	}

	return rd, nil
}

// buildFlowSpecificConnectorRequest only asks the integration for a wire
// request when the action says to actually hit the connector.
func (e *Engine) buildFlowSpecificConnectorRequest(ctx context.Context, integ connector.Integration, rd *connector.RouterData, action connector.CallConnectorAction) (*connector.WireRequest, error) {
	if action != connector.CallConnectorActionTrigger {
		return nil, nil
	}
	return integ.BuildRequest(ctx, rd)
}

// ExecutePayment drives one attempt through the pipeline and the status
// machine, persisting the result and handing retryable outcomes to the
// scheduler. Terminal attempts short-circuit: re-syncing a settled attempt
// is a no-op that never touches the scheduler.
func (e *Engine) ExecutePayment(
	ctx context.Context,
	intent *domain.PaymentIntent,
	attempt *domain.PaymentAttempt,
	rd *connector.RouterData,
	action connector.CallConnectorAction,
	task *application.ProcessTrackerTask,
) (*connector.RouterData, error) {
	// Void eligibility is checked before the terminal short-circuit: a void
	// against a charged payment must be rejected, not absorbed as an
	// idempotent sync.
	if rd.Flow == connector.FlowVoid && !intent.VoidEligible() {
		return nil, application.NewInvalidRequestDataError(
			fmt.Sprintf("payment in status %s cannot be cancelled", intent.Status))
	}

	if attempt.Status.IsTerminal() {
		e.logger.Info("attempt already terminal, sync is a no-op",
			"attempt_id", attempt.ID,
			"status", attempt.Status)
		return rd, nil
	}

	if e.locks != nil && mutatesConnectorState(rd.Flow) {
		lockKey := fmt.Sprintf("attempt_%s_%s", rd.MerchantID, attempt.ID)
		if err := e.locks.Acquire(ctx, lockKey); err != nil {
			return nil, application.NewInternalError(err)
		}
		defer func() {
			if err := e.locks.Release(ctx, lockKey); err != nil {
				e.logger.Warn("lock release failed", "key", lockKey, "error", err)
			}
		}()
	}

	rd, err := e.DecideFlows(ctx, rd, action)
	if err != nil {
		return nil, err
	}

	next, retryable := NextAttemptStatus(rd, attempt.Status)

	if retryable {
		if err := e.handleRetryableFailure(ctx, attempt, rd, task); err != nil {
			return nil, err
		}
		return rd, nil
	}

	if err := attempt.UpdateStatus(next); err != nil {
		return nil, err
	}

	if rd.ResponseOK() {
		attempt.RecordConnectorTransactionID(rd.Response.ConnectorTransactionID)
	} else if rd.ErrorResponse != nil && rd.ErrorResponse.Code != connector.NoErrorCode {
		attempt.RecordFailure(rd.ErrorResponse.Code, rd.ErrorResponse.Message)
	}

	if err := e.attempts.UpdateAttempt(ctx, attempt); err != nil {
		return nil, application.NewInternalError(err)
	}

	intent.Status = domain.StatusForAttempt(attempt.Status)
	intent.ModifiedAt = e.clock()
	if err := e.intents.UpdateIntent(ctx, intent); err != nil {
		return nil, application.NewInternalError(err)
	}

	e.logger.Info("attempt settled",
		"attempt_id", attempt.ID,
		"connector", rd.Connector,
		"flow", rd.Flow,
		"status", attempt.Status)

	return rd, nil
}

// ExecuteRefund drives a refund through the execute/rsync flows.
func (e *Engine) ExecuteRefund(
	ctx context.Context,
	refund *domain.Refund,
	rd *connector.RouterData,
	action connector.CallConnectorAction,
	task *application.ProcessTrackerTask,
) (*connector.RouterData, error) {
	if refund.Status == domain.RefundSuccess || refund.Status == domain.RefundFailure {
		e.logger.Info("refund already terminal, sync is a no-op",
			"refund_id", refund.ID,
			"status", refund.Status)
		return rd, nil
	}

	rd, err := e.DecideFlows(ctx, rd, action)
	if err != nil {
		return nil, err
	}

	next, retryable := NextRefundStatus(rd, refund.Status)
	if retryable {
		if err := e.scheduleRetry(ctx, rd.Connector, refund.MerchantID, refund.AttemptID, task); err != nil {
			return nil, err
		}
		return rd, nil
	}

	refund.Status = next
	refund.ModifiedAt = e.clock()
	if rd.ResponseOK() && rd.Response.ConnectorTransactionID != "" {
		id := rd.Response.ConnectorTransactionID
		refund.ConnectorRefundID = &id
	}
	if err := e.refunds.UpdateRefund(ctx, refund); err != nil {
		return nil, application.NewInternalError(err)
	}

	return rd, nil
}

func (e *Engine) handleRetryableFailure(ctx context.Context, attempt *domain.PaymentAttempt, rd *connector.RouterData, task *application.ProcessTrackerTask) error {
	if task == nil {
		task = e.taskForAttempt(attempt)
	}

	// RetryCount is the number of retries already consumed, which is exactly
	// the zero-based index of the retry being scheduled now.
	next, err := e.scheduler.NextScheduleTime(ctx, attempt.Connector, attempt.MerchantID, attempt.RetryCount)
	if err != nil {
		return application.NewInternalError(err)
	}

	if next == nil {
		e.logger.Warn("retry budget exhausted",
			"attempt_id", attempt.ID,
			"connector", attempt.Connector,
			"retry_count", attempt.RetryCount)
		if err := e.scheduler.FinishProcessWithBusinessStatus(ctx, task, BusinessStatusRetriesExceeded); err != nil {
			return application.NewInternalError(err)
		}
		return nil
	}

	attempt.RetryCount++
	if rd.ErrorResponse != nil {
		attempt.RecordFailure(rd.ErrorResponse.Code, rd.ErrorResponse.Message)
	}
	if err := e.attempts.UpdateAttempt(ctx, attempt); err != nil {
		return application.NewInternalError(err)
	}

	task.RetryCount = attempt.RetryCount
	if err := e.scheduler.RetryProcess(ctx, task, *next); err != nil {
		return application.NewInternalError(err)
	}

	e.logger.Info("retry scheduled",
		"attempt_id", attempt.ID,
		"connector", attempt.Connector,
		"retry_count", attempt.RetryCount,
		"schedule_time", *next)

	return nil
}

func (e *Engine) scheduleRetry(ctx context.Context, connectorName, merchantID, attemptID string, task *application.ProcessTrackerTask) error {
	if task == nil {
		task = &application.ProcessTrackerTask{
			ID:         uuid.New().String(),
			Name:       taskNamePaymentRetry,
			AttemptID:  attemptID,
			MerchantID: merchantID,
		}
	}

	next, err := e.scheduler.NextScheduleTime(ctx, connectorName, merchantID, task.RetryCount)
	if err != nil {
		return application.NewInternalError(err)
	}
	if next == nil {
		if err := e.scheduler.FinishProcessWithBusinessStatus(ctx, task, BusinessStatusRetriesExceeded); err != nil {
			return application.NewInternalError(err)
		}
		return nil
	}

	task.RetryCount++
	if err := e.scheduler.RetryProcess(ctx, task, *next); err != nil {
		return application.NewInternalError(err)
	}
	return nil
}

func (e *Engine) taskForAttempt(attempt *domain.PaymentAttempt) *application.ProcessTrackerTask {
	return &application.ProcessTrackerTask{
		ID:         uuid.New().String(),
		Name:       taskNamePaymentRetry,
		AttemptID:  attempt.ID,
		MerchantID: attempt.MerchantID,
		RetryCount: attempt.RetryCount,
	}
}

// mutatesConnectorState reports whether a flow performs a side-effecting
// external operation that must not run concurrently for the same attempt.
func mutatesConnectorState(flow connector.Flow) bool {
	switch flow {
	case connector.FlowAuthorize, connector.FlowCapture, connector.FlowVoid, connector.FlowRefundExecute:
		return true
	default:
		return false
	}
}
