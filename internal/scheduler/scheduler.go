package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/adetunji-o/relaypay/internal/application"
	"github.com/adetunji-o/relaypay/internal/infrastructure/postgres"
)

// TaskStore is the persistence slice of the process tracker the scheduler
// writes through.
type TaskStore interface {
	UpsertTask(ctx context.Context, task *application.ProcessTrackerTask, scheduleTime time.Time) error
	FinishTask(ctx context.Context, task *application.ProcessTrackerTask, businessStatus string) error
}

type Scheduler struct {
	tasks   TaskStore
	configs application.ConfigRepository
	logger  *slog.Logger
	now     func() time.Time
}

func New(tasks TaskStore, configs application.ConfigRepository, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		tasks:   tasks,
		configs: configs,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock overrides the scheduler clock.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// mappingFor resolves the backoff shape, most specific key first. A missing
// or malformed config row falls back to the built-in default.
func (s *Scheduler) mappingFor(ctx context.Context, connectorName, merchantID string) RetryMapping {
	keys := []string{
		fmt.Sprintf("retry_mapping_%s_%s", connectorName, merchantID),
		fmt.Sprintf("retry_mapping_%s", connectorName),
	}

	for _, key := range keys {
		raw, err := s.configs.FindConfigByKey(ctx, key)
		if errors.Is(err, postgres.ErrNotFound) {
			continue
		}
		if err != nil {
			s.logger.Warn("retry mapping lookup failed, using default",
				"key", key,
				"error", err)
			break
		}

		var mapping RetryMapping
		if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
			s.logger.Warn("malformed retry mapping, using default",
				"key", key,
				"error", err)
			break
		}
		return mapping
	}

	return defaultRetryMapping()
}

// NextScheduleTime returns when retry number retryCount should run, or nil
// once the configured budget is spent.
func (s *Scheduler) NextScheduleTime(ctx context.Context, connectorName, merchantID string, retryCount int) (*time.Time, error) {
	mapping := s.mappingFor(ctx, connectorName, merchantID)

	delay, ok := mapping.Delay(retryCount)
	if !ok {
		return nil, nil
	}

	at := s.now().UTC().Add(delay)
	return &at, nil
}

func (s *Scheduler) RetryProcess(ctx context.Context, task *application.ProcessTrackerTask, scheduleTime time.Time) error {
	task.ScheduleTime = scheduleTime
	if err := s.tasks.UpsertTask(ctx, task, scheduleTime); err != nil {
		return err
	}

	s.logger.Info("retry scheduled",
		"task", task.Name,
		"attempt_id", task.AttemptID,
		"retry_count", task.RetryCount,
		"schedule_time", scheduleTime)
	return nil
}

func (s *Scheduler) FinishProcessWithBusinessStatus(ctx context.Context, task *application.ProcessTrackerTask, status string) error {
	task.BusinessStatus = status
	if err := s.tasks.FinishTask(ctx, task, status); err != nil {
		// A task that never got scheduled has no row to finish.
		if errors.Is(err, postgres.ErrNotFound) {
			return nil
		}
		return err
	}

	s.logger.Info("retry task finished",
		"task", task.Name,
		"attempt_id", task.AttemptID,
		"business_status", status)
	return nil
}
