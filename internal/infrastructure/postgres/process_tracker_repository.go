package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adetunji-o/relaypay/internal/application"
)

const (
	TaskStatusPending  = "pending"
	TaskStatusFinished = "finished"
)

// ProcessTrackerRepository persists retry tasks. One row per attempt and task
// name; rescheduling the same attempt updates the row in place.
type ProcessTrackerRepository struct {
	db *pgxpool.Pool
}

func NewProcessTrackerRepository(db *pgxpool.Pool) *ProcessTrackerRepository {
	return &ProcessTrackerRepository{db: db}
}

func (r *ProcessTrackerRepository) UpsertTask(ctx context.Context, task *application.ProcessTrackerTask, scheduleTime time.Time) error {
	query := `
		INSERT INTO process_tracker (
			id, name, attempt_id, merchant_id, retry_count,
			schedule_time, status, business_status, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, '', NOW())
		ON CONFLICT (name, attempt_id) DO UPDATE SET
			retry_count = EXCLUDED.retry_count,
			schedule_time = EXCLUDED.schedule_time,
			status = EXCLUDED.status,
			updated_at = NOW()
	`

	_, err := r.db.Exec(ctx, query,
		task.ID,
		task.Name,
		task.AttemptID,
		task.MerchantID,
		task.RetryCount,
		scheduleTime,
		TaskStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert process tracker task: %w", err)
	}

	return nil
}

func (r *ProcessTrackerRepository) FinishTask(ctx context.Context, task *application.ProcessTrackerTask, businessStatus string) error {
	query := `
		UPDATE process_tracker
		SET status = $3, business_status = $4, updated_at = NOW()
		WHERE name = $1 AND attempt_id = $2
	`

	tag, err := r.db.Exec(ctx, query, task.Name, task.AttemptID, TaskStatusFinished, businessStatus)
	if err != nil {
		return fmt.Errorf("failed to finish process tracker task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// FindDueTasks returns pending tasks whose schedule time has passed, oldest
// first.
func (r *ProcessTrackerRepository) FindDueTasks(ctx context.Context, now time.Time, limit int) ([]*application.ProcessTrackerTask, error) {
	query := `
		SELECT id, name, attempt_id, merchant_id, retry_count, schedule_time, business_status
		FROM process_tracker
		WHERE status = $1 AND schedule_time <= $2
		ORDER BY schedule_time ASC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, TaskStatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*application.ProcessTrackerTask
	for rows.Next() {
		var t application.ProcessTrackerTask
		if err := rows.Scan(&t.ID, &t.Name, &t.AttemptID, &t.MerchantID, &t.RetryCount, &t.ScheduleTime, &t.BusinessStatus); err != nil {
			return nil, fmt.Errorf("failed to scan process tracker task: %w", err)
		}
		tasks = append(tasks, &t)
	}

	return tasks, rows.Err()
}
