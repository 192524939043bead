package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adetunji-o/relaypay/internal/domain"
)

type AttemptRepository struct {
	db *pgxpool.Pool
}

func NewAttemptRepository(db *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{db: db}
}

func (r *AttemptRepository) InsertAttempt(ctx context.Context, attempt *domain.PaymentAttempt) error {
	query := `
		INSERT INTO payment_attempts (
			id, payment_id, merchant_id, connector, status, amount_minor, currency,
			payment_method, payment_method_type, auth_type,
			connector_transaction_id, error_code, error_message,
			retry_count, created_at, modified_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.Exec(ctx, query,
		attempt.ID,
		attempt.PaymentID,
		attempt.MerchantID,
		attempt.Connector,
		attempt.Status,
		attempt.AmountMinor,
		attempt.Currency,
		attempt.PaymentMethod,
		attempt.PaymentMethodType,
		attempt.AuthType,
		attempt.ConnectorTransactionID,
		attempt.ErrorCode,
		attempt.ErrorMessage,
		attempt.RetryCount,
		attempt.CreatedAt,
		attempt.ModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment attempt: %w", err)
	}

	return nil
}

func (r *AttemptRepository) FindAttemptByID(ctx context.Context, id string) (*domain.PaymentAttempt, error) {
	query := `
		SELECT id, payment_id, merchant_id, connector, status, amount_minor, currency,
		       payment_method, payment_method_type, auth_type,
		       connector_transaction_id, error_code, error_message,
		       retry_count, created_at, modified_at
		FROM payment_attempts WHERE id = $1
	`

	row := r.db.QueryRow(ctx, query, id)
	return scanAttempt(row)
}

func (r *AttemptRepository) UpdateAttempt(ctx context.Context, attempt *domain.PaymentAttempt) error {
	query := `
		UPDATE payment_attempts
		SET status = $2,
		    connector_transaction_id = $3,
		    error_code = $4,
		    error_message = $5,
		    retry_count = $6,
		    modified_at = $7
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		attempt.ID,
		attempt.Status,
		attempt.ConnectorTransactionID,
		attempt.ErrorCode,
		attempt.ErrorMessage,
		attempt.RetryCount,
		attempt.ModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanAttempt(row pgx.Row) (*domain.PaymentAttempt, error) {
	var a domain.PaymentAttempt
	err := row.Scan(
		&a.ID,
		&a.PaymentID,
		&a.MerchantID,
		&a.Connector,
		&a.Status,
		&a.AmountMinor,
		&a.Currency,
		&a.PaymentMethod,
		&a.PaymentMethodType,
		&a.AuthType,
		&a.ConnectorTransactionID,
		&a.ErrorCode,
		&a.ErrorMessage,
		&a.RetryCount,
		&a.CreatedAt,
		&a.ModifiedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment attempt: %w", err)
	}
	return &a, nil
}
