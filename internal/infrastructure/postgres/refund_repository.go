package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adetunji-o/relaypay/internal/domain"
)

type RefundRepository struct {
	db *pgxpool.Pool
}

func NewRefundRepository(db *pgxpool.Pool) *RefundRepository {
	return &RefundRepository{db: db}
}

func (r *RefundRepository) InsertRefund(ctx context.Context, refund *domain.Refund) error {
	query := `
		INSERT INTO refunds (
			id, payment_id, attempt_id, merchant_id, connector,
			connector_refund_id, status, amount_minor, currency,
			created_at, modified_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query,
		refund.ID,
		refund.PaymentID,
		refund.AttemptID,
		refund.MerchantID,
		refund.Connector,
		refund.ConnectorRefundID,
		refund.Status,
		refund.AmountMinor,
		refund.Currency,
		refund.CreatedAt,
		refund.ModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert refund: %w", err)
	}

	return nil
}

func (r *RefundRepository) FindRefundByID(ctx context.Context, id string) (*domain.Refund, error) {
	query := `
		SELECT id, payment_id, attempt_id, merchant_id, connector,
		       connector_refund_id, status, amount_minor, currency,
		       created_at, modified_at
		FROM refunds WHERE id = $1
	`

	var rf domain.Refund
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rf.ID,
		&rf.PaymentID,
		&rf.AttemptID,
		&rf.MerchantID,
		&rf.Connector,
		&rf.ConnectorRefundID,
		&rf.Status,
		&rf.AmountMinor,
		&rf.Currency,
		&rf.CreatedAt,
		&rf.ModifiedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan refund: %w", err)
	}

	return &rf, nil
}

func (r *RefundRepository) UpdateRefund(ctx context.Context, refund *domain.Refund) error {
	query := `
		UPDATE refunds
		SET status = $2,
		    connector_refund_id = $3,
		    modified_at = $4
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		refund.ID,
		refund.Status,
		refund.ConnectorRefundID,
		refund.ModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update refund: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
