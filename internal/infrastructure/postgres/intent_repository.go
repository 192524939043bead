package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adetunji-o/relaypay/internal/domain"
)

type IntentRepository struct {
	db *pgxpool.Pool
}

func NewIntentRepository(db *pgxpool.Pool) *IntentRepository {
	return &IntentRepository{db: db}
}

func (r *IntentRepository) InsertIntent(ctx context.Context, intent *domain.PaymentIntent) error {
	query := `
		INSERT INTO payment_intents (
			id, merchant_id, status, amount_minor, currency,
			active_attempt_id, created_at, modified_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		intent.ID,
		intent.MerchantID,
		intent.Status,
		intent.AmountMinor,
		intent.Currency,
		intent.ActiveAttemptID,
		intent.CreatedAt,
		intent.ModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment intent: %w", err)
	}

	return nil
}

func (r *IntentRepository) FindIntentByID(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	query := `
		SELECT id, merchant_id, status, amount_minor, currency,
		       active_attempt_id, created_at, modified_at
		FROM payment_intents WHERE id = $1
	`

	var i domain.PaymentIntent
	err := r.db.QueryRow(ctx, query, id).Scan(
		&i.ID,
		&i.MerchantID,
		&i.Status,
		&i.AmountMinor,
		&i.Currency,
		&i.ActiveAttemptID,
		&i.CreatedAt,
		&i.ModifiedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment intent: %w", err)
	}

	return &i, nil
}

func (r *IntentRepository) UpdateIntent(ctx context.Context, intent *domain.PaymentIntent) error {
	query := `
		UPDATE payment_intents
		SET status = $2,
		    active_attempt_id = $3,
		    modified_at = $4
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		intent.ID,
		intent.Status,
		intent.ActiveAttemptID,
		intent.ModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment intent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
