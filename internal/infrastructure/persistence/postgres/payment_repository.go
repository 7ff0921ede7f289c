package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ALI7-sys/CopIt/internal/domain"
)

type PaymentRepository struct {
	db *DB
}

func NewPaymentRepository(db *DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error {
	_, err := r.db.querier(tx).Exec(ctx, `
		INSERT INTO payments (id, order_id, status, amount, currency, card_id,
			transaction_id, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		payment.ID, payment.OrderID, payment.Status,
		payment.Amount.Amount, payment.Amount.Currency,
		payment.CardID, payment.TransactionID,
		payment.CreatedAt, payment.UpdatedAt, payment.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	var p domain.Payment

	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, order_id, status, amount, currency, card_id, transaction_id,
			created_at, updated_at, completed_at
		FROM payments WHERE id = $1`, id).Scan(
		&p.ID, &p.OrderID, &p.Status,
		&p.Amount.Amount, &p.Amount.Currency,
		&p.CardID, &p.TransactionID,
		&p.CreatedAt, &p.UpdatedAt, &p.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}

	return &p, nil
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PaymentStatus, completedAt *time.Time) error {
	tag, err := r.db.querier(tx).Exec(ctx, `
		UPDATE payments SET status = $1, completed_at = $2, updated_at = NOW()
		WHERE id = $3`,
		status, completedAt, id)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
