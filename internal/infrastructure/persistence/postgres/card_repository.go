package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ALI7-sys/CopIt/internal/domain"
)

// CardRepository keeps a local audit trail of cards issued through the
// provider. The provider remains the source of truth for card state.
type CardRepository struct {
	db *DB
}

func NewCardRepository(db *DB) *CardRepository {
	return &CardRepository{db: db}
}

func (r *CardRepository) Create(ctx context.Context, card *domain.VirtualCard) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO virtual_cards (id, last4, expiry, spend_limit, currency, merchant, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		card.ID, card.Last4, card.Expiry,
		card.Limit.Amount, card.Limit.Currency,
		card.Merchant, card.State, card.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert virtual card: %w", err)
	}
	return nil
}

func (r *CardRepository) FindByID(ctx context.Context, id string) (*domain.VirtualCard, error) {
	var c domain.VirtualCard

	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, last4, expiry, spend_limit, currency, merchant, state, created_at
		FROM virtual_cards WHERE id = $1`, id).Scan(
		&c.ID, &c.Last4, &c.Expiry,
		&c.Limit.Amount, &c.Limit.Currency,
		&c.Merchant, &c.State, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find virtual card: %w", err)
	}

	return &c, nil
}
