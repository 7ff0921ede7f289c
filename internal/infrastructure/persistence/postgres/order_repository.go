package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ALI7-sys/CopIt/internal/application"
	"github.com/ALI7-sys/CopIt/internal/domain"
)

// ErrNotFound is the repository not-found sentinel.
var ErrNotFound = application.ErrNotFound

type OrderRepository struct {
	db *DB
}

func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, status, subtotal, commission, shipping_fee, total, currency,
	ship_name, ship_street, ship_city, ship_state, ship_zip, ship_country,
	store, customer_email, vcc_created, vcc_id, vcc_last4, vcc_expiry,
	store_order_id, created_at, updated_at`

func (r *OrderRepository) Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	q := r.db.querier(tx)

	_, err := q.Exec(ctx, `
		INSERT INTO orders (id, status, subtotal, commission, shipping_fee, total, currency,
			ship_name, ship_street, ship_city, ship_state, ship_zip, ship_country,
			store, customer_email, vcc_created, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		order.ID, order.Status,
		order.Totals.Subtotal.Amount, order.Totals.Commission.Amount,
		order.Totals.ShippingFee.Amount, order.Totals.Total.Amount,
		order.Totals.Total.Currency,
		order.ShippingAddress.FullName, order.ShippingAddress.Street,
		order.ShippingAddress.City, order.ShippingAddress.State,
		order.ShippingAddress.Zip, order.ShippingAddress.Country,
		order.Store, order.CustomerEmail, order.VCCCreated,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, line := range order.Lines {
		_, err := q.Exec(ctx, `
			INSERT INTO order_lines (order_id, product_id, name, unit_price, currency, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			order.ID, line.ProductID, line.Name,
			line.UnitPrice.Amount, line.UnitPrice.Currency, line.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}

	if err := r.loadLines(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.OrderStatus) error {
	tag, err := r.db.querier(tx).Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindFulfillable returns paid orders created since the cutoff with no card
// issued yet, oldest first.
func (r *OrderRepository) FindFulfillable(ctx context.Context, since time.Time, limit int) ([]*domain.Order, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status = 'PAID' AND vcc_created = FALSE AND created_at >= $1
		ORDER BY created_at ASC
		LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("find fulfillable orders: %w", err)
	}
	defer rows.Close()

	return r.collectOrders(ctx, rows)
}

// FindCardedUnsubmitted returns orders whose card was issued but whose store
// submission never completed.
func (r *OrderRepository) FindCardedUnsubmitted(ctx context.Context, limit int) ([]*domain.Order, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status = 'PAID' AND vcc_created = TRUE AND store_order_id IS NULL
		ORDER BY created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("find carded unsubmitted orders: %w", err)
	}
	defer rows.Close()

	return r.collectOrders(ctx, rows)
}

// ClaimCardIssuance flips the issuance guard and reports whether this caller
// won. The WHERE clause makes the flip atomic; a second claimant sees zero
// rows affected.
func (r *OrderRepository) ClaimCardIssuance(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE orders SET vcc_created = TRUE, updated_at = NOW()
		WHERE id = $1 AND vcc_created = FALSE AND status = 'PAID'`, id)
	if err != nil {
		return false, fmt.Errorf("claim card issuance: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseCardClaim undoes a claim after a failed issuance so a later run can
// try again.
func (r *OrderRepository) ReleaseCardClaim(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE orders SET vcc_created = FALSE, updated_at = NOW()
		WHERE id = $1 AND vcc_id IS NULL`, id)
	if err != nil {
		return fmt.Errorf("release card claim: %w", err)
	}
	return nil
}

func (r *OrderRepository) AttachCard(ctx context.Context, id uuid.UUID, card *domain.VirtualCard) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE orders SET vcc_id = $1, vcc_last4 = $2, vcc_expiry = $3, updated_at = NOW()
		WHERE id = $4`,
		card.ID, card.Last4, card.Expiry, id)
	if err != nil {
		return fmt.Errorf("attach card: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *OrderRepository) MarkSubmitted(ctx context.Context, tx pgx.Tx, id uuid.UUID, storeOrderID string) error {
	tag, err := r.db.querier(tx).Exec(ctx, `
		UPDATE orders SET store_order_id = $1, status = 'PROCESSING', updated_at = NOW()
		WHERE id = $2 AND store_order_id IS NULL`,
		storeOrderID, id)
	if err != nil {
		return fmt.Errorf("mark order submitted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *OrderRepository) collectOrders(ctx context.Context, rows pgx.Rows) ([]*domain.Order, error) {
	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	for _, order := range orders {
		if err := r.loadLines(ctx, order); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

func (r *OrderRepository) loadLines(ctx context.Context, order *domain.Order) error {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT product_id, name, unit_price, currency, quantity
		FROM order_lines WHERE order_id = $1 ORDER BY id`, order.ID)
	if err != nil {
		return fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.OrderLine
		err := rows.Scan(&line.ProductID, &line.Name,
			&line.UnitPrice.Amount, &line.UnitPrice.Currency, &line.Quantity)
		if err != nil {
			return fmt.Errorf("scan order line: %w", err)
		}
		order.Lines = append(order.Lines, line)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var currency string

	err := row.Scan(
		&o.ID, &o.Status,
		&o.Totals.Subtotal.Amount, &o.Totals.Commission.Amount,
		&o.Totals.ShippingFee.Amount, &o.Totals.Total.Amount, &currency,
		&o.ShippingAddress.FullName, &o.ShippingAddress.Street,
		&o.ShippingAddress.City, &o.ShippingAddress.State,
		&o.ShippingAddress.Zip, &o.ShippingAddress.Country,
		&o.Store, &o.CustomerEmail, &o.VCCCreated, &o.VCCID, &o.VCCLast4, &o.VCCExpiry,
		&o.StoreOrderID, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Totals.Subtotal.Currency = currency
	o.Totals.Commission.Currency = currency
	o.Totals.ShippingFee.Currency = currency
	o.Totals.Total.Currency = currency

	return &o, nil
}
