package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lathitha/eyecare-orders/internal/notify"
	"github.com/lathitha/eyecare-orders/internal/tracking"
)

// Repo is the Postgres order registry and notification log.
type Repo struct{ DB *pgxpool.Pool }

var (
	_ Registry        = (*Repo)(nil)
	_ NotificationLog = (*Repo)(nil)
)

func (r *Repo) Stage(ctx context.Context, id string) (int, error) {
	var idx int
	err := r.DB.QueryRow(ctx, `SELECT stage_index FROM orders WHERE id=$1`, id).Scan(&idx)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return idx, err
}

func (r *Repo) Get(ctx context.Context, id string) (Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, invoice_id, customer_name, phone, stage_index, created_at, updated_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.InvoiceID, &o.CustomerName, &o.Phone, &o.StageIndex, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return o, err
}

// Create is idempotent on id: a second insert reports ErrExists and leaves
// the first record untouched.
func (r *Repo) Create(ctx context.Context, o Order) error {
	now := time.Now().UTC()
	ct, err := r.DB.Exec(ctx, `
		INSERT INTO orders(id, invoice_id, customer_name, phone, stage_index, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (id) DO NOTHING`,
		o.ID, o.InvoiceID, o.CustomerName, o.Phone, o.StageIndex, now)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrExists, o.ID)
	}
	return nil
}

// Advance locks the row so concurrent staff updates cannot skip a stage.
func (r *Repo) Advance(ctx context.Context, id string) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var o Order
	err = tx.QueryRow(ctx, `
		SELECT id, invoice_id, customer_name, phone, stage_index, created_at, updated_at
		FROM orders WHERE id=$1 FOR UPDATE`, id).
		Scan(&o.ID, &o.InvoiceID, &o.CustomerName, &o.Phone, &o.StageIndex, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Order{}, err
	}
	next := o.StageIndex + 1
	if !tracking.CanAdvance(o.StageIndex, next) {
		return Order{}, fmt.Errorf("%w: %s is at its last stage", ErrInvalidTransition, id)
	}

	o.StageIndex = next
	o.UpdatedAt = time.Now().UTC()
	if _, err := tx.Exec(ctx, `UPDATE orders SET stage_index=$2, updated_at=$3 WHERE id=$1`,
		id, o.StageIndex, o.UpdatedAt); err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *Repo) Record(ctx context.Context, msg notify.Message) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO notifications(id, order_id, recipient, body, provider, provider_message_id, status, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		msg.ID, msg.OrderID, msg.Recipient, msg.Body, msg.Provider, msg.ProviderMessageID,
		string(msg.Status), msg.Error, msg.CreatedAt)
	return err
}

func (r *Repo) UpdateStatus(ctx context.Context, providerMessageID string, status notify.Status, errText string) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE notifications SET status=$2, error=$3, updated_at=now()
		WHERE provider_message_id=$1`, providerMessageID, string(status), errText)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: notification %s", ErrNotFound, providerMessageID)
	}
	return nil
}

func (r *Repo) Notifications(ctx context.Context, orderID string) ([]notify.Message, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, recipient, body, provider, provider_message_id, status, error, created_at
		FROM notifications WHERE order_id=$1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]notify.Message, 0)
	for rows.Next() {
		var (
			m      notify.Message
			status string
		)
		if err := rows.Scan(&m.ID, &m.OrderID, &m.Recipient, &m.Body, &m.Provider,
			&m.ProviderMessageID, &status, &m.Error, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Status = notify.Status(status)
		out = append(out, m)
	}
	return out, rows.Err()
}
