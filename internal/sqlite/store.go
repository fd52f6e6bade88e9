// Package sqlite is the single-file store used for local runs and tests.
// One Store serves the catalog, the order registry and the notification log.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/lathitha/eyecare-orders/internal/catalog"
	"github.com/lathitha/eyecare-orders/internal/notify"
	"github.com/lathitha/eyecare-orders/internal/orders"
	"github.com/lathitha/eyecare-orders/internal/tracking"
)

// Store owns the database handle. Catalog and Orders are views over it.
type Store struct {
	db      *sql.DB
	Catalog *Catalog
	Orders  *Orders
}

// Catalog implements catalog.Store.
type Catalog struct{ db *sql.DB }

// Orders implements the order registry and the notification log.
type Orders struct{ db *sql.DB }

var (
	_ catalog.Store          = (*Catalog)(nil)
	_ orders.Registry        = (*Orders)(nil)
	_ orders.NotificationLog = (*Orders)(nil)
)

const schema = `
CREATE TABLE IF NOT EXISTS catalog (
	id                TEXT PRIMARY KEY,
	sku               TEXT NOT NULL DEFAULT '',
	name              TEXT NOT NULL,
	type              TEXT NOT NULL,
	price             TEXT NOT NULL,
	stock             INTEGER NOT NULL,
	reorder_threshold INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS orders (
	id            TEXT PRIMARY KEY,
	invoice_id    TEXT NOT NULL DEFAULT '',
	customer_name TEXT NOT NULL,
	phone         TEXT NOT NULL DEFAULT '',
	stage_index   INTEGER NOT NULL,
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS notifications (
	id                  TEXT PRIMARY KEY,
	order_id            TEXT NOT NULL DEFAULT '',
	recipient           TEXT NOT NULL,
	body                TEXT NOT NULL,
	provider            TEXT NOT NULL,
	provider_message_id TEXT NOT NULL DEFAULT '',
	status              TEXT NOT NULL,
	error               TEXT NOT NULL DEFAULT '',
	created_at          INTEGER NOT NULL,
	updated_at          INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS notifications_provider_message_id ON notifications(provider_message_id);
`

// Open creates the database file (and its directory) if needed and applies
// the schema.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "eyecare.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows one writer; a single connection keeps Advance serialized.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, Catalog: &Catalog{db: db}, Orders: &Orders{db: db}}, nil
}

func (s *Store) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

// ---- catalog ----

const selectEntry = `SELECT id, sku, name, type, price, stock, reorder_threshold FROM catalog`

func scanEntry(row scanner) (catalog.Entry, error) {
	var (
		e     catalog.Entry
		typ   string
		price string
	)
	if err := row.Scan(&e.ID, &e.SKU, &e.Name, &typ, &price, &e.Stock, &e.ReorderThreshold); err != nil {
		return catalog.Entry{}, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return catalog.Entry{}, fmt.Errorf("price of %s: %w", e.ID, err)
	}
	e.Type = catalog.Type(typ)
	e.Price = p
	return e, nil
}

func (s *Catalog) FetchAll(ctx context.Context) ([]catalog.Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectEntry+` ORDER BY type, id`)
	if err != nil {
		return nil, fmt.Errorf("select catalog: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]catalog.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Catalog) Get(ctx context.Context, id string) (catalog.Entry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, selectEntry+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Entry{}, fmt.Errorf("%w: %s", catalog.ErrNotFound, id)
	}
	return e, err
}

func (s *Catalog) Create(ctx context.Context, e catalog.Entry) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO catalog(id, sku, name, type, price, stock, reorder_threshold)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SKU, e.Name, string(e.Type), e.Price.String(), e.Stock, e.ReorderThreshold)
	if err != nil {
		return fmt.Errorf("insert catalog: %w", err)
	}
	return expectOne(res, fmt.Errorf("%w: %s", catalog.ErrExists, e.ID))
}

func (s *Catalog) Update(ctx context.Context, e catalog.Entry) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE catalog SET sku = ?, name = ?, type = ?, price = ?, stock = ?, reorder_threshold = ?
		WHERE id = ?`,
		e.SKU, e.Name, string(e.Type), e.Price.String(), e.Stock, e.ReorderThreshold, e.ID)
	if err != nil {
		return fmt.Errorf("update catalog: %w", err)
	}
	return expectOne(res, fmt.Errorf("%w: %s", catalog.ErrNotFound, e.ID))
}

func (s *Catalog) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM catalog WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete catalog: %w", err)
	}
	return expectOne(res, fmt.Errorf("%w: %s", catalog.ErrNotFound, id))
}

// ---- orders ----

const selectOrder = `SELECT id, invoice_id, customer_name, phone, stage_index, created_at, updated_at FROM orders`

func scanOrder(row scanner) (orders.Order, error) {
	var (
		o                orders.Order
		created, updated int64
	)
	if err := row.Scan(&o.ID, &o.InvoiceID, &o.CustomerName, &o.Phone, &o.StageIndex, &created, &updated); err != nil {
		return orders.Order{}, err
	}
	o.CreatedAt = time.Unix(0, created).UTC()
	o.UpdatedAt = time.Unix(0, updated).UTC()
	return o, nil
}

func (s *Orders) Stage(ctx context.Context, id string) (int, error) {
	var idx int
	err := s.db.QueryRowContext(ctx, `SELECT stage_index FROM orders WHERE id = ?`, id).Scan(&idx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", orders.ErrNotFound, id)
	}
	return idx, err
}

func (s *Orders) Get(ctx context.Context, id string) (orders.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, selectOrder+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return orders.Order{}, fmt.Errorf("%w: %s", orders.ErrNotFound, id)
	}
	return o, err
}

func (s *Orders) Create(ctx context.Context, o orders.Order) error {
	now := time.Now().UTC().UnixNano()
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO orders(id, invoice_id, customer_name, phone, stage_index, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.InvoiceID, o.CustomerName, o.Phone, o.StageIndex, now, now)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return expectOne(res, fmt.Errorf("%w: %s", orders.ErrExists, o.ID))
}

func (s *Orders) Advance(ctx context.Context, id string) (orders.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return orders.Order{}, err
	}
	defer func() { _ = tx.Rollback() }()

	o, err := scanOrder(tx.QueryRowContext(ctx, selectOrder+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return orders.Order{}, fmt.Errorf("%w: %s", orders.ErrNotFound, id)
	}
	if err != nil {
		return orders.Order{}, err
	}
	next := o.StageIndex + 1
	if !tracking.CanAdvance(o.StageIndex, next) {
		return orders.Order{}, fmt.Errorf("%w: %s is at its last stage", orders.ErrInvalidTransition, id)
	}
	o.StageIndex = next
	o.UpdatedAt = time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE orders SET stage_index = ?, updated_at = ? WHERE id = ?`,
		o.StageIndex, o.UpdatedAt.UnixNano(), id); err != nil {
		return orders.Order{}, fmt.Errorf("update order: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return orders.Order{}, err
	}
	return o, nil
}

// ---- notifications ----

func (s *Orders) Record(ctx context.Context, msg notify.Message) error {
	at := msg.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications(id, order_id, recipient, body, provider, provider_message_id, status, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.OrderID, msg.Recipient, msg.Body, msg.Provider, msg.ProviderMessageID,
		string(msg.Status), msg.Error, at.UnixNano(), at.UnixNano())
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *Orders) UpdateStatus(ctx context.Context, providerMessageID string, status notify.Status, errText string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET status = ?, error = ?, updated_at = ?
		WHERE provider_message_id = ? AND provider_message_id != ''`,
		string(status), errText, time.Now().UTC().UnixNano(), providerMessageID)
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: notification %s", orders.ErrNotFound, providerMessageID)
	}
	return nil
}

// Notifications lists what was recorded for one order, oldest first.
func (s *Orders) Notifications(ctx context.Context, orderID string) ([]notify.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, recipient, body, provider, provider_message_id, status, error, created_at
		FROM notifications WHERE order_id = ? ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]notify.Message, 0)
	for rows.Next() {
		var (
			m       notify.Message
			status  string
			created int64
		)
		if err := rows.Scan(&m.ID, &m.OrderID, &m.Recipient, &m.Body, &m.Provider,
			&m.ProviderMessageID, &status, &m.Error, &created); err != nil {
			return nil, err
		}
		m.Status = notify.Status(status)
		m.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

func expectOne(res sql.Result, zero error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return zero
	}
	return nil
}
