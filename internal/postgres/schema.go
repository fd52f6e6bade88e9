package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS catalog (
	id                TEXT PRIMARY KEY,
	sku               TEXT NOT NULL DEFAULT '',
	name              TEXT NOT NULL,
	type              TEXT NOT NULL CHECK (type IN ('frame', 'lens')),
	price             NUMERIC(12,2) NOT NULL CHECK (price >= 0),
	stock             INTEGER NOT NULL CHECK (stock >= 0),
	reorder_threshold INTEGER NOT NULL DEFAULT 5 CHECK (reorder_threshold >= 0)
);

CREATE TABLE IF NOT EXISTS orders (
	id            TEXT PRIMARY KEY,
	invoice_id    TEXT NOT NULL DEFAULT '',
	customer_name TEXT NOT NULL DEFAULT '',
	phone         TEXT NOT NULL DEFAULT '',
	stage_index   INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS notifications (
	id                  TEXT PRIMARY KEY,
	order_id            TEXT NOT NULL DEFAULT '',
	recipient           TEXT NOT NULL,
	body                TEXT NOT NULL,
	provider            TEXT NOT NULL DEFAULT '',
	provider_message_id TEXT NOT NULL DEFAULT '',
	status              TEXT NOT NULL,
	error               TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS notifications_provider_message_id_idx ON notifications (provider_message_id);
`

// Migrate creates the tables the API and notifier need.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
