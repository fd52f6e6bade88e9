// Package inventory stores the catalog in Postgres.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lathitha/eyecare-orders/internal/catalog"
)

type Repo struct{ DB *pgxpool.Pool }

var _ catalog.Store = (*Repo)(nil)

const selectEntry = `SELECT id, sku, name, type, price::text, stock, reorder_threshold FROM catalog`

func scanEntry(row pgx.Row) (catalog.Entry, error) {
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

func (r *Repo) FetchAll(ctx context.Context) ([]catalog.Entry, error) {
	rows, err := r.DB.Query(ctx, selectEntry+` ORDER BY type, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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

func (r *Repo) Get(ctx context.Context, id string) (catalog.Entry, error) {
	e, err := scanEntry(r.DB.QueryRow(ctx, selectEntry+` WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Entry{}, fmt.Errorf("%w: %s", catalog.ErrNotFound, id)
	}
	return e, err
}

func (r *Repo) Create(ctx context.Context, e catalog.Entry) error {
	ct, err := r.DB.Exec(ctx, `
		INSERT INTO catalog(id, sku, name, type, price, stock, reorder_threshold)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, e.SKU, e.Name, string(e.Type), e.Price.String(), e.Stock, e.ReorderThreshold)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", catalog.ErrExists, e.ID)
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, e catalog.Entry) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE catalog SET sku=$2, name=$3, type=$4, price=$5::numeric, stock=$6, reorder_threshold=$7
		WHERE id=$1`,
		e.ID, e.SKU, e.Name, string(e.Type), e.Price.String(), e.Stock, e.ReorderThreshold)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", catalog.ErrNotFound, e.ID)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM catalog WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", catalog.ErrNotFound, id)
	}
	return nil
}
