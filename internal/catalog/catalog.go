// Package catalog models the frames and lenses the store sells and answers
// the two questions the rest of the system asks about them: what is this id,
// and is it running low.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lathitha/eyecare-orders/internal/failure"
)

type Type string

const (
	TypeFrame Type = "frame"
	TypeLens  Type = "lens"
)

// MaxPrice is the largest price an entry may carry.
var MaxPrice = decimal.New(1, 12)

// DefaultReorderThreshold applies when an entry is created without one.
const DefaultReorderThreshold = 5

var (
	ErrNotFound     = errors.New("catalog entry not found")
	ErrExists       = errors.New("catalog entry already exists")
	ErrInvalidInput = errors.New("invalid catalog entry")
)

type Entry struct {
	ID               string          `json:"id"`
	SKU              string          `json:"sku"`
	Name             string          `json:"name"`
	Type             Type            `json:"type"`
	Price            decimal.Decimal `json:"price"`
	Stock            int             `json:"stock"`
	ReorderThreshold int             `json:"reorderThreshold"`
}

// Source yields the full catalog snapshot.
type Source interface {
	FetchAll(ctx context.Context) ([]Entry, error)
}

// Store is a Source that can also be edited.
type Store interface {
	Source
	Get(ctx context.Context, id string) (Entry, error)
	Create(ctx context.Context, e Entry) error
	Update(ctx context.Context, e Entry) error
	Delete(ctx context.Context, id string) error
}

// FindByID returns the entry whose id matches exactly.
func FindByID(entries []Entry, id string) (Entry, error) {
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Load fetches the catalog. A failing source yields an empty catalog together
// with an external failure, so callers can keep going without entries.
func Load(ctx context.Context, src Source) ([]Entry, error) {
	entries, err := src.FetchAll(ctx)
	if err != nil {
		return []Entry{}, failure.External("fetch catalog", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// Validate checks an entry before it is stored.
func Validate(e Entry) error {
	switch {
	case strings.TrimSpace(e.ID) == "":
		return fmt.Errorf("%w: id is required", ErrInvalidInput)
	case strings.TrimSpace(e.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case e.Type != TypeFrame && e.Type != TypeLens:
		return fmt.Errorf("%w: type must be %q or %q", ErrInvalidInput, TypeFrame, TypeLens)
	case e.Price.IsNegative():
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
	case e.Price.Exponent() > 12 || e.Price.Exponent() < -12 || e.Price.GreaterThan(MaxPrice):
		return fmt.Errorf("%w: price out of range", ErrInvalidInput)
	case e.Stock < 0:
		return fmt.Errorf("%w: stock cannot be negative", ErrInvalidInput)
	case e.ReorderThreshold < 0:
		return fmt.Errorf("%w: reorder threshold cannot be negative", ErrInvalidInput)
	}
	return nil
}
