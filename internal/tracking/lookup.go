package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lathitha/eyecare-orders/internal/failure"
)

const (
	MsgMissingInput = "Please enter an Order ID from your receipt."
	MsgNotFound     = "Order not found. Check your Order ID or contact the store for help."
)

var (
	ErrMissingInput = errors.New("order id is required")
	ErrNotFound     = errors.New("order not found")
)

// Registry resolves a normalized order id to its stage index. Unknown ids
// must yield an error wrapping ErrNotFound.
type Registry interface {
	Stage(ctx context.Context, orderID string) (int, error)
}

// MapRegistry is a fixed registry keyed by normalized order id.
type MapRegistry map[string]int

func (m MapRegistry) Stage(_ context.Context, orderID string) (int, error) {
	idx, ok := m[orderID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, orderID)
	}
	return idx, nil
}

type Progress struct {
	OrderID    string `json:"orderId"`
	StageIndex int    `json:"stageIndex"`
}

func Normalize(orderID string) string {
	return strings.ToUpper(strings.TrimSpace(orderID))
}

// Lookup normalizes orderID and asks the registry where the order is.
// Blank input and unknown orders come back as ErrMissingInput and ErrNotFound;
// registry trouble comes back as an external failure.
func Lookup(ctx context.Context, orderID string, reg Registry) (Progress, error) {
	id := Normalize(orderID)
	if id == "" {
		return Progress{}, ErrMissingInput
	}
	idx, err := reg.Stage(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		return Progress{OrderID: id}, fmt.Errorf("%w: %s", ErrNotFound, id)
	case err != nil:
		return Progress{OrderID: id}, failure.External("order registry lookup", err)
	case idx < 0 || idx >= StageCount:
		return Progress{OrderID: id}, failure.External("order registry lookup",
			fmt.Errorf("stage index %d out of range for %s", idx, id))
	}
	return Progress{OrderID: id, StageIndex: idx}, nil
}

// Message is the user-facing text for a lookup error, or "" when the error
// is not one the user can fix.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrMissingInput):
		return MsgMissingInput
	case errors.Is(err, ErrNotFound):
		return MsgNotFound
	}
	return ""
}
