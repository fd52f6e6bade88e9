package orders

import (
	"context"
	"errors"

	"github.com/lathitha/eyecare-orders/internal/notify"
	"github.com/lathitha/eyecare-orders/internal/tracking"
)

var (
	// ErrNotFound is shared with tracking so registry misses surface as
	// "order not found" to customers.
	ErrNotFound          = tracking.ErrNotFound
	ErrExists            = errors.New("order already exists")
	ErrInvalidTransition = errors.New("invalid stage transition")
)

// Registry stores orders keyed by normalized id.
type Registry interface {
	tracking.Registry
	Get(ctx context.Context, id string) (Order, error)
	Create(ctx context.Context, o Order) error
	// Advance moves the order one stage forward and returns the updated record.
	Advance(ctx context.Context, id string) (Order, error)
}

// NotificationLog keeps every message handed to a provider.
type NotificationLog interface {
	Record(ctx context.Context, msg notify.Message) error
	UpdateStatus(ctx context.Context, providerMessageID string, status notify.Status, errText string) error
	Notifications(ctx context.Context, orderID string) ([]notify.Message, error)
}
