package notify

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NullSender accepts everything and sends nothing. It backs demos that have
// no provider credentials.
type NullSender struct {
	Logger *zap.Logger
}

func (NullSender) Name() string { return "null" }

func (s NullSender) Send(_ context.Context, recipient, body string) (Receipt, error) {
	if s.Logger != nil {
		s.Logger.Info("notification not sent (no provider configured)",
			zap.String("recipient", recipient), zap.Int("body_len", len(body)))
	}
	return Receipt{ProviderMessageID: "null-" + uuid.NewString(), Status: StatusSent}, nil
}
