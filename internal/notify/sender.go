package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lathitha/eyecare-orders/internal/failure"
)

type Status string

const (
	StatusQueued Status = "queued"
	StatusSent   Status = "sent"
	StatusError  Status = "error"
)

var (
	ErrSend          = errors.New("send notification")
	ErrInvalidStatus = errors.New("invalid notification status")
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusQueued, StatusSent, StatusError:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Receipt is what a provider hands back for an accepted message.
type Receipt struct {
	ProviderMessageID string
	Status            Status
}

// Sender delivers one message to one recipient.
type Sender interface {
	Name() string
	Send(ctx context.Context, recipient, body string) (Receipt, error)
}

type Message struct {
	ID                string    `json:"id"`
	OrderID           string    `json:"orderId,omitempty"`
	Recipient         string    `json:"recipient"`
	Body              string    `json:"body"`
	Provider          string    `json:"provider"`
	ProviderMessageID string    `json:"providerMessageId,omitempty"`
	Status            Status    `json:"status"`
	Error             string    `json:"error,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// NewMessage starts a message that has not been handed to any provider yet.
func NewMessage(orderID, recipient, body string) Message {
	return Message{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Recipient: recipient,
		Body:      body,
		Status:    StatusQueued,
		CreatedAt: time.Now().UTC(),
	}
}

// Dispatch sends msg exactly once and records the outcome on the returned
// copy. A failed send yields a message in StatusError plus an external
// failure; it is not retried.
func Dispatch(ctx context.Context, s Sender, msg Message) (Message, error) {
	msg.Provider = s.Name()
	rcpt, err := s.Send(ctx, msg.Recipient, msg.Body)
	if err != nil {
		msg.Status = StatusError
		msg.Error = err.Error()
		return msg, failure.External("send notification", err)
	}
	msg.ProviderMessageID = rcpt.ProviderMessageID
	msg.Status = rcpt.Status
	if msg.Status == "" {
		msg.Status = StatusQueued
	}
	return msg, nil
}

// providerStatus folds provider-specific delivery states into ours.
func providerStatus(s string) Status {
	switch strings.ToLower(s) {
	case "sent", "delivered", "read":
		return StatusSent
	case "failed", "undelivered", "canceled":
		return StatusError
	default:
		return StatusQueued
	}
}
