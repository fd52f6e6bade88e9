package orders

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderRegistered    = "OrderRegistered"
	EventStageAdvanced      = "StageAdvanced"
	EventNotificationStatus = "NotificationStatus"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

// StagePayload is carried by OrderRegistered (stage 0) and StageAdvanced.
type StagePayload struct {
	OrderID      string `json:"order_id"`
	StageIndex   int    `json:"stage_index"`
	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone,omitempty"`
}

type NotificationStatusPayload struct {
	NotificationID    string `json:"notification_id"`
	OrderID           string `json:"order_id"`
	Provider          string `json:"provider"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`
	Status            string `json:"status"`
	Error             string `json:"error,omitempty"`
}

// NewEnvelope wraps payload in a version 1 envelope correlated by order id.
func NewEnvelope(eventType, producer, orderID, traceID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: orderID,
		Payload:       raw,
	}, nil
}

// StageEvent builds the event announcing where an order now stands.
func StageEvent(eventType, producer, traceID string, o Order) (Envelope, error) {
	return NewEnvelope(eventType, producer, o.ID, traceID, StagePayload{
		OrderID:      o.ID,
		StageIndex:   o.StageIndex,
		CustomerName: o.CustomerName,
		Phone:        o.Phone,
	})
}
