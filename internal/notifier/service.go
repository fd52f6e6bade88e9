// Package notifier turns order stage events into WhatsApp status messages.
package notifier

import (
	"context"
	"encoding/json"
	"errors"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/lathitha/eyecare-orders/internal/metrics"
	"github.com/lathitha/eyecare-orders/internal/notify"
	"github.com/lathitha/eyecare-orders/internal/orders"
	"github.com/lathitha/eyecare-orders/internal/redisx"
	"github.com/lathitha/eyecare-orders/internal/tracking"
)

type Service struct {
	Log             orders.NotificationLog
	Sender          notify.Sender
	Dedup           *redisx.Dedup    // nil disables dedup
	Status          orders.Publisher // nil disables status events
	TrackingBaseURL string
	ServiceName     string
	Logger          *zap.Logger
	Metrics         *metrics.Metrics
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// HandleMessage is installed as the consumer handler. It only returns an
// error when ctx ends before the send, leaving the message uncommitted; a
// failed send is logged and recorded, never retried.
func (s *Service) HandleMessage(ctx context.Context, m kafkago.Message) error {
	log := s.logger()

	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		log.Error("undecodable event skipped", zap.Int64("offset", m.Offset), zap.Error(err))
		s.Metrics.Event("unknown", "malformed")
		return nil
	}
	if env.EventType != orders.EventOrderRegistered && env.EventType != orders.EventStageAdvanced {
		return nil
	}
	log = log.With(zap.String("event_id", env.EventID), zap.String("event_type", env.EventType),
		zap.String("order_id", env.CorrelationID), zap.String("trace_id", env.TraceID))

	if s.Dedup != nil {
		first, err := s.Dedup.First(ctx, env.EventID)
		if err != nil {
			log.Warn("dedup unavailable, processing anyway", zap.Error(err))
		}
		if !first {
			s.Metrics.Event(env.EventType, "duplicate")
			return nil
		}
	}

	var p orders.StagePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		log.Error("undecodable payload skipped", zap.Error(err))
		s.Metrics.Event(env.EventType, "malformed")
		return nil
	}
	if p.Phone == "" {
		s.Metrics.Event(env.EventType, "no_recipient")
		return nil
	}
	stage := tracking.StageName(tracking.Customer, p.StageIndex)
	if stage == "" {
		log.Error("stage out of range", zap.Int("stage_index", p.StageIndex))
		s.Metrics.Event(env.EventType, "malformed")
		return nil
	}

	if err := ctx.Err(); err != nil {
		// stopping before the send: leave the event for redelivery
		if s.Dedup != nil {
			if ferr := s.Dedup.Forget(context.WithoutCancel(ctx), env.EventID); ferr != nil {
				log.Warn("dedup forget failed", zap.Error(ferr))
			}
		}
		s.Metrics.Event(env.EventType, "deferred")
		return err
	}

	_, err := s.Notify(ctx, p.OrderID, p.Phone, p.CustomerName, stage, env.TraceID)
	switch {
	case err == nil:
		s.Metrics.Event(env.EventType, "sent")
	case errors.Is(err, errNotRecorded):
		s.Metrics.Event(env.EventType, "not_recorded")
	default:
		log.Warn("notification failed", zap.Error(err))
		s.Metrics.Event(env.EventType, "send_failed")
	}
	return nil
}

var errNotRecorded = errors.New("notification sent but not recorded")

// Notify composes, sends and records one status message, then announces
// the outcome.
func (s *Service) Notify(ctx context.Context, orderID, phone, customerName, stage, traceID string) (notify.Message, error) {
	log := s.logger()

	body := notify.Compose(stage, orderID, customerName, s.TrackingBaseURL)
	msg, sendErr := notify.Dispatch(ctx, s.Sender, notify.NewMessage(orderID, phone, body))
	s.Metrics.Notification(msg.Provider, string(msg.Status))

	var recErr error
	if err := s.Log.Record(ctx, msg); err != nil {
		log.Error("record notification", zap.String("notification_id", msg.ID), zap.Error(err))
		recErr = errNotRecorded
	}

	env, err := orders.NewEnvelope(orders.EventNotificationStatus, s.ServiceName, orderID, traceID,
		orders.NotificationStatusPayload{
			NotificationID:    msg.ID,
			OrderID:           orderID,
			Provider:          msg.Provider,
			ProviderMessageID: msg.ProviderMessageID,
			Status:            string(msg.Status),
			Error:             msg.Error,
		})
	if err == nil {
		err = orders.PublishEvent(s.Status, env)
	}
	if err != nil {
		log.Warn("publish notification status", zap.Error(err))
	}

	if sendErr != nil {
		return msg, sendErr
	}
	return msg, recErr
}
