package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lathitha/eyecare-orders/internal/metrics"
	"github.com/lathitha/eyecare-orders/internal/notify"
	"github.com/lathitha/eyecare-orders/internal/orders"
	"github.com/lathitha/eyecare-orders/internal/tracking"
)

type NotificationsHandler struct {
	Sender          notify.Sender
	Log             orders.NotificationLog
	Events          orders.Publisher // nil disables events
	TrackingBaseURL string
	Service         string
	Logger          *zap.Logger
	Metrics         *metrics.Metrics
}

type previewReq struct {
	Stage        string `json:"stage"`
	OrderID      string `json:"orderId"`
	CustomerName string `json:"customerName"`
}

type sendReq struct {
	To      string `json:"to"`
	Body    string `json:"body"`
	OrderID string `json:"orderId"`
}

type sendResp struct {
	ID                string        `json:"id"`
	Provider          string        `json:"provider"`
	ProviderMessageID string        `json:"providerMessageId,omitempty"`
	Status            notify.Status `json:"status"`
	Error             string        `json:"error,omitempty"`
}

type statusReq struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (h *NotificationsHandler) Register(r chi.Router) {
	r.Post("/api/notifications/preview", h.preview)
	r.Post("/api/notifications/send", h.send)
	r.Post("/api/notifications/{providerId}/status", h.updateStatus)
	r.Get("/api/orders/{id}/notifications", h.listForOrder)
}

func (h *NotificationsHandler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

func (h *NotificationsHandler) preview(w http.ResponseWriter, r *http.Request) {
	var req previewReq
	if !decodeJSON(w, r, &req) {
		return
	}
	id := tracking.Normalize(req.OrderID)
	if strings.TrimSpace(req.Stage) == "" || id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "stage and orderId are required"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"body": notify.Compose(req.Stage, id, req.CustomerName, h.TrackingBaseURL),
	})
}

// send delivers a free-form message once. The outcome is logged either way;
// a provider failure answers 502 with the provider's error text.
func (h *NotificationsHandler) send(w http.ResponseWriter, r *http.Request) {
	var req sendReq
	if !decodeJSON(w, r, &req) {
		return
	}
	to, body := strings.TrimSpace(req.To), strings.TrimSpace(req.Body)
	if to == "" || body == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "to and body are required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	orderID := tracking.Normalize(req.OrderID)
	msg, sendErr := notify.Dispatch(ctx, h.Sender, notify.NewMessage(orderID, to, body))
	h.Metrics.Notification(msg.Provider, string(msg.Status))
	log := h.logger().With(zap.String("notification_id", msg.ID), zap.String("provider", msg.Provider))

	if err := h.Log.Record(ctx, msg); err != nil {
		log.Error("record notification", zap.Error(err))
	}
	h.publishStatus(r, msg, log)

	resp := sendResp{
		ID:                msg.ID,
		Provider:          msg.Provider,
		ProviderMessageID: msg.ProviderMessageID,
		Status:            msg.Status,
		Error:             msg.Error,
	}
	if sendErr != nil {
		log.Warn("send notification", zap.Error(sendErr))
		writeJSON(w, http.StatusBadGateway, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *NotificationsHandler) publishStatus(r *http.Request, msg notify.Message, log *zap.Logger) {
	env, err := orders.NewEnvelope(orders.EventNotificationStatus, h.Service, msg.OrderID,
		middleware.GetReqID(r.Context()), orders.NotificationStatusPayload{
			NotificationID:    msg.ID,
			OrderID:           msg.OrderID,
			Provider:          msg.Provider,
			ProviderMessageID: msg.ProviderMessageID,
			Status:            string(msg.Status),
			Error:             msg.Error,
		})
	if err == nil {
		err = orders.PublishEvent(h.Events, env)
	}
	if err != nil {
		log.Warn("publish notification status", zap.Error(err))
	}
}

// updateStatus takes delivery reports keyed by the provider's message id.
func (h *NotificationsHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := notify.ParseStatus(req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	id := chi.URLParam(r, "providerId")
	if err := h.Log.UpdateStatus(ctx, id, st, strings.TrimSpace(req.Error)); err != nil {
		writeError(w, err)
		return
	}
	h.Metrics.Notification("delivery_report", string(st))
	writeJSON(w, http.StatusOK, map[string]string{"providerMessageId": id, "status": string(st)})
}

func (h *NotificationsHandler) listForOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Log.Notifications(ctx, tracking.Normalize(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
