package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lathitha/eyecare-orders/internal/metrics"
	"github.com/lathitha/eyecare-orders/internal/orders"
	"github.com/lathitha/eyecare-orders/internal/tracking"
)

type TrackingHandler struct {
	Orders  orders.Registry
	Events  orders.Publisher // nil disables events
	Service string
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

type trackResp struct {
	OrderID    string          `json:"orderId"`
	Audience   string          `json:"audience"`
	StageIndex int             `json:"stageIndex"`
	Stage      string          `json:"stage"`
	Steps      []tracking.Step `json:"steps"`
	Ready      bool            `json:"ready"`
}

type orderResp struct {
	orders.Order
	Stage string `json:"stage"`
}

func (h *TrackingHandler) Register(r chi.Router) {
	r.Get("/api/track", h.track)
	r.Get("/api/orders/{id}", h.getOrder)
	r.Post("/api/orders/{id}/advance", h.advance)
}

func lookupResult(err error) string {
	switch {
	case err == nil:
		return "found"
	case errors.Is(err, tracking.ErrMissingInput):
		return "missing_input"
	case errors.Is(err, tracking.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// track answers the customer (or staff) tracking page. Missing and unknown
// ids come back with the message the page shows as-is.
func (h *TrackingHandler) track(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	audience := tracking.ParseAudience(r.URL.Query().Get("audience"))
	p, err := tracking.Lookup(ctx, r.URL.Query().Get("order"), h.Orders)
	h.Metrics.TrackingLookup(lookupResult(err))
	if err != nil {
		if msg := tracking.Message(err); msg != "" {
			writeJSON(w, statusFor(err), map[string]string{"error": err.Error(), "message": msg})
			return
		}
		if h.Logger != nil {
			h.Logger.Error("tracking lookup", zap.String("order_id", p.OrderID), zap.Error(err))
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, trackResp{
		OrderID:    p.OrderID,
		Audience:   string(audience),
		StageIndex: p.StageIndex,
		Stage:      tracking.StageName(audience, p.StageIndex),
		Steps:      tracking.Timeline(audience, p.StageIndex),
		Ready:      tracking.IsTerminal(p.StageIndex),
	})
}

func (h *TrackingHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.Get(ctx, tracking.Normalize(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResp{Order: o, Stage: tracking.StageName(tracking.Staff, o.StageIndex)})
}

// advance is the staff action that moves an order to its next stage.
func (h *TrackingHandler) advance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Orders.Advance(ctx, tracking.Normalize(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}

	env, err := orders.StageEvent(orders.EventStageAdvanced, h.Service, middleware.GetReqID(r.Context()), o)
	if err == nil {
		err = orders.PublishEvent(h.Events, env)
	}
	if err != nil && h.Logger != nil {
		h.Logger.Warn("publish stage advanced", zap.String("order_id", o.ID), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, orderResp{Order: o, Stage: tracking.StageName(tracking.Staff, o.StageIndex)})
}
