package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lathitha/eyecare-orders/internal/catalog"
	"github.com/lathitha/eyecare-orders/internal/invoice"
	"github.com/lathitha/eyecare-orders/internal/metrics"
	"github.com/lathitha/eyecare-orders/internal/notify"
	"github.com/lathitha/eyecare-orders/internal/orders"
	"github.com/lathitha/eyecare-orders/internal/redisx"
)

// Archiver keeps issued invoices. *archive.Store implements it.
type Archiver interface {
	Put(ctx context.Context, inv invoice.Invoice) error
	Get(ctx context.Context, invoiceID string) (invoice.Invoice, error)
}

// IdempotencyStore backs the Idempotency-Key header on invoice creation.
// redisx.Idempotency implements it.
type IdempotencyStore interface {
	Claim(ctx context.Context, key string) (stored []byte, first bool, err error)
	Complete(ctx context.Context, key string, response []byte) error
	Release(ctx context.Context, key string) error
}

type InvoicesHandler struct {
	Generator       *invoice.Generator
	Catalog         catalog.Source
	Orders          orders.Registry
	Archive         Archiver         // nil disables archiving
	Events          orders.Publisher // nil disables events
	Idempotency     IdempotencyStore // nil ignores Idempotency-Key
	TaxRate         decimal.Decimal
	TrackingBaseURL string
	Service         string
	Logger          *zap.Logger
	Metrics         *metrics.Metrics
}

type draftReq struct {
	Patient  invoice.Patient    `json:"patient"`
	Phone    string             `json:"phone"`
	Items    []invoice.LineItem `json:"items"`
	Discount any                `json:"discount"`
}

type quoteResp struct {
	invoice.Totals
	TaxRate decimal.Decimal `json:"taxRate"`
}

type createInvoiceResp struct {
	Invoice     invoice.Invoice `json:"invoice"`
	OrderID     string          `json:"orderId"`
	TrackingURL string          `json:"trackingUrl"`
	ShareURL    string          `json:"shareUrl"`
	Archived    bool            `json:"archived"`
	Idempotent  bool            `json:"idempotent"`
}

type quickAddReq struct {
	CatalogID string `json:"catalogId"`
}

func (h *InvoicesHandler) Register(r chi.Router) {
	r.Post("/api/invoices/quote", h.quote)
	r.Post("/api/invoices/lines", h.quickAdd)
	r.Post("/api/invoices", h.create)
	r.Get("/api/invoices/{id}", h.get)
}

func (h *InvoicesHandler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// discount coerces the client's value and clamps it at zero.
func discount(v any) decimal.Decimal {
	d := invoice.Coerce(v)
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func (h *InvoicesHandler) quote(w http.ResponseWriter, r *http.Request) {
	var req draftReq
	if !decodeJSON(w, r, &req) {
		return
	}
	t := invoice.Quote(req.Items, discount(req.Discount), h.TaxRate)
	writeJSON(w, http.StatusOK, quoteResp{Totals: t, TaxRate: h.TaxRate})
}

func (h *InvoicesHandler) quickAdd(w http.ResponseWriter, r *http.Request) {
	var req quickAddReq
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	entries, err := catalog.Load(ctx, h.Catalog)
	if err != nil {
		writeError(w, err)
		return
	}
	e, err := catalog.FindByID(entries, strings.TrimSpace(req.CatalogID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invoice.LineFromCatalog(e))
}

func (h *InvoicesHandler) create(w http.ResponseWriter, r *http.Request) {
	var req draftReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Patient.Name) == "" || len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "patient name and at least one item are required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	claimed := false
	if idemKey != "" && h.Idempotency != nil {
		stored, first, err := h.Idempotency.Claim(ctx, idemKey)
		switch {
		case errors.Is(err, redisx.ErrInFlight):
			writeError(w, err)
			return
		case err != nil:
			h.logger().Warn("idempotency unavailable, creating anyway", zap.String("idempotency_key", idemKey), zap.Error(err))
		case !first:
			var prev createInvoiceResp
			if err := json.Unmarshal(stored, &prev); err != nil {
				writeError(w, fmt.Errorf("stored response for idempotency key: %w", err))
				return
			}
			prev.Idempotent = true
			writeJSON(w, http.StatusOK, prev)
			return
		default:
			claimed = true
		}
	}

	inv := h.Generator.Generate(req.Patient, req.Items, discount(req.Discount), h.TaxRate)
	h.Metrics.InvoiceGenerated()
	log := h.logger().With(zap.String("invoice_id", inv.ID))

	o := orders.Order{
		ID:           invoice.OrderID(inv.ID),
		InvoiceID:    inv.ID,
		CustomerName: strings.TrimSpace(req.Patient.Name),
		Phone:        strings.TrimSpace(req.Phone),
	}
	if err := h.Orders.Create(ctx, o); err != nil && !errors.Is(err, orders.ErrExists) {
		log.Error("register order", zap.Error(err))
		if claimed {
			if err := h.Idempotency.Release(ctx, idemKey); err != nil {
				log.Warn("release idempotency key", zap.Error(err))
			}
		}
		writeError(w, err)
		return
	}

	archived := false
	if h.Archive != nil {
		if err := h.Archive.Put(ctx, inv); err != nil {
			log.Warn("archive invoice", zap.Error(err))
		} else {
			archived = true
		}
	}

	env, err := orders.StageEvent(orders.EventOrderRegistered, h.Service, middleware.GetReqID(r.Context()), o)
	if err == nil {
		err = orders.PublishEvent(h.Events, env)
	}
	if err != nil {
		log.Warn("publish order registered", zap.Error(err))
	}

	trackingURL := notify.TrackingURL(h.TrackingBaseURL, o.ID)
	resp := createInvoiceResp{
		Invoice:     inv,
		OrderID:     o.ID,
		TrackingURL: trackingURL,
		ShareURL:    notify.ShareLink(trackingURL),
		Archived:    archived,
	}
	if claimed {
		b, err := json.Marshal(resp)
		if err == nil {
			err = h.Idempotency.Complete(ctx, idemKey, b)
		}
		if err != nil {
			log.Warn("store idempotent response", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *InvoicesHandler) get(w http.ResponseWriter, r *http.Request) {
	if h.Archive == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "invoice archive is not configured"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	inv, err := h.Archive.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}
