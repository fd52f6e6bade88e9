package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lathitha/eyecare-orders/internal/catalog"
	"github.com/lathitha/eyecare-orders/internal/metrics"
)

type InventoryHandler struct {
	Store            catalog.Store
	ReorderThreshold int
	Logger           *zap.Logger
	Metrics          *metrics.Metrics
}

// entryReq leaves reorderThreshold nil when the client did not send it, so
// an explicit 0 is kept.
type entryReq struct {
	ID               string          `json:"id"`
	SKU              string          `json:"sku"`
	Name             string          `json:"name"`
	Type             catalog.Type    `json:"type"`
	Price            decimal.Decimal `json:"price"`
	Stock            int             `json:"stock"`
	ReorderThreshold *int            `json:"reorderThreshold"`
}

func (req entryReq) entry(defaultThreshold int) catalog.Entry {
	e := catalog.Entry{
		ID:               strings.TrimSpace(req.ID),
		SKU:              strings.TrimSpace(req.SKU),
		Name:             strings.TrimSpace(req.Name),
		Type:             catalog.Type(strings.ToLower(string(req.Type))),
		Price:            req.Price,
		Stock:            req.Stock,
		ReorderThreshold: defaultThreshold,
	}
	if req.ReorderThreshold != nil {
		e.ReorderThreshold = *req.ReorderThreshold
	}
	return e
}

type lowStockResp struct {
	Count int             `json:"count"`
	Items []catalog.Entry `json:"items"`
}

func (h *InventoryHandler) Register(r chi.Router) {
	r.Route("/api/inventory", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/low-stock", h.lowStock)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

func (h *InventoryHandler) threshold() int {
	if h.ReorderThreshold <= 0 {
		return catalog.DefaultReorderThreshold
	}
	return h.ReorderThreshold
}

func (h *InventoryHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	entries, err := catalog.Load(ctx, h.Store)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *InventoryHandler) lowStock(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	entries, err := catalog.Load(ctx, h.Store)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("low stock check on empty catalog", zap.Error(err))
		}
		writeError(w, err)
		return
	}
	low := catalog.LowStock(entries)
	h.Metrics.SetLowStock(len(low))
	writeJSON(w, http.StatusOK, lowStockResp{Count: len(low), Items: low})
}

func (h *InventoryHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	e, err := h.Store.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *InventoryHandler) create(w http.ResponseWriter, r *http.Request) {
	var req entryReq
	if !decodeJSON(w, r, &req) {
		return
	}
	e := req.entry(h.threshold())
	if err := catalog.Validate(e); err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := h.Store.Create(ctx, e); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *InventoryHandler) update(w http.ResponseWriter, r *http.Request) {
	var req entryReq
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := chi.URLParam(r, "id")
	current, err := h.Store.Get(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	req.ID = id
	e := req.entry(current.ReorderThreshold)
	if err := catalog.Validate(e); err != nil {
		writeError(w, err)
		return
	}
	if err := h.Store.Update(ctx, e); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *InventoryHandler) delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Store.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
