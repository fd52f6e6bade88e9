package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/lathitha/eyecare-orders/internal/archive"
	"github.com/lathitha/eyecare-orders/internal/catalog"
	"github.com/lathitha/eyecare-orders/internal/failure"
	"github.com/lathitha/eyecare-orders/internal/invoice"
	"github.com/lathitha/eyecare-orders/internal/metrics"
	"github.com/lathitha/eyecare-orders/internal/notify"
	"github.com/lathitha/eyecare-orders/internal/orders"
	"github.com/lathitha/eyecare-orders/internal/redisx"
	"github.com/lathitha/eyecare-orders/internal/sqlite"
	"github.com/lathitha/eyecare-orders/internal/tracking"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []orders.Envelope
}

func (p *capturePublisher) Publish(_, value []byte, _ ...kafkago.Header) {
	var env orders.Envelope
	_ = json.Unmarshal(value, &env)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, env)
}

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType
	}
	return out
}

type memArchive struct {
	mu   sync.Mutex
	invs map[string]invoice.Invoice
}

func (a *memArchive) Put(_ context.Context, inv invoice.Invoice) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.invs[inv.ID]; ok {
		return archive.ErrExists
	}
	a.invs[inv.ID] = inv
	return nil
}

func (a *memArchive) Get(_ context.Context, id string) (invoice.Invoice, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	inv, ok := a.invs[id]
	if !ok {
		return invoice.Invoice{}, fmt.Errorf("%w: %s", archive.ErrNotFound, id)
	}
	return inv, nil
}

// memKV is an in-process stand-in for the Redis commands redisx uses.
type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memKV) Get(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memKV) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *memKV) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *memKV) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

type failingSender struct{}

func (failingSender) Name() string { return "meta" }

func (failingSender) Send(context.Context, string, string) (notify.Receipt, error) {
	return notify.Receipt{}, fmt.Errorf("%w: meta: 131026 Message undeliverable", notify.ErrSend)
}

type testEnv struct {
	router   *chi.Mux
	store    *sqlite.Store
	events   *capturePublisher
	invoices *InvoicesHandler
	notes    *NotificationsHandler
}

const trackBase = "https://shop.example/track/customer"

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	gen, err := invoice.NewGenerator(1)
	if err != nil {
		t.Fatalf("generator: %v", err)
	}
	logger := zaptest.NewLogger(t)
	m := metrics.New()
	events := &capturePublisher{}

	r := NewRouter(logger, m)
	(&InventoryHandler{Store: store.Catalog, ReorderThreshold: 5, Logger: logger, Metrics: m}).Register(r)
	invoices := &InvoicesHandler{
		Generator:       gen,
		Catalog:         store.Catalog,
		Orders:          store.Orders,
		Archive:         &memArchive{invs: map[string]invoice.Invoice{}},
		Events:          events,
		TaxRate:         invoice.DefaultTaxRate,
		TrackingBaseURL: trackBase,
		Service:         "test-api",
		Logger:          logger,
		Metrics:         m,
	}
	invoices.Register(r)
	(&TrackingHandler{Orders: store.Orders, Events: events, Service: "test-api", Logger: logger, Metrics: m}).Register(r)
	notes := &NotificationsHandler{
		Sender:          notify.NullSender{Logger: logger},
		Log:             store.Orders,
		Events:          events,
		TrackingBaseURL: trackBase,
		Service:         "test-api",
		Logger:          logger,
		Metrics:         m,
	}
	notes.Register(r)
	return &testEnv{router: r, store: store, events: events, invoices: invoices, notes: notes}
}

func doJSON(t *testing.T, env *testEnv, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := setupServer(t)
	if w := doJSON(t, env, http.MethodGet, "/healthz", nil); w.Code != http.StatusOK {
		t.Fatalf("healthz code %v", w.Code)
	}
	w := doJSON(t, env, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "eyecare_http_request_duration_seconds") {
		t.Fatalf("metrics code %v", w.Code)
	}
}

func TestMetrics_UnknownPathsShareOneRoute(t *testing.T) {
	env := setupServer(t)
	for _, p := range []string{"/wp-login.php", "/.env", "/admin/1"} {
		if w := doJSON(t, env, http.MethodGet, p, nil); w.Code != http.StatusNotFound {
			t.Fatalf("%s code %v", p, w.Code)
		}
	}
	body := doJSON(t, env, http.MethodGet, "/metrics", nil).Body.String()
	if !strings.Contains(body, `route="unmatched"`) {
		t.Fatalf("missing unmatched route label")
	}
	for _, p := range []string{"/wp-login.php", "/.env", "/admin/1"} {
		if strings.Contains(body, `route="`+p+`"`) {
			t.Fatalf("raw path %s leaked into labels", p)
		}
	}
}

func TestInventoryFlow(t *testing.T) {
	env := setupServer(t)

	w := doJSON(t, env, http.MethodPost, "/api/inventory", map[string]any{
		"id": "f1", "sku": "FR-001", "name": "Round Metal", "type": "frame", "price": 1200, "stock": 10,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create code %v: %s", w.Code, w.Body)
	}
	var created catalog.Entry
	decode(t, w, &created)
	if created.ReorderThreshold != 5 {
		t.Fatalf("default threshold = %d, want 5", created.ReorderThreshold)
	}

	w = doJSON(t, env, http.MethodPost, "/api/inventory", map[string]any{
		"id": "l1", "name": "Blue Cut", "type": "lens", "price": "450.50", "stock": 0, "reorderThreshold": 0,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create lens code %v: %s", w.Code, w.Body)
	}
	decode(t, w, &created)
	if created.ReorderThreshold != 0 {
		t.Fatalf("explicit zero threshold not kept: %d", created.ReorderThreshold)
	}

	if w = doJSON(t, env, http.MethodPost, "/api/inventory", map[string]any{
		"id": "f1", "name": "Dup", "type": "frame", "price": 1, "stock": 1,
	}); w.Code != http.StatusConflict {
		t.Fatalf("duplicate code %v", w.Code)
	}
	if w = doJSON(t, env, http.MethodPost, "/api/inventory", map[string]any{
		"id": "x1", "name": "Case", "type": "case", "price": 1, "stock": 1,
	}); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid type code %v", w.Code)
	}

	// stock 5 with threshold 5 is low; lens at 0/0 is low too
	w = doJSON(t, env, http.MethodPut, "/api/inventory/f1", map[string]any{
		"name": "Round Metal", "type": "frame", "price": 1200, "stock": 5,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update code %v: %s", w.Code, w.Body)
	}
	w = doJSON(t, env, http.MethodGet, "/api/inventory/low-stock", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("low stock code %v", w.Code)
	}
	var low lowStockResp
	decode(t, w, &low)
	if low.Count != 2 || len(low.Items) != 2 {
		t.Fatalf("low stock = %+v", low)
	}

	w = doJSON(t, env, http.MethodGet, "/api/inventory", nil)
	var all []catalog.Entry
	decode(t, w, &all)
	if len(all) != 2 {
		t.Fatalf("list len %d", len(all))
	}

	if w = doJSON(t, env, http.MethodDelete, "/api/inventory/f1", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete code %v", w.Code)
	}
	if w = doJSON(t, env, http.MethodGet, "/api/inventory/f1", nil); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete code %v", w.Code)
	}
	if w = doJSON(t, env, http.MethodPut, "/api/inventory/f1", map[string]any{
		"name": "Gone", "type": "frame", "price": 1, "stock": 1,
	}); w.Code != http.StatusNotFound {
		t.Fatalf("update missing code %v", w.Code)
	}
}

func TestInvoiceQuote(t *testing.T) {
	env := setupServer(t)
	w := doJSON(t, env, http.MethodPost, "/api/invoices/quote", map[string]any{
		"items": []map[string]any{
			{"id": "a", "description": "Frame", "quantity": 1, "unitPrice": 1200},
			{"id": "b", "description": "Lens", "quantity": "2", "unitPrice": 800},
		},
		"discount": 0,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("quote code %v: %s", w.Code, w.Body)
	}
	var q quoteResp
	decode(t, w, &q)
	for name, pair := range map[string][2]decimal.Decimal{
		"subtotal": {q.Subtotal, decimal.NewFromInt(2800)},
		"tax":      {q.Tax, decimal.NewFromInt(420)},
		"total":    {q.Total, decimal.NewFromInt(3220)},
	} {
		if !pair[0].Equal(pair[1]) {
			t.Fatalf("%s = %s, want %s", name, pair[0], pair[1])
		}
	}
}

func TestInvoiceQuote_NegativeDiscountClamped(t *testing.T) {
	env := setupServer(t)
	w := doJSON(t, env, http.MethodPost, "/api/invoices/quote", map[string]any{
		"items":    []map[string]any{{"quantity": 1, "unitPrice": 100}},
		"discount": -50,
	})
	var q quoteResp
	decode(t, w, &q)
	if !q.Discount.IsZero() || !q.Total.Equal(decimal.NewFromInt(115)) {
		t.Fatalf("quote = %+v", q)
	}
}

func TestInvoiceQuote_HugeExponentCoercesToZero(t *testing.T) {
	env := setupServer(t)
	w := doJSON(t, env, http.MethodPost, "/api/invoices/quote", map[string]any{
		"items": []map[string]any{
			{"quantity": "1e1000000000", "unitPrice": 1},
			{"quantity": 1, "unitPrice": json.Number("1e1000000000")},
			{"quantity": 1, "unitPrice": 100},
		},
		"discount": "1e1000000000",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("quote code %v: %s", w.Code, w.Body)
	}
	var q quoteResp
	decode(t, w, &q)
	if !q.Subtotal.Equal(decimal.NewFromInt(100)) || !q.Discount.IsZero() || !q.Total.Equal(decimal.NewFromInt(115)) {
		t.Fatalf("quote = %+v", q)
	}

	w = doJSON(t, env, http.MethodPost, "/api/inventory", map[string]any{
		"id": "f9", "name": "Huge", "type": "frame", "price": json.Number("1e1000000000"), "stock": 1,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("inventory create code %v: %s", w.Code, w.Body)
	}
}

func TestInvoiceCreate_RegistersTrackableOrder(t *testing.T) {
	env := setupServer(t)
	w := doJSON(t, env, http.MethodPost, "/api/invoices", map[string]any{
		"patient": map[string]any{"name": "Ama Mensah", "age": "42", "prescription": "-1.25"},
		"phone":   "+27820000000",
		"items":   []map[string]any{{"id": "f1", "description": "Round Metal (Frame)", "quantity": 1, "unitPrice": 1200}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create code %v: %s", w.Code, w.Body)
	}
	var resp createInvoiceResp
	decode(t, w, &resp)
	if !strings.HasPrefix(resp.Invoice.ID, "INV-") || resp.OrderID != invoice.OrderID(resp.Invoice.ID) {
		t.Fatalf("ids: invoice %q order %q", resp.Invoice.ID, resp.OrderID)
	}
	if resp.TrackingURL != trackBase+"?order="+resp.OrderID || !strings.HasPrefix(resp.ShareURL, "https://wa.me/?text=") {
		t.Fatalf("links: %q %q", resp.TrackingURL, resp.ShareURL)
	}
	if !resp.Archived || !resp.Invoice.Total.Equal(decimal.NewFromInt(1380)) {
		t.Fatalf("invoice = %+v archived=%v", resp.Invoice, resp.Archived)
	}
	if got := env.events.types(); len(got) != 1 || got[0] != orders.EventOrderRegistered {
		t.Fatalf("events = %v", got)
	}

	w = doJSON(t, env, http.MethodGet, "/api/track?order="+strings.ToLower(resp.OrderID)+"%20", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("track code %v: %s", w.Code, w.Body)
	}
	var tr trackResp
	decode(t, w, &tr)
	if tr.OrderID != resp.OrderID || tr.StageIndex != 0 || tr.Stage != "Order Received" || tr.Ready {
		t.Fatalf("track = %+v", tr)
	}

	w = doJSON(t, env, http.MethodGet, "/api/invoices/"+resp.Invoice.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("archived invoice code %v", w.Code)
	}
	if w = doJSON(t, env, http.MethodGet, "/api/invoices/INV-0", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing invoice code %v", w.Code)
	}
}

func TestInvoiceCreate_IdempotencyKeyReplays(t *testing.T) {
	env := setupServer(t)
	kv := &memKV{data: map[string]string{}}
	env.invoices.Idempotency = redisx.Idempotency{KV: kv}

	post := func(key string) *httptest.ResponseRecorder {
		body := `{"patient":{"name":"Ama"},"phone":"+27820000000","items":[{"quantity":1,"unitPrice":1200}]}`
		req := httptest.NewRequest(http.MethodPost, "/api/invoices", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		return w
	}

	w := post("retry-1")
	if w.Code != http.StatusCreated {
		t.Fatalf("first code %v: %s", w.Code, w.Body)
	}
	var first createInvoiceResp
	decode(t, w, &first)

	w = post("retry-1")
	if w.Code != http.StatusOK {
		t.Fatalf("replay code %v: %s", w.Code, w.Body)
	}
	var replay createInvoiceResp
	decode(t, w, &replay)
	if !replay.Idempotent || replay.Invoice.ID != first.Invoice.ID || replay.OrderID != first.OrderID {
		t.Fatalf("replay = %+v, first = %+v", replay, first)
	}
	if got := env.events.types(); len(got) != 1 {
		t.Fatalf("events after replay = %v, want one OrderRegistered", got)
	}

	kv.mu.Lock()
	kv.data[fmt.Sprintf(redisx.KeyIdemInvoiceCreate, "busy")] = "pending"
	kv.mu.Unlock()
	if w = post("busy"); w.Code != http.StatusConflict {
		t.Fatalf("in-flight code %v: %s", w.Code, w.Body)
	}

	if w = post(""); w.Code != http.StatusCreated {
		t.Fatalf("keyless code %v", w.Code)
	}
	if got := env.events.types(); len(got) != 2 {
		t.Fatalf("events = %v, want two", got)
	}
}

func TestInvoiceCreate_RequiresPatientAndItems(t *testing.T) {
	env := setupServer(t)
	if w := doJSON(t, env, http.MethodPost, "/api/invoices", map[string]any{
		"patient": map[string]any{"name": " "},
		"items":   []map[string]any{{"quantity": 1, "unitPrice": 1}},
	}); w.Code != http.StatusBadRequest {
		t.Fatalf("blank patient code %v", w.Code)
	}
	if w := doJSON(t, env, http.MethodPost, "/api/invoices", map[string]any{
		"patient": map[string]any{"name": "Ama"},
	}); w.Code != http.StatusBadRequest {
		t.Fatalf("no items code %v", w.Code)
	}
}

func TestQuickAdd(t *testing.T) {
	env := setupServer(t)
	if err := env.store.Catalog.Create(context.Background(), catalog.Entry{
		ID: "f1", Name: "Round Metal", Type: catalog.TypeFrame, Price: decimal.NewFromInt(1200), Stock: 3,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := doJSON(t, env, http.MethodPost, "/api/invoices/lines", map[string]any{"catalogId": "f1"})
	if w.Code != http.StatusOK {
		t.Fatalf("quick add code %v: %s", w.Code, w.Body)
	}
	var line invoice.LineItem
	decode(t, w, &line)
	if line.Description != "Round Metal (Frame)" || !line.Quantity.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("line = %+v", line)
	}

	if w = doJSON(t, env, http.MethodPost, "/api/invoices/lines", map[string]any{"catalogId": "nope"}); w.Code != http.StatusNotFound {
		t.Fatalf("unknown id code %v", w.Code)
	}
}

func TestTracking_MessagesForMissingAndUnknown(t *testing.T) {
	env := setupServer(t)
	cases := []struct {
		path string
		code int
		msg  string
	}{
		{"/api/track?order=%20%20", http.StatusBadRequest, tracking.MsgMissingInput},
		{"/api/track", http.StatusBadRequest, tracking.MsgMissingInput},
		{"/api/track?order=ORD-404", http.StatusNotFound, tracking.MsgNotFound},
	}
	for _, tc := range cases {
		w := doJSON(t, env, http.MethodGet, tc.path, nil)
		if w.Code != tc.code {
			t.Fatalf("%s: code %v, want %v", tc.path, w.Code, tc.code)
		}
		var body map[string]string
		decode(t, w, &body)
		if body["message"] != tc.msg {
			t.Fatalf("%s: message %q", tc.path, body["message"])
		}
	}
}

func TestTracking_AdvanceToReady(t *testing.T) {
	env := setupServer(t)
	if err := env.store.Orders.Create(context.Background(), orders.Order{ID: "ORD-1", CustomerName: "Ama"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	for i := 1; i < tracking.StageCount; i++ {
		w := doJSON(t, env, http.MethodPost, "/api/orders/ord-1/advance", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("advance %d code %v: %s", i, w.Code, w.Body)
		}
	}
	if w := doJSON(t, env, http.MethodPost, "/api/orders/ORD-1/advance", nil); w.Code != http.StatusConflict {
		t.Fatalf("advance past last stage code %v", w.Code)
	}
	if w := doJSON(t, env, http.MethodPost, "/api/orders/ORD-404/advance", nil); w.Code != http.StatusNotFound {
		t.Fatalf("advance unknown code %v", w.Code)
	}
	if got := env.events.types(); len(got) != tracking.StageCount-1 {
		t.Fatalf("events = %v", got)
	}

	w := doJSON(t, env, http.MethodGet, "/api/track?order=ORD-1&audience=staff", nil)
	var tr trackResp
	decode(t, w, &tr)
	if !tr.Ready || tr.Stage != "Ready for Collection" || tr.Audience != string(tracking.Staff) {
		t.Fatalf("track = %+v", tr)
	}
	last := tr.Steps[len(tr.Steps)-1]
	if last.State != tracking.Active || tr.Steps[0].State != tracking.Done {
		t.Fatalf("steps = %+v", tr.Steps)
	}

	w = doJSON(t, env, http.MethodGet, "/api/orders/ORD-1", nil)
	var o orderResp
	decode(t, w, &o)
	if o.StageIndex != tracking.StageCount-1 || o.CustomerName != "Ama" {
		t.Fatalf("order = %+v", o)
	}
}

func TestNotificationPreview(t *testing.T) {
	env := setupServer(t)
	w := doJSON(t, env, http.MethodPost, "/api/notifications/preview", map[string]any{
		"stage": "Lens Cutting", "orderId": "ORD-12345", "customerName": "",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("preview code %v", w.Code)
	}
	var body map[string]string
	decode(t, w, &body)
	want := "Hi Customer, your glasses are now at the *Lens Cutting* stage.\nOrder: ORD-12345\nTrack your order: " + trackBase + "?order=ORD-12345"
	if body["body"] != want {
		t.Fatalf("body = %q", body["body"])
	}
	if w = doJSON(t, env, http.MethodPost, "/api/notifications/preview", map[string]any{"orderId": "ORD-1"}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing stage code %v", w.Code)
	}
}

func TestNotificationSendAndDeliveryReport(t *testing.T) {
	env := setupServer(t)
	w := doJSON(t, env, http.MethodPost, "/api/notifications/send", map[string]any{
		"to": "+27820000000", "body": "Your glasses are ready", "orderId": "ord-5",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("send code %v: %s", w.Code, w.Body)
	}
	var sent sendResp
	decode(t, w, &sent)
	if sent.Status != notify.StatusSent || sent.Provider != "null" || sent.ProviderMessageID == "" {
		t.Fatalf("sent = %+v", sent)
	}

	path := "/api/notifications/" + sent.ProviderMessageID + "/status"
	if w = doJSON(t, env, http.MethodPost, path, map[string]any{"status": "error", "error": "blocked"}); w.Code != http.StatusOK {
		t.Fatalf("status code %v: %s", w.Code, w.Body)
	}
	if w = doJSON(t, env, http.MethodPost, path, map[string]any{"status": "delivered?"}); w.Code != http.StatusBadRequest {
		t.Fatalf("bad status code %v", w.Code)
	}
	if w = doJSON(t, env, http.MethodPost, "/api/notifications/wamid.404/status", map[string]any{"status": "sent"}); w.Code != http.StatusNotFound {
		t.Fatalf("unknown provider id code %v", w.Code)
	}

	w = doJSON(t, env, http.MethodGet, "/api/orders/ORD-5/notifications", nil)
	var list []notify.Message
	decode(t, w, &list)
	if len(list) != 1 || list[0].Status != notify.StatusError || list[0].Error != "blocked" {
		t.Fatalf("notifications = %+v", list)
	}
	if got := env.events.types(); len(got) != 1 || got[0] != orders.EventNotificationStatus {
		t.Fatalf("events = %v", got)
	}
}

func TestNotificationSend_ProviderFailureIs502(t *testing.T) {
	env := setupServer(t)
	env.notes.Sender = failingSender{}

	w := doJSON(t, env, http.MethodPost, "/api/notifications/send", map[string]any{
		"to": "+27820000000", "body": "hi", "orderId": "ORD-6",
	})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("send code %v", w.Code)
	}
	var resp sendResp
	decode(t, w, &resp)
	if resp.Status != notify.StatusError || !strings.Contains(resp.Error, "undeliverable") {
		t.Fatalf("resp = %+v", resp)
	}

	list, err := env.store.Orders.Notifications(context.Background(), "ORD-6")
	if err != nil || len(list) != 1 || list[0].Status != notify.StatusError {
		t.Fatalf("logged = %+v (%v)", list, err)
	}

	if w = doJSON(t, env, http.MethodPost, "/api/notifications/send", map[string]any{"to": "", "body": "hi"}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing recipient code %v", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", catalog.ErrInvalidInput), http.StatusBadRequest},
		{tracking.ErrMissingInput, http.StatusBadRequest},
		{fmt.Errorf("x: %w", orders.ErrNotFound), http.StatusNotFound},
		{catalog.ErrNotFound, http.StatusNotFound},
		{orders.ErrInvalidTransition, http.StatusConflict},
		{redisx.ErrInFlight, http.StatusConflict},
		{failure.External("send", fmt.Errorf("%w: down", notify.ErrSend)), http.StatusBadGateway},
		{failure.External("fetch catalog", errors.New("disk")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
