// Package invoice computes invoice totals and snapshots drafts into
// immutable invoices.
package invoice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	"github.com/lathitha/eyecare-orders/internal/catalog"
)

const (
	invoicePrefix = "INV-"
	orderPrefix   = "ORD-"
)

// DefaultTaxRate is the VAT rate the store charges.
var DefaultTaxRate = decimal.RequireFromString("0.15")

type Patient struct {
	Name         string `json:"name"`
	Age          string `json:"age"`
	Prescription string `json:"prescription"`
}

type LineItem struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// UnmarshalJSON accepts numbers, numeric strings or garbage for quantity and
// unitPrice; garbage decodes as zero.
func (it *LineItem) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID          string `json:"id"`
		Description string `json:"description"`
		Quantity    any    `json:"quantity"`
		UnitPrice   any    `json:"unitPrice"`
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode line item: %w", err)
	}
	*it = LineItem{
		ID:          raw.ID,
		Description: raw.Description,
		Quantity:    Coerce(raw.Quantity),
		UnitPrice:   Coerce(raw.UnitPrice),
	}
	return nil
}

type Invoice struct {
	ID       string          `json:"id"`
	Patient  Patient         `json:"patient"`
	Items    []LineItem      `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	TaxRate  decimal.Decimal `json:"taxRate"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
	IssuedAt time.Time       `json:"issuedAt"`
}

// Generator issues invoices with ids that stay unique even when several are
// generated within the same millisecond.
type Generator struct {
	node *snowflake.Node
	now  func() time.Time
}

// NewGenerator creates a generator for the given node (0-1023). Separate
// processes issuing invoices concurrently must use distinct nodes.
func NewGenerator(node int64) (*Generator, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("invoice id node: %w", err)
	}
	return &Generator{node: n, now: time.Now}, nil
}

// NextID returns a fresh invoice id.
func (g *Generator) NextID() string {
	return invoicePrefix + g.node.Generate().String()
}

// Generate snapshots the draft items and their computed totals.
func (g *Generator) Generate(p Patient, items []LineItem, discount, rate decimal.Decimal) Invoice {
	snapshot := make([]LineItem, len(items))
	copy(snapshot, items)
	t := Quote(snapshot, discount, rate)
	return Invoice{
		ID:       g.NextID(),
		Patient:  p,
		Items:    snapshot,
		Subtotal: t.Subtotal,
		Tax:      t.Tax,
		TaxRate:  rate,
		Discount: t.Discount,
		Total:    t.Total,
		IssuedAt: g.now().UTC(),
	}
}

// OrderID maps an invoice id to the order id customers track it by.
// Ids without the invoice prefix are returned unchanged.
func OrderID(invoiceID string) string {
	if rest, ok := strings.CutPrefix(invoiceID, invoicePrefix); ok {
		return orderPrefix + rest
	}
	return invoiceID
}

// LineFromCatalog builds a single-unit line for a frame or lens.
func LineFromCatalog(e catalog.Entry) LineItem {
	desc := e.Name
	switch e.Type {
	case catalog.TypeFrame:
		desc += " (Frame)"
	case catalog.TypeLens:
		desc += " (Lens)"
	}
	return LineItem{ID: e.ID, Description: desc, Quantity: decimal.NewFromInt(1), UnitPrice: e.Price}
}
