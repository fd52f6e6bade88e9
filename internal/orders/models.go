package orders

import "time"

// Order is the registry record behind a tracking id.
type Order struct {
	ID           string    `json:"id"`
	InvoiceID    string    `json:"invoiceId,omitempty"`
	CustomerName string    `json:"customerName"`
	Phone        string    `json:"phone,omitempty"`
	StageIndex   int       `json:"stageIndex"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
