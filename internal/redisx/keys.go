package redisx

import "time"

const (
	// Idempotent invoice create: idem:invoice:create:{idempotency_key} -> response JSON
	KeyIdemInvoiceCreate = "idem:invoice:create:%s"

	// Cached stage of an order: order_stage:{order_id} -> stage index
	KeyOrderStage = "order_stage:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	// how long a claimed key may stay pending before another request can take it
	TTLIdemPending = 30 * time.Second
	TTLStageCache  = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
