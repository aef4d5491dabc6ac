package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated           = "OrderCreated"
	EventOrderPaymentAuthorized = "OrderPaymentAuthorized"
	EventOrderInventoryDeducted = "OrderInventoryDeducted"
	EventOrderCompleted         = "OrderCompleted"
	EventOrderFailed            = "OrderFailed"
	EventOrderRolledBack        = "OrderRolledBack"
)

// Event is a lifecycle fact recorded by the Order aggregate.
type Event struct {
	Type       string
	OrderID    string
	Status     Status
	PaymentID  string
	Reason     string
	OccurredAt time.Time
}

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "order-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type OrderStatusPayload struct {
	OrderID   string `json:"order_id"`
	Status    Status `json:"status"`
	PaymentID string `json:"payment_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

func (e Event) Payload() OrderStatusPayload {
	return OrderStatusPayload{OrderID: e.OrderID, Status: e.Status, PaymentID: e.PaymentID, Reason: e.Reason}
}
