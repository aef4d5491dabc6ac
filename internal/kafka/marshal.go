package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/go-saga-orders/internal/orders"
)

func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// Unwrap memudahkan decode payload spesifik
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}

// DecodeOrderStatus reads one lifecycle message value.
func DecodeOrderStatus(value []byte) (orders.Envelope, orders.OrderStatusPayload, error) {
	var env orders.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return env, orders.OrderStatusPayload{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventVersion != envelopeVersion {
		return env, orders.OrderStatusPayload{}, fmt.Errorf("unsupported event version %d", env.EventVersion)
	}
	p, err := UnwrapPayload[orders.OrderStatusPayload](env.Payload)
	if err != nil {
		return env, p, err
	}
	if p.OrderID == "" || !p.Status.Valid() {
		return env, p, fmt.Errorf("event %s: incomplete order status payload", env.EventID)
	}
	return env, p, nil
}
