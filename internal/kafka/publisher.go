package kafka

import (
	"context"
	"errors"
	"strconv"

	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"
)

const (
	HeaderEventType    = "x-event-type"
	HeaderEventVersion = "x-event-version"
	envelopeVersion    = 1
)

// EventPublisher wraps order lifecycle events in the v1 envelope and hands
// them to the async producer, keyed by order id.
type EventPublisher struct {
	Producer *Producer
	Service  string
}

func (p *EventPublisher) Publish(ctx context.Context, events ...orders.Event) error {
	traceID := ""
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		traceID = sc.TraceID().String()
	}
	var errs []error
	for _, e := range events {
		ev := orders.Envelope{
			EventID:       uuid.NewString(),
			EventType:     e.Type,
			EventVersion:  envelopeVersion,
			OccurredAt:    e.OccurredAt,
			Producer:      p.Service,
			TraceID:       traceID,
			CorrelationID: e.OrderID,
			Payload:       MustMarshal(e.Payload()),
		}
		err := p.Producer.Publish(orders.PartitionKey(e.OrderID), MustMarshal(ev),
			kafka.Header{Key: HeaderEventType, Value: []byte(e.Type)},
			kafka.Header{Key: HeaderEventVersion, Value: []byte(strconv.Itoa(envelopeVersion))},
		)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
