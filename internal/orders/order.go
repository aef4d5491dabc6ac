package orders

import (
	"strings"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"github.com/google/uuid"
)

// Order is the aggregate root of one order's lifecycle. Only the saga
// orchestrator mutates it after creation.
type Order struct {
	id             string
	idempotencyKey string
	buyer          Buyer
	item           Item
	money          Money
	paymentInfo    *PaymentInfo
	status         Status
	paymentID      string
	failureReason  string
	createdAt      time.Time
	updatedAt      time.Time

	events []Event
}

// Snapshot is the persisted shape of an Order. Card data is deliberately absent.
type Snapshot struct {
	ID             string
	IdempotencyKey string
	Buyer          Buyer
	Item           Item
	Money          Money
	Status         Status
	PaymentID      string
	FailureReason  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

var now = func() time.Time { return time.Now().UTC() }

func NewOrderID() string {
	u := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(u[:8])
}

// New creates an order in CREATED.
func New(idempotencyKey string, buyer Buyer, item Item, money Money, card PaymentInfo) (*Order, error) {
	if apperr.Blank(idempotencyKey) {
		return nil, apperr.Validation("idempotency key is required")
	}
	t := now()
	o := &Order{
		id:             NewOrderID(),
		idempotencyKey: idempotencyKey,
		buyer:          buyer,
		item:           item,
		money:          money,
		paymentInfo:    &card,
		status:         StatusCreated,
		createdAt:      t,
		updatedAt:      t,
	}
	o.record(EventOrderCreated, "")
	return o, nil
}

// Reconstitute rebuilds an order from storage. The result carries no card data.
func Reconstitute(s Snapshot) (*Order, error) {
	if !s.Status.Valid() {
		return nil, apperr.Validation("unknown order status %q", s.Status)
	}
	if s.Status.HasPayment() != (s.PaymentID != "") {
		return nil, apperr.Validation("order %s: payment id inconsistent with status %s", s.ID, s.Status)
	}
	return &Order{
		id:             s.ID,
		idempotencyKey: s.IdempotencyKey,
		buyer:          s.Buyer,
		item:           s.Item,
		money:          s.Money,
		status:         s.Status,
		paymentID:      s.PaymentID,
		failureReason:  s.FailureReason,
		createdAt:      s.CreatedAt,
		updatedAt:      s.UpdatedAt,
	}, nil
}

// MarkPaymentAuthorized: CREATED -> PAYMENT_AUTHORIZED.
func (o *Order) MarkPaymentAuthorized(paymentID string) error {
	if err := o.transition(StatusPaymentAuthorized); err != nil {
		return err
	}
	if apperr.Blank(paymentID) {
		return apperr.Validation("payment id is required")
	}
	o.paymentID = paymentID
	o.advance(StatusPaymentAuthorized, EventOrderPaymentAuthorized, "")
	return nil
}

// MarkInventoryDeducted: PAYMENT_AUTHORIZED -> INVENTORY_DEDUCTED.
func (o *Order) MarkInventoryDeducted() error {
	if err := o.transition(StatusInventoryDeducted); err != nil {
		return err
	}
	o.advance(StatusInventoryDeducted, EventOrderInventoryDeducted, "")
	return nil
}

// Complete: INVENTORY_DEDUCTED -> COMPLETED.
func (o *Order) Complete() error {
	if err := o.transition(StatusCompleted); err != nil {
		return err
	}
	o.advance(StatusCompleted, EventOrderCompleted, "")
	return nil
}

// Fail is the early failure path, before anything was reserved: CREATED -> FAILED.
func (o *Order) Fail(reason string) error {
	if err := o.transition(StatusFailed); err != nil {
		return err
	}
	o.failureReason = reason
	o.advance(StatusFailed, EventOrderFailed, reason)
	return nil
}

// MarkRolledBack records that compensation ran:
// PAYMENT_AUTHORIZED | INVENTORY_DEDUCTED -> ROLLBACK_COMPLETED.
func (o *Order) MarkRolledBack(reason string) error {
	if err := o.transition(StatusRollbackCompleted); err != nil {
		return err
	}
	o.failureReason = reason
	o.advance(StatusRollbackCompleted, EventOrderRolledBack, reason)
	return nil
}

func (o *Order) transition(to Status) error {
	if !CanTransition(o.status, to) {
		return &apperr.TransitionError{Aggregate: "order", From: string(o.status), To: string(to)}
	}
	return nil
}

func (o *Order) advance(to Status, ev, reason string) {
	o.status = to
	o.updatedAt = now()
	if to.Terminal() {
		// kartu cuma dipakai sekali, buang setelah selesai
		o.paymentInfo = nil
	}
	o.record(ev, reason)
}

func (o *Order) record(typ, reason string) {
	o.events = append(o.events, Event{
		Type:       typ,
		OrderID:    o.id,
		Status:     o.status,
		PaymentID:  o.paymentID,
		Reason:     reason,
		OccurredAt: o.updatedAt,
	})
}

// PullEvents returns and clears the events recorded since the last call.
func (o *Order) PullEvents() []Event {
	ev := o.events
	o.events = nil
	return ev
}

func (o *Order) Snapshot() Snapshot {
	return Snapshot{
		ID:             o.id,
		IdempotencyKey: o.idempotencyKey,
		Buyer:          o.buyer,
		Item:           o.item,
		Money:          o.money,
		Status:         o.status,
		PaymentID:      o.paymentID,
		FailureReason:  o.failureReason,
		CreatedAt:      o.createdAt,
		UpdatedAt:      o.updatedAt,
	}
}

func (o *Order) ID() string             { return o.id }
func (o *Order) IdempotencyKey() string { return o.idempotencyKey }
func (o *Order) Buyer() Buyer           { return o.buyer }
func (o *Order) Item() Item             { return o.item }
func (o *Order) Money() Money           { return o.money }
func (o *Order) Status() Status         { return o.status }
func (o *Order) PaymentID() string      { return o.paymentID }
func (o *Order) FailureReason() string  { return o.failureReason }
func (o *Order) CreatedAt() time.Time   { return o.createdAt }
func (o *Order) UpdatedAt() time.Time   { return o.updatedAt }

// PaymentInfo returns the card credentials while they are still held.
func (o *Order) PaymentInfo() (PaymentInfo, bool) {
	if o.paymentInfo == nil {
		return PaymentInfo{}, false
	}
	return *o.paymentInfo, true
}
