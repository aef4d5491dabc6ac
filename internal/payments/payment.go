package payments

import (
	"regexp"
	"strings"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusAuthorized Status = "AUTHORIZED"
	StatusCaptured   Status = "CAPTURED"
	StatusFailed     Status = "FAILED"
	StatusVoided     Status = "VOIDED"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusAuthorized: true, StatusFailed: true},
	StatusAuthorized: {StatusCaptured: true, StatusVoided: true},
	StatusCaptured:   {},
	StatusFailed:     {},
	StatusVoided:     {},
}

func CanTransition(from, to Status) bool { return validNext[from][to] }

var (
	currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)
	lastFourRe = regexp.MustCompile(`^[0-9]{4}$`)
	expiryRe   = regexp.MustCompile(`^(0[1-9]|1[0-2])/[0-9]{2}$`)
)

type Money struct {
	Amount   decimal.Decimal
	Currency string
}

func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if amount.IsNegative() {
		return Money{}, apperr.Validation("amount cannot be negative")
	}
	if !currencyRe.MatchString(currency) {
		return Money{}, apperr.Validation("currency must be a 3-letter ISO code, got %q", currency)
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// CardInfo is the masked card kept with a payment.
type CardInfo struct {
	LastFour   string
	ExpiryDate string
}

func CardInfoFromNumber(cardNumber, expiry string) (CardInfo, error) {
	if len(cardNumber) < 4 {
		return CardInfo{}, apperr.Validation("card number is too short")
	}
	c := CardInfo{LastFour: cardNumber[len(cardNumber)-4:], ExpiryDate: expiry}
	if !lastFourRe.MatchString(c.LastFour) {
		return CardInfo{}, apperr.Validation("card number must end in 4 digits")
	}
	if !expiryRe.MatchString(expiry) {
		return CardInfo{}, apperr.Validation("expiry date must be MM/YY")
	}
	return c, nil
}

func (c CardInfo) Masked() string { return "**** **** **** " + c.LastFour }

// Payment is a two-phase (authorize, then capture or void) payment.
type Payment struct {
	id            string
	orderID       string
	money         Money
	card          CardInfo
	status        Status
	authCode      string
	failureReason string
	createdAt     time.Time
	updatedAt     time.Time
}

type Snapshot struct {
	ID            string
	OrderID       string
	Money         Money
	Card          CardInfo
	Status        Status
	AuthCode      string
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewPaymentID() string {
	return "PAY-" + strings.ToUpper(uuid.NewString()[:8])
}

func New(orderID string, money Money, card CardInfo) (*Payment, error) {
	if apperr.Blank(orderID) {
		return nil, apperr.Validation("order id is required")
	}
	t := time.Now().UTC()
	return &Payment{
		id:        NewPaymentID(),
		orderID:   orderID,
		money:     money,
		card:      card,
		status:    StatusPending,
		createdAt: t,
		updatedAt: t,
	}, nil
}

func Reconstitute(s Snapshot) *Payment {
	return &Payment{
		id:            s.ID,
		orderID:       s.OrderID,
		money:         s.Money,
		card:          s.Card,
		status:        s.Status,
		authCode:      s.AuthCode,
		failureReason: s.FailureReason,
		createdAt:     s.CreatedAt,
		updatedAt:     s.UpdatedAt,
	}
}

// Authorize: PENDING -> AUTHORIZED.
func (p *Payment) Authorize(code string) error {
	if err := p.transition(StatusAuthorized); err != nil {
		return err
	}
	p.authCode = code
	p.move(StatusAuthorized)
	return nil
}

// FailAuthorization: PENDING -> FAILED.
func (p *Payment) FailAuthorization(reason string) error {
	if err := p.transition(StatusFailed); err != nil {
		return err
	}
	p.failureReason = reason
	p.move(StatusFailed)
	return nil
}

// Capture: AUTHORIZED -> CAPTURED.
func (p *Payment) Capture() error {
	if err := p.transition(StatusCaptured); err != nil {
		return err
	}
	p.move(StatusCaptured)
	return nil
}

// FailCapture records a failed capture. The payment stays AUTHORIZED so the
// hold can still be voided.
func (p *Payment) FailCapture(reason string) error {
	if p.status != StatusAuthorized {
		return &apperr.TransitionError{Aggregate: "payment", From: string(p.status), To: "CAPTURE_FAILED"}
	}
	p.failureReason = reason
	p.updatedAt = time.Now().UTC()
	return nil
}

// Void: AUTHORIZED -> VOIDED, releasing the hold and clearing the auth code.
func (p *Payment) Void() error {
	if err := p.transition(StatusVoided); err != nil {
		return err
	}
	p.authCode = ""
	p.move(StatusVoided)
	return nil
}

func (p *Payment) transition(to Status) error {
	if !CanTransition(p.status, to) {
		return &apperr.TransitionError{Aggregate: "payment", From: string(p.status), To: string(to)}
	}
	return nil
}

func (p *Payment) move(to Status) {
	p.status = to
	p.updatedAt = time.Now().UTC()
}

func (p *Payment) Snapshot() Snapshot {
	return Snapshot{
		ID:            p.id,
		OrderID:       p.orderID,
		Money:         p.money,
		Card:          p.card,
		Status:        p.status,
		AuthCode:      p.authCode,
		FailureReason: p.failureReason,
		CreatedAt:     p.createdAt,
		UpdatedAt:     p.updatedAt,
	}
}

func (p *Payment) ID() string            { return p.id }
func (p *Payment) OrderID() string       { return p.orderID }
func (p *Payment) Money() Money          { return p.money }
func (p *Payment) Card() CardInfo        { return p.card }
func (p *Payment) Status() Status        { return p.status }
func (p *Payment) AuthCode() string      { return p.authCode }
func (p *Payment) FailureReason() string { return p.failureReason }
