package orders

import (
	"regexp"
	"strings"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"github.com/shopspring/decimal"
)

var (
	currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)
	expiryRe   = regexp.MustCompile(`^(0[1-9]|1[0-2])/[0-9]{2}$`)
	cvvRe      = regexp.MustCompile(`^[0-9]{3,4}$`)
	orderIDRe  = regexp.MustCompile(`^ORD-[A-Z0-9]{8}$`)
)

type Buyer struct {
	Name  string
	Email string
}

func NewBuyer(name, email string) (Buyer, error) {
	if apperr.Blank(name) {
		return Buyer{}, apperr.Validation("buyer name is required")
	}
	if !strings.Contains(email, "@") {
		return Buyer{}, apperr.Validation("buyer email must contain @")
	}
	return Buyer{Name: name, Email: email}, nil
}

// Item is the single line item of an order.
type Item struct {
	ProductID   string
	ProductName string
	Quantity    int
}

func NewItem(productID, productName string, qty int) (Item, error) {
	if apperr.Blank(productID) {
		return Item{}, apperr.Validation("product id is required")
	}
	if apperr.Blank(productName) {
		return Item{}, apperr.Validation("product name is required")
	}
	if qty <= 0 {
		return Item{}, apperr.Validation("quantity must be positive, got %d", qty)
	}
	return Item{ProductID: productID, ProductName: productName, Quantity: qty}, nil
}

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

func (m Money) String() string { return m.Amount.StringFixed(2) + " " + m.Currency }

// PaymentInfo carries card credentials for the authorize call only.
// It is never persisted.
type PaymentInfo struct {
	Method     string
	CardNumber string
	ExpiryDate string
	CVV        string
}

func NewPaymentInfo(method, cardNumber, expiry, cvv string) (PaymentInfo, error) {
	if apperr.Blank(method) {
		return PaymentInfo{}, apperr.Validation("payment method is required")
	}
	if len(strings.TrimSpace(cardNumber)) < 4 {
		return PaymentInfo{}, apperr.Validation("card number is required")
	}
	if !expiryRe.MatchString(expiry) {
		return PaymentInfo{}, apperr.Validation("expiry date must be MM/YY")
	}
	if !cvvRe.MatchString(cvv) {
		return PaymentInfo{}, apperr.Validation("cvv must be 3 or 4 digits")
	}
	return PaymentInfo{Method: method, CardNumber: cardNumber, ExpiryDate: expiry, CVV: cvv}, nil
}

func (p PaymentInfo) LastFour() string {
	return p.CardNumber[len(p.CardNumber)-4:]
}

// ValidOrderID reports whether id has the ORD-XXXXXXXX shape.
func ValidOrderID(id string) bool { return orderIDRe.MatchString(id) }
