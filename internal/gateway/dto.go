package gateway

import "github.com/shopspring/decimal"

// Wire shapes of the payment and inventory services. Business failures come
// back as 200 with the success flag false; 4xx/5xx carry ErrorResp.

type AuthorizeReq struct {
	OrderID    string          `json:"order_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	CardNumber string          `json:"card_number"`
	ExpiryDate string          `json:"expiry_date"`
	CVV        string          `json:"cvv"`
}

type AuthorizeResp struct {
	PaymentID         string `json:"payment_id"`
	Authorized        bool   `json:"authorized"`
	AuthorizationCode string `json:"authorization_code,omitempty"`
	Message           string `json:"message"`
}

type PaymentReq struct {
	PaymentID string `json:"payment_id"`
}

type CaptureResp struct {
	PaymentID string `json:"payment_id"`
	Captured  bool   `json:"captured"`
	Message   string `json:"message"`
}

type VoidResp struct {
	PaymentID string `json:"payment_id"`
	Voided    bool   `json:"voided"`
	Message   string `json:"message"`
}

type StockReq struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type DeductResp struct {
	ProductID      string `json:"product_id"`
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	RemainingStock int    `json:"remaining_stock"`
}

type RollbackResp struct {
	ProductID    string `json:"product_id"`
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	CurrentStock int    `json:"current_stock"`
}

type ErrorResp struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
