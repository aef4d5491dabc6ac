package gateway

import (
	"context"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"github.com/ariefcatur/go-saga-orders/internal/inventory"
	"github.com/ariefcatur/go-saga-orders/internal/payments"
	"github.com/ariefcatur/go-saga-orders/internal/saga"
)

// LocalPayments serves the saga's payment port from an in-process service.
// Used when the order API runs all three services in one binary.
type LocalPayments struct{ Service *payments.Service }

func (l LocalPayments) Authorize(ctx context.Context, req saga.AuthorizeRequest) (saga.Authorization, error) {
	res, err := l.Service.Authorize(ctx, payments.AuthorizeCommand{
		OrderID:    req.OrderID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		CardNumber: req.Card.CardNumber,
		ExpiryDate: req.Card.ExpiryDate,
		CVV:        req.Card.CVV,
	})
	if err != nil {
		if apperr.Business(err) {
			return saga.Authorization{DeclineReason: err.Error()}, nil
		}
		return saga.Authorization{}, err
	}
	if !res.Succeeded {
		return saga.Authorization{PaymentID: res.PaymentID, DeclineReason: res.Message}, nil
	}
	return saga.Authorization{Approved: true, PaymentID: res.PaymentID, AuthCode: res.AuthCode}, nil
}

func (l LocalPayments) Capture(ctx context.Context, paymentID string) (saga.Outcome, error) {
	return outcome(l.Service.Capture(ctx, paymentID))
}

func (l LocalPayments) Void(ctx context.Context, paymentID string) (saga.Outcome, error) {
	return outcome(l.Service.Void(ctx, paymentID))
}

func outcome(res payments.Result, err error) (saga.Outcome, error) {
	if err != nil {
		if apperr.Business(err) {
			return saga.Outcome{Reason: err.Error()}, nil
		}
		return saga.Outcome{}, err
	}
	return saga.Outcome{Succeeded: res.Succeeded, Reason: reason(res.Succeeded, res.Message)}, nil
}

// LocalStock serves the saga's stock port from an in-process ledger.
type LocalStock struct{ Ledger *inventory.Ledger }

func (l LocalStock) Deduct(ctx context.Context, orderID, productID string, qty int) (saga.StockReply, error) {
	return StockReply(l.Ledger.DeductStock(ctx, orderID, productID, qty))
}

func (l LocalStock) Rollback(ctx context.Context, orderID, productID string, qty int) (saga.StockReply, error) {
	return StockReply(l.Ledger.RollbackStock(ctx, orderID, productID, qty))
}

// StockReply folds a ledger result into the port reply. Business errors
// become an unsuccessful reply; anything else stays an error.
func StockReply(res inventory.Result, err error) (saga.StockReply, error) {
	if err != nil {
		if apperr.Business(err) {
			return saga.StockReply{Stock: res.Quantity, Message: err.Error()}, nil
		}
		return saga.StockReply{}, err
	}
	msg := "Stock updated"
	if res.Replayed {
		msg = "Already applied"
	}
	return saga.StockReply{Success: true, Stock: res.Quantity, Message: msg}, nil
}
