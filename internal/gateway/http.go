package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/logx"
	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// NewHTTPClient returns a client with a fixed per-call timeout and trace
// propagation on every outbound request. There is no retry layer on top.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// statusError is a non-2xx reply. 4xx replies are answers, 5xx are outages.
type statusError struct {
	Code    int
	Message string
}

func (e *statusError) Error() string { return fmt.Sprintf("http %d: %s", e.Code, e.Message) }

func (e *statusError) clientSide() bool { return e.Code >= 400 && e.Code < 500 }

func postJSON(ctx context.Context, hc *http.Client, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var er ErrorResp
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &er) != nil || er.Message == "" {
			er.Message = strings.TrimSpace(string(raw))
		}
		return &statusError{Code: resp.StatusCode, Message: er.Message}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// PaymentClient talks to the payment service over REST.
type PaymentClient struct {
	BaseURL string
	HTTP    *http.Client
	Log     *zap.Logger
}

func (c *PaymentClient) Authorize(ctx context.Context, req saga.AuthorizeRequest) (saga.Authorization, error) {
	var out AuthorizeResp
	err := postJSON(ctx, c.HTTP, c.url("/authorize"), AuthorizeReq{
		OrderID:    req.OrderID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		CardNumber: req.Card.CardNumber,
		ExpiryDate: req.Card.ExpiryDate,
		CVV:        req.Card.CVV,
	}, &out)
	if err != nil {
		if se, ok := err.(*statusError); ok && se.clientSide() {
			return saga.Authorization{DeclineReason: se.Message}, nil
		}
		logx.OrNop(c.Log).Error("payment authorize call failed", zap.String("order_id", req.OrderID), zap.Error(err))
		return saga.Authorization{}, err
	}
	if !out.Authorized {
		return saga.Authorization{PaymentID: out.PaymentID, DeclineReason: out.Message}, nil
	}
	return saga.Authorization{Approved: true, PaymentID: out.PaymentID, AuthCode: out.AuthorizationCode}, nil
}

func (c *PaymentClient) Capture(ctx context.Context, paymentID string) (saga.Outcome, error) {
	var out CaptureResp
	if err := postJSON(ctx, c.HTTP, c.url("/capture"), PaymentReq{PaymentID: paymentID}, &out); err != nil {
		return c.failed("capture", paymentID, err)
	}
	return saga.Outcome{Succeeded: out.Captured, Reason: reason(out.Captured, out.Message)}, nil
}

func (c *PaymentClient) Void(ctx context.Context, paymentID string) (saga.Outcome, error) {
	var out VoidResp
	if err := postJSON(ctx, c.HTTP, c.url("/void"), PaymentReq{PaymentID: paymentID}, &out); err != nil {
		return c.failed("void", paymentID, err)
	}
	return saga.Outcome{Succeeded: out.Voided, Reason: reason(out.Voided, out.Message)}, nil
}

func (c *PaymentClient) failed(op, paymentID string, err error) (saga.Outcome, error) {
	if se, ok := err.(*statusError); ok && se.clientSide() {
		return saga.Outcome{Reason: se.Message}, nil
	}
	logx.OrNop(c.Log).Error("payment "+op+" call failed", zap.String("payment_id", paymentID), zap.Error(err))
	return saga.Outcome{}, err
}

func (c *PaymentClient) url(p string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/api/v1/payments" + p
}

// InventoryClient talks to the inventory service over REST.
type InventoryClient struct {
	BaseURL string
	HTTP    *http.Client
	Log     *zap.Logger
}

func (c *InventoryClient) Deduct(ctx context.Context, orderID, productID string, qty int) (saga.StockReply, error) {
	var out DeductResp
	if err := postJSON(ctx, c.HTTP, c.url("/deduct"), StockReq{orderID, productID, qty}, &out); err != nil {
		return c.failed("deduct", orderID, err)
	}
	return saga.StockReply{Success: out.Success, Stock: out.RemainingStock, Message: out.Message}, nil
}

func (c *InventoryClient) Rollback(ctx context.Context, orderID, productID string, qty int) (saga.StockReply, error) {
	var out RollbackResp
	if err := postJSON(ctx, c.HTTP, c.url("/rollback"), StockReq{orderID, productID, qty}, &out); err != nil {
		return c.failed("rollback", orderID, err)
	}
	return saga.StockReply{Success: out.Success, Stock: out.CurrentStock, Message: out.Message}, nil
}

func (c *InventoryClient) failed(op, orderID string, err error) (saga.StockReply, error) {
	if se, ok := err.(*statusError); ok && se.clientSide() {
		return saga.StockReply{Message: se.Message}, nil
	}
	logx.OrNop(c.Log).Error("inventory "+op+" call failed", zap.String("order_id", orderID), zap.Error(err))
	return saga.StockReply{}, err
}

func (c *InventoryClient) url(p string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/api/v1/inventory" + p
}

func reason(ok bool, msg string) string {
	if ok {
		return ""
	}
	return msg
}
