package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/inventory"
	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/ariefcatur/go-saga-orders/internal/payments"
	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func card(t *testing.T, number string) orders.PaymentInfo {
	t.Helper()
	pi, err := orders.NewPaymentInfo("CREDIT_CARD", number, "12/29", "123")
	require.NoError(t, err)
	return pi
}

func TestPaymentClient(t *testing.T) {
	var got AuthorizeReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/payments/authorize":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_ = json.NewEncoder(w).Encode(AuthorizeResp{PaymentID: "PAY-1", Authorized: true, AuthorizationCode: "AUTH-1"})
		case "/api/v1/payments/capture":
			_ = json.NewEncoder(w).Encode(CaptureResp{PaymentID: "PAY-1", Message: "Capture failed - acquirer error"})
		case "/api/v1/payments/void":
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(ErrorResp{Error: "CONFLICT", Message: "payment already voided"})
		}
	}))
	defer srv.Close()

	c := &PaymentClient{BaseURL: srv.URL + "/", HTTP: NewHTTPClient(time.Second)}
	ctx := context.Background()

	auth, err := c.Authorize(ctx, saga.AuthorizeRequest{
		OrderID: "ORD-1", Amount: decimal.RequireFromString("10.50"), Currency: "EUR", Card: card(t, "4111111111111111"),
	})
	require.NoError(t, err)
	assert.Equal(t, saga.Authorization{Approved: true, PaymentID: "PAY-1", AuthCode: "AUTH-1"}, auth)
	assert.Equal(t, "ORD-1", got.OrderID)
	assert.True(t, decimal.RequireFromString("10.5").Equal(got.Amount))
	assert.Equal(t, "4111111111111111", got.CardNumber)

	out, err := c.Capture(ctx, "PAY-1")
	require.NoError(t, err)
	assert.False(t, out.Succeeded)
	assert.Equal(t, "Capture failed - acquirer error", out.Reason)

	out, err = c.Void(ctx, "PAY-1")
	require.NoError(t, err, "4xx is an answer, not an outage")
	assert.False(t, out.Succeeded)
	assert.Equal(t, "payment already voided", out.Reason)
}

func TestInventoryClientOutageAndTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/inventory/rollback" {
			time.Sleep(200 * time.Millisecond)
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := &InventoryClient{BaseURL: srv.URL, HTTP: NewHTTPClient(50 * time.Millisecond)}

	_, err := c.Deduct(context.Background(), "ORD-1", "P-1", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 500: boom")

	_, err = c.Rollback(context.Background(), "ORD-1", "P-1", 1)
	assert.Error(t, err)
}

func TestInventoryClientDeduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req StockReq
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(DeductResp{ProductID: req.ProductID, Success: req.Quantity <= 10, RemainingStock: 10 - req.Quantity, Message: "ok"})
	}))
	defer srv.Close()

	c := &InventoryClient{BaseURL: srv.URL, HTTP: NewHTTPClient(time.Second)}
	reply, err := c.Deduct(context.Background(), "ORD-1", "P-1", 1)
	require.NoError(t, err)
	assert.Equal(t, saga.StockReply{Success: true, Stock: 9, Message: "ok"}, reply)
}

type world struct {
	repo   *orders.MemoryRepo
	ledger *inventory.Ledger
	saga   *saga.Orchestrator
}

func newWorld(t *testing.T, stock int) *world {
	t.Helper()
	store := inventory.NewMemoryStore()
	require.NoError(t, store.Upsert(context.Background(), inventory.Product{ID: "P-001", Name: "Keyboard", Quantity: stock}))
	ledger := &inventory.Ledger{Store: store}
	pay := &payments.Service{Repo: payments.NewMemoryRepo(), Acquirer: payments.MockAcquirer{}}
	repo := orders.NewMemoryRepo()
	return &world{
		repo:   repo,
		ledger: ledger,
		saga:   saga.New(repo, LocalPayments{Service: pay}, LocalStock{Ledger: ledger}),
	}
}

func (w *world) run(t *testing.T, cardNumber string, qty int) (saga.Result, *orders.Order, int) {
	t.Helper()
	buyer, _ := orders.NewBuyer("Ana", "ana@example.com")
	item, err := orders.NewItem("P-001", "Keyboard", qty)
	require.NoError(t, err)
	money, _ := orders.NewMoney(decimal.NewFromInt(1200), "TWD")
	o, err := orders.New("key-"+cardNumber, buyer, item, money, card(t, cardNumber))
	require.NoError(t, err)
	require.NoError(t, w.repo.Save(context.Background(), o))

	res, err := w.saga.Execute(context.Background(), o)
	require.NoError(t, err)
	p, err := w.ledger.Stock(context.Background(), "P-001")
	require.NoError(t, err)
	return res, o, p.Quantity
}

func TestSagaEndToEnd(t *testing.T) {
	t.Run("authorize declines", func(t *testing.T) {
		res, o, stock := newWorld(t, 10).run(t, "4000000000000002", 1)
		assert.Equal(t, saga.StatusPaymentFailed, res.Status)
		assert.Equal(t, orders.StatusFailed, o.Status())
		assert.Equal(t, 10, stock)
	})

	t.Run("deduct fails on short stock", func(t *testing.T) {
		res, o, stock := newWorld(t, 10).run(t, "4111111111111111", 15)
		assert.Equal(t, saga.StatusInventoryFailed, res.Status)
		assert.Equal(t, orders.StatusRollbackCompleted, o.Status())
		assert.Contains(t, o.FailureReason(), "insufficient stock")
		assert.Equal(t, 10, stock)
	})

	t.Run("capture fails", func(t *testing.T) {
		w := newWorld(t, 10)
		res, o, stock := w.run(t, "5000000000000001", 1)
		assert.Equal(t, saga.StatusCaptureFailed, res.Status)
		assert.Equal(t, orders.StatusRollbackCompleted, o.Status())
		assert.Equal(t, 10, stock, "stock rolled back")
	})

	t.Run("all steps succeed", func(t *testing.T) {
		res, o, stock := newWorld(t, 10).run(t, "4111111111111111", 1)
		assert.Equal(t, saga.StatusCompleted, res.Status)
		assert.Equal(t, orders.StatusCompleted, o.Status())
		assert.Equal(t, 9, stock)
	})
}

func TestVoidedPaymentAfterInventoryFailure(t *testing.T) {
	store := inventory.NewMemoryStore()
	require.NoError(t, store.Upsert(context.Background(), inventory.Product{ID: "P-001", Name: "Keyboard", Quantity: 0}))
	payRepo := payments.NewMemoryRepo()
	pay := &payments.Service{Repo: payRepo, Acquirer: payments.MockAcquirer{}}
	repo := orders.NewMemoryRepo()
	s := saga.New(repo, LocalPayments{Service: pay}, LocalStock{Ledger: &inventory.Ledger{Store: store}})

	buyer, _ := orders.NewBuyer("Ana", "ana@example.com")
	item, _ := orders.NewItem("P-001", "Keyboard", 1)
	money, _ := orders.NewMoney(decimal.NewFromInt(1200), "TWD")
	o, err := orders.New("key-void", buyer, item, money, card(t, "4111111111111111"))
	require.NoError(t, err)

	_, err = s.Execute(context.Background(), o)
	require.NoError(t, err)

	p, err := pay.Get(context.Background(), o.PaymentID())
	require.NoError(t, err)
	assert.Equal(t, payments.StatusVoided, p.Status())
	assert.Empty(t, p.AuthCode())
}
