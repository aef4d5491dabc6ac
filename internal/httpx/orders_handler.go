package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/idempotency"
	"github.com/ariefcatur/go-saga-orders/internal/logx"
	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/ariefcatur/go-saga-orders/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"

type CreateOrderReq struct {
	Buyer struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"buyer"`
	OrderItem struct {
		ProductID   string `json:"product_id"`
		ProductName string `json:"product_name"`
		Quantity    int    `json:"quantity"`
	} `json:"order_item"`
	Payment struct {
		Method     string          `json:"method"`
		Amount     decimal.Decimal `json:"amount"`
		Currency   string          `json:"currency"`
		CardNumber string          `json:"card_number"`
		ExpiryDate string          `json:"expiry_date"`
		CVV        string          `json:"cvv"`
	} `json:"payment"`
}

type CreateOrderResp struct {
	OrderID    string        `json:"order_id"`
	Status     orders.Status `json:"status"`
	Message    string        `json:"message"`
	CreatedAt  time.Time     `json:"created_at"`
	Idempotent bool          `json:"idempotent"`
}

type OrderCreator interface {
	Execute(ctx context.Context, cmd idempotency.CreateOrderCommand) (idempotency.Response, error)
}

type OrderFinder interface {
	FindByID(ctx context.Context, id string) (*orders.Order, error)
}

type StatusCache interface {
	Get(ctx context.Context, orderID string) (redisx.CachedStatus, bool, error)
	Put(ctx context.Context, s redisx.CachedStatus) error
}

type OrdersHandler struct {
	Orders OrderCreator
	Finder OrderFinder
	Cache  StatusCache // optional
	Log    *zap.Logger
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/api/v1/orders", h.createOrder)
	r.Get("/api/v1/orders/{id}", h.getOrder)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	log := logx.OrNop(h.Log)
	var req CreateOrderReq
	if err := decode(r, &req); err != nil {
		writeError(w, log, err)
		return
	}
	key := r.Header.Get(HeaderIdempotencyKey)
	if key == "" {
		key = uuid.NewString()
	}
	cmd, err := toCommand(key, req)
	if err != nil {
		writeError(w, log, err)
		return
	}

	// saga tidak ikut batal walau client putus; tiap call ke port dibatasi timeout client
	ctx := context.WithoutCancel(r.Context())
	resp, err := h.Orders.Execute(ctx, cmd)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, createdStatus(resp.Status), CreateOrderResp{
		OrderID:    resp.OrderID,
		Status:     resp.Status,
		Message:    resp.Message,
		CreatedAt:  resp.CreatedAt,
		Idempotent: resp.Replayed,
	})
}

func toCommand(key string, req CreateOrderReq) (idempotency.CreateOrderCommand, error) {
	buyer, err := orders.NewBuyer(req.Buyer.Name, req.Buyer.Email)
	if err != nil {
		return idempotency.CreateOrderCommand{}, err
	}
	item, err := orders.NewItem(req.OrderItem.ProductID, req.OrderItem.ProductName, req.OrderItem.Quantity)
	if err != nil {
		return idempotency.CreateOrderCommand{}, err
	}
	money, err := orders.NewMoney(req.Payment.Amount, req.Payment.Currency)
	if err != nil {
		return idempotency.CreateOrderCommand{}, err
	}
	card, err := orders.NewPaymentInfo(req.Payment.Method, req.Payment.CardNumber, req.Payment.ExpiryDate, req.Payment.CVV)
	if err != nil {
		return idempotency.CreateOrderCommand{}, err
	}
	return idempotency.NewCreateOrderCommand(key, buyer, item, money, card)
}

func createdStatus(s orders.Status) int {
	switch s {
	case orders.StatusCompleted:
		return http.StatusCreated
	case orders.StatusFailed, orders.StatusRollbackCompleted:
		return http.StatusUnprocessableEntity
	}
	return http.StatusAccepted
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	log := logx.OrNop(h.Log)
	orderID := chi.URLParam(r, "id")
	if !orders.ValidOrderID(orderID) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "VALIDATION_ERROR", "message": "malformed order id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	if h.Cache != nil {
		if s, ok, err := h.Cache.Get(ctx, orderID); err == nil && ok {
			writeJSON(w, http.StatusOK, s)
			return
		} else if err != nil {
			log.Warn("status cache read", zap.String("order_id", orderID), zap.Error(err))
		}
	}

	// 2) fallback DB
	o, err := h.Finder.FindByID(ctx, orderID)
	if err != nil {
		writeError(w, log, err)
		return
	}
	if o == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "NOT_FOUND", "message": "order " + orderID + " not found"})
		return
	}
	s := redisx.CachedStatus{
		OrderID:       o.ID(),
		Status:        o.Status(),
		PaymentID:     o.PaymentID(),
		FailureReason: o.FailureReason(),
		UpdatedAt:     o.UpdatedAt(),
	}
	if h.Cache != nil {
		if err := h.Cache.Put(ctx, s); err != nil {
			log.Warn("status cache write", zap.String("order_id", orderID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, s)
}
