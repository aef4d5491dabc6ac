package httpx

import (
	"net/http"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"github.com/ariefcatur/go-saga-orders/internal/gateway"
	"github.com/ariefcatur/go-saga-orders/internal/logx"
	"github.com/ariefcatur/go-saga-orders/internal/payments"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type PaymentsHandler struct {
	Service *payments.Service
	Log     *zap.Logger
}

type PaymentView struct {
	PaymentID     string          `json:"payment_id"`
	OrderID       string          `json:"order_id"`
	Status        payments.Status `json:"status"`
	Amount        string          `json:"amount"`
	Currency      string          `json:"currency"`
	Card          string          `json:"card"`
	FailureReason string          `json:"failure_reason,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (h *PaymentsHandler) Register(r chi.Router) {
	r.Post("/api/v1/payments/authorize", h.authorize)
	r.Post("/api/v1/payments/capture", h.capture)
	r.Post("/api/v1/payments/void", h.void)
	r.Get("/api/v1/payments/{id}", h.get)
}

func (h *PaymentsHandler) authorize(w http.ResponseWriter, r *http.Request) {
	log := logx.OrNop(h.Log)
	var req gateway.AuthorizeReq
	if err := decode(r, &req); err != nil {
		writeError(w, log, err)
		return
	}
	if apperr.Blank(req.OrderID) {
		writeError(w, log, apperr.Validation("order_id is required"))
		return
	}
	if !req.Amount.IsPositive() {
		writeError(w, log, apperr.Validation("amount must be positive"))
		return
	}
	res, err := h.Service.Authorize(r.Context(), payments.AuthorizeCommand{
		OrderID:    req.OrderID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		CardNumber: req.CardNumber,
		ExpiryDate: req.ExpiryDate,
		CVV:        req.CVV,
	})
	if err != nil {
		writeError(w, log, err)
		return
	}
	out := gateway.AuthorizeResp{PaymentID: res.PaymentID, Authorized: res.Succeeded, Message: res.Message}
	if res.Succeeded {
		out.AuthorizationCode = res.AuthCode
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *PaymentsHandler) capture(w http.ResponseWriter, r *http.Request) {
	log := logx.OrNop(h.Log)
	var req gateway.PaymentReq
	if err := decode(r, &req); err != nil {
		writeError(w, log, err)
		return
	}
	res, err := h.Service.Capture(r.Context(), req.PaymentID)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, gateway.CaptureResp{PaymentID: req.PaymentID, Captured: res.Succeeded, Message: res.Message})
}

func (h *PaymentsHandler) void(w http.ResponseWriter, r *http.Request) {
	log := logx.OrNop(h.Log)
	var req gateway.PaymentReq
	if err := decode(r, &req); err != nil {
		writeError(w, log, err)
		return
	}
	res, err := h.Service.Void(r.Context(), req.PaymentID)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, gateway.VoidResp{PaymentID: req.PaymentID, Voided: res.Succeeded, Message: res.Message})
}

func (h *PaymentsHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, logx.OrNop(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, PaymentView{
		PaymentID:     p.ID(),
		OrderID:       p.OrderID(),
		Status:        p.Status(),
		Amount:        p.Money().Amount.StringFixed(2),
		Currency:      p.Money().Currency,
		Card:          p.Card().Masked(),
		FailureReason: p.FailureReason(),
		UpdatedAt:     p.Snapshot().UpdatedAt,
	})
}
