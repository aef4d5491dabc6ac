package httpx

import (
	"errors"
	"net/http"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"github.com/ariefcatur/go-saga-orders/internal/gateway"
	"github.com/ariefcatur/go-saga-orders/internal/inventory"
	"github.com/ariefcatur/go-saga-orders/internal/logx"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type InventoryHandler struct {
	Ledger *inventory.Ledger
	Log    *zap.Logger
}

type ProductView struct {
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	Stock     int       `json:"stock"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *InventoryHandler) Register(r chi.Router) {
	r.Post("/api/v1/inventory/deduct", h.deduct)
	r.Post("/api/v1/inventory/rollback", h.rollback)
	r.Get("/api/v1/inventory/{productId}", h.get)
}

func (h *InventoryHandler) deduct(w http.ResponseWriter, r *http.Request) {
	log := logx.OrNop(h.Log)
	var req gateway.StockReq
	if err := decode(r, &req); err != nil {
		writeError(w, log, err)
		return
	}
	res, err := h.Ledger.DeductStock(r.Context(), req.OrderID, req.ProductID, req.Quantity)
	switch {
	case errors.Is(err, apperr.ErrInsufficientStock):
		// stok kurang = jawaban normal, bukan error HTTP
		writeJSON(w, http.StatusOK, gateway.DeductResp{ProductID: req.ProductID, Message: err.Error(), RemainingStock: res.Quantity})
	case err != nil:
		writeError(w, log, err)
	default:
		writeJSON(w, http.StatusOK, gateway.DeductResp{ProductID: req.ProductID, Success: true, Message: stockMessage(res), RemainingStock: res.Quantity})
	}
}

func (h *InventoryHandler) rollback(w http.ResponseWriter, r *http.Request) {
	log := logx.OrNop(h.Log)
	var req gateway.StockReq
	if err := decode(r, &req); err != nil {
		writeError(w, log, err)
		return
	}
	res, err := h.Ledger.RollbackStock(r.Context(), req.OrderID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, gateway.RollbackResp{ProductID: req.ProductID, Success: true, Message: stockMessage(res), CurrentStock: res.Quantity})
}

func (h *InventoryHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Ledger.Stock(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, logx.OrNop(h.Log), err)
		return
	}
	writeJSON(w, http.StatusOK, ProductView{ProductID: p.ID, Name: p.Name, Stock: p.Quantity, UpdatedAt: p.UpdatedAt})
}

func stockMessage(res inventory.Result) string {
	if res.Replayed {
		return "Already applied"
	}
	return "Stock updated"
}
