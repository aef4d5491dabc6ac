package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"github.com/ariefcatur/go-saga-orders/internal/gateway"
	"github.com/ariefcatur/go-saga-orders/internal/logx"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("invalid json: %v", err)
	}
	return nil
}

// writeError maps the error taxonomy onto status codes. Unknown errors are
// logged and hidden behind a generic 500.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	code, kind := http.StatusInternalServerError, "INTERNAL_ERROR"
	switch {
	case errors.Is(err, apperr.ErrValidation):
		code, kind = http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, apperr.ErrNotFound):
		code, kind = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, apperr.ErrConflict):
		code, kind = http.StatusConflict, "CONFLICT"
	case errors.Is(err, apperr.ErrInvalidStateTransition):
		code, kind = http.StatusConflict, "INVALID_STATE_TRANSITION"
	case errors.Is(err, apperr.ErrInsufficientStock):
		code, kind = http.StatusUnprocessableEntity, "INSUFFICIENT_STOCK"
	}
	msg := err.Error()
	if code == http.StatusInternalServerError {
		logx.OrNop(log).Error("request failed", zap.Error(err))
		msg = "An unexpected error occurred"
	}
	writeJSON(w, code, gateway.ErrorResp{Error: kind, Message: msg})
}
