package payments

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"github.com/ariefcatur/go-saga-orders/internal/logx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Acquirer is the card network the payment service settles against.
type Acquirer interface {
	Authorize(ctx context.Context, amount decimal.Decimal, currency, cardNumber, expiry, cvv string) (AcquirerAuth, error)
	Capture(ctx context.Context, authCode string, amount decimal.Decimal) (AcquirerResult, error)
	Void(ctx context.Context, authCode string) (AcquirerResult, error)
}

type AcquirerAuth struct {
	Approved      bool
	AuthCode      string
	DeclineReason string
}

type AcquirerResult struct {
	Succeeded bool
	Reason    string
}

type Repository interface {
	Save(ctx context.Context, p *Payment) error
	FindByID(ctx context.Context, id string) (*Payment, error)
}

type AuthorizeCommand struct {
	OrderID    string
	Amount     decimal.Decimal
	Currency   string
	CardNumber string
	ExpiryDate string
	CVV        string
}

type Result struct {
	PaymentID string
	Succeeded bool
	AuthCode  string
	Message   string
}

// Service implements the authorize / capture / void use cases.
type Service struct {
	Repo     Repository
	Acquirer Acquirer
	Log      *zap.Logger
}

func (s *Service) Authorize(ctx context.Context, cmd AuthorizeCommand) (Result, error) {
	log := logx.OrNop(s.Log)
	money, err := NewMoney(cmd.Amount, cmd.Currency)
	if err != nil {
		return Result{}, err
	}
	card, err := CardInfoFromNumber(cmd.CardNumber, cmd.ExpiryDate)
	if err != nil {
		return Result{}, err
	}
	p, err := New(cmd.OrderID, money, card)
	if err != nil {
		return Result{}, err
	}

	resp, err := s.Acquirer.Authorize(ctx, cmd.Amount, cmd.Currency, cmd.CardNumber, cmd.ExpiryDate, cmd.CVV)
	if err != nil {
		// acquirer unreachable = decline
		resp = AcquirerAuth{DeclineReason: "acquirer unavailable: " + err.Error()}
	}
	if resp.Approved {
		err = p.Authorize(resp.AuthCode)
	} else {
		err = p.FailAuthorization(resp.DeclineReason)
	}
	if err != nil {
		return Result{}, err
	}
	if err := s.Repo.Save(ctx, p); err != nil {
		return Result{}, fmt.Errorf("save payment: %w", err)
	}

	log.Info("payment authorization processed",
		zap.String("order_id", cmd.OrderID),
		zap.String("payment_id", p.ID()),
		zap.Bool("approved", resp.Approved),
		zap.String("card", card.Masked()))
	if !resp.Approved {
		return Result{PaymentID: p.ID(), Message: resp.DeclineReason}, nil
	}
	return Result{PaymentID: p.ID(), Succeeded: true, AuthCode: resp.AuthCode, Message: "Payment authorized"}, nil
}

func (s *Service) Capture(ctx context.Context, paymentID string) (Result, error) {
	p, err := s.load(ctx, paymentID)
	if err != nil {
		return Result{}, err
	}
	if p.Status() != StatusAuthorized {
		return Result{}, &apperr.TransitionError{Aggregate: "payment", From: string(p.Status()), To: string(StatusCaptured)}
	}

	resp, err := s.Acquirer.Capture(ctx, p.AuthCode(), p.Money().Amount)
	if err != nil {
		resp = AcquirerResult{Reason: "acquirer unavailable: " + err.Error()}
	}
	if resp.Succeeded {
		err = p.Capture()
	} else {
		err = p.FailCapture(resp.Reason)
	}
	if err != nil {
		return Result{}, err
	}
	if err := s.Repo.Save(ctx, p); err != nil {
		return Result{}, fmt.Errorf("save payment: %w", err)
	}

	logx.OrNop(s.Log).Info("payment capture processed",
		zap.String("payment_id", p.ID()), zap.Bool("captured", resp.Succeeded))
	if !resp.Succeeded {
		return Result{PaymentID: p.ID(), Message: resp.Reason}, nil
	}
	return Result{PaymentID: p.ID(), Succeeded: true, Message: "Payment captured"}, nil
}

func (s *Service) Void(ctx context.Context, paymentID string) (Result, error) {
	p, err := s.load(ctx, paymentID)
	if err != nil {
		return Result{}, err
	}
	if p.Status() != StatusAuthorized {
		return Result{}, &apperr.TransitionError{Aggregate: "payment", From: string(p.Status()), To: string(StatusVoided)}
	}

	resp, err := s.Acquirer.Void(ctx, p.AuthCode())
	if err != nil {
		resp = AcquirerResult{Reason: "acquirer unavailable: " + err.Error()}
	}
	if !resp.Succeeded {
		logx.OrNop(s.Log).Warn("payment void rejected", zap.String("payment_id", p.ID()), zap.String("reason", resp.Reason))
		return Result{PaymentID: p.ID(), Message: resp.Reason}, nil
	}
	if err := p.Void(); err != nil {
		return Result{}, err
	}
	if err := s.Repo.Save(ctx, p); err != nil {
		return Result{}, fmt.Errorf("save payment: %w", err)
	}
	logx.OrNop(s.Log).Info("payment voided", zap.String("payment_id", p.ID()))
	return Result{PaymentID: p.ID(), Succeeded: true, Message: "Payment voided"}, nil
}

func (s *Service) Get(ctx context.Context, paymentID string) (*Payment, error) {
	return s.load(ctx, paymentID)
}

func (s *Service) load(ctx context.Context, paymentID string) (*Payment, error) {
	if apperr.Blank(paymentID) {
		return nil, apperr.Validation("payment id is required")
	}
	p, err := s.Repo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("payment", paymentID)
	}
	return p, nil
}
