package gateway

import (
	"github.com/ariefcatur/go-saga-orders/internal/config"
	"github.com/ariefcatur/go-saga-orders/internal/inventory"
	"github.com/ariefcatur/go-saga-orders/internal/payments"
	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Ports picks how the saga reaches payment and inventory: in-process against
// the shared database, or over REST.
func Ports(cfg config.Config, db *pgxpool.Pool, log *zap.Logger) (saga.PaymentGateway, saga.StockService) {
	if cfg.Ports == config.PortsLocal {
		log.Info("saga ports in-process")
		svc := &payments.Service{
			Repo:     &payments.PgRepo{DB: db},
			Acquirer: payments.MockAcquirer{Latency: cfg.AcquirerLatency},
			Log:      log.Named("payments"),
		}
		ledger := &inventory.Ledger{Store: &inventory.PgStore{DB: db}, Log: log.Named("inventory")}
		return LocalPayments{Service: svc}, LocalStock{Ledger: ledger}
	}

	log.Info("saga ports over http",
		zap.String("payment_url", cfg.PaymentURL),
		zap.String("inventory_url", cfg.InventoryURL))
	hc := NewHTTPClient(cfg.PortTimeout)
	return &PaymentClient{BaseURL: cfg.PaymentURL, HTTP: hc, Log: log},
		&InventoryClient{BaseURL: cfg.InventoryURL, HTTP: hc, Log: log}
}
