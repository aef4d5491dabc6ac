package projector

import (
	"context"
	"fmt"

	kafkax "github.com/ariefcatur/go-saga-orders/internal/kafka"
	"github.com/ariefcatur/go-saga-orders/internal/logx"
	"github.com/ariefcatur/go-saga-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// StatusProjector keeps the order status cache in step with the lifecycle
// topic. Each event is applied at most once per consumer name.
type StatusProjector struct {
	RDB      redis.Cmdable
	Cache    redisx.StatusCache
	Consumer string
	Log      *zap.Logger
}

// Handle is a kafka.Handler. Undecodable messages are logged and committed;
// a cache write failure returns the error so the consumer retries the
// message before anything later on its partition is committed.
func (p *StatusProjector) Handle(ctx context.Context, m kafka.Message) error {
	log := logx.OrNop(p.Log)
	env, payload, err := kafkax.DecodeOrderStatus(m.Value)
	if err != nil {
		log.Warn("skip undecodable event", zap.Int64("offset", m.Offset), zap.ByteString("key", m.Key), zap.Error(err))
		return nil
	}

	first, err := redisx.FirstSeen(ctx, p.RDB, p.Consumer, env.EventID)
	if err != nil {
		return fmt.Errorf("dedup %s: %w", env.EventID, err)
	}
	if !first {
		log.Debug("duplicate event", zap.String("event_id", env.EventID))
		return nil
	}

	err = p.Cache.Put(ctx, redisx.CachedStatus{
		OrderID:       payload.OrderID,
		Status:        payload.Status,
		PaymentID:     payload.PaymentID,
		FailureReason: payload.Reason,
		UpdatedAt:     env.OccurredAt,
	})
	if err != nil {
		// lepas tanda dedup supaya redelivery diproses ulang
		if ferr := redisx.Forget(ctx, p.RDB, p.Consumer, env.EventID); ferr != nil {
			log.Warn("dedup release failed", zap.String("event_id", env.EventID), zap.Error(ferr))
		}
		return fmt.Errorf("project %s: %w", payload.OrderID, err)
	}
	log.Info("order status projected",
		zap.String("order_id", payload.OrderID),
		zap.String("status", string(payload.Status)),
		zap.String("event_type", env.EventType))
	return nil
}
