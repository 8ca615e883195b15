package outbox

import (
	"context"
	"time"

	"github.com/davicafu/hexashop/internal/shared/domain"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Cleaner borra periódicamente los registros Processed más viejos que Retention.
type Cleaner struct {
	name      string
	store     domain.OutboxStore
	retention time.Duration
	interval  time.Duration
	clock     clockwork.Clock
	metrics   *Metrics
	log       *zap.Logger
}

func NewCleaner(name string, store domain.OutboxStore, retention, interval time.Duration, clock clockwork.Clock, metrics *Metrics, log *zap.Logger) *Cleaner {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Cleaner{
		name:      name,
		store:     store,
		retention: retention,
		interval:  interval,
		clock:     clock,
		metrics:   metrics,
		log:       log,
	}
}

func (c *Cleaner) Start(ctx context.Context) {
	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if _, err := c.RunOnce(ctx); err != nil && ctx.Err() == nil {
				c.log.Warn("⚠️ Limpieza de outbox fallida", zap.String("context", c.name), zap.Error(err))
			}
		}
	}
}

// RunOnce borra lo procesado antes de now - retention. Pending y Failed no se tocan.
func (c *Cleaner) RunOnce(ctx context.Context) (int64, error) {
	threshold := c.clock.Now().UTC().Add(-c.retention)
	n, err := c.store.DeleteProcessedOlderThan(ctx, threshold)
	if err != nil {
		return 0, err
	}
	c.metrics.cleaned(c.name, n)
	if n > 0 {
		c.log.Info("🧹 Registros de outbox eliminados",
			zap.String("context", c.name),
			zap.Int64("deleted", n),
			zap.Time("threshold", threshold),
		)
	}
	return n, nil
}
