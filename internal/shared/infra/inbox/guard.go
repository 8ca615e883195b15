package inbox

import (
	"context"
	"time"

	"github.com/davicafu/hexashop/internal/shared/infra/platform/cache"
	"github.com/google/uuid"
)

// Guard recuerda los message_id ya procesados por un consumidor.
// Es solo una optimización: la idempotencia real la dan las comprobaciones de dominio.
type Guard struct {
	cache    cache.Cache
	consumer string
	ttl      time.Duration
}

func NewGuard(c cache.Cache, consumer string, ttl time.Duration) *Guard {
	return &Guard{cache: c, consumer: consumer, ttl: ttl}
}

func (g *Guard) key(id uuid.UUID) string {
	return "inbox:" + g.consumer + ":" + id.String()
}

// Seen indica si el mensaje ya se procesó con éxito.
func (g *Guard) Seen(ctx context.Context, id uuid.UUID) (bool, error) {
	var processedAt time.Time
	return g.cache.Get(ctx, g.key(id), &processedAt)
}

// MarkProcessed registra el mensaje. Devuelve false si ya estaba registrado.
func (g *Guard) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return g.cache.SetIfAbsent(ctx, g.key(id), at.UTC(), g.ttl)
}
