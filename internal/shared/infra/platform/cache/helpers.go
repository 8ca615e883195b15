package cache

import (
	"context"
	"time"

	"github.com/davicafu/hexashop/internal/shared/infra/utils"
	"go.uber.org/zap"
)

const asyncTimeout = 200 * time.Millisecond

// AsyncCacheSet actualiza caché en background sin bloquear.
// El contexto de la petición puede estar ya cancelado, por eso se desacopla con WithoutCancel.
func AsyncCacheSet(ctx context.Context, cache Cache, key string, value any, ttl time.Duration, log *zap.Logger) {
	if cache == nil {
		return
	}
	go func() {
		cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), asyncTimeout)
		defer cancel()
		utils.BestEffort("cache.set", cache.Set(cacheCtx, key, value, ttl)).Log(log, zap.String("key", key))
	}()
}

// CacheDelete invalida una clave. Es síncrono para que una lectura posterior no vea el valor viejo.
func CacheDelete(ctx context.Context, cache Cache, key string, log *zap.Logger) {
	if cache == nil {
		return
	}
	cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), asyncTimeout)
	defer cancel()
	utils.BestEffort("cache.delete", cache.Delete(cacheCtx, key)).Log(log, zap.String("key", key))
}
