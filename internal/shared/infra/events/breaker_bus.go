package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	sharedBus "github.com/davicafu/hexashop/internal/shared/infra/platform/bus"
)

type BreakerConfig struct {
	FailureThreshold uint32        // fallos consecutivos que abren el circuito
	OpenTimeout      time.Duration // tiempo abierto antes de probar de nuevo
}

// BreakerBus envuelve un EventBus con un circuit breaker. Con el circuito abierto
// Publish devuelve sharedBus.ErrUnavailable sin tocar el broker.
type BreakerBus struct {
	next sharedBus.EventBus
	cb   *gobreaker.CircuitBreaker[struct{}]
}

var _ sharedBus.EventBus = (*BreakerBus)(nil)

func NewBreakerBus(name string, next sharedBus.EventBus, cfg BreakerConfig, log *zap.Logger) *BreakerBus {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	return &BreakerBus{
		next: next,
		cb: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			// un apagado no dice nada de la salud del broker
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("🔌 Circuit breaker del bus cambió de estado",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
	}
}

func (b *BreakerBus) Publish(ctx context.Context, msg sharedBus.Message) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Publish(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", sharedBus.ErrUnavailable, err)
	}
	return err
}

// State expone el estado actual (tests y logs).
func (b *BreakerBus) State() gobreaker.State {
	return b.cb.State()
}
