package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	sharedBus "github.com/davicafu/hexashop/internal/shared/infra/platform/bus"
	"github.com/davicafu/hexashop/internal/shared/infra/utils"
)

var ErrSubscriberFull = errors.New("in-memory subscriber buffer full")

// InMemoryEventBus reparte mensajes por topic a canales suscritos. Para ejecución local.
// Si el buffer de un suscriptor está lleno, Publish falla y el outbox lo reintenta:
// nada se descarta en silencio.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan sharedBus.Message
}

var _ sharedBus.EventBus = (*InMemoryEventBus)(nil)

func NewInMemoryEventBus() *InMemoryEventBus {
	return &InMemoryEventBus{subscribers: make(map[string][]chan sharedBus.Message)}
}

func (b *InMemoryEventBus) Publish(ctx context.Context, msg sharedBus.Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers[msg.Topic] {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		default:
			return fmt.Errorf("%w: topic %s", ErrSubscriberFull, msg.Topic)
		}
	}
	return nil
}

// Subscribe devuelve un canal que recibe los mensajes de los topics indicados.
func (b *InMemoryEventBus) Subscribe(bufferSize int, topics ...string) <-chan sharedBus.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan sharedBus.Message, bufferSize)
	for _, t := range topics {
		b.subscribers[t] = append(b.subscribers[t], ch)
	}
	return ch
}

// ChannelConsumer consume un canal del bus en memoria con la misma semántica que los brokers:
// un mensaje no se da por consumido hasta que el handler lo acepta.
type ChannelConsumer struct {
	name    string
	ch      <-chan sharedBus.Message
	handler sharedBus.Handler
	backoff utils.Backoff
	log     *zap.Logger
}

func NewChannelConsumer(name string, ch <-chan sharedBus.Message, handler sharedBus.Handler, log *zap.Logger) *ChannelConsumer {
	return &ChannelConsumer{
		name:    name,
		ch:      ch,
		handler: handler,
		backoff: utils.Backoff{Base: 50 * time.Millisecond, Max: 2 * time.Second},
		log:     log,
	}
}

func (c *ChannelConsumer) WithBackoff(b utils.Backoff) *ChannelConsumer {
	c.backoff = b
	return c
}

func (c *ChannelConsumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.log.Info("Consumer stopped", zap.String("consumer", c.name))
			return nil
		case msg := <-c.ch:
			err := utils.RetryUntil(ctx, c.backoff, func(attempt int) error {
				hErr := c.handler(ctx, msg)
				if hErr != nil {
					c.log.Warn("Redelivering message",
						zap.String("consumer", c.name),
						zap.String("topic", msg.Topic),
						zap.Int("attempt", attempt),
						zap.Error(hErr),
					)
				}
				return hErr
			})
			if err != nil {
				return nil
			}
		}
	}
}
