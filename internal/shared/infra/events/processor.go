package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	integration "github.com/davicafu/hexashop/internal/shared/events"
	"github.com/davicafu/hexashop/internal/shared/infra/inbox"
	"github.com/davicafu/hexashop/internal/shared/infra/platform/bus"
	"github.com/davicafu/hexashop/internal/shared/infra/uow"
	"github.com/davicafu/hexashop/internal/shared/infra/utils"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// HandlerFunc recibe el campo data del sobre. Ver utils.Typed para la versión tipada.
type HandlerFunc func(ctx context.Context, data json.RawMessage) error

// Processor decide qué hacer con cada mensaje entrante: decodificar, deduplicar, despachar por tipo.
// Devuelve nil cuando el mensaje puede reconocerse y error cuando debe volver a entregarse.
type Processor struct {
	name     string
	handlers map[string]HandlerFunc
	guard    *inbox.Guard
	timeout  time.Duration
	clock    clockwork.Clock
	log      *zap.Logger
}

type ProcessorOption func(*Processor)

func WithInboxGuard(g *inbox.Guard) ProcessorOption {
	return func(p *Processor) { p.guard = g }
}

func WithHandlerTimeout(d time.Duration) ProcessorOption {
	return func(p *Processor) { p.timeout = d }
}

func WithProcessorClock(c clockwork.Clock) ProcessorOption {
	return func(p *Processor) { p.clock = c }
}

func NewProcessor(name string, log *zap.Logger, opts ...ProcessorOption) *Processor {
	p := &Processor{
		name:     name,
		handlers: make(map[string]HandlerFunc),
		timeout:  5 * time.Second,
		clock:    clockwork.NewRealClock(),
		log:      log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register asocia un tipo de evento de integración con su handler.
func (p *Processor) Register(eventType string, h HandlerFunc) *Processor {
	p.handlers[eventType] = h
	return p
}

// Types devuelve los tipos registrados.
func (p *Processor) Types() []string {
	out := make([]string, 0, len(p.handlers))
	for t := range p.handlers {
		out = append(out, t)
	}
	return out
}

// Handle implementa bus.Handler.
func (p *Processor) Handle(ctx context.Context, msg bus.Message) error {
	var env integration.Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		// un sobre ilegible no se arregla con redelivery
		p.log.Error("Failed to unmarshal envelope, message discarded",
			zap.String("consumer", p.name),
			zap.String("topic", msg.Topic),
			zap.Error(err),
		)
		return nil
	}

	handler, ok := p.handlers[env.Type]
	if !ok {
		p.log.Debug("No handler for event type", zap.String("consumer", p.name), zap.String("type", env.Type))
		return nil
	}

	fields := []zap.Field{
		zap.String("consumer", p.name),
		zap.String("type", env.Type),
		zap.String("message_id", env.MessageID.String()),
	}

	if p.guard != nil {
		seen, err := p.guard.Seen(ctx, env.MessageID)
		if ign := utils.BestEffort("inbox.seen", err); ign != nil {
			ign.Log(p.log, fields...)
		} else if seen {
			p.log.Info("Duplicate message skipped", fields...)
			return nil
		}
	}

	hctx, cancel := context.WithTimeout(uow.WithInbound(ctx, uow.Inbound{
		CorrelationID: env.CorrelationID,
		CausationID:   env.MessageID.String(),
	}), p.timeout)
	defer cancel()

	err := handler(hctx, env.Data)
	switch {
	case err == nil:
		p.log.Debug("Message processed", fields...)
	case integration.IsPermanent(err):
		p.log.Error("Message rejected permanently, acknowledging", append(fields, zap.Error(err))...)
	default:
		p.log.Warn("Failed to process message", append(fields, zap.Error(err))...)
		return fmt.Errorf("%s: %s: %w", p.name, env.Type, err)
	}

	if p.guard != nil {
		_, mErr := p.guard.MarkProcessed(context.WithoutCancel(ctx), env.MessageID, p.clock.Now())
		utils.BestEffort("inbox.mark", mErr).Log(p.log, fields...)
	}
	return nil
}
