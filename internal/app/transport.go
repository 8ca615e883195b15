package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/davicafu/hexashop/internal/config"
	infraEvents "github.com/davicafu/hexashop/internal/shared/infra/events"
	"github.com/davicafu/hexashop/internal/shared/infra/platform/bus"
)

// consumer lo cumplen ChannelConsumer, KafkaConsumer y JetStreamConsumer.
type consumer interface {
	Run(ctx context.Context) error
}

// transport agrupa el publicador que usan los outbox y la forma de suscribirse.
type transport struct {
	name      string
	bus       bus.EventBus
	subscribe func(ctx context.Context, name string, topics []string, h bus.Handler) (consumer, error)
	closers   []func() error
}

func (t *transport) close() {
	for i := len(t.closers) - 1; i >= 0; i-- {
		_ = t.closers[i]()
	}
}

func newTransport(ctx context.Context, cfg *config.Config, topics []string, log *zap.Logger) (*transport, error) {
	switch cfg.Transport {
	case config.TransportKafka:
		return kafkaTransport(cfg.Kafka, log), nil
	case config.TransportNATS:
		return natsTransport(ctx, cfg.NATS, topics, log)
	default:
		return memoryTransport(log), nil
	}
}

func memoryTransport(log *zap.Logger) *transport {
	log.Info("⚡️ Usando bus de eventos en memoria (canales de Go)")
	b := infraEvents.NewInMemoryEventBus()
	return &transport{
		name: config.TransportMemory,
		bus:  b,
		subscribe: func(_ context.Context, name string, topics []string, h bus.Handler) (consumer, error) {
			return infraEvents.NewChannelConsumer(name, b.Subscribe(256, topics...), h, log), nil
		},
	}
}

func kafkaTransport(cfg config.KafkaConfig, log *zap.Logger) *transport {
	log.Info("🚀 Usando Kafka como bus de eventos", zap.Strings("brokers", cfg.Brokers))
	publisher := infraEvents.NewKafkaPublisher(infraEvents.NewKafkaWriter(cfg.Brokers), log)
	t := &transport{name: config.TransportKafka, bus: publisher}
	t.closers = append(t.closers, publisher.Close)
	t.subscribe = func(_ context.Context, name string, topics []string, h bus.Handler) (consumer, error) {
		reader := infraEvents.NewKafkaReader(cfg.Brokers, cfg.GroupID+"-"+name, topics)
		c := infraEvents.NewKafkaConsumer(name, reader, h, log)
		t.closers = append(t.closers, c.Close)
		return c, nil
	}
	return t
}

func natsTransport(ctx context.Context, cfg config.NATSConfig, topics []string, log *zap.Logger) (*transport, error) {
	t := &transport{name: config.TransportNATS}

	url := cfg.URL
	if cfg.Embedded {
		ns, err := infraEvents.EmbeddedNATS(cfg.StoreDir, cfg.Port)
		if err != nil {
			return nil, err
		}
		t.closers = append(t.closers, func() error { ns.Shutdown(); return nil })
		url = ns.ClientURL()
		log.Info("🛰️ NATS embebido arrancado", zap.String("url", url))
	}

	nc, err := nats.Connect(url, nats.Name("hexashop"))
	if err != nil {
		t.close()
		return nil, fmt.Errorf("connect NATS %s: %w", url, err)
	}
	t.closers = append(t.closers, func() error { nc.Close(); return nil })

	js, err := jetstream.New(nc)
	if err != nil {
		t.close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := infraEvents.EnsureStream(sctx, js, infraEvents.StreamConfig{
		Name:       cfg.Stream,
		Subjects:   subjectFilters(topics),
		MaxAge:     7 * 24 * time.Hour,
		Duplicates: 2 * time.Minute,
		Storage:    jetstream.FileStorage,
	}); err != nil {
		t.close()
		return nil, err
	}

	log.Info("🚀 Usando NATS JetStream como bus de eventos", zap.String("stream", cfg.Stream))
	t.bus = infraEvents.NewJetStreamPublisher(js, cfg.Stream, log)
	t.subscribe = func(ctx context.Context, name string, topics []string, h bus.Handler) (consumer, error) {
		return infraEvents.NewJetStreamConsumer(ctx, js, cfg.Stream, "hexashop-"+name, topics, h, log)
	}
	return t, nil
}

// subjectFilters reduce los topics a comodines por primer segmento: identity.users -> identity.>
func subjectFilters(topics []string) []string {
	seen := map[string]struct{}{}
	for _, topic := range topics {
		head, _, _ := strings.Cut(topic, ".")
		seen[head+".>"] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
