package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	integration "github.com/davicafu/hexashop/internal/shared/events"
	sharedBus "github.com/davicafu/hexashop/internal/shared/infra/platform/bus"
	"github.com/davicafu/hexashop/internal/shared/infra/utils"
)

// StreamConfig describe el stream de JetStream donde publican los outbox.
type StreamConfig struct {
	Name       string
	Subjects   []string
	MaxAge     time.Duration
	Duplicates time.Duration // ventana de deduplicación por Nats-Msg-Id
	Storage    jetstream.StorageType
}

// EnsureStream crea o actualiza el stream.
func EnsureStream(ctx context.Context, js jetstream.JetStream, cfg StreamConfig) (jetstream.Stream, error) {
	sc := jetstream.StreamConfig{
		Name:       cfg.Name,
		Subjects:   cfg.Subjects,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     cfg.MaxAge,
		Duplicates: cfg.Duplicates,
		Storage:    cfg.Storage,
		Discard:    jetstream.DiscardOld,
	}

	if _, err := js.Stream(ctx, cfg.Name); err != nil {
		if !errors.Is(err, jetstream.ErrStreamNotFound) {
			return nil, fmt.Errorf("get stream: %w", err)
		}
		stream, err := js.CreateStream(ctx, sc)
		if err != nil {
			return nil, fmt.Errorf("create stream: %w", err)
		}
		return stream, nil
	}

	stream, err := js.UpdateStream(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("update stream: %w", err)
	}
	return stream, nil
}

// JetStreamPublisher publica con Nats-Msg-Id = message_id, así el servidor descarta
// las repeticiones dentro de la ventana de duplicados.
type JetStreamPublisher struct {
	js     jetstream.JetStream
	stream string
	log    *zap.Logger
}

func NewJetStreamPublisher(js jetstream.JetStream, stream string, log *zap.Logger) *JetStreamPublisher {
	return &JetStreamPublisher{js: js, stream: stream, log: log}
}

func (p *JetStreamPublisher) Publish(ctx context.Context, msg sharedBus.Message) error {
	header := nats.Header{}
	for k, v := range msg.Headers {
		header.Set(k, v)
	}
	if msg.Key != "" {
		header.Set("partition-key", msg.Key)
	}

	opts := []jetstream.PublishOpt{jetstream.WithExpectStream(p.stream)}
	if id := msg.Header(integration.HeaderMessageID); id != "" {
		opts = append(opts, jetstream.WithMsgID(id))
	}

	ack, err := p.js.PublishMsg(ctx, &nats.Msg{
		Subject: msg.Topic,
		Data:    msg.Value,
		Header:  header,
	}, opts...)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	p.log.Debug("published to JetStream",
		zap.String("subject", msg.Topic),
		zap.Uint64("sequence", ack.Sequence),
		zap.Bool("duplicate", ack.Duplicate),
	)
	return nil
}

var _ sharedBus.EventBus = (*JetStreamPublisher)(nil)

// JetStreamConsumer es un consumidor durable con ack explícito.
// Ack cuando el handler acepta; NakWithDelay (con backoff por número de entrega) si no.
type JetStreamConsumer struct {
	name     string
	consumer jetstream.Consumer
	handler  sharedBus.Handler
	backoff  utils.Backoff
	log      *zap.Logger
}

// NewJetStreamConsumer crea (o reutiliza) el consumidor durable filtrado por subjects.
func NewJetStreamConsumer(ctx context.Context, js jetstream.JetStream, stream, durable string, subjects []string, handler sharedBus.Handler, log *zap.Logger) (*JetStreamConsumer, error) {
	consumer, err := js.CreateOrUpdateConsumer(ctx, stream, jetstream.ConsumerConfig{
		Durable:        durable,
		FilterSubjects: subjects,
		AckPolicy:      jetstream.AckExplicitPolicy,
		DeliverPolicy:  jetstream.DeliverAllPolicy,
		AckWait:        30 * time.Second,
		MaxDeliver:     -1,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer %s: %w", durable, err)
	}
	return &JetStreamConsumer{
		name:     durable,
		consumer: consumer,
		handler:  handler,
		backoff:  utils.Backoff{Base: 500 * time.Millisecond, Max: 30 * time.Second},
		log:      log,
	}, nil
}

func (c *JetStreamConsumer) WithBackoff(b utils.Backoff) *JetStreamConsumer {
	c.backoff = b
	return c
}

// Run bloquea hasta que ctx se cancele.
func (c *JetStreamConsumer) Run(ctx context.Context) error {
	cc, err := c.consumer.Consume(func(m jetstream.Msg) {
		c.handle(ctx, m)
	})
	if err != nil {
		return fmt.Errorf("start consumer %s: %w", c.name, err)
	}
	c.log.Info("🎧 Consumidor JetStream iniciado", zap.String("consumer", c.name))

	<-ctx.Done()
	cc.Stop()
	c.log.Info("Consumidor JetStream detenido", zap.String("consumer", c.name))
	return nil
}

func (c *JetStreamConsumer) handle(ctx context.Context, m jetstream.Msg) {
	msg := sharedBus.Message{
		Topic:   m.Subject(),
		Headers: make(map[string]string, len(m.Headers())),
		Value:   m.Data(),
	}
	for k := range m.Headers() {
		msg.Headers[k] = m.Headers().Get(k)
	}
	msg.Key = msg.Headers["partition-key"]

	if err := c.handler(ctx, msg); err != nil {
		delivered := 1
		if md, mdErr := m.Metadata(); mdErr == nil {
			delivered = int(md.NumDelivered)
		}
		delay := c.backoff.Delay(delivered)
		c.log.Warn("NAK JetStream message",
			zap.String("consumer", c.name),
			zap.String("subject", m.Subject()),
			zap.Int("delivered", delivered),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		utils.BestEffort("jetstream.nak", m.NakWithDelay(delay)).Log(c.log)
		return
	}
	utils.BestEffort("jetstream.ack", m.Ack()).Log(c.log)
}

// EmbeddedNATS arranca un servidor NATS con JetStream dentro del proceso (desarrollo y tests).
func EmbeddedNATS(storeDir string, port int) (*server.Server, error) {
	opts := &server.Options{
		ServerName: "hexashop",
		Host:       "127.0.0.1",
		Port:       port,
		JetStream:  true,
		StoreDir:   storeDir,
		NoLog:      true,
		NoSigs:     true,
	}
	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return nil, errors.New("NATS server not ready within timeout")
	}
	return ns, nil
}
