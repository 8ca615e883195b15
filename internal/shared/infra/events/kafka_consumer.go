package events

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedBus "github.com/davicafu/hexashop/internal/shared/infra/platform/bus"
	"github.com/davicafu/hexashop/internal/shared/infra/utils"
)

// kafkaReader es lo que usamos de *kafka.Reader.
type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaReader crea un reader de consumer group; los offsets se confirman a mano.
func NewKafkaReader(brokers []string, groupID string, topics []string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        groupID,
		GroupTopics:    topics,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // commit síncrono
	})
}

// KafkaConsumer es el "oído" que escucha en Kafka.
// Solo confirma el offset cuando el handler aceptó el mensaje; si falla, reintenta el mismo mensaje.
type KafkaConsumer struct {
	name    string
	reader  kafkaReader
	handler sharedBus.Handler
	backoff utils.Backoff
	log     *zap.Logger
}

func NewKafkaConsumer(name string, reader kafkaReader, handler sharedBus.Handler, log *zap.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		name:    name,
		reader:  reader,
		handler: handler,
		backoff: utils.Backoff{Base: 200 * time.Millisecond, Max: 10 * time.Second},
		log:     log,
	}
}

func (c *KafkaConsumer) WithBackoff(b utils.Backoff) *KafkaConsumer {
	c.backoff = b
	return c
}

// Run bloquea hasta que ctx se cancele.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	c.log.Info("🎧 Iniciando consumidor de Kafka...", zap.String("consumer", c.name))
	defer c.log.Info("Consumidor de Kafka detenido.", zap.String("consumer", c.name))

	for {
		km, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error("Error al leer mensaje de Kafka", zap.String("consumer", c.name), zap.Error(err))
			if err := sleepCtx(ctx, c.backoff.Base); err != nil {
				return nil
			}
			continue
		}

		msg := fromKafka(km)
		err = utils.RetryUntil(ctx, c.backoff, func(attempt int) error {
			hErr := c.handler(ctx, msg)
			if hErr != nil {
				c.log.Warn("Reintentando mensaje de Kafka",
					zap.String("consumer", c.name),
					zap.String("topic", km.Topic),
					zap.Int64("offset", km.Offset),
					zap.Int("attempt", attempt),
					zap.Error(hErr),
				)
			}
			return hErr
		})
		if err != nil {
			// apagado: sin commit, el mensaje se vuelve a leer al arrancar
			return nil
		}

		if err := c.reader.CommitMessages(ctx, km); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Warn("No se pudo confirmar el offset", zap.String("consumer", c.name), zap.Error(err))
		}
	}
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

func fromKafka(km kafka.Message) sharedBus.Message {
	headers := make(map[string]string, len(km.Headers))
	for _, h := range km.Headers {
		headers[h.Key] = string(h.Value)
	}
	return sharedBus.Message{
		Topic:   km.Topic,
		Key:     string(km.Key),
		Headers: headers,
		Value:   km.Value,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
