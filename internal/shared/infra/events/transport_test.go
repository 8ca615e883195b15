package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/davicafu/hexashop/internal/shared/infra/platform/bus"
	"github.com/davicafu/hexashop/internal/shared/infra/utils"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_MapsMessage(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w, zap.NewNop())

	err := p.Publish(context.Background(), bus.Message{
		Topic:   "shop.events",
		Key:     "user-1",
		Headers: map[string]string{"event-type": "shop.AddCustomerIdIntegrationEvent"},
		Value:   []byte(`{}`),
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	km := w.msgs[0]
	assert.Equal(t, "shop.events", km.Topic)
	assert.Equal(t, []byte("user-1"), km.Key)
	require.Len(t, km.Headers, 1)
	assert.Equal(t, "event-type", km.Headers[0].Key)

	w.err = errors.New("leader not available")
	assert.Error(t, p.Publish(context.Background(), bus.Message{Topic: "x"}))
}

func TestNewKafkaWriter_FlushesSingleMessagesPromptly(t *testing.T) {
	w := NewKafkaWriter([]string{"localhost:9092"})
	t.Cleanup(func() { _ = w.Close() })

	assert.Equal(t, 1, w.BatchSize)
	assert.Equal(t, kafkaBatchTimeout, w.BatchTimeout)
	assert.Less(t, w.BatchTimeout, 100*time.Millisecond)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.Empty(t, w.Topic, "el topic viaja en cada mensaje")
}

// fakeReader entrega los mensajes en orden y vuelve a entregar el mismo mientras no se confirme.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	for {
		r.mu.Lock()
		if len(r.queue) > 0 {
			m := r.queue[0]
			r.queue = r.queue[1:]
			r.mu.Unlock()
			return m, nil
		}
		r.mu.Unlock()
		select {
		case <-ctx.Done():
			return kafka.Message{}, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) Committed() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestKafkaConsumer_RetriesSameMessageBeforeCommit(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{
		{Topic: "t", Offset: 1, Value: []byte("a"), Headers: []kafka.Header{{Key: "message-id", Value: []byte("m1")}}},
		{Topic: "t", Offset: 2, Value: []byte("b")},
	}}

	var mu sync.Mutex
	var seen []string
	failures := 2
	handler := func(ctx context.Context, msg bus.Message) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, string(msg.Value))
		if string(msg.Value) == "a" && failures > 0 {
			failures--
			return errors.New("transient")
		}
		return nil
	}

	c := NewKafkaConsumer("identity", reader, handler, zap.NewNop()).
		WithBackoff(utils.Backoff{Base: time.Millisecond, Max: 2 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return len(reader.Committed()) == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "a", "a", "b"}, seen)
	assert.Equal(t, []int64{1, 2}, reader.Committed())
}

func TestKafkaConsumer_ShutdownDoesNotCommitFailingMessage(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{{Topic: "t", Offset: 7, Value: []byte("x")}}}
	attempts := make(chan struct{}, 100)
	handler := func(ctx context.Context, msg bus.Message) error {
		attempts <- struct{}{}
		return errors.New("always failing")
	}

	c := NewKafkaConsumer("identity", reader, handler, zap.NewNop()).
		WithBackoff(utils.Backoff{Base: time.Millisecond, Max: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- c.Run(ctx) }()

	<-attempts
	<-attempts
	cancel()
	require.NoError(t, <-done)
	assert.Empty(t, reader.Committed())
}

func TestInMemoryBus_RoutesByTopicAndRedelivers(t *testing.T) {
	b := NewInMemoryEventBus()
	identity := b.Subscribe(10, "identity.commands")
	search := b.Subscribe(10, "search.index")

	require.NoError(t, b.Publish(context.Background(), bus.Message{Topic: "identity.commands", Value: []byte("1")}))
	require.NoError(t, b.Publish(context.Background(), bus.Message{Topic: "nobody.listens", Value: []byte("2")}))

	assert.Len(t, identity, 1)
	assert.Len(t, search, 0)

	var mu sync.Mutex
	attempts := 0
	c := NewChannelConsumer("identity", identity, func(ctx context.Context, msg bus.Message) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return errors.New("first try fails")
		}
		return nil
	}, zap.NewNop()).WithBackoff(utils.Backoff{Base: time.Millisecond, Max: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts == 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestInMemoryBus_FullSubscriberFailsPublish(t *testing.T) {
	b := NewInMemoryEventBus()
	_ = b.Subscribe(1, "t")

	require.NoError(t, b.Publish(context.Background(), bus.Message{Topic: "t"}))
	err := b.Publish(context.Background(), bus.Message{Topic: "t"})
	assert.ErrorIs(t, err, ErrSubscriberFull)
}
