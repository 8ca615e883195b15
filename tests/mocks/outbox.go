package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/davicafu/hexashop/internal/shared/domain"
	sharedBus "github.com/davicafu/hexashop/internal/shared/infra/platform/bus"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockOutboxStore simula el store del outbox.
type MockOutboxStore struct {
	mock.Mock
}

var _ domain.OutboxStore = (*MockOutboxStore)(nil)

func (m *MockOutboxStore) Insert(ctx context.Context, records ...domain.OutboxRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockOutboxStore) FetchBatch(ctx context.Context, status domain.OutboxStatus, limit int) ([]domain.OutboxRecord, error) {
	args := m.Called(ctx, status, limit)
	recs, _ := args.Get(0).([]domain.OutboxRecord)
	return recs, args.Error(1)
}

func (m *MockOutboxStore) MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error {
	args := m.Called(ctx, id, processedAt)
	return args.Error(0)
}

func (m *MockOutboxStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string, maxAttempts int) (domain.OutboxStatus, error) {
	args := m.Called(ctx, id, reason, maxAttempts)
	return args.Get(0).(domain.OutboxStatus), args.Error(1)
}

func (m *MockOutboxStore) DeleteProcessedOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	args := m.Called(ctx, threshold)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOutboxStore) Requeue(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxStore) CountByStatus(ctx context.Context) (map[domain.OutboxStatus]int64, error) {
	args := m.Called(ctx)
	counts, _ := args.Get(0).(map[domain.OutboxStatus]int64)
	return counts, args.Error(1)
}

// MockPublisher simula un publisher
type MockPublisher struct {
	mock.Mock
}

var _ sharedBus.EventBus = (*MockPublisher)(nil)

func (m *MockPublisher) Publish(ctx context.Context, msg sharedBus.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// RecordingBus guarda lo publicado y puede fallar a demanda.
type RecordingBus struct {
	mu       sync.Mutex
	Messages []sharedBus.Message
	FailWith error
}

var _ sharedBus.EventBus = (*RecordingBus)(nil)

func (b *RecordingBus) Publish(ctx context.Context, msg sharedBus.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailWith != nil {
		return b.FailWith
	}
	b.Messages = append(b.Messages, msg)
	return nil
}

func (b *RecordingBus) SetFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.FailWith = err
}

func (b *RecordingBus) Published() []sharedBus.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]sharedBus.Message, len(b.Messages))
	copy(out, b.Messages)
	return out
}
