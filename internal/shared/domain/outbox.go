package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus es el estado de un registro de outbox.
//
//	Pending --publish ok--> Processed
//	Pending --fallo (attempts < max)--> Pending (attempts+1, error)
//	Pending --fallo (attempts == max)--> Failed (dead letter, sin reintento automático)
type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "Pending"
	OutboxProcessed OutboxStatus = "Processed"
	OutboxFailed    OutboxStatus = "Failed"
)

func (s OutboxStatus) Valid() bool {
	switch s {
	case OutboxPending, OutboxProcessed, OutboxFailed:
		return true
	}
	return false
}

// MaxTypeLength es el tamaño máximo de la columna type.
const MaxTypeLength = 512

var (
	ErrOutboxRecordNotFound  = errors.New("outbox record not found")
	ErrNoActiveTransaction   = errors.New("outbox insert requires an active transaction")
	ErrInvalidOutboxRecord   = errors.New("invalid outbox record")
	ErrOutboxRecordNotFailed = errors.New("outbox record is not in Failed status")
)

// OutboxRecord es la unidad durable que se escribe en la misma transacción que el cambio de negocio.
// El dispatcher solo toca Status, Attempts, ProcessedAtUTC y Error.
type OutboxRecord struct {
	ID             uuid.UUID    `json:"id"`
	OccurredAtUTC  time.Time    `json:"occurred_at_utc"`
	Type           string       `json:"type"`    // nombre lógico completo, ej. "shop.AddCustomerIdIntegrationEvent"
	Payload        string       `json:"payload"` // evento de integración serializado, opaco para el store
	CorrelationID  *string      `json:"correlation_id,omitempty"`
	CausationID    *string      `json:"causation_id,omitempty"`
	Status         OutboxStatus `json:"status"`
	Attempts       int          `json:"attempts"`
	ProcessedAtUTC *time.Time   `json:"processed_at_utc,omitempty"`
	Error          *string      `json:"error,omitempty"`
}

// Validate comprueba lo mínimo antes de insertar.
func (r OutboxRecord) Validate() error {
	switch {
	case r.ID == uuid.Nil:
		return errors.Join(ErrInvalidOutboxRecord, errors.New("empty id"))
	case r.Type == "" || len(r.Type) > MaxTypeLength:
		return errors.Join(ErrInvalidOutboxRecord, errors.New("type must be 1..512 chars"))
	case r.OccurredAtUTC.IsZero():
		return errors.Join(ErrInvalidOutboxRecord, errors.New("occurred_at_utc not set"))
	case !r.Status.Valid():
		return errors.Join(ErrInvalidOutboxRecord, errors.New("unknown status"))
	}
	return nil
}

// OutboxStore es el contrato de la tabla outbox de UN contexto acotado.
// No hay tabla compartida entre contextos.
type OutboxStore interface {
	// Insert escribe dentro de la transacción del llamante (la que viaja en ctx).
	// Nunca abre una transacción propia: devuelve ErrNoActiveTransaction si no la hay.
	Insert(ctx context.Context, records ...OutboxRecord) error

	// FetchBatch devuelve hasta limit registros con el estado dado, ordenados por occurred_at_utc.
	FetchBatch(ctx context.Context, status OutboxStatus, limit int) ([]OutboxRecord, error)

	// MarkProcessed marca el registro como publicado.
	MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error

	// MarkFailed registra un intento fallido; pasa a Failed cuando attempts alcanza maxAttempts.
	// Devuelve el estado resultante.
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, maxAttempts int) (OutboxStatus, error)

	// DeleteProcessedOlderThan borra solo registros Processed con processed_at_utc < threshold.
	DeleteProcessedOlderThan(ctx context.Context, threshold time.Time) (int64, error)

	// Requeue devuelve un registro Failed a Pending con attempts a cero (replay manual).
	Requeue(ctx context.Context, id uuid.UUID) error

	// CountByStatus cuenta registros por estado.
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
