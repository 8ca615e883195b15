package events

import (
	"encoding/json"
	"time"

	domainEvents "github.com/davicafu/hexashop/internal/shared/domain/events"
	"github.com/google/uuid"
)

// IntegrationEvent es la representación pública (wire) de uno o más eventos de dominio.
// Son contratos de integración, NO entidades del dominio.
type IntegrationEvent interface {
	MessageID() uuid.UUID
	EventType() string
	OccurredOnUTC() time.Time
	Correlation() string
	Causation() string
	PartitionKey() string
}

// IntegrationBase agrupa los campos comunes, planos y serializables.
type IntegrationBase struct {
	ID            uuid.UUID `json:"message_id"`
	OccurredOn    time.Time `json:"occurred_on"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	CausationID   string    `json:"causation_id,omitempty"`
}

// NewIntegrationBase deriva el message_id del evento de dominio de origen y del tipo de integración.
// Mapear dos veces el mismo lote produce los mismos ids.
func NewIntegrationBase(source domainEvents.DomainEvent, eventType string) IntegrationBase {
	return IntegrationBase{
		ID:            uuid.NewSHA1(source.EventID(), []byte(eventType)),
		OccurredOn:    source.OccurredAt(),
		CorrelationID: source.CorrelationID(),
		CausationID:   source.Metadata()[MetaCausationID],
	}
}

func (b IntegrationBase) MessageID() uuid.UUID     { return b.ID }
func (b IntegrationBase) OccurredOnUTC() time.Time { return b.OccurredOn }
func (b IntegrationBase) Correlation() string      { return b.CorrelationID }
func (b IntegrationBase) Causation() string        { return b.CausationID }

// MetaCausationID es la clave de metadata de dominio que se copia como causation_id.
const MetaCausationID = "causation_id"

// Envelope es el marco que viaja por el broker.
type Envelope struct {
	MessageID     uuid.UUID       `json:"message_id"`
	Type          string          `json:"type"`
	OccurredOn    time.Time       `json:"occurred_on"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	CausationID   string          `json:"causation_id,omitempty"`
	Data          json.RawMessage `json:"data"` // contenido específico del evento
}

// Cabeceras de transporte.
const (
	HeaderMessageID     = "message-id"
	HeaderEventType     = "event-type"
	HeaderCorrelationID = "correlation-id"
	HeaderCausationID   = "causation-id"
)
