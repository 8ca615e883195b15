package events

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent es un hecho inmutable ocurrido dentro de un agregado.
// Vive solo en memoria: se extrae en el commit y nunca se persiste tal cual.
type DomainEvent interface {
	EventID() uuid.UUID
	EventName() string
	OccurredAt() time.Time
	CorrelationID() string
	Metadata() map[string]string
}

// Base implementa DomainEvent y se embebe en los eventos concretos.
// Todos sus campos son privados, así que el evento no puede mutarse después de construido.
type Base struct {
	id            uuid.UUID
	name          string
	occurredAt    time.Time
	correlationID string
	metadata      map[string]string
}

// Option configura los campos opcionales de Base.
type Option func(*Base)

// WithCorrelationID propaga una cadena causal entre contextos.
func WithCorrelationID(id string) Option {
	return func(b *Base) {
		b.correlationID = id
	}
}

// WithMetadata añade pares clave/valor al evento.
func WithMetadata(kv map[string]string) Option {
	return func(b *Base) {
		if len(kv) == 0 {
			return
		}
		if b.metadata == nil {
			b.metadata = make(map[string]string, len(kv))
		}
		for k, v := range kv {
			b.metadata[k] = v
		}
	}
}

// NewBase crea la parte común de un evento. occurredAt se normaliza a UTC.
func NewBase(name string, occurredAt time.Time, opts ...Option) Base {
	b := Base{
		id:         uuid.New(),
		name:       name,
		occurredAt: occurredAt.UTC(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b Base) EventID() uuid.UUID    { return b.id }
func (b Base) EventName() string     { return b.name }
func (b Base) OccurredAt() time.Time { return b.occurredAt }
func (b Base) CorrelationID() string { return b.correlationID }

// Metadata devuelve una copia; modificarla no altera el evento.
func (b Base) Metadata() map[string]string {
	if len(b.metadata) == 0 {
		return nil
	}
	out := make(map[string]string, len(b.metadata))
	for k, v := range b.metadata {
		out[k] = v
	}
	return out
}

// Verificación estática
var _ DomainEvent = Base{}
