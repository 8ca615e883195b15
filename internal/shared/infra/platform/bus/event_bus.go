package bus

import (
	"context"
	"errors"
)

// ErrUnavailable indica que el mensaje ni siquiera se intentó (circuito abierto).
// El outbox no lo cuenta como intento fallido.
var ErrUnavailable = errors.New("event bus unavailable")

// Keyer lo implementan los eventos que saben su clave de partición.
type Keyer interface {
	PartitionKey() string
}

// Message es lo que se entrega al broker: el formato del payload lo decide quien lo construye.
type Message struct {
	Topic   string
	Key     string
	Headers map[string]string
	Value   []byte
}

// Header devuelve la cabecera o "" si no existe.
func (m Message) Header(name string) string {
	if m.Headers == nil {
		return ""
	}
	return m.Headers[name]
}

// EventBus es el puerto de publicación. Un error significa que el broker no confirmó el mensaje.
type EventBus interface {
	Publish(ctx context.Context, msg Message) error
}

// Handler procesa un mensaje recibido. nil reconoce el mensaje; un error pide redelivery.
type Handler func(ctx context.Context, msg Message) error
