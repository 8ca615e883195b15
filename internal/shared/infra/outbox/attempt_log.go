package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Outcome es el resultado de un intento de publicación.
type Outcome string

const (
	OutcomePublished    Outcome = "published"
	OutcomeRetry        Outcome = "retry"
	OutcomeDeadLettered Outcome = "dead_lettered"
)

// Attempt describe un intento de publicación, para análisis.
type Attempt struct {
	Context   string
	RecordID  uuid.UUID
	Type      string
	Outcome   Outcome
	Attempts  int // attempts del registro tras el intento
	Error     string
	Timestamp time.Time
}

// AttemptLog guarda los intentos fuera de la base transaccional (ej. ClickHouse).
// Es best effort: un error aquí nunca cambia el estado de un registro.
type AttemptLog interface {
	LogAttempts(ctx context.Context, attempts []Attempt) error
}
