package utils

import (
	"fmt"

	"go.uber.org/zap"
)

// Ignored es un error que se decidió no propagar. Tenerlo como tipo deja la decisión a la vista.
type Ignored struct {
	Op  string
	Err error
}

func (i Ignored) Error() string { return fmt.Sprintf("ignored %s: %v", i.Op, i.Err) }
func (i Ignored) Unwrap() error { return i.Err }

// BestEffort envuelve el error de una operación auxiliar. Devuelve nil si no hubo error.
func BestEffort(op string, err error) *Ignored {
	if err == nil {
		return nil
	}
	return &Ignored{Op: op, Err: err}
}

// Log deja constancia del error ignorado. Acepta receptor nil.
func (i *Ignored) Log(log *zap.Logger, fields ...zap.Field) {
	if i == nil || log == nil {
		return
	}
	log.Warn("best-effort operation failed", append(fields, zap.String("op", i.Op), zap.Error(i.Err))...)
}
