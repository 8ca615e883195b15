package uow

import (
	"context"
	"database/sql"
)

type txKey struct{}

type inboundKey struct{}

// WithTx guarda la transacción en el contexto para que los repositorios la usen.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFrom extrae la transacción del contexto si existe.
func TxFrom(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok && tx != nil
}

// Executor es lo común entre *sql.DB y *sql.Tx.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ExecutorFrom devuelve la transacción activa o, si no la hay, la conexión.
func ExecutorFrom(ctx context.Context, db *sql.DB) Executor {
	if tx, ok := TxFrom(ctx); ok {
		return tx
	}
	return db
}

// Inbound describe el mensaje que provocó la unidad de trabajo actual, si lo hubo.
type Inbound struct {
	CorrelationID string
	CausationID   string // message_id del mensaje recibido
}

// WithInbound lo ponen los consumidores antes de llamar a los servicios.
func WithInbound(ctx context.Context, in Inbound) context.Context {
	return context.WithValue(ctx, inboundKey{}, in)
}

func InboundFrom(ctx context.Context) Inbound {
	in, _ := ctx.Value(inboundKey{}).(Inbound)
	return in
}
