package uow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/davicafu/hexashop/internal/shared/domain/events"
	"go.uber.org/zap"
)

var ErrNestedUnitOfWork = errors.New("unit of work already active in context")

// PreCommitHook se ejecuta justo antes del commit, en la misma goroutine y dentro de la misma transacción.
// No debe hacer I/O fuera de esa transacción. Si devuelve error, el commit se aborta.
type PreCommitHook interface {
	BeforeCommit(ctx context.Context, u *UnitOfWork) error
}

// HookFunc adapta una función a PreCommitHook.
type HookFunc func(ctx context.Context, u *UnitOfWork) error

func (f HookFunc) BeforeCommit(ctx context.Context, u *UnitOfWork) error {
	return f(ctx, u)
}

// UnitOfWork es el estado de una transacción de negocio en curso.
type UnitOfWork struct {
	tx      *sql.Tx
	tracked []events.EventBearer
	sink    *events.Sink
	inbound Inbound
}

func (u *UnitOfWork) Tx() *sql.Tx { return u.tx }

// Track registra agregados cuyos eventos se drenarán en el commit.
func (u *UnitOfWork) Track(bearers ...events.EventBearer) {
	for _, b := range bearers {
		if b != nil {
			u.tracked = append(u.tracked, b)
		}
	}
}

// Sink devuelve el buffer de eventos propio de esta unidad de trabajo.
func (u *UnitOfWork) Sink() *events.Sink { return u.sink }

// Raise es un atajo para u.Sink().Raise.
func (u *UnitOfWork) Raise(evt events.DomainEvent) { u.sink.Raise(evt) }

// Inbound devuelve la correlación del mensaje que originó el trabajo (vacía si vino por HTTP).
func (u *UnitOfWork) Inbound() Inbound { return u.inbound }

// DrainEvents extrae los eventos de los agregados en orden de registro y después los del sink.
// Una segunda llamada devuelve solo lo que se haya levantado entre medias.
func (u *UnitOfWork) DrainEvents() []events.DomainEvent {
	var all []events.DomainEvent
	for _, b := range u.tracked {
		all = append(all, b.PullDomainEvents()...)
	}
	return append(all, u.sink.PullAll()...)
}

// Manager abre unidades de trabajo sobre una base de datos de un contexto acotado.
type Manager struct {
	name   string
	db     *sql.DB
	hooks  []PreCommitHook
	txOpts *sql.TxOptions
	log    *zap.Logger
}

func NewManager(name string, db *sql.DB, log *zap.Logger, hooks ...PreCommitHook) *Manager {
	return &Manager{
		name:  name,
		db:    db,
		hooks: hooks,
		log:   log,
	}
}

// AddHook añade un hook al final de la cadena.
func (m *Manager) AddHook(h PreCommitHook) {
	m.hooks = append(m.hooks, h)
}

// WithTxOptions fija el nivel de aislamiento de las transacciones.
func (m *Manager) WithTxOptions(opts *sql.TxOptions) *Manager {
	m.txOpts = opts
	return m
}

func (m *Manager) DB() *sql.DB { return m.db }

// Do ejecuta fn dentro de una transacción. Si fn termina bien, se ejecutan los hooks
// de pre-commit y luego el commit; cualquier error en el camino deshace todo, incluidas
// las filas de outbox que hayan escrito los hooks.
func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context, u *UnitOfWork) error) (err error) {
	if _, ok := TxFrom(ctx); ok {
		return ErrNestedUnitOfWork
	}

	tx, err := m.db.BeginTx(ctx, m.txOpts)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", m.name, err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			m.log.Warn("rollback failed", zap.String("context", m.name), zap.Error(rbErr))
		}
		if p := recover(); p != nil {
			panic(p)
		}
	}()

	u := &UnitOfWork{
		tx:      tx,
		sink:    events.NewSink(),
		inbound: InboundFrom(ctx),
	}
	txCtx := WithTx(ctx, tx)

	if err = fn(txCtx, u); err != nil {
		return err
	}

	for _, h := range m.hooks {
		if err = h.BeforeCommit(txCtx, u); err != nil {
			m.log.Error("pre-commit hook failed, rolling back",
				zap.String("context", m.name),
				zap.Error(err),
			)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", m.name, err)
	}
	committed = true
	return nil
}

// Runner es lo que necesitan los servicios de aplicación de un Manager.
type Runner interface {
	Do(ctx context.Context, fn func(ctx context.Context, u *UnitOfWork) error) error
}

var _ Runner = (*Manager)(nil)
