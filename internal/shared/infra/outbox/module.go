package outbox

import (
	"context"
	"database/sql"
	"time"

	"github.com/davicafu/hexashop/internal/shared/application/mapper"
	"github.com/davicafu/hexashop/internal/shared/infra/platform/bus"
	"github.com/davicafu/hexashop/internal/shared/infra/platform/db/sqlstore"
	"github.com/davicafu/hexashop/internal/shared/infra/uow"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ModuleConfig parametriza el outbox de un contexto acotado.
type ModuleConfig struct {
	Name            string // "identity", "shop"
	Table           string
	DefaultTopic    string
	Topics          map[string]string
	Dispatch        Config
	Retention       time.Duration
	CleanupInterval time.Duration
}

// Module junta las piezas del outbox de un contexto: el mismo código para todos los contextos,
// cambian la base de datos y el mapper.
type Module struct {
	Name       string
	Store      *sqlstore.OutboxStore
	UoW        *uow.Manager
	Hook       *CaptureHook
	Dispatcher *Dispatcher
	Cleaner    *Cleaner
}

type ModuleDeps struct {
	DB         *sql.DB
	Dialect    sqlstore.Dialect
	Mapper     mapper.Mapper
	Bus        bus.EventBus
	Clock      clockwork.Clock
	Metrics    *Metrics
	AttemptLog AttemptLog
	Log        *zap.Logger
}

func NewModule(ctx context.Context, cfg ModuleConfig, deps ModuleDeps) (*Module, error) {
	store, err := sqlstore.NewOutboxStore(deps.DB, deps.Dialect, cfg.Table)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	log := deps.Log.With(zap.String("context", cfg.Name))

	hook := NewCaptureHook(cfg.Name, store, deps.Mapper, clock, deps.Metrics, log)
	opts := []DispatcherOption{WithClock(clock), WithMetrics(deps.Metrics)}
	if deps.AttemptLog != nil {
		opts = append(opts, WithAttemptLog(deps.AttemptLog))
	}

	return &Module{
		Name:       cfg.Name,
		Store:      store,
		UoW:        uow.NewManager(cfg.Name, deps.DB, log, hook),
		Hook:       hook,
		Dispatcher: NewDispatcher(cfg.Name, store, deps.Bus, NewRouter(cfg.DefaultTopic, cfg.Topics), cfg.Dispatch, log, opts...),
		Cleaner:    NewCleaner(cfg.Name, store, cfg.Retention, cfg.CleanupInterval, clock, deps.Metrics, log),
	}, nil
}

// Run arranca dispatcher y cleaner y bloquea hasta que ctx se cancele.
func (m *Module) Run(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Cleaner.Start(ctx)
	}()
	m.Dispatcher.Start(ctx)
	<-done
}
