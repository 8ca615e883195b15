package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/davicafu/hexashop/internal/shared/domain"
	integration "github.com/davicafu/hexashop/internal/shared/events"
	"github.com/davicafu/hexashop/internal/shared/infra/platform/bus"
	"github.com/davicafu/hexashop/internal/shared/infra/utils"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const maxErrorLength = 2000

type Config struct {
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	PublishTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		PollInterval:   2 * time.Second,
		BatchSize:      50,
		MaxAttempts:    5,
		PublishTimeout: 5 * time.Second,
	}
}

// Router decide el topic de cada tipo de evento.
type Router struct {
	fallback string
	topics   map[string]string
}

func NewRouter(fallback string, topics map[string]string) Router {
	return Router{fallback: fallback, topics: topics}
}

func (r Router) TopicFor(eventType string) string {
	if t, ok := r.topics[eventType]; ok {
		return t
	}
	return r.fallback
}

// BatchResult resume un ciclo de dispatch.
type BatchResult struct {
	Fetched      int
	Published    int
	Retried      int
	DeadLettered int
	Untouched    int // cancelados antes de empezar o con el estado sin escribir
}

type DispatcherOption func(*Dispatcher)

func WithClock(c clockwork.Clock) DispatcherOption {
	return func(d *Dispatcher) { d.clock = c }
}

func WithMetrics(m *Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithAttemptLog(l AttemptLog) DispatcherOption {
	return func(d *Dispatcher) { d.attempts = l }
}

// Dispatcher publica los registros Pending de la tabla outbox de un contexto.
type Dispatcher struct {
	name     string
	store    domain.OutboxStore
	bus      bus.EventBus
	router   Router
	cfg      Config
	clock    clockwork.Clock
	metrics  *Metrics
	attempts AttemptLog
	log      *zap.Logger
}

func NewDispatcher(name string, store domain.OutboxStore, eventBus bus.EventBus, router Router, cfg Config, log *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = def.PublishTimeout
	}

	d := &Dispatcher{
		name:   name,
		store:  store,
		bus:    eventBus,
		router: router,
		cfg:    cfg,
		clock:  clockwork.NewRealClock(),
		log:    log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Config() Config { return d.cfg }

// Start procesa un lote al arrancar y luego uno por tick, hasta que se cancele ctx.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := d.clock.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	d.log.Info("🚀 Outbox dispatcher iniciado",
		zap.String("context", d.name),
		zap.Duration("interval", d.cfg.PollInterval),
		zap.Int("batch_size", d.cfg.BatchSize),
	)

	d.ProcessBatch(ctx)
	for {
		select {
		case <-ctx.Done():
			d.log.Info("🛑 Outbox dispatcher detenido", zap.String("context", d.name))
			return
		case <-ticker.Chan():
			d.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch ejecuta un ciclo: cada registro se publica como mucho una vez.
func (d *Dispatcher) ProcessBatch(ctx context.Context) BatchResult {
	var res BatchResult
	if ctx.Err() != nil {
		return res
	}

	start := d.clock.Now()
	defer func() { d.metrics.observeBatch(d.name, d.clock.Since(start)) }()

	records, err := d.store.FetchBatch(ctx, domain.OutboxPending, d.cfg.BatchSize)
	if err != nil {
		d.log.Warn("⚠️ Error al obtener registros pendientes", zap.String("context", d.name), zap.Error(err))
		return res
	}
	res.Fetched = len(records)
	if len(records) > 0 {
		d.log.Debug("📬 registros pendientes", zap.String("context", d.name), zap.Int("count", len(records)))
	}

	attempts := make([]Attempt, 0, len(records))
	for i, rec := range records {
		if ctx.Err() != nil {
			res.Untouched += len(records) - i
			break
		}
		a, ok := d.dispatch(ctx, rec)
		if !ok {
			res.Untouched++
			continue
		}
		switch a.Outcome {
		case OutcomePublished:
			res.Published++
		case OutcomeRetry:
			res.Retried++
		case OutcomeDeadLettered:
			res.DeadLettered++
		}
		attempts = append(attempts, a)
	}

	d.afterBatch(ctx, attempts)
	return res
}

// dispatch publica un registro y escribe su nuevo estado. ok=false si el registro quedó sin tocar.
func (d *Dispatcher) dispatch(ctx context.Context, rec domain.OutboxRecord) (Attempt, bool) {
	attempt := Attempt{Context: d.name, RecordID: rec.ID, Type: rec.Type}

	msg, err := d.buildMessage(rec)
	if err == nil {
		pubCtx, cancel := context.WithTimeout(ctx, d.cfg.PublishTimeout)
		err = d.bus.Publish(pubCtx, msg)
		cancel()
		if err != nil && ctx.Err() != nil {
			// apagado a mitad de publicación: el siguiente ciclo lo reintenta
			d.log.Info("dispatch interrupted", zap.String("context", d.name), zap.String("outbox_id", rec.ID.String()))
			return attempt, false
		}
		if errors.Is(err, bus.ErrUnavailable) {
			d.log.Debug("broker unavailable, record left untouched", zap.String("context", d.name), zap.String("outbox_id", rec.ID.String()))
			return attempt, false
		}
	}

	// Lo publicado se registra aunque el ciclo se esté cancelando.
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.PublishTimeout)
	defer cancel()
	now := d.clock.Now().UTC()
	attempt.Timestamp = now

	if err == nil {
		if mErr := d.store.MarkProcessed(markCtx, rec.ID, now); mErr != nil {
			// quedará Pending y se publicará otra vez: at-least-once
			d.log.Warn("⚠️ No se pudo marcar registro como procesado",
				zap.String("context", d.name),
				zap.String("outbox_id", rec.ID.String()),
				zap.Error(mErr),
			)
			return attempt, false
		}
		attempt.Outcome = OutcomePublished
		attempt.Attempts = rec.Attempts + 1
		d.metrics.published(d.name, rec.Type)
		d.log.Debug("✅ Evento publicado y marcado",
			zap.String("context", d.name),
			zap.String("outbox_id", rec.ID.String()),
			zap.String("type", rec.Type),
			zap.String("topic", msg.Topic),
		)
		return attempt, true
	}

	reason := truncate(err.Error(), maxErrorLength)
	status, mErr := d.store.MarkFailed(markCtx, rec.ID, reason, d.cfg.MaxAttempts)
	if mErr != nil {
		d.log.Warn("⚠️ No se pudo registrar el fallo",
			zap.String("context", d.name),
			zap.String("outbox_id", rec.ID.String()),
			zap.NamedError("publish_error", err),
			zap.Error(mErr),
		)
		return attempt, false
	}

	attempt.Attempts = rec.Attempts + 1
	attempt.Error = reason
	if status == domain.OutboxFailed {
		attempt.Outcome = OutcomeDeadLettered
		d.metrics.deadLettered(d.name, rec.Type)
		d.log.Error("☠️ Registro movido a Failed",
			zap.String("context", d.name),
			zap.String("outbox_id", rec.ID.String()),
			zap.String("type", rec.Type),
			zap.Int("attempts", attempt.Attempts),
			zap.Error(err),
		)
		return attempt, true
	}

	attempt.Outcome = OutcomeRetry
	d.metrics.failed(d.name, rec.Type)
	d.log.Warn("⚠️ No se pudo publicar evento",
		zap.String("context", d.name),
		zap.String("outbox_id", rec.ID.String()),
		zap.String("type", rec.Type),
		zap.Int("attempts", attempt.Attempts),
		zap.Error(err),
	)
	return attempt, true
}

// buildMessage arma el sobre a partir de la fila. El message_id sale del payload.
func (d *Dispatcher) buildMessage(rec domain.OutboxRecord) (bus.Message, error) {
	var head payloadHead
	if err := json.Unmarshal([]byte(rec.Payload), &head); err != nil {
		return bus.Message{}, errors.Join(errors.New("corrupt outbox payload"), err)
	}
	env := integration.Envelope{
		Type:       rec.Type,
		OccurredOn: rec.OccurredAtUTC,
		Data:       json.RawMessage(rec.Payload),
	}
	id, perr := uuid.Parse(head.MessageID)
	env.MessageID = utils.Ternary(perr == nil, id, rec.ID)
	if rec.CorrelationID != nil {
		env.CorrelationID = *rec.CorrelationID
	}
	if rec.CausationID != nil {
		env.CausationID = *rec.CausationID
	}

	value, err := json.Marshal(env)
	if err != nil {
		return bus.Message{}, err
	}

	headers := map[string]string{
		integration.HeaderMessageID: env.MessageID.String(),
		integration.HeaderEventType: env.Type,
	}
	if env.CorrelationID != "" {
		headers[integration.HeaderCorrelationID] = env.CorrelationID
	}
	if env.CausationID != "" {
		headers[integration.HeaderCausationID] = env.CausationID
	}

	return bus.Message{
		Topic:   d.router.TopicFor(rec.Type),
		Key:     head.key(env.MessageID.String()),
		Headers: headers,
		Value:   value,
	}, nil
}

func (d *Dispatcher) afterBatch(ctx context.Context, attempts []Attempt) {
	bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.PublishTimeout)
	defer cancel()

	if d.metrics != nil {
		counts, err := d.store.CountByStatus(bgCtx)
		if ign := utils.BestEffort("outbox.count", err); ign != nil {
			ign.Log(d.log, zap.String("context", d.name))
		} else {
			d.metrics.setPending(d.name, counts[domain.OutboxPending])
		}
	}

	if d.attempts != nil && len(attempts) > 0 {
		utils.BestEffort("outbox.attempt_log", d.attempts.LogAttempts(bgCtx, attempts)).Log(d.log, zap.String("context", d.name))
	}
}

// payloadHead son los campos del payload que el dispatcher necesita leer.
type payloadHead struct {
	MessageID  string `json:"message_id"`
	UserID     string `json:"user_id"`
	CustomerID string `json:"customer_id"`
}

// key reproduce PartitionKey de los contratos: primero el usuario, luego el customer.
func (h payloadHead) key(fallback string) string {
	return utils.FirstNonZero(h.UserID, h.CustomerID, fallback)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
