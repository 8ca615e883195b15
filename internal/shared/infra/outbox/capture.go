package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/davicafu/hexashop/internal/shared/application/mapper"
	"github.com/davicafu/hexashop/internal/shared/domain"
	"github.com/davicafu/hexashop/internal/shared/infra/uow"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ErrCapture envuelve cualquier fallo del hook: el commit se aborta entero.
var ErrCapture = errors.New("outbox capture failed")

// CaptureHook convierte los eventos de dominio de una unidad de trabajo en filas de outbox
// dentro de la misma transacción.
type CaptureHook struct {
	name    string
	store   domain.OutboxStore
	mapper  mapper.Mapper
	clock   clockwork.Clock
	metrics *Metrics
	log     *zap.Logger
}

func NewCaptureHook(name string, store domain.OutboxStore, m mapper.Mapper, clock clockwork.Clock, metrics *Metrics, log *zap.Logger) *CaptureHook {
	return &CaptureHook{
		name:    name,
		store:   store,
		mapper:  m,
		clock:   clock,
		metrics: metrics,
		log:     log,
	}
}

// BeforeCommit implementa uow.PreCommitHook.
func (h *CaptureHook) BeforeCommit(ctx context.Context, u *uow.UnitOfWork) error {
	domainEvents := u.DrainEvents()
	if len(domainEvents) == 0 {
		return nil
	}

	integrationEvents, err := h.mapper.Map(domainEvents)
	if err != nil {
		return fmt.Errorf("%w: %s: map: %w", ErrCapture, h.name, err)
	}
	if len(integrationEvents) == 0 {
		return nil
	}

	inbound := u.Inbound()
	records := make([]domain.OutboxRecord, 0, len(integrationEvents))
	for _, ie := range integrationEvents {
		payload, err := json.Marshal(ie)
		if err != nil {
			return fmt.Errorf("%w: %s: serialize %s: %w", ErrCapture, h.name, ie.EventType(), err)
		}

		occurred := ie.OccurredOnUTC().UTC()
		if occurred.IsZero() {
			occurred = h.clock.Now().UTC()
		}

		records = append(records, domain.OutboxRecord{
			ID:            uuid.New(),
			OccurredAtUTC: occurred,
			Type:          ie.EventType(),
			Payload:       string(payload),
			CorrelationID: firstNonEmpty(ie.Correlation(), inbound.CorrelationID),
			CausationID:   firstNonEmpty(ie.Causation(), inbound.CausationID),
			Status:        domain.OutboxPending,
		})
	}

	if err := h.store.Insert(ctx, records...); err != nil {
		return fmt.Errorf("%w: %s: insert: %w", ErrCapture, h.name, err)
	}

	for _, r := range records {
		h.metrics.captured(h.name, r.Type)
	}
	h.log.Debug("outbox records captured",
		zap.String("context", h.name),
		zap.Int("domain_events", len(domainEvents)),
		zap.Int("records", len(records)),
	)
	return nil
}

func firstNonEmpty(values ...string) *string {
	for _, v := range values {
		if v != "" {
			return &v
		}
	}
	return nil
}

var _ uow.PreCommitHook = (*CaptureHook)(nil)
