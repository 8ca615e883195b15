package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/hexashop/internal/identity/domain"
	integration "github.com/davicafu/hexashop/internal/shared/events"
	sharedEvents "github.com/davicafu/hexashop/internal/shared/infra/events"
	"github.com/davicafu/hexashop/internal/shared/infra/utils"
)

type CustomerLinker interface {
	LinkCustomer(ctx context.Context, userID, customerID uuid.UUID) (bool, error)
}

// CustomerIDConsumer aplica AddCustomerIdIntegrationEvent sobre el usuario.
type CustomerIDConsumer struct {
	service CustomerLinker
	log     *zap.Logger
}

func NewCustomerIDConsumer(service CustomerLinker, logger *zap.Logger) *CustomerIDConsumer {
	return &CustomerIDConsumer{
		service: service,
		log:     logger,
	}
}

// Register da de alta el handler en el processor del contexto.
func (c *CustomerIDConsumer) Register(p *sharedEvents.Processor) {
	p.Register(integration.AddCustomerIDType, utils.Typed(c.Handle))
}

// Handle es idempotente: si el usuario ya tiene ese customer id, no hace nada y no falla.
func (c *CustomerIDConsumer) Handle(ctx context.Context, evt integration.AddCustomerIdIntegrationEvent) error {
	fields := []zap.Field{
		zap.String("user_id", evt.UserID.String()),
		zap.String("customer_id", evt.CustomerID.String()),
		zap.String("message_id", evt.ID.String()),
	}

	changed, err := c.service.LinkCustomer(ctx, evt.UserID, evt.CustomerID)
	switch {
	case err == nil && !changed:
		c.log.Info("Evento 'AddCustomerId' duplicado ignorado", fields...)
		return nil
	case err == nil:
		c.log.Info("Customer linked via event", fields...)
		return nil
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrCustomerAlreadyLinked),
		errors.Is(err, domain.ErrInvalidUser):
		// reintentar no cambia el resultado
		return integration.Permanent(fmt.Errorf("link customer: %w", err))
	default:
		return err
	}
}
