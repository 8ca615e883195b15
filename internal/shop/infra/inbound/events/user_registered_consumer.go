package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	integration "github.com/davicafu/hexashop/internal/shared/events"
	sharedEvents "github.com/davicafu/hexashop/internal/shared/infra/events"
	"github.com/davicafu/hexashop/internal/shared/infra/utils"
	"github.com/davicafu/hexashop/internal/shop/domain"
)

type CustomerService interface {
	RegisterCustomer(ctx context.Context, userID uuid.UUID, nombre, email string) (*domain.Customer, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Customer, error)
}

// UserRegisteredConsumer crea el cliente de cada usuario nuevo de identity.
type UserRegisteredConsumer struct {
	service CustomerService
	log     *zap.Logger
}

func NewUserRegisteredConsumer(service CustomerService, logger *zap.Logger) *UserRegisteredConsumer {
	return &UserRegisteredConsumer{
		service: service,
		log:     logger,
	}
}

// Register da de alta el handler en el processor del contexto.
func (c *UserRegisteredConsumer) Register(p *sharedEvents.Processor) {
	p.Register(integration.UserRegisteredType, utils.Typed(c.Handle))
}

// Handle es idempotente: "buscar antes de crear", y la restricción única de user_id
// cubre la carrera entre dos entregas concurrentes.
func (c *UserRegisteredConsumer) Handle(ctx context.Context, evt integration.UserRegisteredIntegrationEvent) error {
	fields := []zap.Field{
		zap.String("user_id", evt.UserID.String()),
		zap.String("message_id", evt.ID.String()),
	}

	// 1. Comprobamos si el cliente ya existe.
	_, err := c.service.GetByUserID(ctx, evt.UserID)
	if err == nil {
		c.log.Info("Evento 'UserRegistered' duplicado ignorado", fields...)
		return nil
	}
	if !errors.Is(err, domain.ErrCustomerNotFound) {
		return err
	}

	// 2. Si no existe, lo creamos.
	customer, err := c.service.RegisterCustomer(ctx, evt.UserID, evt.Nombre, evt.Email)
	switch {
	case err == nil:
		c.log.Info("Customer created via event", append(fields, zap.String("customer_id", customer.ID.String()))...)
		return nil
	case errors.Is(err, domain.ErrCustomerAlreadyExists):
		c.log.Info("Evento 'UserRegistered' duplicado gestionado por la BBDD", fields...)
		return nil
	case errors.Is(err, domain.ErrInvalidCustomer):
		return integration.Permanent(fmt.Errorf("register customer: %w", err))
	default:
		return err
	}
}
