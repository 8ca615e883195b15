package application

import (
	"github.com/davicafu/hexashop/internal/identity/domain"
	"github.com/davicafu/hexashop/internal/shared/application/mapper"
	domainEvents "github.com/davicafu/hexashop/internal/shared/domain/events"
	integration "github.com/davicafu/hexashop/internal/shared/events"
)

// IdentityMapper publica hacia otros contextos los hechos del usuario.
// CustomerLinked es interno y no produce nada.
type IdentityMapper struct{}

func (IdentityMapper) Map(evts []domainEvents.DomainEvent) ([]integration.IntegrationEvent, error) {
	return mapper.Each(func(evt domainEvents.DomainEvent) (integration.IntegrationEvent, error) {
		e, ok := evt.(domain.UserRegistered)
		if !ok {
			return nil, nil
		}
		return integration.UserRegisteredIntegrationEvent{
			IntegrationBase: integration.NewIntegrationBase(e, integration.UserRegisteredType),
			UserID:          e.UserID,
			Email:           e.Email,
			Nombre:          e.Nombre,
		}, nil
	}).Map(evts)
}

// NotificationMapper traduce las peticiones de correo para el servicio de notificaciones.
type NotificationMapper struct{}

func (NotificationMapper) Map(evts []domainEvents.DomainEvent) ([]integration.IntegrationEvent, error) {
	return mapper.Each(func(evt domainEvents.DomainEvent) (integration.IntegrationEvent, error) {
		e, ok := evt.(domain.WelcomeEmailRequested)
		if !ok {
			return nil, nil
		}
		return integration.SendWelcomeEmailIntegrationEvent{
			IntegrationBase: integration.NewIntegrationBase(e, integration.SendWelcomeEmailType),
			UserID:          e.UserID,
			Email:           e.Email,
			Nombre:          e.Nombre,
		}, nil
	}).Map(evts)
}

// NewMapper es el composite del contexto, en orden explícito.
func NewMapper() *mapper.Composite {
	return mapper.NewComposite(IdentityMapper{}, NotificationMapper{})
}

var (
	_ mapper.Mapper = IdentityMapper{}
	_ mapper.Mapper = NotificationMapper{}
)
