package application

import (
	"github.com/davicafu/hexashop/internal/shared/application/mapper"
	domainEvents "github.com/davicafu/hexashop/internal/shared/domain/events"
	integration "github.com/davicafu/hexashop/internal/shared/events"
	"github.com/davicafu/hexashop/internal/shop/domain"
)

// Razones del evento de indexado.
const (
	ReasonRegistered     = "registered"
	ReasonAddressAdded   = "address_added"
	ReasonDefaultChanged = "default_address_changed"
)

// CustomerMapper pide a identity que enlace el cliente con su usuario.
type CustomerMapper struct{}

func (CustomerMapper) Map(evts []domainEvents.DomainEvent) ([]integration.IntegrationEvent, error) {
	return mapper.Each(func(evt domainEvents.DomainEvent) (integration.IntegrationEvent, error) {
		e, ok := evt.(domain.CustomerRegistered)
		if !ok {
			return nil, nil
		}
		return integration.AddCustomerIdIntegrationEvent{
			IntegrationBase: integration.NewIntegrationBase(e, integration.AddCustomerIDType),
			UserID:          e.UserID,
			CustomerID:      e.CustomerID,
		}, nil
	}).Map(evts)
}

// SearchIndexMapper mantiene al día el índice de clientes del servicio de búsqueda.
// El borrado de direcciones no cambia lo indexado.
type SearchIndexMapper struct{}

func (SearchIndexMapper) Map(evts []domainEvents.DomainEvent) ([]integration.IntegrationEvent, error) {
	return mapper.Each(func(evt domainEvents.DomainEvent) (integration.IntegrationEvent, error) {
		switch e := evt.(type) {
		case domain.CustomerRegistered:
			return integration.CustomerIndexIntegrationEvent{
				IntegrationBase: integration.NewIntegrationBase(e, integration.CustomerIndexType),
				CustomerID:      e.CustomerID,
				Nombre:          e.Nombre,
				Email:           e.Email,
				Reason:          ReasonRegistered,
			}, nil
		case domain.CustomerAddressAdded:
			return integration.CustomerIndexIntegrationEvent{
				IntegrationBase: integration.NewIntegrationBase(e, integration.CustomerIndexType),
				CustomerID:      e.CustomerID,
				Nombre:          e.Nombre,
				Email:           e.Email,
				DefaultCity:     e.DefaultCity,
				DefaultCountry:  e.DefaultCountry,
				Reason:          ReasonAddressAdded,
			}, nil
		case domain.DefaultAddressChanged:
			return integration.CustomerIndexIntegrationEvent{
				IntegrationBase: integration.NewIntegrationBase(e, integration.CustomerIndexType),
				CustomerID:      e.CustomerID,
				Nombre:          e.Nombre,
				Email:           e.Email,
				DefaultCity:     e.City,
				DefaultCountry:  e.Country,
				Reason:          ReasonDefaultChanged,
			}, nil
		}
		return nil, nil
	}).Map(evts)
}

// NewMapper es el composite del contexto, en orden explícito.
func NewMapper() *mapper.Composite {
	return mapper.NewComposite(CustomerMapper{}, SearchIndexMapper{})
}

var (
	_ mapper.Mapper = CustomerMapper{}
	_ mapper.Mapper = SearchIndexMapper{}
)
