package events

import "github.com/google/uuid"

const (
	AddCustomerIDType = "shop.AddCustomerIdIntegrationEvent"
	CustomerIndexType = "search.CustomerIndexIntegrationEvent"
)

// AddCustomerIdIntegrationEvent pide a identity que enlace el customer id con el usuario.
type AddCustomerIdIntegrationEvent struct {
	IntegrationBase
	UserID     uuid.UUID `json:"user_id"`
	CustomerID uuid.UUID `json:"customer_id"`
}

func (e AddCustomerIdIntegrationEvent) EventType() string    { return AddCustomerIDType }
func (e AddCustomerIdIntegrationEvent) PartitionKey() string { return e.UserID.String() }

// CustomerIndexIntegrationEvent alimenta el servicio de búsqueda (externo).
type CustomerIndexIntegrationEvent struct {
	IntegrationBase
	CustomerID     uuid.UUID `json:"customer_id"`
	Nombre         string    `json:"nombre,omitempty"`
	Email          string    `json:"email,omitempty"`
	DefaultCity    string    `json:"default_city,omitempty"`
	DefaultCountry string    `json:"default_country,omitempty"`
	Reason         string    `json:"reason"` // registered | address_added | default_address_changed
}

func (e CustomerIndexIntegrationEvent) EventType() string    { return CustomerIndexType }
func (e CustomerIndexIntegrationEvent) PartitionKey() string { return e.CustomerID.String() }

var (
	_ IntegrationEvent = AddCustomerIdIntegrationEvent{}
	_ IntegrationEvent = CustomerIndexIntegrationEvent{}
)
