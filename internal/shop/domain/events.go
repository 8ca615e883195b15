package domain

import (
	"github.com/davicafu/hexashop/internal/shared/domain/events"
	"github.com/google/uuid"
)

const (
	CustomerRegisteredEvent     = "shop.CustomerRegistered"
	CustomerAddressAddedEvent   = "shop.CustomerAddressAdded"
	DefaultAddressChangedEvent  = "shop.DefaultAddressChanged"
	CustomerAddressRemovedEvent = "shop.CustomerAddressRemoved"
)

type CustomerRegistered struct {
	events.Base
	CustomerID uuid.UUID
	UserID     uuid.UUID
	Nombre     string
	Email      string
}

// CustomerAddressAdded lleva el estado de la predeterminada tras el cambio,
// para que el mapper no tenga que leer el agregado.
type CustomerAddressAdded struct {
	events.Base
	CustomerID     uuid.UUID
	Address        Address
	Nombre         string
	Email          string
	DefaultCity    string
	DefaultCountry string
}

type DefaultAddressChanged struct {
	events.Base
	CustomerID uuid.UUID
	AddressID  uuid.UUID
	Nombre     string
	Email      string
	City       string
	Country    string
}

type CustomerAddressRemoved struct {
	events.Base
	CustomerID uuid.UUID
	AddressID  uuid.UUID
}
