package domain

import (
	"strings"
	"time"

	"github.com/davicafu/hexashop/internal/shared/domain/events"
	sharedBus "github.com/davicafu/hexashop/internal/shared/infra/platform/bus"
	"github.com/google/uuid"
)

// Address es una dirección postal del cliente.
type Address struct {
	ID         uuid.UUID `json:"id"`
	Street     string    `json:"street"`
	City       string    `json:"city"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	IsDefault  bool      `json:"is_default"`
}

func (a Address) validate() error {
	if strings.TrimSpace(a.Street) == "" || strings.TrimSpace(a.City) == "" || strings.TrimSpace(a.Country) == "" {
		return ErrInvalidAddress
	}
	return nil
}

// Customer es el agregado del contexto shop. Un usuario de identity tiene como mucho un cliente.
//
// Invariante: si hay direcciones, exactamente una es la predeterminada.
type Customer struct {
	events.AggregateRoot `json:"-"`

	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Nombre    string    `json:"nombre"`
	Email     string    `json:"email"`
	Addresses []Address `json:"addresses"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RegisterCustomer crea el cliente y levanta CustomerRegistered.
func RegisterCustomer(id, userID uuid.UUID, nombre, email string, now time.Time) (*Customer, error) {
	nombre = strings.TrimSpace(nombre)
	if id == uuid.Nil || userID == uuid.Nil || nombre == "" {
		return nil, ErrInvalidCustomer
	}

	now = now.UTC()
	c := &Customer{
		ID:        id,
		UserID:    userID,
		Nombre:    nombre,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.Raise(CustomerRegistered{
		Base:       events.NewBase(CustomerRegisteredEvent, now),
		CustomerID: c.ID,
		UserID:     c.UserID,
		Nombre:     c.Nombre,
		Email:      c.Email,
	})
	return c, nil
}

// DefaultAddress devuelve la dirección predeterminada, si hay direcciones.
func (c *Customer) DefaultAddress() (Address, bool) {
	for _, a := range c.Addresses {
		if a.IsDefault {
			return a, true
		}
	}
	return Address{}, false
}

func (c *Customer) indexOf(addressID uuid.UUID) int {
	for i, a := range c.Addresses {
		if a.ID == addressID {
			return i
		}
	}
	return -1
}

func (c *Customer) makeDefault(i int) {
	for j := range c.Addresses {
		c.Addresses[j].IsDefault = j == i
	}
}

// AddAddress añade una dirección. La primera siempre queda como predeterminada.
func (c *Customer) AddAddress(addr Address, makeDefault bool, now time.Time) (Address, error) {
	if err := addr.validate(); err != nil {
		return Address{}, err
	}
	if addr.ID == uuid.Nil {
		addr.ID = uuid.New()
	}
	if c.indexOf(addr.ID) >= 0 {
		return Address{}, ErrInvalidAddress
	}

	addr.IsDefault = false
	c.Addresses = append(c.Addresses, addr)
	becameDefault := makeDefault || len(c.Addresses) == 1
	if becameDefault {
		c.makeDefault(len(c.Addresses) - 1)
	}
	c.UpdatedAt = now.UTC()

	added := c.Addresses[len(c.Addresses)-1]
	def, _ := c.DefaultAddress()
	c.Raise(CustomerAddressAdded{
		Base:           events.NewBase(CustomerAddressAddedEvent, now),
		CustomerID:     c.ID,
		Address:        added,
		Nombre:         c.Nombre,
		Email:          c.Email,
		DefaultCity:    def.City,
		DefaultCountry: def.Country,
	})
	return added, nil
}

// SetDefaultAddress cambia la predeterminada. Si ya lo era no hace nada.
func (c *Customer) SetDefaultAddress(addressID uuid.UUID, now time.Time) error {
	i := c.indexOf(addressID)
	if i < 0 {
		return ErrAddressNotFound
	}
	if c.Addresses[i].IsDefault {
		return nil
	}

	c.makeDefault(i)
	c.UpdatedAt = now.UTC()
	c.Raise(DefaultAddressChanged{
		Base:       events.NewBase(DefaultAddressChangedEvent, now),
		CustomerID: c.ID,
		AddressID:  addressID,
		Nombre:     c.Nombre,
		Email:      c.Email,
		City:       c.Addresses[i].City,
		Country:    c.Addresses[i].Country,
	})
	return nil
}

// RemoveAddress borra una dirección. La predeterminada solo se puede borrar si es la única.
func (c *Customer) RemoveAddress(addressID uuid.UUID, now time.Time) error {
	i := c.indexOf(addressID)
	if i < 0 {
		return ErrAddressNotFound
	}
	if c.Addresses[i].IsDefault && len(c.Addresses) > 1 {
		return ErrCannotRemoveDefault
	}

	c.Addresses = append(c.Addresses[:i], c.Addresses[i+1:]...)
	c.UpdatedAt = now.UTC()
	c.Raise(CustomerAddressRemoved{
		Base:       events.NewBase(CustomerAddressRemovedEvent, now),
		CustomerID: c.ID,
		AddressID:  addressID,
	})
	return nil
}

func (c *Customer) PartitionKey() string {
	return c.ID.String()
}

var (
	_ sharedBus.Keyer    = (*Customer)(nil)
	_ events.EventBearer = (*Customer)(nil)
)
