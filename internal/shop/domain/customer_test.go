package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCustomer(t *testing.T) *Customer {
	t.Helper()
	c, err := RegisterCustomer(uuid.New(), uuid.New(), "Ana", "Ana@Example.com", time.Now())
	require.NoError(t, err)
	return c
}

func defaults(c *Customer) int {
	n := 0
	for _, a := range c.Addresses {
		if a.IsDefault {
			n++
		}
	}
	return n
}

func TestRegisterCustomer(t *testing.T) {
	c := newCustomer(t)
	assert.Equal(t, "ana@example.com", c.Email)

	evts := c.PullDomainEvents()
	require.Len(t, evts, 1)
	reg, ok := evts[0].(CustomerRegistered)
	require.True(t, ok)
	assert.Equal(t, c.ID, reg.CustomerID)
	assert.Equal(t, c.UserID, reg.UserID)

	_, err := RegisterCustomer(uuid.New(), uuid.Nil, "Ana", "", time.Now())
	assert.ErrorIs(t, err, ErrInvalidCustomer)
}

func TestAddAddress_KeepsExactlyOneDefault(t *testing.T) {
	c := newCustomer(t)
	c.PullDomainEvents()

	first, err := c.AddAddress(Address{Street: "Gran Vía 1", City: "Madrid", Country: "ES"}, false, time.Now())
	require.NoError(t, err)
	assert.True(t, first.IsDefault, "la primera dirección es la predeterminada")

	second, err := c.AddAddress(Address{Street: "Diagonal 2", City: "Barcelona", Country: "ES"}, false, time.Now())
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	third, err := c.AddAddress(Address{Street: "Rua 3", City: "Lisboa", Country: "PT"}, true, time.Now())
	require.NoError(t, err)
	assert.True(t, third.IsDefault)
	assert.Equal(t, 1, defaults(c))

	evts := c.PullDomainEvents()
	require.Len(t, evts, 3)
	last := evts[2].(CustomerAddressAdded)
	assert.Equal(t, "Lisboa", last.DefaultCity)

	_, err = c.AddAddress(Address{City: "Sin calle", Country: "ES"}, false, time.Now())
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestSetDefaultAddress(t *testing.T) {
	c := newCustomer(t)
	a, _ := c.AddAddress(Address{Street: "A", City: "Madrid", Country: "ES"}, false, time.Now())
	b, _ := c.AddAddress(Address{Street: "B", City: "Sevilla", Country: "ES"}, false, time.Now())
	c.PullDomainEvents()

	require.NoError(t, c.SetDefaultAddress(b.ID, time.Now()))
	def, ok := c.DefaultAddress()
	require.True(t, ok)
	assert.Equal(t, b.ID, def.ID)
	assert.Equal(t, 1, defaults(c))
	require.Len(t, c.PullDomainEvents(), 1)

	// ya es la predeterminada: sin evento
	require.NoError(t, c.SetDefaultAddress(b.ID, time.Now()))
	assert.Empty(t, c.PullDomainEvents())

	assert.ErrorIs(t, c.SetDefaultAddress(uuid.New(), time.Now()), ErrAddressNotFound)
	assert.Equal(t, a.ID, c.Addresses[0].ID)
	assert.False(t, c.Addresses[0].IsDefault)
}

func TestRemoveAddress(t *testing.T) {
	c := newCustomer(t)
	a, _ := c.AddAddress(Address{Street: "A", City: "Madrid", Country: "ES"}, false, time.Now())
	b, _ := c.AddAddress(Address{Street: "B", City: "Sevilla", Country: "ES"}, false, time.Now())

	assert.ErrorIs(t, c.RemoveAddress(a.ID, time.Now()), ErrCannotRemoveDefault)

	require.NoError(t, c.RemoveAddress(b.ID, time.Now()))
	assert.Equal(t, 1, defaults(c))

	// la predeterminada sí se puede borrar cuando es la única
	require.NoError(t, c.RemoveAddress(a.ID, time.Now()))
	assert.Empty(t, c.Addresses)
	_, ok := c.DefaultAddress()
	assert.False(t, ok)

	assert.ErrorIs(t, c.RemoveAddress(a.ID, time.Now()), ErrAddressNotFound)
}
