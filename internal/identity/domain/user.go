package domain

import (
	"net/mail"
	"strings"
	"time"

	"github.com/davicafu/hexashop/internal/shared/domain/events"
	sharedBus "github.com/davicafu/hexashop/internal/shared/infra/platform/bus"
	"github.com/google/uuid"
)

// User representa una cuenta del contexto de identidad.
// CustomerID lo rellena el contexto shop de forma asíncrona (AddCustomerIdIntegrationEvent).
type User struct {
	events.AggregateRoot `json:"-"`

	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	Nombre       string     `json:"nombre"`
	PasswordHash string     `json:"-"` // nunca se serializa (caché incluida)
	CustomerID   *uuid.UUID `json:"customer_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// RegisterUser crea el usuario y levanta UserRegistered.
func RegisterUser(id uuid.UUID, email, nombre, passwordHash string, now time.Time) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	nombre = strings.TrimSpace(nombre)
	if id == uuid.Nil || nombre == "" || passwordHash == "" {
		return nil, ErrInvalidUser
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidUser
	}

	now = now.UTC()
	u := &User{
		ID:           id,
		Email:        email,
		Nombre:       nombre,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	u.Raise(UserRegistered{
		Base:   events.NewBase(UserRegisteredEvent, now),
		UserID: u.ID,
		Email:  u.Email,
		Nombre: u.Nombre,
	})
	return u, nil
}

// LinkCustomer enlaza el customer id. Repetir el mismo enlace no cambia nada,
// que es lo que hace idempotente al consumidor de AddCustomerId.
func (u *User) LinkCustomer(customerID uuid.UUID, now time.Time) (bool, error) {
	if customerID == uuid.Nil {
		return false, ErrInvalidUser
	}
	if u.CustomerID != nil {
		if *u.CustomerID == customerID {
			return false, nil
		}
		return false, ErrCustomerAlreadyLinked
	}

	u.CustomerID = &customerID
	u.UpdatedAt = now.UTC()
	u.Raise(CustomerLinked{
		Base:       events.NewBase(CustomerLinkedEvent, now),
		UserID:     u.ID,
		CustomerID: customerID,
	})
	return true, nil
}

func (u *User) PartitionKey() string {
	return u.ID.String()
}

// Verificación estática para asegurar que User implementa las interfaces
var (
	_ sharedBus.Keyer    = (*User)(nil)
	_ events.EventBearer = (*User)(nil)
)
