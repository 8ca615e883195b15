package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ---------- Errores de dominio ----------
var (
	ErrCustomerNotFound      = errors.New("customer not found")
	ErrCustomerAlreadyExists = errors.New("customer already exists for this user")
	ErrInvalidCustomer       = errors.New("invalid customer")
	ErrInvalidAddress        = errors.New("invalid address")
	ErrAddressNotFound       = errors.New("address not found")
	ErrCannotRemoveDefault   = errors.New("default address can only be removed when it is the only one")
)

// ---------- Interfaces (Ports) ----------

// CustomerRepository escribe dentro de la transacción que viaja en ctx, si la hay.
type CustomerRepository interface {
	// Debe devolver ErrCustomerAlreadyExists si ya hay un cliente para ese user_id.
	Create(ctx context.Context, c *Customer) error

	// Debe devolver ErrCustomerNotFound si no existe.
	GetByID(ctx context.Context, id uuid.UUID) (*Customer, error)

	// Debe devolver ErrCustomerNotFound si no existe.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Customer, error)

	// Guarda el cliente y reemplaza sus direcciones. ErrCustomerNotFound si no existe.
	Update(ctx context.Context, c *Customer) error
}
