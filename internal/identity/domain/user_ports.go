package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ---------- Errores de dominio ----------
var (
	ErrUserNotFound          = errors.New("user not found")
	ErrUserAlreadyExists     = errors.New("user already exists")
	ErrInvalidUser           = errors.New("invalid user")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrCustomerAlreadyLinked = errors.New("user already linked to a different customer")
)

// ---------- Interfaces (Ports) ----------

// UserRepository escribe dentro de la transacción que viaja en ctx, si la hay.
type UserRepository interface {
	// Debe devolver ErrUserAlreadyExists si el id o el email ya existen.
	Create(ctx context.Context, u *User) error

	// Debe devolver ErrUserNotFound si no existe.
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// Debe devolver ErrUserNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Debe devolver ErrUserNotFound si el usuario no existe.
	Update(ctx context.Context, u *User) error
}

// ---------- Helpers comunes (cache keys, etc.) ----------

// CacheKeyByID forma una key consistente para cache usando ID.
func CacheKeyByID(id uuid.UUID) string {
	return fmt.Sprintf("user:id:%s", id.String())
}
