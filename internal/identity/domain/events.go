package domain

import (
	"github.com/davicafu/hexashop/internal/shared/domain/events"
	"github.com/google/uuid"
)

const (
	UserRegisteredEvent        = "identity.UserRegistered"
	CustomerLinkedEvent        = "identity.CustomerLinked"
	WelcomeEmailRequestedEvent = "identity.WelcomeEmailRequested"
)

type UserRegistered struct {
	events.Base
	UserID uuid.UUID
	Email  string
	Nombre string
}

type CustomerLinked struct {
	events.Base
	UserID     uuid.UUID
	CustomerID uuid.UUID
}

// WelcomeEmailRequested lo levanta el servicio en el sink, no el agregado:
// mandar un correo no es un cambio de estado del usuario.
type WelcomeEmailRequested struct {
	events.Base
	UserID uuid.UUID
	Email  string
	Nombre string
}
