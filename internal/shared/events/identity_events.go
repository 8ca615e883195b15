package events

import "github.com/google/uuid"

const (
	UserRegisteredType   = "identity.UserRegisteredIntegrationEvent"
	SendWelcomeEmailType = "notification.SendWelcomeEmailIntegrationEvent"
)

// UserRegisteredIntegrationEvent avisa a otros contextos de que existe un nuevo usuario.
type UserRegisteredIntegrationEvent struct {
	IntegrationBase
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Nombre string    `json:"nombre"`
}

func (e UserRegisteredIntegrationEvent) EventType() string    { return UserRegisteredType }
func (e UserRegisteredIntegrationEvent) PartitionKey() string { return e.UserID.String() }

// SendWelcomeEmailIntegrationEvent lo consume el servicio de notificaciones (externo).
type SendWelcomeEmailIntegrationEvent struct {
	IntegrationBase
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Nombre string    `json:"nombre"`
}

func (e SendWelcomeEmailIntegrationEvent) EventType() string    { return SendWelcomeEmailType }
func (e SendWelcomeEmailIntegrationEvent) PartitionKey() string { return e.UserID.String() }

var (
	_ IntegrationEvent = UserRegisteredIntegrationEvent{}
	_ IntegrationEvent = SendWelcomeEmailIntegrationEvent{}
)
