package domain

import integration "github.com/davicafu/hexashop/internal/shared/events"

const (
	OutboxTable  = "identity_outbox"
	DefaultTopic = "identity.events"
	UserTopic    = "identity.users"
	EmailTopic   = "notification.emails"
)

// Topics enruta cada tipo de integración que publica este contexto.
func Topics() map[string]string {
	return map[string]string{
		integration.UserRegisteredType:   UserTopic,
		integration.SendWelcomeEmailType: EmailTopic,
	}
}
