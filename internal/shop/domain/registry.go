package domain

import integration "github.com/davicafu/hexashop/internal/shared/events"

const (
	OutboxTable   = "shop_outbox"
	DefaultTopic  = "shop.events"
	CustomerTopic = "shop.customers"
	SearchTopic   = "search.customers"
)

// Topics enruta cada tipo de integración que publica este contexto.
func Topics() map[string]string {
	return map[string]string{
		integration.AddCustomerIDType: CustomerTopic,
		integration.CustomerIndexType: SearchTopic,
	}
}
