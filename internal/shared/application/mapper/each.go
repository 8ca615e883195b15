package mapper

import (
	domainEvents "github.com/davicafu/hexashop/internal/shared/domain/events"
	integration "github.com/davicafu/hexashop/internal/shared/events"
)

// Each construye un Mapper a partir de una traducción evento a evento.
// translate devuelve (nil, nil) para los eventos que no le interesan.
func Each(translate func(evt domainEvents.DomainEvent) (integration.IntegrationEvent, error)) Mapper {
	return Func(func(evts []domainEvents.DomainEvent) ([]integration.IntegrationEvent, error) {
		var out []integration.IntegrationEvent
		for _, evt := range evts {
			ie, err := translate(evt)
			if err != nil {
				return nil, err
			}
			if ie != nil {
				out = append(out, ie)
			}
		}
		return out, nil
	})
}
