package mapper

import (
	"fmt"

	domainEvents "github.com/davicafu/hexashop/internal/shared/domain/events"
	integration "github.com/davicafu/hexashop/internal/shared/events"
)

// Mapper traduce un lote de eventos de dominio a eventos de integración.
// Debe ser puro: sin efectos laterales y con la misma salida para la misma entrada.
// Un evento que no le interesa simplemente no produce nada.
type Mapper interface {
	Map(evts []domainEvents.DomainEvent) ([]integration.IntegrationEvent, error)
}

// Func adapta una función a Mapper.
type Func func(evts []domainEvents.DomainEvent) ([]integration.IntegrationEvent, error)

func (f Func) Map(evts []domainEvents.DomainEvent) ([]integration.IntegrationEvent, error) {
	return f(evts)
}

// Composite reparte cada lote a todos los mappers registrados y concatena sus salidas
// en el orden de registro.
type Composite struct {
	mappers []Mapper
}

// NewComposite recibe la lista explícita y ordenada de estrategias.
func NewComposite(mappers ...Mapper) *Composite {
	list := make([]Mapper, 0, len(mappers))
	for _, m := range mappers {
		if m != nil {
			list = append(list, m)
		}
	}
	return &Composite{mappers: list}
}

func (c *Composite) Map(evts []domainEvents.DomainEvent) ([]integration.IntegrationEvent, error) {
	if len(evts) == 0 {
		return nil, nil
	}

	var out []integration.IntegrationEvent
	for i, m := range c.mappers {
		mapped, err := m.Map(evts)
		if err != nil {
			return nil, fmt.Errorf("mapper %d (%T): %w", i, m, err)
		}
		out = append(out, mapped...)
	}
	return out, nil
}

// Len devuelve cuántas estrategias hay registradas.
func (c *Composite) Len() int {
	return len(c.mappers)
}

var _ Mapper = (*Composite)(nil)
