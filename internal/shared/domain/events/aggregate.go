package events

// EventBearer es cualquier cosa de la que la unidad de trabajo puede drenar eventos.
type EventBearer interface {
	PullDomainEvents() []DomainEvent
}

// AggregateRoot se embebe en los agregados para acumular sus eventos de dominio.
//
//	type Customer struct {
//	    events.AggregateRoot
//	    ...
//	}
type AggregateRoot struct {
	domainEvents []DomainEvent
}

// Raise añade un evento a la lista ordenada del agregado.
func (a *AggregateRoot) Raise(evt DomainEvent) {
	a.domainEvents = append(a.domainEvents, evt)
}

// PullDomainEvents devuelve los eventos acumulados y vacía la lista.
// Una vez extraídos, un segundo guardado no los vuelve a emitir.
func (a *AggregateRoot) PullDomainEvents() []DomainEvent {
	evts := a.domainEvents
	a.domainEvents = nil
	return evts
}

// PendingEvents permite inspeccionar sin drenar (tests y logs).
func (a *AggregateRoot) PendingEvents() int {
	return len(a.domainEvents)
}

var _ EventBearer = (*AggregateRoot)(nil)
