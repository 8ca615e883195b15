package events

import "sync"

// Sink acumula eventos que no pertenecen a un único agregado
// (hechos de aplicación o disparados por infraestructura).
// Hay uno por unidad de trabajo y se descarta con ella.
type Sink struct {
	mu     sync.Mutex
	events []DomainEvent
}

func NewSink() *Sink {
	return &Sink{}
}

func (s *Sink) Raise(evt DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

// PullAll drena el sink.
func (s *Sink) PullAll() []DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	evts := s.events
	s.events = nil
	return evts
}

// PullDomainEvents permite que la unidad de trabajo trate el sink como un EventBearer más.
func (s *Sink) PullDomainEvents() []DomainEvent {
	return s.PullAll()
}

var _ EventBearer = (*Sink)(nil)
