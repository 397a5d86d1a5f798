package service

import (
	"github.com/quietbit/parley/internal/core/domain"
	"github.com/quietbit/parley/internal/core/port"
)

// Supervisor drives the per-connection lifecycle: registration on
// transport connect, message dispatch while open, and cleanup on
// transport close. Each transport connection calls it from its own
// goroutine; all shared state lives behind the registry, directory and
// router it delegates to.
type Supervisor struct {
	registry *Registry
	router   *Router
}

func NewSupervisor(registry *Registry, router *Router) *Supervisor {
	return &Supervisor{
		registry: registry,
		router:   router,
	}
}

// Connected registers the transport handle and issues its identity.
func (s *Supervisor) Connected(c port.Client) (domain.ClientID, error) {
	return s.registry.Register(c)
}

// Handle dispatches one inbound envelope from an established
// connection. A returned error means the envelope was discarded;
// callers may report it to the sender, the connection stays up.
func (s *Supervisor) Handle(from domain.ClientID, env domain.Envelope) error {
	switch env.Kind {
	case domain.KindJoin:
		if env.Room == "" {
			return domain.ErrMalformedMessage
		}
		s.router.HandleJoin(from, env.Room)
		return nil
	case domain.KindLeave:
		if env.Room == "" {
			return domain.ErrMalformedMessage
		}
		s.router.HandleLeave(from, env.Room)
		return nil
	case domain.KindOffer, domain.KindAnswer, domain.KindCandidate:
		return s.router.Relay(from, env)
	default:
		return domain.ErrMalformedMessage
	}
}

// Disconnected runs the close transition: leave every room, notify the
// survivors, then retire the identity. Notification is best-effort;
// unregistration happens regardless of delivery failures. A connection
// that never joined a room cleans up to a no-op.
func (s *Supervisor) Disconnected(id domain.ClientID) {
	s.router.HandleDisconnect(id)
	s.registry.Unregister(id)
}
