package service

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/quietbit/parley/internal/core/domain"
)

// Router forwards signaling envelopes between identified participants.
// Payloads pass through unmodified apart from the sender annotation;
// sdp content is never inspected.
type Router struct {
	registry  *Registry
	directory *Directory

	// rosterMu serializes each roster mutation with the enqueue of its
	// broadcast, so members of a room observe roster updates in the
	// order the join/leave operations happened.
	rosterMu sync.Mutex
}

func NewRouter(registry *Registry, directory *Directory) *Router {
	return &Router{
		registry:  registry,
		directory: directory,
	}
}

// HandleJoin adds the sender to the room and broadcasts the resulting
// roster to every member, the joiner included. A duplicate join leaves
// the roster unchanged and triggers no broadcast.
func (r *Router) HandleJoin(from domain.ClientID, room string) {
	r.rosterMu.Lock()
	defer r.rosterMu.Unlock()

	members, changed := r.directory.Join(room, from)
	if !changed {
		log.Debug().Str("room", room).Str("client_id", from.String()).Msg("Duplicate join ignored")
		return
	}
	r.broadcastRoster(room, members)
}

// HandleLeave removes the sender from one room and notifies the
// remaining members. Leaving a room the sender is not in is a no-op.
func (r *Router) HandleLeave(from domain.ClientID, room string) {
	r.rosterMu.Lock()
	defer r.rosterMu.Unlock()

	members, ok := r.directory.LeaveRoom(room, from)
	if !ok || members == nil {
		return
	}
	r.broadcastRoster(room, members)
}

// HandleDisconnect removes the identity from every room it belonged to
// and notifies the survivors, room by room. Called by the supervisor on
// transport close, before the identity is unregistered.
func (r *Router) HandleDisconnect(id domain.ClientID) {
	r.rosterMu.Lock()
	defer r.rosterMu.Unlock()

	for room, members := range r.directory.LeaveAll(id) {
		r.broadcastRoster(room, members)
	}
}

// Relay forwards an offer, answer or candidate. With a target identity
// set it is delivered 1:1; otherwise it fans out to every other member
// of the room, never echoing back to the sender. A target that is
// already gone is silently dropped: the sender learns about the
// departure from the next roster update.
func (r *Router) Relay(from domain.ClientID, env domain.Envelope) error {
	if env.Kind == domain.KindCandidate && !env.HasCompleteCandidate() {
		log.Debug().Str("client_id", from.String()).Msg("Incomplete candidate dropped")
		return domain.ErrMalformedMessage
	}

	env.From = from.String()

	if env.To != "" {
		c, err := r.registry.Resolve(domain.ClientID(env.To))
		if err != nil {
			log.Debug().Str("type", string(env.Kind)).Str("target_id", env.To).Msg("Relay target gone, dropped")
			return nil
		}
		if err := c.Send(env); err != nil {
			log.Warn().Err(err).Str("type", string(env.Kind)).Str("target_id", env.To).Msg("Relay delivery failed")
		}
		return nil
	}

	if env.Room == "" {
		return domain.ErrMalformedMessage
	}

	for _, id := range r.directory.MembersOf(env.Room) {
		if id == from {
			continue
		}
		c, err := r.registry.Resolve(id)
		if err != nil {
			continue
		}
		if err := c.Send(env); err != nil {
			log.Warn().Err(err).Str("type", string(env.Kind)).Str("target_id", id.String()).Msg("Relay delivery failed")
		}
	}
	return nil
}

// broadcastRoster pushes the roster to every listed member. A member
// that cannot be resolved or accept the message does not stop delivery
// to the rest.
func (r *Router) broadcastRoster(room string, members []domain.ClientID) {
	env := domain.NewRoster(room, members)
	for _, id := range members {
		c, err := r.registry.Resolve(id)
		if err != nil {
			log.Debug().Str("room", room).Str("client_id", id.String()).Msg("Roster delivery skipped, client gone")
			continue
		}
		if err := c.Send(env); err != nil {
			log.Warn().Err(err).Str("room", room).Str("client_id", id.String()).Msg("Roster delivery failed")
		}
	}
}
