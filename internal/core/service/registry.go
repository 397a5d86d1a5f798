package service

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/quietbit/parley/internal/core/domain"
	"github.com/quietbit/parley/internal/core/port"
)

// Registry owns the identity-to-connection mapping and is the only
// component that issues or retires identities. Identities are fresh
// uuids, so two live connections can never collide.
type Registry struct {
	mu      sync.RWMutex
	clients map[domain.ClientID]port.Client
	closed  bool
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[domain.ClientID]port.Client),
	}
}

func (r *Registry) Register(c port.Client) (domain.ClientID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return "", domain.ErrShuttingDown
	}

	id := domain.NewClientID()
	r.clients[id] = c
	log.Info().Str("client_id", id.String()).Int("count", len(r.clients)).Msg("Client registered")
	return id, nil
}

func (r *Registry) Resolve(id domain.ClientID) (port.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[id]
	if !ok {
		return nil, domain.ErrUnknownClient
	}
	return c, nil
}

// Unregister is idempotent; retiring an unknown identity is a no-op.
func (r *Registry) Unregister(id domain.ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[id]; !ok {
		return
	}
	delete(r.clients, id)
	log.Info().Str("client_id", id.String()).Int("count", len(r.clients)).Msg("Client unregistered")
}

// Close stops issuing identities. Connections already registered keep
// resolving until they disconnect.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}
