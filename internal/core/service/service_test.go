package service

import (
	"sync"
	"testing"

	"github.com/quietbit/parley/internal/core/domain"
)

// fakeClient records everything pushed to it.
type fakeClient struct {
	mu       sync.Mutex
	received []domain.Envelope
	sendErr  error
}

func (c *fakeClient) Send(env domain.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.received = append(c.received, env)
	return nil
}

func (c *fakeClient) Close() error { return nil }

func (c *fakeClient) envelopes() []domain.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Envelope, len(c.received))
	copy(out, c.received)
	return out
}

func (c *fakeClient) byKind(k domain.Kind) []domain.Envelope {
	var out []domain.Envelope
	for _, env := range c.envelopes() {
		if env.Kind == k {
			out = append(out, env)
		}
	}
	return out
}

func (c *fakeClient) lastRoster(t *testing.T) domain.Envelope {
	t.Helper()
	rosters := c.byKind(domain.KindRoster)
	if len(rosters) == 0 {
		t.Fatal("no roster update received")
	}
	return rosters[len(rosters)-1]
}

func mustRegister(t *testing.T, r *Registry, c *fakeClient) domain.ClientID {
	t.Helper()
	id, err := r.Register(c)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return id
}

func wantMembers(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("members = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("members = %v, want %v", got, want)
		}
	}
}
