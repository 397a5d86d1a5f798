package port

import "github.com/quietbit/parley/internal/core/domain"

// Client is the push side of one live connection. Send must not block:
// an implementation that cannot accept the envelope right away drops it
// and reports the failure through the error.
type Client interface {
	Send(env domain.Envelope) error
	Close() error
}
