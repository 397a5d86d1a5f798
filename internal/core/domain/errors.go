package domain

import (
	"errors"
)

var (
	// ErrUnknownClient means an identity does not map to a live
	// connection: never registered, or already unregistered.
	ErrUnknownClient = errors.New("unknown client")

	// ErrShuttingDown is returned for registrations after the registry
	// has been closed. Existing connections are unaffected.
	ErrShuttingDown = errors.New("registry shutting down")

	// ErrMalformedMessage marks an inbound envelope missing a required
	// field. The message is discarded; the connection is not penalized.
	ErrMalformedMessage = errors.New("malformed message")
)
