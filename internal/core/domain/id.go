package domain

import (
	"github.com/google/uuid"
)

// ClientID is the opaque identity of one live connection. It is issued
// by the registry at connection time and never reused while any room
// still references it.
type ClientID string

func NewClientID() ClientID {
	return ClientID(uuid.NewString())
}

func (id ClientID) String() string {
	return string(id)
}
