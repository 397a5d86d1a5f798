package domain

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
)

type Kind string

const (
	KindHello     Kind = "hello"
	KindJoin      Kind = "join"
	KindLeave     Kind = "leave"
	KindRoster    Kind = "roster-update"
	KindOffer     Kind = "offer"
	KindAnswer    Kind = "answer"
	KindCandidate Kind = "candidate"
	KindError     Kind = "connection-error"
)

// Envelope is the one message shape on the signaling wire, both
// directions. Which fields are set depends on Kind. The sdp payload is
// opaque to the server and forwarded verbatim.
type Envelope struct {
	Kind      Kind                     `json:"type"`
	ID        string                   `json:"id,omitempty"`
	Room      string                   `json:"roomId,omitempty"`
	From      string                   `json:"fromId,omitempty"`
	To        string                   `json:"targetId,omitempty"`
	SDP       json.RawMessage          `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
	Members   []string                 `json:"members,omitempty"`
	Code      string                   `json:"code,omitempty"`
	Message   string                   `json:"message,omitempty"`
}

// HasCompleteCandidate reports whether a candidate envelope carries the
// fields a receiving peer needs to call addIceCandidate. Envelopes
// failing this are dropped, not forwarded.
func (e Envelope) HasCompleteCandidate() bool {
	return e.Candidate != nil && e.Candidate.Candidate != "" && e.Candidate.SDPMLineIndex != nil
}

func NewHello(id ClientID) Envelope {
	return Envelope{
		Kind: KindHello,
		ID:   id.String(),
	}
}

func NewRoster(room string, members []ClientID) Envelope {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.String()
	}
	return Envelope{
		Kind:    KindRoster,
		Room:    room,
		Members: names,
	}
}

func NewConnectionError(code, message string) Envelope {
	return Envelope{
		Kind:    KindError,
		Code:    code,
		Message: message,
	}
}
