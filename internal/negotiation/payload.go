package negotiation

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	SDPOffer  = "offer"
	SDPAnswer = "answer"
)

var ErrInvalidPayload = errors.New("invalid signal payload")

// Description is a session description as it travels inside a signal payload.
type Description struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// Candidate is a trickled ICE candidate.
type Candidate struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

// Payload is the body of a relayed signal: exactly one of SDP or Candidate.
type Payload struct {
	SDP       *Description `json:"sdp,omitempty"`
	Candidate *Candidate   `json:"candidate,omitempty"`
}

func ParsePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	switch {
	case p.SDP != nil && p.Candidate != nil:
		return Payload{}, fmt.Errorf("%w: both sdp and candidate set", ErrInvalidPayload)
	case p.SDP != nil:
		if p.SDP.Type != SDPOffer && p.SDP.Type != SDPAnswer {
			return Payload{}, fmt.Errorf("%w: unsupported sdp type %q", ErrInvalidPayload, p.SDP.Type)
		}
	case p.Candidate == nil:
		return Payload{}, fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}
	return p, nil
}

// Event converts a parsed payload into the matching remote event.
func (p Payload) Event() Event {
	switch {
	case p.SDP != nil && p.SDP.Type == SDPOffer:
		return RemoteOffer{Description: *p.SDP}
	case p.SDP != nil:
		return RemoteAnswer{Description: *p.SDP}
	default:
		return RemoteCandidate{Candidate: *p.Candidate}
	}
}
