package signaling

import (
	"encoding/json"
	"fmt"

	"github.com/kenobeee/mettta-space/internal/protocol"
)

// relay forwards an opaque negotiation payload between two members of the
// same room. The payload is never inspected.
func (h *Hub) relay(p *participant, targetID string, payload json.RawMessage) error {
	if targetID == "" {
		return fmt.Errorf("%w: signal target is required", ErrBadRequest)
	}

	target, ok := h.participants[targetID]
	if !ok || p.roomID == "" || target.roomID != p.roomID {
		return ErrNotSameRoom
	}

	h.logger.Debug("Relaying signal", "client", p.id, "peer", targetID, "lobby", p.roomID, "bytes", len(payload))
	h.send(targetID, protocol.SignalEvent{From: p.id, Payload: payload})
	return nil
}
