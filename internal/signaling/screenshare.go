package signaling

import (
	"fmt"

	"github.com/kenobeee/mettta-space/internal/protocol"
)

// At most one member of a room holds the screen share.

func (h *Hub) screenShare(p *participant, action string) error {
	r, err := h.currentRoom(p)
	if err != nil {
		return err
	}

	switch action {
	case protocol.ShareStart:
		return h.startShare(r, p.id)
	case protocol.ShareStop:
		h.stopShare(r, p.id)
		return nil
	default:
		return fmt.Errorf("%w: unknown screen share action %q", ErrValidation, action)
	}
}

func (h *Hub) startShare(r *room, id string) error {
	if r.sharerID != "" && r.sharerID != id {
		return ErrShareHeld
	}
	r.sharerID = id

	h.logger.Info("Screen share started", "client", id, "lobby", r.id)

	sharer := id
	h.broadcastLobbyState(r)
	h.sendMany(r.members, protocol.ScreenSharer{UserID: &sharer})
	return nil
}

// stopShare is a no-op unless id holds the share.
func (h *Hub) stopShare(r *room, id string) {
	if r.sharerID == "" || r.sharerID != id {
		return
	}
	r.sharerID = ""

	h.logger.Info("Screen share stopped", "client", id, "lobby", r.id)

	h.sendMany(r.members, protocol.ScreenSharer{})
	h.broadcastLobbyState(r)
}

// releaseShare clears the share held by a departing member. The caller
// broadcasts the resulting room state.
func (h *Hub) releaseShare(r *room, id string) {
	if r.sharerID != id {
		return
	}
	r.sharerID = ""
	h.sendMany(r.members, protocol.ScreenSharer{})
}
