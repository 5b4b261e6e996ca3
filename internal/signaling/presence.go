package signaling

import "github.com/kenobeee/mettta-space/internal/protocol"

// participant is the per-connection presence record.
type participant struct {
	id          string
	displayName string
	deviceID    string
	userID      string
	roomID      string
	muted       bool
	handRaised  bool
	chatRooms   map[string]bool
}

func (p *participant) authenticated() bool {
	return p.userID != ""
}

func (p *participant) member(sharerID string) protocol.Member {
	return protocol.Member{
		ID:             p.id,
		DisplayName:    p.displayName,
		Muted:          p.muted,
		IsScreenSharer: sharerID != "" && sharerID == p.id,
		HandRaised:     p.handRaised,
	}
}

// currentRoom returns the room p is in, or ErrNotInLobby.
func (h *Hub) currentRoom(p *participant) (*room, error) {
	if p.roomID == "" {
		return nil, ErrNotInLobby
	}
	r, ok := h.rooms[p.roomID]
	if !ok {
		p.roomID = ""
		return nil, ErrNotInLobby
	}
	return r, nil
}

// setMuted records the mute flag. Outside a room nothing is broadcast.
func (h *Hub) setMuted(p *participant, muted bool) {
	p.muted = muted
	r, err := h.currentRoom(p)
	if err != nil {
		return
	}
	h.broadcastLobbyState(r)
	h.sendMany(r.members, protocol.UserStatus{UserID: p.id, Muted: muted})
}

func (h *Hub) setHand(p *participant, raised bool) error {
	r, err := h.currentRoom(p)
	if err != nil {
		return err
	}
	p.handRaised = raised
	h.broadcastLobbyState(r)
	h.sendMany(r.members, protocol.HandEvent{UserID: p.id, Raised: raised})
	return nil
}
