package signaling

import (
	"slices"
	"time"

	"github.com/kenobeee/mettta-space/internal/chat"
	"github.com/kenobeee/mettta-space/internal/protocol"
)

// room is a lobby: either pre-declared ad-hoc or backed by a meeting with the same id.
type room struct {
	id          string
	displayName string
	kind        string
	members     []string
	sharerID    string
	history     *chat.Ring[protocol.ChatMessage]
}

func newRoom(id, displayName, kind string) *room {
	return &room{
		id:          id,
		displayName: displayName,
		kind:        kind,
		history:     chat.NewRing[protocol.ChatMessage](chat.RoomCapacity),
	}
}

func (r *room) has(id string) bool {
	return slices.Contains(r.members, id)
}

func (r *room) remove(id string) {
	r.members = slices.DeleteFunc(r.members, func(m string) bool { return m == id })
}

// resolveRoom finds the room for lobbyID, opening a meeting room when its
// window allows it.
func (h *Hub) resolveRoom(lobbyID string, now time.Time) (*room, error) {
	if r, ok := h.rooms[lobbyID]; ok && r.kind == protocol.LobbyAdHoc {
		return r, nil
	}

	m, ok := h.schedule.Get(lobbyID)
	if !ok {
		return nil, ErrLobbyNotFound
	}
	if err := m.CheckJoinable(now, h.loc); err != nil {
		return nil, err
	}

	r, ok := h.rooms[m.ID]
	if !ok {
		r = newRoom(m.ID, m.Title, protocol.LobbyMeeting)
		h.rooms[m.ID] = r
	}
	return r, nil
}

func (h *Hub) join(p *participant, lobbyID string) error {
	r, err := h.resolveRoom(lobbyID, h.now())
	if err != nil {
		return WrapError("joinLobby", err, lobbyID)
	}

	if p.roomID == r.id && r.has(p.id) {
		h.broadcastLobbyState(r)
		h.sendHistory(p.id, r)
		h.broadcastLobbies()
		return nil
	}

	h.leave(p)

	r.members = append(r.members, p.id)
	p.roomID = r.id

	h.logger.Info("Client joined lobby", "client", p.id, "lobby", r.id, "members", len(r.members))

	h.broadcastLobbyState(r)
	h.sendHistory(p.id, r)
	h.broadcastLobbies()
	return nil
}

// leave removes p from its room, if any, and reports whether it was in one.
func (h *Hub) leave(p *participant) bool {
	if p.roomID == "" {
		return false
	}
	r, ok := h.rooms[p.roomID]
	p.roomID = ""
	p.handRaised = false
	if !ok {
		return false
	}

	r.remove(p.id)
	h.releaseShare(r, p.id)

	if len(r.members) == 0 {
		r.history.Reset()
		if r.kind == protocol.LobbyMeeting {
			delete(h.rooms, r.id)
		}
	}

	h.logger.Info("Client left lobby", "client", p.id, "lobby", r.id, "members", len(r.members))

	h.broadcastLobbyState(r)
	h.broadcastLobbies()
	return true
}

// evict empties a meeting room after its meeting was removed. Every evicted
// member receives the room state without themselves.
func (h *Hub) evict(roomID string) {
	r, ok := h.rooms[roomID]
	if !ok {
		return
	}
	for _, id := range slices.Clone(r.members) {
		p, ok := h.participants[id]
		if !ok {
			r.remove(id)
			continue
		}
		h.leave(p)
		h.send(id, h.lobbyState(r))
	}
	delete(h.rooms, roomID)
}

func (h *Hub) lobbyState(r *room) protocol.LobbyState {
	members := make([]protocol.Member, 0, len(r.members))
	for _, id := range r.members {
		if p, ok := h.participants[id]; ok {
			members = append(members, p.member(r.sharerID))
		}
	}
	return protocol.LobbyState{LobbyID: r.id, Members: members}
}

func (h *Hub) broadcastLobbyState(r *room) {
	h.sendMany(r.members, h.lobbyState(r))
}

func (h *Hub) broadcastLobbies() {
	h.broadcastAll(protocol.Lobbies{Lobbies: h.lobbySummaries(h.now())})
}

func (h *Hub) sendHistory(id string, r *room) {
	h.send(id, protocol.ChatHistory{LobbyID: r.id, Messages: r.history.Snapshot()})
}

func (h *Hub) memberCount(id string) int {
	if r, ok := h.rooms[id]; ok {
		return len(r.members)
	}
	return 0
}

// lobbySummaries lists ad-hoc lobbies in configured order, then meetings
// starting on now's day that have not ended, by start time.
func (h *Hub) lobbySummaries(now time.Time) []protocol.LobbySummary {
	out := make([]protocol.LobbySummary, 0, len(h.adhocOrder))
	for _, id := range h.adhocOrder {
		r := h.rooms[id]
		out = append(out, protocol.LobbySummary{
			ID:          r.id,
			DisplayName: r.displayName,
			Count:       len(r.members),
			Kind:        protocol.LobbyAdHoc,
		})
	}

	for _, m := range h.schedule.Today(now, h.loc) {
		startsAt := m.StartsAt
		duration := m.DurationMin
		out = append(out, protocol.LobbySummary{
			ID:          m.ID,
			DisplayName: m.Title,
			Count:       h.memberCount(m.ID),
			Kind:        protocol.LobbyMeeting,
			StartsAt:    &startsAt,
			DurationMin: &duration,
		})
	}
	return out
}
