package signaling

import (
	"context"
	"fmt"
	"strings"

	"github.com/kenobeee/mettta-space/internal/logging"
	"github.com/kenobeee/mettta-space/internal/protocol"
)

// handle processes one inbound frame to completion, broadcasts included.
func (h *Hub) handle(id string, data []byte) {
	p, ok := h.participants[id]
	if !ok {
		return
	}

	msg, err := protocol.DecodeClient(data)
	if err != nil {
		h.logger.Debug("Rejected frame", "client", id, "error", err)
		h.sendError(id, err)
		return
	}

	if err := h.dispatch(p, msg); err != nil {
		h.logger.Debug("Request failed", "client", id, "type", msg.Kind(), "error", err)
		h.sendError(id, err)
	}
}

func (h *Hub) dispatch(p *participant, msg protocol.ClientMessage) error {
	switch m := msg.(type) {
	case protocol.Auth:
		h.authenticate(p, m.Token)
		return nil

	case protocol.Register:
		return h.register(p, m.FirstName, m.LastName)

	case protocol.ClientInfo:
		return h.clientInfo(p, m.DeviceID)

	case protocol.ListLobbies:
		h.send(p.id, protocol.Lobbies{Lobbies: h.lobbySummaries(h.now())})
		return nil

	case protocol.JoinLobby:
		return h.join(p, m.LobbyID)

	case protocol.LeaveLobby:
		h.leave(p)
		return nil

	case protocol.Signal:
		return h.relay(p, m.TargetID, m.Payload)

	case protocol.Status:
		h.setMuted(p, m.Muted)
		return nil

	case protocol.ScreenShare:
		return h.screenShare(p, m.Action)

	case protocol.Hand:
		return h.setHand(p, m.Raised)

	case protocol.Chat:
		return h.roomChat(p, m.Text)

	case protocol.ListMeetings:
		h.send(p.id, protocol.Meetings{Meetings: h.meetingList()})
		return nil

	case protocol.CreateMeeting:
		return h.createMeeting(p, m.Meeting)

	case protocol.UpdateMeeting:
		return h.updateMeeting(p, m.Meeting)

	case protocol.DeleteMeeting:
		return h.deleteMeeting(p, m.ID)

	case protocol.ListChatRooms:
		return h.listChatRooms(p)

	case protocol.JoinChatRoom:
		return h.joinChatRoom(p, m.RoomID)

	case protocol.PostChatRoom:
		return h.postChatRoom(p, m.RoomID, m.Text)

	case protocol.ChatRoomFile:
		return h.postChatRoomFile(p, m)

	case protocol.ClientLog:
		h.writeClientLog(p, m)
		return nil

	default:
		return fmt.Errorf("%w: %q", protocol.ErrUnknownType, msg.Kind())
	}
}

// writeClientLog records a client-submitted log line. Nothing is echoed back.
func (h *Hub) writeClientLog(p *participant, m protocol.ClientLog) {
	attrs := []any{"client", p.id, "category", m.Category}
	if len(m.Data) > 0 {
		attrs = append(attrs, "data", string(m.Data))
	}
	level := logging.ParseLevel(strings.ToLower(m.Level))
	h.clientLogger.Log(context.Background(), level, m.Message, attrs...)
}
