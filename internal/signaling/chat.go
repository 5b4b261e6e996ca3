package signaling

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kenobeee/mettta-space/internal/chat"
	"github.com/kenobeee/mettta-space/internal/files"
	"github.com/kenobeee/mettta-space/internal/protocol"
)

const (
	maxRoomChatRunes    = 500
	maxChannelChatRunes = 2000
)

// chatRoom is a pre-declared text channel. Its history lives as long as the process.
type chatRoom struct {
	id          string
	name        string
	subscribers map[string]bool
	history     *chat.Ring[protocol.ChatMessage]
}

func (h *Hub) newChatMessage(p *participant, scopeID string) protocol.ChatMessage {
	return protocol.ChatMessage{
		ID:          uuid.NewString(),
		ScopeID:     scopeID,
		AuthorID:    p.id,
		DisplayName: p.displayName,
		CreatedAt:   h.now().UTC(),
	}
}

func cleanText(text string, limit int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: message is empty", ErrValidation)
	}
	if utf8.RuneCountInString(text) > limit {
		return "", fmt.Errorf("%w: limit is %d characters", ErrTooLong, limit)
	}
	return text, nil
}

// roomChat appends to the room history and fans out to room members only.
func (h *Hub) roomChat(p *participant, text string) error {
	r, err := h.currentRoom(p)
	if err != nil {
		return err
	}
	text, err = cleanText(text, maxRoomChatRunes)
	if err != nil {
		return err
	}

	msg := h.newChatMessage(p, r.id)
	msg.Text = text
	r.history.Push(msg)

	h.sendMany(r.members, protocol.ChatEvent{Message: msg})
	return nil
}

func (h *Hub) chatRoomFor(p *participant, roomID string) (*chatRoom, error) {
	if !p.authenticated() {
		return nil, ErrUnauthorized
	}
	cr, ok := h.chatRooms[roomID]
	if !ok {
		return nil, ErrChannelNotFound
	}
	return cr, nil
}

func (h *Hub) listChatRooms(p *participant) error {
	if !p.authenticated() {
		return ErrUnauthorized
	}
	rooms := make([]protocol.ChatRoomSummary, 0, len(h.chatRoomOrder))
	for _, id := range h.chatRoomOrder {
		cr := h.chatRooms[id]
		rooms = append(rooms, protocol.ChatRoomSummary{ID: cr.id, Name: cr.name, Count: len(cr.subscribers)})
	}
	h.send(p.id, protocol.ChatRooms{Rooms: rooms})
	return nil
}

// joinChatRoom subscribes p. A participant may hold several subscriptions.
func (h *Hub) joinChatRoom(p *participant, roomID string) error {
	cr, err := h.chatRoomFor(p, roomID)
	if err != nil {
		return err
	}
	h.subscribe(p, cr)
	h.send(p.id, protocol.ChatRoomHistory{RoomID: cr.id, Messages: cr.history.Snapshot()})
	return nil
}

func (h *Hub) subscribe(p *participant, cr *chatRoom) {
	cr.subscribers[p.id] = true
	p.chatRooms[cr.id] = true
}

func (h *Hub) postChatRoom(p *participant, roomID, text string) error {
	cr, err := h.chatRoomFor(p, roomID)
	if err != nil {
		return err
	}
	text, err = cleanText(text, maxChannelChatRunes)
	if err != nil {
		return err
	}

	msg := h.newChatMessage(p, cr.id)
	msg.Text = text
	h.publish(p, cr, msg)
	return nil
}

func (h *Hub) postChatRoomFile(p *participant, m protocol.ChatRoomFile) error {
	cr, err := h.chatRoomFor(p, m.RoomID)
	if err != nil {
		return err
	}
	a, err := files.ValidateAttachment(files.Attachment{
		Name:    m.FileName,
		Type:    m.FileType,
		Size:    m.FileSize,
		DataURL: m.DataURL,
	})
	if err != nil {
		return err
	}

	msg := h.newChatMessage(p, cr.id)
	msg.File = &protocol.Attachment{
		FileName: a.Name,
		FileType: a.Type,
		FileSize: a.Size,
		DataURL:  a.DataURL,
	}
	h.publish(p, cr, msg)
	return nil
}

// publish records msg and fans it out. Posting subscribes the author.
func (h *Hub) publish(p *participant, cr *chatRoom, msg protocol.ChatMessage) {
	h.subscribe(p, cr)
	cr.history.Push(msg)

	ids := make([]string, 0, len(cr.subscribers))
	for id := range cr.subscribers {
		ids = append(ids, id)
	}
	h.sendMany(ids, protocol.ChatRoomEvent{Message: msg})
}
