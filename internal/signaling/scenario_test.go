package signaling

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenobeee/mettta-space/internal/protocol"
)

func (th *testHub) createMeeting(t *testing.T, id, title string, start time.Time, dur int) protocol.Meeting {
	t.Helper()
	th.sendJSON(t, id, map[string]any{
		"type": "createMeeting",
		"meeting": map[string]any{
			"title":       title,
			"startsAt":    start.Format(time.RFC3339),
			"durationMin": dur,
		},
	})
	for _, m := range lastOf[protocol.Meetings](t, th.conns[id]).Meetings {
		if m.Title == title {
			return m
		}
	}
	t.Fatalf("meeting %q not created", title)
	return protocol.Meeting{}
}

func TestMeetingJoinWindow(t *testing.T) {
	h := newTestHub(t)
	owner, _ := h.dial()
	h.login(t, owner)
	guest, cg := h.dial()

	m := h.createMeeting(t, owner, "Planning", testStart.Add(4*time.Hour), 30)

	h.joinLobby(t, guest, m.ID)
	assert.Equal(t, CodeNotStarted, lastError(t, cg).Code)
	assert.NotContains(t, h.rooms, m.ID)

	h.clock.now = testStart.Add(4 * time.Hour)
	h.joinLobby(t, guest, m.ID)
	state := lastOf[protocol.LobbyState](t, cg)
	assert.Equal(t, m.ID, state.LobbyID)
	assert.Equal(t, []string{guest}, memberIDs(state))

	var summary protocol.LobbySummary
	for _, l := range lastOf[protocol.Lobbies](t, cg).Lobbies {
		if l.ID == m.ID {
			summary = l
		}
	}
	assert.Equal(t, protocol.LobbyMeeting, summary.Kind)
	assert.Equal(t, 1, summary.Count)
	require.NotNil(t, summary.DurationMin)
	assert.Equal(t, 30, *summary.DurationMin)

	// meeting rooms disappear once empty
	h.sendJSON(t, guest, map[string]any{"type": "leaveLobby"})
	assert.NotContains(t, h.rooms, m.ID)

	h.clock.now = testStart.Add(4*time.Hour + 31*time.Minute)
	h.joinLobby(t, guest, m.ID)
	assert.Equal(t, CodeEnded, lastError(t, cg).Code)
}

func TestMeetingOnAnotherDay(t *testing.T) {
	h := newTestHub(t)
	owner, co := h.dial()
	h.login(t, owner)

	m := h.createMeeting(t, owner, "Tomorrow", testStart.Add(24*time.Hour), 15)

	h.joinLobby(t, owner, m.ID)
	assert.Equal(t, CodeNotToday, lastError(t, co).Code)

	for _, l := range lastOf[protocol.Lobbies](t, co).Lobbies {
		assert.NotEqual(t, m.ID, l.ID, "only today's meetings are listed")
	}
}

func TestOverlappingMeetingRejected(t *testing.T) {
	h := newTestHub(t)
	owner, co := h.dial()
	h.login(t, owner)

	first := h.createMeeting(t, owner, "Standup", testStart.Add(30*time.Minute), 60)
	co.reset()

	h.sendJSON(t, owner, map[string]any{
		"type": "createMeeting",
		"meeting": map[string]any{
			"title":       "Clash",
			"startsAt":    testStart.Add(time.Hour).Format(time.RFC3339),
			"durationMin": 30,
		},
	})

	clash := lastError(t, co)
	assert.Equal(t, CodeOverlap, clash.Code)
	assert.True(t, strings.HasPrefix(clash.Message, "createMeeting: "), clash.Message)
	assert.Contains(t, clash.Message, "Clash")
	assert.Empty(t, received[protocol.Meetings](t, co), "no schedule broadcast")
	all := h.schedule.All()
	require.Len(t, all, 1)
	assert.Equal(t, first.ID, all[0].ID)

	// touching ends do not overlap
	h.createMeeting(t, owner, "After", testStart.Add(90*time.Minute), 30)
	assert.Len(t, h.schedule.All(), 2)
}

func TestMeetingRequiresAuth(t *testing.T) {
	h := newTestHub(t)
	id, c := h.dial()

	h.sendJSON(t, id, map[string]any{
		"type":    "createMeeting",
		"meeting": map[string]any{"title": "x", "startsAt": testStart.Add(time.Hour).Format(time.RFC3339), "durationMin": 10},
	})
	assert.Equal(t, CodeUnauthorized, lastError(t, c).Code)

	h.sendJSON(t, id, map[string]any{"type": "deleteMeeting", "id": "nope"})
	assert.Equal(t, CodeUnauthorized, lastError(t, c).Code)
}

func TestMeetingCRUDBroadcasts(t *testing.T) {
	h := newTestHub(t)
	owner, _ := h.dial()
	h.login(t, owner)
	_, watcher := h.dial()

	m := h.createMeeting(t, owner, "Retro", testStart.Add(2*time.Hour), 45)
	assert.Len(t, lastOf[protocol.Meetings](t, watcher).Meetings, 1)

	h.sendJSON(t, owner, map[string]any{
		"type": "updateMeeting",
		"meeting": map[string]any{
			"id":          m.ID,
			"title":       "Retro v2",
			"startsAt":    m.StartsAt.Format(time.RFC3339),
			"durationMin": 60,
		},
	})
	updated := lastOf[protocol.Meetings](t, watcher).Meetings
	require.Len(t, updated, 1)
	assert.Equal(t, "Retro v2", updated[0].Title)
	assert.Equal(t, 60, updated[0].DurationMin)
	assert.True(t, m.CreatedAt.Equal(updated[0].CreatedAt))

	h.sendJSON(t, owner, map[string]any{"type": "listMeetings"})
	assert.Len(t, lastOf[protocol.Meetings](t, h.conns[owner]).Meetings, 1)

	h.sendJSON(t, owner, map[string]any{"type": "deleteMeeting", "id": m.ID})
	assert.Empty(t, lastOf[protocol.Meetings](t, watcher).Meetings)

	h.sendJSON(t, owner, map[string]any{"type": "deleteMeeting", "id": m.ID})
	assert.Equal(t, CodeNotFound, lastError(t, h.conns[owner]).Code)
}

func TestDeletingMeetingEvictsMembers(t *testing.T) {
	h := newTestHub(t)
	owner, _ := h.dial()
	h.login(t, owner)
	guest, cg := h.dial()

	m := h.createMeeting(t, owner, "Demo", testStart, 60)
	h.joinLobby(t, guest, m.ID)
	h.joinLobby(t, owner, m.ID)
	cg.reset()

	h.sendJSON(t, owner, map[string]any{"type": "deleteMeeting", "id": m.ID})

	assert.NotContains(t, h.rooms, m.ID)
	assert.Empty(t, h.participants[guest].roomID)
	assert.Empty(t, h.participants[owner].roomID)

	states := received[protocol.LobbyState](t, cg)
	require.NotEmpty(t, states)
	for _, id := range memberIDs(states[len(states)-1]) {
		assert.NotEqual(t, guest, id)
	}
}

func TestRenamingMeetingRenamesOpenRoom(t *testing.T) {
	h := newTestHub(t)
	owner, co := h.dial()
	h.login(t, owner)

	m := h.createMeeting(t, owner, "Sync", testStart, 60)
	h.joinLobby(t, owner, m.ID)

	h.sendJSON(t, owner, map[string]any{
		"type":    "updateMeeting",
		"meeting": map[string]any{"id": m.ID, "title": "Sync (moved)", "startsAt": m.StartsAt.Format(time.RFC3339), "durationMin": 60},
	})
	assert.Equal(t, "Sync (moved)", h.rooms[m.ID].displayName)

	var names []string
	for _, l := range lastOf[protocol.Lobbies](t, co).Lobbies {
		names = append(names, l.DisplayName)
	}
	assert.Contains(t, names, "Sync (moved)")
}

func TestRoomChatReachesMembersOnly(t *testing.T) {
	h := newTestHub(t)
	a, ca := h.dial()
	b, cb := h.dial()
	c, cc := h.dial()
	h.joinLobby(t, a, "l1")
	h.joinLobby(t, b, "l1")
	h.joinLobby(t, c, "l2")
	cc.reset()

	h.sendJSON(t, a, map[string]any{"type": "chat", "text": "  hi all  "})

	for _, conn := range []*fakeConn{ca, cb} {
		ev := lastOf[protocol.ChatEvent](t, conn)
		assert.Equal(t, "hi all", ev.Message.Text)
		assert.Equal(t, a, ev.Message.AuthorID)
		assert.Equal(t, "l1", ev.Message.ScopeID)
		assert.True(t, testStart.Equal(ev.Message.CreatedAt))
	}
	assert.Empty(t, received[protocol.ChatEvent](t, cc))

	// late joiners get the history
	h.joinLobby(t, c, "l1")
	history := lastOf[protocol.ChatHistory](t, cc)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, "hi all", history.Messages[0].Text)
}

func TestRoomChatLimits(t *testing.T) {
	h := newTestHub(t)
	a, ca := h.dial()

	h.sendJSON(t, a, map[string]any{"type": "chat", "text": "hello"})
	assert.Equal(t, CodeNotInLobby, lastError(t, ca).Code)

	h.joinLobby(t, a, "l1")
	h.sendJSON(t, a, map[string]any{"type": "chat", "text": "   "})
	assert.Equal(t, CodeValidation, lastError(t, ca).Code)

	h.sendJSON(t, a, map[string]any{"type": "chat", "text": strings.Repeat("ж", maxRoomChatRunes+1)})
	assert.Equal(t, CodeTooLong, lastError(t, ca).Code)

	for i := 0; i < 60; i++ {
		h.sendJSON(t, a, map[string]any{"type": "chat", "text": "msg"})
	}
	assert.Equal(t, 50, h.rooms["l1"].history.Len())
}

func TestScreenShareExclusive(t *testing.T) {
	h := newTestHub(t)
	a, ca := h.dial()
	b, cb := h.dial()
	h.joinLobby(t, a, "l1")
	h.joinLobby(t, b, "l1")

	h.sendJSON(t, a, map[string]any{"type": "screenShare", "action": "start"})
	sharer := lastOf[protocol.ScreenSharer](t, cb)
	require.NotNil(t, sharer.UserID)
	assert.Equal(t, a, *sharer.UserID)
	state := lastOf[protocol.LobbyState](t, cb)
	assert.True(t, state.Members[0].IsScreenSharer)
	assert.False(t, state.Members[1].IsScreenSharer)

	cb.reset()
	h.sendJSON(t, b, map[string]any{"type": "screenShare", "action": "start"})
	assert.Equal(t, CodeShareHeld, lastError(t, cb).Code)
	assert.Equal(t, a, h.rooms["l1"].sharerID)

	// a non-holder stop changes nothing
	ca.reset()
	h.sendJSON(t, b, map[string]any{"type": "screenShare", "action": "stop"})
	assert.Equal(t, a, h.rooms["l1"].sharerID)
	assert.Empty(t, ca.frames)

	h.sendJSON(t, a, map[string]any{"type": "screenShare", "action": "start"})
	assert.Equal(t, a, h.rooms["l1"].sharerID, "restarting own share is allowed")

	h.sendJSON(t, a, map[string]any{"type": "screenShare", "action": "stop"})
	assert.Empty(t, h.rooms["l1"].sharerID)
	assert.Nil(t, lastOf[protocol.ScreenSharer](t, cb).UserID)

	h.sendJSON(t, b, map[string]any{"type": "screenShare", "action": "start"})
	assert.Equal(t, b, h.rooms["l1"].sharerID)

	h.sendJSON(t, b, map[string]any{"type": "screenShare", "action": "pause"})
	assert.Equal(t, CodeValidation, lastError(t, cb).Code)
}

func TestScreenShareReleasedOnLeave(t *testing.T) {
	h := newTestHub(t)
	a, _ := h.dial()
	b, cb := h.dial()
	h.joinLobby(t, a, "l1")
	h.joinLobby(t, b, "l1")
	h.sendJSON(t, a, map[string]any{"type": "screenShare", "action": "start"})
	cb.reset()

	h.joinLobby(t, a, "l2")

	assert.Empty(t, h.rooms["l1"].sharerID)
	assert.Nil(t, lastOf[protocol.ScreenSharer](t, cb).UserID)
	state := lastOf[protocol.LobbyState](t, cb)
	assert.Equal(t, []string{b}, memberIDs(state))
	assert.False(t, state.Members[0].IsScreenSharer)
}

func TestSignalRelay(t *testing.T) {
	h := newTestHub(t)
	a, ca := h.dial()
	b, cb := h.dial()
	c, _ := h.dial()
	h.joinLobby(t, a, "l1")
	h.joinLobby(t, b, "l1")
	h.joinLobby(t, c, "l2")

	payload := json.RawMessage(`{"kind":"offer","sdp":"v=0"}`)
	h.sendJSON(t, a, map[string]any{"type": "signal", "targetId": b, "payload": payload})

	ev := lastOf[protocol.SignalEvent](t, cb)
	assert.Equal(t, a, ev.From)
	assert.JSONEq(t, string(payload), string(ev.Payload))

	spaced := `{ "kind": "candidate",  "candidate": {"candidate": "c1"} }`
	h.handle(a, []byte(`{"type":"signal","targetId":"`+b+`","payload":`+spaced+`}`))
	assert.Equal(t, spaced, string(lastOf[protocol.SignalEvent](t, cb).Payload))

	h.sendJSON(t, a, map[string]any{"type": "signal", "targetId": c, "payload": payload})
	assert.Equal(t, CodeNotSameRoom, lastError(t, ca).Code)

	h.sendJSON(t, a, map[string]any{"type": "signal", "targetId": "ghost", "payload": payload})
	assert.Equal(t, CodeNotSameRoom, lastError(t, ca).Code)

	h.sendJSON(t, a, map[string]any{"type": "signal", "payload": payload})
	assert.Equal(t, CodeBadRequest, lastError(t, ca).Code)
}

func TestChannels(t *testing.T) {
	h := newTestHub(t)
	a, ca := h.dial()
	b, cb := h.dial()
	_, co := h.dial()

	h.sendJSON(t, a, map[string]any{"type": "listChatRooms"})
	assert.Equal(t, CodeUnauthorized, lastError(t, ca).Code)

	h.login(t, a)
	h.login(t, b)

	h.sendJSON(t, a, map[string]any{"type": "listChatRooms"})
	rooms := lastOf[protocol.ChatRooms](t, ca).Rooms
	require.Len(t, rooms, 2)
	assert.Equal(t, "general", rooms[0].ID)
	assert.Equal(t, "General", rooms[0].Name)

	h.sendJSON(t, b, map[string]any{"type": "joinChatRoom", "roomId": "general"})
	assert.Empty(t, lastOf[protocol.ChatRoomHistory](t, cb).Messages)

	h.sendJSON(t, a, map[string]any{"type": "chatRoomMessage", "roomId": "general", "text": "ship it"})
	for _, conn := range []*fakeConn{ca, cb} {
		ev := lastOf[protocol.ChatRoomEvent](t, conn)
		assert.Equal(t, "ship it", ev.Message.Text)
		assert.Equal(t, "general", ev.Message.ScopeID)
	}
	assert.Empty(t, received[protocol.ChatRoomEvent](t, co))

	h.sendJSON(t, a, map[string]any{"type": "joinChatRoom", "roomId": "nowhere"})
	assert.Equal(t, CodeNotFound, lastError(t, ca).Code)

	h.sendJSON(t, a, map[string]any{"type": "chatRoomMessage", "roomId": "general", "text": strings.Repeat("x", maxChannelChatRunes+1)})
	assert.Equal(t, CodeTooLong, lastError(t, ca).Code)

	// disconnecting drops subscriptions
	h.disconnect(b)
	assert.NotContains(t, h.chatRooms["general"].subscribers, b)
}

func TestChannelFile(t *testing.T) {
	h := newTestHub(t)
	a, ca := h.dial()
	h.login(t, a)

	h.sendJSON(t, a, map[string]any{
		"type":     "chatRoomFile",
		"roomId":   "random",
		"fileName": "../notes.json",
		"fileType": "",
		"fileSize": 2,
		"dataUrl":  "data:application/json;base64,e30=",
	})
	ev := lastOf[protocol.ChatRoomEvent](t, ca)
	require.NotNil(t, ev.Message.File)
	assert.Equal(t, "notes.json", ev.Message.File.FileName)
	assert.Equal(t, "application/json", ev.Message.File.FileType)

	h.sendJSON(t, a, map[string]any{
		"type":     "chatRoomFile",
		"roomId":   "random",
		"fileName": "big.bin",
		"fileSize": 6 << 20,
		"dataUrl":  "data:application/octet-stream;base64,AA==",
	})
	assert.Equal(t, CodeTooLong, lastError(t, ca).Code)
}
