package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeClient(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ClientMessage
	}{
		{
			name:  "join lobby",
			input: `{"type":"joinLobby","lobbyId":"l1"}`,
			want:  JoinLobby{LobbyID: "l1"},
		},
		{
			name:  "empty body",
			input: `{"type":"listLobbies"}`,
			want:  ListLobbies{},
		},
		{
			name:  "screen share",
			input: `{"type":"screenShare","action":"start"}`,
			want:  ScreenShare{Action: ShareStart},
		},
		{
			name:  "channel post uses shared type name",
			input: `{"type":"chatRoomMessage","roomId":"general","text":"hi"}`,
			want:  PostChatRoom{RoomID: "general", Text: "hi"},
		},
		{
			name:  "create meeting",
			input: `{"type":"createMeeting","meeting":{"title":"Retro","startsAt":"2026-01-02T10:00:00Z","durationMin":30}}`,
			want: CreateMeeting{Meeting: MeetingInput{
				Title:       "Retro",
				StartsAt:    "2026-01-02T10:00:00Z",
				DurationMin: 30,
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeClient([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeClientSignalKeepsPayloadBytes(t *testing.T) {
	raw := `{"type":"signal","targetId":"b","payload":{"sdp":{"type":"offer","sdp":"v=0"}}}`

	got, err := DecodeClient([]byte(raw))
	require.NoError(t, err)

	sig, ok := got.(Signal)
	require.True(t, ok)
	assert.Equal(t, "b", sig.TargetID)
	assert.JSONEq(t, `{"sdp":{"type":"offer","sdp":"v=0"}}`, string(sig.Payload))
}

func TestDecodeClientErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{name: "not json", input: `hello`, want: ErrMalformed},
		{name: "missing type", input: `{"lobbyId":"l1"}`, want: ErrMalformed},
		{name: "wrong field type", input: `{"type":"status","muted":"yes"}`, want: ErrMalformed},
		{name: "unknown type", input: `{"type":"dance"}`, want: ErrUnknownType},
		{name: "server only type", input: `{"type":"welcome","clientId":"x"}`, want: ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeClient([]byte(tt.input))
			assert.Nil(t, msg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEncode(t *testing.T) {
	t.Run("type first with fields", func(t *testing.T) {
		data, err := Encode(UserStatus{UserID: "a", Muted: true})
		require.NoError(t, err)
		assert.Equal(t, `{"type":"userStatus","userId":"a","muted":true}`, string(data))
	})

	t.Run("empty struct", func(t *testing.T) {
		data, err := Encode(LeaveLobby{})
		require.NoError(t, err)
		assert.Equal(t, `{"type":"leaveLobby"}`, string(data))
	})

	t.Run("nil sharer is explicit null", func(t *testing.T) {
		data, err := Encode(ScreenSharer{})
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"screenSharer","userId":null}`, string(data))
	})

	t.Run("server frame decodes back", func(t *testing.T) {
		data, err := Encode(SignalEvent{From: "a", Payload: json.RawMessage(`{"candidate":{"candidate":"c1"}}`)})
		require.NoError(t, err)

		msg, err := DecodeServer(data)
		require.NoError(t, err)
		ev, ok := msg.(SignalEvent)
		require.True(t, ok)
		assert.Equal(t, "a", ev.From)
		assert.JSONEq(t, `{"candidate":{"candidate":"c1"}}`, string(ev.Payload))
	})

	t.Run("signal payload bytes are kept", func(t *testing.T) {
		payload := `{ "sdp" : "v=0\r\n",  "type":"offer" }`
		data, err := Encode(SignalEvent{From: "a", Payload: json.RawMessage(payload)})
		require.NoError(t, err)
		assert.Equal(t, `{"type":"signal","from":"a","payload":`+payload+`}`, string(data))

		msg, err := DecodeServer(data)
		require.NoError(t, err)
		assert.Equal(t, payload, string(msg.(SignalEvent).Payload))
	})

	t.Run("signal payload must be JSON", func(t *testing.T) {
		_, err := Encode(SignalEvent{From: "a", Payload: json.RawMessage(`{"sdp":`)})
		assert.ErrorIs(t, err, ErrMalformed)
	})
}
