package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
)

type envelope struct {
	Type string `json:"type"`
}

// Encode marshals m as a JSON object with its type discriminator first.
// Signal payloads are copied byte for byte.
func Encode(m Message) ([]byte, error) {
	if ev, ok := m.(SignalEvent); ok {
		return encodeSignalEvent(ev)
	}

	body, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	kind, err := json.Marshal(m.Kind())
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(body)+len(kind)+10)
	out = append(out, `{"type":`...)
	out = append(out, kind...)
	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
		return out, nil
	}
	return append(out, '}'), nil
}

// encodeSignalEvent splices the payload in unchanged; json.Marshal would
// compact a RawMessage.
func encodeSignalEvent(ev SignalEvent) ([]byte, error) {
	from, err := json.Marshal(ev.From)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(from)+len(ev.Payload)+40)
	out = append(out, `{"type":"`+TypeSignal+`","from":`...)
	out = append(out, from...)
	if len(ev.Payload) > 0 {
		if !json.Valid(ev.Payload) {
			return nil, fmt.Errorf("%w: signal payload is not JSON", ErrMalformed)
		}
		out = append(out, `,"payload":`...)
		out = append(out, ev.Payload...)
	}
	return append(out, '}'), nil
}

// DecodeClient parses one client frame into its concrete message type.
func DecodeClient(data []byte) (ClientMessage, error) {
	kind, err := peekType(data)
	if err != nil {
		return nil, err
	}

	switch kind {
	case TypeAuth:
		return decodeClient[Auth](data)
	case TypeRegister:
		return decodeClient[Register](data)
	case TypeClientInfo:
		return decodeClient[ClientInfo](data)
	case TypeListLobbies:
		return decodeClient[ListLobbies](data)
	case TypeJoinLobby:
		return decodeClient[JoinLobby](data)
	case TypeLeaveLobby:
		return decodeClient[LeaveLobby](data)
	case TypeSignal:
		return decodeClient[Signal](data)
	case TypeStatus:
		return decodeClient[Status](data)
	case TypeScreenShare:
		return decodeClient[ScreenShare](data)
	case TypeHand:
		return decodeClient[Hand](data)
	case TypeChat:
		return decodeClient[Chat](data)
	case TypeListMeetings:
		return decodeClient[ListMeetings](data)
	case TypeCreateMeeting:
		return decodeClient[CreateMeeting](data)
	case TypeUpdateMeeting:
		return decodeClient[UpdateMeeting](data)
	case TypeDeleteMeeting:
		return decodeClient[DeleteMeeting](data)
	case TypeListChatRooms:
		return decodeClient[ListChatRooms](data)
	case TypeJoinChatRoom:
		return decodeClient[JoinChatRoom](data)
	case TypeChatRoomMessage:
		return decodeClient[PostChatRoom](data)
	case TypeChatRoomFile:
		return decodeClient[ChatRoomFile](data)
	case TypeClientLog:
		return decodeClient[ClientLog](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, kind)
	}
}

// DecodeServer parses one server frame into its concrete message type.
func DecodeServer(data []byte) (ServerMessage, error) {
	kind, err := peekType(data)
	if err != nil {
		return nil, err
	}

	switch kind {
	case TypeWelcome:
		return decodeServer[Welcome](data)
	case TypeAuthOK:
		return decodeServer[AuthOK](data)
	case TypeAuthError:
		return decodeServer[AuthError](data)
	case TypeLobbies:
		return decodeServer[Lobbies](data)
	case TypeLobbyState:
		return decodeServer[LobbyState](data)
	case TypeChatHistory:
		return decodeServer[ChatHistory](data)
	case TypeChat:
		return decodeServer[ChatEvent](data)
	case TypeMeetings:
		return decodeServer[Meetings](data)
	case TypeSignal:
		return decodeServer[SignalEvent](data)
	case TypeUserStatus:
		return decodeServer[UserStatus](data)
	case TypeScreenSharer:
		return decodeServer[ScreenSharer](data)
	case TypeHand:
		return decodeServer[HandEvent](data)
	case TypeError:
		return decodeServer[Error](data)
	case TypeChatRooms:
		return decodeServer[ChatRooms](data)
	case TypeChatRoomHistory:
		return decodeServer[ChatRoomHistory](data)
	case TypeChatRoomMessage:
		return decodeServer[ChatRoomEvent](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, kind)
	}
}

func peekType(data []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return "", fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return env.Type, nil
}

func decodeClient[T ClientMessage](data []byte) (ClientMessage, error) {
	var m T
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return m, nil
}

func decodeServer[T ServerMessage](data []byte) (ServerMessage, error) {
	var m T
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return m, nil
}
