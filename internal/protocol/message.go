package protocol

import (
	"encoding/json"
	"time"
)

// Message type discriminators. Some types travel in both directions
// (signal, hand, chat, chatRoomMessage) with a different shape each way.
const (
	TypeAuth            = "auth"
	TypeRegister        = "register"
	TypeClientInfo      = "clientInfo"
	TypeListLobbies     = "listLobbies"
	TypeJoinLobby       = "joinLobby"
	TypeLeaveLobby      = "leaveLobby"
	TypeSignal          = "signal"
	TypeStatus          = "status"
	TypeScreenShare     = "screenShare"
	TypeHand            = "hand"
	TypeChat            = "chat"
	TypeListMeetings    = "listMeetings"
	TypeCreateMeeting   = "createMeeting"
	TypeUpdateMeeting   = "updateMeeting"
	TypeDeleteMeeting   = "deleteMeeting"
	TypeListChatRooms   = "listChatRooms"
	TypeJoinChatRoom    = "joinChatRoom"
	TypeChatRoomMessage = "chatRoomMessage"
	TypeChatRoomFile    = "chatRoomFile"
	TypeClientLog       = "clientLog"

	TypeWelcome         = "welcome"
	TypeAuthOK          = "authOk"
	TypeAuthError       = "authError"
	TypeLobbies         = "lobbies"
	TypeLobbyState      = "lobbyState"
	TypeChatHistory     = "chatHistory"
	TypeMeetings        = "meetings"
	TypeUserStatus      = "userStatus"
	TypeScreenSharer    = "screenSharer"
	TypeError           = "error"
	TypeChatRooms       = "chatRooms"
	TypeChatRoomHistory = "chatRoomHistory"
)

// Screen share actions.
const (
	ShareStart = "start"
	ShareStop  = "stop"
)

// Lobby kinds.
const (
	LobbyAdHoc   = "adhoc"
	LobbyMeeting = "meeting"
)

// Message is anything that travels over the socket.
type Message interface {
	Kind() string
}

// ClientMessage is the closed set of messages a client may send.
type ClientMessage interface {
	Message
	clientMessage()
}

// ServerMessage is the closed set of messages the server emits.
type ServerMessage interface {
	Message
	serverMessage()
}

// --- Client to server ---

type Auth struct {
	Token string `json:"token"`
}

type Register struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type ClientInfo struct {
	DeviceID string `json:"deviceId"`
}

type ListLobbies struct{}

type JoinLobby struct {
	LobbyID string `json:"lobbyId"`
}

type LeaveLobby struct{}

// Signal carries an opaque negotiation payload to another participant.
type Signal struct {
	TargetID string          `json:"targetId"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

type Status struct {
	Muted bool `json:"muted"`
}

type ScreenShare struct {
	Action string `json:"action"`
}

type Hand struct {
	Raised bool `json:"raised"`
}

type Chat struct {
	Text string `json:"text"`
}

type ListMeetings struct{}

// MeetingInput is the client-supplied form of a meeting.
type MeetingInput struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	StartsAt    string `json:"startsAt"`
	DurationMin int    `json:"durationMin"`
}

type CreateMeeting struct {
	Meeting MeetingInput `json:"meeting"`
}

type UpdateMeeting struct {
	Meeting MeetingInput `json:"meeting"`
}

type DeleteMeeting struct {
	ID string `json:"id"`
}

type ListChatRooms struct{}

type JoinChatRoom struct {
	RoomID string `json:"roomId"`
}

type PostChatRoom struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

type ChatRoomFile struct {
	RoomID   string `json:"roomId"`
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize"`
	DataURL  string `json:"dataUrl"`
}

type ClientLog struct {
	Level    string          `json:"level"`
	Category string          `json:"category"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data,omitempty"`
}

func (Auth) Kind() string          { return TypeAuth }
func (Register) Kind() string      { return TypeRegister }
func (ClientInfo) Kind() string    { return TypeClientInfo }
func (ListLobbies) Kind() string   { return TypeListLobbies }
func (JoinLobby) Kind() string     { return TypeJoinLobby }
func (LeaveLobby) Kind() string    { return TypeLeaveLobby }
func (Signal) Kind() string        { return TypeSignal }
func (Status) Kind() string        { return TypeStatus }
func (ScreenShare) Kind() string   { return TypeScreenShare }
func (Hand) Kind() string          { return TypeHand }
func (Chat) Kind() string          { return TypeChat }
func (ListMeetings) Kind() string  { return TypeListMeetings }
func (CreateMeeting) Kind() string { return TypeCreateMeeting }
func (UpdateMeeting) Kind() string { return TypeUpdateMeeting }
func (DeleteMeeting) Kind() string { return TypeDeleteMeeting }
func (ListChatRooms) Kind() string { return TypeListChatRooms }
func (JoinChatRoom) Kind() string  { return TypeJoinChatRoom }
func (PostChatRoom) Kind() string  { return TypeChatRoomMessage }
func (ChatRoomFile) Kind() string  { return TypeChatRoomFile }
func (ClientLog) Kind() string     { return TypeClientLog }

func (Auth) clientMessage()          {}
func (Register) clientMessage()      {}
func (ClientInfo) clientMessage()    {}
func (ListLobbies) clientMessage()   {}
func (JoinLobby) clientMessage()     {}
func (LeaveLobby) clientMessage()    {}
func (Signal) clientMessage()        {}
func (Status) clientMessage()        {}
func (ScreenShare) clientMessage()   {}
func (Hand) clientMessage()          {}
func (Chat) clientMessage()          {}
func (ListMeetings) clientMessage()  {}
func (CreateMeeting) clientMessage() {}
func (UpdateMeeting) clientMessage() {}
func (DeleteMeeting) clientMessage() {}
func (ListChatRooms) clientMessage() {}
func (JoinChatRoom) clientMessage()  {}
func (PostChatRoom) clientMessage()  {}
func (ChatRoomFile) clientMessage()  {}
func (ClientLog) clientMessage()     {}

// --- Shared shapes ---

type Profile struct {
	ID          string `json:"id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DisplayName string `json:"displayName"`
}

type LobbySummary struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"displayName"`
	Count       int        `json:"count"`
	Kind        string     `json:"kind"`
	StartsAt    *time.Time `json:"startsAt,omitempty"`
	DurationMin *int       `json:"durationMin,omitempty"`
}

type Member struct {
	ID             string `json:"id"`
	DisplayName    string `json:"displayName"`
	Muted          bool   `json:"muted"`
	IsScreenSharer bool   `json:"isScreenSharer"`
	HandRaised     bool   `json:"handRaised"`
}

type Meeting struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	StartsAt    time.Time `json:"startsAt"`
	DurationMin int       `json:"durationMin"`
	CreatedAt   time.Time `json:"createdAt"`
	CreatedBy   string    `json:"createdBy,omitempty"`
}

type Attachment struct {
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize"`
	DataURL  string `json:"dataUrl"`
}

// ChatMessage is a single entry of a room or channel history.
type ChatMessage struct {
	ID          string      `json:"id"`
	ScopeID     string      `json:"scopeId"`
	AuthorID    string      `json:"authorId"`
	DisplayName string      `json:"displayName"`
	Text        string      `json:"text,omitempty"`
	File        *Attachment `json:"file,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type ChatRoomSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// --- Server to client ---

type Welcome struct {
	ClientID string `json:"clientId"`
}

type AuthOK struct {
	Token   string  `json:"token"`
	Profile Profile `json:"profile"`
}

type AuthError struct {
	Message string `json:"message"`
}

type Lobbies struct {
	Lobbies []LobbySummary `json:"lobbies"`
}

type LobbyState struct {
	LobbyID string   `json:"lobbyId"`
	Members []Member `json:"members"`
}

type ChatHistory struct {
	LobbyID  string        `json:"lobbyId"`
	Messages []ChatMessage `json:"messages"`
}

type ChatEvent struct {
	Message ChatMessage `json:"message"`
}

type Meetings struct {
	Meetings []Meeting `json:"meetings"`
}

type SignalEvent struct {
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type UserStatus struct {
	UserID string `json:"userId"`
	Muted  bool   `json:"muted"`
}

// ScreenSharer announces the current sharer; a nil UserID means nobody shares.
type ScreenSharer struct {
	UserID *string `json:"userId"`
}

type HandEvent struct {
	UserID string `json:"userId"`
	Raised bool   `json:"raised"`
}

type Error struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ChatRooms struct {
	Rooms []ChatRoomSummary `json:"rooms"`
}

type ChatRoomHistory struct {
	RoomID   string        `json:"roomId"`
	Messages []ChatMessage `json:"messages"`
}

type ChatRoomEvent struct {
	Message ChatMessage `json:"message"`
}

func (Welcome) Kind() string         { return TypeWelcome }
func (AuthOK) Kind() string          { return TypeAuthOK }
func (AuthError) Kind() string       { return TypeAuthError }
func (Lobbies) Kind() string         { return TypeLobbies }
func (LobbyState) Kind() string      { return TypeLobbyState }
func (ChatHistory) Kind() string     { return TypeChatHistory }
func (ChatEvent) Kind() string       { return TypeChat }
func (Meetings) Kind() string        { return TypeMeetings }
func (SignalEvent) Kind() string     { return TypeSignal }
func (UserStatus) Kind() string      { return TypeUserStatus }
func (ScreenSharer) Kind() string    { return TypeScreenSharer }
func (HandEvent) Kind() string       { return TypeHand }
func (Error) Kind() string           { return TypeError }
func (ChatRooms) Kind() string       { return TypeChatRooms }
func (ChatRoomHistory) Kind() string { return TypeChatRoomHistory }
func (ChatRoomEvent) Kind() string   { return TypeChatRoomMessage }

func (Welcome) serverMessage()         {}
func (AuthOK) serverMessage()          {}
func (AuthError) serverMessage()       {}
func (Lobbies) serverMessage()         {}
func (LobbyState) serverMessage()      {}
func (ChatHistory) serverMessage()     {}
func (ChatEvent) serverMessage()       {}
func (Meetings) serverMessage()        {}
func (SignalEvent) serverMessage()     {}
func (UserStatus) serverMessage()      {}
func (ScreenSharer) serverMessage()    {}
func (HandEvent) serverMessage()       {}
func (Error) serverMessage()           {}
func (ChatRooms) serverMessage()       {}
func (ChatRoomHistory) serverMessage() {}
func (ChatRoomEvent) serverMessage()   {}
