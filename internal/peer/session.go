package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/kenobeee/mettta-space/internal/negotiation"
	"github.com/kenobeee/mettta-space/internal/protocol"
)

// Sender delivers client messages to the coordinator.
type Sender interface {
	Send(msg protocol.ClientMessage) error
}

// codeShareHeld is the coordinator's error code for a rejected share start.
const codeShareHeld = "ShareHeld"

// stateFailed is the connection state a PeerConn reports when ICE gives up.
const stateFailed = "failed"

type UpdateKind int

const (
	UpdateInfo UpdateKind = iota
	UpdateMembers
	UpdateChat
	UpdatePresence
	UpdatePeer
	UpdateError
)

// Update is something the user should see.
type Update struct {
	Kind UpdateKind
	Text string
}

type SessionOptions struct {
	Sender   Sender
	NewConn  ConnFactory
	DeviceID string
	Token    string
	Logger   *slog.Logger
	// Notify receives updates. It may be called from several goroutines.
	Notify func(Update)
}

// Session is one participant in a lobby. Handle and Command must be called
// from a single goroutine (Run does that); peer links run on their own.
type Session struct {
	sender   Sender
	newConn  ConnFactory
	deviceID string
	token    string
	logger   *slog.Logger

	notifyMu sync.Mutex
	notify   func(Update)

	selfID  string
	lobbyID string
	names   map[string]string
	links   map[string]*linkActor
	sharing bool

	// failed carries links whose transport gave up.
	failed  chan linkFailure
	nextGen uint64
}

func NewSession(opts SessionOptions) *Session {
	s := &Session{
		sender:   opts.Sender,
		newConn:  opts.NewConn,
		deviceID: opts.DeviceID,
		token:    opts.Token,
		logger:   opts.Logger,
		notify:   opts.Notify,
		names:    make(map[string]string),
		links:    make(map[string]*linkActor),
		failed:   make(chan linkFailure, 16),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.notify == nil {
		s.notify = func(Update) {}
	}
	return s
}

func (s *Session) emit(kind UpdateKind, format string, args ...any) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.notify(Update{Kind: kind, Text: fmt.Sprintf(format, args...)})
}

// Join announces the device, authenticates when a token is set and asks for lobbyID.
func (s *Session) Join(lobbyID string) error {
	if s.deviceID != "" {
		if err := s.sender.Send(protocol.ClientInfo{DeviceID: s.deviceID}); err != nil {
			return err
		}
	}
	if s.token != "" {
		if err := s.sender.Send(protocol.Auth{Token: s.token}); err != nil {
			return err
		}
	}
	return s.sender.Send(protocol.JoinLobby{LobbyID: lobbyID})
}

// Run processes server messages and user input until ctx ends or the
// server goes away. All links are closed on return.
func (s *Session) Run(ctx context.Context, incoming <-chan protocol.ServerMessage, lines <-chan string) error {
	defer s.closeLinks()

	for {
		select {
		case <-ctx.Done():
			return nil

		case msg, ok := <-incoming:
			if !ok {
				return ErrClosed
			}
			s.Handle(msg)

		case f := <-s.failed:
			s.dropLink(f)

		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if err := s.Command(line); err != nil {
				s.emit(UpdateError, "%v", err)
			}
		}
	}
}

// Handle reacts to one server message.
func (s *Session) Handle(msg protocol.ServerMessage) {
	switch m := msg.(type) {
	case protocol.Welcome:
		s.selfID = m.ClientID
		s.logger.Debug("Connected", "client", m.ClientID)

	case protocol.AuthOK:
		s.emit(UpdateInfo, "Signed in as %s", m.Profile.DisplayName)

	case protocol.AuthError:
		s.emit(UpdateError, "Sign-in failed: %s", m.Message)

	case protocol.LobbyState:
		s.syncMembers(m)

	case protocol.ChatHistory:
		for _, c := range m.Messages {
			s.emit(UpdateChat, "%s: %s", c.DisplayName, chatText(c))
		}

	case protocol.ChatEvent:
		s.emit(UpdateChat, "%s: %s", m.Message.DisplayName, chatText(m.Message))

	case protocol.SignalEvent:
		s.handleSignal(m)

	case protocol.UserStatus:
		state := "unmuted"
		if m.Muted {
			state = "muted"
		}
		s.emit(UpdatePresence, "%s %s", s.nameOf(m.UserID), state)

	case protocol.HandEvent:
		if m.Raised {
			s.emit(UpdatePresence, "%s raised a hand", s.nameOf(m.UserID))
		} else {
			s.emit(UpdatePresence, "%s lowered their hand", s.nameOf(m.UserID))
		}

	case protocol.ScreenSharer:
		if m.UserID == nil {
			s.emit(UpdatePresence, "Screen share ended")
		} else {
			s.emit(UpdatePresence, "%s is sharing their screen", s.nameOf(*m.UserID))
		}

	case protocol.Error:
		if m.Code == codeShareHeld && s.sharing {
			s.setSharing(false)
		}
		s.emit(UpdateError, "%s (%s)", m.Message, m.Code)
	}
}

func chatText(m protocol.ChatMessage) string {
	if m.File != nil {
		return fmt.Sprintf("[file] %s (%d bytes)", m.File.FileName, m.File.FileSize)
	}
	return m.Text
}

func (s *Session) nameOf(id string) string {
	if id == s.selfID {
		return "You"
	}
	if name, ok := s.names[id]; ok {
		return name
	}
	return id
}

// syncMembers opens a link for every new member and closes links to
// members that left. Losing our own membership closes everything.
func (s *Session) syncMembers(state protocol.LobbyState) {
	present := make(map[string]bool, len(state.Members))
	for _, m := range state.Members {
		present[m.ID] = true
		s.names[m.ID] = m.DisplayName
	}

	if !present[s.selfID] {
		if s.lobbyID == state.LobbyID {
			s.lobbyID = ""
			s.closeLinks()
			s.emit(UpdateMembers, "Left %s", state.LobbyID)
		}
		return
	}
	if s.lobbyID != state.LobbyID {
		s.closeLinks()
		s.lobbyID = state.LobbyID
		s.emit(UpdateMembers, "Joined %s", state.LobbyID)
	}

	for id, a := range s.links {
		if !present[id] {
			a.close()
			delete(s.links, id)
			s.emit(UpdatePeer, "%s left", s.nameOf(id))
		}
	}
	for _, m := range state.Members {
		if m.ID == s.selfID {
			continue
		}
		if _, ok := s.links[m.ID]; !ok {
			s.openLink(m.ID)
		}
	}

	names := make([]string, 0, len(state.Members))
	for _, m := range state.Members {
		label := s.nameOf(m.ID)
		if m.Muted {
			label += " (muted)"
		}
		if m.HandRaised {
			label += " (hand raised)"
		}
		names = append(names, label)
	}
	s.emit(UpdateMembers, "In %s: %s", state.LobbyID, strings.Join(names, ", "))
}

func (s *Session) openLink(peerID string) *linkActor {
	initiator := negotiation.IsInitiator(s.selfID, peerID)
	s.nextGen++
	gen := s.nextGen
	conn, err := s.newConn(peerID, initiator, ConnEvents{
		OnCandidate: func(c negotiation.Candidate) {
			if err := s.signal(peerID, negotiation.Payload{Candidate: &c}); err != nil {
				s.logger.Debug("Dropping local candidate", "peer", peerID, "error", err)
			}
		},
		OnHello: func(h Hello) {
			s.emit(UpdatePeer, "Connected to %s (%s %s)", peerID, h.DeviceName, h.DeviceVersion)
		},
		OnState: func(state string) {
			s.logger.Debug("Peer state", "peer", peerID, "state", state)
			if state == stateFailed {
				select {
				case s.failed <- linkFailure{peerID: peerID, gen: gen}:
				default:
				}
			}
		},
	})
	if err != nil {
		s.logger.Error("Failed to open peer connection", "peer", peerID, "error", err)
		s.emit(UpdateError, "Cannot connect to %s: %v", peerID, err)
		return nil
	}

	if s.sharing {
		if _, err := conn.SetScreenShare(true); err != nil {
			s.logger.Warn("Failed to add screen track", "peer", peerID, "error", err)
		}
	}

	a := newLinkActor(s.selfID, peerID, conn, func(p negotiation.Payload) error {
		return s.signal(peerID, p)
	}, s.logger)
	a.gen = gen
	s.links[peerID] = a
	go a.run()
	a.post(negotiation.Start{})
	return a
}

func (s *Session) signal(peerID string, p negotiation.Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return NewPeerError("encode signal", peerID, err)
	}
	return s.sender.Send(protocol.Signal{TargetID: peerID, Payload: data})
}

func (s *Session) handleSignal(m protocol.SignalEvent) {
	p, err := negotiation.ParsePayload(m.Payload)
	if err != nil {
		s.logger.Warn("Ignoring signal", "peer", m.From, "error", err)
		return
	}

	a, ok := s.links[m.From]
	if !ok {
		if s.lobbyID == "" {
			s.logger.Debug("Signal outside a lobby", "peer", m.From)
			return
		}
		// the peer's lobbyState may still be in flight
		if a = s.openLink(m.From); a == nil {
			return
		}
	}
	a.post(p.Event())
}

// Command runs one line of user input: either a slash command or chat text.
func (s *Session) Command(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		if s.lobbyID == "" {
			return ErrNotInLobby
		}
		return s.sender.Send(protocol.Chat{Text: line})
	}

	switch line {
	case "/mute":
		return s.sender.Send(protocol.Status{Muted: true})
	case "/unmute":
		return s.sender.Send(protocol.Status{Muted: false})
	case "/hand":
		return s.sender.Send(protocol.Hand{Raised: true})
	case "/lower":
		return s.sender.Send(protocol.Hand{Raised: false})
	case "/share":
		if err := s.sender.Send(protocol.ScreenShare{Action: protocol.ShareStart}); err != nil {
			return err
		}
		s.setSharing(true)
		return nil
	case "/unshare":
		if err := s.sender.Send(protocol.ScreenShare{Action: protocol.ShareStop}); err != nil {
			return err
		}
		s.setSharing(false)
		return nil
	case "/leave":
		s.lobbyID = ""
		s.closeLinks()
		return s.sender.Send(protocol.LeaveLobby{})
	default:
		return WrapError("command", ErrUnknownCommand, line)
	}
}

// setSharing toggles the screen track on every link and renegotiates the
// links that changed.
func (s *Session) setSharing(on bool) {
	s.sharing = on
	for id, a := range s.links {
		changed, err := a.conn.SetScreenShare(on)
		if err != nil {
			s.logger.Warn("Screen track update failed", "peer", id, "error", err)
		}
		if changed {
			a.post(negotiation.Renegotiate{})
		}
	}
}

// linkFailure names the link whose transport failed. gen tells a failure of
// the current link apart from a late one of a link already replaced.
type linkFailure struct {
	peerID string
	gen    uint64
}

// dropLink tears down the failed link. The peer gets a fresh link on the
// next lobbyState that still lists it.
func (s *Session) dropLink(f linkFailure) {
	peerID := f.peerID
	a, ok := s.links[peerID]
	if !ok || a.gen != f.gen {
		s.logger.Debug("Ignoring failure of a replaced link", "peer", peerID)
		return
	}
	a.close()
	delete(s.links, peerID)
	s.emit(UpdatePeer, "Lost connection to %s", s.nameOf(peerID))
}

func (s *Session) closeLinks() {
	for id, a := range s.links {
		a.close()
		delete(s.links, id)
	}
}

// Peers returns the ids of the peers with an open link.
func (s *Session) Peers() []string {
	ids := make([]string, 0, len(s.links))
	for id := range s.links {
		ids = append(ids, id)
	}
	return ids
}
