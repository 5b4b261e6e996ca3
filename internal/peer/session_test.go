package peer

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenobeee/mettta-space/internal/negotiation"
	"github.com/kenobeee/mettta-space/internal/protocol"
)

type fakeConn struct {
	mu        sync.Mutex
	calls     []string
	screen    bool
	closed    bool
	offers    int
}

func (c *fakeConn) record(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *fakeConn) CreateOffer() (negotiation.Description, error) {
	c.mu.Lock()
	c.offers++
	n := c.offers
	c.mu.Unlock()
	c.record("createOffer")
	return negotiation.Description{Type: negotiation.SDPOffer, SDP: "offer-" + string(rune('0'+n))}, nil
}

func (c *fakeConn) CreateAnswer() (negotiation.Description, error) {
	c.record("createAnswer")
	return negotiation.Description{Type: negotiation.SDPAnswer, SDP: "answer"}, nil
}

func (c *fakeConn) SetRemote(d negotiation.Description) error {
	c.record("setRemote:" + d.Type)
	return nil
}

func (c *fakeConn) Rollback() error {
	c.record("rollback")
	return nil
}

func (c *fakeConn) AddCandidate(cand negotiation.Candidate) error {
	c.record("candidate:" + cand.Candidate)
	return nil
}

func (c *fakeConn) SetScreenShare(on bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	changed := c.screen != on
	c.screen = on
	return changed, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeSender struct {
	mu   sync.Mutex
	sent []protocol.ClientMessage
}

func (s *fakeSender) Send(msg protocol.ClientMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeSender) messages() []protocol.ClientMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.ClientMessage(nil), s.sent...)
}

// signalsTo returns the parsed payloads sent to peer, in order.
func (s *fakeSender) signalsTo(t *testing.T, peer string) []negotiation.Payload {
	t.Helper()
	var out []negotiation.Payload
	for _, m := range s.messages() {
		sig, ok := m.(protocol.Signal)
		if !ok || sig.TargetID != peer {
			continue
		}
		p, err := negotiation.ParsePayload(sig.Payload)
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

type fixture struct {
	session *Session
	sender  *fakeSender
	updates []Update
	mu      sync.Mutex
	conns   map[string]*fakeConn
	inits   map[string]bool
}

func newFixture(t *testing.T, self string) *fixture {
	t.Helper()
	f := &fixture{
		sender: &fakeSender{},
		conns:  make(map[string]*fakeConn),
		inits:  make(map[string]bool),
	}
	f.session = NewSession(SessionOptions{
		Sender: f.sender,
		NewConn: func(peerID string, initiator bool, _ ConnEvents) (PeerConn, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			c := &fakeConn{}
			f.conns[peerID] = c
			f.inits[peerID] = initiator
			return c, nil
		},
		DeviceID: "laptop",
		Logger:   slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		Notify: func(u Update) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.updates = append(f.updates, u)
		},
	})
	f.session.Handle(protocol.Welcome{ClientID: self})
	t.Cleanup(f.session.closeLinks)
	return f
}

func (f *fixture) conn(id string) *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns[id]
}

func (f *fixture) texts(kind UpdateKind) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, u := range f.updates {
		if u.Kind == kind {
			out = append(out, u.Text)
		}
	}
	return out
}

func members(lobby string, ids ...string) protocol.LobbyState {
	st := protocol.LobbyState{LobbyID: lobby}
	for _, id := range ids {
		st.Members = append(st.Members, protocol.Member{ID: id, DisplayName: "user " + id})
	}
	return st
}

func signalFrom(t *testing.T, from string, p negotiation.Payload) protocol.SignalEvent {
	t.Helper()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	return protocol.SignalEvent{From: from, Payload: data}
}

func TestJoinAnnouncesDevice(t *testing.T) {
	f := newFixture(t, "b")
	f.session.token = "tok"

	require.NoError(t, f.session.Join("l1"))
	assert.Equal(t, []protocol.ClientMessage{
		protocol.ClientInfo{DeviceID: "laptop"},
		protocol.Auth{Token: "tok"},
		protocol.JoinLobby{LobbyID: "l1"},
	}, f.sender.messages())
}

func TestSmallerIDOffersFirst(t *testing.T) {
	f := newFixture(t, "b")
	f.session.Handle(members("l1", "a", "b", "c"))

	assert.ElementsMatch(t, []string{"a", "c"}, f.session.Peers())
	assert.Contains(t, f.texts(UpdateMembers), "In l1: user a, You, user c")
	assert.False(t, f.inits["a"])
	assert.True(t, f.inits["c"])

	require.Eventually(t, func() bool { return len(f.sender.signalsTo(t, "c")) == 1 }, time.Second, 5*time.Millisecond)
	offer := f.sender.signalsTo(t, "c")[0]
	require.NotNil(t, offer.SDP)
	assert.Equal(t, negotiation.SDPOffer, offer.SDP.Type)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, f.sender.signalsTo(t, "a"), "the larger id waits for the offer")
}

func TestAnswersRemoteOfferAndFlushesCandidates(t *testing.T) {
	f := newFixture(t, "b")
	f.session.Handle(members("l1", "a", "b"))

	f.session.Handle(signalFrom(t, "a", negotiation.Payload{Candidate: &negotiation.Candidate{Candidate: "c1"}}))
	f.session.Handle(signalFrom(t, "a", negotiation.Payload{Candidate: &negotiation.Candidate{Candidate: "c2"}}))
	f.session.Handle(signalFrom(t, "a", negotiation.Payload{SDP: &negotiation.Description{Type: negotiation.SDPOffer, SDP: "x"}}))

	require.Eventually(t, func() bool { return len(f.sender.signalsTo(t, "a")) == 1 }, time.Second, 5*time.Millisecond)
	answer := f.sender.signalsTo(t, "a")[0]
	require.NotNil(t, answer.SDP)
	assert.Equal(t, negotiation.SDPAnswer, answer.SDP.Type)

	assert.Equal(t, []string{"setRemote:offer", "candidate:c1", "candidate:c2", "createAnswer"}, f.conn("a").snapshot())
}

func TestMembersLeavingCloseLinks(t *testing.T) {
	f := newFixture(t, "b")
	f.session.Handle(members("l1", "a", "b", "c"))
	ca := f.conn("a")

	f.session.Handle(members("l1", "b", "c"))
	assert.ElementsMatch(t, []string{"c"}, f.session.Peers())
	require.Eventually(t, ca.isClosed, time.Second, 5*time.Millisecond)

	// evicted: our own id is gone
	f.session.Handle(members("l1", "c"))
	assert.Empty(t, f.session.Peers())
	require.Eventually(t, f.conn("c").isClosed, time.Second, 5*time.Millisecond)
}

func TestScreenShareRenegotiates(t *testing.T) {
	f := newFixture(t, "b")
	f.session.Handle(members("l1", "a", "b"))

	require.NoError(t, f.session.Command("/share"))
	assert.Contains(t, f.sender.messages(), protocol.ClientMessage(protocol.ScreenShare{Action: protocol.ShareStart}))

	require.Eventually(t, func() bool { return len(f.sender.signalsTo(t, "a")) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, negotiation.SDPOffer, f.sender.signalsTo(t, "a")[0].SDP.Type)
	assert.True(t, f.conn("a").screen)

	// a rejected share takes the track back off
	f.session.Handle(protocol.Error{Message: "held", Code: "ShareHeld"})
	assert.False(t, f.conn("a").screen)
}

func TestCommands(t *testing.T) {
	f := newFixture(t, "b")

	assert.ErrorIs(t, f.session.Command("hello"), ErrNotInLobby)
	f.session.Handle(members("l1", "b"))

	require.NoError(t, f.session.Command("  hello  "))
	require.NoError(t, f.session.Command("/mute"))
	require.NoError(t, f.session.Command("/hand"))
	require.NoError(t, f.session.Command(""))
	assert.ErrorIs(t, f.session.Command("/dance"), ErrUnknownCommand)
	require.NoError(t, f.session.Command("/leave"))

	assert.Equal(t, []protocol.ClientMessage{
		protocol.Chat{Text: "hello"},
		protocol.Status{Muted: true},
		protocol.Hand{Raised: true},
		protocol.LeaveLobby{},
	}, f.sender.messages())
}

func TestMalformedSignalIgnored(t *testing.T) {
	f := newFixture(t, "b")
	f.session.Handle(members("l1", "a", "b"))

	f.session.Handle(protocol.SignalEvent{From: "a", Payload: json.RawMessage(`{"bogus":true}`)})
	f.session.Handle(protocol.SignalEvent{From: "z", Payload: json.RawMessage(`{}`)})
	assert.ElementsMatch(t, []string{"a"}, f.session.Peers())
}

func TestTransportFailureDropsLink(t *testing.T) {
	f := newFixture(t, "b")
	var events ConnEvents
	f.session.newConn = func(peerID string, initiator bool, ev ConnEvents) (PeerConn, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		events = ev
		c := &fakeConn{}
		f.conns[peerID] = c
		return c, nil
	}
	f.session.Handle(members("l1", "a", "b"))
	ca := f.conn("a")

	events.OnState("connecting")
	events.OnState("failed")
	f.session.dropLink(nextFailure(t, f.session))

	assert.Empty(t, f.session.Peers())
	require.Eventually(t, ca.isClosed, time.Second, 5*time.Millisecond)
	assert.Contains(t, f.texts(UpdatePeer), "Lost connection to user a")

	// the next membership update reconnects
	stale := events
	f.session.Handle(members("l1", "a", "b"))
	assert.ElementsMatch(t, []string{"a"}, f.session.Peers())
	fresh := f.conn("a")
	assert.NotSame(t, ca, fresh)

	// a late failure from the old connection leaves the new link alone
	stale.OnState("failed")
	f.session.dropLink(nextFailure(t, f.session))
	assert.ElementsMatch(t, []string{"a"}, f.session.Peers())
	assert.False(t, fresh.isClosed())
}

func TestOtherStatesKeepLink(t *testing.T) {
	f := newFixture(t, "b")
	var events ConnEvents
	f.session.newConn = func(peerID string, initiator bool, ev ConnEvents) (PeerConn, error) {
		events = ev
		return &fakeConn{}, nil
	}
	f.session.Handle(members("l1", "a", "b"))

	events.OnState("disconnected")
	events.OnState("connected")
	select {
	case lf := <-f.session.failed:
		t.Fatalf("unexpected failure for %s", lf.peerID)
	default:
	}
	assert.ElementsMatch(t, []string{"a"}, f.session.Peers())
}

func nextFailure(t *testing.T, s *Session) linkFailure {
	t.Helper()
	select {
	case lf := <-s.failed:
		return lf
	case <-time.After(time.Second):
		t.Fatal("no link failure reported")
		return linkFailure{}
	}
}
